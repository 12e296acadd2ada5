package bol

import "testing"

func TestCoerceDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{in: "2025-03-04", want: Date{Value: "2025-03-04", Validated: true}},
		{in: "2025-03-04T10:00:00Z", want: Date{Value: "2025-03-04", Validated: true}},
		{in: "2025-03-04T23:30:00-05:00", want: Date{Value: "2025-03-04", Validated: true}},
		{in: "2025-03-04T10:00:00", want: Date{Value: "2025-03-04", Validated: true}},
		{in: "03/04/2025", want: Date{Value: "2025-03-04", Validated: true}},
		{in: "3/4/2025", want: Date{Value: "2025-03-04", Validated: true}},
		{in: "25/12/2025", want: Date{Value: "2025-12-25", Validated: true}},
		{in: " 2024-02-29 ", want: Date{Value: "2024-02-29", Validated: true}},
		{in: "2025-02-29", want: Date{Value: "2025-02-29", Validated: false}},
		{in: "31/02/2025", want: Date{Value: "31/02/2025", Validated: false}},
		{in: "March 4th", want: Date{Value: "March 4th", Validated: false}},
		{in: "", want: Date{Value: "", Validated: false}},
	}
	for _, tt := range tests {
		if got := CoerceDate(tt.in); got != tt.want {
			t.Fatalf("CoerceDate(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
