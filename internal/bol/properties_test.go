package bol

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPropertyDateFormatsAgree(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("month-first and ISO inputs recover the same date", prop.ForAll(
		func(year, month, day int) bool {
			want := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
			inputs := []string{
				want,
				want + "T12:00:00Z",
				want + "T12:00:00",
				fmt.Sprintf("%02d/%02d/%04d", month, day, year),
			}
			for _, in := range inputs {
				if CoerceDate(in) != (Date{Value: want, Validated: true}) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1990, 2089),
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
	))

	properties.Property("unambiguous day-first inputs recover the same date", prop.ForAll(
		func(year, month, day int) bool {
			want := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
			got := CoerceDate(fmt.Sprintf("%02d/%02d/%04d", day, month, year))
			return got == Date{Value: want, Validated: true}
		},
		gen.IntRange(1990, 2089),
		gen.IntRange(1, 12),
		gen.IntRange(13, 28),
	))

	properties.TestingRun(t)
}

// measureMode: 0 absent, 1 explicit zero, 2 positive value.
func measureJSON(mode int, value float64) (json.RawMessage, *float64) {
	switch mode {
	case 1:
		zero := 0.0
		return json.RawMessage(`0`), &zero
	case 2:
		b, _ := json.Marshal(value)
		return b, &value
	}
	return nil, nil
}

func TestPropertyZeroIsNotAbsence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("each unit keeps zero as zero and absence as absence", prop.ForAll(
		func(lm, gm, km int, lv, gv, kv float64) bool {
			quantity := map[string]json.RawMessage{}
			lraw, lwant := measureJSON(lm, lv)
			graw, gwant := measureJSON(gm, gv)
			kraw, kwant := measureJSON(km, kv)
			if lraw != nil {
				quantity["liters"] = lraw
			}
			if graw != nil {
				quantity["gallons"] = graw
			}
			if kraw != nil {
				quantity["kilograms"] = kraw
			}
			container, _ := json.Marshal(map[string]any{"number": "C1", "quantity": quantity})
			raw := RawFields{
				"bolNumber":  json.RawMessage(`"B1"`),
				"containers": json.RawMessage("[" + string(container) + "]"),
			}

			q := Normalize(raw).Containers[0].Quantity
			return reflect.DeepEqual(q.Liters, lwant) &&
				reflect.DeepEqual(q.Gallons, gwant) &&
				reflect.DeepEqual(q.Kilograms, kwant)
		},
		gen.IntRange(0, 2), gen.IntRange(0, 2), gen.IntRange(0, 2),
		gen.Float64Range(0.001, 1e7), gen.Float64Range(0.001, 1e7), gen.Float64Range(0.001, 1e7),
	))

	properties.TestingRun(t)
}

func TestPropertyNormalizeFixedPoint(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("normalize(raw(normalize(x))) == normalize(x)", prop.ForAll(
		func(bolNumber, vessel, date, extraKey, extraValue string, liters float64, withLiters, dupAlias bool) bool {
			container := map[string]any{"number": "C-" + bolNumber}
			if withLiters {
				container["quantity"] = map[string]any{"liters": liters}
			} else {
				container["liters"] = extraValue
			}
			containers, _ := json.Marshal([]any{container, extraValue})

			raw := RawFields{
				"bol_number":    mustJSON(bolNumber),
				"Vessel":        mustJSON(vessel),
				"date":          mustJSON(date),
				"containers":    containers,
				"x_" + extraKey: mustJSON(extraValue),
			}
			if dupAlias {
				raw["BL No"] = mustJSON(extraValue)
			}

			first := Normalize(raw)
			return reflect.DeepEqual(first, Normalize(first.Raw()))
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.OneConstOf("2025-03-04", "03/04/2025", "31/12/2024", "not a date", ""),
		gen.AlphaString(),
		gen.OneConstOf("12.5", "n/a", "", "1,500 kg", "<tag>"),
		gen.Float64Range(0, 1e6),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
