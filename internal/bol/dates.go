package bol

import (
	"strings"
	"time"
)

// dateLayouts are tried in order; the first that yields a valid calendar
// date wins. Month-first precedes day-first for ambiguous inputs.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006",
	"2/1/2006",
}

// CoerceDate converts s to a Date. Unparseable input is kept verbatim and
// marked unvalidated.
func CoerceDate(s string) Date {
	s = strings.TrimSpace(s)
	if v, ok := parseDate(s); ok {
		return Date{Value: v, Validated: true}
	}
	return Date{Value: s, Validated: false}
}

func parseDate(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// Format in the parsed offset so the written calendar day survives.
		return t.Format("2006-01-02"), true
	}
	return "", false
}
