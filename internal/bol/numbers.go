package bol

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var thousandsComma = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+$`)

// parseMeasure reads a quantity or density. present is false for missing,
// null, or blank values. ok is false when a present value cannot be read.
func parseMeasure(raw json.RawMessage) (v *float64, present bool, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, true
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, true, false
		}
		if strings.TrimSpace(s) == "" {
			return nil, false, true
		}
		f, err := parseNumberText(s)
		if err != nil {
			return nil, true, false
		}
		return &f, true, true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, true, false
		}
		return &f, true, true
	default:
		return nil, true, false
	}
}

type numberError string

func (e numberError) Error() string { return "unparseable number: " + string(e) }

// parseNumberText accepts values like "1,234.5", "1.234,5", "20000 kg" and
// "850.5 L". A trailing unit suffix made of letters is ignored.
func parseNumberText(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	last := strings.LastIndexFunc(s, unicode.IsDigit)
	if last < 0 {
		return 0, numberError(s)
	}
	suffix := s[last+1:]
	for _, r := range suffix {
		if !unicode.IsLetter(r) && r != ' ' && r != '.' && r != '³' {
			return 0, numberError(s)
		}
	}
	num := strings.TrimSpace(s[:last+1])
	for _, r := range num {
		if !unicode.IsDigit(r) && r != ',' && r != '.' && r != '-' && r != '+' {
			return 0, numberError(s)
		}
	}

	num = normalizeSeparators(num)
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, numberError(s)
	}
	return f, nil
}

func normalizeSeparators(num string) string {
	dot := strings.LastIndex(num, ".")
	comma := strings.LastIndex(num, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			num = strings.ReplaceAll(num, ".", "")
			return strings.Replace(num, ",", ".", 1)
		}
		return strings.ReplaceAll(num, ",", "")
	case comma >= 0:
		if thousandsComma.MatchString(num) {
			return strings.ReplaceAll(num, ",", "")
		}
		if strings.Count(num, ",") == 1 {
			return strings.Replace(num, ",", ".", 1)
		}
		return num
	case strings.Count(num, ".") > 1:
		return strings.ReplaceAll(num, ".", "")
	}
	return num
}
