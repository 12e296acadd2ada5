package bol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ParseRaw decodes an extraction payload into RawFields.
func ParseRaw(b []byte) (RawFields, error) {
	var raw RawFields
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRaw, err)
	}
	if raw == nil {
		return nil, ErrInvalidRaw
	}
	return raw, nil
}

// Normalize maps raw extracted fields onto Data. It is total and depends on
// nothing but its input. Values that cannot be placed are kept in Overflow.
func Normalize(raw RawFields) Data {
	n := &normalizer{}
	d := Data{Containers: []Container{}}

	a := assign(keysOf(raw), topLevelAliases, overflowKey)
	for _, canonical := range a.canonical() {
		key := a.fields[canonical]
		value := raw[key]
		switch canonical {
		case fieldBolNumber:
			if s, ok := n.text(key, value); ok && s != nil {
				d.BolNumber = normalizeBolNumber(*s)
			}
		case fieldBookingNumber:
			d.BookingNumber = n.optionalText(key, value)
		case fieldCarrierReference:
			d.CarrierReference = n.optionalText(key, value)
		case fieldVessel:
			d.Vessel = n.optionalText(key, value)
		case fieldVoyage:
			d.Voyage = n.optionalText(key, value)
		case fieldPortOfLoading:
			if s := n.optionalText(key, value); s != nil {
				d.PortOfLoading = *s
			}
		case fieldPortOfDischarge:
			if s := n.optionalText(key, value); s != nil {
				d.PortOfDischarge = *s
			}
		case fieldDateOfIssue:
			if s := n.optionalText(key, value); s != nil {
				date := CoerceDate(*s)
				d.DateOfIssue = &date
			}
		case fieldContainers:
			d.Containers = n.containers(key, value)
		}
	}
	for _, key := range a.unknown {
		n.keep(key, raw[key])
	}
	for _, key := range a.losers {
		n.keep(key, raw[key])
	}
	if prior, ok := raw[overflowKey]; ok {
		n.restore(prior)
	}

	d.Overflow = n.sorted()
	return d
}

func normalizeBolNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

type normalizer struct {
	extras []Extra
	seen   map[string]bool
}

func (n *normalizer) keep(key string, value json.RawMessage) {
	if n.seen == nil {
		n.seen = make(map[string]bool)
	}
	for n.seen[key] {
		key = overflowKey + "." + key
	}
	n.seen[key] = true
	n.extras = append(n.extras, classify(key, value))
}

// restore re-admits entries bucketed by an earlier Normalize run.
func (n *normalizer) restore(prior json.RawMessage) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(prior, &entries); err != nil || entries == nil {
		n.keep(overflowKey, prior)
		return
	}
	for _, key := range keysOf(entries) {
		n.keep(key, entries[key])
	}
}

func (n *normalizer) sorted() []Extra {
	if len(n.extras) == 0 {
		return nil
	}
	sort.SliceStable(n.extras, func(i, j int) bool { return n.extras[i].Key < n.extras[j].Key })
	return n.extras
}

// text reads a scalar as a trimmed string. Blank values are absent.
// Objects, arrays and booleans are moved to overflow.
func (n *normalizer) text(key string, value json.RawMessage) (*string, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, true
	}
	var s string
	switch trimmed[0] {
	case '"':
		if err := json.Unmarshal(trimmed, &s); err != nil {
			n.keep(key, value)
			return nil, false
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s = string(trimmed)
	default:
		n.keep(key, value)
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	return &s, true
}

func (n *normalizer) optionalText(key string, value json.RawMessage) *string {
	s, _ := n.text(key, value)
	return s
}

func (n *normalizer) containers(key string, value json.RawMessage) []Container {
	out := []Container{}
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out
	}

	var items []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			n.keep(key, value)
			return out
		}
	case '{':
		items = []json.RawMessage{trimmed}
	default:
		n.keep(key, value)
		return out
	}

	for i, item := range items {
		prefix := fieldContainers + "[" + strconv.Itoa(i) + "]"
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			n.keep(prefix, item)
			continue
		}
		out = append(out, n.container(prefix, fields))
	}
	return out
}

func (n *normalizer) container(prefix string, fields map[string]json.RawMessage) Container {
	var c Container
	a := assign(keysOf(fields), containerAliases)
	path := func(k string) string { return prefix + "." + k }

	var flatName, flatDensity, flatLiters, flatGallons, flatKilograms string
	for _, canonical := range a.canonical() {
		key := a.fields[canonical]
		value := fields[key]
		switch canonical {
		case fieldNumber:
			if s := n.optionalText(path(key), value); s != nil {
				c.Number = *s
			}
		case fieldSealNumber:
			if s := n.optionalText(path(key), value); s != nil {
				c.SealNumber = *s
			}
		case fieldType:
			if s := n.optionalText(path(key), value); s != nil {
				c.Type = *s
			}
		case fieldProduct:
			c.Product = n.product(path(key), value)
		case fieldQuantity:
			c.Quantity = n.quantity(path(key), value)
		case fieldName:
			flatName = key
		case fieldDensity:
			flatDensity = key
		case fieldLiters:
			flatLiters = key
		case fieldGallons:
			flatGallons = key
		case fieldKilograms:
			flatKilograms = key
		}
	}

	// Flat fields fill gaps left by the nested objects; shadowed ones are kept.
	if flatName != "" {
		if s := n.optionalText(path(flatName), fields[flatName]); s != nil {
			if c.Product.Name == "" {
				c.Product.Name = *s
			} else {
				n.keep(path(flatName), fields[flatName])
			}
		}
	}
	c.Product.Density = n.fillMeasure(c.Product.Density, path(flatDensity), flatDensity, fields)
	c.Quantity.Liters = n.fillMeasure(c.Quantity.Liters, path(flatLiters), flatLiters, fields)
	c.Quantity.Gallons = n.fillMeasure(c.Quantity.Gallons, path(flatGallons), flatGallons, fields)
	c.Quantity.Kilograms = n.fillMeasure(c.Quantity.Kilograms, path(flatKilograms), flatKilograms, fields)

	for _, key := range a.unknown {
		n.keep(path(key), fields[key])
	}
	for _, key := range a.losers {
		n.keep(path(key), fields[key])
	}
	return c
}

func (n *normalizer) fillMeasure(current *float64, path, key string, fields map[string]json.RawMessage) *float64 {
	if key == "" {
		return current
	}
	v, present, ok := parseMeasure(fields[key])
	if !present {
		return current
	}
	if !ok || current != nil {
		n.keep(path, fields[key])
		return current
	}
	return v
}

func (n *normalizer) measure(path string, value json.RawMessage) *float64 {
	v, present, ok := parseMeasure(value)
	if present && !ok {
		n.keep(path, value)
		return nil
	}
	return v
}

func (n *normalizer) product(path string, value json.RawMessage) Product {
	var p Product
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		if s := n.optionalText(path, value); s != nil {
			p.Name = *s
		}
		return p
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil || fields == nil {
		return p
	}
	a := assign(keysOf(fields), productAliases)
	for _, canonical := range a.canonical() {
		key := a.fields[canonical]
		switch canonical {
		case fieldName:
			if s := n.optionalText(path+"."+key, fields[key]); s != nil {
				p.Name = *s
			}
		case fieldDensity:
			p.Density = n.measure(path+"."+key, fields[key])
		}
	}
	for _, key := range append(a.unknown, a.losers...) {
		n.keep(path+"."+key, fields[key])
	}
	return p
}

func (n *normalizer) quantity(path string, value json.RawMessage) Quantity {
	var q Quantity
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil || fields == nil {
		if t := bytes.TrimSpace(value); len(t) > 0 && !bytes.Equal(t, []byte("null")) {
			n.keep(path, value)
		}
		return q
	}
	a := assign(keysOf(fields), quantityAliases)
	for _, canonical := range a.canonical() {
		key := a.fields[canonical]
		switch canonical {
		case fieldLiters:
			q.Liters = n.measure(path+"."+key, fields[key])
		case fieldGallons:
			q.Gallons = n.measure(path+"."+key, fields[key])
		case fieldKilograms:
			q.Kilograms = n.measure(path+"."+key, fields[key])
		}
	}
	for _, key := range append(a.unknown, a.losers...) {
		n.keep(path+"."+key, fields[key])
	}
	return q
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
