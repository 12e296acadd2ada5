package bol

import (
	"encoding/json"
	"reflect"
	"testing"
)

func rawFrom(t *testing.T, payload string) RawFields {
	t.Helper()
	raw, err := ParseRaw([]byte(payload))
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	return raw
}

func TestNormalizeMapsAliasedKeys(t *testing.T) {
	raw := rawFrom(t, `{
		"BOL Number": "hlcu bsc250265371",
		"carrier_ref": "18763708",
		"Vessel Name": "MSC ANNA",
		"date": "03/04/2025",
		"pol": "La Guaira",
		"pod": "Houston",
		"containers": [{
			"container_no": "MSCU1234567",
			"seal": "SL-01",
			"type": "20ISO",
			"product": {"name": "Glycerin", "density": "1.26"},
			"quantity": {"liters": "20,000 L", "kilograms": 0}
		}],
		"shipper": "ACME Chemicals"
	}`)

	d := Normalize(raw)

	if d.BolNumber != "HLCUBSC250265371" {
		t.Fatalf("unexpected bol number %q", d.BolNumber)
	}
	if d.CarrierReference == nil || *d.CarrierReference != "18763708" {
		t.Fatalf("unexpected carrier reference %v", d.CarrierReference)
	}
	if d.Vessel == nil || *d.Vessel != "MSC ANNA" {
		t.Fatalf("unexpected vessel %v", d.Vessel)
	}
	if d.DateOfIssue == nil || *d.DateOfIssue != (Date{Value: "2025-03-04", Validated: true}) {
		t.Fatalf("unexpected date %+v", d.DateOfIssue)
	}
	if d.PortOfLoading != "La Guaira" || d.PortOfDischarge != "Houston" {
		t.Fatalf("unexpected ports %q %q", d.PortOfLoading, d.PortOfDischarge)
	}
	if d.BookingNumber != nil || d.Voyage != nil {
		t.Fatalf("expected absent booking number and voyage")
	}
	if len(d.Containers) != 1 {
		t.Fatalf("expected 1 container, got %d", len(d.Containers))
	}
	c := d.Containers[0]
	if c.Number != "MSCU1234567" || c.SealNumber != "SL-01" || c.Type != "20ISO" {
		t.Fatalf("unexpected container %+v", c)
	}
	if c.Product.Name != "Glycerin" || c.Product.Density == nil || *c.Product.Density != 1.26 {
		t.Fatalf("unexpected product %+v", c.Product)
	}
	if c.Quantity.Liters == nil || *c.Quantity.Liters != 20000 {
		t.Fatalf("unexpected liters %v", c.Quantity.Liters)
	}
	if c.Quantity.Kilograms == nil || *c.Quantity.Kilograms != 0 {
		t.Fatalf("expected explicit zero kilograms, got %v", c.Quantity.Kilograms)
	}
	if c.Quantity.Gallons != nil {
		t.Fatalf("expected gallons absent, got %v", *c.Quantity.Gallons)
	}

	want := []Extra{TextExtra("shipper", "ACME Chemicals")}
	if !reflect.DeepEqual(d.Overflow, want) {
		t.Fatalf("unexpected overflow %+v", d.Overflow)
	}
}

func TestNormalizeAliasCollisionKeepsLoser(t *testing.T) {
	d := Normalize(rawFrom(t, `{"BOL Number": "A1", "bolNumber": "B2"}`))

	if d.BolNumber != "A1" {
		t.Fatalf("expected first sorted key to win, got %q", d.BolNumber)
	}
	extra, ok := d.Lookup("bolNumber")
	if !ok || extra.Kind != ExtraText || *extra.Text != "B2" {
		t.Fatalf("expected losing alias in overflow, got %+v", d.Overflow)
	}
}

func TestNormalizeKeepsUnparseableQuantities(t *testing.T) {
	d := Normalize(rawFrom(t, `{"bolNumber": "X1", "containers": [{"number": "C1", "quantity": {"liters": "lots", "gallons": "5 gal"}}]}`))

	q := d.Containers[0].Quantity
	if q.Liters != nil {
		t.Fatalf("expected liters absent, got %v", *q.Liters)
	}
	if q.Gallons == nil || *q.Gallons != 5 {
		t.Fatalf("unexpected gallons %v", q.Gallons)
	}
	extra, ok := d.Lookup("containers[0].quantity.liters")
	if !ok || extra.Kind != ExtraText || *extra.Text != "lots" {
		t.Fatalf("expected raw liters in overflow, got %+v", d.Overflow)
	}
}

func TestNormalizeReadsFlatContainerQuantities(t *testing.T) {
	d := Normalize(rawFrom(t, `{"bolNumber": "X1", "lineItems": {"containerNumber": "C9", "kg": "1.200,5", "productName": "Caustic soda"}}`))

	if len(d.Containers) != 1 {
		t.Fatalf("expected single object to become one container, got %d", len(d.Containers))
	}
	c := d.Containers[0]
	if c.Number != "C9" || c.Product.Name != "Caustic soda" {
		t.Fatalf("unexpected container %+v", c)
	}
	if c.Quantity.Kilograms == nil || *c.Quantity.Kilograms != 1200.5 {
		t.Fatalf("unexpected kilograms %v", c.Quantity.Kilograms)
	}
}

func TestNormalizeTagsOverflowKinds(t *testing.T) {
	d := Normalize(rawFrom(t, `{"bolNumber": "X", "notes": "fragile", "weight": 12.5, "hazardous": true, "meta": {"a": 1}, "empty": null}`))

	kinds := map[string]ExtraKind{}
	var keys []string
	for _, e := range d.Overflow {
		kinds[e.Key] = e.Kind
		keys = append(keys, e.Key)
	}
	wantKeys := []string{"empty", "hazardous", "meta", "notes", "weight"}
	if !reflect.DeepEqual(keys, wantKeys) {
		t.Fatalf("expected sorted keys %v, got %v", wantKeys, keys)
	}
	want := map[string]ExtraKind{
		"empty":     ExtraUnstructured,
		"hazardous": ExtraBool,
		"meta":      ExtraUnstructured,
		"notes":     ExtraText,
		"weight":    ExtraNumber,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("unexpected kinds %v", kinds)
	}
	meta, _ := d.Lookup("meta")
	if string(meta.Raw) != `{"a":1}` {
		t.Fatalf("expected compact raw, got %s", meta.Raw)
	}
}

func TestNormalizeIsAFixedPoint(t *testing.T) {
	inputs := []string{
		`{"BOL Number": "hlcu1", "bolNumber": "dup", "date": "garbage", "containers": [{"container_no": "C1", "liters": "x", "quantity": {"kilograms": 0}}, 7]}`,
		`{"bolNumber": "B2", "meta": {"html": "<b>bold</b>"}, "overflow": {"earlier": 1}, "vessel": true}`,
		`{"bolNumber": "B3", "issueDate": "2025-01-31T08:00:00Z", "containers": [{"product": "Acid", "density": "1,84", "gal": 0}]}`,
	}
	for _, in := range inputs {
		first := Normalize(rawFrom(t, in))
		second := Normalize(first.Raw())
		if !reflect.DeepEqual(first, second) {
			a, _ := json.Marshal(first)
			b, _ := json.Marshal(second)
			t.Fatalf("normalize is not a fixed point for %s:\nfirst:  %s\nsecond: %s", in, a, b)
		}
	}
}

func TestParseRawRejectsNonObjects(t *testing.T) {
	for _, in := range []string{`[1,2]`, `null`, `"text"`, `{`} {
		if _, err := ParseRaw([]byte(in)); err == nil {
			t.Fatalf("expected error for %s", in)
		}
	}
}
