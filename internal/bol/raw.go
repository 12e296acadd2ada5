package bol

import "encoding/json"

// Raw renders d in the raw form Normalize reads, so Normalize(d.Raw())
// reproduces d. Overflow entries are nested under the "overflow" key.
func (d Data) Raw() RawFields {
	raw := RawFields{}
	putString(raw, fieldBolNumber, d.BolNumber)
	putOptional(raw, fieldBookingNumber, d.BookingNumber)
	putOptional(raw, fieldCarrierReference, d.CarrierReference)
	if d.DateOfIssue != nil {
		putString(raw, fieldDateOfIssue, d.DateOfIssue.Value)
	}
	putOptional(raw, fieldVessel, d.Vessel)
	putOptional(raw, fieldVoyage, d.Voyage)
	putString(raw, fieldPortOfLoading, d.PortOfLoading)
	putString(raw, fieldPortOfDischarge, d.PortOfDischarge)

	if len(d.Containers) > 0 {
		items := make([]map[string]json.RawMessage, 0, len(d.Containers))
		for _, c := range d.Containers {
			items = append(items, c.raw())
		}
		raw[fieldContainers] = mustJSON(items)
	}

	if len(d.Overflow) > 0 {
		entries := make(map[string]json.RawMessage, len(d.Overflow))
		for _, e := range d.Overflow {
			entries[e.Key] = e.Value()
		}
		raw[overflowKey] = mustJSON(entries)
	}
	return raw
}

func (c Container) raw() map[string]json.RawMessage {
	m := map[string]json.RawMessage{}
	putString(m, fieldNumber, c.Number)
	putString(m, fieldSealNumber, c.SealNumber)
	putString(m, fieldType, c.Type)

	product := map[string]json.RawMessage{}
	putString(product, fieldName, c.Product.Name)
	putMeasure(product, fieldDensity, c.Product.Density)
	if len(product) > 0 {
		m[fieldProduct] = mustJSON(product)
	}

	quantity := map[string]json.RawMessage{}
	putMeasure(quantity, fieldLiters, c.Quantity.Liters)
	putMeasure(quantity, fieldGallons, c.Quantity.Gallons)
	putMeasure(quantity, fieldKilograms, c.Quantity.Kilograms)
	if len(quantity) > 0 {
		m[fieldQuantity] = mustJSON(quantity)
	}
	return m
}

func putString(m map[string]json.RawMessage, key, value string) {
	if value != "" {
		m[key] = mustJSON(value)
	}
}

func putOptional(m map[string]json.RawMessage, key string, value *string) {
	if value != nil {
		putString(m, key, *value)
	}
}

func putMeasure(m map[string]json.RawMessage, key string, value *float64) {
	if value != nil {
		m[key] = mustJSON(*value)
	}
}
