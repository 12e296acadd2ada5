package bol

import "encoding/json"

// RawFields is the untyped key/value output of an extraction call.
type RawFields map[string]json.RawMessage

// Data is the canonical structured record of a bill of lading.
type Data struct {
	BolNumber        string      `json:"bolNumber"`
	BookingNumber    *string     `json:"bookingNumber,omitempty"`
	CarrierReference *string     `json:"carrierReference,omitempty"`
	DateOfIssue      *Date       `json:"dateOfIssue,omitempty"`
	Vessel           *string     `json:"vessel,omitempty"`
	Voyage           *string     `json:"voyage,omitempty"`
	PortOfLoading    string      `json:"portOfLoading"`
	PortOfDischarge  string      `json:"portOfDischarge"`
	Containers       []Container `json:"containers"`
	Overflow         []Extra     `json:"overflow,omitempty"`
}

// Date is a coerced calendar date. Value is YYYY-MM-DD when Validated and
// the original extracted text otherwise.
type Date struct {
	Value     string `json:"value"`
	Validated bool   `json:"validated"`
}

// Container is one line item of the bill of lading.
type Container struct {
	Number     string   `json:"number"`
	SealNumber string   `json:"sealNumber"`
	Type       string   `json:"type"`
	Product    Product  `json:"product"`
	Quantity   Quantity `json:"quantity"`
}

type Product struct {
	Name    string   `json:"name"`
	Density *float64 `json:"density,omitempty"`
}

// Quantity holds independently measured amounts. A nil unit was not
// extracted; zero is a measured value.
type Quantity struct {
	Liters    *float64 `json:"liters,omitempty"`
	Gallons   *float64 `json:"gallons,omitempty"`
	Kilograms *float64 `json:"kilograms,omitempty"`
}

// ExtraKind tags the payload carried by an Extra.
type ExtraKind string

const (
	ExtraText         ExtraKind = "text"
	ExtraNumber       ExtraKind = "number"
	ExtraBool         ExtraKind = "bool"
	ExtraUnstructured ExtraKind = "unstructured"
)

// Extra is an extracted field with no canonical home. Exactly one payload is
// set, selected by Kind.
type Extra struct {
	Key    string          `json:"key"`
	Kind   ExtraKind       `json:"kind"`
	Text   *string         `json:"text,omitempty"`
	Number *float64        `json:"number,omitempty"`
	Bool   *bool           `json:"bool,omitempty"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// Lookup returns the overflow entry stored under key.
func (d Data) Lookup(key string) (Extra, bool) {
	for _, e := range d.Overflow {
		if e.Key == key {
			return e, true
		}
	}
	return Extra{}, false
}
