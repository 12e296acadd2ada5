package bol

import (
	"fmt"
	"strings"
)

// RepairableFields lists the field paths SetField accepts.
var RepairableFields = []string{
	fieldDateOfIssue,
	fieldCarrierReference,
	fieldBookingNumber,
	fieldVessel,
	fieldVoyage,
	fieldPortOfLoading,
	fieldPortOfDischarge,
}

// SetField returns a copy of d with one field overwritten. dateOfIssue goes
// through the same coercion as Normalize.
func SetField(d Data, path, value string) (Data, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return d, fmt.Errorf("%w: %s", ErrEmptyValue, path)
	}
	out := d
	switch path {
	case fieldDateOfIssue:
		date := CoerceDate(value)
		out.DateOfIssue = &date
	case fieldCarrierReference:
		out.CarrierReference = &value
	case fieldBookingNumber:
		out.BookingNumber = &value
	case fieldVessel:
		out.Vessel = &value
	case fieldVoyage:
		out.Voyage = &value
	case fieldPortOfLoading:
		out.PortOfLoading = value
	case fieldPortOfDischarge:
		out.PortOfDischarge = value
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownField, path)
	}
	return out, nil
}
