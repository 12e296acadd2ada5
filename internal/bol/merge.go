package bol

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gowebpki/jcs"
)

// Merge overlays incoming onto existing. Present incoming values win, absent
// ones never erase what existing already knows. Containers are replaced as a
// whole when incoming carries any.
func Merge(existing, incoming Data) Data {
	out := existing
	if incoming.BolNumber != "" {
		out.BolNumber = incoming.BolNumber
	}
	out.BookingNumber = overlay(existing.BookingNumber, incoming.BookingNumber)
	out.CarrierReference = overlay(existing.CarrierReference, incoming.CarrierReference)
	out.Vessel = overlay(existing.Vessel, incoming.Vessel)
	out.Voyage = overlay(existing.Voyage, incoming.Voyage)
	if incoming.DateOfIssue != nil {
		date := *incoming.DateOfIssue
		out.DateOfIssue = &date
	}
	if incoming.PortOfLoading != "" {
		out.PortOfLoading = incoming.PortOfLoading
	}
	if incoming.PortOfDischarge != "" {
		out.PortOfDischarge = incoming.PortOfDischarge
	}
	if len(incoming.Containers) > 0 {
		out.Containers = append([]Container(nil), incoming.Containers...)
	}
	if out.Containers == nil {
		out.Containers = []Container{}
	}
	out.Overflow = mergeOverflow(existing.Overflow, incoming.Overflow)
	return out
}

func overlay(existing, incoming *string) *string {
	if incoming != nil {
		v := *incoming
		return &v
	}
	return existing
}

func mergeOverflow(existing, incoming []Extra) []Extra {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}
	byKey := make(map[string]Extra, len(existing)+len(incoming))
	for _, e := range existing {
		byKey[e.Key] = e
	}
	for _, e := range incoming {
		byKey[e.Key] = e
	}
	out := make([]Extra, 0, len(byKey))
	for _, e := range byKey {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Fingerprint hashes the canonical (RFC 8785) JSON form of d.
func Fingerprint(d Data) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal bol data: %w", err)
	}
	canonical, err := jcs.Transform(b)
	if err != nil {
		return "", fmt.Errorf("canonicalize bol data: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Validate reports whether d can be persisted as a BOL.
func Validate(d Data) error {
	if strings.TrimSpace(d.BolNumber) == "" {
		return ErrMissingBolNumber
	}
	return nil
}
