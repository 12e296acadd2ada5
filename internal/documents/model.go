package documents

import (
	"fmt"
	"strings"
	"time"

	"exportdocs-backend/internal/bol"
)

// Type classifies an uploaded document. Only BOL carries structured data.
type Type string

const (
	TypeBOL           Type = "BOL"
	TypePL            Type = "PL"
	TypeCOO           Type = "COO"
	TypeInvoice       Type = "INVOICE"
	TypeInvoiceExport Type = "INVOICE_EXPORT"
	TypeCOA           Type = "COA"
	TypeSED           Type = "SED"
	TypeDataSheet     Type = "DATA_SHEET"
	TypeSafetySheet   Type = "SAFETY_SHEET"
)

var knownTypes = []Type{
	TypeBOL, TypePL, TypeCOO, TypeInvoice, TypeInvoiceExport,
	TypeCOA, TypeSED, TypeDataSheet, TypeSafetySheet,
}

// ParseType accepts any casing of a known type name.
func ParseType(s string) (Type, error) {
	candidate := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range knownTypes {
		if t == candidate {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, s)
}

// Document references one stored file. Bol is set only for TypeBOL.
type Document struct {
	ID          string
	Type        Type
	ClientID    string
	FileID      string
	FileName    string
	ContentType string
	Bol         *bol.Data
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Version increases on every bol data write; UpdateBol only succeeds
	// against the version that was read.
	Version int64
}

// BolNumber returns the BOL number, or "" for other types.
func (d Document) BolNumber() string {
	if d.Bol == nil {
		return ""
	}
	return d.Bol.BolNumber
}
