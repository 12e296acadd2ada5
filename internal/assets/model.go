package assets

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies a reusable stamping asset.
type Kind string

const (
	KindSignature  Kind = "signature"
	KindNotarySeal Kind = "notary_seal"
	KindLetterhead Kind = "letterhead"
	KindOther      Kind = "other"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSignature, KindNotarySeal, KindLetterhead, KindOther:
		return k, nil
	case "":
		return KindOther, nil
	default:
		return "", fmt.Errorf("%w: unknown asset kind %q", ErrInvalidInput, s)
	}
}

type Asset struct {
	ID          string
	Name        string
	Kind        Kind
	FileID      string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
