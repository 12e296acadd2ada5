package clients

import (
	"strings"
	"time"
)

// Client is a business entity owning zero or more documents. RIF is the
// government tax id and the uniqueness key.
type Client struct {
	ID                string
	Name              string
	RIF               string
	Address           string
	Contact           string
	RequiredDocuments []string
	LastDocumentDate  *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NormalizeRIF uppercases and trims a tax id.
func NormalizeRIF(rif string) string {
	return strings.ToUpper(strings.TrimSpace(rif))
}
