package regen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// blankPDF creates empty letter pages. It is the base for BOLs whose source
// upload was text or an image. Pages missing from the description are
// created blank, so only the last one is named.
func blankPDF(pages int) ([]byte, error) {
	if pages < 1 {
		pages = 1
	}
	desc := fmt.Sprintf(`{"paper": "Letter", "pages": {"%d": {}}}`, pages)
	var buf bytes.Buffer
	if err := api.Create(nil, strings.NewReader(desc), &buf, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("create blank pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// lastPage is the highest page any placement targets.
func (l Layout) lastPage() int {
	n := 1
	for _, p := range l.Fields {
		if p.Page > n {
			n = p.Page
		}
	}
	return n
}
