package regen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"exportdocs-backend/internal/bol"
	"exportdocs-backend/internal/documents"
	"exportdocs-backend/internal/extract"
	"exportdocs-backend/internal/shared/metrics"
	"exportdocs-backend/internal/shared/storage/blob"
	"exportdocs-backend/internal/shared/telemetry"
)

var ErrUnsupportedSource = errors.New("source document is not a pdf")

const (
	colorValue = "#000000"
	colorDebug = "#FF0000"
)

var disableConfigDir sync.Once

// DocumentSource loads documents for regeneration.
type DocumentSource interface {
	Get(ctx context.Context, id string) (documents.Document, error)
}

// Request tunes one regeneration. Overrides replace layout placements by
// field name.
type Request struct {
	Overrides map[string]Placement
	Debug     bool
}

// Artifact is a regenerated PDF stored as a new blob.
type Artifact struct {
	DocumentID string
	FileID     string
	SizeBytes  int64
	Stamps     int
	// Rendered is true when the base was a fresh blank PDF because the
	// source upload was not a PDF.
	Rendered bool
}

// Engine stamps current BOL values onto the original PDF, or onto blank
// pages when the BOL arrived as text or an image.
type Engine struct {
	Documents DocumentSource
	Store     blob.Store
	Layout    Layout
}

func NewEngine(docs DocumentSource, store blob.Store, layout Layout) *Engine {
	disableConfigDir.Do(api.DisableConfigDir)
	return &Engine{Documents: docs, Store: store, Layout: layout}
}

// stamp is one text placement.
type stamp struct {
	field string
	text  string
	at    Placement
	size  float64
	color string
}

// Regenerate writes a new PDF and never touches the document record.
func (e *Engine) Regenerate(ctx context.Context, documentID string, req Request) (Artifact, error) {
	doc, err := e.Documents.Get(ctx, documentID)
	if err != nil {
		return Artifact{}, err
	}
	if doc.Type != documents.TypeBOL || doc.Bol == nil {
		return Artifact{}, fmt.Errorf("%w: %s", documents.ErrNotBol, doc.ID)
	}
	layout, err := e.Layout.With(req.Overrides)
	if err != nil {
		return Artifact{}, err
	}

	source, rendered, err := e.readSource(ctx, doc, layout)
	if err != nil {
		return Artifact{}, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pages, err := api.PageCount(bytes.NewReader(source), conf)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}

	stamps := planStamps(*doc.Bol, layout, req.Debug)
	out := source
	applied := 0
	for _, s := range stamps {
		if s.at.Page > pages {
			telemetry.Warn("regen.placement_skipped", map[string]any{
				"document_id": doc.ID,
				"field":       s.field,
				"page":        s.at.Page,
				"page_count":  pages,
			})
			continue
		}
		out, err = applyStamp(out, s, conf)
		if err != nil {
			return Artifact{}, fmt.Errorf("stamp %s: %w", s.field, err)
		}
		applied++
	}

	obj, err := e.Store.Put(ctx, bytes.NewReader(out), extract.MimePDF)
	if err != nil {
		return Artifact{}, fmt.Errorf("store artifact: %w", err)
	}
	metrics.IncRegeneration()
	telemetry.Info("regen.complete", map[string]any{
		"document_id": doc.ID,
		"artifact_id": obj.FileID,
		"size_bytes":  obj.SizeBytes,
		"stamps":      applied,
		"debug":       req.Debug,
		"rendered":    rendered,
		"request_id":  telemetry.RequestIDFromContext(ctx),
	})
	return Artifact{DocumentID: doc.ID, FileID: obj.FileID, SizeBytes: obj.SizeBytes, Stamps: applied, Rendered: rendered}, nil
}

// readSource returns the uploaded PDF, or blank pages covering the layout
// when the upload was anything else. A stored file that claims to be a PDF
// but is not one is ErrUnsupportedSource.
func (e *Engine) readSource(ctx context.Context, doc documents.Document, layout Layout) ([]byte, bool, error) {
	rc, err := e.Store.Open(ctx, doc.FileID)
	if err != nil {
		return nil, false, fmt.Errorf("open source %s: %w", doc.FileID, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("read source %s: %w", doc.FileID, err)
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return data, false, nil
	}
	if extract.NormalizeContentType(doc.ContentType, doc.FileName, data) == extract.MimePDF {
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedSource, doc.ContentType)
	}
	blank, err := blankPDF(layout.lastPage())
	if err != nil {
		return nil, false, err
	}
	return blank, true, nil
}

// planStamps lists stamps in a stable order: scalar fields by name, then
// container rows top to bottom.
func planStamps(data bol.Data, layout Layout, debug bool) []stamp {
	values := fieldValues(data)
	names := make([]string, 0, len(values))
	for name := range values {
		if _, ok := layout.Fields[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []stamp
	for _, name := range names {
		p := layout.Fields[name]
		out = append(out, valueStamps(name, values[name], p, layout.fontSize(p), debug)...)
	}

	if p, ok := layout.Fields["containers"]; ok {
		size := layout.fontSize(p)
		for i, c := range data.Containers {
			row := p
			row.Y = p.Y - float64(i)*layout.ContainerLineHeight
			if row.Y < 0 {
				break
			}
			field := "containers[" + strconv.Itoa(i) + "]"
			out = append(out, valueStamps(field, containerLine(c), row, size, debug)...)
		}
	}
	return out
}

func valueStamps(field, text string, p Placement, size float64, debug bool) []stamp {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	out := []stamp{{field: field, text: text, at: p, size: size, color: colorValue}}
	if debug {
		label := p
		label.Y = p.Y + size + 1
		out = append(out, stamp{
			field: field + ".label",
			text:  fmt.Sprintf("%s (%s, %s)", field, formatPoint(p.X), formatPoint(p.Y)),
			at:    label,
			size:  6,
			color: colorDebug,
		})
	}
	return out
}

func fieldValues(d bol.Data) map[string]string {
	values := map[string]string{
		"bolNumber":       d.BolNumber,
		"portOfLoading":   d.PortOfLoading,
		"portOfDischarge": d.PortOfDischarge,
	}
	put := func(name string, v *string) {
		if v != nil {
			values[name] = *v
		}
	}
	put("bookingNumber", d.BookingNumber)
	put("carrierReference", d.CarrierReference)
	put("vessel", d.Vessel)
	put("voyage", d.Voyage)
	if d.DateOfIssue != nil {
		values["dateOfIssue"] = d.DateOfIssue.Value
	}
	return values
}

func containerLine(c bol.Container) string {
	parts := []string{c.Number, c.SealNumber, c.Type, c.Product.Name}
	for _, q := range []struct {
		v    *float64
		unit string
	}{
		{c.Quantity.Liters, "L"},
		{c.Quantity.Gallons, "GAL"},
		{c.Quantity.Kilograms, "KG"},
	} {
		if q.v != nil {
			parts = append(parts, formatPoint(*q.v)+" "+q.unit)
		}
	}
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "  ")
}

func applyStamp(pdf []byte, s stamp, conf *model.Configuration) ([]byte, error) {
	desc := fmt.Sprintf(
		"fontname:Helvetica, points:%d, position:bl, offset:%s %s, scalefactor:1 abs, rotation:0, fillcolor:%s, opacity:1",
		fontPoints(s.size), formatPoint(s.at.X), formatPoint(s.at.Y), s.color,
	)
	wm, err := api.TextWatermark(s.text, desc, true, false, types.POINTS)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	pages := []string{strconv.Itoa(s.at.Page)}
	if err := api.AddWatermarks(bytes.NewReader(pdf), &buf, pages, wm, conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fontPoints rounds to the whole point sizes the stamp description accepts.
func fontPoints(size float64) int {
	if n := int(math.Round(size)); n > 0 {
		return n
	}
	return 1
}

func formatPoint(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
