package regen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"exportdocs-backend/internal/bol"
	"exportdocs-backend/internal/documents"
	"exportdocs-backend/internal/shared/storage/blob/local"
)

// minimalPDF builds a one-page PDF with a correct xref table.
func minimalPDF() []byte {
	content := "0 0 m 100 100 l S"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objects))
	for i, obj := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func relaxedConf() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func strPtr(s string) *string { return &s }

func numPtr(f float64) *float64 { return &f }

type fixture struct {
	engine *Engine
	repo   *documents.MemoryRepo
	store  *local.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	repo := documents.NewMemoryRepo()
	return fixture{engine: NewEngine(repo, store, DefaultLayout()), repo: repo, store: store}
}

func (f fixture) addDocument(t *testing.T, id string, docType documents.Type, contentType string, body []byte, data *bol.Data) documents.Document {
	t.Helper()
	obj, err := f.store.Put(context.Background(), bytes.NewReader(body), contentType)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	now := time.Now().UTC()
	doc := documents.Document{
		ID:          id,
		Type:        docType,
		ClientID:    "client-a",
		FileID:      obj.FileID,
		FileName:    id + ".pdf",
		ContentType: contentType,
		Bol:         data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return doc
}

func sampleBol() *bol.Data {
	date := bol.Date{Value: "2025-03-15", Validated: true}
	return &bol.Data{
		BolNumber:        "HLCUBSC250265371",
		CarrierReference: strPtr("18763708"),
		DateOfIssue:      &date,
		Vessel:           strPtr("MSC ALINA"),
		PortOfLoading:    "Jose",
		PortOfDischarge:  "Houston",
		Containers: []bol.Container{
			{Number: "HLXU1234567", SealNumber: "S1", Product: bol.Product{Name: "Methanol"}, Quantity: bol.Quantity{Liters: numPtr(20000)}},
			{Number: "HLXU7654321", Quantity: bol.Quantity{Kilograms: numPtr(0)}},
		},
	}
}

func TestRegenerateStampsNewArtifact(t *testing.T) {
	f := newFixture(t)
	source := minimalPDF()
	doc := f.addDocument(t, "doc-1", documents.TypeBOL, "application/pdf", source, sampleBol())

	artifact, err := f.engine.Regenerate(context.Background(), doc.ID, Request{Debug: true})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if artifact.FileID == doc.FileID {
		t.Fatalf("artifact must be a new blob")
	}
	if artifact.Stamps == 0 {
		t.Fatalf("expected stamps to be applied")
	}

	rc, err := f.store.Open(context.Background(), artifact.FileID)
	if err != nil {
		t.Fatalf("Open artifact: %v", err)
	}
	defer rc.Close()
	out, _ := io.ReadAll(rc)
	if !bytes.HasPrefix(out, []byte("%PDF-")) || int64(len(out)) != artifact.SizeBytes {
		t.Fatalf("unexpected artifact: %d bytes", len(out))
	}

	after, _ := f.repo.Get(context.Background(), doc.ID)
	if after.FileID != doc.FileID || !after.UpdatedAt.Equal(doc.UpdatedAt) {
		t.Fatalf("regeneration must not mutate the document")
	}
}

func TestRegenerateRejectsNonBolAndBrokenPDF(t *testing.T) {
	f := newFixture(t)
	coa := f.addDocument(t, "coa-1", documents.TypeCOA, "application/pdf", minimalPDF(), nil)
	broken := f.addDocument(t, "broken-1", documents.TypeBOL, "application/pdf", []byte("not really a pdf"), sampleBol())

	if _, err := f.engine.Regenerate(context.Background(), coa.ID, Request{}); !errors.Is(err, documents.ErrNotBol) {
		t.Fatalf("expected ErrNotBol, got %v", err)
	}
	if _, err := f.engine.Regenerate(context.Background(), broken.ID, Request{}); !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource, got %v", err)
	}
	if _, err := f.engine.Regenerate(context.Background(), "missing", Request{}); !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegenerateRendersFreshPDFForNonPDFSources(t *testing.T) {
	f := newFixture(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	sources := []struct {
		id          string
		contentType string
		body        []byte
	}{
		{"txt-1", "text/plain", []byte("BILL OF LADING HLCUBSC250265371")},
		{"img-1", "image/png", png},
	}
	for _, src := range sources {
		t.Run(src.id, func(t *testing.T) {
			doc := f.addDocument(t, src.id, documents.TypeBOL, src.contentType, src.body, sampleBol())

			artifact, err := f.engine.Regenerate(context.Background(), doc.ID, Request{})
			if err != nil {
				t.Fatalf("Regenerate: %v", err)
			}
			if !artifact.Rendered || artifact.Stamps == 0 {
				t.Fatalf("expected stamps on a rendered base, got %+v", artifact)
			}

			rc, err := f.store.Open(context.Background(), artifact.FileID)
			if err != nil {
				t.Fatalf("Open artifact: %v", err)
			}
			defer rc.Close()
			out, _ := io.ReadAll(rc)
			if !bytes.HasPrefix(out, []byte("%PDF-")) {
				t.Fatalf("artifact is not a pdf")
			}
			pages, err := api.PageCount(bytes.NewReader(out), relaxedConf())
			if err != nil || pages != 1 {
				t.Fatalf("expected one page, got %d (%v)", pages, err)
			}
		})
	}
}

func TestBlankPDFCoversLayoutPages(t *testing.T) {
	disableConfigDir.Do(api.DisableConfigDir)
	layout := DefaultLayout()
	layout.Fields["remarks"] = Placement{Page: 3, X: 60, Y: 100}

	blank, err := blankPDF(layout.lastPage())
	if err != nil {
		t.Fatalf("blankPDF: %v", err)
	}
	pages, err := api.PageCount(bytes.NewReader(blank), relaxedConf())
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}
}

func TestPlanStampsDebugLabels(t *testing.T) {
	layout := DefaultLayout()

	plain := planStamps(*sampleBol(), layout, false)
	for _, s := range plain {
		if s.color != colorValue {
			t.Fatalf("production rendering must not draw labels: %+v", s)
		}
	}

	debug := planStamps(*sampleBol(), layout, true)
	if len(debug) != 2*len(plain) {
		t.Fatalf("expected one label per value, got %d stamps for %d values", len(debug), len(plain))
	}
	var label *stamp
	for i := range debug {
		if debug[i].field == "carrierReference.label" {
			label = &debug[i]
		}
	}
	if label == nil || label.color != colorDebug || !strings.Contains(label.text, "carrierReference (430, 734)") {
		t.Fatalf("unexpected debug label: %+v", label)
	}
}

func TestPlanStampsContainerRows(t *testing.T) {
	stamps := planStamps(*sampleBol(), DefaultLayout(), false)
	var rows []stamp
	for _, s := range stamps {
		if strings.HasPrefix(s.field, "containers[") {
			rows = append(rows, s)
		}
	}
	if len(rows) != 2 {
		t.Fatalf("expected two container rows, got %d", len(rows))
	}
	if rows[0].text != "HLXU1234567  S1  Methanol  20000 L" {
		t.Fatalf("unexpected first row %q", rows[0].text)
	}
	if rows[1].text != "HLXU7654321  0 KG" || rows[1].at.Y >= rows[0].at.Y {
		t.Fatalf("unexpected second row %+v", rows[1])
	}
}

func TestLayoutOverrides(t *testing.T) {
	layout := DefaultLayout()
	custom, err := layout.With(map[string]Placement{"vessel": {X: 100, Y: 200}})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if got := custom.Fields["vessel"]; got.Page != 1 || got.X != 100 || got.Y != 200 {
		t.Fatalf("unexpected override: %+v", got)
	}
	if layout.Fields["vessel"].X == 100 {
		t.Fatalf("override leaked into the base layout")
	}
	if _, err := layout.With(map[string]Placement{"shipper": {X: 1, Y: 1}}); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout for unknown field, got %v", err)
	}
	if _, err := layout.With(map[string]Placement{"vessel": {X: -1, Y: 1}}); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout for negative x, got %v", err)
	}
}

func TestDebugRequested(t *testing.T) {
	cases := []struct {
		raw   string
		query string
		want  bool
	}{
		{raw: "true", want: true},
		{raw: " true ", want: true},
		{raw: `"true"`, want: false},
		{raw: "1", want: false},
		{raw: "false", want: false},
		{raw: "", want: false},
		{query: "true", want: true},
		{query: "TRUE", want: false},
		{query: "1", want: false},
	}
	for _, tc := range cases {
		if got := debugRequested([]byte(tc.raw), tc.query); got != tc.want {
			t.Fatalf("debugRequested(%q, %q) = %v, want %v", tc.raw, tc.query, got, tc.want)
		}
	}
}

func TestHandlerRegenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	doc := f.addDocument(t, "doc-1", documents.TypeBOL, "application/pdf", minimalPDF(), sampleBol())
	router := gin.New()
	NewHandler(f.engine).RegisterRoutes(router.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID+"/regenerate",
		strings.NewReader(`{"coordinates":{"vessel":{"x":90,"y":600}},"debug":"true"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"artifactId"`) || !strings.Contains(resp.Body.String(), `"rendered":false`) {
		t.Fatalf("unexpected response %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/documents/missing/regenerate", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
