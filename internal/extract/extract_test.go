package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"exportdocs-backend/internal/shared/storage/blob/local"
)

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	doc := `<?xml version="1.0"?><w:document xmlns:w="urn:w"><w:body><w:p><w:r><w:t>` + body + `</w:t></w:r></w:p></w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestFromBytesZipDocxNormalizes(t *testing.T) {
	data := buildDOCX(t, "Commercial invoice 0042")
	mime := NormalizeContentType("application/zip", "invoice.docx", data)
	if mime != MimeDOCX {
		t.Fatalf("expected docx mime, got %q", mime)
	}
	text, err := FromBytes(context.Background(), data, mime)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if !strings.Contains(text, "Commercial invoice 0042") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestFromBytesRealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("notes.txt")
	_, _ = w.Write([]byte("hello"))
	_ = zw.Close()

	mime := NormalizeContentType("application/zip", "notes.zip", buf.Bytes())
	_, err := FromBytes(context.Background(), buf.Bytes(), mime)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestNormalizeContentTypeSniffsGenericTypes(t *testing.T) {
	if got := NormalizeContentType("application/octet-stream", "bol.bin", []byte("%PDF-1.4\n")); got != MimePDF {
		t.Fatalf("expected sniffed pdf, got %q", got)
	}
	if got := NormalizeContentType("text/plain; charset=utf-8", "bol.txt", nil); got != "text/plain" {
		t.Fatalf("expected parameters stripped, got %q", got)
	}
}

func TestFromBlobReadsStoredText(t *testing.T) {
	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	ctx := context.Background()
	obj, err := store.Put(ctx, strings.NewReader("BOL HLCUBSC250265371"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	text, err := FromBlob(ctx, store, obj.FileID, "text/plain", "bol.txt")
	if err != nil {
		t.Fatalf("FromBlob: %v", err)
	}
	if text.Content != "BOL HLCUBSC250265371" || text.ContentType != "text/plain" {
		t.Fatalf("unexpected text %+v", text)
	}
}
