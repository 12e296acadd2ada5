package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/shared/storage/blob"
	"exportdocs-backend/internal/shared/storage/blob/local"
)

func newTestService(t *testing.T) (*Service, *local.Store) {
	t.Helper()
	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	return NewService(NewMemoryRepo(), store), store
}

func TestUploadOpenDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	asset, err := svc.Upload(ctx, UploadInput{Name: "Firma", Kind: "Signature", Body: strings.NewReader("signature-bytes")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if asset.Kind != KindSignature || asset.SizeBytes != int64(len("signature-bytes")) || !blob.ValidFileID(asset.FileID) {
		t.Fatalf("unexpected asset: %+v", asset)
	}

	_, rc, err := svc.Open(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != "signature-bytes" {
		t.Fatalf("unexpected content %q", got)
	}

	if err := svc.Delete(ctx, asset.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, asset.FileID); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected blob to be deleted, got %v", err)
	}
	if err := svc.Delete(ctx, asset.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteKeepsSharedBlob(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Upload(ctx, UploadInput{Name: "a", Body: strings.NewReader("same")})
	b, _ := svc.Upload(ctx, UploadInput{Name: "b", Body: strings.NewReader("same")})
	if a.FileID != b.FileID {
		t.Fatalf("identical content should share a blob")
	}
	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rc, err := store.Open(ctx, b.FileID)
	if err != nil {
		t.Fatalf("shared blob should remain: %v", err)
	}
	rc.Close()
}

type staticRefs []string

func (r staticRefs) ListFileIDs(context.Context) ([]string, error) { return r, nil }

func TestDeleteKeepsBlobReferencedElsewhere(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	asset, err := svc.Upload(ctx, UploadInput{Name: "letterhead", Kind: KindLetterhead, Body: strings.NewReader("page")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	svc.Refs = []blob.Referencer{staticRefs{asset.FileID}}
	if err := svc.Delete(ctx, asset.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rc, err := store.Open(ctx, asset.FileID)
	if err != nil {
		t.Fatalf("blob referenced by a document should remain: %v", err)
	}
	rc.Close()
}

type failingDeleteStore struct{ blob.Store }

func (failingDeleteStore) Delete(context.Context, string) error { return errors.New("denied") }

func TestDeleteSwallowsBlobFailure(t *testing.T) {
	svc, store := newTestService(t)
	svc.Store = failingDeleteStore{Store: store}
	asset, err := svc.Upload(context.Background(), UploadInput{Name: "seal", Kind: KindNotarySeal, Body: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := svc.Delete(context.Background(), asset.ID); err != nil {
		t.Fatalf("blob delete failure must not surface: %v", err)
	}
}

func TestUploadValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Upload(ctx, UploadInput{Body: strings.NewReader("x")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without name, got %v", err)
	}
	if _, err := svc.Upload(ctx, UploadInput{Name: "a", Kind: "stamp", Body: strings.NewReader("x")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown kind, got %v", err)
	}
	if _, err := svc.Upload(ctx, UploadInput{Name: "a", Body: strings.NewReader("")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty file, got %v", err)
	}
}

func TestHandlerUploadAndList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("kind", "letterhead")
	fw, _ := writer.CreateFormFile("file", "head.png")
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assets", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"contentType":"image/png"`) {
		t.Fatalf("expected sniffed content type, got %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"name":"head.png"`) {
		t.Fatalf("unexpected list %d: %s", resp.Code, resp.Body.String())
	}
}
