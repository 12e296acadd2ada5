package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"exportdocs-backend/internal/shared/storage/blob"
)

func TestPutOpenRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	obj, err := store.Put(ctx, strings.NewReader("%PDF-1.4 body"), "application/pdf")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.SizeBytes != int64(len("%PDF-1.4 body")) {
		t.Fatalf("unexpected size %d", obj.SizeBytes)
	}

	rc, err := store.Open(ctx, obj.FileID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "%PDF-1.4 body" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestPutIsIdempotentForSameContent(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)
	ctx := context.Background()

	first, err := store.Put(ctx, strings.NewReader("same"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	second, err := store.Put(ctx, strings.NewReader("same"), "text/plain")
	if err != nil {
		t.Fatalf("Put again: %v", err)
	}
	if first.FileID != second.FileID {
		t.Fatalf("expected same id, got %s and %s", first.FileID, second.FileID)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, first.FileID[:2]))
	if len(entries) != 1 {
		t.Fatalf("expected a single stored file, got %d", len(entries))
	}
}

func TestOpenMissingAndDeleteIdempotent(t *testing.T) {
	store, _ := New(t.TempDir())
	ctx := context.Background()
	missing := strings.Repeat("b", 64)

	if _, err := store.Open(ctx, missing); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, missing); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, err := store.Open(ctx, "../../etc/passwd"); !errors.Is(err, blob.ErrInvalidFileID) {
		t.Fatalf("expected ErrInvalidFileID, got %v", err)
	}
}

func TestListReportsStoredIDs(t *testing.T) {
	store, _ := New(t.TempDir())
	ctx := context.Background()

	a, _ := store.Put(ctx, strings.NewReader("a"), "text/plain")
	b, _ := store.Put(ctx, strings.NewReader("b"), "text/plain")

	seen := map[string]bool{}
	if err := store.List(ctx, func(id string) error {
		seen[id] = true
		return nil
	}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !seen[a.FileID] || !seen[b.FileID] || len(seen) != 2 {
		t.Fatalf("unexpected ids: %v", seen)
	}

	if err := store.Delete(ctx, a.FileID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	count := 0
	_ = store.List(ctx, func(string) error { count++; return nil })
	if count != 1 {
		t.Fatalf("expected 1 id after delete, got %d", count)
	}
}
