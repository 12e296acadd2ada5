package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"exportdocs-backend/internal/shared/storage/blob"
)

// Store implements blob.Store on the local filesystem. Objects live at
// baseDir/<id[:2]>/<id>.
type Store struct {
	baseDir string
}

// New creates a local blob store rooted at baseDir.
func New(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Put writes r to a temp file and renames it into place.
func (s *Store) Put(ctx context.Context, r io.Reader, contentType string) (blob.Object, error) {
	if err := ctx.Err(); err != nil {
		return blob.Object{}, err
	}
	data, id, err := blob.Spool(r)
	if err != nil {
		return blob.Object{}, err
	}
	obj := blob.Object{FileID: id, SizeBytes: int64(len(data)), ContentType: contentType}

	fullPath := s.path(id)
	if _, err := os.Stat(fullPath); err == nil {
		return obj, nil
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return blob.Object{}, fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), id+".*.tmp")
	if err != nil {
		return blob.Object{}, fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return blob.Object{}, fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return blob.Object{}, fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return blob.Object{}, fmt.Errorf("rename: %w", err)
	}
	return obj, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := blob.CheckFileID(fileID); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(fileID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, blob.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes a stored object.
func (s *Store) Delete(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := blob.CheckFileID(fileID); err != nil {
		return err
	}
	if err := os.Remove(s.path(fileID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// List walks the store and reports every object id.
func (s *Store) List(ctx context.Context, fn func(fileID string) error) error {
	return filepath.WalkDir(s.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !blob.ValidFileID(name) {
			return nil
		}
		return fn(name)
	})
}

func (s *Store) path(fileID string) string {
	return filepath.Join(s.baseDir, fileID[:2], fileID)
}

var _ blob.Store = (*Store)(nil)
