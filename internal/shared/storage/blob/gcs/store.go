package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"exportdocs-backend/internal/shared/storage/blob"
)

// Store implements blob.Store using Google Cloud Storage.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed store. Credentials come from ADC unless opts
// override them.
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}, nil
}

// Put writes the object only if it does not already exist. A failed
// precondition means the same content is already stored.
func (s *Store) Put(ctx context.Context, r io.Reader, contentType string) (blob.Object, error) {
	data, id, err := blob.Spool(r)
	if err != nil {
		return blob.Object{}, err
	}
	obj := blob.Object{FileID: id, SizeBytes: int64(len(data)), ContentType: contentType}
	objectName := objectPath(s.prefix, id)

	w := s.client.Bucket(s.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			return obj, nil
		}
		return blob.Object{}, fmt.Errorf("gcs write %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return obj, nil
		}
		return blob.Object{}, fmt.Errorf("gcs close %s: %w", objectName, err)
	}
	return obj, nil
}

// Open downloads a stored object for reading.
func (s *Store) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if err := blob.CheckFileID(fileID); err != nil {
		return nil, err
	}
	reader, err := s.client.Bucket(s.bucket).Object(objectPath(s.prefix, fileID)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("gcs open %s: %w", fileID, err)
	}
	return reader, nil
}

// Delete removes a stored object.
func (s *Store) Delete(ctx context.Context, fileID string) error {
	if err := blob.CheckFileID(fileID); err != nil {
		return err
	}
	err := s.client.Bucket(s.bucket).Object(objectPath(s.prefix, fileID)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", fileID, err)
	}
	return nil
}

// List iterates objects under the configured prefix.
func (s *Store) List(ctx context.Context, fn func(fileID string) error) error {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gcs list: %w", err)
		}
		id := path.Base(attrs.Name)
		if !blob.ValidFileID(id) {
			continue
		}
		if err := fn(id); err != nil {
			return err
		}
	}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func objectPath(prefix, fileID string) string {
	name := path.Join(fileID[:2], fileID)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

var _ blob.Store = (*Store)(nil)
