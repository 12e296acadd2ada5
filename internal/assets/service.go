package assets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"exportdocs-backend/internal/shared/metrics"
	"exportdocs-backend/internal/shared/storage/blob"
	"exportdocs-backend/internal/shared/telemetry"
)

type Service struct {
	Repo  Repo
	Store blob.Store
	// Refs are other record sets that may point at an asset's blob.
	Refs  []blob.Referencer
	Now   func() time.Time
	NewID func() string
}

func NewService(repo Repo, store blob.Store) *Service {
	return &Service{
		Repo:  repo,
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

// UploadInput is a new asset file.
type UploadInput struct {
	Name        string
	Kind        Kind
	ContentType string
	Body        io.Reader
}

func (s *Service) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Asset{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	kind, err := ParseKind(string(in.Kind))
	if err != nil {
		return Asset{}, err
	}
	if in.Body == nil {
		return Asset{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	br := bufio.NewReader(in.Body)
	head, _ := br.Peek(512)
	if len(head) == 0 {
		return Asset{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	contentType := strings.TrimSpace(strings.Split(in.ContentType, ";")[0])
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = strings.Split(http.DetectContentType(head), ";")[0]
	}

	obj, err := s.Store.Put(ctx, br, contentType)
	if err != nil {
		if errors.Is(err, blob.ErrTooLarge) {
			return Asset{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return Asset{}, fmt.Errorf("store asset: %w", err)
	}
	asset := Asset{
		ID:          s.NewID(),
		Name:        name,
		Kind:        kind,
		FileID:      obj.FileID,
		ContentType: contentType,
		SizeBytes:   obj.SizeBytes,
		CreatedAt:   s.Now(),
	}
	if err := s.Repo.Create(ctx, asset); err != nil {
		return Asset{}, err
	}
	telemetry.Info("asset.created", map[string]any{
		"asset_id": asset.ID,
		"kind":     string(asset.Kind),
		"file_id":  asset.FileID,
	})
	return asset, nil
}

func (s *Service) List(ctx context.Context) ([]Asset, error) {
	return s.Repo.List(ctx)
}

// Open returns the asset record and a reader over its bytes.
func (s *Service) Open(ctx context.Context, id string) (Asset, io.ReadCloser, error) {
	asset, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Asset{}, nil, err
	}
	rc, err := s.Store.Open(ctx, asset.FileID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return Asset{}, nil, fmt.Errorf("%w: blob %s missing", ErrNotFound, asset.FileID)
		}
		return Asset{}, nil, err
	}
	return asset, rc, nil
}

// Delete removes the record. The blob goes too unless another asset shares
// it; a failed blob delete is logged and left for the sweep.
func (s *Service) Delete(ctx context.Context, id string) error {
	asset, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	shared, err := s.fileShared(ctx, asset.FileID)
	if err != nil || shared {
		return nil
	}
	if err := s.Store.Delete(ctx, asset.FileID); err != nil {
		metrics.IncBlobDeleteFailed()
		telemetry.Warn("blob.delete_failed", map[string]any{
			"asset_id": asset.ID,
			"file_id":  asset.FileID,
			"error":    err.Error(),
		})
	}
	return nil
}

func (s *Service) fileShared(ctx context.Context, fileID string) (bool, error) {
	for _, ref := range append([]blob.Referencer{s.Repo}, s.Refs...) {
		ids, err := ref.ListFileIDs(ctx)
		if err != nil {
			return false, err
		}
		for _, id := range ids {
			if id == fileID {
				return true, nil
			}
		}
	}
	return false, nil
}
