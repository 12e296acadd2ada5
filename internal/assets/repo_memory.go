package assets

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Asset
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Asset)}
}

func (r *MemoryRepo) Create(ctx context.Context, asset Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[asset.ID] = asset
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.data[id]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return asset, nil
}

// List returns assets newest first.
func (r *MemoryRepo) List(ctx context.Context) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Asset, 0, len(r.data))
	for _, a := range r.data {
		out = append(out, a)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) ListFileIDs(ctx context.Context) ([]string, error) {
	assets, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(assets))
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		if _, dup := seen[a.FileID]; !dup {
			seen[a.FileID] = struct{}{}
			out = append(out, a.FileID)
		}
	}
	sort.Strings(out)
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
