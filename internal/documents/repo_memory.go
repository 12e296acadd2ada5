package documents

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"exportdocs-backend/internal/bol"
)

// MemoryRepo keeps documents in process memory. The bol number index plays
// the role of the storage uniqueness constraint.
type MemoryRepo struct {
	mu    sync.RWMutex
	data  map[string]Document
	byBol map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data:  make(map[string]Document),
		byBol: make(map[string]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[doc.ID]; exists {
		return ErrDuplicateKey
	}
	if doc.Type == TypeBOL {
		number := doc.BolNumber()
		if _, taken := r.byBol[number]; taken {
			return ErrDuplicateKey
		}
		r.byBol[number] = doc.ID
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	r.data[doc.ID] = cloneDocument(doc)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (r *MemoryRepo) UpdateBol(ctx context.Context, id string, data bol.Data, version int64, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok || doc.Type != TypeBOL {
		return ErrNotFound
	}
	if doc.Version != version {
		return ErrStaleWrite
	}
	doc.Bol = cloneBol(&data)
	doc.UpdatedAt = updatedAt
	doc.Version++
	r.data[id] = doc
	return nil
}

func (r *MemoryRepo) FindBolByNumber(ctx context.Context, bolNumber string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byBol[bolNumber]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(r.data[id]), nil
}

// ListByClient returns the client's documents, newest first.
func (r *MemoryRepo) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.data {
		if doc.ClientID == clientID {
			out = append(out, cloneDocument(doc))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Document{}, nil
	}
	end := len(out)
	if offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) ListFileIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.data))
	out := make([]string, 0, len(r.data))
	for _, doc := range r.data {
		if _, dup := seen[doc.FileID]; dup {
			continue
		}
		seen[doc.FileID] = struct{}{}
		out = append(out, doc.FileID)
	}
	sort.Strings(out)
	return out, nil
}

func cloneDocument(doc Document) Document {
	doc.Bol = cloneBol(doc.Bol)
	return doc
}

// cloneBol deep-copies through JSON so callers never share pointers with
// the stored record.
func cloneBol(data *bol.Data) *bol.Data {
	if data == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		cp := *data
		return &cp
	}
	var out bol.Data
	if err := json.Unmarshal(b, &out); err != nil {
		cp := *data
		return &cp
	}
	if out.Containers == nil {
		out.Containers = []bol.Container{}
	}
	return &out
}

var _ Repo = (*MemoryRepo)(nil)
