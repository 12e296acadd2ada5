package clients

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps clients in process memory.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Client
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Client)}
}

func (r *MemoryRepo) Create(ctx context.Context, client Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rifTakenLocked(client.RIF, client.ID) {
		return ErrDuplicateRIF
	}
	r.data[client.ID] = cloneClient(client)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Client, error) {
	if err := ctx.Err(); err != nil {
		return Client{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.data[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return cloneClient(client), nil
}

// List returns clients ordered by name.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Client, 0, len(r.data))
	for _, c := range r.data {
		out = append(out, cloneClient(c))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Client{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) Update(ctx context.Context, client Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[client.ID]
	if !ok {
		return ErrNotFound
	}
	if r.rifTakenLocked(client.RIF, client.ID) {
		return ErrDuplicateRIF
	}
	client.CreatedAt = existing.CreatedAt
	client.LastDocumentDate = existing.LastDocumentDate
	r.data[client.ID] = cloneClient(client)
	return nil
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

func (r *MemoryRepo) TouchLastDocument(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	if client.LastDocumentDate == nil || at.After(*client.LastDocumentDate) {
		t := at
		client.LastDocumentDate = &t
		r.data[id] = client
	}
	return nil
}

func (r *MemoryRepo) rifTakenLocked(rif, selfID string) bool {
	for id, c := range r.data {
		if id != selfID && c.RIF == rif {
			return true
		}
	}
	return false
}

func cloneClient(c Client) Client {
	c.RequiredDocuments = append([]string(nil), c.RequiredDocuments...)
	if c.LastDocumentDate != nil {
		t := *c.LastDocumentDate
		c.LastDocumentDate = &t
	}
	return c
}

var _ Repo = (*MemoryRepo)(nil)
