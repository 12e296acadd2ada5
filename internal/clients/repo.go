package clients

import (
	"context"
	"time"
)

// Repo persists clients.
type Repo interface {
	Create(ctx context.Context, client Client) error
	Get(ctx context.Context, id string) (Client, error)
	List(ctx context.Context, limit, offset int) ([]Client, error)
	Update(ctx context.Context, client Client) error
	Delete(ctx context.Context, id string) error
	// TouchLastDocument moves lastDocumentDate forward to at; it never moves it back.
	TouchLastDocument(ctx context.Context, id string, at time.Time) error
}
