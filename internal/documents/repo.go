package documents

import (
	"context"
	"time"

	"exportdocs-backend/internal/bol"
)

// DefaultListLimit is the page size ListByClient uses when limit <= 0.
const DefaultListLimit = 50

// Repo persists documents. Create must reject a second BOL row with the
// same bol number with ErrDuplicateKey.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	// UpdateBol replaces the structured data of a BOL document if it is
	// still at version; otherwise it returns ErrStaleWrite.
	UpdateBol(ctx context.Context, id string, data bol.Data, version int64, updatedAt time.Time) error
	FindBolByNumber(ctx context.Context, bolNumber string) (Document, error)
	// ListByClient pages the client's documents newest first.
	ListByClient(ctx context.Context, clientID string, limit, offset int) ([]Document, error)
	// ListFileIDs returns every referenced blob id.
	ListFileIDs(ctx context.Context) ([]string, error)
}
