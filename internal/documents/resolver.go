package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Action is the outcome of resolving a bol number.
type Action string

const (
	ActionCreate   Action = "create"
	ActionPatch    Action = "patch"
	ActionConflict Action = "conflict"
)

// Resolution says what to do with an incoming extraction.
type Resolution struct {
	Action           Action
	DocumentID       string
	ExistingClientID string
}

// Resolver decides between creating and patching. It only reads; the
// unique index stays the final arbiter under concurrency.
type Resolver struct {
	Repo Repo
}

func (r *Resolver) Resolve(ctx context.Context, bolNumber, clientID string) (Resolution, error) {
	if strings.TrimSpace(bolNumber) == "" {
		return Resolution{}, fmt.Errorf("%w: bol number is required", ErrInvalidInput)
	}
	existing, err := r.Repo.FindBolByNumber(ctx, bolNumber)
	switch {
	case errors.Is(err, ErrNotFound):
		return Resolution{Action: ActionCreate}, nil
	case err != nil:
		return Resolution{}, fmt.Errorf("resolve bol %s: %w", bolNumber, err)
	}
	if existing.ClientID == clientID {
		return Resolution{Action: ActionPatch, DocumentID: existing.ID, ExistingClientID: existing.ClientID}, nil
	}
	return Resolution{Action: ActionConflict, DocumentID: existing.ID, ExistingClientID: existing.ClientID}, nil
}
