package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Input carries the editable client fields.
type Input struct {
	Name              string
	RIF               string
	Address           string
	Contact           string
	RequiredDocuments []string
}

type Service struct {
	Repo  Repo
	Now   func() time.Time
	NewID func() string
}

func NewService(repo Repo) *Service {
	return &Service{
		Repo:  repo,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

func (s *Service) Create(ctx context.Context, in Input) (Client, error) {
	if s == nil || s.Repo == nil {
		return Client{}, errors.New("clients service not configured")
	}
	in, err := cleanInput(in)
	if err != nil {
		return Client{}, err
	}
	now := s.Now()
	client := Client{
		ID:                s.NewID(),
		Name:              in.Name,
		RIF:               in.RIF,
		Address:           in.Address,
		Contact:           in.Contact,
		RequiredDocuments: in.RequiredDocuments,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, client); err != nil {
		return Client{}, err
	}
	return client, nil
}

func (s *Service) Get(ctx context.Context, id string) (Client, error) {
	if s == nil || s.Repo == nil {
		return Client{}, errors.New("clients service not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Client{}, fmt.Errorf("%w: client id is required", ErrInvalidInput)
	}
	return s.Repo.Get(ctx, id)
}

// Exists reports whether id names a stored client.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Client, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("clients service not configured")
	}
	return s.Repo.List(ctx, limit, offset)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Client, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Client{}, err
	}
	in, err = cleanInput(in)
	if err != nil {
		return Client{}, err
	}
	existing.Name = in.Name
	existing.RIF = in.RIF
	existing.Address = in.Address
	existing.Contact = in.Contact
	existing.RequiredDocuments = in.RequiredDocuments
	existing.UpdatedAt = s.Now()
	if err := s.Repo.Update(ctx, existing); err != nil {
		return Client{}, err
	}
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.Repo == nil {
		return errors.New("clients service not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: client id is required", ErrInvalidInput)
	}
	return s.Repo.Delete(ctx, id)
}

func (s *Service) TouchLastDocument(ctx context.Context, id string, at time.Time) error {
	if s == nil || s.Repo == nil {
		return errors.New("clients service not configured")
	}
	return s.Repo.TouchLastDocument(ctx, id, at.UTC())
}

func cleanInput(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.RIF = NormalizeRIF(in.RIF)
	in.Address = strings.TrimSpace(in.Address)
	in.Contact = strings.TrimSpace(in.Contact)
	if in.Name == "" {
		return Input{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.RIF == "" {
		return Input{}, fmt.Errorf("%w: rif is required", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(in.RequiredDocuments))
	required := make([]string, 0, len(in.RequiredDocuments))
	for _, doc := range in.RequiredDocuments {
		doc = strings.ToUpper(strings.TrimSpace(doc))
		if doc == "" {
			continue
		}
		if _, dup := seen[doc]; dup {
			continue
		}
		seen[doc] = struct{}{}
		required = append(required, doc)
	}
	in.RequiredDocuments = required
	return in, nil
}
