package clients

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"exportdocs-backend/internal/shared/storage/db"
)

const rifConstraint = "clients_rif_key"

type PGRepo struct {
	DB *sql.DB
}

const clientColumns = `id, name, rif, address, contact, required_documents, last_document_date, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, client Client) error {
	const query = `
INSERT INTO clients (id, name, rif, address, contact, required_documents, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	required, err := encodeRequired(client.RequiredDocuments)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		client.ID,
		client.Name,
		client.RIF,
		client.Address,
		client.Contact,
		required,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if db.IsUniqueViolation(err, rifConstraint) {
		return ErrDuplicateRIF
	}
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 LIMIT 1`
	client, err := scanClient(r.DB.QueryRowContext(ctx, query, id))
	if db.IsNoMatch(err) {
		return Client{}, ErrNotFound
	}
	return client, err
}

func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Client, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY name ASC, id ASC LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, client)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, client Client) error {
	const query = `
UPDATE clients
SET name = $2, rif = $3, address = $4, contact = $5, required_documents = $6, updated_at = $7
WHERE id = $1`
	required, err := encodeRequired(client.RequiredDocuments)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		client.ID,
		client.Name,
		client.RIF,
		client.Address,
		client.Contact,
		required,
		client.UpdatedAt,
	)
	if db.IsUniqueViolation(err, rifConstraint) {
		return ErrDuplicateRIF
	}
	if db.IsNoMatch(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Delete removes the client; its documents go with it through the foreign key.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if db.IsNoMatch(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PGRepo) TouchLastDocument(ctx context.Context, id string, at time.Time) error {
	const query = `
UPDATE clients
SET last_document_date = GREATEST(COALESCE(last_document_date, $2), $2)
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, at)
	if db.IsNoMatch(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (Client, error) {
	var client Client
	var address sql.NullString
	var contact sql.NullString
	var required []byte
	var lastDocument sql.NullTime
	err := row.Scan(
		&client.ID,
		&client.Name,
		&client.RIF,
		&address,
		&contact,
		&required,
		&lastDocument,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return Client{}, err
	}
	client.Address = address.String
	client.Contact = contact.String
	if len(required) > 0 {
		if err := json.Unmarshal(required, &client.RequiredDocuments); err != nil {
			return Client{}, fmt.Errorf("decode required_documents: %w", err)
		}
	}
	if lastDocument.Valid {
		t := lastDocument.Time
		client.LastDocumentDate = &t
	}
	return client, nil
}

func encodeRequired(docs []string) (string, error) {
	if docs == nil {
		docs = []string{}
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("encode required_documents: %w", err)
	}
	return string(b), nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
