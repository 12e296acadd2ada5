package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"exportdocs-backend/internal/bol"
	"exportdocs-backend/internal/shared/storage/db"
)

// BolNumberConstraint names the partial unique index that arbitrates
// concurrent creates of the same bol number.
const BolNumberConstraint = "documents_bol_number_key"

// ErrConstraintMissing is returned by VerifyConstraints.
var ErrConstraintMissing = errors.New("documents bol number unique index missing")

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, type, client_id, file_id, file_name, content_type, bol_data, created_at, updated_at, version`

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    type,
    client_id,
    file_id,
    file_name,
    content_type,
    bol_number,
    bol_data,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var bolNumber sql.NullString
	var bolData any
	if doc.Bol != nil {
		bolNumber = sql.NullString{String: doc.Bol.BolNumber, Valid: true}
		encoded, err := json.Marshal(doc.Bol)
		if err != nil {
			return fmt.Errorf("encode bol data: %w", err)
		}
		bolData = string(encoded)
	}

	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		string(doc.Type),
		doc.ClientID,
		doc.FileID,
		doc.FileName,
		doc.ContentType,
		bolNumber,
		bolData,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if db.IsUniqueViolation(err, BolNumberConstraint) {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, bolNumber.String)
	}
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if db.IsNoMatch(err) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

func (r *PGRepo) UpdateBol(ctx context.Context, id string, data bol.Data, version int64, updatedAt time.Time) error {
	const query = `
UPDATE documents
SET bol_data = $2, updated_at = $3, version = version + 1
WHERE id = $1 AND type = 'BOL' AND version = $4`
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode bol data: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query, id, string(encoded), updatedAt, version)
	if db.IsNoMatch(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var current int64
	err = r.DB.QueryRowContext(ctx, `SELECT version FROM documents WHERE id = $1 AND type = 'BOL'`, id).Scan(&current)
	if db.IsNoMatch(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s at version %d, expected %d", ErrStaleWrite, id, current, version)
}

func (r *PGRepo) FindBolByNumber(ctx context.Context, bolNumber string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE type = 'BOL' AND bol_number = $1 LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, bolNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

func (r *PGRepo) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE client_id = $1
ORDER BY created_at DESC, id ASC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, clientID, limit, offset)
	if db.IsNoMatch(err) {
		return []Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) ListFileIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT file_id FROM documents ORDER BY file_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// VerifyConstraints checks that the bol number unique index exists. The
// duplicate handling in Service relies on it.
func (r *PGRepo) VerifyConstraints(ctx context.Context) error {
	const query = `
SELECT indexdef
FROM pg_indexes
WHERE tablename = 'documents' AND indexname = $1`
	var def string
	err := r.DB.QueryRowContext(ctx, query, BolNumberConstraint).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConstraintMissing
	}
	if err != nil {
		return fmt.Errorf("verify documents constraints: %w", err)
	}
	upper := strings.ToUpper(def)
	if !strings.Contains(upper, "UNIQUE") || !strings.Contains(def, "bol_number") {
		return fmt.Errorf("%w: unexpected definition %q", ErrConstraintMissing, def)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var docType string
	var contentType sql.NullString
	var bolData []byte
	err := row.Scan(
		&doc.ID,
		&docType,
		&doc.ClientID,
		&doc.FileID,
		&doc.FileName,
		&contentType,
		&bolData,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.Version,
	)
	if err != nil {
		return Document{}, err
	}
	doc.Type = Type(docType)
	doc.ContentType = contentType.String
	if len(bolData) > 0 {
		var data bol.Data
		if err := json.Unmarshal(bolData, &data); err != nil {
			return Document{}, fmt.Errorf("decode bol data for %s: %w", doc.ID, err)
		}
		if data.Containers == nil {
			data.Containers = []bol.Container{}
		}
		doc.Bol = &data
	}
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
