package assets

import (
	"context"
	"database/sql"

	"exportdocs-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, asset Asset) error {
	const query = `
INSERT INTO assets (id, name, kind, file_id, content_type, size_bytes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		asset.ID,
		asset.Name,
		string(asset.Kind),
		asset.FileID,
		asset.ContentType,
		asset.SizeBytes,
		asset.CreatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Asset, error) {
	const query = `
SELECT id, name, kind, file_id, content_type, size_bytes, created_at
FROM assets
WHERE id = $1
LIMIT 1`
	asset, err := scanAsset(r.DB.QueryRowContext(ctx, query, id))
	if db.IsNoMatch(err) {
		return Asset{}, ErrNotFound
	}
	return asset, err
}

func (r *PGRepo) List(ctx context.Context) ([]Asset, error) {
	const query = `
SELECT id, name, kind, file_id, content_type, size_bytes, created_at
FROM assets
ORDER BY created_at DESC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
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
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) ListFileIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT file_id FROM assets ORDER BY file_id`)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (Asset, error) {
	var asset Asset
	var kind string
	var contentType sql.NullString
	if err := row.Scan(&asset.ID, &asset.Name, &kind, &asset.FileID, &contentType, &asset.SizeBytes, &asset.CreatedAt); err != nil {
		return Asset{}, err
	}
	asset.Kind = Kind(kind)
	asset.ContentType = contentType.String
	return asset, nil
}

var _ Repo = (*PGRepo)(nil)
