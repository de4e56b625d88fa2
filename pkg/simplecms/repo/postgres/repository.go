// Package postgres provides a pgx-backed simplecms.Repository. The
// (kind, slug) unique index is the authoritative arbiter of slug
// uniqueness; violations surface as simplecms.ErrSlugConflict.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplecms.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return simplecms.ErrSlugConflict
		case "23502": // not_null_violation
			return fmt.Errorf("required column %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return errors.New("table does not exist - database migration required")
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return simplecms.ErrNotFound
	}
	return fmt.Errorf("database error in %s: %w", op, err)
}

const resourceColumns = `id, kind, slug, title, owner_id, fields, assets, created_at, updated_at`

func scanResource(row pgx.Row) (*simplecms.Resource, error) {
	var res simplecms.Resource
	var fields, assets []byte
	var ownerID *uuid.UUID

	err := row.Scan(&res.ID, &res.Kind, &res.Slug, &res.Title, &ownerID,
		&fields, &assets, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ownerID != nil {
		res.OwnerID = *ownerID
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &res.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode fields: %w", err)
		}
	}
	if len(assets) > 0 {
		if err := json.Unmarshal(assets, &res.Assets); err != nil {
			return nil, fmt.Errorf("failed to decode assets: %w", err)
		}
	}
	return &res, nil
}

func encode(res *simplecms.Resource) (fields, assets []byte, ownerID *uuid.UUID, err error) {
	fields, err = json.Marshal(res.Fields)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	assets, err = json.Marshal(res.Assets)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode assets: %w", err)
	}
	if res.OwnerID != uuid.Nil {
		ownerID = &res.OwnerID
	}
	return fields, assets, ownerID, nil
}

func (r *Repository) Create(ctx context.Context, res *simplecms.Resource) error {
	fields, assets, ownerID, err := encode(res)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO resource (
			id, kind, slug, title, owner_id, fields, assets, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		res.ID, res.Kind, res.Slug, res.Title, ownerID,
		fields, assets, res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return mapError("create resource", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, kind simplecms.Kind, id uuid.UUID) (*simplecms.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resource WHERE kind = $1 AND id = $2`
	res, err := scanResource(r.db.QueryRow(ctx, query, kind, id))
	if err != nil {
		return nil, mapError("get resource", err)
	}
	return res, nil
}

func (r *Repository) GetBySlug(ctx context.Context, kind simplecms.Kind, slug string) (*simplecms.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resource WHERE kind = $1 AND slug = $2`
	res, err := scanResource(r.db.QueryRow(ctx, query, kind, slug))
	if err != nil {
		return nil, mapError("get resource by slug", err)
	}
	return res, nil
}

func (r *Repository) List(ctx context.Context, kind simplecms.Kind) ([]*simplecms.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resource WHERE kind = $1 ORDER BY created_at DESC`
	return r.queryResources(ctx, "list resources", query, kind)
}

func (r *Repository) ListByOwner(ctx context.Context, kind simplecms.Kind, ownerID uuid.UUID) ([]*simplecms.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resource WHERE kind = $1 AND owner_id = $2 ORDER BY created_at DESC`
	return r.queryResources(ctx, "list resources by owner", query, kind, ownerID)
}

func (r *Repository) Update(ctx context.Context, res *simplecms.Resource) error {
	fields, assets, ownerID, err := encode(res)
	if err != nil {
		return err
	}

	query := `
		UPDATE resource
		SET slug = $3, title = $4, owner_id = $5, fields = $6, assets = $7, updated_at = $8
		WHERE kind = $1 AND id = $2`

	tag, err := r.db.Exec(ctx, query,
		res.Kind, res.ID, res.Slug, res.Title, ownerID, fields, assets, res.UpdatedAt)
	if err != nil {
		return mapError("update resource", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, kind simplecms.Kind, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM resource WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return mapError("delete resource", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrNotFound
	}
	return nil
}

func (r *Repository) ListSlugs(ctx context.Context, kind simplecms.Kind, base string, excludeID uuid.UUID) ([]string, error) {
	query := `
		SELECT slug FROM resource
		WHERE kind = $1 AND (slug = $2 OR slug LIKE $2 || '-%') AND id <> $3`

	rows, err := r.db.Query(ctx, query, kind, base, excludeID)
	if err != nil {
		return nil, mapError("list slugs", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, mapError("list slugs", err)
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

func (r *Repository) CountByCategory(ctx context.Context, kind simplecms.Kind) ([]simplecms.CategoryCount, error) {
	query := `
		SELECT COALESCE(fields->>'category', ''), COUNT(*)
		FROM resource
		WHERE kind = $1
		GROUP BY 1
		ORDER BY 1`

	rows, err := r.db.Query(ctx, query, kind)
	if err != nil {
		return nil, mapError("count by category", err)
	}
	defer rows.Close()

	var counts []simplecms.CategoryCount
	for rows.Next() {
		var c simplecms.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, mapError("count by category", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *Repository) queryResources(ctx context.Context, op, query string, args ...any) ([]*simplecms.Resource, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var result []*simplecms.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		result = append(result, res)
	}
	return result, rows.Err()
}
