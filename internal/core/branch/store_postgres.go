package branch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"stategraph/internal/core/timestamp"
	"stategraph/pkg/platform/sentinel"
)

// PostgresStore persists branch records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the branch table DDL, idempotent for bootstrap and tests.
const Schema = `
CREATE TABLE IF NOT EXISTS branches (
    name            TEXT PRIMARY KEY,
    description     TEXT NOT NULL DEFAULT '',
    hierarchy_level INT  NOT NULL,
    is_default      BOOLEAN NOT NULL DEFAULT FALSE,
    is_global       BOOLEAN NOT NULL DEFAULT FALSE,
    origin_branch   TEXT NOT NULL DEFAULT '',
    branched_from   TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL,
    status          TEXT NOT NULL,
    schema_hash     TEXT NOT NULL DEFAULT ''
);
`

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure branch schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, b Branch) error {
	branchedFrom := ""
	if !b.BranchedFrom.IsZero() {
		branchedFrom = b.BranchedFrom.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches
		    (name, description, hierarchy_level, is_default, is_global,
		     origin_branch, branched_from, created_at, status, schema_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.Name, b.Description, b.HierarchyLevel, b.IsDefault, b.IsGlobal,
		b.OriginBranch, branchedFrom, b.CreatedAt.String(), string(b.Status), b.SchemaHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("branch %s: %w", b.Name, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("save branch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) (Branch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, description, hierarchy_level, is_default, is_global,
		       origin_branch, branched_from, created_at, status, schema_hash
		FROM branches WHERE name = $1`, name)
	b, err := scanBranch(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Branch{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Branch{}, fmt.Errorf("get branch: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, description, hierarchy_level, is_default, is_global,
		       origin_branch, branched_from, created_at, status, schema_hash
		FROM branches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		b, err := scanBranch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (s *PostgresStore) UpdateSchemaHash(ctx context.Context, name, hash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE branches SET schema_hash = $2 WHERE name = $1`, name, hash)
	if err != nil {
		return fmt.Errorf("update schema hash: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update schema hash: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanBranch(scan func(dest ...any) error) (Branch, error) {
	var b Branch
	var branchedFrom, createdAt, status string
	if err := scan(&b.Name, &b.Description, &b.HierarchyLevel, &b.IsDefault, &b.IsGlobal,
		&b.OriginBranch, &branchedFrom, &createdAt, &status, &b.SchemaHash); err != nil {
		return Branch{}, err
	}
	b.Status = Status(status)
	if branchedFrom != "" {
		ts, err := timestamp.Parse(branchedFrom)
		if err != nil {
			return Branch{}, err
		}
		b.BranchedFrom = ts
	}
	ts, err := timestamp.Parse(createdAt)
	if err != nil {
		return Branch{}, err
	}
	b.CreatedAt = ts
	return b, nil
}
