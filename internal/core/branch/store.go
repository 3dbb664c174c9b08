package branch

import "context"

// Store persists branch records. Branch rows are only ever inserted at
// creation and updated by schema-hash refresh; they are never deleted in
// normal operation.
type Store interface {
	// Save inserts a branch, sentinel.ErrConflict on duplicate name.
	Save(ctx context.Context, b Branch) error
	// Get returns a branch by name, sentinel.ErrNotFound when absent.
	Get(ctx context.Context, name string) (Branch, error)
	// List returns every persisted branch.
	List(ctx context.Context) ([]Branch, error)
	// UpdateSchemaHash records a refreshed schema hash.
	UpdateSchemaHash(ctx context.Context, name, hash string) error
}
