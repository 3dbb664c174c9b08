// Package lock provides process-wide named advisory locks. Only two
// sequencing points in the system take one: first-time store initialization
// and branch/schema cache refresh. Everything else is lock-free.
package lock

import "context"

// Well-known lock names.
const (
	Initialization     = "initialization"
	BranchSchemaUpdate = "branch-schema-update"
)

// Locker serializes critical sections across process instances by name.
// Acquire blocks until the lock is held or ctx is done; the returned release
// function must be called on every exit path.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}
