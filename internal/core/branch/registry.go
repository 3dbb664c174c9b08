package branch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"stategraph/internal/core/schema"
	"stategraph/internal/core/timestamp"
	"stategraph/internal/core/visibility"
	"stategraph/internal/platform/lock"
	dErrors "stategraph/pkg/domain-errors"
	"stategraph/pkg/platform/sentinel"
)

// Notifier receives branch lifecycle events. The events package provides the
// bus-backed implementation; a nil notifier is valid.
type Notifier interface {
	BranchCreated(ctx context.Context, b Branch) error
	SchemaUpdated(ctx context.Context, branchName, hash string) error
}

// Registry is the process-wide branch lookup cache and the single source of
// truth for lineage and rank. It is populated at startup from the store and
// updated synchronously on branch creation; cache misses fall back to the
// store under the branch-schema-update advisory lock.
type Registry struct {
	store    Store
	schemas  schema.Provider
	locks    lock.Locker
	notifier Notifier
	logger   *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	byName   map[string]Branch
	defaults Branch
}

func NewRegistry(store Store, schemas schema.Provider, locks lock.Locker, notifier Notifier, logger *slog.Logger) *Registry {
	return &Registry{
		store:    store,
		schemas:  schemas,
		locks:    locks,
		notifier: notifier,
		logger:   logger,
		byName:   make(map[string]Branch),
	}
}

// Load populates the cache from the store. Called once at startup and again
// by the events worker when another instance changes branch state.
func (r *Registry) Load(ctx context.Context) error {
	branches, err := r.store.List(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load branches")
	}

	byName := make(map[string]Branch, len(branches))
	var defaults []Branch
	for _, b := range branches {
		byName[b.Name] = b
		if b.IsDefault {
			defaults = append(defaults, b)
		}
	}
	if len(defaults) != 1 {
		return dErrors.Newf(dErrors.CodeConflict, "expected exactly one default branch, found %d", len(defaults))
	}

	r.mu.Lock()
	r.byName = byName
	r.defaults = defaults[0]
	r.mu.Unlock()

	r.logger.Info("branch registry loaded", "branches", len(byName), "default", defaults[0].Name)
	return nil
}

// Default returns the default branch.
func (r *Registry) Default() Branch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// List returns every cached branch.
func (r *Registry) List() []Branch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	branches := make([]Branch, 0, len(r.byName))
	for _, b := range r.byName {
		branches = append(branches, b)
	}
	return branches
}

// Get returns a branch by name. On a cache miss it falls back to the store
// under the branch-schema-update lock; concurrent misses for the same name
// collapse into one lookup.
func (r *Registry) Get(ctx context.Context, name string) (Branch, error) {
	if name == "" {
		name = DefaultBranchName
	}

	r.mu.RLock()
	b, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	result, err, _ := r.group.Do(name, func() (any, error) {
		release, err := r.locks.Acquire(ctx, lock.BranchSchemaUpdate)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "acquire branch refresh lock")
		}
		defer release()

		return r.getLocked(ctx, name)
	})
	if err != nil {
		return Branch{}, err
	}
	return result.(Branch), nil
}

// getLocked is the store fallback behind Get and RefreshSchemaHash. The
// caller must hold the branch-schema-update lock; acquiring it here again
// would deadlock both locker implementations.
func (r *Registry) getLocked(ctx context.Context, name string) (Branch, error) {
	r.mu.RLock()
	b, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	stored, err := r.store.Get(ctx, name)
	if dErrors.Is(err, sentinel.ErrNotFound) {
		return Branch{}, dErrors.Newf(dErrors.CodeNotFound, "branch %s not found", name)
	}
	if err != nil {
		return Branch{}, dErrors.Wrap(err, dErrors.CodeInternal, "load branch")
	}

	r.mu.Lock()
	r.byName[stored.Name] = stored
	r.mu.Unlock()
	return stored, nil
}

// Create creates a new branch diverging from the default branch at the
// given instant, forks the origin's schema snapshot under the new name and
// registers the result. All branches originate from the default branch, so
// the hierarchy level is always 2.
func (r *Registry) Create(ctx context.Context, name, origin string, at timestamp.Timestamp, description string) (Branch, error) {
	if name == "" {
		return Branch{}, dErrors.New(dErrors.CodeValidation, "branch name must not be empty")
	}
	if name == GlobalBranchName {
		return Branch{}, dErrors.Newf(dErrors.CodeValidation, "branch name %s is reserved", name)
	}
	def := r.Default()
	if origin == "" {
		origin = def.Name
	}
	if origin != def.Name {
		return Branch{}, dErrors.Newf(dErrors.CodeValidation, "branches can only diverge from %s", def.Name)
	}
	if at.IsZero() {
		at = timestamp.Now()
	}
	if description == "" {
		description = "Branch " + name
	}

	if err := r.schemas.Fork(ctx, origin, name); err != nil {
		return Branch{}, dErrors.Wrap(err, dErrors.CodeInternal, "fork schema snapshot")
	}
	hash, err := r.schemas.Hash(ctx, name)
	if err != nil {
		return Branch{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash schema snapshot")
	}

	b := Branch{
		Name:           name,
		Description:    description,
		HierarchyLevel: 2,
		OriginBranch:   origin,
		BranchedFrom:   at,
		CreatedAt:      at,
		Status:         StatusOpen,
		SchemaHash:     hash,
	}
	if err := r.store.Save(ctx, b); err != nil {
		if dErrors.Is(err, sentinel.ErrConflict) {
			return Branch{}, dErrors.Newf(dErrors.CodeConflict, "branch %s already exists", name)
		}
		return Branch{}, dErrors.Wrap(err, dErrors.CodeInternal, "save branch")
	}

	r.mu.Lock()
	r.byName[b.Name] = b
	r.mu.Unlock()

	r.logger.Info("branch created", "branch", b.Name, "origin", origin, "branched_from", at.String())

	if r.notifier != nil {
		if err := r.notifier.BranchCreated(ctx, b); err != nil {
			r.logger.Warn("branch created event not published", "branch", b.Name, "error", err)
		}
	}
	return b, nil
}

// RefreshSchemaHash recomputes and persists a branch's schema hash under
// the branch-schema-update lock. Called when the schema provider reports a
// change for the branch.
func (r *Registry) RefreshSchemaHash(ctx context.Context, name string) (string, error) {
	release, err := r.locks.Acquire(ctx, lock.BranchSchemaUpdate)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeTimeout, "acquire branch refresh lock")
	}
	defer release()

	b, err := r.getLocked(ctx, name)
	if err != nil {
		return "", err
	}
	hash, err := r.schemas.Hash(ctx, name)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "hash schema snapshot")
	}
	if hash == b.SchemaHash {
		return hash, nil
	}

	if err := r.store.UpdateSchemaHash(ctx, name, hash); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "persist schema hash")
	}
	b.SchemaHash = hash
	r.mu.Lock()
	r.byName[name] = b
	r.mu.Unlock()

	r.logger.Info("schema hash refreshed", "branch", name, "hash", hash)

	if r.notifier != nil {
		if err := r.notifier.SchemaUpdated(ctx, name, hash); err != nil {
			r.logger.Warn("schema updated event not published", "branch", name, "error", err)
		}
	}
	return hash, nil
}

// CompileFilter resolves a branch and compiles the visibility predicate for
// one (branch, at) view.
func (r *Registry) CompileFilter(ctx context.Context, name string, at timestamp.Timestamp) (visibility.Filter, error) {
	b, err := r.Get(ctx, name)
	if err != nil {
		return visibility.Filter{}, err
	}
	if at.IsZero() {
		at = timestamp.Now()
	}
	return b.VisibilityFilter(at), nil
}
