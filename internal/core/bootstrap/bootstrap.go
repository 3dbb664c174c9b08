// Package bootstrap brings a store up to a usable state: it guarantees a
// single root record, the default and global branches, and a loaded branch
// registry. First-time initialization runs under a process-wide advisory
// lock so concurrent instances cannot both create the root.
package bootstrap

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"stategraph/internal/core/branch"
	"stategraph/internal/core/graph"
	"stategraph/internal/core/schema"
	"stategraph/internal/core/timestamp"
	"stategraph/internal/platform/lock"
	dErrors "stategraph/pkg/domain-errors"
	"stategraph/pkg/platform/sentinel"
)

// Deps carries everything initialization needs.
type Deps struct {
	Graph    graph.Store
	Branches branch.Store
	Schemas  schema.Provider
	Locks    lock.Locker
	Notifier branch.Notifier
	Logger   *slog.Logger
}

// Initialize checks the root record, performs first-time setup when the
// store is empty, and returns a loaded branch registry. More than one root
// record means the store itself is inconsistent; that error is fatal and
// must abort startup.
func Initialize(ctx context.Context, deps Deps) (*branch.Registry, error) {
	release, err := deps.Locks.Acquire(ctx, lock.Initialization)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "acquire initialization lock")
	}
	defer release()

	roots, err := deps.Graph.CountNodesByKind(ctx, graph.KindRoot)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count root records")
	}
	if roots == 0 {
		if err := firstTimeInitialization(ctx, deps); err != nil {
			return nil, err
		}
		roots, err = deps.Graph.CountNodesByKind(ctx, graph.KindRoot)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count root records")
		}
	}
	if roots > 1 {
		return nil, dErrors.Newf(dErrors.CodeConflict, "store is corrupted, %d root records found", roots)
	}

	registry := branch.NewRegistry(deps.Branches, deps.Schemas, deps.Locks, deps.Notifier, deps.Logger)
	if err := registry.Load(ctx); err != nil {
		return nil, err
	}
	return registry, nil
}

func firstTimeInitialization(ctx context.Context, deps Deps) error {
	now := timestamp.Now()

	var set graph.EdgeSet
	set.CreateNode(graph.Node{ID: "Root:" + uuid.NewString(), Kind: graph.KindRoot})
	if err := deps.Graph.Commit(ctx, set); err != nil {
		// Another instance may have won the race before our lock attempt;
		// a conflict here is re-checked by the root count above.
		if !dErrors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeTransaction, "create root record")
		}
	}
	deps.Logger.Info("root record created")

	hash, err := deps.Schemas.Hash(ctx, branch.DefaultBranchName)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "hash default schema")
	}

	defaultBranch := branch.Branch{
		Name:           branch.DefaultBranchName,
		Description:    "Default Branch",
		HierarchyLevel: 1,
		IsDefault:      true,
		Status:         branch.StatusOpen,
		CreatedAt:      now,
		SchemaHash:     hash,
	}
	if err := deps.Branches.Save(ctx, defaultBranch); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "create default branch")
	}
	deps.Logger.Info("default branch created", "branch", defaultBranch.Name)

	globalBranch := branch.Branch{
		Name:           branch.GlobalBranchName,
		Description:    "Global Branch",
		HierarchyLevel: 1,
		IsGlobal:       true,
		Status:         branch.StatusOpen,
		CreatedAt:      now,
	}
	if err := deps.Branches.Save(ctx, globalBranch); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "create global branch")
	}
	deps.Logger.Info("global branch created", "branch", globalBranch.Name)

	return nil
}
