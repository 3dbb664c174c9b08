package branch

import (
	"stategraph/internal/core/timestamp"
	"stategraph/internal/core/visibility"
)

// Status of a branch. Closed branches stay readable but reject writes.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Reserved branch names.
const (
	DefaultBranchName = "main"
	GlobalBranchName  = "-global-"
)

// Branch is a named, independently evolving line of facts with a recorded
// divergence point from its origin. Exactly one branch is the default and
// exactly one is the global layer; every derived branch originates from the
// default branch, so lineage depth never exceeds two.
type Branch struct {
	Name           string
	Description    string
	HierarchyLevel int
	IsDefault      bool
	IsGlobal       bool
	OriginBranch   string
	BranchedFrom   timestamp.Timestamp
	CreatedAt      timestamp.Timestamp
	Status         Status
	SchemaHash     string
}

// VisibilityFilter compiles this branch into the predicate every read path
// applies at the given instant.
func (b Branch) VisibilityFilter(at timestamp.Timestamp) visibility.Filter {
	return visibility.Filter{
		Branch:        b.Name,
		At:            at,
		BranchedFrom:  b.BranchedFrom,
		IsDefault:     b.IsDefault,
		DefaultBranch: DefaultBranchName,
		GlobalBranch:  GlobalBranchName,
	}
}
