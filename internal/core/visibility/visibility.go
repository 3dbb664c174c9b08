// Package visibility implements the single selection rule deciding which
// versioned edges represent current truth for a given (branch, timestamp)
// view. Every read path — relationship resolution, relationship properties,
// plain node attributes — must go through this package so the semantics
// cannot drift between call sites.
package visibility

import (
	"stategraph/internal/core/graph"
	"stategraph/internal/core/timestamp"
)

// Filter is the compiled visibility predicate for one (branch, at) view.
// It is a pure value: compiling it touches no storage and applying it has
// no side effects.
type Filter struct {
	// Branch is the target branch name.
	Branch string
	// At is the read instant.
	At timestamp.Timestamp
	// BranchedFrom freezes the inherited default-branch layer at the
	// target branch's divergence point. Ignored when IsDefault is true.
	BranchedFrom timestamp.Timestamp
	// IsDefault marks the target branch as the default branch, which sees
	// its own layer without a divergence cutoff.
	IsDefault bool
	// DefaultBranch and GlobalBranch are the names of the two base layers.
	DefaultBranch string
	GlobalBranch  string
}

// Candidate reports whether an edge participates in this view at all.
// An edge is a candidate when it was written at or before At, and its
// branch layer is readable from the target branch: the target branch
// itself, the global layer, or the default layer frozen at the divergence
// point for non-default branches.
func (f Filter) Candidate(e graph.Edge) bool {
	if e.From.After(f.At) {
		return false
	}
	switch e.Branch {
	case f.Branch:
		return true
	case f.GlobalBranch:
		return true
	case f.DefaultBranch:
		if f.IsDefault {
			return true
		}
		return !e.From.After(f.BranchedFrom)
	default:
		return false
	}
}

// Compare orders two candidate edges by precedence: greater branch_level
// wins, then greater from, then the target branch over an inherited layer.
// Returns >0 when a outranks b.
func (f Filter) Compare(a, b graph.Edge) int {
	if a.BranchLevel != b.BranchLevel {
		return a.BranchLevel - b.BranchLevel
	}
	if c := a.From.Compare(b.From); c != 0 {
		return c
	}
	switch {
	case a.Branch == f.Branch && b.Branch != f.Branch:
		return 1
	case b.Branch == f.Branch && a.Branch != f.Branch:
		return -1
	}
	return 0
}

// WinnerIndex returns the index of the highest-precedence candidate among
// edges, regardless of its status. Callers that carry payloads alongside
// their edges use the index to recover them.
func (f Filter) WinnerIndex(edges []graph.Edge) (int, bool) {
	winner := -1
	for i, e := range edges {
		if !f.Candidate(e) {
			continue
		}
		if winner == -1 || f.Compare(e, edges[winner]) > 0 {
			winner = i
		}
	}
	if winner == -1 {
		return 0, false
	}
	return winner, true
}

// Winner returns the highest-precedence candidate, regardless of status.
// The winner's status tells whether the fact holds or was retracted.
func (f Filter) Winner(edges []graph.Edge) (graph.Edge, bool) {
	i, ok := f.WinnerIndex(edges)
	if !ok {
		return graph.Edge{}, false
	}
	return edges[i], true
}

// Visible returns the winning edge only when it asserts the fact. A winner
// with deleted status means the fact is retracted in this view; the edge
// history remains queryable at an earlier At.
func (f Filter) Visible(edges []graph.Edge) (graph.Edge, bool) {
	winner, ok := f.Winner(edges)
	if !ok || winner.Status != graph.StatusActive {
		return graph.Edge{}, false
	}
	return winner, true
}
