// Package schema exposes the relationship capability tables the core
// consumes. Schema definition loading lives with an external collaborator;
// this package only declares what a relationship field supports, as a
// static table iterated by the resolver and mutation engine.
package schema

import (
	"context"

	"stategraph/internal/core/graph"
	dErrors "stategraph/pkg/domain-errors"
)

// BranchSupport tells whether a relationship's facts are branch-scoped or
// written to the global layer.
type BranchSupport string

const (
	BranchAware    BranchSupport = "aware"
	BranchAgnostic BranchSupport = "agnostic"
)

// Default flag properties every relationship instance carries.
const (
	PropIsVisible   = "is_visible"
	PropIsProtected = "is_protected"
)

// Default node-reference properties.
const (
	PropSource = "source"
	PropOwner  = "owner"
)

// RelationshipSchema is the declared capability table for one relationship
// field: its peer kind, its unique identifier, and the exact property,
// filter and order names the resolver may use. Nothing is discovered at
// runtime; unknown names are rejected.
type RelationshipSchema struct {
	// Name is the field name on the owning kind, e.g. "tags".
	Name string
	// Peer is the schema kind of the node on the far side.
	Peer string
	// Identifier uniquely names the relationship in the graph.
	Identifier string
	// BranchSupport selects branch-scoped or global-layer writes.
	BranchSupport BranchSupport
	// FlagProperties and NodeProperties list every property edge a
	// relationship instance of this schema can carry.
	FlagProperties []string
	NodeProperties []string
	// FilterableFields and OrderBy whitelist peer attribute names for
	// filter and order stages.
	FilterableFields []string
	// OrderBy is the declared default ordering, applied when the caller
	// does not order explicitly.
	OrderBy []string
}

// DefaultRelationship returns a schema with the standard property set.
func DefaultRelationship(name, peer, identifier string) RelationshipSchema {
	return RelationshipSchema{
		Name:           name,
		Peer:           peer,
		Identifier:     identifier,
		BranchSupport:  BranchAware,
		FlagProperties: []string{PropIsVisible, PropIsProtected},
		NodeProperties: []string{PropSource, PropOwner},
	}
}

// Validate checks every declared name against the identifier whitelist.
func (s RelationshipSchema) Validate() error {
	if s.Identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "relationship schema requires an identifier")
	}
	names := [][]string{{s.Identifier}, s.FlagProperties, s.NodeProperties, s.FilterableFields, s.OrderBy}
	for _, group := range names {
		for _, name := range group {
			if err := graph.ValidateIdentifier(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// HasFlagProperty reports whether name is a declared flag property.
func (s RelationshipSchema) HasFlagProperty(name string) bool {
	return contains(s.FlagProperties, name)
}

// HasNodeProperty reports whether name is a declared node-reference property.
func (s RelationshipSchema) HasNodeProperty(name string) bool {
	return contains(s.NodeProperties, name)
}

// Filterable reports whether a peer attribute may be used in filters.
func (s RelationshipSchema) Filterable(field string) bool {
	return contains(s.FilterableFields, field)
}

// Orderable reports whether a peer attribute may be used as a sort key:
// any filterable field, plus the declared default ordering.
func (s RelationshipSchema) Orderable(field string) bool {
	return contains(s.FilterableFields, field) || contains(s.OrderBy, field)
}

func contains(list []string, name string) bool {
	for _, entry := range list {
		if entry == name {
			return true
		}
	}
	return false
}

// Provider is the consumed schema capability: per-branch relationship
// lookup, snapshot forking on branch creation, and a content hash used to
// detect drift between the registry and the store.
type Provider interface {
	Relationship(ctx context.Context, branch, kind, field string) (RelationshipSchema, error)
	Fork(ctx context.Context, origin, branch string) error
	Hash(ctx context.Context, branch string) (string, error)
}
