package relationship

import (
	"stategraph/internal/core/graph"
	"stategraph/internal/core/timestamp"
)

// PropertyValue is one resolved relationship property: the winning edge and
// the value it points at. Exactly one of Flag and NodeID is meaningful,
// depending on whether the property is a flag or a node reference.
type PropertyValue struct {
	Name   string
	Flag   *bool
	NodeID string
	Edge   graph.Edge
}

// PeerView is the transient result of resolving one relationship instance
// for one (branch, at) view: the peer, the relationship-node, the winning
// endpoint edges, and the independently resolved properties. It is built
// fresh per query and never persisted. Properties with no winning active
// edge are absent from the map.
type PeerView struct {
	SourceID   string
	PeerID     string
	RelNodeID  string
	Identifier string
	SourceEdge graph.Edge
	PeerEdge   graph.Edge
	UpdatedAt  timestamp.Timestamp
	Properties map[string]PropertyValue
}

// AttributeFilter narrows peers by one attribute value. Filters compose
// with logical AND in declaration order.
type AttributeFilter struct {
	Field string
	Value string
}

// Filters restricts resolution. IDs, when set, bound the candidate set
// before any other work.
type Filters struct {
	IDs        []string
	Attributes []AttributeFilter
}

// OrderField is one declared ordering stage.
type OrderField struct {
	Field      string
	Descending bool
}
