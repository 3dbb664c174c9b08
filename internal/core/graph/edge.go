package graph

import (
	"stategraph/internal/core/timestamp"
)

// EdgeStatus tells whether an edge asserts or retracts a fact.
type EdgeStatus string

const (
	StatusActive  EdgeStatus = "active"
	StatusDeleted EdgeStatus = "deleted"
)

// Well-known edge labels. Endpoint edges always carry LabelRelated; the
// relationship identifier lives on the relationship-node itself.
const (
	LabelRelated = "IS_RELATED"
)

// Node kinds with special meaning to the store. Domain nodes carry their
// schema kind instead.
const (
	KindRelationship   = "Relationship"
	KindBoolean        = "Boolean"
	KindAttributeValue = "AttributeValue"
	KindRoot           = "Root"
)

// Edge is one immutable, branch-tagged version layer. No field is ever
// updated in place; a change in truth is a new Edge appended on top.
type Edge struct {
	ID          string
	Branch      string
	BranchLevel int
	Status      EdgeStatus
	From        timestamp.Timestamp
}

// Node is a vertex. Name holds the relationship identifier on
// relationship-nodes and the rendered value on value vertices; it is empty
// on domain nodes.
type Node struct {
	ID   string
	Kind string
	Name string
}

// BoolNode returns the shared value vertex for a boolean. Flag property
// edges of every relationship point at one of these two vertices.
func BoolNode(value bool) Node {
	if value {
		return Node{ID: "Boolean:true", Kind: KindBoolean, Name: "true"}
	}
	return Node{ID: "Boolean:false", Kind: KindBoolean, Name: "false"}
}

// ValueNode returns the shared value vertex for an attribute value rendered
// as a string.
func ValueNode(rendered string) Node {
	return Node{ID: "Value:" + rendered, Kind: KindAttributeValue, Name: rendered}
}
