package graph

import (
	"context"
)

// RelationshipRecord is the raw edge history for one relationship-node
// instance between a source node and one peer. The store returns every
// layered edge; visibility is decided by the caller so that a single
// predicate implementation governs every read path.
type RelationshipRecord struct {
	RelNodeID  string
	Identifier string
	SourceID   string
	PeerID     string
	// SourceEdges and PeerEdges hold every version layer ever written for
	// the two endpoint edges, in write order.
	SourceEdges []Edge
	PeerEdges   []Edge
}

// PropertyRecord is one version layer of a relationship property edge along
// with the vertex it points at.
type PropertyRecord struct {
	Name        string
	ValueNodeID string
	// Flag is set when the target is a Boolean vertex.
	Flag *bool
	Edge Edge
}

// AttributeRecord is one version layer of a plain node attribute edge.
type AttributeRecord struct {
	Value string
	Edge  Edge
}

// OpKind discriminates write operations inside an EdgeSet.
type OpKind string

const (
	// OpCreateNode inserts a vertex and fails on duplicate ID.
	OpCreateNode OpKind = "create_node"
	// OpEnsureNode inserts a vertex if absent (shared value vertices).
	OpEnsureNode OpKind = "ensure_node"
	// OpAppendEdge appends one immutable edge layer.
	OpAppendEdge OpKind = "append_edge"
)

// EdgeAppend describes one edge layer to append.
type EdgeAppend struct {
	FromID string
	ToID   string
	Label  string
	Edge   Edge
}

// Op is a single write inside an atomic EdgeSet.
type Op struct {
	Kind OpKind
	Node Node
	Edge EdgeAppend
}

// EdgeSet is the unit of write atomicity. Either every op commits or none
// does; partial application is not a defined state.
type EdgeSet struct {
	Ops []Op
}

func (s *EdgeSet) CreateNode(n Node) { s.Ops = append(s.Ops, Op{Kind: OpCreateNode, Node: n}) }
func (s *EdgeSet) EnsureNode(n Node) { s.Ops = append(s.Ops, Op{Kind: OpEnsureNode, Node: n}) }
func (s *EdgeSet) AppendEdge(e EdgeAppend) {
	s.Ops = append(s.Ops, Op{Kind: OpAppendEdge, Edge: e})
}

// Store is the transactional property-graph capability the core consumes.
// Implementations must guarantee that Commit applies an EdgeSet atomically
// and that reads observe only fully committed sets.
type Store interface {
	// GetNode returns a vertex by ID, sentinel.ErrNotFound when absent.
	GetNode(ctx context.Context, id string) (Node, error)

	// RelationshipCandidates returns the full edge history of every
	// relationship-node with the given identifier attached to source,
	// one record per (relationship-node, peer).
	RelationshipCandidates(ctx context.Context, sourceID, identifier string) ([]RelationshipRecord, error)

	// PropertyEdges returns every version layer of the named property on a
	// relationship-node. Properties are queried one by one; each is an
	// independent fact.
	PropertyEdges(ctx context.Context, relNodeID, name string) ([]PropertyRecord, error)

	// AttributeEdges returns every version layer of a plain attribute on a
	// domain node.
	AttributeEdges(ctx context.Context, nodeID, attribute string) ([]AttributeRecord, error)

	// CountNodesByKind reports how many vertices of a kind exist. Used by
	// bootstrap to detect a missing or duplicated root record.
	CountNodesByKind(ctx context.Context, kind string) (int, error)

	// Commit applies an EdgeSet as one transaction.
	Commit(ctx context.Context, set EdgeSet) error
}
