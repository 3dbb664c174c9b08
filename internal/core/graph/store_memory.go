package graph

import (
	"context"
	"fmt"
	"sync"

	"stategraph/pkg/platform/sentinel"
)

type storedEdge struct {
	FromID string
	ToID   string
	Label  string
	Edge   Edge
}

// MemoryStore is an in-memory graph store. It favors clarity over
// performance and doubles as the test fake for the core packages. All
// mutations go through Commit, which applies its EdgeSet under one lock so
// readers never observe a partially applied set.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]Node
	out   map[string][]storedEdge
	in    map[string][]storedEdge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]Node),
		out:   make(map[string][]storedEdge),
		in:    make(map[string][]storedEdge),
	}
}

func (s *MemoryStore) GetNode(_ context.Context, id string) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if node, ok := s.nodes[id]; ok {
		return node, nil
	}
	return Node{}, sentinel.ErrNotFound
}

func (s *MemoryStore) RelationshipCandidates(_ context.Context, sourceID, identifier string) ([]RelationshipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	relNodeIDs := make(map[string]struct{})
	for _, e := range s.out[sourceID] {
		if e.Label != LabelRelated {
			continue
		}
		rl, ok := s.nodes[e.ToID]
		if !ok || rl.Kind != KindRelationship || rl.Name != identifier {
			continue
		}
		relNodeIDs[e.ToID] = struct{}{}
	}

	var records []RelationshipRecord
	for relNodeID := range relNodeIDs {
		perPeer := make(map[string]*RelationshipRecord)
		for _, e := range s.in[relNodeID] {
			if e.Label != LabelRelated {
				continue
			}
			if e.FromID == sourceID {
				continue
			}
			rec, ok := perPeer[e.FromID]
			if !ok {
				rec = &RelationshipRecord{
					RelNodeID:  relNodeID,
					Identifier: identifier,
					SourceID:   sourceID,
					PeerID:     e.FromID,
				}
				perPeer[e.FromID] = rec
			}
			rec.PeerEdges = append(rec.PeerEdges, e.Edge)
		}
		var sourceEdges []Edge
		for _, e := range s.in[relNodeID] {
			if e.Label == LabelRelated && e.FromID == sourceID {
				sourceEdges = append(sourceEdges, e.Edge)
			}
		}
		for _, rec := range perPeer {
			rec.SourceEdges = append([]Edge(nil), sourceEdges...)
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (s *MemoryStore) PropertyEdges(_ context.Context, relNodeID, name string) ([]PropertyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []PropertyRecord
	for _, e := range s.out[relNodeID] {
		if e.Label != name {
			continue
		}
		record := PropertyRecord{Name: name, ValueNodeID: e.ToID, Edge: e.Edge}
		if target, ok := s.nodes[e.ToID]; ok && target.Kind == KindBoolean {
			flag := target.Name == "true"
			record.Flag = &flag
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *MemoryStore) AttributeEdges(_ context.Context, nodeID, attribute string) ([]AttributeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []AttributeRecord
	for _, e := range s.out[nodeID] {
		if e.Label != attribute {
			continue
		}
		value := ""
		if target, ok := s.nodes[e.ToID]; ok {
			value = target.Name
		}
		records = append(records, AttributeRecord{Value: value, Edge: e.Edge})
	}
	return records, nil
}

func (s *MemoryStore) CountNodesByKind(_ context.Context, kind string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, node := range s.nodes {
		if node.Kind == kind {
			count++
		}
	}
	return count, nil
}

// Commit validates the whole EdgeSet before touching state so a failing op
// leaves nothing behind.
func (s *MemoryStore) Commit(_ context.Context, set EdgeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]Node)
	nodeKnown := func(id string) bool {
		if _, ok := s.nodes[id]; ok {
			return true
		}
		_, ok := staged[id]
		return ok
	}

	for _, op := range set.Ops {
		switch op.Kind {
		case OpCreateNode:
			if nodeKnown(op.Node.ID) {
				return fmt.Errorf("node %s already exists: %w", op.Node.ID, sentinel.ErrConflict)
			}
			staged[op.Node.ID] = op.Node
		case OpEnsureNode:
			if !nodeKnown(op.Node.ID) {
				staged[op.Node.ID] = op.Node
			}
		case OpAppendEdge:
			if !nodeKnown(op.Edge.FromID) {
				return fmt.Errorf("edge source %s: %w", op.Edge.FromID, sentinel.ErrNotFound)
			}
			if !nodeKnown(op.Edge.ToID) {
				return fmt.Errorf("edge target %s: %w", op.Edge.ToID, sentinel.ErrNotFound)
			}
		default:
			return fmt.Errorf("unknown op kind %q: %w", op.Kind, sentinel.ErrConflict)
		}
	}

	for id, node := range staged {
		s.nodes[id] = node
	}
	for _, op := range set.Ops {
		if op.Kind != OpAppendEdge {
			continue
		}
		e := storedEdge{FromID: op.Edge.FromID, ToID: op.Edge.ToID, Label: op.Edge.Label, Edge: op.Edge.Edge}
		s.out[e.FromID] = append(s.out[e.FromID], e)
		s.in[e.ToID] = append(s.in[e.ToID], e)
	}
	return nil
}
