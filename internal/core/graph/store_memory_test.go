package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"stategraph/internal/core/timestamp"
	"stategraph/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) edge(branch string, level int, status EdgeStatus, at timestamp.Timestamp) Edge {
	return Edge{ID: "edge-" + at.String() + branch, Branch: branch, BranchLevel: level, Status: status, From: at}
}

func (s *MemoryStoreSuite) TestGetNode() {
	s.Run("missing node returns sentinel", func() {
		_, err := s.store.GetNode(s.ctx, "absent")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("committed node is readable", func() {
		var set EdgeSet
		set.CreateNode(Node{ID: "person-1", Kind: "Person"})
		s.Require().NoError(s.store.Commit(s.ctx, set))

		node, err := s.store.GetNode(s.ctx, "person-1")
		s.Require().NoError(err)
		s.Equal("Person", node.Kind)
	})
}

func (s *MemoryStoreSuite) TestCommit() {
	s.Run("duplicate create conflicts", func() {
		var set EdgeSet
		set.CreateNode(Node{ID: "dup", Kind: "Person"})
		s.Require().NoError(s.store.Commit(s.ctx, set))

		var again EdgeSet
		again.CreateNode(Node{ID: "dup", Kind: "Person"})
		s.Require().ErrorIs(s.store.Commit(s.ctx, again), sentinel.ErrConflict)
	})

	s.Run("ensure node is idempotent", func() {
		var set EdgeSet
		set.EnsureNode(BoolNode(true))
		set.EnsureNode(BoolNode(true))
		s.Require().NoError(s.store.Commit(s.ctx, set))

		var again EdgeSet
		again.EnsureNode(BoolNode(true))
		s.Require().NoError(s.store.Commit(s.ctx, again))
	})

	s.Run("failing op leaves nothing behind", func() {
		at := timestamp.Now()
		var set EdgeSet
		set.CreateNode(Node{ID: "orphan-source", Kind: "Person"})
		set.AppendEdge(EdgeAppend{FromID: "orphan-source", ToID: "missing-target", Label: LabelRelated,
			Edge: s.edge("main", 1, StatusActive, at)})
		s.Require().ErrorIs(s.store.Commit(s.ctx, set), sentinel.ErrNotFound)

		_, err := s.store.GetNode(s.ctx, "orphan-source")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("edges may reference nodes staged in the same set", func() {
		at := timestamp.Now()
		var set EdgeSet
		set.CreateNode(Node{ID: "staged-a", Kind: "Person"})
		set.CreateNode(Node{ID: "staged-rel", Kind: KindRelationship, Name: "knows"})
		set.AppendEdge(EdgeAppend{FromID: "staged-a", ToID: "staged-rel", Label: LabelRelated,
			Edge: s.edge("main", 1, StatusActive, at)})
		s.Require().NoError(s.store.Commit(s.ctx, set))
	})
}

// seedRelationship commits a relationship-node between source and peer with
// one active endpoint edge per side.
func (s *MemoryStoreSuite) seedRelationship(relNodeID, identifier, sourceID, peerID string, at timestamp.Timestamp) {
	var set EdgeSet
	set.EnsureNode(Node{ID: sourceID, Kind: "Person"})
	set.EnsureNode(Node{ID: peerID, Kind: "Tag"})
	set.CreateNode(Node{ID: relNodeID, Kind: KindRelationship, Name: identifier})
	set.AppendEdge(EdgeAppend{FromID: sourceID, ToID: relNodeID, Label: LabelRelated, Edge: s.edge("main", 1, StatusActive, at)})
	set.AppendEdge(EdgeAppend{FromID: peerID, ToID: relNodeID, Label: LabelRelated, Edge: s.edge("main", 1, StatusActive, at)})
	s.Require().NoError(s.store.Commit(s.ctx, set))
}

func (s *MemoryStoreSuite) TestRelationshipCandidates() {
	at := timestamp.Now()
	s.seedRelationship("rel-1", "person__tag", "person-1", "tag-a", at)
	s.seedRelationship("rel-2", "person__tag", "person-1", "tag-b", at)
	s.seedRelationship("rel-3", "person__friend", "person-1", "person-2", at)

	s.Run("one record per relationship-node and peer", func() {
		records, err := s.store.RelationshipCandidates(s.ctx, "person-1", "person__tag")
		s.Require().NoError(err)
		s.Require().Len(records, 2)

		peers := map[string]bool{}
		for _, record := range records {
			peers[record.PeerID] = true
			s.Equal("person-1", record.SourceID)
			s.Len(record.SourceEdges, 1)
			s.Len(record.PeerEdges, 1)
		}
		s.True(peers["tag-a"])
		s.True(peers["tag-b"])
	})

	s.Run("identifier scopes the lookup", func() {
		records, err := s.store.RelationshipCandidates(s.ctx, "person-1", "person__friend")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal("person-2", records[0].PeerID)
	})

	s.Run("unknown identifier yields no records", func() {
		records, err := s.store.RelationshipCandidates(s.ctx, "person-1", "person__group")
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("every layered edge is returned", func() {
		var set EdgeSet
		set.AppendEdge(EdgeAppend{FromID: "person-1", ToID: "rel-1", Label: LabelRelated,
			Edge: s.edge("feature", 2, StatusDeleted, timestamp.Now())})
		s.Require().NoError(s.store.Commit(s.ctx, set))

		records, err := s.store.RelationshipCandidates(s.ctx, "person-1", "person__tag")
		s.Require().NoError(err)
		for _, record := range records {
			if record.RelNodeID == "rel-1" {
				s.Len(record.SourceEdges, 2)
			}
		}
	})
}

func (s *MemoryStoreSuite) TestPropertyEdges() {
	at := timestamp.Now()
	s.seedRelationship("rel-1", "person__tag", "person-1", "tag-a", at)

	var set EdgeSet
	set.EnsureNode(BoolNode(true))
	set.AppendEdge(EdgeAppend{FromID: "rel-1", ToID: BoolNode(true).ID, Label: "is_visible",
		Edge: s.edge("main", 1, StatusActive, at)})
	set.EnsureNode(Node{ID: "account-1", Kind: "Account"})
	set.AppendEdge(EdgeAppend{FromID: "rel-1", ToID: "account-1", Label: "owner",
		Edge: s.edge("main", 1, StatusActive, at)})
	s.Require().NoError(s.store.Commit(s.ctx, set))

	s.Run("boolean targets surface as flags", func() {
		records, err := s.store.PropertyEdges(s.ctx, "rel-1", "is_visible")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Require().NotNil(records[0].Flag)
		s.True(*records[0].Flag)
	})

	s.Run("node targets surface as references", func() {
		records, err := s.store.PropertyEdges(s.ctx, "rel-1", "owner")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Nil(records[0].Flag)
		s.Equal("account-1", records[0].ValueNodeID)
	})

	s.Run("properties are queried independently", func() {
		records, err := s.store.PropertyEdges(s.ctx, "rel-1", "is_protected")
		s.Require().NoError(err)
		s.Empty(records)
	})
}

func (s *MemoryStoreSuite) TestAttributeEdges() {
	at := timestamp.Now()
	var set EdgeSet
	set.CreateNode(Node{ID: "person-1", Kind: "Person"})
	set.EnsureNode(ValueNode("alice"))
	set.AppendEdge(EdgeAppend{FromID: "person-1", ToID: ValueNode("alice").ID, Label: "name",
		Edge: s.edge("main", 1, StatusActive, at)})
	s.Require().NoError(s.store.Commit(s.ctx, set))

	records, err := s.store.AttributeEdges(s.ctx, "person-1", "name")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("alice", records[0].Value)
}

func (s *MemoryStoreSuite) TestCountNodesByKind() {
	var set EdgeSet
	set.CreateNode(Node{ID: "root-1", Kind: KindRoot})
	set.CreateNode(Node{ID: "person-1", Kind: "Person"})
	s.Require().NoError(s.store.Commit(s.ctx, set))

	count, err := s.store.CountNodesByKind(s.ctx, KindRoot)
	s.Require().NoError(err)
	s.Equal(1, count)

	count, err = s.store.CountNodesByKind(s.ctx, "Tag")
	s.Require().NoError(err)
	s.Equal(0, count)
}
