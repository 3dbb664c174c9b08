package relationship_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"stategraph/internal/core/branch"
	"stategraph/internal/core/relationship"
	"stategraph/internal/core/schema"
	"stategraph/internal/core/timestamp"
	dErrors "stategraph/pkg/domain-errors"
)

type MutatorSuite struct {
	suite.Suite
	h   *harness
	rel schema.RelationshipSchema
	ctx context.Context
}

func TestMutatorSuite(t *testing.T) {
	suite.Run(t, new(MutatorSuite))
}

func (s *MutatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.h = newHarness(&s.Suite, s.ctx)
	s.rel = tagRelationship()

	s.h.createNode(&s.Suite, s.ctx, "person-1", "Person")
	s.h.createNode(&s.Suite, s.ctx, "tag-a", "Tag")
	s.h.createNode(&s.Suite, s.ctx, "account-1", "Account")
}

func (s *MutatorSuite) resolve(branchName string, at timestamp.Timestamp) []relationship.PeerView {
	views, err := s.h.resolver.ResolvePeers(s.ctx, "person-1", s.rel, branchName, at, relationship.Filters{}, nil)
	s.Require().NoError(err)
	return views
}

func (s *MutatorSuite) TestCreate() {
	s.Run("returns the materialized instance", func() {
		at := timestamp.Now()
		view, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "main", at, relationship.Properties{})
		s.Require().NoError(err)

		s.Equal("person-1", view.SourceID)
		s.Equal("tag-a", view.PeerID)
		s.NotEmpty(view.RelNodeID)
		s.True(view.UpdatedAt.Equal(at))
		s.Equal("main", view.SourceEdge.Branch)
		s.Equal(1, view.SourceEdge.BranchLevel)
	})

	s.Run("default flags are overridable", func() {
		view, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "main", timestamp.Now(),
			relationship.Properties{Flags: map[string]bool{schema.PropIsProtected: true}})
		s.Require().NoError(err)

		protected := view.Properties[schema.PropIsProtected]
		s.Require().NotNil(protected.Flag)
		s.True(*protected.Flag)

		visible := view.Properties[schema.PropIsVisible]
		s.Require().NotNil(visible.Flag)
		s.True(*visible.Flag)
	})

	s.Run("node properties are recorded", func() {
		view, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "main", timestamp.Now(),
			relationship.Properties{Nodes: map[string]string{schema.PropOwner: "account-1"}})
		s.Require().NoError(err)
		s.Equal("account-1", view.Properties[schema.PropOwner].NodeID)
	})

	s.Run("missing endpoint rejected", func() {
		_, err := s.h.mutator.Create(s.ctx, "person-1", "ghost", s.rel, "main", timestamp.Now(), relationship.Properties{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("undeclared property rejected", func() {
		_, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "main", timestamp.Now(),
			relationship.Properties{Flags: map[string]bool{"is_sticky": true}})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing identifiers rejected", func() {
		_, err := s.h.mutator.Create(s.ctx, "", "tag-a", s.rel, "main", timestamp.Now(), relationship.Properties{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("closed branch rejects writes", func() {
		s.Require().NoError(s.h.branches.Save(s.ctx, branch.Branch{
			Name: "archived", HierarchyLevel: 2, OriginBranch: branch.DefaultBranchName,
			Status: branch.StatusClosed, BranchedFrom: timestamp.Now(), CreatedAt: timestamp.Now(),
		}))
		_, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "archived", timestamp.Now(), relationship.Properties{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("branch-agnostic writes land on the global layer", func() {
		rel := s.rel
		rel.BranchSupport = schema.BranchAgnostic
		view, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", rel, "main", timestamp.Now(), relationship.Properties{})
		s.Require().NoError(err)
		s.Equal(branch.GlobalBranchName, view.SourceEdge.Branch)
	})
}

func (s *MutatorSuite) TestCreateNeverDeduplicates() {
	at := timestamp.Now()
	first, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "main", at, relationship.Properties{})
	s.Require().NoError(err)
	second, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "main", at, relationship.Properties{})
	s.Require().NoError(err)
	s.NotEqual(first.RelNodeID, second.RelNodeID)
}

func (s *MutatorSuite) TestUpdateProperties() {
	view, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "main", timestamp.Now(), relationship.Properties{})
	s.Require().NoError(err)
	beforeUpdate := timestamp.Now()

	s.Run("new property layer wins under the current view", func() {
		err := s.h.mutator.UpdateProperties(s.ctx, view, s.rel, "main", timestamp.Now(),
			relationship.Properties{Flags: map[string]bool{schema.PropIsProtected: true}})
		s.Require().NoError(err)

		views := s.resolve("main", timestamp.Now())
		s.Require().Len(views, 1)
		s.True(*views[0].Properties[schema.PropIsProtected].Flag)
	})

	s.Run("prior layers stay queryable", func() {
		views := s.resolve("main", beforeUpdate)
		s.Require().Len(views, 1)
		s.False(*views[0].Properties[schema.PropIsProtected].Flag)
	})

	s.Run("branch update leaves the origin view untouched", func() {
		_, err := s.h.registry.Create(s.ctx, "feature", "", timestamp.Now(), "")
		s.Require().NoError(err)

		err = s.h.mutator.UpdateProperties(s.ctx, view, s.rel, "feature", timestamp.Now(),
			relationship.Properties{Flags: map[string]bool{schema.PropIsVisible: false}})
		s.Require().NoError(err)

		featureViews := s.resolve("feature", timestamp.Now())
		s.Require().Len(featureViews, 1)
		s.False(*featureViews[0].Properties[schema.PropIsVisible].Flag)

		mainViews := s.resolve("main", timestamp.Now())
		s.Require().Len(mainViews, 1)
		s.True(*mainViews[0].Properties[schema.PropIsVisible].Flag)
	})

	s.Run("node property target must exist", func() {
		err := s.h.mutator.UpdateProperties(s.ctx, view, s.rel, "main", timestamp.Now(),
			relationship.Properties{Nodes: map[string]string{schema.PropOwner: "ghost"}})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("empty property set rejected", func() {
		err := s.h.mutator.UpdateProperties(s.ctx, view, s.rel, "main", timestamp.Now(), relationship.Properties{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("a relationship type is not an instance", func() {
		err := s.h.mutator.UpdateProperties(s.ctx, relationship.PeerView{Identifier: "person__tag"}, s.rel, "main",
			timestamp.Now(), relationship.Properties{Flags: map[string]bool{schema.PropIsVisible: false}})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTypeMismatch))
	})
}

func (s *MutatorSuite) TestDelete() {
	view, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "main", timestamp.Now(), relationship.Properties{})
	s.Require().NoError(err)
	active := timestamp.Now()

	s.Require().NoError(s.h.mutator.Delete(s.ctx, view, s.rel, "main", timestamp.Now()))

	s.Empty(s.resolve("main", timestamp.Now()))
	s.Require().Len(s.resolve("main", active), 1)

	s.Run("instance required", func() {
		err := s.h.mutator.Delete(s.ctx, relationship.PeerView{}, s.rel, "main", timestamp.Now())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTypeMismatch))
	})
}

func (s *MutatorSuite) TestDeleteBranchAgnosticRetractsGlobally() {
	rel := s.rel
	rel.BranchSupport = schema.BranchAgnostic

	view, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", rel, "main", timestamp.Now(), relationship.Properties{})
	s.Require().NoError(err)
	s.Equal(branch.GlobalBranchName, view.SourceEdge.Branch)

	_, err = s.h.registry.Create(s.ctx, "feature", "", timestamp.Now(), "")
	s.Require().NoError(err)

	s.Run("delete from any branch lands on the global layer", func() {
		s.Require().NoError(s.h.mutator.Delete(s.ctx, view, rel, "main", timestamp.Now()))

		featureViews, err := s.h.resolver.ResolvePeers(s.ctx, "person-1", rel, "feature", timestamp.Now(), relationship.Filters{}, nil)
		s.Require().NoError(err)
		s.Empty(featureViews)
		s.Empty(s.resolve("main", timestamp.Now()))
	})

	s.Run("data delete follows the same routing", func() {
		second, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", rel, "main", timestamp.Now(), relationship.Properties{})
		s.Require().NoError(err)

		s.Require().NoError(s.h.mutator.DeleteData(s.ctx, second, rel, "main", timestamp.Now()))

		featureViews, err := s.h.resolver.ResolvePeers(s.ctx, "person-1", rel, "feature", timestamp.Now(), relationship.Filters{}, nil)
		s.Require().NoError(err)
		s.Empty(featureViews)

		records, err := s.h.store.PropertyEdges(s.ctx, second.RelNodeID, schema.PropIsVisible)
		s.Require().NoError(err)
		for _, record := range records {
			s.Equal(branch.GlobalBranchName, record.Edge.Branch)
		}
	})
}

func (s *MutatorSuite) TestDeleteData() {
	view, err := s.h.mutator.Create(s.ctx, "person-1", "tag-a", s.rel, "main", timestamp.Now(),
		relationship.Properties{Nodes: map[string]string{schema.PropOwner: "account-1"}})
	s.Require().NoError(err)
	active := timestamp.Now()

	s.Require().NoError(s.h.mutator.DeleteData(s.ctx, view, s.rel, "main", timestamp.Now()))

	s.Run("instance and properties are retracted", func() {
		s.Empty(s.resolve("main", timestamp.Now()))

		records, err := s.h.store.PropertyEdges(s.ctx, view.RelNodeID, schema.PropOwner)
		s.Require().NoError(err)
		s.Require().Len(records, 2)
	})

	s.Run("history stays intact", func() {
		views := s.resolve("main", active)
		s.Require().Len(views, 1)
		s.Equal("account-1", views[0].Properties[schema.PropOwner].NodeID)
	})
}
