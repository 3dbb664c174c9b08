package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"stategraph/internal/core/branch"
	"stategraph/internal/core/graph"
	"stategraph/internal/core/schema"
	"stategraph/internal/platform/lock"
	dErrors "stategraph/pkg/domain-errors"
)

type BootstrapSuite struct {
	suite.Suite
	deps Deps
	ctx  context.Context
}

func TestBootstrapSuite(t *testing.T) {
	suite.Run(t, new(BootstrapSuite))
}

func (s *BootstrapSuite) SetupTest() {
	s.ctx = context.Background()
	s.deps = Deps{
		Graph:    graph.NewMemoryStore(),
		Branches: branch.NewMemoryStore(),
		Schemas:  schema.NewStaticProvider(),
		Locks:    lock.NewMemoryLocker(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (s *BootstrapSuite) TestFirstTimeInitialization() {
	registry, err := Initialize(s.ctx, s.deps)
	s.Require().NoError(err)

	s.Run("root record exists", func() {
		count, err := s.deps.Graph.CountNodesByKind(s.ctx, graph.KindRoot)
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("default branch is level one and open", func() {
		def := registry.Default()
		s.Equal(branch.DefaultBranchName, def.Name)
		s.Equal(1, def.HierarchyLevel)
		s.True(def.IsDefault)
		s.Equal(branch.StatusOpen, def.Status)
		s.NotEmpty(def.SchemaHash)
	})

	s.Run("global branch exists", func() {
		global, err := registry.Get(s.ctx, branch.GlobalBranchName)
		s.Require().NoError(err)
		s.True(global.IsGlobal)
		s.Equal(1, global.HierarchyLevel)
	})
}

func (s *BootstrapSuite) TestIdempotent() {
	first, err := Initialize(s.ctx, s.deps)
	s.Require().NoError(err)

	// A restart against the same store must not create a second root.
	second, err := Initialize(s.ctx, s.deps)
	s.Require().NoError(err)
	s.Equal(first.Default().CreatedAt, second.Default().CreatedAt)

	count, err := s.deps.Graph.CountNodesByKind(s.ctx, graph.KindRoot)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *BootstrapSuite) TestCorruptedStoreAbortsStartup() {
	var set graph.EdgeSet
	set.CreateNode(graph.Node{ID: "Root:" + uuid.NewString(), Kind: graph.KindRoot})
	set.CreateNode(graph.Node{ID: "Root:" + uuid.NewString(), Kind: graph.KindRoot})
	s.Require().NoError(s.deps.Graph.Commit(s.ctx, set))

	_, err := Initialize(s.ctx, s.deps)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}
