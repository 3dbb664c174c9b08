package relationship

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stategraph/internal/core/branch"
	"stategraph/internal/core/graph"
	"stategraph/internal/core/relationship/metrics"
	"stategraph/internal/core/schema"
	"stategraph/internal/core/timestamp"
	dErrors "stategraph/pkg/domain-errors"
	"stategraph/pkg/platform/sentinel"
)

// Properties carries the property values for a create or update. Keys must
// be declared in the relationship's capability table.
type Properties struct {
	Flags map[string]bool
	Nodes map[string]string
}

// Mutator appends versioned edges to create, update or retract relationship
// facts. Every operation commits its full edge set as one transaction;
// store failures propagate unchanged, leaving retry policy to the caller.
type Mutator struct {
	store    graph.Store
	registry *branch.Registry
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewMutator(store graph.Store, registry *branch.Registry, m *metrics.Metrics, logger *slog.Logger) *Mutator {
	return &Mutator{
		store:    store,
		registry: registry,
		metrics:  m,
		tracer:   otel.Tracer("stategraph/relationship"),
		logger:   logger,
	}
}

// writeTarget resolves which branch layer a write lands on: the target
// branch for branch-aware relationships, the global layer otherwise.
func (m *Mutator) writeTarget(ctx context.Context, rel schema.RelationshipSchema, branchName string) (branch.Branch, error) {
	name := branchName
	if rel.BranchSupport == schema.BranchAgnostic {
		name = branch.GlobalBranchName
	}
	b, err := m.registry.Get(ctx, name)
	if err != nil {
		return branch.Branch{}, err
	}
	if b.Status == branch.StatusClosed {
		return branch.Branch{}, dErrors.Newf(dErrors.CodeValidation, "branch %s is closed", b.Name)
	}
	return b, nil
}

func (m *Mutator) newEdge(b branch.Branch, status graph.EdgeStatus, at timestamp.Timestamp) graph.Edge {
	return graph.Edge{
		ID:          uuid.NewString(),
		Branch:      b.Name,
		BranchLevel: b.HierarchyLevel,
		Status:      status,
		From:        at,
	}
}

// Create materializes a new relationship instance between source and
// destination: the relationship-node, one active endpoint edge per side,
// the default flag properties, and any supplied property edges, committed
// as one atomic edge set. Both endpoints must exist under the target view.
// Creating the same relationship twice yields two independent instances.
func (m *Mutator) Create(ctx context.Context, sourceID, destinationID string, rel schema.RelationshipSchema, branchName string, at timestamp.Timestamp, props Properties) (view PeerView, err error) {
	ctx, span := m.tracer.Start(ctx, "relationship.create",
		trace.WithAttributes(attribute.String("identifier", rel.Identifier)))
	defer span.End()
	defer func() { m.metrics.RecordMutation("create", err) }()

	if sourceID == "" || destinationID == "" {
		return PeerView{}, dErrors.New(dErrors.CodeValidation, "both source and destination identifiers must be provided")
	}
	if err := rel.Validate(); err != nil {
		return PeerView{}, err
	}
	if err := validateProperties(rel, props); err != nil {
		return PeerView{}, err
	}

	b, err := m.writeTarget(ctx, rel, branchName)
	if err != nil {
		return PeerView{}, err
	}
	if at.IsZero() {
		at = timestamp.Now()
	}

	for _, nodeID := range []string{sourceID, destinationID} {
		if _, err := m.store.GetNode(ctx, nodeID); err != nil {
			if dErrors.Is(err, sentinel.ErrNotFound) {
				return PeerView{}, dErrors.Newf(dErrors.CodeNotFound, "endpoint node %s not found", nodeID)
			}
			return PeerView{}, dErrors.Wrap(err, dErrors.CodeInternal, "load endpoint node")
		}
	}
	for name, nodeID := range props.Nodes {
		if _, err := m.store.GetNode(ctx, nodeID); err != nil {
			if dErrors.Is(err, sentinel.ErrNotFound) {
				return PeerView{}, dErrors.Newf(dErrors.CodeNotFound, "property %s references unknown node %s", name, nodeID)
			}
			return PeerView{}, dErrors.Wrap(err, dErrors.CodeInternal, "load property node")
		}
	}

	relNode := graph.Node{ID: uuid.NewString(), Kind: graph.KindRelationship, Name: rel.Identifier}
	sourceEdge := m.newEdge(b, graph.StatusActive, at)
	peerEdge := m.newEdge(b, graph.StatusActive, at)

	var set graph.EdgeSet
	set.CreateNode(relNode)
	set.AppendEdge(graph.EdgeAppend{FromID: sourceID, ToID: relNode.ID, Label: graph.LabelRelated, Edge: sourceEdge})
	set.AppendEdge(graph.EdgeAppend{FromID: destinationID, ToID: relNode.ID, Label: graph.LabelRelated, Edge: peerEdge})

	properties := make(map[string]PropertyValue)

	// Default flags, overridable by the caller.
	flags := map[string]bool{schema.PropIsVisible: true, schema.PropIsProtected: false}
	for name, value := range props.Flags {
		flags[name] = value
	}
	for _, name := range rel.FlagProperties {
		value, ok := flags[name]
		if !ok {
			continue
		}
		boolNode := graph.BoolNode(value)
		edge := m.newEdge(b, graph.StatusActive, at)
		set.EnsureNode(boolNode)
		set.AppendEdge(graph.EdgeAppend{FromID: relNode.ID, ToID: boolNode.ID, Label: name, Edge: edge})
		flag := value
		properties[name] = PropertyValue{Name: name, Flag: &flag, Edge: edge}
	}

	for name, nodeID := range props.Nodes {
		edge := m.newEdge(b, graph.StatusActive, at)
		set.AppendEdge(graph.EdgeAppend{FromID: relNode.ID, ToID: nodeID, Label: name, Edge: edge})
		properties[name] = PropertyValue{Name: name, NodeID: nodeID, Edge: edge}
	}

	if err := m.store.Commit(ctx, set); err != nil {
		return PeerView{}, dErrors.Wrap(err, dErrors.CodeTransaction, "commit relationship create")
	}

	m.logger.Debug("relationship created",
		"identifier", rel.Identifier, "source", sourceID, "destination", destinationID,
		"branch", b.Name, "at", at.String())

	return PeerView{
		SourceID:   sourceID,
		PeerID:     destinationID,
		RelNodeID:  relNode.ID,
		Identifier: rel.Identifier,
		SourceEdge: sourceEdge,
		PeerEdge:   peerEdge,
		UpdatedAt:  at,
		Properties: properties,
	}, nil
}

// UpdateProperties writes a new versioned property edge per named property
// at (branch, at). Prior property edges are never touched; concurrent
// updates to the same property resolve through the precedence rule.
func (m *Mutator) UpdateProperties(ctx context.Context, view PeerView, rel schema.RelationshipSchema, branchName string, at timestamp.Timestamp, props Properties) (err error) {
	ctx, span := m.tracer.Start(ctx, "relationship.update_properties",
		trace.WithAttributes(attribute.String("identifier", rel.Identifier)))
	defer span.End()
	defer func() { m.metrics.RecordMutation("update_properties", err) }()

	if err := requireInstance(view); err != nil {
		return err
	}
	if len(props.Flags) == 0 && len(props.Nodes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no properties to update")
	}
	if err := validateProperties(rel, props); err != nil {
		return err
	}

	b, err := m.writeTarget(ctx, rel, branchName)
	if err != nil {
		return err
	}
	if at.IsZero() {
		at = timestamp.Now()
	}

	var set graph.EdgeSet
	for name, value := range props.Flags {
		boolNode := graph.BoolNode(value)
		set.EnsureNode(boolNode)
		set.AppendEdge(graph.EdgeAppend{
			FromID: view.RelNodeID, ToID: boolNode.ID, Label: name,
			Edge: m.newEdge(b, graph.StatusActive, at),
		})
	}
	for name, nodeID := range props.Nodes {
		if _, err := m.store.GetNode(ctx, nodeID); err != nil {
			if dErrors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "property %s references unknown node %s", name, nodeID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load property node")
		}
		set.AppendEdge(graph.EdgeAppend{
			FromID: view.RelNodeID, ToID: nodeID, Label: name,
			Edge: m.newEdge(b, graph.StatusActive, at),
		})
	}

	if err := m.store.Commit(ctx, set); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransaction, "commit property update")
	}
	return nil
}

// Delete retracts a relationship instance by layering deleted endpoint
// edges on both sides. Nothing is erased; a query at an earlier instant
// still resolves the instance as active. The retraction lands on the same
// layer the instance was written to, so deleting a branch-agnostic fact
// retracts it everywhere.
func (m *Mutator) Delete(ctx context.Context, view PeerView, rel schema.RelationshipSchema, branchName string, at timestamp.Timestamp) (err error) {
	ctx, span := m.tracer.Start(ctx, "relationship.delete",
		trace.WithAttributes(attribute.String("identifier", view.Identifier)))
	defer span.End()
	defer func() { m.metrics.RecordMutation("delete", err) }()

	if err := requireInstance(view); err != nil {
		return err
	}
	b, err := m.writeTarget(ctx, rel, branchName)
	if err != nil {
		return err
	}
	if at.IsZero() {
		at = timestamp.Now()
	}

	set := m.deleteEndpointSet(view, b, at)
	if err := m.store.Commit(ctx, set); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransaction, "commit relationship delete")
	}

	m.logger.Debug("relationship deleted",
		"identifier", view.Identifier, "source", view.SourceID, "peer", view.PeerID,
		"branch", b.Name, "at", at.String())
	return nil
}

// DeleteData fully retracts a relationship instance: deleted endpoint edges
// plus a deleted layer for every property edge currently attached under the
// (branch, at) view, without touching history.
func (m *Mutator) DeleteData(ctx context.Context, view PeerView, rel schema.RelationshipSchema, branchName string, at timestamp.Timestamp) (err error) {
	ctx, span := m.tracer.Start(ctx, "relationship.delete_data",
		trace.WithAttributes(attribute.String("identifier", rel.Identifier)))
	defer span.End()
	defer func() { m.metrics.RecordMutation("delete_data", err) }()

	if err := requireInstance(view); err != nil {
		return err
	}
	b, err := m.writeTarget(ctx, rel, branchName)
	if err != nil {
		return err
	}
	if at.IsZero() {
		at = timestamp.Now()
	}

	filter, err := m.registry.CompileFilter(ctx, branchName, at)
	if err != nil {
		return err
	}

	set := m.deleteEndpointSet(view, b, at)

	names := append(append([]string{}, rel.FlagProperties...), rel.NodeProperties...)
	for _, name := range names {
		records, err := m.store.PropertyEdges(ctx, view.RelNodeID, name)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load property edges")
		}
		edges := make([]graph.Edge, len(records))
		for i, record := range records {
			edges[i] = record.Edge
		}
		idx, ok := filter.WinnerIndex(edges)
		if !ok || edges[idx].Status != graph.StatusActive {
			continue
		}
		set.AppendEdge(graph.EdgeAppend{
			FromID: view.RelNodeID, ToID: records[idx].ValueNodeID, Label: name,
			Edge: m.newEdge(b, graph.StatusDeleted, at),
		})
	}

	if err := m.store.Commit(ctx, set); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransaction, "commit relationship data delete")
	}
	return nil
}

func (m *Mutator) deleteEndpointSet(view PeerView, b branch.Branch, at timestamp.Timestamp) graph.EdgeSet {
	var set graph.EdgeSet
	set.AppendEdge(graph.EdgeAppend{
		FromID: view.SourceID, ToID: view.RelNodeID, Label: graph.LabelRelated,
		Edge: m.newEdge(b, graph.StatusDeleted, at),
	})
	set.AppendEdge(graph.EdgeAppend{
		FromID: view.PeerID, ToID: view.RelNodeID, Label: graph.LabelRelated,
		Edge: m.newEdge(b, graph.StatusDeleted, at),
	})
	return set
}

// requireInstance rejects calls that pass a relationship type where a
// resolved instance is required.
func requireInstance(view PeerView) error {
	if view.RelNodeID == "" || view.SourceID == "" || view.PeerID == "" {
		return dErrors.New(dErrors.CodeTypeMismatch, "a resolved relationship instance is required, not a relationship type")
	}
	return nil
}

// validateProperties checks every supplied property name against the
// declared capability table.
func validateProperties(rel schema.RelationshipSchema, props Properties) error {
	for name := range props.Flags {
		if !rel.HasFlagProperty(name) {
			return dErrors.Newf(dErrors.CodeValidation, "flag property %s is not declared on %s", name, rel.Name)
		}
	}
	for name := range props.Nodes {
		if !rel.HasNodeProperty(name) {
			return dErrors.Newf(dErrors.CodeValidation, "node property %s is not declared on %s", name, rel.Name)
		}
	}
	return nil
}
