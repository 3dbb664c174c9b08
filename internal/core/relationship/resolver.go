package relationship

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"stategraph/internal/core/branch"
	"stategraph/internal/core/graph"
	"stategraph/internal/core/relationship/metrics"
	"stategraph/internal/core/schema"
	"stategraph/internal/core/timestamp"
	"stategraph/internal/core/visibility"
	dErrors "stategraph/pkg/domain-errors"
)

// propertyConcurrency bounds per-peer property resolution fan-out.
const propertyConcurrency = 8

// Resolver answers "which peers does this node have through this
// relationship, on this branch, at this instant". All selection decisions
// go through the visibility predicate; the resolver only orchestrates.
type Resolver struct {
	store    graph.Store
	registry *branch.Registry
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewResolver(store graph.Store, registry *branch.Registry, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		registry: registry,
		metrics:  m,
		tracer:   otel.Tracer("stategraph/relationship"),
		logger:   logger,
	}
}

// ResolvePeers resolves the peers of sourceID through rel for one
// (branch, at) view, yielding at most one PeerView per distinct peer, in
// deterministic order.
func (r *Resolver) ResolvePeers(ctx context.Context, sourceID string, rel schema.RelationshipSchema, branchName string, at timestamp.Timestamp, filters Filters, orderBy []OrderField) ([]PeerView, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "relationship.resolve_peers",
		trace.WithAttributes(
			attribute.String("branch", branchName),
			attribute.String("identifier", rel.Identifier),
		))
	defer span.End()

	if sourceID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "either a source node or its identifier must be provided")
	}
	if err := rel.Validate(); err != nil {
		return nil, err
	}

	filter, err := r.registry.CompileFilter(ctx, branchName, at)
	if err != nil {
		return nil, err
	}

	views, err := r.visibleInstances(ctx, sourceID, rel.Identifier, filter)
	if err != nil {
		return nil, err
	}

	// Identity filters bound the candidate set before any further work.
	if len(filters.IDs) > 0 {
		allowed := make(map[string]struct{}, len(filters.IDs))
		for _, id := range filters.IDs {
			allowed[id] = struct{}{}
		}
		kept := views[:0]
		for _, view := range views {
			if _, ok := allowed[view.PeerID]; ok {
				kept = append(kept, view)
			}
		}
		views = kept
	}

	if err := r.resolveProperties(ctx, views, rel, filter); err != nil {
		return nil, err
	}

	views, err = r.applyAttributeFilters(ctx, views, rel, filter, filters.Attributes)
	if err != nil {
		return nil, err
	}

	if len(orderBy) == 0 {
		for _, field := range rel.OrderBy {
			orderBy = append(orderBy, OrderField{Field: field})
		}
	}
	if err := r.order(ctx, views, rel, filter, orderBy); err != nil {
		return nil, err
	}

	r.metrics.ObserveResolve(rel.Identifier, len(views), time.Since(start))
	return views, nil
}

// ResolvePeerIDs is the projection convenience returning only peer
// identifiers, in the same order as ResolvePeers.
func (r *Resolver) ResolvePeerIDs(ctx context.Context, sourceID string, rel schema.RelationshipSchema, branchName string, at timestamp.Timestamp, filters Filters, orderBy []OrderField) ([]string, error) {
	views, err := r.ResolvePeers(ctx, sourceID, rel, branchName, at, filters, orderBy)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(views))
	for i, view := range views {
		ids[i] = view.PeerID
	}
	return ids, nil
}

// visibleInstances reduces raw edge history to at most one visible
// relationship instance per peer. For each candidate instance the winning
// (source-edge, peer-edge) pair is selected with the same tie-break as any
// single edge, applied jointly; instances whose winning pair is not fully
// active are dropped, as are self-referential peers.
func (r *Resolver) visibleInstances(ctx context.Context, sourceID, identifier string, filter visibility.Filter) ([]PeerView, error) {
	records, err := r.store.RelationshipCandidates(ctx, sourceID, identifier)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load relationship candidates")
	}

	best := make(map[string]PeerView)
	var peerOrder []string

	for _, record := range records {
		if record.PeerID == sourceID {
			continue
		}
		sourceEdge, ok := filter.Winner(record.SourceEdges)
		if !ok {
			continue
		}
		peerEdge, ok := filter.Winner(record.PeerEdges)
		if !ok {
			continue
		}
		if sourceEdge.Status != graph.StatusActive || peerEdge.Status != graph.StatusActive {
			continue
		}

		view := PeerView{
			SourceID:   sourceID,
			PeerID:     record.PeerID,
			RelNodeID:  record.RelNodeID,
			Identifier: identifier,
			SourceEdge: sourceEdge,
			PeerEdge:   peerEdge,
			UpdatedAt:  sourceEdge.From,
		}

		current, exists := best[record.PeerID]
		if !exists {
			best[record.PeerID] = view
			peerOrder = append(peerOrder, record.PeerID)
			continue
		}
		if comparePair(filter, view, current) > 0 {
			best[record.PeerID] = view
		}
	}

	views := make([]PeerView, 0, len(best))
	for _, peerID := range peerOrder {
		views = append(views, best[peerID])
	}
	return views, nil
}

// comparePair applies the precedence rule jointly to the endpoint edge
// pair: the source edge decides, the peer edge breaks the tie.
func comparePair(filter visibility.Filter, a, b PeerView) int {
	if c := filter.Compare(a.SourceEdge, b.SourceEdge); c != 0 {
		return c
	}
	return filter.Compare(a.PeerEdge, b.PeerEdge)
}

// resolveProperties fills each view's property map. Every property is an
// independent fact resolved through the same predicate; a property with no
// winning active edge stays absent rather than erroring.
func (r *Resolver) resolveProperties(ctx context.Context, views []PeerView, rel schema.RelationshipSchema, filter visibility.Filter) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(propertyConcurrency)

	for i := range views {
		view := &views[i]
		g.Go(func() error {
			properties := make(map[string]PropertyValue)
			for _, name := range rel.FlagProperties {
				value, ok, err := r.resolveProperty(ctx, view.RelNodeID, name, filter)
				if err != nil {
					return err
				}
				if ok {
					properties[name] = value
				}
			}
			for _, name := range rel.NodeProperties {
				value, ok, err := r.resolveProperty(ctx, view.RelNodeID, name, filter)
				if err != nil {
					return err
				}
				if ok {
					properties[name] = value
				}
			}
			view.Properties = properties
			return nil
		})
	}
	return g.Wait()
}

func (r *Resolver) resolveProperty(ctx context.Context, relNodeID, name string, filter visibility.Filter) (PropertyValue, bool, error) {
	records, err := r.store.PropertyEdges(ctx, relNodeID, name)
	if err != nil {
		return PropertyValue{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "load property edges")
	}
	edges := make([]graph.Edge, len(records))
	for i, record := range records {
		edges[i] = record.Edge
	}
	idx, ok := filter.WinnerIndex(edges)
	if !ok || edges[idx].Status != graph.StatusActive {
		return PropertyValue{}, false, nil
	}

	record := records[idx]
	value := PropertyValue{Name: name, Edge: record.Edge}
	if record.Flag != nil {
		value.Flag = record.Flag
	} else {
		value.NodeID = record.ValueNodeID
	}
	return value, true, nil
}

// applyAttributeFilters narrows the candidate set one filter at a time,
// each an isolated evaluation of the peer under the same view.
func (r *Resolver) applyAttributeFilters(ctx context.Context, views []PeerView, rel schema.RelationshipSchema, filter visibility.Filter, attrFilters []AttributeFilter) ([]PeerView, error) {
	for _, attrFilter := range attrFilters {
		if !rel.Filterable(attrFilter.Field) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "field %s is not filterable on %s", attrFilter.Field, rel.Name)
		}
		if err := graph.ValidateIdentifier(attrFilter.Field); err != nil {
			return nil, err
		}

		kept := views[:0]
		for _, view := range views {
			value, ok, err := r.attributeValue(ctx, view.PeerID, attrFilter.Field, filter)
			if err != nil {
				return nil, err
			}
			if ok && value == attrFilter.Value {
				kept = append(kept, view)
			}
		}
		views = kept
	}
	return views, nil
}

func (r *Resolver) attributeValue(ctx context.Context, nodeID, field string, filter visibility.Filter) (string, bool, error) {
	records, err := r.store.AttributeEdges(ctx, nodeID, field)
	if err != nil {
		return "", false, dErrors.Wrap(err, dErrors.CodeInternal, "load attribute edges")
	}
	edges := make([]graph.Edge, len(records))
	for i, record := range records {
		edges[i] = record.Edge
	}
	idx, ok := filter.WinnerIndex(edges)
	if !ok || edges[idx].Status != graph.StatusActive {
		return "", false, nil
	}
	return records[idx].Value, true, nil
}

// order sorts views by the declared order fields, one sortable key per
// field, composed in declaration order. Peer ID ascending is always the
// final key, which also makes the no-order-fields case deterministic.
func (r *Resolver) order(ctx context.Context, views []PeerView, rel schema.RelationshipSchema, filter visibility.Filter, orderBy []OrderField) error {
	type sortKey struct {
		values []string
	}
	keys := make([]sortKey, len(views))

	for _, field := range orderBy {
		if !rel.Orderable(field.Field) {
			return dErrors.Newf(dErrors.CodeValidation, "field %s is not orderable on %s", field.Field, rel.Name)
		}
		if err := graph.ValidateIdentifier(field.Field); err != nil {
			return err
		}
		for i, view := range views {
			value, _, err := r.attributeValue(ctx, view.PeerID, field.Field, filter)
			if err != nil {
				return err
			}
			keys[i].values = append(keys[i].values, value)
		}
	}

	// Sort a permutation so keys and views stay aligned.
	idx := make([]int, len(views))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool {
		i, j := idx[x], idx[y]
		for k, field := range orderBy {
			if c := strings.Compare(keys[i].values[k], keys[j].values[k]); c != 0 {
				if field.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		return views[i].PeerID < views[j].PeerID
	})

	sorted := make([]PeerView, len(views))
	for pos, i := range idx {
		sorted[pos] = views[i]
	}
	copy(views, sorted)
	return nil
}
