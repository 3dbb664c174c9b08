package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stategraph/internal/core/timestamp"
	"stategraph/pkg/platform/sentinel"
)

// PostgresStore persists the property graph in two append-only tables.
// Edges are never updated or deleted; Commit wraps every EdgeSet in one SQL
// transaction so readers only ever see fully applied sets.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL for the graph tables. Kept idempotent so integration
// tests and first-time bootstrap can apply it unconditionally.
const Schema = `
CREATE TABLE IF NOT EXISTS graph_nodes (
    id   TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS graph_nodes_kind_idx ON graph_nodes (kind);
CREATE INDEX IF NOT EXISTS graph_nodes_kind_name_idx ON graph_nodes (kind, name);

CREATE TABLE IF NOT EXISTS graph_edges (
    id           TEXT PRIMARY KEY,
    from_id      TEXT NOT NULL REFERENCES graph_nodes (id),
    to_id        TEXT NOT NULL REFERENCES graph_nodes (id),
    label        TEXT NOT NULL,
    branch       TEXT NOT NULL,
    branch_level INT  NOT NULL,
    status       TEXT NOT NULL,
    from_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS graph_edges_from_idx ON graph_edges (from_id, label);
CREATE INDEX IF NOT EXISTS graph_edges_to_idx ON graph_edges (to_id, label);
`

// EnsureSchema applies the graph DDL.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetNode(ctx context.Context, id string) (Node, error) {
	var node Node
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, name FROM graph_nodes WHERE id = $1`, id,
	).Scan(&node.ID, &node.Kind, &node.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Node{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Node{}, fmt.Errorf("get node: %w", err)
	}
	return node, nil
}

func (s *PostgresStore) RelationshipCandidates(ctx context.Context, sourceID, identifier string) ([]RelationshipRecord, error) {
	// All endpoint edges of every relationship-node with this identifier
	// that the source is attached to, both sides, every version layer.
	rows, err := s.db.QueryContext(ctx, `
		SELECT rl.id, e.from_id, e.id, e.branch, e.branch_level, e.status, e.from_at
		FROM graph_nodes rl
		JOIN graph_edges e ON e.to_id = rl.id AND e.label = $3
		WHERE rl.kind = $4
		  AND rl.name = $1
		  AND rl.id IN (
			SELECT to_id FROM graph_edges WHERE from_id = $2 AND label = $3
		  )
		ORDER BY rl.id, e.from_at`,
		identifier, sourceID, LabelRelated, KindRelationship)
	if err != nil {
		return nil, fmt.Errorf("relationship candidates: %w", err)
	}
	defer rows.Close()

	type key struct{ relNodeID, peerID string }
	sourceEdges := make(map[string][]Edge)
	perPeer := make(map[key]*RelationshipRecord)
	var order []key

	for rows.Next() {
		var relNodeID, fromID string
		var edge Edge
		var fromAt string
		if err := rows.Scan(&relNodeID, &fromID, &edge.ID, &edge.Branch, &edge.BranchLevel, &edge.Status, &fromAt); err != nil {
			return nil, fmt.Errorf("scan relationship edge: %w", err)
		}
		edge.From, err = timestamp.Parse(fromAt)
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", edge.ID, err)
		}
		if fromID == sourceID {
			sourceEdges[relNodeID] = append(sourceEdges[relNodeID], edge)
			continue
		}
		k := key{relNodeID: relNodeID, peerID: fromID}
		rec, ok := perPeer[k]
		if !ok {
			rec = &RelationshipRecord{
				RelNodeID:  relNodeID,
				Identifier: identifier,
				SourceID:   sourceID,
				PeerID:     fromID,
			}
			perPeer[k] = rec
			order = append(order, k)
		}
		rec.PeerEdges = append(rec.PeerEdges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relationship candidates: %w", err)
	}

	records := make([]RelationshipRecord, 0, len(order))
	for _, k := range order {
		rec := perPeer[k]
		rec.SourceEdges = append([]Edge(nil), sourceEdges[k.relNodeID]...)
		records = append(records, *rec)
	}
	return records, nil
}

func (s *PostgresStore) PropertyEdges(ctx context.Context, relNodeID, name string) ([]PropertyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.to_id, n.kind, n.name, e.id, e.branch, e.branch_level, e.status, e.from_at
		FROM graph_edges e
		JOIN graph_nodes n ON n.id = e.to_id
		WHERE e.from_id = $1 AND e.label = $2
		ORDER BY e.from_at`,
		relNodeID, name)
	if err != nil {
		return nil, fmt.Errorf("property edges: %w", err)
	}
	defer rows.Close()

	var records []PropertyRecord
	for rows.Next() {
		var record PropertyRecord
		var targetKind, targetName, fromAt string
		if err := rows.Scan(&record.ValueNodeID, &targetKind, &targetName, &record.Edge.ID,
			&record.Edge.Branch, &record.Edge.BranchLevel, &record.Edge.Status, &fromAt); err != nil {
			return nil, fmt.Errorf("scan property edge: %w", err)
		}
		record.Name = name
		record.Edge.From, err = timestamp.Parse(fromAt)
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", record.Edge.ID, err)
		}
		if targetKind == KindBoolean {
			flag := targetName == "true"
			record.Flag = &flag
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) AttributeEdges(ctx context.Context, nodeID, attribute string) ([]AttributeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.name, e.id, e.branch, e.branch_level, e.status, e.from_at
		FROM graph_edges e
		JOIN graph_nodes n ON n.id = e.to_id
		WHERE e.from_id = $1 AND e.label = $2
		ORDER BY e.from_at`,
		nodeID, attribute)
	if err != nil {
		return nil, fmt.Errorf("attribute edges: %w", err)
	}
	defer rows.Close()

	var records []AttributeRecord
	for rows.Next() {
		var record AttributeRecord
		var fromAt string
		if err := rows.Scan(&record.Value, &record.Edge.ID, &record.Edge.Branch,
			&record.Edge.BranchLevel, &record.Edge.Status, &fromAt); err != nil {
			return nil, fmt.Errorf("scan attribute edge: %w", err)
		}
		record.Edge.From, err = timestamp.Parse(fromAt)
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", record.Edge.ID, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) CountNodesByKind(ctx context.Context, kind string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM graph_nodes WHERE kind = $1`, kind,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count nodes by kind: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Commit(ctx context.Context, set EdgeSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin edge set: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, op := range set.Ops {
		switch op.Kind {
		case OpCreateNode:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO graph_nodes (id, kind, name) VALUES ($1, $2, $3)`,
				op.Node.ID, op.Node.Kind, op.Node.Name)
		case OpEnsureNode:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO graph_nodes (id, kind, name) VALUES ($1, $2, $3)
				 ON CONFLICT (id) DO NOTHING`,
				op.Node.ID, op.Node.Kind, op.Node.Name)
		case OpAppendEdge:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO graph_edges (id, from_id, to_id, label, branch, branch_level, status, from_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				op.Edge.Edge.ID, op.Edge.FromID, op.Edge.ToID, op.Edge.Label,
				op.Edge.Edge.Branch, op.Edge.Edge.BranchLevel, op.Edge.Edge.Status,
				op.Edge.Edge.From.String())
		default:
			err = fmt.Errorf("unknown op kind %q", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("apply %s: %w", op.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit edge set: %w", err)
	}
	return nil
}
