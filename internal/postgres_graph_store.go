package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/metagraph"
	"go.uber.org/zap"
)

// PostgresGraphStore implements the GraphStore interface over two
// PostgreSQL tables: one for nodes, one for edges. Qualified-name
// uniqueness per type kind is enforced by a unique index created by the
// init-db tool; the store itself only reports what it finds.
type PostgresGraphStore struct {
	pool    graphStoreConn
	tables  metagraph.TableNames
	nowFunc func() time.Time
}

// graphStoreConn is the minimal connection surface the store uses, kept
// narrow so pgxmock can stand in for a real pool in tests.
type graphStoreConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// NewPostgresGraphStore creates a GraphStore backed by PostgreSQL.
func NewPostgresGraphStore(pool graphStoreConn, tables metagraph.TableNames) *PostgresGraphStore {
	return &PostgresGraphStore{
		pool:    pool,
		tables:  tables,
		nowFunc: time.Now,
	}
}

// sanitizeIdentifier truncates a SQL identifier at the first rune
// outside [a-zA-Z0-9_], so trailing injected text is cut off rather
// than collapsed into the name. Table names come from configuration,
// never from callers.
func sanitizeIdentifier(name string) string {
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return name[:i]
		}
	}
	return name
}

func (s *PostgresGraphStore) nowMillis() int64 {
	if s.nowFunc == nil {
		return time.Now().UnixMilli()
	}
	return s.nowFunc().UnixMilli()
}

func (s *PostgresGraphStore) nodesTable() string {
	return sanitizeIdentifier(s.tables.Nodes)
}

func (s *PostgresGraphStore) edgesTable() string {
	return sanitizeIdentifier(s.tables.Edges)
}

func marshalProperties(props map[string]any) ([]byte, error) {
	if props == nil {
		props = map[string]any{}
	}
	return json.Marshal(props)
}

func unmarshalProperties(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	return props, nil
}

func parseNodeID(nodeID string) (uuid.UUID, error) {
	id, err := uuid.Parse(nodeID)
	if err != nil {
		return uuid.Nil, metagraph.NewInvalidInputError("nodeId", "node id is not a valid uuid").WithDetail("nodeId", nodeID)
	}
	return id, nil
}

func (s *PostgresGraphStore) CreateNode(ctx context.Context, node metagraph.Node, externalSourceID string) (string, error) {
	id := uuid.New()
	props, err := marshalProperties(node.Properties)
	if err != nil {
		return "", metagraph.NewStoreFailureError("createNode", err)
	}
	now := s.nowMillis()
	query := fmt.Sprintf(
		`INSERT INTO %s (id, type_kind, qualified_name, display_name, properties, external_source_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.nodesTable(),
	)
	if _, err := s.exec(ctx, query, id, string(node.TypeKind), node.QualifiedName, node.DisplayName, props, externalSourceID, now, now); err != nil {
		return "", metagraph.NewStoreFailureError("createNode", err)
	}
	return id.String(), nil
}

func (s *PostgresGraphStore) GetNodeByID(ctx context.Context, nodeID string, expected metagraph.TypeKind) (*metagraph.Node, error) {
	id, err := parseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT id, type_kind, qualified_name, display_name, properties FROM %s WHERE id = $1 AND type_kind = $2`,
		s.nodesTable(),
	)
	node, err := s.scanNode(s.pool.QueryRow(ctx, query, id, string(expected)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, metagraph.NewNodeNotFoundError(nodeID, expected)
	}
	if err != nil {
		return nil, metagraph.NewStoreFailureError("getNodeById", err)
	}
	return node, nil
}

// GetNodeByUniqueName matches the qualified name first and falls back to
// display names. More than one match is surfaced as ambiguous, never
// silently resolved.
func (s *PostgresGraphStore) GetNodeByUniqueName(ctx context.Context, name string, kind metagraph.TypeKind) (*metagraph.Node, error) {
	query := fmt.Sprintf(
		`SELECT id, type_kind, qualified_name, display_name, properties FROM %s
			WHERE type_kind = $1 AND (qualified_name = $2 OR display_name = $2)`,
		s.nodesTable(),
	)
	rows, err := s.pool.Query(ctx, query, string(kind), name)
	if err != nil {
		return nil, metagraph.NewStoreFailureError("getNodeByUniqueName", err)
	}
	defer rows.Close()

	var byQualified, byDisplay []*metagraph.Node
	for rows.Next() {
		node, err := s.scanNode(rows)
		if err != nil {
			return nil, metagraph.NewStoreFailureError("getNodeByUniqueName", err)
		}
		if node.QualifiedName == name {
			byQualified = append(byQualified, node)
		} else {
			byDisplay = append(byDisplay, node)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, metagraph.NewStoreFailureError("getNodeByUniqueName", err)
	}

	matches := byQualified
	if len(matches) == 0 {
		matches = byDisplay
	}
	switch len(matches) {
	case 0:
		return nil, metagraph.NewNameNotFoundError(name, kind)
	case 1:
		return matches[0], nil
	default:
		return nil, metagraph.NewAmbiguousNameError(name, kind, len(matches))
	}
}

func (s *PostgresGraphStore) UpdateNode(ctx context.Context, nodeID string, kind metagraph.TypeKind, displayName string, properties map[string]any) error {
	id, err := parseNodeID(nodeID)
	if err != nil {
		return err
	}
	props, err := marshalProperties(properties)
	if err != nil {
		return metagraph.NewStoreFailureError("updateNode", err)
	}
	query := fmt.Sprintf(
		`UPDATE %s SET display_name = $1, properties = $2, updated_at = $3 WHERE id = $4 AND type_kind = $5`,
		s.nodesTable(),
	)
	tag, err := s.exec(ctx, query, displayName, props, s.nowMillis(), id, string(kind))
	if err != nil {
		return metagraph.NewStoreFailureError("updateNode", err)
	}
	if tag == 0 {
		return metagraph.NewNodeNotFoundError(nodeID, kind)
	}
	return nil
}

func (s *PostgresGraphStore) IsNodeOfType(ctx context.Context, nodeID string, kind metagraph.TypeKind) (bool, error) {
	id, err := parseNodeID(nodeID)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND type_kind = $2)`,
		s.nodesTable(),
	)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, id, string(kind)).Scan(&exists); err != nil {
		return false, metagraph.NewStoreFailureError("isNodeOfType", err)
	}
	return exists, nil
}

// DeleteNode removes the node and every edge touching it in one
// transaction. Reference counting is the caller's responsibility.
func (s *PostgresGraphStore) DeleteNode(ctx context.Context, nodeID string) error {
	id, err := parseNodeID(nodeID)
	if err != nil {
		return err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return metagraph.NewStoreFailureError("deleteNode", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	edgeQuery := fmt.Sprintf(`DELETE FROM %s WHERE source_id = $1 OR target_id = $1`, s.edgesTable())
	if _, err := tx.Exec(ctx, edgeQuery, id); err != nil {
		return metagraph.NewStoreFailureError("deleteNode", err)
	}

	nodeQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.nodesTable())
	tag, err := tx.Exec(ctx, nodeQuery, id)
	if err != nil {
		return metagraph.NewStoreFailureError("deleteNode", err)
	}
	if tag.RowsAffected() == 0 {
		return metagraph.NewNodeNotFoundError(nodeID, "")
	}

	if err := tx.Commit(ctx); err != nil {
		return metagraph.NewStoreFailureError("deleteNode", err)
	}
	zap.S().Debugw("node deleted", "node", nodeID)
	return nil
}

func (s *PostgresGraphStore) CreateEdge(ctx context.Context, kind metagraph.EdgeKind, sourceID, targetID string, properties map[string]any, externalSourceID string) error {
	srcID, err := parseNodeID(sourceID)
	if err != nil {
		return err
	}
	dstID, err := parseNodeID(targetID)
	if err != nil {
		return err
	}
	props, err := marshalProperties(properties)
	if err != nil {
		return metagraph.NewStoreFailureError("createEdge", err)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (kind, source_id, target_id, properties, external_source_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (kind, source_id, target_id)
			DO UPDATE SET properties = EXCLUDED.properties`,
		s.edgesTable(),
	)
	if _, err := s.exec(ctx, query, string(kind), srcID, dstID, props, externalSourceID, s.nowMillis()); err != nil {
		return metagraph.NewStoreFailureError("createEdge", err)
	}
	return nil
}

func (s *PostgresGraphStore) GetEdgeByKind(ctx context.Context, nodeID string, kind metagraph.EdgeKind) (*metagraph.Edge, error) {
	id, err := parseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT kind, source_id, target_id, properties FROM %s
			WHERE kind = $1 AND (source_id = $2 OR target_id = $2)
			ORDER BY created_at LIMIT 1`,
		s.edgesTable(),
	)
	edge, err := s.scanEdge(s.pool.QueryRow(ctx, query, string(kind), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, metagraph.NewEdgeNotFoundError(nodeID, kind)
	}
	if err != nil {
		return nil, metagraph.NewStoreFailureError("getEdgeByKind", err)
	}
	return edge, nil
}

func (s *PostgresGraphStore) GetEdgesByKind(ctx context.Context, nodeID string, kind metagraph.EdgeKind, pageStart, pageSize int) ([]*metagraph.Edge, error) {
	id, err := parseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT kind, source_id, target_id, properties FROM %s
			WHERE kind = $1 AND (source_id = $2 OR target_id = $2)
			ORDER BY created_at OFFSET $3 LIMIT $4`,
		s.edgesTable(),
	)
	rows, err := s.pool.Query(ctx, query, string(kind), id, pageStart, pageSize)
	if err != nil {
		return nil, metagraph.NewStoreFailureError("getEdgesByKind", err)
	}
	defer rows.Close()

	var edges []*metagraph.Edge
	for rows.Next() {
		edge, err := s.scanEdge(rows)
		if err != nil {
			return nil, metagraph.NewStoreFailureError("getEdgesByKind", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, metagraph.NewStoreFailureError("getEdgesByKind", err)
	}
	return edges, nil
}

func (s *PostgresGraphStore) DeleteEdgesByKind(ctx context.Context, nodeID string, kind metagraph.EdgeKind) error {
	id, err := parseNodeID(nodeID)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE kind = $1 AND source_id = $2`, s.edgesTable())
	if _, err := s.exec(ctx, query, string(kind), id); err != nil {
		return metagraph.NewStoreFailureError("deleteEdgesByKind", err)
	}
	return nil
}

func (s *PostgresGraphStore) DeleteEdgeBetween(ctx context.Context, kind metagraph.EdgeKind, sourceID, targetID string) error {
	srcID, err := parseNodeID(sourceID)
	if err != nil {
		return err
	}
	dstID, err := parseNodeID(targetID)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE kind = $1 AND source_id = $2 AND target_id = $3`, s.edgesTable())
	if _, err := s.exec(ctx, query, string(kind), srcID, dstID); err != nil {
		return metagraph.NewStoreFailureError("deleteEdgeBetween", err)
	}
	return nil
}

func (s *PostgresGraphStore) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresGraphStore) scanNode(row pgx.Row) (*metagraph.Node, error) {
	var (
		id       uuid.UUID
		typeKind string
		qn       string
		display  string
		raw      []byte
	)
	if err := row.Scan(&id, &typeKind, &qn, &display, &raw); err != nil {
		return nil, err
	}
	props, err := unmarshalProperties(raw)
	if err != nil {
		return nil, err
	}
	return &metagraph.Node{
		ID:            id.String(),
		TypeKind:      metagraph.TypeKind(typeKind),
		QualifiedName: qn,
		DisplayName:   display,
		Properties:    props,
	}, nil
}

func (s *PostgresGraphStore) scanEdge(row pgx.Row) (*metagraph.Edge, error) {
	var (
		kind  string
		srcID uuid.UUID
		dstID uuid.UUID
		raw   []byte
	)
	if err := row.Scan(&kind, &srcID, &dstID, &raw); err != nil {
		return nil, err
	}
	props, err := unmarshalProperties(raw)
	if err != nil {
		return nil, err
	}
	return &metagraph.Edge{
		Kind:       metagraph.EdgeKind(kind),
		SourceID:   srcID.String(),
		TargetID:   dstID.String(),
		Properties: props,
	}, nil
}
