package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGraphTables creates the node and edge tables plus the indexes
// the graph store relies on, mirroring what metagraph-tools init-db
// does for a real deployment.
func CreateGraphTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS graph_nodes (
			id                 UUID PRIMARY KEY,
			type_kind          TEXT NOT NULL,
			qualified_name     TEXT NOT NULL,
			display_name       TEXT NOT NULL DEFAULT '',
			properties         JSONB NOT NULL DEFAULT '{}',
			external_source_id TEXT NOT NULL DEFAULT '',
			created_at         BIGINT NOT NULL,
			updated_at         BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edges (
			kind               TEXT NOT NULL,
			source_id          UUID NOT NULL,
			target_id          UUID NOT NULL,
			properties         JSONB NOT NULL DEFAULT '{}',
			external_source_id TEXT NOT NULL DEFAULT '',
			created_at         BIGINT NOT NULL,
			PRIMARY KEY (kind, source_id, target_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_graph_nodes_unique_name ON graph_nodes (type_kind, qualified_name)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_nodes_display_name ON graph_nodes (type_kind, display_name)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges (kind, target_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create graph tables: %w", err)
		}
	}
	return nil
}
