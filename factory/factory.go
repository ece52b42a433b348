package factory

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lychee-technology/metagraph"
	"github.com/lychee-technology/metagraph/internal"
)

// NewSynchronizerWithConfig creates a Synchronizer backed by PostgreSQL.
// This is the primary way for external projects to create a Synchronizer
// instance. The node and edge tables must already exist; use the
// metagraph-tools init-db command to create them.
//
// Usage:
//
//	config := metagraph.DefaultConfig()
//	sync, err := factory.NewSynchronizerWithConfig(config, pool)
//	if err != nil {
//	    // handle error
//	}
func NewSynchronizerWithConfig(config *metagraph.Config, pool *pgxpool.Pool) (metagraph.Synchronizer, error) {
	if config == nil {
		config = metagraph.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rows, err := pool.Query(context.Background(), `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE';`)
	if err != nil {
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	names := config.Database.TableNames
	if !slices.Contains(tables, names.Nodes) || !slices.Contains(tables, names.Edges) {
		return nil, fmt.Errorf("required tables %q and %q are missing in the database", names.Nodes, names.Edges)
	}

	store := internal.NewPostgresGraphStore(pool, names)
	return internal.NewSynchronizer(store, config), nil
}

// NewInMemorySynchronizer creates a Synchronizer over an in-memory graph
// store. Intended for embedded use and tests; nothing survives the
// process.
func NewInMemorySynchronizer(config *metagraph.Config) (metagraph.Synchronizer, error) {
	if config == nil {
		config = metagraph.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return internal.NewSynchronizer(internal.NewMemoryGraphStore(), config), nil
}

// NewSchemaImporter creates a JSON Schema importer writing through the
// given Synchronizer.
func NewSchemaImporter(sync metagraph.Synchronizer) *internal.SchemaImporter {
	return internal.NewSchemaImporter(sync)
}
