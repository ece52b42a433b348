package e2e_harness

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lychee-technology/metagraph"
	"github.com/lychee-technology/metagraph/factory"
)

func TestE2EConnectionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E harness in -short mode")
	}
	ctx := context.Background()
	h := &TestHarness{}

	if _, err := h.StartPostgres(ctx); err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	defer h.StopPostgres(ctx)

	if err := CreateGraphTables(ctx, h.PGDB); err != nil {
		t.Fatalf("create graph tables: %v", err)
	}

	pool, err := pgxpool.New(ctx, h.PGDSN)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	sync, err := factory.NewSynchronizerWithConfig(metagraph.DefaultConfig(), pool)
	if err != nil {
		t.Fatalf("create synchronizer: %v", err)
	}

	conn := &metagraph.Connection{
		QualifiedName: "conn.warehouse",
		DisplayName:   "Warehouse",
		ConnectorType: &metagraph.ConnectorType{QualifiedName: "ct.postgres", DisplayName: "PostgreSQL"},
		Endpoint:      &metagraph.Endpoint{QualifiedName: "ep.warehouse", NetworkAddress: "wh:5432"},
	}

	rootID, err := sync.SaveConnection(ctx, conn)
	if err != nil {
		t.Fatalf("save connection: %v", err)
	}

	// Saving again must reuse the same root node.
	againID, err := sync.SaveConnection(ctx, conn)
	if err != nil {
		t.Fatalf("save connection again: %v", err)
	}
	if rootID != againID {
		t.Fatalf("expected idempotent save, got %s then %s", rootID, againID)
	}

	loaded, err := sync.GetConnection(ctx, rootID)
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if loaded.Endpoint == nil || loaded.Endpoint.NetworkAddress != "wh:5432" {
		t.Fatalf("endpoint not round-tripped: %+v", loaded.Endpoint)
	}

	ids, err := sync.MaterializePath(ctx, "s3://lake/raw/orders.csv", "")
	if err != nil {
		t.Fatalf("materialize path: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("expected 4 nodes for scheme/folder/folder/leaf, got %d", len(ids))
	}

	if err := sync.RemoveConnection(ctx, rootID); err != nil {
		t.Fatalf("remove connection: %v", err)
	}
	if _, err := sync.GetConnection(ctx, rootID); !metagraph.IsNotFoundError(err) {
		t.Fatalf("expected not-found after removal, got %v", err)
	}
}
