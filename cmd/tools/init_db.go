package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type initDBOptions struct {
	host       string
	port       int
	database   string
	user       string
	password   string
	sslMode    string
	nodesTable string
	edgesTable string
}

func runInitDB(args []string) error {
	flags := flag.NewFlagSet("init-db", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: metagraph-tools init-db [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	opts := initDBOptions{}
	flags.StringVar(&opts.host, "db-host", getenvDefault("DB_HOST", "localhost"), "database host")
	flags.IntVar(&opts.port, "db-port", getenvDefaultInt("DB_PORT", 5432), "database port")
	flags.StringVar(&opts.database, "db-name", getenvDefault("DB_NAME", "metagraph"), "database name")
	flags.StringVar(&opts.user, "db-user", getenvDefault("DB_USER", "postgres"), "database user")
	flags.StringVar(&opts.password, "db-password", getenvDefault("DB_PASSWORD", "postgres"), "database password")
	flags.StringVar(&opts.sslMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", "disable"), "database sslmode")
	flags.StringVar(&opts.nodesTable, "nodes-table", getenvDefault("NODES_TABLE", "graph_nodes"), "graph nodes table name")
	flags.StringVar(&opts.edgesTable, "edges-table", getenvDefault("EDGES_TABLE", "graph_edges"), "graph edges table name")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return initDatabase(opts)
}

func initDatabase(opts initDBOptions) error {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, buildConnString(opts))
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := withTx(ctx, conn, func(tx pgx.Tx) error {
		return ensureTables(ctx, tx, opts)
	}); err != nil {
		return err
	}

	fmt.Println("Database initialized successfully.")
	return nil
}

func buildConnString(opts initDBOptions) string {
	hostPort := fmt.Sprintf("%s:%d", opts.host, opts.port)

	var userInfo *url.Userinfo
	if opts.password != "" {
		userInfo = url.UserPassword(opts.user, opts.password)
	} else {
		userInfo = url.User(opts.user)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   hostPort,
		Path:   "/" + opts.database,
	}

	q := url.Values{}
	if opts.sslMode != "" {
		q.Set("sslmode", opts.sslMode)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func ensureTables(ctx context.Context, tx pgx.Tx, opts initDBOptions) error {
	nodesTable := quoteIdentifier(opts.nodesTable)
	edgesTable := quoteIdentifier(opts.edgesTable)

	ddlNodes := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id                 UUID PRIMARY KEY,
		type_kind          TEXT NOT NULL,
		qualified_name     TEXT NOT NULL,
		display_name       TEXT NOT NULL DEFAULT '',
		properties         JSONB NOT NULL DEFAULT '{}',
		external_source_id TEXT NOT NULL DEFAULT '',
		created_at         BIGINT NOT NULL,
		updated_at         BIGINT NOT NULL
	)`, nodesTable)

	if _, err := tx.Exec(ctx, ddlNodes); err != nil {
		return fmt.Errorf("ensure nodes table: %w", err)
	}
	fmt.Printf("Created nodes table: %s\n", opts.nodesTable)

	ddlEdges := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		kind               TEXT NOT NULL,
		source_id          UUID NOT NULL,
		target_id          UUID NOT NULL,
		properties         JSONB NOT NULL DEFAULT '{}',
		external_source_id TEXT NOT NULL DEFAULT '',
		created_at         BIGINT NOT NULL,
		PRIMARY KEY (kind, source_id, target_id)
	)`, edgesTable)

	if _, err := tx.Exec(ctx, ddlEdges); err != nil {
		return fmt.Errorf("ensure edges table: %w", err)
	}
	fmt.Printf("Created edges table: %s\n", opts.edgesTable)

	idxName := quoteIdentifier(makeIndexName(opts.nodesTable, "unique_name"))
	createIdxName := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (type_kind, qualified_name)`, idxName, nodesTable)
	if _, err := tx.Exec(ctx, createIdxName); err != nil {
		return fmt.Errorf("create unique name index: %w", err)
	}

	idxDisplay := quoteIdentifier(makeIndexName(opts.nodesTable, "display_name"))
	createIdxDisplay := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (type_kind, display_name)`, idxDisplay, nodesTable)
	if _, err := tx.Exec(ctx, createIdxDisplay); err != nil {
		return fmt.Errorf("create display name index: %w", err)
	}

	idxTarget := quoteIdentifier(makeIndexName(opts.edgesTable, "target"))
	createIdxTarget := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (kind, target_id)`, idxTarget, edgesTable)
	if _, err := tx.Exec(ctx, createIdxTarget); err != nil {
		return fmt.Errorf("create target index: %w", err)
	}

	return nil
}

func withTx(ctx context.Context, conn *pgxpool.Conn, fn func(pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func makeIndexName(table, suffix string) string {
	return fmt.Sprintf("idx_%s_%s", table, suffix)
}
