package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lychee-technology/metagraph"
	"github.com/lychee-technology/metagraph/factory"
)

type importSchemaOptions struct {
	initDBOptions
	schemaFile string
	namePrefix string
}

func runImportSchema(args []string) error {
	flags := flag.NewFlagSet("import-schema", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: metagraph-tools import-schema [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	opts := importSchemaOptions{}
	flags.StringVar(&opts.host, "db-host", getenvDefault("DB_HOST", "localhost"), "database host")
	flags.IntVar(&opts.port, "db-port", getenvDefaultInt("DB_PORT", 5432), "database port")
	flags.StringVar(&opts.database, "db-name", getenvDefault("DB_NAME", "metagraph"), "database name")
	flags.StringVar(&opts.user, "db-user", getenvDefault("DB_USER", "postgres"), "database user")
	flags.StringVar(&opts.password, "db-password", getenvDefault("DB_PASSWORD", "postgres"), "database password")
	flags.StringVar(&opts.sslMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", "disable"), "database sslmode")
	flags.StringVar(&opts.nodesTable, "nodes-table", getenvDefault("NODES_TABLE", "graph_nodes"), "graph nodes table name")
	flags.StringVar(&opts.edgesTable, "edges-table", getenvDefault("EDGES_TABLE", "graph_edges"), "graph edges table name")
	flags.StringVar(&opts.schemaFile, "schema-file", "", "path of the JSON schema file to import (required)")
	flags.StringVar(&opts.namePrefix, "name-prefix", "", "qualified name prefix of the imported type (required)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.schemaFile == "" || opts.namePrefix == "" {
		flags.Usage()
		return fmt.Errorf("schema-file and name-prefix are required")
	}

	return importSchema(opts)
}

func importSchema(opts importSchemaOptions) error {
	ctx := context.Background()

	raw, err := os.ReadFile(opts.schemaFile)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}

	pool, err := pgxpool.New(ctx, buildConnString(opts.initDBOptions))
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	config := metagraph.DefaultConfig()
	config.Database.TableNames.Nodes = opts.nodesTable
	config.Database.TableNames.Edges = opts.edgesTable

	sync, err := factory.NewSynchronizerWithConfig(config, pool)
	if err != nil {
		return err
	}

	rootID, err := factory.NewSchemaImporter(sync).Import(ctx, opts.namePrefix, raw)
	if err != nil {
		return err
	}

	fmt.Printf("Imported schema %s as node %s\n", opts.schemaFile, rootID)
	return nil
}
