package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsCreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lychee-technology/metagraph"
	"github.com/lychee-technology/metagraph/factory"
)

// metagraph-crawler lists an S3 bucket and materializes a folder chain
// plus data-file leaf for every object key, so the bucket's layout shows
// up in the graph store without hand-registering each file.

type crawlerOptions struct {
	bucket     string
	prefix     string
	region     string
	dbURL      string
	pageSize   int
	nodesTable string
	edgesTable string
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		sugar.Fatalf("crawler: %v", err)
	}

	if err := run(context.Background(), opts); err != nil {
		sugar.Fatalf("crawler: %v", err)
	}
}

func parseFlags(args []string) (crawlerOptions, error) {
	flags := flag.NewFlagSet("crawler", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)

	opts := crawlerOptions{}
	flags.StringVar(&opts.bucket, "bucket", os.Getenv("CRAWLER_BUCKET"), "S3 bucket to crawl (required)")
	flags.StringVar(&opts.prefix, "prefix", os.Getenv("CRAWLER_PREFIX"), "key prefix to restrict the crawl")
	flags.StringVar(&opts.region, "region", os.Getenv("AWS_REGION"), "AWS region override")
	flags.StringVar(&opts.dbURL, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (required)")
	flags.IntVar(&opts.pageSize, "page-size", 1000, "S3 list page size")
	flags.StringVar(&opts.nodesTable, "nodes-table", getenvDefault("NODES_TABLE", "graph_nodes"), "graph nodes table name")
	flags.StringVar(&opts.edgesTable, "edges-table", getenvDefault("EDGES_TABLE", "graph_edges"), "graph edges table name")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if opts.bucket == "" || opts.dbURL == "" {
		flags.Usage()
		return opts, fmt.Errorf("bucket and db-url are required")
	}
	return opts, nil
}

func run(ctx context.Context, opts crawlerOptions) error {
	sugar := zap.S()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	if opts.region != "" {
		awsCfg.Region = opts.region
	}
	if envKey := os.Getenv("AWS_ACCESS_KEY_ID"); envKey != "" {
		// ensure credentials provider from env used explicitly
		awsCfg.Credentials = awsCreds.NewStaticCredentialsProvider(os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"), "")
	}
	s3Client := s3.NewFromConfig(awsCfg)

	pool, err := pgxpool.New(ctx, opts.dbURL)
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

	crawled := 0
	paginator := s3.NewListObjectsV2Paginator(s3Client, &s3.ListObjectsV2Input{
		Bucket:  &opts.bucket,
		Prefix:  &opts.prefix,
		MaxKeys: int32Ptr(opts.pageSize),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}
		for _, object := range page.Contents {
			if object.Key == nil {
				continue
			}
			path := fmt.Sprintf("s3://%s/%s", opts.bucket, *object.Key)
			ids, err := sync.MaterializePath(ctx, path, "")
			if err != nil {
				sugar.Errorw("materialize failed", "path", path, "err", err)
				continue
			}
			crawled++
			sugar.Debugw("materialized", "path", path, "nodes", len(ids))
		}
	}

	sugar.Infow("crawl complete", "bucket", opts.bucket, "prefix", opts.prefix, "objects", crawled)
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func int32Ptr(v int) *int32 {
	n := int32(v)
	return &n
}
