package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/metagraph"
)

func newMaterializer(t *testing.T) (*MemoryGraphStore, *pathMaterializer) {
	t.Helper()
	store := NewMemoryGraphStore()
	resolver := newIdentityResolver(store)
	edges := newRelationshipReconciler(store, 100)
	return store, newPathMaterializer(store, resolver, edges, pathCfg())
}

func TestMaterializeCreatesFullChain(t *testing.T) {
	ctx := context.Background()
	store, materializer := newMaterializer(t)

	ids, err := materializer.Materialize(ctx, "s3://bucket/raw/orders.csv", "")
	require.NoError(t, err)
	require.Len(t, ids, 4)

	root, err := store.GetNodeByID(ctx, ids[0], metagraph.TypeKindFileSystem)
	require.NoError(t, err)
	assert.Equal(t, "s3://", root.QualifiedName)
	assert.Equal(t, "s3", root.DisplayName)

	bucket, err := store.GetNodeByID(ctx, ids[1], metagraph.TypeKindFolder)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket", bucket.QualifiedName)

	raw, err := store.GetNodeByID(ctx, ids[2], metagraph.TypeKindFolder)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/raw", raw.QualifiedName)

	leaf, err := store.GetNodeByID(ctx, ids[3], metagraph.TypeKindDataFile)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/raw/orders.csv", leaf.QualifiedName)

	// Chain edges: capability at the root, hierarchy between folders,
	// nesting for the file.
	edge, err := store.GetEdgeByKind(ctx, ids[0], metagraph.EdgeKindCapabilityFolder)
	require.NoError(t, err)
	assert.Equal(t, ids[1], edge.TargetID)

	edge, err = store.GetEdgeByKind(ctx, ids[1], metagraph.EdgeKindFolderHierarchy)
	require.NoError(t, err)
	assert.Equal(t, ids[2], edge.TargetID)

	edge, err = store.GetEdgeByKind(ctx, ids[2], metagraph.EdgeKindNestedFile)
	require.NoError(t, err)
	assert.Equal(t, ids[3], edge.TargetID)
}

func TestMaterializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, materializer := newMaterializer(t)

	first, err := materializer.Materialize(ctx, "s3://bucket/raw/orders.csv", "")
	require.NoError(t, err)
	nodesAfterFirst := store.NodeCount()
	edgesAfterFirst := store.EdgeCount()

	second, err := materializer.Materialize(ctx, "s3://bucket/raw/orders.csv", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, nodesAfterFirst, store.NodeCount())
	assert.Equal(t, edgesAfterFirst, store.EdgeCount())
}

func TestMaterializeReusesSharedPrefix(t *testing.T) {
	ctx := context.Background()
	store, materializer := newMaterializer(t)

	first, err := materializer.Materialize(ctx, "s3://bucket/raw/orders.csv", "")
	require.NoError(t, err)

	second, err := materializer.Materialize(ctx, "s3://bucket/raw/customers.csv", "")
	require.NoError(t, err)

	assert.Equal(t, first[:3], second[:3])
	assert.NotEqual(t, first[3], second[3])
	// root + 2 folders + 2 leaves
	assert.Equal(t, 5, store.NodeCount())
}

func TestMaterializeLeafDirectlyUnderScheme(t *testing.T) {
	ctx := context.Background()
	store, materializer := newMaterializer(t)

	ids, err := materializer.Materialize(ctx, "s3://inventory", "")
	require.NoError(t, err)
	require.Len(t, ids, 2)

	// No extension means a data folder leaf, attached with a capability edge.
	_, err = store.GetNodeByID(ctx, ids[1], metagraph.TypeKindDataFolder)
	require.NoError(t, err)

	edge, err := store.GetEdgeByKind(ctx, ids[0], metagraph.EdgeKindCapabilityAsset)
	require.NoError(t, err)
	assert.Equal(t, ids[1], edge.TargetID)
}

func TestMaterializeReusesPrecreatedLeaf(t *testing.T) {
	ctx := context.Background()
	store, materializer := newMaterializer(t)

	precreated, err := store.CreateNode(ctx, metagraph.Node{
		TypeKind:      metagraph.TypeKindDataFile,
		QualifiedName: "s3://bucket/orders",
		DisplayName:   "orders",
	}, "")
	require.NoError(t, err)

	ids, err := materializer.Materialize(ctx, "s3://bucket/orders", "")
	require.NoError(t, err)
	// The extension heuristic would have made a data folder; the
	// pre-created data file wins because lookup runs before creation.
	assert.Equal(t, precreated, ids[len(ids)-1])
}

func TestMaterializeUnderExplicitAnchor(t *testing.T) {
	ctx := context.Background()
	store, materializer := newMaterializer(t)

	base, err := materializer.Materialize(ctx, "s3://bucket/raw", "")
	require.NoError(t, err)
	// s3://bucket/raw has no extension: leaf is a data folder, so anchor
	// under the bucket folder instead.
	anchorID := base[1]

	ids, err := materializer.Materialize(ctx, "archive/2024.parquet", anchorID)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	folder, err := store.GetNodeByID(ctx, ids[0], metagraph.TypeKindFolder)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/archive", folder.QualifiedName)

	leaf, err := store.GetNodeByID(ctx, ids[1], metagraph.TypeKindDataFile)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/archive/2024.parquet", leaf.QualifiedName)

	edge, err := store.GetEdgeByKind(ctx, anchorID, metagraph.EdgeKindFolderHierarchy)
	require.NoError(t, err)
	assert.Equal(t, ids[0], edge.TargetID)
}

func TestMaterializeRejectsBadAnchor(t *testing.T) {
	ctx := context.Background()
	store, materializer := newMaterializer(t)

	connID := seedNode(t, store, metagraph.TypeKindConnection, "conn.a", "")

	_, err := materializer.Materialize(ctx, "a/b.csv", connID)
	require.Error(t, err)
	assert.True(t, metagraph.IsInvalidInputError(err))
}

func TestMaterializeMalformedPathCreatesNothing(t *testing.T) {
	ctx := context.Background()
	store, materializer := newMaterializer(t)

	_, err := materializer.Materialize(ctx, "s3://bucket//orders.csv", "")
	require.Error(t, err)
	assert.True(t, metagraph.IsInvalidInputError(err))
	assert.Equal(t, 0, store.NodeCount())
}
