package metagraph

import (
	"context"
)

// GraphStore is the external repository connector the reconciliation
// core runs against. Implementations are expected to surface missing
// nodes and ambiguous name matches as GraphError values (not found /
// ambiguous) so callers can branch without string matching.
//
// The core never retries a failed store call and never wraps a sequence
// of calls in a transaction; every operation here is an independent
// request/response against the store.
type GraphStore interface {
	// CreateNode persists a new node and returns its store-assigned id.
	// The node's own ID field is ignored. externalSourceID attributes
	// the write to an external metadata source; empty means local.
	CreateNode(ctx context.Context, node Node, externalSourceID string) (string, error)

	// GetNodeByID returns the node if it exists and is of the expected
	// type kind.
	GetNodeByID(ctx context.Context, nodeID string, expected TypeKind) (*Node, error)

	// GetNodeByUniqueName looks a node up by its intended-unique name.
	// Returns a not-found error for zero matches and an ambiguous error
	// for more than one; the store never silently picks a match.
	GetNodeByUniqueName(ctx context.Context, name string, kind TypeKind) (*Node, error)

	// UpdateNode overwrites the node's display name and property bag in
	// full. The qualified name is immutable once created.
	UpdateNode(ctx context.Context, nodeID string, kind TypeKind, displayName string, properties map[string]any) error

	// IsNodeOfType reports whether the node exists with the given kind.
	IsNodeOfType(ctx context.Context, nodeID string, kind TypeKind) (bool, error)

	// DeleteNode removes a node unconditionally. Reference counting is
	// the caller's responsibility.
	DeleteNode(ctx context.Context, nodeID string) error

	// CreateEdge persists a typed edge between two nodes.
	CreateEdge(ctx context.Context, kind EdgeKind, sourceID, targetID string, properties map[string]any, externalSourceID string) error

	// GetEdgeByKind returns the single edge of kind touching nodeID.
	// Intended for exclusive kinds.
	GetEdgeByKind(ctx context.Context, nodeID string, kind EdgeKind) (*Edge, error)

	// GetEdgesByKind returns a page of edges of kind touching nodeID,
	// incoming or outgoing.
	GetEdgesByKind(ctx context.Context, nodeID string, kind EdgeKind, pageStart, pageSize int) ([]*Edge, error)

	// DeleteEdgesByKind removes all edges of kind outgoing from nodeID.
	DeleteEdgesByKind(ctx context.Context, nodeID string, kind EdgeKind) error

	// DeleteEdgeBetween removes the edge of kind between the exact pair.
	DeleteEdgeBetween(ctx context.Context, kind EdgeKind, sourceID, targetID string) error
}

// Synchronizer is the public surface of the reconciliation core.
// Composite saves are idempotent by qualified name and safe to retry
// wholesale after any failure; they are not atomic.
type Synchronizer interface {
	// SaveConnection creates or updates the full connection tree and
	// returns the root node id.
	SaveConnection(ctx context.Context, conn *Connection) (string, error)

	// GetConnection rebuilds the connection composite from the graph.
	GetConnection(ctx context.Context, nodeID string) (*Connection, error)

	// RemoveConnection tears the connection tree down depth-first,
	// reclaiming shared leaves only when unreferenced.
	RemoveConnection(ctx context.Context, nodeID string) error

	// SaveSchemaType creates or updates a schema type tree and returns
	// the root node id.
	SaveSchemaType(ctx context.Context, st *SchemaType) (string, error)

	// GetSchemaType rebuilds a schema type tree from the graph.
	GetSchemaType(ctx context.Context, nodeID string) (*SchemaType, error)

	// RemoveSchemaType tears a schema type tree down depth-first.
	RemoveSchemaType(ctx context.Context, nodeID string) error

	// SaveSchemaAttribute attaches an attribute tree to a parent schema
	// type or parent attribute and returns the attribute node id.
	SaveSchemaAttribute(ctx context.Context, parentID string, attr *SchemaAttribute) (string, error)

	// CountSchemaAttributes counts the attributes attached to a complex
	// schema type without materializing them.
	CountSchemaAttributes(ctx context.Context, typeID string) (int, error)

	// MaterializePath decomposes a delimited path and returns the
	// ordered node ids from root to leaf, reusing existing nodes.
	MaterializePath(ctx context.Context, path string, anchorID string) ([]string, error)

	// GetAnchorAsset walks parent relationships upward from a schema
	// element to the asset that owns it.
	GetAnchorAsset(ctx context.Context, nodeID string) (string, error)
}
