package internal

import (
	"context"

	"github.com/lychee-technology/metagraph"
	"go.uber.org/zap"
)

// anchorWalkOrder is the fixed priority order of parent-pointing edge
// kinds tried when walking a schema element up to its owning asset.
// A schema element is reachable from its parent by exactly one of these
// kinds at a time, and the walk must not guess: it tries kinds
// deterministically until one matches. Reordering this list changes
// which parent wins when a node is (incorrectly) reachable by more than
// one kind simultaneously, so the order is load-bearing.
var anchorWalkOrder = []metagraph.EdgeKind{
	metagraph.EdgeKindAssetSchemaType,
	metagraph.EdgeKindSchemaTypeAttribute,
	metagraph.EdgeKindNestedSchemaAttribute,
	metagraph.EdgeKindAttributeType,
	metagraph.EdgeKindMapFromSchemaType,
	metagraph.EdgeKindMapToSchemaType,
	metagraph.EdgeKindSchemaTypeOption,
	metagraph.EdgeKindAPIHeader,
	metagraph.EdgeKindAPIRequest,
	metagraph.EdgeKindAPIResponse,
}

// GetAnchorAsset walks parent relationships upward from a schema element
// until it reaches the asset that owns the subtree. A node with no
// matching parent kind is either the anchor asset itself or an
// unanchored template; templates come back as a distinct not-found,
// never conflated with a store failure.
func (s *synchronizer) GetAnchorAsset(ctx context.Context, nodeID string) (string, error) {
	current := nodeID
	visited := visitSet{}

	for depth := 0; depth < s.config.Sync.MaxTreeDepth; depth++ {
		if _, seen := visited[current]; seen {
			return "", metagraph.NewCycleError(current)
		}
		visited[current] = struct{}{}

		parentID, err := s.findParent(ctx, current)
		if err != nil {
			return "", err
		}
		if parentID == "" {
			isAsset, err := s.store.IsNodeOfType(ctx, current, metagraph.TypeKindAsset)
			if err != nil {
				return "", err
			}
			if isAsset {
				return current, nil
			}
			return "", metagraph.NewAnchorNotFoundError(nodeID)
		}
		current = parentID
	}

	zap.S().Warnw("anchor walk exceeded maximum depth", "node", nodeID, "maxDepth", s.config.Sync.MaxTreeDepth)
	return "", metagraph.NewAnchorNotFoundError(nodeID)
}

// findParent tries each parent-pointing edge kind in priority order and
// returns the source of the first incoming edge found, or "" when no
// kind matches.
func (s *synchronizer) findParent(ctx context.Context, nodeID string) (string, error) {
	pageSize := s.config.Sync.ListPageSize
	for _, kind := range anchorWalkOrder {
		for start := 0; ; start += pageSize {
			page, err := s.store.GetEdgesByKind(ctx, nodeID, kind, start, pageSize)
			if err != nil {
				return "", err
			}
			for _, edge := range page {
				if edge.TargetID == nodeID {
					return edge.SourceID, nil
				}
			}
			if len(page) < pageSize {
				break
			}
		}
	}
	return "", nil
}
