package internal

import (
	"context"

	"github.com/lychee-technology/metagraph"
	"go.uber.org/zap"
)

// Edge property keys used by the synchronizer.
const (
	propPosition        = "position"
	propArguments       = "arguments"
	propEdgeDisplayName = "displayName"
)

// edgeTarget is one entry of an ordered list slot rebuild.
type edgeTarget struct {
	TargetID   string
	Properties map[string]any
}

// relationshipReconciler creates, ensures or wholesale-replaces typed
// edges between nodes. The two verbs are deliberately separate
// operations: Ensure is for relationships where absence of duplication
// is the only requirement, ReplaceExclusive for optional singleton slots
// where the caller does not retain the previous target's identity.
type relationshipReconciler struct {
	store    metagraph.GraphStore
	pageSize int
}

func newRelationshipReconciler(store metagraph.GraphStore, pageSize int) *relationshipReconciler {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &relationshipReconciler{store: store, pageSize: pageSize}
}

// Ensure creates an edge of kind between the exact pair unless one
// already exists. No-op otherwise.
func (r *relationshipReconciler) Ensure(ctx context.Context, kind metagraph.EdgeKind, sourceID, targetID string) error {
	for start := 0; ; start += r.pageSize {
		edges, err := r.store.GetEdgesByKind(ctx, sourceID, kind, start, r.pageSize)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			if edge.SourceID == sourceID && edge.TargetID == targetID {
				return nil
			}
		}
		if len(edges) < r.pageSize {
			break
		}
	}
	return r.store.CreateEdge(ctx, kind, sourceID, targetID, nil, "")
}

// ReplaceExclusive removes all existing edges of kind outgoing from
// sourceID, then creates exactly one edge to newTargetID if it is
// non-empty. There should be at most one existing edge, but removal is
// unconditional over all matches. Only edges are touched here; a caller
// that wants the displaced target reclaimed must capture it before the
// replace and run it through reference-counted removal afterwards.
func (r *relationshipReconciler) ReplaceExclusive(ctx context.Context, kind metagraph.EdgeKind, sourceID, newTargetID string) error {
	if !kind.Exclusive() {
		zap.S().Warnw("replaceExclusive called for non-exclusive edge kind", "kind", kind, "source", sourceID)
	}
	if err := r.store.DeleteEdgesByKind(ctx, sourceID, kind); err != nil {
		return err
	}
	if newTargetID == "" {
		return nil
	}
	return r.store.CreateEdge(ctx, kind, sourceID, newTargetID, nil, "")
}

// RebuildList replaces the full membership of an ordered list slot:
// all existing edges of kind from sourceID are deleted, then one edge
// per item is created in order. List membership is always rebuilt, never
// diffed.
func (r *relationshipReconciler) RebuildList(ctx context.Context, kind metagraph.EdgeKind, sourceID string, items []edgeTarget) error {
	if err := r.store.DeleteEdgesByKind(ctx, sourceID, kind); err != nil {
		return err
	}
	for i, item := range items {
		props := make(map[string]any, len(item.Properties)+1)
		for k, v := range item.Properties {
			props[k] = v
		}
		props[propPosition] = i
		if err := r.store.CreateEdge(ctx, kind, sourceID, item.TargetID, props, ""); err != nil {
			return err
		}
	}
	return nil
}
