package internal

import (
	"context"

	"github.com/lychee-technology/metagraph"
	"go.uber.org/zap"
)

// referenceCountedRemover deletes a node only once no ownership-denoting
// edge still references it. This is how shared leaves (an endpoint
// reused by naming convention, a folder shared by two path chains)
// survive the removal of one owning composite and are reclaimed with the
// last one.
type referenceCountedRemover struct {
	store         metagraph.GraphStore
	probePageSize int
}

func newReferenceCountedRemover(store metagraph.GraphStore, probePageSize int) *referenceCountedRemover {
	if probePageSize <= 0 {
		probePageSize = 1
	}
	return &referenceCountedRemover{store: store, probePageSize: probePageSize}
}

// RemoveIfUnreferenced deletes the node only when no incoming ownership
// edge remains. Only incoming edges are probed, so the caller carries
// two obligations: the triggering (incoming) edge must already be cut,
// and the node's own children must have been detached or reclaimed
// beforehand, because outgoing ownership edges neither keep the node
// alive nor survive its deletion. Returns true when the node was
// deleted.
//
// The check-then-delete window is not atomic against a concurrent
// referencing edge creation; that race is accepted and left to
// store-level guarantees where strict prevention matters.
func (r *referenceCountedRemover) RemoveIfUnreferenced(ctx context.Context, nodeID string, ownershipKinds []metagraph.EdgeKind) (bool, error) {
	referenced, err := r.Referenced(ctx, nodeID, ownershipKinds)
	if err != nil {
		return false, err
	}
	if referenced {
		return false, nil
	}
	if err := r.store.DeleteNode(ctx, nodeID); err != nil {
		return false, err
	}
	return true, nil
}

// Referenced probes each ownership edge kind for an incoming edge.
// Ownership always points parent-to-child, so only edges targeting the
// node count; the node's own outgoing edges to its children do not keep
// it alive. Used to decide whether a shared subtree should be torn down
// at all.
func (r *referenceCountedRemover) Referenced(ctx context.Context, nodeID string, ownershipKinds []metagraph.EdgeKind) (bool, error) {
	for _, kind := range ownershipKinds {
		for start := 0; ; start += r.probePageSize {
			edges, err := r.store.GetEdgesByKind(ctx, nodeID, kind, start, r.probePageSize)
			if err != nil {
				return false, err
			}
			for _, edge := range edges {
				if edge.TargetID == nodeID {
					zap.S().Debugw("node still referenced", "node", nodeID, "kind", kind)
					return true, nil
				}
			}
			if len(edges) < r.probePageSize {
				break
			}
		}
	}
	return false, nil
}
