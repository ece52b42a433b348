package internal

import (
	"context"
	"sort"

	"github.com/lychee-technology/metagraph"
)

// synchronizer orchestrates identity resolution, relationship
// reconciliation and reference-counted removal to save, load and remove
// recursively structured composite objects.
//
// A composite save is a sequence of independent store calls, not a
// transaction. Every step is keyed by stable identity (id or qualified
// name), so re-running a save after a partial failure reuses the nodes
// already created instead of duplicating them.
type synchronizer struct {
	store        metagraph.GraphStore
	config       *metagraph.Config
	resolver     *identityResolver
	edges        *relationshipReconciler
	remover      *referenceCountedRemover
	materializer *pathMaterializer
}

// NewSynchronizer creates the reconciliation core over a graph store.
func NewSynchronizer(store metagraph.GraphStore, config *metagraph.Config) metagraph.Synchronizer {
	if config == nil {
		config = metagraph.DefaultConfig()
	}
	resolver := newIdentityResolver(store)
	edges := newRelationshipReconciler(store, config.Sync.ListPageSize)
	return &synchronizer{
		store:        store,
		config:       config,
		resolver:     resolver,
		edges:        edges,
		remover:      newReferenceCountedRemover(store, config.Removal.ProbePageSize),
		materializer: newPathMaterializer(store, resolver, edges, config.Path),
	}
}

// MaterializePath decomposes a delimited path and returns the ordered
// node ids from root to leaf.
func (s *synchronizer) MaterializePath(ctx context.Context, path string, anchorID string) ([]string, error) {
	return s.materializer.Materialize(ctx, path, anchorID)
}

// saveLeaf resolves-or-creates a leaf node (endpoint, connector type)
// by qualified name and overwrites its scalar properties when it already
// exists. Leaves are shared: two composites naming the same qualified
// name converge on one node.
func (s *synchronizer) saveLeaf(ctx context.Context, node metagraph.Node) (string, error) {
	existing, err := s.resolver.Resolve(ctx, "", node.QualifiedName, node.DisplayName, node.TypeKind)
	if err == nil {
		if err := s.store.UpdateNode(ctx, existing.ID, node.TypeKind, node.DisplayName, node.Properties); err != nil {
			return "", err
		}
		return existing.ID, nil
	}
	if !metagraph.IsNotFoundError(err) {
		return "", err
	}
	return s.store.CreateNode(ctx, node, "")
}

// saveRoot resolves-or-creates a composite root by qualified name.
// Returns the node id and whether the node pre-existed.
func (s *synchronizer) saveRoot(ctx context.Context, node metagraph.Node) (string, bool, error) {
	existing, err := s.resolver.Resolve(ctx, "", node.QualifiedName, "", node.TypeKind)
	if err == nil {
		if err := s.store.UpdateNode(ctx, existing.ID, node.TypeKind, node.DisplayName, node.Properties); err != nil {
			return "", false, err
		}
		return existing.ID, true, nil
	}
	if !metagraph.IsNotFoundError(err) {
		return "", false, err
	}
	id, err := s.store.CreateNode(ctx, node, "")
	if err != nil {
		return "", false, err
	}
	return id, false, nil
}

// outgoingEdges pages through all edges of kind where nodeID is the
// source, sorted by the position edge property.
func (s *synchronizer) outgoingEdges(ctx context.Context, nodeID string, kind metagraph.EdgeKind) ([]*metagraph.Edge, error) {
	pageSize := s.config.Sync.ListPageSize
	var out []*metagraph.Edge
	for start := 0; ; start += pageSize {
		page, err := s.store.GetEdgesByKind(ctx, nodeID, kind, start, pageSize)
		if err != nil {
			return nil, err
		}
		for _, edge := range page {
			if edge.SourceID == nodeID {
				out = append(out, edge)
			}
		}
		if len(page) < pageSize {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return intProp(out[i].Properties, propPosition) < intProp(out[j].Properties, propPosition)
	})
	return out, nil
}

// exclusiveTarget reads the target of an exclusive outgoing edge, or ""
// when the slot is empty. The store hands back edges in either
// direction, so an incoming edge of the same kind (another composite
// owning this node) must not shadow the node's own outgoing slot; pages
// are scanned until the outgoing edge is found.
func (s *synchronizer) exclusiveTarget(ctx context.Context, nodeID string, kind metagraph.EdgeKind) (string, error) {
	pageSize := s.config.Sync.ListPageSize
	for start := 0; ; start += pageSize {
		page, err := s.store.GetEdgesByKind(ctx, nodeID, kind, start, pageSize)
		if err != nil {
			return "", err
		}
		for _, edge := range page {
			if edge.SourceID == nodeID {
				return edge.TargetID, nil
			}
		}
		if len(page) < pageSize {
			return "", nil
		}
	}
}

// replaceExclusiveReclaiming swaps an exclusive slot and reclaims the
// displaced previous target when no other edge still references it. A
// previous target that is also the new target, or that another
// composite still points at, is left alone.
func (s *synchronizer) replaceExclusiveReclaiming(ctx context.Context, kind metagraph.EdgeKind, sourceID, newTargetID string) error {
	prevID, err := s.exclusiveTarget(ctx, sourceID, kind)
	if err != nil {
		return err
	}
	if err := s.edges.ReplaceExclusive(ctx, kind, sourceID, newTargetID); err != nil {
		return err
	}
	if prevID == "" || prevID == newTargetID {
		return nil
	}
	_, err = s.remover.RemoveIfUnreferenced(ctx, prevID, s.config.Removal.OwnershipEdgeKinds)
	return err
}

// visitSet guards the save and remove recursions against composite
// trees that cycle back to an ancestor. The modeled system had no such
// guard and would recurse without bound; failing with invalid input is a
// deliberate strengthening.
type visitSet map[string]struct{}

func (v visitSet) enter(key string) error {
	if _, seen := v[key]; seen {
		return metagraph.NewCycleError(key)
	}
	v[key] = struct{}{}
	return nil
}

func (v visitSet) leave(key string) {
	delete(v, key)
}
