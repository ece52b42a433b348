package internal

import (
	"context"

	"github.com/lychee-technology/metagraph"
)

// identityResolver resolves a candidate domain object to an existing
// graph node. Pure read: no side effects, safe to call repeatedly.
type identityResolver struct {
	store metagraph.GraphStore
}

func newIdentityResolver(store metagraph.GraphStore) *identityResolver {
	return &identityResolver{store: store}
}

// Resolve looks a node up by id first, then by qualified name, then by
// display name. A caller-supplied id is trusted once validated; if the
// id misses, resolution falls through to name lookup so that retries
// keyed by qualified name stay idempotent. Display-name lookup is a
// fallback, not a synonym for qualified-name lookup: it carries no
// uniqueness guarantee and may come back ambiguous.
func (r *identityResolver) Resolve(ctx context.Context, candidateID, qualifiedName, displayName string, expected metagraph.TypeKind) (*metagraph.Node, error) {
	if candidateID == "" && qualifiedName == "" && displayName == "" {
		return nil, metagraph.NewInvalidInputError("identity", "candidate id, qualified name or display name is required")
	}

	if candidateID != "" {
		node, err := r.store.GetNodeByID(ctx, candidateID, expected)
		if err == nil {
			return node, nil
		}
		if !metagraph.IsNotFoundError(err) {
			return nil, err
		}
		if qualifiedName == "" && displayName == "" {
			return nil, err
		}
	}

	if qualifiedName != "" {
		return r.store.GetNodeByUniqueName(ctx, qualifiedName, expected)
	}

	return r.store.GetNodeByUniqueName(ctx, displayName, expected)
}
