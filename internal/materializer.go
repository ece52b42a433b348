package internal

import (
	"context"
	"strings"

	"github.com/lychee-technology/metagraph"
	"go.uber.org/zap"
)

// pathMaterializer decomposes a delimited path into an ordered chain of
// container nodes, reusing existing ones. It is the non-recursive
// instance of the synchronizer's reuse-or-create discipline.
type pathMaterializer struct {
	store    metagraph.GraphStore
	resolver *identityResolver
	edges    *relationshipReconciler
	config   metagraph.PathConfig
}

func newPathMaterializer(store metagraph.GraphStore, resolver *identityResolver, edges *relationshipReconciler, cfg metagraph.PathConfig) *pathMaterializer {
	return &pathMaterializer{store: store, resolver: resolver, edges: edges, config: cfg}
}

// Materialize walks the path left to right, reusing or creating one node
// per segment, and returns the full ordered id list from root to leaf.
// Re-materializing an identical path returns the same id sequence and
// creates nothing, barring a concurrent writer racing the read-then-
// create window.
func (m *pathMaterializer) Materialize(ctx context.Context, path, explicitAnchorID string) ([]string, error) {
	chain, err := parsePathChain(path, m.config)
	if err != nil {
		return nil, err
	}

	var ids []string
	var anchorID, anchorPrefix string
	var anchorKind metagraph.TypeKind

	switch {
	case explicitAnchorID != "":
		anchorID = explicitAnchorID
		anchorKind, anchorPrefix, err = m.describeAnchor(ctx, explicitAnchorID)
		if err != nil {
			return nil, err
		}
	case chain.HasScheme():
		rootID, err := m.ensureSchemeRoot(ctx, chain.Scheme)
		if err != nil {
			return nil, err
		}
		anchorID = rootID
		anchorKind = metagraph.TypeKindFileSystem
		anchorPrefix = chain.Scheme
		ids = append(ids, rootID)
	}

	for _, segment := range chain.Folders {
		prefix := joinSegment(anchorPrefix, segment, m.config)
		folderID, err := m.ensureFolder(ctx, prefix, segment)
		if err != nil {
			return nil, err
		}
		if anchorID != "" {
			kind := metagraph.EdgeKindFolderHierarchy
			if anchorKind == metagraph.TypeKindFileSystem {
				kind = metagraph.EdgeKindCapabilityFolder
			}
			if err := m.edges.Ensure(ctx, kind, anchorID, folderID); err != nil {
				return nil, err
			}
		}
		anchorID = folderID
		anchorKind = metagraph.TypeKindFolder
		anchorPrefix = prefix
		ids = append(ids, folderID)
	}

	if chain.Leaf != "" {
		leafID, err := m.ensureLeaf(ctx, joinSegment(anchorPrefix, chain.Leaf, m.config), chain.Leaf)
		if err != nil {
			return nil, err
		}
		if anchorID != "" {
			kind := metagraph.EdgeKindCapabilityAsset
			if anchorKind == metagraph.TypeKindFolder {
				kind = metagraph.EdgeKindNestedFile
			}
			if err := m.edges.Ensure(ctx, kind, anchorID, leafID); err != nil {
				return nil, err
			}
		}
		ids = append(ids, leafID)
	}

	return ids, nil
}

// describeAnchor resolves an explicit anchor id to its type kind and
// qualified name so folder prefixes accumulate under it.
func (m *pathMaterializer) describeAnchor(ctx context.Context, anchorID string) (metagraph.TypeKind, string, error) {
	for _, kind := range []metagraph.TypeKind{metagraph.TypeKindFileSystem, metagraph.TypeKindFolder} {
		ok, err := m.store.IsNodeOfType(ctx, anchorID, kind)
		if err != nil {
			return "", "", err
		}
		if !ok {
			continue
		}
		node, err := m.store.GetNodeByID(ctx, anchorID, kind)
		if err != nil {
			return "", "", err
		}
		return kind, node.QualifiedName, nil
	}
	return "", "", metagraph.NewInvalidInputError("anchorId", "anchor is neither a file system nor a folder").WithDetail("anchorId", anchorID)
}

func (m *pathMaterializer) ensureSchemeRoot(ctx context.Context, scheme string) (string, error) {
	node, err := m.resolver.Resolve(ctx, "", scheme, "", metagraph.TypeKindFileSystem)
	if err == nil {
		return node.ID, nil
	}
	if !metagraph.IsNotFoundError(err) {
		return "", err
	}
	zap.S().Debugw("creating file system root", "scheme", scheme)
	return m.store.CreateNode(ctx, metagraph.Node{
		TypeKind:      metagraph.TypeKindFileSystem,
		QualifiedName: scheme,
		DisplayName:   strings.TrimSuffix(scheme, m.config.SchemeDelimiter),
	}, "")
}

func (m *pathMaterializer) ensureFolder(ctx context.Context, qualifiedName, displayName string) (string, error) {
	node, err := m.resolver.Resolve(ctx, "", qualifiedName, "", metagraph.TypeKindFolder)
	if err == nil {
		return node.ID, nil
	}
	if !metagraph.IsNotFoundError(err) {
		return "", err
	}
	return m.store.CreateNode(ctx, metagraph.Node{
		TypeKind:      metagraph.TypeKindFolder,
		QualifiedName: qualifiedName,
		DisplayName:   displayName,
	}, "")
}

// ensureLeaf reuses a pre-created data file or data folder node when one
// exists under the leaf's qualified name, and otherwise creates one.
func (m *pathMaterializer) ensureLeaf(ctx context.Context, qualifiedName, displayName string) (string, error) {
	for _, kind := range []metagraph.TypeKind{metagraph.TypeKindDataFile, metagraph.TypeKindDataFolder} {
		node, err := m.resolver.Resolve(ctx, "", qualifiedName, "", kind)
		if err == nil {
			return node.ID, nil
		}
		if !metagraph.IsNotFoundError(err) {
			return "", err
		}
	}
	kind := metagraph.TypeKindDataFolder
	if leafLooksLikeFile(displayName) {
		kind = metagraph.TypeKindDataFile
	}
	return m.store.CreateNode(ctx, metagraph.Node{
		TypeKind:      kind,
		QualifiedName: qualifiedName,
		DisplayName:   displayName,
	}, "")
}

// joinSegment appends one path segment to an accumulated prefix. Scheme
// prefixes already end with the delimiter and take the segment directly.
func joinSegment(prefix, segment string, cfg metagraph.PathConfig) string {
	switch {
	case prefix == "":
		return segment
	case strings.HasSuffix(prefix, cfg.SchemeDelimiter):
		return prefix + segment
	default:
		return prefix + cfg.Separator + segment
	}
}
