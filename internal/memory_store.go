package internal

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lychee-technology/metagraph"
)

// MemoryGraphStore is an in-memory reference implementation of the
// GraphStore interface, used for embedded deployments and tests. It
// enforces nothing beyond the interface contract: in particular it does
// not prevent two racing callers from creating duplicate qualified
// names, matching the documented store-level limitation.
type MemoryGraphStore struct {
	mu    sync.RWMutex
	nodes map[string]*metagraph.Node
	edges []*metagraph.Edge
}

// NewMemoryGraphStore creates an empty in-memory graph store.
func NewMemoryGraphStore() *MemoryGraphStore {
	return &MemoryGraphStore{nodes: make(map[string]*metagraph.Node)}
}

func copyNode(n *metagraph.Node) *metagraph.Node {
	dup := *n
	if n.Properties != nil {
		dup.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			dup.Properties[k] = v
		}
	}
	return &dup
}

func copyEdge(e *metagraph.Edge) *metagraph.Edge {
	dup := *e
	if e.Properties != nil {
		dup.Properties = make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			dup.Properties[k] = v
		}
	}
	return &dup
}

func (m *MemoryGraphStore) CreateNode(ctx context.Context, node metagraph.Node, externalSourceID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node.ID = uuid.NewString()
	m.nodes[node.ID] = copyNode(&node)
	return node.ID, nil
}

func (m *MemoryGraphStore) GetNodeByID(ctx context.Context, nodeID string, expected metagraph.TypeKind) (*metagraph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := m.nodes[nodeID]
	if !ok || node.TypeKind != expected {
		return nil, metagraph.NewNodeNotFoundError(nodeID, expected)
	}
	return copyNode(node), nil
}

// GetNodeByUniqueName matches the qualified name first; when nothing
// matches it falls back to display names, which carry no uniqueness
// guarantee and may come back ambiguous.
func (m *MemoryGraphStore) GetNodeByUniqueName(ctx context.Context, name string, kind metagraph.TypeKind) (*metagraph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var byQualified, byDisplay []*metagraph.Node
	for _, node := range m.nodes {
		if node.TypeKind != kind {
			continue
		}
		if node.QualifiedName == name {
			byQualified = append(byQualified, node)
		}
		if node.DisplayName == name {
			byDisplay = append(byDisplay, node)
		}
	}

	matches := byQualified
	if len(matches) == 0 {
		matches = byDisplay
	}
	switch len(matches) {
	case 0:
		return nil, metagraph.NewNameNotFoundError(name, kind)
	case 1:
		return copyNode(matches[0]), nil
	default:
		return nil, metagraph.NewAmbiguousNameError(name, kind, len(matches))
	}
}

func (m *MemoryGraphStore) UpdateNode(ctx context.Context, nodeID string, kind metagraph.TypeKind, displayName string, properties map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[nodeID]
	if !ok || node.TypeKind != kind {
		return metagraph.NewNodeNotFoundError(nodeID, kind)
	}
	dup := copyNode(node)
	dup.DisplayName = displayName
	dup.Properties = make(map[string]any, len(properties))
	for k, v := range properties {
		dup.Properties[k] = v
	}
	m.nodes[nodeID] = dup
	return nil
}

func (m *MemoryGraphStore) IsNodeOfType(ctx context.Context, nodeID string, kind metagraph.TypeKind) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := m.nodes[nodeID]
	return ok && node.TypeKind == kind, nil
}

// DeleteNode removes the node and every edge touching it. Reference
// counting is the caller's responsibility.
func (m *MemoryGraphStore) DeleteNode(ctx context.Context, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[nodeID]; !ok {
		return metagraph.NewNodeNotFoundError(nodeID, "")
	}
	delete(m.nodes, nodeID)
	kept := m.edges[:0]
	for _, edge := range m.edges {
		if edge.SourceID != nodeID && edge.TargetID != nodeID {
			kept = append(kept, edge)
		}
	}
	m.edges = kept
	return nil
}

func (m *MemoryGraphStore) CreateEdge(ctx context.Context, kind metagraph.EdgeKind, sourceID, targetID string, properties map[string]any, externalSourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[sourceID]; !ok {
		return metagraph.NewNodeNotFoundError(sourceID, "")
	}
	if _, ok := m.nodes[targetID]; !ok {
		return metagraph.NewNodeNotFoundError(targetID, "")
	}
	m.edges = append(m.edges, copyEdge(&metagraph.Edge{
		Kind:       kind,
		SourceID:   sourceID,
		TargetID:   targetID,
		Properties: properties,
	}))
	return nil
}

func (m *MemoryGraphStore) GetEdgeByKind(ctx context.Context, nodeID string, kind metagraph.EdgeKind) (*metagraph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, edge := range m.edges {
		if edge.Kind == kind && (edge.SourceID == nodeID || edge.TargetID == nodeID) {
			return copyEdge(edge), nil
		}
	}
	return nil, metagraph.NewEdgeNotFoundError(nodeID, kind)
}

func (m *MemoryGraphStore) GetEdgesByKind(ctx context.Context, nodeID string, kind metagraph.EdgeKind, pageStart, pageSize int) ([]*metagraph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*metagraph.Edge
	for _, edge := range m.edges {
		if edge.Kind == kind && (edge.SourceID == nodeID || edge.TargetID == nodeID) {
			all = append(all, edge)
		}
	}
	if pageStart >= len(all) {
		return nil, nil
	}
	end := pageStart + pageSize
	if pageSize <= 0 || end > len(all) {
		end = len(all)
	}
	page := make([]*metagraph.Edge, 0, end-pageStart)
	for _, edge := range all[pageStart:end] {
		page = append(page, copyEdge(edge))
	}
	return page, nil
}

// DeleteEdgesByKind removes the outgoing edges of kind from nodeID.
func (m *MemoryGraphStore) DeleteEdgesByKind(ctx context.Context, nodeID string, kind metagraph.EdgeKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.edges[:0]
	for _, edge := range m.edges {
		if edge.Kind == kind && edge.SourceID == nodeID {
			continue
		}
		kept = append(kept, edge)
	}
	m.edges = kept
	return nil
}

func (m *MemoryGraphStore) DeleteEdgeBetween(ctx context.Context, kind metagraph.EdgeKind, sourceID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.edges[:0]
	for _, edge := range m.edges {
		if edge.Kind == kind && edge.SourceID == sourceID && edge.TargetID == targetID {
			continue
		}
		kept = append(kept, edge)
	}
	m.edges = kept
	return nil
}

// NodeCount reports the number of stored nodes.
func (m *MemoryGraphStore) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// EdgeCount reports the number of stored edges.
func (m *MemoryGraphStore) EdgeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.edges)
}
