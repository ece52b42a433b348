package internal

import (
	"context"

	"github.com/lychee-technology/metagraph"
	"go.uber.org/zap"
)

// SaveConnection creates or updates the full connection tree and returns
// the root node id. Validation of the whole tree happens up front so a
// structurally invalid connection creates zero nodes.
func (s *synchronizer) SaveConnection(ctx context.Context, conn *metagraph.Connection) (string, error) {
	if err := validateConnection(conn, visitSet{}); err != nil {
		return "", err
	}
	return s.saveConnectionTree(ctx, conn, visitSet{})
}

// validateConnection checks the whole tree before any node is created.
// The visit set turns a cyclic tree into an invalid-input failure
// instead of unbounded recursion.
func validateConnection(conn *metagraph.Connection, visited visitSet) error {
	if conn == nil {
		return metagraph.NewInvalidInputError("connection", "connection is required")
	}
	if conn.QualifiedName == "" {
		return metagraph.NewGraphError(metagraph.ErrorTypeInvalidInput, metagraph.ErrCodeMissingQualifiedName,
			"connection requires a qualified name")
	}
	if err := visited.enter(conn.QualifiedName); err != nil {
		return err
	}
	defer visited.leave(conn.QualifiedName)
	if conn.ConnectorType == nil {
		return metagraph.NewMissingConnectorTypeError(conn.QualifiedName)
	}
	if conn.ConnectorType.QualifiedName == "" {
		return metagraph.NewGraphError(metagraph.ErrorTypeInvalidInput, metagraph.ErrCodeMissingQualifiedName,
			"connector type requires a qualified name").WithQualifiedName(conn.QualifiedName)
	}
	if conn.Endpoint != nil && conn.Endpoint.QualifiedName == "" {
		return metagraph.NewGraphError(metagraph.ErrorTypeInvalidInput, metagraph.ErrCodeMissingQualifiedName,
			"endpoint requires a qualified name").WithQualifiedName(conn.QualifiedName)
	}
	for _, emb := range conn.Embedded {
		if emb.Connection == nil {
			return metagraph.NewInvalidInputError("embeddedConnections", "embedded entry is missing its connection").
				WithQualifiedName(conn.QualifiedName)
		}
		if err := validateConnection(emb.Connection, visited); err != nil {
			return err
		}
	}
	return nil
}

func (s *synchronizer) saveConnectionTree(ctx context.Context, conn *metagraph.Connection, visited visitSet) (string, error) {
	if err := visited.enter(conn.QualifiedName); err != nil {
		return "", err
	}
	defer visited.leave(conn.QualifiedName)

	rootID, existed, err := s.saveRoot(ctx, connectionNode(conn))
	if err != nil {
		return "", err
	}
	zap.S().Debugw("connection root reconciled", "qualifiedName", conn.QualifiedName, "node", rootID, "existed", existed)

	endpointID := ""
	if conn.Endpoint != nil {
		endpointID, err = s.saveLeaf(ctx, endpointNode(conn.Endpoint))
		if err != nil {
			return rootID, metagraph.NewPartialCompositeError(rootID, err)
		}
	}
	if err := s.replaceExclusiveReclaiming(ctx, metagraph.EdgeKindConnectionEndpoint, rootID, endpointID); err != nil {
		return rootID, metagraph.NewPartialCompositeError(rootID, err)
	}

	connectorTypeID, err := s.saveLeaf(ctx, connectorTypeNode(conn.ConnectorType))
	if err != nil {
		return rootID, metagraph.NewPartialCompositeError(rootID, err)
	}
	if err := s.replaceExclusiveReclaiming(ctx, metagraph.EdgeKindConnectionConnectorType, rootID, connectorTypeID); err != nil {
		return rootID, metagraph.NewPartialCompositeError(rootID, err)
	}

	items := make([]edgeTarget, 0, len(conn.Embedded))
	for _, emb := range conn.Embedded {
		subID, err := s.saveConnectionTree(ctx, emb.Connection, visited)
		if err != nil {
			if metagraph.IsInvalidInputError(err) {
				return rootID, err
			}
			return rootID, metagraph.NewPartialCompositeError(rootID, err)
		}
		props := map[string]any{}
		if len(emb.Arguments) > 0 {
			props[propArguments] = emb.Arguments
		}
		if emb.DisplayName != "" {
			props[propEdgeDisplayName] = emb.DisplayName
		}
		items = append(items, edgeTarget{TargetID: subID, Properties: props})
	}
	if err := s.edges.RebuildList(ctx, metagraph.EdgeKindEmbeddedConnection, rootID, items); err != nil {
		return rootID, metagraph.NewPartialCompositeError(rootID, err)
	}

	return rootID, nil
}

// GetConnection rebuilds the connection composite from the graph,
// recursing into embedded sub-connections.
func (s *synchronizer) GetConnection(ctx context.Context, nodeID string) (*metagraph.Connection, error) {
	node, err := s.store.GetNodeByID(ctx, nodeID, metagraph.TypeKindConnection)
	if err != nil {
		return nil, err
	}
	conn := connectionFromNode(node)

	if endpointID, err := s.exclusiveTarget(ctx, nodeID, metagraph.EdgeKindConnectionEndpoint); err != nil {
		return nil, err
	} else if endpointID != "" {
		epNode, err := s.store.GetNodeByID(ctx, endpointID, metagraph.TypeKindEndpoint)
		if err != nil {
			return nil, err
		}
		conn.Endpoint = endpointFromNode(epNode)
	}

	if connectorTypeID, err := s.exclusiveTarget(ctx, nodeID, metagraph.EdgeKindConnectionConnectorType); err != nil {
		return nil, err
	} else if connectorTypeID != "" {
		ctNode, err := s.store.GetNodeByID(ctx, connectorTypeID, metagraph.TypeKindConnectorType)
		if err != nil {
			return nil, err
		}
		conn.ConnectorType = connectorTypeFromNode(ctNode)
	}

	embedded, err := s.outgoingEdges(ctx, nodeID, metagraph.EdgeKindEmbeddedConnection)
	if err != nil {
		return nil, err
	}
	for _, edge := range embedded {
		sub, err := s.GetConnection(ctx, edge.TargetID)
		if err != nil {
			return nil, err
		}
		conn.Embedded = append(conn.Embedded, metagraph.EmbeddedConnection{
			Connection:  sub,
			Arguments:   mapProp(edge.Properties, propArguments),
			DisplayName: stringProp(edge.Properties, propEdgeDisplayName),
		})
	}

	return conn, nil
}

// RemoveConnection tears the connection tree down depth-first. Embedding
// edges are cut before recursing so each child's reference count already
// reflects the removal when its own cleanup runs. Shared leaves survive
// while any other owner still references them.
func (s *synchronizer) RemoveConnection(ctx context.Context, nodeID string) error {
	return s.removeConnectionTree(ctx, nodeID, visitSet{})
}

func (s *synchronizer) removeConnectionTree(ctx context.Context, nodeID string, visited visitSet) error {
	if _, seen := visited[nodeID]; seen {
		return nil
	}
	visited[nodeID] = struct{}{}

	if _, err := s.store.GetNodeByID(ctx, nodeID, metagraph.TypeKindConnection); err != nil {
		return err
	}

	embedded, err := s.outgoingEdges(ctx, nodeID, metagraph.EdgeKindEmbeddedConnection)
	if err != nil {
		return err
	}
	kinds := s.config.Removal.OwnershipEdgeKinds
	for _, edge := range embedded {
		if err := s.store.DeleteEdgeBetween(ctx, metagraph.EdgeKindEmbeddedConnection, nodeID, edge.TargetID); err != nil {
			return err
		}
		// A sub-connection still embedded elsewhere stays intact; only
		// orphaned subtrees are torn down.
		referenced, err := s.remover.Referenced(ctx, edge.TargetID, kinds)
		if err != nil {
			return err
		}
		if referenced {
			continue
		}
		if err := s.removeConnectionTree(ctx, edge.TargetID, visited); err != nil {
			return err
		}
	}

	endpointID, err := s.exclusiveTarget(ctx, nodeID, metagraph.EdgeKindConnectionEndpoint)
	if err != nil {
		return err
	}
	connectorTypeID, err := s.exclusiveTarget(ctx, nodeID, metagraph.EdgeKindConnectionConnectorType)
	if err != nil {
		return err
	}

	for _, kind := range []metagraph.EdgeKind{
		metagraph.EdgeKindConnectionEndpoint,
		metagraph.EdgeKindConnectionConnectorType,
		metagraph.EdgeKindEmbeddedConnection,
	} {
		if err := s.store.DeleteEdgesByKind(ctx, nodeID, kind); err != nil {
			return err
		}
	}

	if _, err := s.remover.RemoveIfUnreferenced(ctx, nodeID, kinds); err != nil {
		return err
	}
	for _, leafID := range []string{endpointID, connectorTypeID} {
		if leafID == "" {
			continue
		}
		if _, err := s.remover.RemoveIfUnreferenced(ctx, leafID, kinds); err != nil {
			return err
		}
	}
	return nil
}

func mapProp(props map[string]any, key string) map[string]any {
	if props == nil {
		return nil
	}
	if v, ok := props[key].(map[string]any); ok {
		return v
	}
	return nil
}
