package internal

import (
	"github.com/lychee-technology/metagraph"
)

// Scalar property keys for the composite domain objects. Structural
// sub-objects never appear in property bags; they live on edges.
const (
	propDescription    = "description"
	propNetworkAddress = "networkAddress"
	propProtocol       = "protocol"
	propProviderClass  = "connectorProviderClassName"
	propDataType       = "dataType"
	propFixedValue     = "fixedValue"
	propMinCardinality = "minCardinality"
	propMaxCardinality = "maxCardinality"
)

func connectionNode(c *metagraph.Connection) metagraph.Node {
	props := map[string]any{}
	if c.Description != "" {
		props[propDescription] = c.Description
	}
	return metagraph.Node{
		TypeKind:      metagraph.TypeKindConnection,
		QualifiedName: c.QualifiedName,
		DisplayName:   c.DisplayName,
		Properties:    props,
	}
}

func connectionFromNode(node *metagraph.Node) *metagraph.Connection {
	return &metagraph.Connection{
		QualifiedName: node.QualifiedName,
		DisplayName:   node.DisplayName,
		Description:   stringProp(node.Properties, propDescription),
	}
}

func endpointNode(e *metagraph.Endpoint) metagraph.Node {
	props := map[string]any{}
	if e.NetworkAddress != "" {
		props[propNetworkAddress] = e.NetworkAddress
	}
	if e.Protocol != "" {
		props[propProtocol] = e.Protocol
	}
	return metagraph.Node{
		TypeKind:      metagraph.TypeKindEndpoint,
		QualifiedName: e.QualifiedName,
		DisplayName:   e.DisplayName,
		Properties:    props,
	}
}

func endpointFromNode(node *metagraph.Node) *metagraph.Endpoint {
	return &metagraph.Endpoint{
		QualifiedName:  node.QualifiedName,
		DisplayName:    node.DisplayName,
		NetworkAddress: stringProp(node.Properties, propNetworkAddress),
		Protocol:       stringProp(node.Properties, propProtocol),
	}
}

func connectorTypeNode(ct *metagraph.ConnectorType) metagraph.Node {
	props := map[string]any{}
	if ct.ConnectorProviderClassName != "" {
		props[propProviderClass] = ct.ConnectorProviderClassName
	}
	return metagraph.Node{
		TypeKind:      metagraph.TypeKindConnectorType,
		QualifiedName: ct.QualifiedName,
		DisplayName:   ct.DisplayName,
		Properties:    props,
	}
}

func connectorTypeFromNode(node *metagraph.Node) *metagraph.ConnectorType {
	return &metagraph.ConnectorType{
		QualifiedName:              node.QualifiedName,
		DisplayName:                node.DisplayName,
		ConnectorProviderClassName: stringProp(node.Properties, propProviderClass),
	}
}

func schemaTypeNode(st *metagraph.SchemaType, kind metagraph.TypeKind) metagraph.Node {
	props := map[string]any{}
	if st.DataType != "" {
		props[propDataType] = st.DataType
	}
	if st.FixedValue != "" {
		props[propFixedValue] = st.FixedValue
	}
	return metagraph.Node{
		TypeKind:      kind,
		QualifiedName: st.QualifiedName,
		DisplayName:   st.DisplayName,
		Properties:    props,
	}
}

func schemaTypeFromNode(node *metagraph.Node, variant metagraph.SchemaVariant) *metagraph.SchemaType {
	return &metagraph.SchemaType{
		Variant:       variant,
		QualifiedName: node.QualifiedName,
		DisplayName:   node.DisplayName,
		DataType:      stringProp(node.Properties, propDataType),
		FixedValue:    stringProp(node.Properties, propFixedValue),
	}
}

func schemaAttributeNode(attr *metagraph.SchemaAttribute) metagraph.Node {
	props := map[string]any{
		propPosition:       attr.Position,
		propMinCardinality: attr.MinCardinality,
		propMaxCardinality: attr.MaxCardinality,
	}
	return metagraph.Node{
		TypeKind:      metagraph.TypeKindSchemaAttribute,
		QualifiedName: attr.QualifiedName,
		DisplayName:   attr.DisplayName,
		Properties:    props,
	}
}

func schemaAttributeFromNode(node *metagraph.Node) *metagraph.SchemaAttribute {
	return &metagraph.SchemaAttribute{
		QualifiedName:  node.QualifiedName,
		DisplayName:    node.DisplayName,
		Position:       intProp(node.Properties, propPosition),
		MinCardinality: intProp(node.Properties, propMinCardinality),
		MaxCardinality: intProp(node.Properties, propMaxCardinality),
	}
}

func stringProp(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

// intProp tolerates float64 values because property bags round-trip
// through JSON in the postgres store.
func intProp(props map[string]any, key string) int {
	if props == nil {
		return 0
	}
	switch v := props[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
