package metagraph

// TypeKind tags a stored node with its entity type. The set is fixed;
// stores may enforce qualified-name uniqueness per kind.
type TypeKind string

const (
	TypeKindConnection    TypeKind = "connection"
	TypeKindEndpoint      TypeKind = "endpoint"
	TypeKindConnectorType TypeKind = "connector_type"

	TypeKindFileSystem TypeKind = "file_system"
	TypeKindFolder     TypeKind = "folder"
	TypeKindDataFile   TypeKind = "data_file"
	TypeKindDataFolder TypeKind = "data_folder"

	TypeKindAsset TypeKind = "asset"

	TypeKindPrimitiveSchemaType TypeKind = "primitive_schema_type"
	TypeKindLiteralSchemaType   TypeKind = "literal_schema_type"
	TypeKindComplexSchemaType   TypeKind = "complex_schema_type"
	TypeKindMapSchemaType       TypeKind = "map_schema_type"
	TypeKindChoiceSchemaType    TypeKind = "choice_schema_type"
	TypeKindSchemaAttribute     TypeKind = "schema_attribute"
)

// EdgeKind tags a typed, directed relationship between two nodes.
type EdgeKind string

const (
	// Connection structural slots. Endpoint and connector type are
	// exclusive: a connection holds at most one outgoing edge of each.
	EdgeKindConnectionEndpoint      EdgeKind = "connection_endpoint"
	EdgeKindConnectionConnectorType EdgeKind = "connection_connector_type"
	EdgeKindEmbeddedConnection      EdgeKind = "embedded_connection"

	// Path hierarchy. A file system capability links to its first-level
	// folders with a capability edge; folders nest with folder_hierarchy.
	EdgeKindCapabilityFolder EdgeKind = "capability_folder"
	EdgeKindFolderHierarchy  EdgeKind = "folder_hierarchy"
	EdgeKindNestedFile       EdgeKind = "nested_file"
	EdgeKindCapabilityAsset  EdgeKind = "capability_asset"

	// Schema structure. asset_schema_type, map_from and map_to are
	// exclusive on their source node.
	EdgeKindAssetSchemaType       EdgeKind = "asset_schema_type"
	EdgeKindSchemaTypeAttribute   EdgeKind = "schema_type_attribute"
	EdgeKindNestedSchemaAttribute EdgeKind = "nested_schema_attribute"
	EdgeKindAttributeType         EdgeKind = "attribute_type"
	EdgeKindMapFromSchemaType     EdgeKind = "map_from_schema_type"
	EdgeKindMapToSchemaType       EdgeKind = "map_to_schema_type"
	EdgeKindSchemaTypeOption      EdgeKind = "schema_type_option"

	// API schema specifics, used only by the anchor walk.
	EdgeKindAPIHeader   EdgeKind = "api_header"
	EdgeKindAPIRequest  EdgeKind = "api_request"
	EdgeKindAPIResponse EdgeKind = "api_response"
)

var exclusiveEdgeKinds = map[EdgeKind]struct{}{
	EdgeKindConnectionEndpoint:      {},
	EdgeKindConnectionConnectorType: {},
	EdgeKindAssetSchemaType:         {},
	EdgeKindAttributeType:           {},
	EdgeKindMapFromSchemaType:       {},
	EdgeKindMapToSchemaType:         {},
}

// Exclusive reports whether a source node may carry at most one outgoing
// edge of this kind.
func (k EdgeKind) Exclusive() bool {
	_, ok := exclusiveEdgeKinds[k]
	return ok
}

// Property keys shared by all node kinds.
const (
	PropQualifiedName = "qualifiedName"
	PropDisplayName   = "displayName"
)

// Node is a unit of stored identity in the graph. The ID is opaque and
// store-assigned; QualifiedName is caller-assigned and intended to be
// unique per TypeKind.
type Node struct {
	ID            string         `json:"id"`
	TypeKind      TypeKind       `json:"typeKind"`
	QualifiedName string         `json:"qualifiedName"`
	DisplayName   string         `json:"displayName,omitempty"`
	Properties    map[string]any `json:"properties,omitempty"`
}

// Edge is a typed, directed relationship between two nodes. Properties
// carry edge-local data such as call-site arguments for an embedding.
type Edge struct {
	Kind       EdgeKind       `json:"kind"`
	SourceID   string         `json:"sourceId"`
	TargetID   string         `json:"targetId"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Endpoint describes where a connection points at. Endpoints are shared
// leaves: two connections naming the same endpoint reuse one node.
type Endpoint struct {
	QualifiedName  string `json:"qualifiedName"`
	DisplayName    string `json:"displayName,omitempty"`
	NetworkAddress string `json:"networkAddress,omitempty"`
	Protocol       string `json:"protocol,omitempty"`
}

// ConnectorType identifies the connector implementation a connection
// should be opened with.
type ConnectorType struct {
	QualifiedName              string `json:"qualifiedName"`
	DisplayName                string `json:"displayName,omitempty"`
	ConnectorProviderClassName string `json:"connectorProviderClassName,omitempty"`
}

// EmbeddedConnection is one entry of a virtual connection's ordered
// sub-connection list. Arguments and DisplayName live on the embedding
// edge, not on the embedded connection's node.
type EmbeddedConnection struct {
	Connection  *Connection    `json:"connection"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	DisplayName string         `json:"displayName,omitempty"`
}

// Connection is a composite domain object: its persisted form spans the
// connection node plus endpoint, connector type and embedded
// sub-connection nodes. Embedded is only populated for the virtual
// variant.
type Connection struct {
	QualifiedName string               `json:"qualifiedName"`
	DisplayName   string               `json:"displayName,omitempty"`
	Description   string               `json:"description,omitempty"`
	Endpoint      *Endpoint            `json:"endpoint,omitempty"`
	ConnectorType *ConnectorType       `json:"connectorType"`
	Embedded      []EmbeddedConnection `json:"embeddedConnections,omitempty"`
}

// Virtual reports whether the connection embeds sub-connections.
func (c *Connection) Virtual() bool {
	return c != nil && len(c.Embedded) > 0
}

// SchemaVariant discriminates the SchemaType tagged union.
type SchemaVariant string

const (
	SchemaVariantPrimitive SchemaVariant = "primitive"
	SchemaVariantLiteral   SchemaVariant = "literal"
	SchemaVariantComplex   SchemaVariant = "complex"
	SchemaVariantMap       SchemaVariant = "map"
	SchemaVariantChoice    SchemaVariant = "choice"
)

// SchemaType is a recursive tagged union. Map and Choice variants own
// further SchemaType trees; Complex variants relate to their attributes
// through a separate attachment relationship and only carry a lazily
// counted AttributeCount here.
type SchemaType struct {
	Variant       SchemaVariant `json:"variant"`
	QualifiedName string        `json:"qualifiedName"`
	DisplayName   string        `json:"displayName,omitempty"`
	DataType      string        `json:"dataType,omitempty"`
	FixedValue    string        `json:"fixedValue,omitempty"`

	MapFrom *SchemaType   `json:"mapFrom,omitempty"`
	MapTo   *SchemaType   `json:"mapTo,omitempty"`
	Options []*SchemaType `json:"options,omitempty"`

	AttributeCount int `json:"attributeCount,omitempty"`
}

// TypeKindForVariant maps a schema variant to its node type kind.
func TypeKindForVariant(v SchemaVariant) (TypeKind, bool) {
	switch v {
	case SchemaVariantPrimitive:
		return TypeKindPrimitiveSchemaType, true
	case SchemaVariantLiteral:
		return TypeKindLiteralSchemaType, true
	case SchemaVariantComplex:
		return TypeKindComplexSchemaType, true
	case SchemaVariantMap:
		return TypeKindMapSchemaType, true
	case SchemaVariantChoice:
		return TypeKindChoiceSchemaType, true
	default:
		return "", false
	}
}

// VariantForTypeKind is the inverse of TypeKindForVariant.
func VariantForTypeKind(k TypeKind) (SchemaVariant, bool) {
	switch k {
	case TypeKindPrimitiveSchemaType:
		return SchemaVariantPrimitive, true
	case TypeKindLiteralSchemaType:
		return SchemaVariantLiteral, true
	case TypeKindComplexSchemaType:
		return SchemaVariantComplex, true
	case TypeKindMapSchemaType:
		return SchemaVariantMap, true
	case TypeKindChoiceSchemaType:
		return SchemaVariantChoice, true
	default:
		return "", false
	}
}

// SchemaAttribute describes one attribute of a complex schema type.
// Attributes may nest and may carry their own attached type. Ownership
// is resolved by walking parent relationships up to the anchor asset.
type SchemaAttribute struct {
	QualifiedName  string             `json:"qualifiedName"`
	DisplayName    string             `json:"displayName,omitempty"`
	Position       int                `json:"position"`
	MinCardinality int                `json:"minCardinality"`
	MaxCardinality int                `json:"maxCardinality"`
	AttributeType  *SchemaType        `json:"attributeType,omitempty"`
	Nested         []*SchemaAttribute `json:"nested,omitempty"`
}

// PathChain is the decomposed form of a delimited path string: an
// optional file-system scheme segment, ordered folder segments carrying
// their accumulated prefix as qualified name, and an optional leaf.
type PathChain struct {
	Scheme  string   `json:"scheme,omitempty"`
	Folders []string `json:"folders,omitempty"`
	Leaf    string   `json:"leaf,omitempty"`
}

// HasScheme reports whether the path carried a file-system scheme root.
func (p *PathChain) HasScheme() bool {
	return p != nil && p.Scheme != ""
}
