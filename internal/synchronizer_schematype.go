package internal

import (
	"context"

	"github.com/lychee-technology/metagraph"
	"go.uber.org/zap"
)

// schemaTypeKinds is the fixed lookup order used when a node id is known
// but its schema variant is not.
var schemaTypeKinds = []metagraph.TypeKind{
	metagraph.TypeKindPrimitiveSchemaType,
	metagraph.TypeKindLiteralSchemaType,
	metagraph.TypeKindComplexSchemaType,
	metagraph.TypeKindMapSchemaType,
	metagraph.TypeKindChoiceSchemaType,
}

// SaveSchemaType creates or updates a schema type tree and returns the
// root node id. Map and Choice variants recurse into their owned
// subtrees; Complex variants only carry scalars here, their attributes
// are attached separately via SaveSchemaAttribute.
func (s *synchronizer) SaveSchemaType(ctx context.Context, st *metagraph.SchemaType) (string, error) {
	if err := validateSchemaType(st, visitSet{}); err != nil {
		return "", err
	}
	return s.saveSchemaTypeTree(ctx, st, visitSet{})
}

// validateSchemaType checks the whole tree before any node is created.
// The visit set turns a cyclic tree into an invalid-input failure
// instead of unbounded recursion.
func validateSchemaType(st *metagraph.SchemaType, visited visitSet) error {
	if st == nil {
		return metagraph.NewInvalidInputError("schemaType", "schema type is required")
	}
	if st.QualifiedName == "" {
		return metagraph.NewGraphError(metagraph.ErrorTypeInvalidInput, metagraph.ErrCodeMissingQualifiedName,
			"schema type requires a qualified name")
	}
	if _, ok := metagraph.TypeKindForVariant(st.Variant); !ok {
		return metagraph.NewGraphError(metagraph.ErrorTypeInvalidInput, metagraph.ErrCodeUnknownVariant,
			"unknown schema type variant").WithQualifiedName(st.QualifiedName).WithDetail("variant", string(st.Variant))
	}
	if err := visited.enter(st.QualifiedName); err != nil {
		return err
	}
	defer visited.leave(st.QualifiedName)
	if st.MapFrom != nil {
		if err := validateSchemaType(st.MapFrom, visited); err != nil {
			return err
		}
	}
	if st.MapTo != nil {
		if err := validateSchemaType(st.MapTo, visited); err != nil {
			return err
		}
	}
	for _, opt := range st.Options {
		if err := validateSchemaType(opt, visited); err != nil {
			return err
		}
	}
	return nil
}

func (s *synchronizer) saveSchemaTypeTree(ctx context.Context, st *metagraph.SchemaType, visited visitSet) (string, error) {
	if err := visited.enter(st.QualifiedName); err != nil {
		return "", err
	}
	defer visited.leave(st.QualifiedName)

	kind, _ := metagraph.TypeKindForVariant(st.Variant)
	rootID, existed, err := s.saveRoot(ctx, schemaTypeNode(st, kind))
	if err != nil {
		return "", err
	}
	zap.S().Debugw("schema type reconciled", "qualifiedName", st.QualifiedName, "variant", st.Variant, "node", rootID, "existed", existed)

	switch st.Variant {
	case metagraph.SchemaVariantMap:
		if err := s.saveSchemaTypeSlot(ctx, rootID, metagraph.EdgeKindMapFromSchemaType, st.MapFrom, visited); err != nil {
			return rootID, err
		}
		if err := s.saveSchemaTypeSlot(ctx, rootID, metagraph.EdgeKindMapToSchemaType, st.MapTo, visited); err != nil {
			return rootID, err
		}
	case metagraph.SchemaVariantChoice:
		items := make([]edgeTarget, 0, len(st.Options))
		for _, opt := range st.Options {
			optID, err := s.saveSchemaTypeTree(ctx, opt, visited)
			if err != nil {
				if metagraph.IsInvalidInputError(err) {
					return rootID, err
				}
				return rootID, metagraph.NewPartialCompositeError(rootID, err)
			}
			items = append(items, edgeTarget{TargetID: optID})
		}
		if err := s.edges.RebuildList(ctx, metagraph.EdgeKindSchemaTypeOption, rootID, items); err != nil {
			return rootID, metagraph.NewPartialCompositeError(rootID, err)
		}
	}

	return rootID, nil
}

// saveSchemaTypeSlot reconciles an optional singleton subtree slot
// (map-from, map-to): save the subtree when present, then replace the
// exclusive edge wholesale. A nil subtree clears the slot. A displaced
// previous subtree is torn down unless something else still owns it.
func (s *synchronizer) saveSchemaTypeSlot(ctx context.Context, rootID string, kind metagraph.EdgeKind, st *metagraph.SchemaType, visited visitSet) error {
	prevID, err := s.exclusiveTarget(ctx, rootID, kind)
	if err != nil {
		return metagraph.NewPartialCompositeError(rootID, err)
	}
	targetID := ""
	if st != nil {
		id, err := s.saveSchemaTypeTree(ctx, st, visited)
		if err != nil {
			if metagraph.IsInvalidInputError(err) {
				return err
			}
			return metagraph.NewPartialCompositeError(rootID, err)
		}
		targetID = id
	}
	if err := s.edges.ReplaceExclusive(ctx, kind, rootID, targetID); err != nil {
		return metagraph.NewPartialCompositeError(rootID, err)
	}
	if prevID != "" && prevID != targetID {
		if err := s.removeSchemaTypeSubtree(ctx, prevID, s.config.Removal.OwnershipEdgeKinds, visitSet{}); err != nil {
			return metagraph.NewPartialCompositeError(rootID, err)
		}
	}
	return nil
}

// getSchemaTypeNode tries the schema type kinds in fixed order until one
// matches the node id.
func (s *synchronizer) getSchemaTypeNode(ctx context.Context, nodeID string) (*metagraph.Node, metagraph.SchemaVariant, error) {
	for _, kind := range schemaTypeKinds {
		node, err := s.store.GetNodeByID(ctx, nodeID, kind)
		if err == nil {
			variant, _ := metagraph.VariantForTypeKind(kind)
			return node, variant, nil
		}
		if !metagraph.IsNotFoundError(err) {
			return nil, "", err
		}
	}
	return nil, "", metagraph.NewNodeNotFoundError(nodeID, "")
}

// GetSchemaType rebuilds a schema type tree from the graph. Complex
// variants get their attribute count filled in lazily, not the
// attributes themselves.
func (s *synchronizer) GetSchemaType(ctx context.Context, nodeID string) (*metagraph.SchemaType, error) {
	node, variant, err := s.getSchemaTypeNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	st := schemaTypeFromNode(node, variant)

	switch variant {
	case metagraph.SchemaVariantMap:
		if fromID, err := s.exclusiveTarget(ctx, nodeID, metagraph.EdgeKindMapFromSchemaType); err != nil {
			return nil, err
		} else if fromID != "" {
			if st.MapFrom, err = s.GetSchemaType(ctx, fromID); err != nil {
				return nil, err
			}
		}
		if toID, err := s.exclusiveTarget(ctx, nodeID, metagraph.EdgeKindMapToSchemaType); err != nil {
			return nil, err
		} else if toID != "" {
			if st.MapTo, err = s.GetSchemaType(ctx, toID); err != nil {
				return nil, err
			}
		}
	case metagraph.SchemaVariantChoice:
		options, err := s.outgoingEdges(ctx, nodeID, metagraph.EdgeKindSchemaTypeOption)
		if err != nil {
			return nil, err
		}
		for _, edge := range options {
			opt, err := s.GetSchemaType(ctx, edge.TargetID)
			if err != nil {
				return nil, err
			}
			st.Options = append(st.Options, opt)
		}
	case metagraph.SchemaVariantComplex:
		count, err := s.CountSchemaAttributes(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		st.AttributeCount = count
	}

	return st, nil
}

// RemoveSchemaType tears a schema type tree down depth-first, cutting
// each owning edge before recursing into the subtree it carried.
func (s *synchronizer) RemoveSchemaType(ctx context.Context, nodeID string) error {
	return s.removeSchemaTypeTree(ctx, nodeID, visitSet{})
}

func (s *synchronizer) removeSchemaTypeTree(ctx context.Context, nodeID string, visited visitSet) error {
	if _, seen := visited[nodeID]; seen {
		return nil
	}
	visited[nodeID] = struct{}{}

	_, variant, err := s.getSchemaTypeNode(ctx, nodeID)
	if err != nil {
		return err
	}

	kinds := s.config.Removal.OwnershipEdgeKinds

	switch variant {
	case metagraph.SchemaVariantMap:
		for _, kind := range []metagraph.EdgeKind{metagraph.EdgeKindMapFromSchemaType, metagraph.EdgeKindMapToSchemaType} {
			targetID, err := s.exclusiveTarget(ctx, nodeID, kind)
			if err != nil {
				return err
			}
			if targetID == "" {
				continue
			}
			if err := s.store.DeleteEdgesByKind(ctx, nodeID, kind); err != nil {
				return err
			}
			if err := s.removeSchemaTypeSubtree(ctx, targetID, kinds, visited); err != nil {
				return err
			}
		}
	case metagraph.SchemaVariantChoice:
		options, err := s.outgoingEdges(ctx, nodeID, metagraph.EdgeKindSchemaTypeOption)
		if err != nil {
			return err
		}
		for _, edge := range options {
			if err := s.store.DeleteEdgeBetween(ctx, metagraph.EdgeKindSchemaTypeOption, nodeID, edge.TargetID); err != nil {
				return err
			}
			if err := s.removeSchemaTypeSubtree(ctx, edge.TargetID, kinds, visited); err != nil {
				return err
			}
		}
	case metagraph.SchemaVariantComplex:
		if err := s.removeAttachedAttributes(ctx, nodeID, visited); err != nil {
			return err
		}
	}

	_, err = s.remover.RemoveIfUnreferenced(ctx, nodeID, kinds)
	return err
}

// removeSchemaTypeSubtree tears a subtree down only when the cut edge
// was its last owner; a type still referenced elsewhere stays intact.
func (s *synchronizer) removeSchemaTypeSubtree(ctx context.Context, nodeID string, kinds []metagraph.EdgeKind, visited visitSet) error {
	referenced, err := s.remover.Referenced(ctx, nodeID, kinds)
	if err != nil {
		return err
	}
	if referenced {
		return nil
	}
	return s.removeSchemaTypeTree(ctx, nodeID, visited)
}

// removeAttachedAttributes removes the attribute subtree of a complex
// schema type: each attachment edge is cut, then the attribute, its
// attached type and its nested attributes are removed depth-first.
func (s *synchronizer) removeAttachedAttributes(ctx context.Context, typeID string, visited visitSet) error {
	attached, err := s.outgoingEdges(ctx, typeID, metagraph.EdgeKindSchemaTypeAttribute)
	if err != nil {
		return err
	}
	for _, edge := range attached {
		if err := s.store.DeleteEdgeBetween(ctx, metagraph.EdgeKindSchemaTypeAttribute, typeID, edge.TargetID); err != nil {
			return err
		}
		if err := s.removeSchemaAttributeSubtree(ctx, edge.TargetID, visited); err != nil {
			return err
		}
	}
	return nil
}

func (s *synchronizer) removeSchemaAttributeSubtree(ctx context.Context, attrID string, visited visitSet) error {
	referenced, err := s.remover.Referenced(ctx, attrID, s.config.Removal.OwnershipEdgeKinds)
	if err != nil {
		return err
	}
	if referenced {
		return nil
	}
	return s.removeSchemaAttributeTree(ctx, attrID, visited)
}

func (s *synchronizer) removeSchemaAttributeTree(ctx context.Context, attrID string, visited visitSet) error {
	if _, seen := visited[attrID]; seen {
		return nil
	}
	visited[attrID] = struct{}{}

	nested, err := s.outgoingEdges(ctx, attrID, metagraph.EdgeKindNestedSchemaAttribute)
	if err != nil {
		return err
	}
	for _, edge := range nested {
		if err := s.store.DeleteEdgeBetween(ctx, metagraph.EdgeKindNestedSchemaAttribute, attrID, edge.TargetID); err != nil {
			return err
		}
		if err := s.removeSchemaAttributeSubtree(ctx, edge.TargetID, visited); err != nil {
			return err
		}
	}

	typeID, err := s.exclusiveTarget(ctx, attrID, metagraph.EdgeKindAttributeType)
	if err != nil {
		return err
	}
	if typeID != "" {
		if err := s.store.DeleteEdgesByKind(ctx, attrID, metagraph.EdgeKindAttributeType); err != nil {
			return err
		}
		if err := s.removeSchemaTypeSubtree(ctx, typeID, s.config.Removal.OwnershipEdgeKinds, visited); err != nil {
			return err
		}
	}

	_, err = s.remover.RemoveIfUnreferenced(ctx, attrID, s.config.Removal.OwnershipEdgeKinds)
	return err
}

// SaveSchemaAttribute attaches an attribute tree to a parent schema type
// or parent attribute. The parent decides the attachment edge kind.
func (s *synchronizer) SaveSchemaAttribute(ctx context.Context, parentID string, attr *metagraph.SchemaAttribute) (string, error) {
	if err := validateSchemaAttribute(attr, visitSet{}); err != nil {
		return "", err
	}
	attachKind, err := s.attachmentKind(ctx, parentID)
	if err != nil {
		return "", err
	}
	return s.saveSchemaAttributeTree(ctx, parentID, attachKind, attr, visitSet{})
}

func validateSchemaAttribute(attr *metagraph.SchemaAttribute, visited visitSet) error {
	if attr == nil {
		return metagraph.NewInvalidInputError("schemaAttribute", "schema attribute is required")
	}
	if attr.QualifiedName == "" {
		return metagraph.NewGraphError(metagraph.ErrorTypeInvalidInput, metagraph.ErrCodeMissingQualifiedName,
			"schema attribute requires a qualified name")
	}
	if err := visited.enter(attr.QualifiedName); err != nil {
		return err
	}
	defer visited.leave(attr.QualifiedName)
	if attr.AttributeType != nil {
		if err := validateSchemaType(attr.AttributeType, visited); err != nil {
			return err
		}
	}
	for _, nested := range attr.Nested {
		if err := validateSchemaAttribute(nested, visited); err != nil {
			return err
		}
	}
	return nil
}

func (s *synchronizer) attachmentKind(ctx context.Context, parentID string) (metagraph.EdgeKind, error) {
	ok, err := s.store.IsNodeOfType(ctx, parentID, metagraph.TypeKindComplexSchemaType)
	if err != nil {
		return "", err
	}
	if ok {
		return metagraph.EdgeKindSchemaTypeAttribute, nil
	}
	ok, err = s.store.IsNodeOfType(ctx, parentID, metagraph.TypeKindSchemaAttribute)
	if err != nil {
		return "", err
	}
	if ok {
		return metagraph.EdgeKindNestedSchemaAttribute, nil
	}
	return "", metagraph.NewInvalidInputError("parentId", "attribute parent must be a complex schema type or a schema attribute").
		WithDetail("parentId", parentID)
}

func (s *synchronizer) saveSchemaAttributeTree(ctx context.Context, parentID string, attachKind metagraph.EdgeKind, attr *metagraph.SchemaAttribute, visited visitSet) (string, error) {
	if err := visited.enter(attr.QualifiedName); err != nil {
		return "", err
	}
	defer visited.leave(attr.QualifiedName)

	attrID, _, err := s.saveRoot(ctx, schemaAttributeNode(attr))
	if err != nil {
		return "", err
	}
	if err := s.edges.Ensure(ctx, attachKind, parentID, attrID); err != nil {
		return attrID, metagraph.NewPartialCompositeError(attrID, err)
	}

	prevTypeID, err := s.exclusiveTarget(ctx, attrID, metagraph.EdgeKindAttributeType)
	if err != nil {
		return attrID, metagraph.NewPartialCompositeError(attrID, err)
	}
	typeID := ""
	if attr.AttributeType != nil {
		typeID, err = s.saveSchemaTypeTree(ctx, attr.AttributeType, visited)
		if err != nil {
			if metagraph.IsInvalidInputError(err) {
				return attrID, err
			}
			return attrID, metagraph.NewPartialCompositeError(attrID, err)
		}
	}
	if err := s.edges.ReplaceExclusive(ctx, metagraph.EdgeKindAttributeType, attrID, typeID); err != nil {
		return attrID, metagraph.NewPartialCompositeError(attrID, err)
	}
	if prevTypeID != "" && prevTypeID != typeID {
		if err := s.removeSchemaTypeSubtree(ctx, prevTypeID, s.config.Removal.OwnershipEdgeKinds, visitSet{}); err != nil {
			return attrID, metagraph.NewPartialCompositeError(attrID, err)
		}
	}

	for _, nested := range attr.Nested {
		if _, err := s.saveSchemaAttributeTree(ctx, attrID, metagraph.EdgeKindNestedSchemaAttribute, nested, visited); err != nil {
			return attrID, err
		}
	}

	return attrID, nil
}

// CountSchemaAttributes counts the attributes attached to a complex
// schema type by paging through the attachment edges, without
// materializing the attribute nodes.
func (s *synchronizer) CountSchemaAttributes(ctx context.Context, typeID string) (int, error) {
	pageSize := s.config.Sync.ListPageSize
	count := 0
	for start := 0; ; start += pageSize {
		page, err := s.store.GetEdgesByKind(ctx, typeID, metagraph.EdgeKindSchemaTypeAttribute, start, pageSize)
		if err != nil {
			return 0, err
		}
		for _, edge := range page {
			if edge.SourceID == typeID {
				count++
			}
		}
		if len(page) < pageSize {
			return count, nil
		}
	}
}
