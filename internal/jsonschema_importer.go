package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/lychee-technology/metagraph"
)

// SchemaImporter converts JSON Schema documents into schema type trees
// and persists them through a Synchronizer. Object schemas become
// complex types with one attribute per property, additionalProperties
// become map types, oneOf becomes a choice type, const becomes a
// literal and scalar types become primitives.
type SchemaImporter struct {
	sync metagraph.Synchronizer
}

// NewSchemaImporter creates an importer writing through sync.
func NewSchemaImporter(sync metagraph.Synchronizer) *SchemaImporter {
	return &SchemaImporter{sync: sync}
}

// Import parses rawSchema, resolves it to catch structural problems
// before anything is written, converts it under the qualified name
// prefix and saves the resulting tree. It returns the root type id.
func (i *SchemaImporter) Import(ctx context.Context, namePrefix string, rawSchema []byte) (string, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(rawSchema, &schema); err != nil {
		return "", metagraph.NewInvalidInputError("schema", fmt.Sprintf("not a valid JSON schema: %v", err))
	}
	if _, err := schema.Resolve(&jsonschema.ResolveOptions{}); err != nil {
		return "", metagraph.NewInvalidInputError("schema", fmt.Sprintf("schema does not resolve: %v", err))
	}

	st, attrs, err := i.convert(&schema, namePrefix)
	if err != nil {
		return "", err
	}
	rootID, err := i.sync.SaveSchemaType(ctx, st)
	if err != nil {
		return "", err
	}
	for _, attr := range attrs {
		if _, err := i.sync.SaveSchemaAttribute(ctx, rootID, attr); err != nil {
			return rootID, err
		}
	}
	zap.S().Infow("schema imported", "qualifiedName", namePrefix, "node", rootID, "attributes", len(attrs))
	return rootID, nil
}

// convert translates one schema node. Attributes of a complex type are
// returned separately because they attach to the saved root, not to the
// SchemaType value itself.
func (i *SchemaImporter) convert(schema *jsonschema.Schema, name string) (*metagraph.SchemaType, []*metagraph.SchemaAttribute, error) {
	switch {
	case schema.Const != nil:
		raw, err := json.Marshal(*schema.Const)
		if err != nil {
			return nil, nil, metagraph.NewInvalidInputError("schema", fmt.Sprintf("const at %s: %v", name, err))
		}
		return &metagraph.SchemaType{
			Variant:       metagraph.SchemaVariantLiteral,
			QualifiedName: name,
			FixedValue:    string(raw),
		}, nil, nil

	case len(schema.OneOf) > 0:
		choice := &metagraph.SchemaType{
			Variant:       metagraph.SchemaVariantChoice,
			QualifiedName: name,
		}
		for idx, option := range schema.OneOf {
			opt, nested, err := i.convert(option, fmt.Sprintf("%s.option_%d", name, idx))
			if err != nil {
				return nil, nil, err
			}
			if len(nested) > 0 {
				return nil, nil, metagraph.NewInvalidInputError("schema",
					fmt.Sprintf("oneOf option %d at %s: object options with properties are not supported", idx, name))
			}
			choice.Options = append(choice.Options, opt)
		}
		return choice, nil, nil

	case schema.AdditionalProperties != nil:
		to, nested, err := i.convert(schema.AdditionalProperties, name+".value")
		if err != nil {
			return nil, nil, err
		}
		if len(nested) > 0 {
			return nil, nil, metagraph.NewInvalidInputError("schema",
				fmt.Sprintf("additionalProperties at %s: object value types with properties are not supported", name))
		}
		return &metagraph.SchemaType{
			Variant:       metagraph.SchemaVariantMap,
			QualifiedName: name,
			MapFrom: &metagraph.SchemaType{
				Variant:       metagraph.SchemaVariantPrimitive,
				QualifiedName: name + ".key",
				DataType:      "string",
			},
			MapTo: to,
		}, nil, nil

	case schema.Type == "object" || len(schema.Properties) > 0:
		root := &metagraph.SchemaType{
			Variant:       metagraph.SchemaVariantComplex,
			QualifiedName: name,
		}
		required := make(map[string]bool, len(schema.Required))
		for _, r := range schema.Required {
			required[r] = true
		}
		props := make([]string, 0, len(schema.Properties))
		for prop := range schema.Properties {
			props = append(props, prop)
		}
		sort.Strings(props)

		var attrs []*metagraph.SchemaAttribute
		for pos, prop := range props {
			attr, err := i.convertProperty(schema.Properties[prop], name, prop, pos, required[prop])
			if err != nil {
				return nil, nil, err
			}
			attrs = append(attrs, attr)
		}
		return root, attrs, nil

	case schema.Type == "array":
		if schema.Items == nil {
			return nil, nil, metagraph.NewInvalidInputError("schema",
				fmt.Sprintf("array at %s has no items schema", name))
		}
		// Cardinality is an attribute concern; a bare top-level array
		// reduces to its element type.
		return i.convert(schema.Items, name)

	default:
		dataType := schema.Type
		if dataType == "" {
			dataType = "any"
		}
		return &metagraph.SchemaType{
			Variant:       metagraph.SchemaVariantPrimitive,
			QualifiedName: name,
			DataType:      dataType,
		}, nil, nil
	}
}

// convertProperty turns one object property into a schema attribute.
// Array-typed properties fold into the attribute's cardinality instead
// of producing a wrapper type.
func (i *SchemaImporter) convertProperty(schema *jsonschema.Schema, parentName, prop string, position int, required bool) (*metagraph.SchemaAttribute, error) {
	attrName := parentName + "." + prop
	attr := &metagraph.SchemaAttribute{
		QualifiedName:  attrName,
		DisplayName:    prop,
		Position:       position,
		MaxCardinality: 1,
	}
	if required {
		attr.MinCardinality = 1
	}

	valueSchema := schema
	if schema.Type == "array" {
		if schema.Items == nil {
			return nil, metagraph.NewInvalidInputError("schema",
				fmt.Sprintf("array property %s has no items schema", attrName))
		}
		attr.MaxCardinality = -1
		valueSchema = schema.Items
	}

	st, nested, err := i.convert(valueSchema, attrName+".type")
	if err != nil {
		return nil, err
	}
	attr.AttributeType = st
	for _, nestedAttr := range nested {
		// Nested object properties hang off the attribute directly so
		// the complex value type stays a pure anchor node.
		attr.Nested = append(attr.Nested, nestedAttr)
	}
	return attr, nil
}
