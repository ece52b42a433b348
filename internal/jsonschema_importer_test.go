package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/metagraph"
)

func newImporter(t *testing.T) (*MemoryGraphStore, metagraph.Synchronizer, *SchemaImporter) {
	t.Helper()
	store := NewMemoryGraphStore()
	sync := NewSynchronizer(store, metagraph.DefaultConfig())
	return store, sync, NewSchemaImporter(sync)
}

func TestImportObjectSchemaCreatesComplexType(t *testing.T) {
	ctx := context.Background()
	_, sync, importer := newImporter(t)

	raw := []byte(`{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"},
			"tags": {"type": "array", "items": {"type": "string"}}
		}
	}`)

	rootID, err := importer.Import(ctx, "schema.person", raw)
	require.NoError(t, err)
	require.NotEmpty(t, rootID)

	st, err := sync.GetSchemaType(ctx, rootID)
	require.NoError(t, err)
	assert.Equal(t, metagraph.SchemaVariantComplex, st.Variant)
	assert.Equal(t, "schema.person", st.QualifiedName)
	assert.Equal(t, 3, st.AttributeCount)

	count, err := sync.CountSchemaAttributes(ctx, rootID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestImportArrayPropertyFoldsIntoCardinality(t *testing.T) {
	ctx := context.Background()
	store, _, importer := newImporter(t)

	raw := []byte(`{
		"type": "object",
		"properties": {
			"tags": {"type": "array", "items": {"type": "string"}}
		}
	}`)

	_, err := importer.Import(ctx, "schema.tagged", raw)
	require.NoError(t, err)

	attr, err := store.GetNodeByUniqueName(ctx, "schema.tagged.tags", metagraph.TypeKindSchemaAttribute)
	require.NoError(t, err)
	assert.Equal(t, -1, attr.Properties["maxCardinality"])
}

func TestImportOneOfCreatesChoiceType(t *testing.T) {
	ctx := context.Background()
	_, sync, importer := newImporter(t)

	raw := []byte(`{
		"oneOf": [
			{"const": "csv"},
			{"const": "parquet"},
			{"type": "string"}
		]
	}`)

	rootID, err := importer.Import(ctx, "schema.format", raw)
	require.NoError(t, err)

	st, err := sync.GetSchemaType(ctx, rootID)
	require.NoError(t, err)
	require.Equal(t, metagraph.SchemaVariantChoice, st.Variant)
	require.Len(t, st.Options, 3)
	assert.Equal(t, metagraph.SchemaVariantLiteral, st.Options[0].Variant)
	assert.Equal(t, `"csv"`, st.Options[0].FixedValue)
	assert.Equal(t, metagraph.SchemaVariantPrimitive, st.Options[2].Variant)
}

func TestImportAdditionalPropertiesCreatesMapType(t *testing.T) {
	ctx := context.Background()
	_, sync, importer := newImporter(t)

	raw := []byte(`{"additionalProperties": {"type": "number"}}`)

	rootID, err := importer.Import(ctx, "schema.metrics", raw)
	require.NoError(t, err)

	st, err := sync.GetSchemaType(ctx, rootID)
	require.NoError(t, err)
	require.Equal(t, metagraph.SchemaVariantMap, st.Variant)
	require.NotNil(t, st.MapFrom)
	require.NotNil(t, st.MapTo)
	assert.Equal(t, "string", st.MapFrom.DataType)
	assert.Equal(t, "number", st.MapTo.DataType)
}

func TestImportRejectsMalformedSchema(t *testing.T) {
	store, _, importer := newImporter(t)

	_, err := importer.Import(context.Background(), "schema.broken", []byte(`{"type": 12}`))
	require.Error(t, err)
	assert.True(t, metagraph.IsInvalidInputError(err))
	assert.Zero(t, store.NodeCount())
}
