package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/metagraph"
)

func primitiveType(qn, dataType string) *metagraph.SchemaType {
	return &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantPrimitive,
		QualifiedName: qn,
		DataType:      dataType,
	}
}

func TestSaveSchemaTypePrimitiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, sync := newTestSynchronizer(t)

	id, err := sync.SaveSchemaType(ctx, primitiveType("st.amount", "number"))
	require.NoError(t, err)

	st, err := sync.GetSchemaType(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, metagraph.SchemaVariantPrimitive, st.Variant)
	assert.Equal(t, "st.amount", st.QualifiedName)
	assert.Equal(t, "number", st.DataType)
}

func TestSaveSchemaTypeRejectsUnknownVariant(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	_, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariant("tuple"),
		QualifiedName: "st.bad",
	})
	require.Error(t, err)
	assert.True(t, metagraph.IsInvalidInputError(err))
	assert.Equal(t, 0, store.NodeCount())
}

func TestSaveSchemaTypeRejectsMissingQualifiedName(t *testing.T) {
	ctx := context.Background()
	_, sync := newTestSynchronizer(t)

	_, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{Variant: metagraph.SchemaVariantPrimitive})
	require.Error(t, err)
	assert.True(t, metagraph.IsInvalidInputError(err))
}

func TestMapSchemaTypeRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, sync := newTestSynchronizer(t)

	id, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantMap,
		QualifiedName: "st.labels",
		MapFrom:       primitiveType("st.labels.key", "string"),
		MapTo:         primitiveType("st.labels.value", "string"),
	})
	require.NoError(t, err)

	st, err := sync.GetSchemaType(ctx, id)
	require.NoError(t, err)
	require.Equal(t, metagraph.SchemaVariantMap, st.Variant)
	require.NotNil(t, st.MapFrom)
	require.NotNil(t, st.MapTo)
	assert.Equal(t, "st.labels.key", st.MapFrom.QualifiedName)
	assert.Equal(t, "st.labels.value", st.MapTo.QualifiedName)
}

func TestMapSchemaTypeSlotReplacement(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	mapType := &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantMap,
		QualifiedName: "st.labels",
		MapFrom:       primitiveType("st.labels.key", "string"),
		MapTo:         primitiveType("st.labels.value", "string"),
	}
	id, err := sync.SaveSchemaType(ctx, mapType)
	require.NoError(t, err)

	mapType.MapTo = primitiveType("st.labels.value2", "integer")
	_, err = sync.SaveSchemaType(ctx, mapType)
	require.NoError(t, err)

	st, err := sync.GetSchemaType(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "st.labels.value2", st.MapTo.QualifiedName)
	assert.Equal(t, "integer", st.MapTo.DataType)

	// The displaced value type had no other owner and is reclaimed.
	_, err = store.GetNodeByUniqueName(ctx, "st.labels.value", metagraph.TypeKindPrimitiveSchemaType)
	require.Error(t, err)
	assert.True(t, metagraph.IsNotFoundError(err))
}

func TestMapSchemaTypeSlotReplacementKeepsSharedOldTarget(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	shared := primitiveType("st.shared", "string")
	mapType := &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantMap,
		QualifiedName: "st.labels",
		MapFrom:       primitiveType("st.labels.key", "string"),
		MapTo:         shared,
	}
	_, err := sync.SaveSchemaType(ctx, mapType)
	require.NoError(t, err)
	_, err = sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantChoice,
		QualifiedName: "st.choice",
		Options:       []*metagraph.SchemaType{shared},
	})
	require.NoError(t, err)

	mapType.MapTo = primitiveType("st.labels.value2", "integer")
	_, err = sync.SaveSchemaType(ctx, mapType)
	require.NoError(t, err)

	// The choice still owns the displaced type, so it survives.
	_, err = store.GetNodeByUniqueName(ctx, "st.shared", metagraph.TypeKindPrimitiveSchemaType)
	require.NoError(t, err)
}

func TestGetSchemaTypeSlotSurvivesIndependentResave(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	inner := &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantMap,
		QualifiedName: "st.inner",
		MapFrom:       primitiveType("st.inner.key", "string"),
		MapTo:         primitiveType("st.inner.value", "string"),
	}
	_, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantMap,
		QualifiedName: "st.outer",
		MapFrom:       inner,
	})
	require.NoError(t, err)

	innerNode, err := store.GetNodeByUniqueName(ctx, "st.inner", metagraph.TypeKindMapSchemaType)
	require.NoError(t, err)

	// Re-saving the inner map on its own recreates its slot edges, so
	// the incoming edge from the outer map now precedes them in the
	// store. Its own slots must still read back.
	_, err = sync.SaveSchemaType(ctx, inner)
	require.NoError(t, err)

	loaded, err := sync.GetSchemaType(ctx, innerNode.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.MapFrom)
	assert.Equal(t, "st.inner.key", loaded.MapFrom.QualifiedName)
	require.NotNil(t, loaded.MapTo)
	assert.Equal(t, "st.inner.value", loaded.MapTo.QualifiedName)
}

func TestMapSchemaTypeNilSlotClears(t *testing.T) {
	ctx := context.Background()
	_, sync := newTestSynchronizer(t)

	mapType := &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantMap,
		QualifiedName: "st.labels",
		MapFrom:       primitiveType("st.labels.key", "string"),
		MapTo:         primitiveType("st.labels.value", "string"),
	}
	id, err := sync.SaveSchemaType(ctx, mapType)
	require.NoError(t, err)

	mapType.MapTo = nil
	_, err = sync.SaveSchemaType(ctx, mapType)
	require.NoError(t, err)

	st, err := sync.GetSchemaType(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, st.MapFrom)
	assert.Nil(t, st.MapTo)
}

func TestChoiceSchemaTypeKeepsOptionOrder(t *testing.T) {
	ctx := context.Background()
	_, sync := newTestSynchronizer(t)

	id, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantChoice,
		QualifiedName: "st.format",
		Options: []*metagraph.SchemaType{
			{Variant: metagraph.SchemaVariantLiteral, QualifiedName: "st.format.csv", FixedValue: "csv"},
			{Variant: metagraph.SchemaVariantLiteral, QualifiedName: "st.format.parquet", FixedValue: "parquet"},
			primitiveType("st.format.other", "string"),
		},
	})
	require.NoError(t, err)

	st, err := sync.GetSchemaType(ctx, id)
	require.NoError(t, err)
	require.Equal(t, metagraph.SchemaVariantChoice, st.Variant)
	require.Len(t, st.Options, 3)
	assert.Equal(t, "st.format.csv", st.Options[0].QualifiedName)
	assert.Equal(t, "csv", st.Options[0].FixedValue)
	assert.Equal(t, "st.format.parquet", st.Options[1].QualifiedName)
	assert.Equal(t, "st.format.other", st.Options[2].QualifiedName)
}

func TestSaveSchemaTypeIdempotent(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	choice := &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantChoice,
		QualifiedName: "st.format",
		Options: []*metagraph.SchemaType{
			{Variant: metagraph.SchemaVariantLiteral, QualifiedName: "st.format.csv", FixedValue: "csv"},
		},
	}
	first, err := sync.SaveSchemaType(ctx, choice)
	require.NoError(t, err)
	nodes := store.NodeCount()

	second, err := sync.SaveSchemaType(ctx, choice)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, nodes, store.NodeCount())
}

func TestSaveSchemaTypeCycleFailsWithInvalidInput(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	cyclic := &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantMap,
		QualifiedName: "st.loop",
		MapFrom:       primitiveType("st.loop.key", "string"),
	}
	cyclic.MapTo = cyclic

	_, err := sync.SaveSchemaType(ctx, cyclic)
	require.Error(t, err)
	assert.True(t, metagraph.IsInvalidInputError(err))
	assert.Equal(t, 0, store.NodeCount())
}

func TestSaveSchemaAttributeOnComplexType(t *testing.T) {
	ctx := context.Background()
	_, sync := newTestSynchronizer(t)

	typeID, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantComplex,
		QualifiedName: "st.order",
	})
	require.NoError(t, err)

	_, err = sync.SaveSchemaAttribute(ctx, typeID, &metagraph.SchemaAttribute{
		QualifiedName:  "st.order.id",
		Position:       0,
		MinCardinality: 1,
		MaxCardinality: 1,
		AttributeType:  primitiveType("st.order.id.type", "string"),
	})
	require.NoError(t, err)

	_, err = sync.SaveSchemaAttribute(ctx, typeID, &metagraph.SchemaAttribute{
		QualifiedName: "st.order.lines",
		Position:      1,
	})
	require.NoError(t, err)

	count, err := sync.CountSchemaAttributes(ctx, typeID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	st, err := sync.GetSchemaType(ctx, typeID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.AttributeCount)
}

func TestSaveSchemaAttributeNested(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	typeID, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantComplex,
		QualifiedName: "st.order",
	})
	require.NoError(t, err)

	attrID, err := sync.SaveSchemaAttribute(ctx, typeID, &metagraph.SchemaAttribute{
		QualifiedName: "st.order.address",
		Nested: []*metagraph.SchemaAttribute{
			{QualifiedName: "st.order.address.city", Position: 0},
			{QualifiedName: "st.order.address.zip", Position: 1},
		},
	})
	require.NoError(t, err)

	city, err := store.GetNodeByUniqueName(ctx, "st.order.address.city", metagraph.TypeKindSchemaAttribute)
	require.NoError(t, err)

	edge, err := store.GetEdgeByKind(ctx, city.ID, metagraph.EdgeKindNestedSchemaAttribute)
	require.NoError(t, err)
	assert.Equal(t, attrID, edge.SourceID)
}

func TestSaveSchemaAttributeRejectsBadParent(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	primID, err := sync.SaveSchemaType(ctx, primitiveType("st.amount", "number"))
	require.NoError(t, err)
	before := store.NodeCount()

	_, err = sync.SaveSchemaAttribute(ctx, primID, &metagraph.SchemaAttribute{QualifiedName: "st.amount.x"})
	require.Error(t, err)
	assert.True(t, metagraph.IsInvalidInputError(err))
	assert.Equal(t, before, store.NodeCount())
}

func TestRemoveSchemaTypeTearsDownTree(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	id, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantMap,
		QualifiedName: "st.labels",
		MapFrom:       primitiveType("st.labels.key", "string"),
		MapTo: &metagraph.SchemaType{
			Variant:       metagraph.SchemaVariantChoice,
			QualifiedName: "st.labels.value",
			Options: []*metagraph.SchemaType{
				{Variant: metagraph.SchemaVariantLiteral, QualifiedName: "st.labels.value.a", FixedValue: "a"},
				{Variant: metagraph.SchemaVariantLiteral, QualifiedName: "st.labels.value.b", FixedValue: "b"},
			},
		},
	})
	require.NoError(t, err)

	require.NoError(t, sync.RemoveSchemaType(ctx, id))
	assert.Equal(t, 0, store.NodeCount())
	assert.Equal(t, 0, store.EdgeCount())
}

func TestRemoveComplexTypeRemovesAttributes(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	typeID, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantComplex,
		QualifiedName: "st.order",
	})
	require.NoError(t, err)

	_, err = sync.SaveSchemaAttribute(ctx, typeID, &metagraph.SchemaAttribute{
		QualifiedName: "st.order.id",
		AttributeType: primitiveType("st.order.id.type", "string"),
		Nested: []*metagraph.SchemaAttribute{
			{QualifiedName: "st.order.id.checksum"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, sync.RemoveSchemaType(ctx, typeID))
	assert.Equal(t, 0, store.NodeCount())
	assert.Equal(t, 0, store.EdgeCount())
}

func TestRemoveSchemaTypeKeepsSharedOption(t *testing.T) {
	ctx := context.Background()
	store, sync := newTestSynchronizer(t)

	shared := primitiveType("st.shared", "string")

	firstID, err := sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantChoice,
		QualifiedName: "st.choiceA",
		Options:       []*metagraph.SchemaType{shared},
	})
	require.NoError(t, err)
	_, err = sync.SaveSchemaType(ctx, &metagraph.SchemaType{
		Variant:       metagraph.SchemaVariantChoice,
		QualifiedName: "st.choiceB",
		Options:       []*metagraph.SchemaType{shared},
	})
	require.NoError(t, err)

	require.NoError(t, sync.RemoveSchemaType(ctx, firstID))

	_, err = store.GetNodeByUniqueName(ctx, "st.shared", metagraph.TypeKindPrimitiveSchemaType)
	require.NoError(t, err)
}

func TestRemoveSchemaTypeNotFound(t *testing.T) {
	ctx := context.Background()
	_, sync := newTestSynchronizer(t)

	err := sync.RemoveSchemaType(ctx, "missing")
	require.Error(t, err)
	assert.True(t, metagraph.IsNotFoundError(err))
}
