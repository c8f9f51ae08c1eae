package eavx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttributeType(t *testing.T) {
	tests := []struct {
		raw  string
		want AttributeType
	}{
		{"string", AttributeTypeString},
		{"varchar", AttributeTypeString},
		{"char", AttributeTypeString},
		{"text", AttributeTypeText},
		{"integer", AttributeTypeInteger},
		{"int", AttributeTypeInteger},
		{"smallint", AttributeTypeInteger},
		{"bigint", AttributeTypeInteger},
		{"decimal", AttributeTypeDecimal},
		{"float", AttributeTypeDecimal},
		{"double", AttributeTypeDecimal},
		{"numeric", AttributeTypeDecimal},
		{"boolean", AttributeTypeBoolean},
		{"bool", AttributeTypeBoolean},
		{"date", AttributeTypeDate},
		{"datetime", AttributeTypeDateTime},
		{"timestamp", AttributeTypeDateTime},
		{"uuid", AttributeTypeUUID},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseAttributeType(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAttributeTypeNormalizesInput(t *testing.T) {
	got, ok := ParseAttributeType("  VarChar ")
	require.True(t, ok)
	assert.Equal(t, AttributeTypeString, got)
}

func TestParseAttributeTypeUnknown(t *testing.T) {
	for _, raw := range []string{"", "blob", "json", "geometry"} {
		_, ok := ParseAttributeType(raw)
		assert.False(t, ok, "type %q should not parse", raw)
	}
}

func TestSupportedTypesRoundTrip(t *testing.T) {
	types := SupportedTypes()
	require.Len(t, types, 8)

	// Every canonical type must parse back to itself.
	for _, typ := range types {
		got, ok := ParseAttributeType(string(typ))
		require.True(t, ok)
		assert.Equal(t, typ, got)
	}
}

func TestAttributeDefinitionInBundle(t *testing.T) {
	news := "news"
	review := "review"

	global := AttributeDefinition{Name: "rating"}
	assert.True(t, global.InBundle(nil))
	assert.True(t, global.InBundle(&news))

	scoped := AttributeDefinition{Name: "teaser", Bundle: &news}
	assert.False(t, scoped.InBundle(nil))
	assert.True(t, scoped.InBundle(&news))
	assert.False(t, scoped.InBundle(&review))
}

func TestColumnSpecSearchableDefaultsToTrue(t *testing.T) {
	assert.True(t, ColumnSpec{Name: "rating"}.IsSearchable())

	on := true
	off := false
	assert.True(t, ColumnSpec{Name: "rating", Searchable: &on}.IsSearchable())
	assert.False(t, ColumnSpec{Name: "rating", Searchable: &off}.IsSearchable())
}

func TestCachedColumn(t *testing.T) {
	assert.True(t, CachedColumn{}.IsEmpty())
	assert.True(t, CachedColumn(nil).IsEmpty())

	c := CachedColumn{"rating": int64(5)}
	assert.False(t, c.IsEmpty())

	v, ok := c.Get("rating")
	require.True(t, ok)
	assert.Equal(t, int64(5), v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}
