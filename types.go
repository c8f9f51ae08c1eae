package eavx

import (
	"strings"
)

// AttributeType represents the canonical storage type of a virtual column.
type AttributeType string

const (
	AttributeTypeString   AttributeType = "string"
	AttributeTypeText     AttributeType = "text"
	AttributeTypeInteger  AttributeType = "integer"
	AttributeTypeDecimal  AttributeType = "decimal"
	AttributeTypeBoolean  AttributeType = "boolean"
	AttributeTypeDate     AttributeType = "date"
	AttributeTypeDateTime AttributeType = "datetime"
	AttributeTypeUUID     AttributeType = "uuid"
)

// typeAliases maps user-supplied type names onto the canonical enum.
var typeAliases = map[string]AttributeType{
	"string":    AttributeTypeString,
	"varchar":   AttributeTypeString,
	"char":      AttributeTypeString,
	"text":      AttributeTypeText,
	"integer":   AttributeTypeInteger,
	"int":       AttributeTypeInteger,
	"smallint":  AttributeTypeInteger,
	"bigint":    AttributeTypeInteger,
	"decimal":   AttributeTypeDecimal,
	"float":     AttributeTypeDecimal,
	"double":    AttributeTypeDecimal,
	"numeric":   AttributeTypeDecimal,
	"boolean":   AttributeTypeBoolean,
	"bool":      AttributeTypeBoolean,
	"date":      AttributeTypeDate,
	"datetime":  AttributeTypeDateTime,
	"timestamp": AttributeTypeDateTime,
	"uuid":      AttributeTypeUUID,
}

// ParseAttributeType normalizes a user-supplied type name to the canonical
// enum. The second return value is false when the name is unmappable.
func ParseAttributeType(raw string) (AttributeType, bool) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(raw))]
	return t, ok
}

// SupportedTypes returns the canonical type enum values.
func SupportedTypes() []AttributeType {
	return []AttributeType{
		AttributeTypeString,
		AttributeTypeText,
		AttributeTypeInteger,
		AttributeTypeDecimal,
		AttributeTypeBoolean,
		AttributeTypeDate,
		AttributeTypeDateTime,
		AttributeTypeUUID,
	}
}

// AttributeDefinition describes one virtual column attached to a table.
// (table_alias, bundle, name) uniquely identifies a definition.
type AttributeDefinition struct {
	ID         int64         `json:"id"`
	TableAlias string        `json:"table_alias"`
	Bundle     *string       `json:"bundle,omitempty"`
	Name       string        `json:"name"`
	Type       AttributeType `json:"type"`
	Searchable bool          `json:"searchable"`
	Extra      *string       `json:"extra,omitempty"`
}

// InBundle reports whether the definition applies to the given bundle.
// A nil bundle on the definition means it applies to every bundle.
func (d AttributeDefinition) InBundle(bundle *string) bool {
	if d.Bundle == nil {
		return true
	}
	if bundle == nil {
		return false
	}
	return *d.Bundle == *bundle
}

// ColumnSpec is the request payload for adding a virtual column.
type ColumnSpec struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Bundle     *string `json:"bundle,omitempty"`
	Searchable *bool   `json:"searchable,omitempty"` // nil defaults to true
	Extra      *string `json:"extra,omitempty"`
	Overwrite  bool    `json:"overwrite,omitempty"`
}

// IsSearchable resolves the searchable flag with its default.
func (s ColumnSpec) IsSearchable() bool {
	if s.Searchable == nil {
		return true
	}
	return *s.Searchable
}

// CachedColumn is a denormalized snapshot of virtual values, keyed by
// virtual column name, as decoded from a cache-holder column.
type CachedColumn map[string]any

// IsEmpty reports whether the snapshot holds no values.
func (c CachedColumn) IsEmpty() bool { return len(c) == 0 }

// Get returns the snapshot value for a virtual column name.
func (c CachedColumn) Get(name string) (any, bool) {
	v, ok := c[name]
	return v, ok
}

// CacheWildcard selects every virtual value of the entity for a cache holder.
const CacheWildcard = "*"
