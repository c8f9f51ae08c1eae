package eavx

import (
	"sort"
)

// Record is the boundary to the generic entity representation owned by the
// relational layer. The engine only needs property access; dirty tracking
// and persistence of native columns stay with the collaborator.
type Record interface {
	Get(field string) (any, bool)
	Set(field string, value any)
	Unset(field string)
	Has(field string) bool
	Fields() []string
}

// Entity is the map-backed reference Record implementation used by the
// pipelines' tests and by callers without their own entity type.
type Entity struct {
	fields map[string]any
	dirty  map[string]struct{}
}

// NewEntity creates an Entity from an initial field map. The map is copied.
func NewEntity(fields map[string]any) *Entity {
	e := &Entity{
		fields: make(map[string]any, len(fields)),
		dirty:  make(map[string]struct{}),
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// Get returns the value of a field and whether it is present.
func (e *Entity) Get(field string) (any, bool) {
	v, ok := e.fields[field]
	return v, ok
}

// Set stores a field value and marks the field dirty.
func (e *Entity) Set(field string, value any) {
	e.fields[field] = value
	e.dirty[field] = struct{}{}
}

// Unset removes a field entirely.
func (e *Entity) Unset(field string) {
	delete(e.fields, field)
	delete(e.dirty, field)
}

// Has reports whether the field is present, even when its value is nil.
func (e *Entity) Has(field string) bool {
	_, ok := e.fields[field]
	return ok
}

// Fields returns the present field names in stable order.
func (e *Entity) Fields() []string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dirty returns the names of fields written through Set since creation or
// the last Clean call, in stable order.
func (e *Entity) Dirty() []string {
	names := make([]string, 0, len(e.dirty))
	for name := range e.dirty {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clean resets dirty tracking.
func (e *Entity) Clean() {
	e.dirty = make(map[string]struct{})
}
