package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lychee-technology/eavx"
	"go.uber.org/zap"
)

// Toolbox is the per-table attribute registry. It caches definitions per
// bundle and answers every "is this a virtual column" style question the
// scopes and pipelines ask.
type Toolbox struct {
	tableAlias string
	primaryKey []string
	attrs      *AttributeRepository

	mu    sync.RWMutex
	cache map[string]map[string]eavx.AttributeDefinition
}

// NewToolbox creates a toolbox for one managed table.
func NewToolbox(tableAlias string, primaryKey []string, attrs *AttributeRepository) *Toolbox {
	return &Toolbox{
		tableAlias: tableAlias,
		primaryKey: primaryKey,
		attrs:      attrs,
		cache:      make(map[string]map[string]eavx.AttributeDefinition),
	}
}

// TableAlias returns the managed table's name.
func (t *Toolbox) TableAlias() string { return t.tableAlias }

// PrimaryKey returns the table's primary key columns.
func (t *Toolbox) PrimaryKey() []string { return t.primaryKey }

func bundleKey(bundle *string) string {
	if bundle == nil {
		return ""
	}
	return *bundle
}

// Attributes returns the definitions visible to the given bundle, keyed by
// column name. A nil bundle returns every definition of the table. The
// result is cached until Invalidate is called.
func (t *Toolbox) Attributes(ctx context.Context, bundle *string) (map[string]eavx.AttributeDefinition, error) {
	key := bundleKey(bundle)

	t.mu.RLock()
	cached, ok := t.cache[key]
	t.mu.RUnlock()
	if ok {
		return cached, nil
	}

	defs, err := t.attrs.ListDefinitions(ctx, t.tableAlias, bundle)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]eavx.AttributeDefinition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	t.mu.Lock()
	t.cache[key] = byName
	t.mu.Unlock()

	zap.S().Debugw("loaded attribute definitions",
		"table", t.tableAlias, "bundle", key, "count", len(byName))
	return byName, nil
}

// Invalidate drops every cached bundle view. Callers that mutate definitions
// must invalidate before readers can observe the change.
func (t *Toolbox) Invalidate() {
	t.mu.Lock()
	t.cache = make(map[string]map[string]eavx.AttributeDefinition)
	t.mu.Unlock()
}

// PropertyExists reports whether name is a virtual column for the bundle.
func (t *Toolbox) PropertyExists(ctx context.Context, name string, bundle *string) (bool, error) {
	defs, err := t.Attributes(ctx, bundle)
	if err != nil {
		return false, err
	}
	_, ok := defs[name]
	return ok, nil
}

// GetType returns the declared type of a virtual column, or ok=false when
// the column does not exist for the bundle.
func (t *Toolbox) GetType(ctx context.Context, name string, bundle *string) (eavx.AttributeType, bool, error) {
	defs, err := t.Attributes(ctx, bundle)
	if err != nil {
		return "", false, err
	}
	def, ok := defs[name]
	if !ok {
		return "", false, nil
	}
	return def.Type, true, nil
}

// Marshal converts a raw value into the canonical storage form for a
// virtual column's declared type.
func (t *Toolbox) Marshal(ctx context.Context, name string, raw any, bundle *string) (any, error) {
	typ, ok, err := t.GetType(ctx, name, bundle)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, eavx.NewError(eavx.ErrorTypeNotFound, eavx.ErrCodeColumnNotFound,
			fmt.Sprintf("virtual column %q is not defined", name)).
			WithTable(t.tableAlias).WithColumn(name)
	}
	return MarshalValue(raw, typ)
}

// EntityID derives the storage entity id from a record's primary key
// fields. Composite keys are joined with ":". Missing key fields are a
// configuration error.
func (t *Toolbox) EntityID(record eavx.Record) (string, error) {
	parts := make([]string, 0, len(t.primaryKey))
	for _, field := range t.primaryKey {
		v, ok := record.Get(field)
		if !ok || v == nil {
			return "", eavx.NewEntityKeyMissingError(t.tableAlias, field)
		}
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return strings.Join(parts, compositeKeySeparator), nil
}

// ExtractEntityIDs derives entity ids for a batch of records, in order and
// deduplicated. Records missing key fields are skipped.
func (t *Toolbox) ExtractEntityIDs(records []eavx.Record) []string {
	seen := NewSet[string]()
	ids := make([]string, 0, len(records))
	for _, record := range records {
		id, err := t.EntityID(record)
		if err != nil || seen.Contains(id) {
			continue
		}
		seen.Add(id)
		ids = append(ids, id)
	}
	return ids
}
