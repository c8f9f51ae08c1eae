package eavx

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Engine augments a relational table set with virtual columns: metadata
// mutation, query scoping, hydration and transactional value persistence.
type Engine interface {
	// AddColumn creates or overwrites a virtual column definition.
	// Entity-level validation failures come back as data; configuration
	// errors (native-column collision, unknown type, duplicate without
	// overwrite) and storage errors come back as error.
	AddColumn(ctx context.Context, table string, spec ColumnSpec) (*ValidationErrors, error)

	// DropColumn removes a definition and its stored values. The bool
	// reports whether a matching definition existed.
	DropColumn(ctx context.Context, table, name string, bundle *string) (bool, error)

	// Columns lists the virtual column definitions visible to a bundle,
	// keyed by name.
	Columns(ctx context.Context, table string, bundle *string) (map[string]AttributeDefinition, error)

	// ScopeQuery applies the registered scopes in their fixed order and
	// returns the rewritten query with its scope context.
	ScopeQuery(ctx context.Context, q *Query) (*ScopedQuery, error)

	// Hydrate attaches virtual values to freshly fetched records. It runs
	// after the driver returns rows and before any stage that expects the
	// virtual properties to be present.
	Hydrate(ctx context.Context, sq *ScopedQuery, records []Record) ([]Record, error)

	// PersistVirtual reconciles the record's virtual values inside tx,
	// after its native columns were saved, and refreshes cache columns.
	PersistVirtual(ctx context.Context, tx pgx.Tx, table string, record Record) error

	// DeleteVirtual removes every stored value of the record's entity.
	// A nil tx is a configuration error rejected before any deletion.
	DeleteVirtual(ctx context.Context, tx pgx.Tx, table string, record Record) error

	// RebuildCacheColumns recomputes the table's cache-holder columns for
	// the record's entity inside tx.
	RebuildCacheColumns(ctx context.Context, tx pgx.Tx, table string, record Record) error
}

// Hydrator is the pluggable per-record hydration strategy. It receives the
// record and its resolved virtual values (aliased, gap-filled with nils) and
// returns the record to keep. Returning false drops the record from the
// result set.
type Hydrator interface {
	Hydrate(record Record, values map[string]any) (Record, bool)
}

// HydratorFunc adapts a function to the Hydrator interface.
type HydratorFunc func(record Record, values map[string]any) (Record, bool)

// Hydrate implements Hydrator.
func (f HydratorFunc) Hydrate(record Record, values map[string]any) (Record, bool) {
	return f(record, values)
}

// DefaultHydrator sets every resolved value as a property on the record and
// keeps it.
func DefaultHydrator() Hydrator {
	return HydratorFunc(func(record Record, values map[string]any) (Record, bool) {
		for name, value := range values {
			record.Set(name, value)
		}
		return record, true
	})
}

// QueryScope is one pluggable rewrite rule. Implementations must be
// idempotent: scoping an already-scoped query is a no-op.
type QueryScope interface {
	Name() string
	Scope(ctx context.Context, q *Query, sc *ScopeContext) error
}
