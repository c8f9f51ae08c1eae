package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/eavx"
	"go.uber.org/zap"
)

// tableRuntime bundles the per-table components built from one TableConfig.
type tableRuntime struct {
	cfg         eavx.TableConfig
	toolbox     *Toolbox
	scopes      []eavx.QueryScope
	hydration   *hydrationPipeline
	persistence *persistencePipeline
	rebuilder   *cacheRebuilder
	mutator     *columnMutator
}

// Engine is the concrete virtual column engine over a Postgres value store.
type Engine struct {
	db     Querier
	cfg    *eavx.Config
	attrs  *AttributeRepository
	values *ValueRepository
	tables map[string]*tableRuntime
}

var _ eavx.Engine = (*Engine)(nil)

// NewEngine builds an engine from a validated configuration. db is
// typically a *pgxpool.Pool.
func NewEngine(db Querier, cfg *eavx.Config) (*Engine, error) {
	if cfg == nil {
		cfg = eavx.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	attrs := NewAttributeRepository(db, cfg.Database.TableNames.Attributes)
	values := NewValueRepository(db, cfg.Database.TableNames.Values, cfg.Query.FetchBatchSize)

	e := &Engine{
		db:     db,
		cfg:    cfg,
		attrs:  attrs,
		values: values,
		tables: make(map[string]*tableRuntime, len(cfg.Tables)),
	}

	for alias, tableCfg := range cfg.Tables {
		rt, err := e.buildTable(alias, tableCfg)
		if err != nil {
			return nil, err
		}
		e.tables[alias] = rt
	}

	if cfg.Logging.LogSlowQueries {
		RegisterTelemetryEmitter(SlowStageEmitter(cfg.Logging.SlowQueryThreshold))
	}

	zap.S().Infow("virtual column engine ready", "tables", len(e.tables))
	return e, nil
}

func (e *Engine) buildTable(alias string, cfg eavx.TableConfig) (*tableRuntime, error) {
	toolbox := NewToolbox(alias, cfg.PrimaryKey, e.attrs)
	rebuilder := newCacheRebuilder(toolbox, e.values, cfg)

	rt := &tableRuntime{
		cfg:         cfg,
		toolbox:     toolbox,
		hydration:   newHydrationPipeline(toolbox, e.values, cfg),
		persistence: newPersistencePipeline(toolbox, e.values, rebuilder, cfg, e.cfg.Query.LockValueRows),
		rebuilder:   rebuilder,
		mutator:     newColumnMutator(toolbox, e.attrs, e.values, cfg),
	}

	valuesTable := e.cfg.Database.TableNames.Values
	for _, name := range cfg.ScopeOrder() {
		switch name {
		case eavx.ScopeSelect:
			rt.scopes = append(rt.scopes, NewSelectScope(toolbox))
		case eavx.ScopeWhere:
			rt.scopes = append(rt.scopes, NewWhereScope(toolbox, valuesTable))
		case eavx.ScopeOrder:
			rt.scopes = append(rt.scopes, NewOrderScope(toolbox, valuesTable))
		default:
			return nil, eavx.NewConfigurationError(eavx.ErrCodeValidationFailed,
				fmt.Sprintf("unknown query scope %q for table %q", name, alias))
		}
	}
	return rt, nil
}

func (e *Engine) table(alias string) (*tableRuntime, error) {
	rt, ok := e.tables[alias]
	if !ok {
		return nil, eavx.NewTableNotManagedError(alias)
	}
	return rt, nil
}

// AddColumn creates or overwrites a virtual column of a managed table.
func (e *Engine) AddColumn(ctx context.Context, table string, spec eavx.ColumnSpec) (*eavx.ValidationErrors, error) {
	rt, err := e.table(table)
	if err != nil {
		return nil, err
	}
	return rt.mutator.AddColumn(ctx, spec)
}

// DropColumn removes a virtual column definition and its stored values.
func (e *Engine) DropColumn(ctx context.Context, table, name string, bundle *string) (bool, error) {
	rt, err := e.table(table)
	if err != nil {
		return false, err
	}
	return rt.mutator.DropColumn(ctx, e.db, name, bundle)
}

// Columns lists the virtual column definitions visible to a bundle.
func (e *Engine) Columns(ctx context.Context, table string, bundle *string) (map[string]eavx.AttributeDefinition, error) {
	rt, err := e.table(table)
	if err != nil {
		return nil, err
	}
	defs, err := rt.toolbox.Attributes(ctx, bundle)
	if err != nil {
		return nil, err
	}
	out := make(map[string]eavx.AttributeDefinition, len(defs))
	for name, def := range defs {
		out[name] = def
	}
	return out, nil
}

// ScopeQuery rewrites a query through the table's registered scopes. With
// virtual columns disabled for the call, the query passes through with only
// page-size clamping applied.
func (e *Engine) ScopeQuery(ctx context.Context, q *eavx.Query) (*eavx.ScopedQuery, error) {
	rt, err := e.table(q.Table)
	if err != nil {
		return nil, err
	}
	defer func(start time.Time) {
		EmitStageLatency(ctx, q.Table, "scope", time.Since(start))
	}(time.Now())

	e.clampPaging(q)
	sq := &eavx.ScopedQuery{
		Query:   q,
		Context: eavx.ScopeContext{Bundle: q.Bundle},
	}
	if !rt.hydration.active(q.EAV) {
		return sq, nil
	}

	for _, scope := range rt.scopes {
		if err := scope.Scope(ctx, q, &sq.Context); err != nil {
			return nil, err
		}
	}
	return sq, nil
}

func (e *Engine) clampPaging(q *eavx.Query) {
	if q.Limit <= 0 {
		q.Limit = e.cfg.Query.DefaultPageSize
	}
	if max := e.cfg.Query.MaxPageSize; q.Limit > max {
		q.Limit = max
	}
}

// Hydrate attaches virtual values to a page of fetched records.
func (e *Engine) Hydrate(ctx context.Context, sq *eavx.ScopedQuery, records []eavx.Record) ([]eavx.Record, error) {
	rt, err := e.table(sq.Table)
	if err != nil {
		return nil, err
	}
	defer func(start time.Time) {
		EmitStageLatency(ctx, sq.Table, "hydrate", time.Since(start))
	}(time.Now())
	return rt.hydration.Run(ctx, sq, records)
}

// PersistVirtual stores the record's virtual fields inside tx after a save.
func (e *Engine) PersistVirtual(ctx context.Context, tx pgx.Tx, table string, record eavx.Record) error {
	rt, err := e.table(table)
	if err != nil {
		return err
	}
	defer func(start time.Time) {
		EmitStageLatency(ctx, table, "persist", time.Since(start))
	}(time.Now())
	return rt.persistence.AfterSave(ctx, tx, record)
}

// DeleteVirtual removes every stored value of the record's entity inside tx.
func (e *Engine) DeleteVirtual(ctx context.Context, tx pgx.Tx, table string, record eavx.Record) error {
	rt, err := e.table(table)
	if err != nil {
		return err
	}
	return rt.persistence.AfterDelete(ctx, tx, record)
}

// RebuildCacheColumns recomputes the record's cache-holder columns inside tx.
func (e *Engine) RebuildCacheColumns(ctx context.Context, tx pgx.Tx, table string, record eavx.Record) error {
	rt, err := e.table(table)
	if err != nil {
		return err
	}
	if tx == nil {
		return eavx.NewNonAtomicSaveError(table)
	}
	return rt.rebuilder.Rebuild(ctx, tx, record)
}
