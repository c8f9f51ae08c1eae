package internal

import (
	"context"
	"testing"

	"github.com/lychee-technology/eavx"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engineConfig() *eavx.Config {
	cfg := eavx.DefaultConfig()
	cfg.Tables["articles"] = eavx.TableConfig{
		Enabled:       true,
		PrimaryKey:    []string{"id"},
		NativeColumns: []string{"title", "bundle"},
	}
	return cfg
}

func newTestEngine(t *testing.T, cfg *eavx.Config) (*Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	engine, err := NewEngine(mock, cfg)
	require.NoError(t, err)
	return engine, mock
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := engineConfig()
	cfg.Tables["articles"] = eavx.TableConfig{Enabled: true}

	_, err = NewEngine(mock, cfg)
	require.Error(t, err)

	var ce *eavx.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tables.articles.primaryKey", ce.Field)
}

func TestNewEngineRejectsUnknownScope(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := engineConfig()
	table := cfg.Tables["articles"]
	table.Scopes = []string{eavx.ScopeSelect, "geo"}
	cfg.Tables["articles"] = table

	_, err = NewEngine(mock, cfg)
	require.Error(t, err)
	assert.True(t, eavx.IsConfigurationError(err))
	assert.Contains(t, err.Error(), `"geo"`)
}

func TestEngineUnmanagedTable(t *testing.T) {
	engine, _ := newTestEngine(t, engineConfig())

	_, err := engine.ScopeQuery(context.Background(), &eavx.Query{Table: "users"})
	require.Error(t, err)

	var e *eavx.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, eavx.ErrCodeTableNotManaged, e.Code)

	_, err = engine.Columns(context.Background(), "users", nil)
	require.Error(t, err)

	err = engine.PersistVirtual(context.Background(), nil, "users", eavx.NewEntity(nil))
	require.Error(t, err)
}

func TestScopeQueryClampsPaging(t *testing.T) {
	ctx := context.Background()
	engine, mock := newTestEngine(t, engineConfig())

	off := false

	// Unset limit takes the default page size.
	q := &eavx.Query{Table: "articles", EAV: &off}
	_, err := engine.ScopeQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 50, q.Limit)

	// Oversized limit is clamped to the maximum.
	q = &eavx.Query{Table: "articles", Limit: 5000, EAV: &off}
	_, err = engine.ScopeQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 100, q.Limit)

	// Valid limits pass through unchanged.
	q = &eavx.Query{Table: "articles", Limit: 25, EAV: &off}
	_, err = engine.ScopeQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 25, q.Limit)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeQueryDisabledPassesWhereThrough(t *testing.T) {
	ctx := context.Background()
	cfg := engineConfig()
	table := cfg.Tables["articles"]
	table.Enabled = false
	cfg.Tables["articles"] = table
	engine, mock := newTestEngine(t, cfg)

	where := &eavx.FieldCondition{Field: "rating", Op: eavx.OpEquals, Value: 5}
	q := &eavx.Query{Table: "articles", Where: where}

	sq, err := engine.ScopeQuery(ctx, q)
	require.NoError(t, err)

	// Disabled tables skip the scopes entirely: the condition survives as-is
	// and no definitions are loaded.
	assert.Same(t, where, sq.Where)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeQueryRewritesVirtualCondition(t *testing.T) {
	ctx := context.Background()
	engine, mock := newTestEngine(t, engineConfig())

	// One definitions load feeds all three scopes through the toolbox cache.
	expectDefinitions(mock, "articles", nil,
		newDef(1, "articles", nil, "rating", "integer", true))

	q := &eavx.Query{
		Table: "articles",
		Where: &eavx.FieldCondition{Field: "rating", Op: eavx.OpGreaterEq, Value: 3},
		Order: []eavx.OrderBy{{Field: "rating", Order: eavx.SortOrderDesc}},
	}
	sq, err := engine.ScopeQuery(ctx, q)
	require.NoError(t, err)

	raw, ok := sq.Where.(*eavx.RawCondition)
	require.True(t, ok)
	assert.Contains(t, raw.SQL, `IN (SELECT entity_id FROM "eav_values"`)
	require.Len(t, sq.Order, 1)
	assert.True(t, sq.Order[0].IsRaw())

	// Applying the scopes again over the rewritten query is a no-op.
	again, err := engine.ScopeQuery(ctx, sq.Query)
	require.NoError(t, err)
	assert.Same(t, raw, again.Where)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineColumnsCopiesDefinitions(t *testing.T) {
	ctx := context.Background()
	engine, mock := newTestEngine(t, engineConfig())

	expectDefinitions(mock, "articles", nil,
		newDef(1, "articles", nil, "rating", "integer", true))

	cols, err := engine.Columns(ctx, "articles", nil)
	require.NoError(t, err)
	require.Contains(t, cols, "rating")

	// Mutating the returned map must not poison the cached definitions.
	delete(cols, "rating")
	cols2, err := engine.Columns(ctx, "articles", nil)
	require.NoError(t, err)
	assert.Contains(t, cols2, "rating")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRebuildCacheColumnsRequiresTransaction(t *testing.T) {
	engine, _ := newTestEngine(t, engineConfig())

	err := engine.RebuildCacheColumns(context.Background(), nil, "articles", eavx.NewEntity(map[string]any{"id": 1}))
	require.Error(t, err)
	assert.True(t, eavx.IsNonAtomicError(err))
}

func TestEngineHydrateRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine, mock := newTestEngine(t, engineConfig())

	expectDefinitions(mock, "articles", nil,
		newDef(1, "articles", nil, "rating", "integer", true))

	q := &eavx.Query{Table: "articles", Select: []eavx.Selection{{Field: "title"}, {Field: "rating"}}}
	sq, err := engine.ScopeQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"rating": "rating"}, sq.Context.Selected)

	five := int64(5)
	mock.ExpectQuery(`FROM "eav_values" WHERE eav_attribute_id = ANY\(\$1\)`).
		WithArgs([]int64{1}, []string{"1"}).
		WillReturnRows(emptySlotsRow(pgxmock.NewRows(valueCols), 10, 1, "1", &five))

	records := []eavx.Record{eavx.NewEntity(map[string]any{"id": 1, "title": "a"})}
	out, err := engine.Hydrate(ctx, sq, records)
	require.NoError(t, err)
	require.Len(t, out, 1)

	got, _ := out[0].Get("rating")
	assert.Equal(t, int64(5), got)

	require.NoError(t, mock.ExpectationsWereMet())
}
