package internal

import (
	"context"
	"testing"

	"github.com/lychee-technology/eavx"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMutator(t *testing.T) (*columnMutator, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	cfg := eavx.TableConfig{
		Enabled:       true,
		PrimaryKey:    []string{"id"},
		NativeColumns: []string{"title", "bundle"},
	}
	attrs := NewAttributeRepository(mock, "eav_attributes")
	values := NewValueRepository(mock, "eav_values", 100)
	tb := NewToolbox("articles", cfg.PrimaryKey, attrs)
	return newColumnMutator(tb, attrs, values, cfg), mock
}

func expectFindDefinition(mock pgxmock.PgxPoolIface, name string, bundle *string, def *eavx.AttributeDefinition) {
	rows := pgxmock.NewRows(defColumns)
	if def != nil {
		rows.AddRow(def.ID, def.TableAlias, def.Bundle, def.Name, def.Type, def.Searchable, def.Extra)
	}
	mock.ExpectQuery(`bundle IS NOT DISTINCT FROM \$3$`).
		WithArgs("articles", name, bundle).
		WillReturnRows(rows)
}

func TestAddColumnRejectsMalformedSpecs(t *testing.T) {
	m, mock := newTestMutator(t)

	tests := []struct {
		name  string
		spec  eavx.ColumnSpec
		field string
	}{
		{"empty name", eavx.ColumnSpec{Type: "string"}, "name"},
		{"uppercase name", eavx.ColumnSpec{Name: "Rating", Type: "string"}, "name"},
		{"leading digit", eavx.ColumnSpec{Name: "1rating", Type: "string"}, "name"},
		{"missing type", eavx.ColumnSpec{Name: "rating"}, "type"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verrs, err := m.AddColumn(context.Background(), tc.spec)
			require.NoError(t, err)
			require.NotNil(t, verrs)
			assert.True(t, verrs.HasErrors())

			found := false
			for _, fe := range verrs.Errors {
				if fe.Field == tc.field {
					found = true
					assert.Equal(t, eavx.ErrCodeValidationFailed, fe.Code)
				}
			}
			assert.True(t, found, "expected a field error on %s", tc.field)
		})
	}

	// Shape violations never reach the definitions store.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddColumnRejectsNativeCollision(t *testing.T) {
	m, _ := newTestMutator(t)

	_, err := m.AddColumn(context.Background(), eavx.ColumnSpec{Name: "title", Type: "string"})
	require.Error(t, err)

	var e *eavx.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, eavx.ErrCodeColumnCollision, e.Code)
}

func TestAddColumnPrimaryKeyIsNative(t *testing.T) {
	m, _ := newTestMutator(t)

	_, err := m.AddColumn(context.Background(), eavx.ColumnSpec{Name: "id", Type: "integer"})
	require.Error(t, err)

	var e *eavx.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, eavx.ErrCodeColumnCollision, e.Code)
}

func TestAddColumnRejectsUnknownType(t *testing.T) {
	m, _ := newTestMutator(t)

	_, err := m.AddColumn(context.Background(), eavx.ColumnSpec{Name: "rating", Type: "blob"})
	require.Error(t, err)

	var e *eavx.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, eavx.ErrCodeUnknownType, e.Code)
	assert.Equal(t, "articles", e.Table)
	assert.Equal(t, "rating", e.Column)
}

func TestAddColumnInsertsNewDefinition(t *testing.T) {
	ctx := context.Background()
	m, mock := newTestMutator(t)

	expectFindDefinition(mock, "rating", nil, nil)
	mock.ExpectQuery(`^INSERT INTO "eav_attributes"`).
		WithArgs("articles", (*string)(nil), "rating", eavxType("integer"), true, (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	verrs, err := m.AddColumn(ctx, eavx.ColumnSpec{Name: "rating", Type: "integer"})
	require.NoError(t, err)
	assert.Nil(t, verrs)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddColumnDuplicateWithoutOverwrite(t *testing.T) {
	ctx := context.Background()
	m, mock := newTestMutator(t)

	expectFindDefinition(mock, "rating", nil,
		newDef(7, "articles", nil, "rating", "integer", true))

	_, err := m.AddColumn(ctx, eavx.ColumnSpec{Name: "rating", Type: "integer"})
	require.Error(t, err)

	var e *eavx.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, eavx.ErrCodeDuplicateColumn, e.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddColumnOverwriteUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	m, mock := newTestMutator(t)

	expectFindDefinition(mock, "rating", nil,
		newDef(7, "articles", nil, "rating", "integer", true))

	off := false
	mock.ExpectExec(`^UPDATE "eav_attributes" SET type = \$1, searchable = \$2, extra = \$3 WHERE id = \$4$`).
		WithArgs(eavxType("decimal"), false, (*string)(nil), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	verrs, err := m.AddColumn(ctx, eavx.ColumnSpec{
		Name: "rating", Type: "decimal", Searchable: &off, Overwrite: true,
	})
	require.NoError(t, err)
	assert.Nil(t, verrs)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddColumnInvalidatesCachedDefinitions(t *testing.T) {
	ctx := context.Background()
	m, mock := newTestMutator(t)

	// Prime the toolbox cache, then add a column; the next listing must hit
	// storage again.
	expectDefinitions(mock, "articles", nil)
	_, err := m.toolbox.Attributes(ctx, nil)
	require.NoError(t, err)

	expectFindDefinition(mock, "tag", nil, nil)
	mock.ExpectQuery(`^INSERT INTO "eav_attributes"`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))

	_, err = m.AddColumn(ctx, eavx.ColumnSpec{Name: "tag", Type: "string"})
	require.NoError(t, err)

	expectDefinitions(mock, "articles", nil,
		newDef(8, "articles", nil, "tag", "string", true))
	defs, err := m.toolbox.Attributes(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, defs, "tag")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDropColumnAbsentIsNotAnError(t *testing.T) {
	ctx := context.Background()
	m, mock := newTestMutator(t)

	expectFindDefinition(mock, "ghost", nil, nil)

	dropped, err := m.DropColumn(ctx, mock, "ghost", nil)
	require.NoError(t, err)
	assert.False(t, dropped)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDropColumnRemovesValuesThenDefinition(t *testing.T) {
	ctx := context.Background()
	m, mock := newTestMutator(t)

	expectFindDefinition(mock, "rating", nil,
		newDef(7, "articles", nil, "rating", "integer", true))
	mock.ExpectExec(`^DELETE FROM "eav_values" WHERE eav_attribute_id = \$1$`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))
	mock.ExpectExec(`^DELETE FROM "eav_attributes" WHERE id = \$1$`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	dropped, err := m.DropColumn(ctx, mock, "rating", nil)
	require.NoError(t, err)
	assert.True(t, dropped)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDropColumnScopedToBundle(t *testing.T) {
	ctx := context.Background()
	m, mock := newTestMutator(t)

	news := "news"
	expectFindDefinition(mock, "teaser", &news,
		newDef(9, "articles", &news, "teaser", "text", false))
	mock.ExpectExec(`^DELETE FROM "eav_values"`).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`^DELETE FROM "eav_attributes"`).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	dropped, err := m.DropColumn(ctx, mock, "teaser", &news)
	require.NoError(t, err)
	assert.True(t, dropped)

	require.NoError(t, mock.ExpectationsWereMet())
}
