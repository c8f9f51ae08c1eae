package internal

import (
	"context"
	"strings"
	"testing"

	"github.com/lychee-technology/eavx"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaStatementsCoverBothTables(t *testing.T) {
	names := eavx.TableNames{Attributes: "eav_attributes", Values: "eav_values"}
	stmts := schemaStatements(names)
	require.Len(t, stmts, 5)

	assert.Contains(t, stmts[0], `CREATE TABLE IF NOT EXISTS "eav_attributes"`)
	assert.Contains(t, stmts[0], "searchable BOOLEAN NOT NULL DEFAULT TRUE")
	assert.Contains(t, stmts[1], "COALESCE(bundle, '')")
	assert.Contains(t, stmts[2], `CREATE TABLE IF NOT EXISTS "eav_values"`)
	assert.Contains(t, stmts[2], `REFERENCES "eav_attributes" (id) ON DELETE CASCADE`)
	assert.Contains(t, stmts[3], "(eav_attribute_id, entity_id)")

	joined := strings.Join(stmts, "\n")
	for _, slot := range []string{
		"value_string", "value_text", "value_integer", "value_decimal",
		"value_boolean", "value_date", "value_datetime", "value_uuid",
	} {
		assert.Contains(t, joined, slot)
	}
}

func TestSchemaStatementsHonorCustomTableNames(t *testing.T) {
	stmts := schemaStatements(eavx.TableNames{Attributes: "vc_defs", Values: "vc_vals"})

	assert.Contains(t, stmts[0], `"vc_defs"`)
	assert.Contains(t, stmts[2], `"vc_vals"`)
	assert.Contains(t, stmts[3], "idx_vc_vals_slot")
}

func TestCreateTablesExecutesEveryStatement(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for range schemaStatements(eavx.TableNames{Attributes: "eav_attributes", Values: "eav_values"}) {
		mock.ExpectExec(`^CREATE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	names := eavx.TableNames{Attributes: "eav_attributes", Values: "eav_values"}
	require.NoError(t, CreateTables(ctx, mock, names))
	require.NoError(t, mock.ExpectationsWereMet())
}
