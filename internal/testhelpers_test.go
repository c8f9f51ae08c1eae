package internal

import (
	"github.com/lychee-technology/eavx"
	"github.com/pashagolub/pgxmock/v3"
)

func strPtr(s string) *string { return &s }

func eavxType(s string) eavx.AttributeType { return eavx.AttributeType(s) }

func newDef(id int64, table string, bundle *string, name, typ string, searchable bool) *eavx.AttributeDefinition {
	return &eavx.AttributeDefinition{
		ID:         id,
		TableAlias: table,
		Bundle:     bundle,
		Name:       name,
		Type:       eavx.AttributeType(typ),
		Searchable: searchable,
	}
}

// expectDefinitions primes the mock with the definitions query the toolbox
// issues for a table and bundle.
func expectDefinitions(mock pgxmock.PgxPoolIface, table string, bundle *string, defs ...*eavx.AttributeDefinition) {
	rows := pgxmock.NewRows(defColumns)
	for _, def := range defs {
		rows.AddRow(def.ID, def.TableAlias, def.Bundle, def.Name, def.Type, def.Searchable, def.Extra)
	}
	if bundle == nil {
		mock.ExpectQuery(`WHERE table_alias = \$1 ORDER BY name$`).
			WithArgs(table).
			WillReturnRows(rows)
		return
	}
	mock.ExpectQuery(`WHERE table_alias = \$1 AND \(bundle IS NULL OR bundle = \$2\) ORDER BY name$`).
		WithArgs(table, *bundle).
		WillReturnRows(rows)
}
