package internal

import (
	"context"
	"fmt"

	"github.com/lychee-technology/eavx"
	"go.uber.org/zap"
)

func schemaStatements(names eavx.TableNames) []string {
	attrs := sanitizeIdentifier(names.Attributes)
	values := sanitizeIdentifier(names.Values)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id BIGSERIAL PRIMARY KEY,
    table_alias TEXT NOT NULL,
    bundle TEXT,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    searchable BOOLEAN NOT NULL DEFAULT TRUE,
    extra TEXT
)`, attrs),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_identity
    ON %s (table_alias, name, COALESCE(bundle, ''))`, names.Attributes, attrs),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id BIGSERIAL PRIMARY KEY,
    eav_attribute_id BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
    entity_id TEXT NOT NULL,
    value_string VARCHAR(255),
    value_text TEXT,
    value_integer BIGINT,
    value_decimal DOUBLE PRECISION,
    value_boolean BOOLEAN,
    value_date DATE,
    value_datetime TIMESTAMPTZ,
    value_uuid UUID
)`, values, attrs),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_slot
    ON %s (eav_attribute_id, entity_id)`, names.Values, values),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_entity
    ON %s (entity_id)`, names.Values, values),
	}
}

// CreateTables creates the definition and value tables plus their indexes.
// Statements are idempotent, so re-running against an initialized database
// is safe.
func CreateTables(ctx context.Context, db Querier, names eavx.TableNames) error {
	for _, stmt := range schemaStatements(names) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create storage schema: %w", err)
		}
	}
	zap.S().Infow("storage schema ready",
		"attributes", names.Attributes, "values", names.Values)
	return nil
}
