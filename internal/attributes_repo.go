package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/eavx"
	"go.uber.org/zap"
)

// Querier is the subset of pgx operations the repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same repository code runs
// inside and outside transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const definitionColumns = "id, table_alias, bundle, name, type, searchable, extra"

// AttributeRepository persists virtual column definitions in the
// eav_attributes table.
type AttributeRepository struct {
	db    Querier
	table string
}

// NewAttributeRepository creates a repository over the given definitions table.
func NewAttributeRepository(db Querier, table string) *AttributeRepository {
	return &AttributeRepository{db: db, table: table}
}

// ListDefinitions returns the definitions of a table. A nil bundle returns
// every definition; a concrete bundle returns bundle-less definitions plus
// the ones scoped to it.
func (r *AttributeRepository) ListDefinitions(ctx context.Context, tableAlias string, bundle *string) ([]eavx.AttributeDefinition, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE table_alias = $1",
		definitionColumns, sanitizeIdentifier(r.table),
	)
	args := []any{tableAlias}
	if bundle != nil {
		query += " AND (bundle IS NULL OR bundle = $2)"
		args = append(args, *bundle)
	}
	query += " ORDER BY name"

	zap.S().Debugw("list attribute definitions", "query", query, "args", args)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attribute definitions: %w", err)
	}
	defer rows.Close()

	var defs []eavx.AttributeDefinition
	for rows.Next() {
		var def eavx.AttributeDefinition
		if err := rows.Scan(
			&def.ID,
			&def.TableAlias,
			&def.Bundle,
			&def.Name,
			&def.Type,
			&def.Searchable,
			&def.Extra,
		); err != nil {
			return nil, fmt.Errorf("scan attribute definition: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribute definitions: %w", err)
	}
	return defs, nil
}

// FindDefinition looks up the definition exactly matching (table, name,
// bundle), treating a nil bundle as the NULL bundle. Returns nil when absent.
func (r *AttributeRepository) FindDefinition(ctx context.Context, tableAlias, name string, bundle *string) (*eavx.AttributeDefinition, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE table_alias = $1 AND name = $2 AND bundle IS NOT DISTINCT FROM $3",
		definitionColumns, sanitizeIdentifier(r.table),
	)

	var def eavx.AttributeDefinition
	err := r.db.QueryRow(ctx, query, tableAlias, name, bundle).Scan(
		&def.ID,
		&def.TableAlias,
		&def.Bundle,
		&def.Name,
		&def.Type,
		&def.Searchable,
		&def.Extra,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attribute definition: %w", err)
	}
	return &def, nil
}

// InsertDefinition creates a definition and fills in its generated id.
func (r *AttributeRepository) InsertDefinition(ctx context.Context, def *eavx.AttributeDefinition) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (table_alias, bundle, name, type, searchable, extra) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		sanitizeIdentifier(r.table),
	)
	err := r.db.QueryRow(ctx, query,
		def.TableAlias, def.Bundle, def.Name, def.Type, def.Searchable, def.Extra,
	).Scan(&def.ID)
	if err != nil {
		return fmt.Errorf("insert attribute definition: %w", err)
	}
	return nil
}

// UpdateDefinition overwrites the mutable parts of an existing definition.
func (r *AttributeRepository) UpdateDefinition(ctx context.Context, def *eavx.AttributeDefinition) error {
	query := fmt.Sprintf(
		"UPDATE %s SET type = $1, searchable = $2, extra = $3 WHERE id = $4",
		sanitizeIdentifier(r.table),
	)
	tag, err := r.db.Exec(ctx, query, def.Type, def.Searchable, def.Extra, def.ID)
	if err != nil {
		return fmt.Errorf("update attribute definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attribute definition %d not found", def.ID)
	}
	return nil
}

// DeleteDefinition removes a definition by id. The bool reports whether a
// row was deleted.
func (r *AttributeRepository) DeleteDefinition(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", sanitizeIdentifier(r.table))
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete attribute definition: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
