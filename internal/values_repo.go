package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const valueColumns = "id, eav_attribute_id, entity_id, " +
	"value_string, value_text, value_integer, value_decimal, value_boolean, " +
	"value_date, value_datetime, value_uuid"

// ValueRepository reads and writes typed value rows in the eav_values table.
type ValueRepository struct {
	db        Querier
	table     string
	batchSize int
}

// NewValueRepository creates a repository over the given values table.
// batchSize caps how many entity ids a single fetch binds; zero means no
// batching.
func NewValueRepository(db Querier, table string, batchSize int) *ValueRepository {
	return &ValueRepository{db: db, table: table, batchSize: batchSize}
}

func (r *ValueRepository) scanRows(rows pgx.Rows) ([]ValueRow, error) {
	defer rows.Close()
	var out []ValueRow
	for rows.Next() {
		var row ValueRow
		if err := rows.Scan(
			&row.ID,
			&row.AttributeID,
			&row.EntityID,
			&row.ValueString,
			&row.ValueText,
			&row.ValueInteger,
			&row.ValueDecimal,
			&row.ValueBoolean,
			&row.ValueDate,
			&row.ValueDatetime,
			&row.ValueUUID,
		); err != nil {
			return nil, fmt.Errorf("scan value row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate value rows: %w", err)
	}
	return out, nil
}

// FetchValues loads every stored value for the given attributes and entity
// ids in one query per batch. Empty inputs short-circuit to no rows.
func (r *ValueRepository) FetchValues(ctx context.Context, attrIDs []int64, entityIDs []string) ([]ValueRow, error) {
	if len(attrIDs) == 0 || len(entityIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE eav_attribute_id = ANY($1) AND entity_id = ANY($2)",
		valueColumns, sanitizeIdentifier(r.table),
	)

	batch := r.batchSize
	if batch <= 0 || batch > len(entityIDs) {
		batch = len(entityIDs)
	}

	var all []ValueRow
	for start := 0; start < len(entityIDs); start += batch {
		end := start + batch
		if end > len(entityIDs) {
			end = len(entityIDs)
		}
		zap.S().Debugw("fetch value rows",
			"table", r.table, "attributes", len(attrIDs), "entities", end-start)
		rows, err := r.db.Query(ctx, query, attrIDs, entityIDs[start:end])
		if err != nil {
			return nil, fmt.Errorf("query value rows: %w", err)
		}
		chunk, err := r.scanRows(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, chunk...)
	}
	return all, nil
}

// FetchForEntityLocked loads one entity's value rows for the given
// attributes, optionally taking row locks for the enclosing transaction.
func (r *ValueRepository) FetchForEntityLocked(ctx context.Context, q Querier, attrIDs []int64, entityID string, lock bool) ([]ValueRow, error) {
	if len(attrIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE eav_attribute_id = ANY($1) AND entity_id = $2",
		valueColumns, sanitizeIdentifier(r.table),
	)
	if lock {
		query += " FOR UPDATE"
	}
	rows, err := q.Query(ctx, query, attrIDs, entityID)
	if err != nil {
		return nil, fmt.Errorf("query value rows for entity: %w", err)
	}
	return r.scanRows(rows)
}

// Persist writes a value row: rows with a zero id are inserted, the rest
// updated in place.
func (r *ValueRepository) Persist(ctx context.Context, q Querier, row *ValueRow) error {
	if row.ID == 0 {
		query := fmt.Sprintf(
			"INSERT INTO %s (eav_attribute_id, entity_id, "+
				"value_string, value_text, value_integer, value_decimal, value_boolean, "+
				"value_date, value_datetime, value_uuid) "+
				"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id",
			sanitizeIdentifier(r.table),
		)
		err := q.QueryRow(ctx, query,
			row.AttributeID, row.EntityID,
			row.ValueString, row.ValueText, row.ValueInteger, row.ValueDecimal,
			row.ValueBoolean, row.ValueDate, row.ValueDatetime, row.ValueUUID,
		).Scan(&row.ID)
		if err != nil {
			return fmt.Errorf("insert value row: %w", err)
		}
		return nil
	}

	query := fmt.Sprintf(
		"UPDATE %s SET value_string = $1, value_text = $2, value_integer = $3, "+
			"value_decimal = $4, value_boolean = $5, value_date = $6, "+
			"value_datetime = $7, value_uuid = $8 WHERE id = $9",
		sanitizeIdentifier(r.table),
	)
	if _, err := q.Exec(ctx, query,
		row.ValueString, row.ValueText, row.ValueInteger, row.ValueDecimal,
		row.ValueBoolean, row.ValueDate, row.ValueDatetime, row.ValueUUID, row.ID,
	); err != nil {
		return fmt.Errorf("update value row: %w", err)
	}
	return nil
}

// DeleteForEntity drops the entity's rows for the given attributes and
// returns the number removed.
func (r *ValueRepository) DeleteForEntity(ctx context.Context, q Querier, attrIDs []int64, entityID string) (int64, error) {
	if len(attrIDs) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE eav_attribute_id = ANY($1) AND entity_id = $2",
		sanitizeIdentifier(r.table),
	)
	tag, err := q.Exec(ctx, query, attrIDs, entityID)
	if err != nil {
		return 0, fmt.Errorf("delete value rows for entity: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteForAttribute drops every row stored under one attribute definition.
func (r *ValueRepository) DeleteForAttribute(ctx context.Context, q Querier, attributeID int64) (int64, error) {
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE eav_attribute_id = $1",
		sanitizeIdentifier(r.table),
	)
	tag, err := q.Exec(ctx, query, attributeID)
	if err != nil {
		return 0, fmt.Errorf("delete value rows for attribute: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Table returns the values table name, used by scopes embedding subqueries.
func (r *ValueRepository) Table() string { return r.table }
