package factory

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/eavx"
	"github.com/lychee-technology/eavx/internal"
)

// NewEngineWithConfig creates a virtual column engine over the provided
// database pool. This is the primary way for external projects to obtain an
// eavx.Engine instance.
//
// Usage:
//
//	import (
//	    "github.com/lychee-technology/eavx"
//	    "github.com/lychee-technology/eavx/factory"
//	)
//
//	config := eavx.DefaultConfig()
//	config.Tables["articles"] = eavx.TableConfig{
//	    Enabled:    true,
//	    PrimaryKey: []string{"id"},
//	}
//	engine, err := factory.NewEngineWithConfig(config, pool)
//	if err != nil {
//	    // handle error
//	}
func NewEngineWithConfig(config *eavx.Config, pool *pgxpool.Pool) (eavx.Engine, error) {
	if config == nil {
		config = eavx.DefaultConfig()
	}
	if err := VerifyStorageTables(context.Background(), pool, config); err != nil {
		return nil, err
	}
	return internal.NewEngine(pool, config)
}

// NewEngine builds an engine over any Querier, skipping the storage table
// check. Intended for tests and callers managing their own connections.
func NewEngine(config *eavx.Config, db internal.Querier) (eavx.Engine, error) {
	return internal.NewEngine(db, config)
}

// VerifyStorageTables checks that the definition and value tables exist in
// the public schema before the engine starts issuing queries against them.
func VerifyStorageTables(ctx context.Context, db internal.Querier, config *eavx.Config) error {
	rows, err := db.Query(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE';`)
	if err != nil {
		return fmt.Errorf("failed to verify database connection: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	names := config.Database.TableNames
	if !slices.Contains(tables, names.Attributes) || !slices.Contains(tables, names.Values) {
		return fmt.Errorf("required tables %q and %q are missing in the database", names.Attributes, names.Values)
	}
	return nil
}
