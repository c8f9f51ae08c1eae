package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lychee-technology/eavx"
	"github.com/lychee-technology/eavx/internal"
)

// SeedPostgres creates the articles base table, the engine's storage tables
// and a handful of seed rows.
func SeedPostgres(ctx context.Context, h *TestHarness) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS articles (
  id BIGINT PRIMARY KEY,
  bundle TEXT,
  title TEXT NOT NULL,
  eav_cache BYTEA
);`,
	}
	for _, s := range stmts {
		if _, err := h.PGDB.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	names := eavx.TableNames{Attributes: "eav_attributes", Values: "eav_values"}
	if err := internal.CreateTables(ctx, h.Pool, names); err != nil {
		return err
	}

	seeds := []struct {
		id     int64
		bundle string
		title  string
	}{
		{1, "news", "first"},
		{2, "news", "second"},
		{3, "review", "third"},
		{4, "review", "fourth"},
		{5, "news", "fifth"},
	}
	for _, seed := range seeds {
		if _, err := h.PGDB.ExecContext(ctx,
			`INSERT INTO articles (id, bundle, title) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			seed.id, seed.bundle, seed.title,
		); err != nil {
			return fmt.Errorf("seed article %d: %w", seed.id, err)
		}
	}
	return nil
}

// ArticlesConfig returns the engine configuration used by the E2E tests.
func ArticlesConfig() *eavx.Config {
	cfg := eavx.DefaultConfig()
	cfg.Tables["articles"] = eavx.TableConfig{
		Enabled:       true,
		PrimaryKey:    []string{"id"},
		NativeColumns: []string{"id", "bundle", "title", "eav_cache"},
		CacheColumn:   "eav_cache",
	}
	return cfg
}

// CountRows is a small helper over the raw connection.
func CountRows(ctx context.Context, db *sql.DB, query string, args ...any) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
