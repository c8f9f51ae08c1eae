package eavx

import (
	"time"
)

// Config consolidates engine settings.
type Config struct {
	Database DatabaseConfig         `json:"database"`
	Query    QueryConfig            `json:"query"`
	Logging  LoggingConfig          `json:"logging"`
	Tables   map[string]TableConfig `json:"tables"` // keyed by table alias
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode"`
	MaxConnections  int           `json:"maxConnections"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	Timeout         time.Duration `json:"timeout"`
	TableNames      TableNames    `json:"tableNames"`
}

// TableNames holds the names of the two tables the engine owns.
type TableNames struct {
	Attributes string `json:"attributes"`
	Values     string `json:"values"`
}

// QueryConfig contains query scoping and fetch settings.
type QueryConfig struct {
	DefaultPageSize int  `json:"defaultPageSize"`
	MaxPageSize     int  `json:"maxPageSize"`
	FetchBatchSize  int  `json:"fetchBatchSize"`
	LockValueRows   bool `json:"lockValueRows"` // row locking on persist, backends with FOR UPDATE support
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level              string        `json:"level"`
	Format             string        `json:"format"`
	EnableQueryLogging bool          `json:"enableQueryLogging"`
	LogSlowQueries     bool          `json:"logSlowQueries"`
	SlowQueryThreshold time.Duration `json:"slowQueryThreshold"`
}

// TableConfig attaches the engine to one logical table.
type TableConfig struct {
	// Enabled is the table's standing flag; a query-level tri-state
	// override takes precedence per call.
	Enabled bool `json:"enabled"`

	// PrimaryKey lists the record fields forming the entity id. Composite
	// keys are serialized by concatenation.
	PrimaryKey []string `json:"primaryKey"`

	// NativeColumns lists the table's physical columns; adding a virtual
	// column with one of these names is rejected.
	NativeColumns []string `json:"nativeColumns"`

	// CacheColumn is the single-holder shorthand: one physical column
	// caching every virtual value.
	CacheColumn string `json:"cacheColumn,omitempty"`

	// CacheColumns maps holder column -> virtual column names, where
	// ["*"] means all.
	CacheColumns map[string][]string `json:"cacheColumns,omitempty"`

	// Scopes is the ordered list of query-scope names to apply.
	Scopes []string `json:"scopes,omitempty"`

	// Hydrator is the pluggable per-record hydration strategy, resolved
	// at configuration time. Nil selects DefaultHydrator.
	Hydrator Hydrator `json:"-"`
}

// CacheHolders resolves the configured cache holders into a single map of
// holder column -> virtual column names (["*"] means all).
func (t TableConfig) CacheHolders() map[string][]string {
	if len(t.CacheColumns) == 0 && t.CacheColumn == "" {
		return nil
	}
	holders := make(map[string][]string, len(t.CacheColumns)+1)
	if t.CacheColumn != "" {
		holders[t.CacheColumn] = []string{CacheWildcard}
	}
	for holder, names := range t.CacheColumns {
		holders[holder] = names
	}
	return holders
}

// ScopeOrder resolves the scope list with its default.
func (t TableConfig) ScopeOrder() []string {
	if len(t.Scopes) == 0 {
		return DefaultScopeOrder()
	}
	return t.Scopes
}

// IsNativeColumn reports whether name is a physical column of the table,
// primary key fields included.
func (t TableConfig) IsNativeColumn(name string) bool {
	for _, col := range t.NativeColumns {
		if col == name {
			return true
		}
	}
	for _, col := range t.PrimaryKey {
		if col == name {
			return true
		}
	}
	return false
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxConnections:  25,
			ConnMaxLifetime: 5 * time.Minute,
			Timeout:         30 * time.Second,
			TableNames: TableNames{
				Attributes: "eav_attributes",
				Values:     "eav_values",
			},
		},
		Query: QueryConfig{
			DefaultPageSize: 50,
			MaxPageSize:     100,
			FetchBatchSize:  500,
			LockValueRows:   true,
		},
		Logging: LoggingConfig{
			Level:              "info",
			Format:             "json",
			EnableQueryLogging: false,
			LogSlowQueries:     true,
			SlowQueryThreshold: time.Second,
		},
		Tables: map[string]TableConfig{},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}
	if c.Database.TableNames.Attributes == "" {
		return &ConfigError{Field: "database.tableNames.attributes", Message: "must not be empty"}
	}
	if c.Database.TableNames.Values == "" {
		return &ConfigError{Field: "database.tableNames.values", Message: "must not be empty"}
	}
	if c.Query.DefaultPageSize <= 0 {
		return &ConfigError{Field: "query.defaultPageSize", Message: "must be greater than 0"}
	}
	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return &ConfigError{Field: "query.maxPageSize", Message: "must be greater than or equal to defaultPageSize"}
	}
	if c.Query.FetchBatchSize <= 0 {
		return &ConfigError{Field: "query.fetchBatchSize", Message: "must be greater than 0"}
	}
	for alias, table := range c.Tables {
		if alias == "" {
			return &ConfigError{Field: "tables", Message: "table alias must not be empty"}
		}
		if len(table.PrimaryKey) == 0 {
			return &ConfigError{Field: "tables." + alias + ".primaryKey", Message: "must list at least one field"}
		}
		for holder := range table.CacheHolders() {
			if holder == "" {
				return &ConfigError{Field: "tables." + alias + ".cacheColumns", Message: "holder column must not be empty"}
			}
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
