// Package warehouse provides database adapters for the analytics warehouse.
// It defines the adapter contract, a shared database/sql base, and a registry
// keyed by connection target name.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Config holds connection configuration for a warehouse target.
type Config struct {
	// Target is the named connection this config was resolved from
	// (local_mariadb, local_mysql, mdc)
	Target string `koanf:"target"`

	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`

	// Options holds additional driver parameters appended to the DSN
	Options map[string]string `koanf:"options"`
}

// Column describes a table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata describes a warehouse table.
type TableMetadata struct {
	Name     string
	Columns  []Column
	RowCount int64
}

// IndexInfo describes one index on a table, with its columns in key order.
type IndexInfo struct {
	Table   string
	Name    string
	Columns []string
	Unique  bool
}

// Adapter is the contract all warehouse adapters implement.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*sql.Rows, error)

	// ListTables returns the base table names in the configured database.
	ListTables(ctx context.Context) ([]string, error)

	// TableMetadata retrieves column metadata for a table.
	TableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	// ListIndexes returns the indexes on a table. An empty table name
	// lists indexes across the whole database.
	ListIndexes(ctx context.Context, table string) ([]IndexInfo, error)
}

// BaseAdapter provides common database/sql functionality. Embed it in
// concrete adapters to get standard Close, Exec, and Query implementations.
type BaseAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing warehouse connection", "target", b.Cfg.Target)
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return fmt.Errorf("warehouse connection not established")
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows. rows.Err() must be
// checked by the caller after iteration completes.
func (b *BaseAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}
	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// IsConnected returns true if the connection is established.
func (b *BaseAdapter) IsConnected() bool {
	return b.DB != nil
}
