package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

func init() {
	// All three named targets speak the MySQL wire protocol; MariaDB and
	// MySQL differ only in the server behind the connection.
	for _, target := range []string{"local_mariadb", "local_mysql", "mdc"} {
		Register(target, func(logger *slog.Logger) Adapter { return NewMySQL(logger) })
	}
}

// MySQL implements Adapter for MySQL and MariaDB warehouses.
type MySQL struct {
	BaseAdapter
}

// NewMySQL creates a new MySQL/MariaDB adapter instance.
// If logger is nil, a discard logger is used.
func NewMySQL(logger *slog.Logger) *MySQL {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &MySQL{BaseAdapter: BaseAdapter{Logger: logger}}
}

// Connect establishes a connection to the warehouse.
func (a *MySQL) Connect(ctx context.Context, cfg Config) error {
	dsn := buildMySQLDSN(cfg)

	a.Logger.Debug("connecting to warehouse",
		slog.String("target", cfg.Target),
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open warehouse connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping warehouse: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildMySQLDSN constructs a go-sql-driver DSN from config.
func buildMySQLDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	// parseTime is required so DATE/DATETIME columns scan into time.Time
	params := []string{"parseTime=true"}
	if cfg.Options != nil {
		keys := make([]string, 0, len(cfg.Options))
		for k := range cfg.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			params = append(params, fmt.Sprintf("%s=%s", k, cfg.Options[k]))
		}
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		cfg.User, cfg.Password, host, port, cfg.Database, strings.Join(params, "&"))
}

// ListTables returns the base table names in the configured database.
func (a *MySQL) ListTables(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := a.DB.QueryContext(ctx, query, a.Cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// TableMetadata retrieves column metadata for a table.
func (a *MySQL) TableMetadata(ctx context.Context, table string) (*TableMetadata, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}

	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`
	rows, err := a.DB.QueryContext(ctx, query, a.Cfg.Database, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM `%s`", table)
	var rowCount int64
	if err := a.DB.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		// Non-fatal, row count stays 0
		rowCount = 0
	}

	return &TableMetadata{
		Name:     table,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}

// ListIndexes returns the indexes on a table, columns in key order.
// An empty table name lists indexes across the whole database.
func (a *MySQL) ListIndexes(ctx context.Context, table string) ([]IndexInfo, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}

	query := `
		SELECT table_name, index_name, column_name, non_unique
		FROM information_schema.statistics
		WHERE table_schema = ?
	`
	args := []any{a.Cfg.Database}
	if table != "" {
		query += " AND table_name = ?"
		args = append(args, table)
	}
	query += " ORDER BY table_name, index_name, seq_in_index"

	rows, err := a.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var indexes []IndexInfo
	var current *IndexInfo
	for rows.Next() {
		var tbl, idx, col string
		var nonUnique int
		if err := rows.Scan(&tbl, &idx, &col, &nonUnique); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}

		if current == nil || current.Table != tbl || current.Name != idx {
			indexes = append(indexes, IndexInfo{
				Table:  tbl,
				Name:   idx,
				Unique: nonUnique == 0,
			})
			current = &indexes[len(indexes)-1]
		}
		current.Columns = append(current.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexes: %w", err)
	}
	return indexes, nil
}
