package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	// sqlite driver for run history queries.
	_ "modernc.org/sqlite"
)

// openHistoryReadOnly opens the run history database without write access.
func openHistoryReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite", "file:"+path+"?mode=ro")
}

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Query the run history database",
		Long: `Execute SQL queries against the local run history database to inspect
past exports, ETL jobs, validations, and index passes.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  mdcx query "SELECT command, status, started_at FROM runs ORDER BY started_at DESC LIMIT 10"

  # Recent runs, pre-canned
  mdcx query runs

  # Tasks recorded under one run
  mdcx query tasks 1f0c9c2a-...

  # Output as JSON
  mdcx query "SELECT * FROM tasks WHERE status = 'failed'" --format json

  # Interactive mode
  mdcx query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	cmd.AddCommand(newQueryRunsCommand(opts))
	cmd.AddCommand(newQueryTasksCommand(opts))
	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))
	return cmd
}

// historyPath returns the run history path from config, erroring when the
// database has never been created.
func historyPath(cmd *cobra.Command) (string, error) {
	cfg, err := configFrom(cmd)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(cfg.StatePath); os.IsNotExist(err) {
		return "", fmt.Errorf("run history not found at %s (no runs recorded yet)", cfg.StatePath)
	}
	return cfg.StatePath, nil
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	statePath, err := historyPath(cmd)
	if err != nil {
		return err
	}

	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		return runQueryREPL(cmd, statePath, opts)
	}

	return executeAndRender(cmd.Context(), cmd, statePath, sqlQuery, opts.Format)
}

func executeAndRender(ctx context.Context, cmd *cobra.Command, statePath, sqlQuery, format string) error {
	db, err := openHistoryReadOnly(statePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return renderResults(cmd.OutOrStdout(), rows, format)
}

func newQueryRunsCommand(opts *QueryOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statePath, err := historyPath(cmd)
			if err != nil {
				return err
			}
			query := fmt.Sprintf(`
				SELECT id, command, target, status, started_at, completed_at, error
				FROM runs ORDER BY started_at DESC LIMIT %d`, limit)
			return executeAndRender(cmd.Context(), cmd, statePath, query, opts.Format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func newQueryTasksCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <run-id>",
		Short: "Show the tasks recorded under a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statePath, err := historyPath(cmd)
			if err != nil {
				return err
			}

			db, err := openHistoryReadOnly(statePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			rows, err := db.QueryContext(cmd.Context(), `
				SELECT kind, name, status, rows_written, output_path, started_at, completed_at, error
				FROM tasks WHERE run_id = ? ORDER BY started_at, id`, args[0])
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			defer func() { _ = rows.Close() }()

			return renderResults(cmd.OutOrStdout(), rows, opts.Format)
		},
	}
}

func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables in the run history database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statePath, err := historyPath(cmd)
			if err != nil {
				return err
			}
			return executeAndRender(cmd.Context(), cmd, statePath, `
				SELECT name, type FROM sqlite_master
				WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
				ORDER BY name`, opts.Format)
		},
	}
}

func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show schema for a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statePath, err := historyPath(cmd)
			if err != nil {
				return err
			}

			db, err := openHistoryReadOnly(statePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			rows, err := db.QueryContext(cmd.Context(),
				`SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`, args[0])
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			defer func() { _ = rows.Close() }()

			return renderResults(cmd.OutOrStdout(), rows, opts.Format)
		},
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
