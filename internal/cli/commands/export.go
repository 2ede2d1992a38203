package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BenjaminRains/mdc-analytics/internal/cli/config"
	"github.com/BenjaminRains/mdc-analytics/internal/export"
	"github.com/BenjaminRains/mdc-analytics/internal/state"
	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Query string
	File  string
	Name  string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export query results or tables to CSV or Parquet",
		Long: `Export streams warehouse rows to flat files in fixed-size batches, so
large tables never need to fit in memory. Output files are timestamped
inside the output directory.`,
		Example: `  # Export an ad-hoc query
  mdcx export --query "SELECT * FROM patient WHERE PatStatus = 0" --name active_patients

  # Export the query in a file, as parquet
  mdcx export --file queries/aging.sql --name aging --format parquet

  # Export whole tables concurrently
  mdcx export tables payment paysplit claimproc

  # Export every table in the database
  mdcx export tables --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportQuery(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "SQL to export")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read SQL from file")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "query", "Base name for the output file")

	cmd.AddCommand(newExportTablesCommand())
	return cmd
}

func runExportQuery(cmd *cobra.Command, opts *ExportOptions) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}

	var sqlText string
	switch {
	case opts.Query != "":
		sqlText = opts.Query
	case opts.File != "":
		content, err := os.ReadFile(opts.File)
		if err != nil {
			return fmt.Errorf("failed to read query file: %w", err)
		}
		sqlText = string(content)
	default:
		return fmt.Errorf("either --query or --file is required (or use 'export tables')")
	}

	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	adapter, err := connectWarehouse(cmd, cfg)
	if err != nil {
		return err
	}
	defer adapter.Close()

	rec := startRun(cmd, cfg, "export")
	task := rec.task(state.TaskKindExport, opts.Name)

	path := export.TimestampedPath(cfg.OutDir, opts.Name, format, time.Now())
	written, err := exportQueryToFile(cmd, cfg, adapter, sqlText, path, format)
	rec.completeTask(task, written, path, err)
	rec.finish(err)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", written, path)
	return nil
}

func exportQueryToFile(cmd *cobra.Command, cfg *config.Config, adapter warehouse.Adapter, sqlText, path string, format export.Format) (int64, error) {
	rows, err := adapter.Query(cmd.Context(), sqlText)
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	sink, err := export.NewFileSink(path, format)
	if err != nil {
		return 0, err
	}

	written, err := export.NewExporter(cfg.BatchSize, loggerFrom(cmd)).Export(cmd.Context(), rows, sink)
	if cerr := sink.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return written, err
}

func newExportTablesCommand() *cobra.Command {
	var (
		workers int
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "tables [table...]",
		Short: "Export whole tables concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 && !all {
				return fmt.Errorf("name tables to export or pass --all")
			}

			format, err := export.ParseFormat(cfg.Format)
			if err != nil {
				return err
			}
			conn, err := cfg.Connection()
			if err != nil {
				return err
			}

			tables := args
			if all {
				adapter, err := connectWarehouse(cmd, cfg)
				if err != nil {
					return err
				}
				tables, err = adapter.ListTables(cmd.Context())
				adapter.Close()
				if err != nil {
					return fmt.Errorf("listing tables: %w", err)
				}
			}

			rec := startRun(cmd, cfg, "export tables")
			tasks := make(map[string]*state.Task, len(tables))
			for _, table := range tables {
				tasks[table] = rec.task(state.TaskKindExport, table)
			}

			now := time.Now()
			runner := &export.ParallelRunner{
				Connect: func(ctx context.Context) (warehouse.Adapter, error) {
					adapter, err := warehouse.NewAdapter(conn.Target, loggerFrom(cmd))
					if err != nil {
						return nil, err
					}
					if err := adapter.Connect(ctx, conn); err != nil {
						return nil, err
					}
					return adapter, nil
				},
				MakeSink: func(table string) (export.Sink, string, error) {
					path := export.TimestampedPath(cfg.OutDir, table, format, now)
					sink, err := export.NewFileSink(path, format)
					return sink, path, err
				},
				Workers:   workers,
				BatchSize: cfg.BatchSize,
				Logger:    loggerFrom(cmd),
			}

			results, err := runner.Run(cmd.Context(), tables)
			for _, res := range results {
				rec.completeTask(tasks[res.Table], res.Rows, res.Path, res.Err)
			}
			rec.finish(err)

			out := cmd.OutOrStdout()
			for _, res := range results {
				if res.Err != nil {
					fmt.Fprintf(out, "  %-24s FAILED: %v\n", res.Table, res.Err)
					continue
				}
				fmt.Fprintf(out, "  %-24s %8d rows  %s  (%s)\n",
					res.Table, res.Rows, res.Path, res.Duration.Round(time.Millisecond))
			}
			if err != nil {
				return fmt.Errorf("%d of %d tables failed", countFailed(results), len(results))
			}
			fmt.Fprintf(out, "Exported %d tables to %s\n", len(results), cfg.OutDir)
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", export.DefaultWorkers, "Concurrent table exports")
	cmd.Flags().BoolVar(&all, "all", false, "Export every base table in the database")
	return cmd
}

func countFailed(results []export.TableResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
