package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/BenjaminRains/mdc-analytics/internal/index"
	"github.com/BenjaminRains/mdc-analytics/internal/state"
	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

// NewIndexCommand creates the index command.
func NewIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the analytics indexes on the warehouse",
		Long: `The analytics queries need indexes OpenDental does not ship with. These
commands create, drop, list, and report on them. Managed index names carry
the idx_ml_ prefix; nothing else is ever touched.`,
	}

	cmd.AddCommand(newIndexListCommand())
	cmd.AddCommand(newIndexCreateCommand())
	cmd.AddCommand(newIndexDropCommand())
	cmd.AddCommand(newIndexReportCommand())
	return cmd
}

func newIndexListCommand() *cobra.Command {
	var tableFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexes present on the managed tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			adapter, err := connectWarehouse(cmd, cfg)
			if err != nil {
				return err
			}
			defer adapter.Close()

			mgr := index.NewManager(adapter, loggerFrom(cmd))
			byTable, err := mgr.List(cmd.Context(), tableFlag)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Table", "Index", "Columns", "Unique"})
			for _, tbl := range sortedTableNames(byTable) {
				for _, info := range byTable[tbl] {
					t.AppendRow(table.Row{info.Table, info.Name, strings.Join(info.Columns, ", "), info.Unique})
				}
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&tableFlag, "table", "", "Limit to one table")
	return cmd
}

func newIndexCreateCommand() *cobra.Command {
	var tableFlag string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the missing analytics indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			adapter, err := connectWarehouse(cmd, cfg)
			if err != nil {
				return err
			}
			defer adapter.Close()

			rec := startRun(cmd, cfg, "index create")
			task := rec.task(state.TaskKindIndex, "create")

			mgr := index.NewManager(adapter, loggerFrom(cmd))
			summary, err := mgr.Create(cmd.Context(), index.DefinitionsForTable(tableFlag))
			var applied int64
			if summary != nil {
				applied = int64(len(summary.Applied))
			}
			rec.completeTask(task, applied, "", err)
			rec.finish(err)
			if err != nil {
				return err
			}

			printSummary(cmd, "created", summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&tableFlag, "table", "", "Limit to one table")
	return cmd
}

func newIndexDropCommand() *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "drop [name]",
		Short: "Drop managed analytics indexes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			adapter, err := connectWarehouse(cmd, cfg)
			if err != nil {
				return err
			}
			defer adapter.Close()

			rec := startRun(cmd, cfg, "index drop")
			task := rec.task(state.TaskKindIndex, "drop")

			mgr := index.NewManager(adapter, loggerFrom(cmd))
			summary, err := mgr.Drop(cmd.Context(), name, pattern)
			var applied int64
			if summary != nil {
				applied = int64(len(summary.Applied))
			}
			rec.completeTask(task, applied, "", err)
			rec.finish(err)
			if err != nil {
				return err
			}

			printSummary(cmd, "dropped", summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "Drop every managed index whose name starts with this prefix")
	return cmd
}

func newIndexReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Compare defined indexes against the warehouse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			adapter, err := connectWarehouse(cmd, cfg)
			if err != nil {
				return err
			}
			defer adapter.Close()

			mgr := index.NewManager(adapter, loggerFrom(cmd))
			rows, err := mgr.Report(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Table", "Index", "Columns", "Present"})
			missing := 0
			for _, row := range rows {
				status := "yes"
				if !row.Present {
					status = "MISSING"
					missing++
				}
				t.AppendRow(table.Row{row.Definition.Table, row.Definition.Name,
					strings.Join(row.Definition.Columns, ", "), status})
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "%d defined, %d missing\n", len(rows), missing)
			return nil
		},
	}
}

func sortedTableNames(byTable map[string][]warehouse.IndexInfo) []string {
	names := make([]string, 0, len(byTable))
	for name := range byTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printSummary(cmd *cobra.Command, verb string, s *index.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d %s, %d skipped, %d failed\n", len(s.Applied), verb, len(s.Skipped), len(s.Failures))
	for _, f := range s.Failures {
		fmt.Fprintf(out, "  %s: %v\n", f.Name, f.Err)
	}
}
