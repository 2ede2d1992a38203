package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/BenjaminRains/mdc-analytics/internal/export"
	"github.com/BenjaminRains/mdc-analytics/internal/fragment"
	"github.com/BenjaminRains/mdc-analytics/internal/report"
	"github.com/BenjaminRains/mdc-analytics/internal/state"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var startDate, endDate string
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "validate <report>",
		Short: "Run a validation report and export the findings",
		Long: `Validation reports flag bookkeeping problems in the warehouse: payments
whose splits do not reconcile, claims with billing mismatches, and unearned
income balances. Each report is assembled from SQL fragments and exported
to the output directory.

Run 'mdcx validate list' to see the available reports.`,
		Example: `  mdcx validate payment-splits --start 2024-01-01 --end 2024-12-31
  mdcx validate claims --start 2024-01-01 --end 2024-03-31
  mdcx validate unearned-income --start 2024-01-01 --end 2024-12-31 --sql`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, ok := report.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown report %q (run 'mdcx validate list')", args[0])
			}
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			dates, err := fragment.NewDateRange(startDate, endDate)
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(cfg.Format)
			if err != nil {
				return err
			}

			if showSQL {
				runner := report.NewRunner(nil, cfg.BatchSize, loggerFrom(cmd))
				sqlText, err := runner.SQL(rep, dates)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sqlText)
				return nil
			}

			adapter, err := connectWarehouse(cmd, cfg)
			if err != nil {
				return err
			}
			defer adapter.Close()

			path := export.TimestampedPath(cfg.OutDir, "validate_"+rep.Name, format, time.Now())
			sink, err := export.NewFileSink(path, format)
			if err != nil {
				return err
			}

			rec := startRun(cmd, cfg, "validate "+rep.Name)
			task := rec.task(state.TaskKindValidate, rep.Name)

			runner := report.NewRunner(adapter, cfg.BatchSize, loggerFrom(cmd))
			written, err := runner.Run(cmd.Context(), rep, dates, sink)
			if cerr := sink.Close(); cerr != nil && err == nil {
				err = cerr
			}
			rec.completeTask(task, written, path, err)
			rec.finish(err)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d findings written to %s\n", rep.Name, written, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&showSQL, "sql", false, "Print the assembled SQL instead of running it")

	cmd.AddCommand(newValidateListCommand())
	return cmd
}

func newValidateListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available validation reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Report", "Description"})
			for _, rep := range report.List() {
				t.AppendRow(table.Row{rep.Name, rep.Description})
			}
			t.Render()
			return nil
		},
	}
}
