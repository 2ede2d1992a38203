package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BenjaminRains/mdc-analytics/internal/etl"
	"github.com/BenjaminRains/mdc-analytics/internal/etl/treatmentjourney"
	"github.com/BenjaminRains/mdc-analytics/internal/export"
	"github.com/BenjaminRains/mdc-analytics/internal/fragment"
	"github.com/BenjaminRains/mdc-analytics/internal/state"
)

// NewETLCommand creates the etl command.
func NewETLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Run ETL jobs against the warehouse",
	}

	cmd.AddCommand(newTreatmentJourneyCommand())
	return cmd
}

func newTreatmentJourneyCommand() *cobra.Command {
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "treatment-journey",
		Short: "Build the treatment journey dataset",
		Long: `Extracts completed procedures with their payment outcomes for a date
range, derives the journey features (urgency, year-end timing, fee bucket,
days to completion, paid ratios), and writes the dataset to the output
directory.`,
		Example: `  mdcx etl treatment-journey --start 2024-01-01 --end 2024-12-31
  mdcx etl treatment-journey --start 2024-01-01 --end 2024-12-31 --format parquet`,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			adapter, err := connectWarehouse(cmd, cfg)
			if err != nil {
				return err
			}
			defer adapter.Close()

			path := export.TimestampedPath(cfg.OutDir, "treatment_journey", format, time.Now())
			sink, err := export.NewFileSink(path, format)
			if err != nil {
				return err
			}

			rec := startRun(cmd, cfg, "etl treatment-journey")
			task := rec.task(state.TaskKindETL, "treatment-journey")

			logger := loggerFrom(cmd)
			job := treatmentjourney.New(adapter, sink, dates, logger)
			stats, err := etl.NewRunner(logger).Run(cmd.Context(), job)
			if cerr := sink.Close(); cerr != nil && err == nil {
				err = cerr
			}

			var rows int64
			if stats != nil {
				rows = int64(stats.RowsLoaded)
			}
			rec.completeTask(task, rows, path, err)
			rec.finish(err)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s in %s\n",
				stats.RowsLoaded, path, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
