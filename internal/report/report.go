// Package report runs the validation reports: each report is a set of SQL
// fragments embedded in the binary, assembled into a single CTE query for a
// date range, executed against the warehouse, and exported to a file.
package report

import (
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/BenjaminRains/mdc-analytics/internal/export"
	"github.com/BenjaminRains/mdc-analytics/internal/fragment"
	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

//go:embed fragments
var fragmentFS embed.FS

// Report names a validation report and the fragment set that defines it.
type Report struct {
	// Name is the CLI-facing report name
	Name string
	// Dir is the embedded fragment directory
	Dir string
	// Final is the fragment producing the report's result set
	Final       string
	Description string
}

var reports = map[string]Report{
	"payment-splits": {
		Name:        "payment-splits",
		Dir:         "fragments/paymentsplits",
		Final:       "payment_splits",
		Description: "Payments whose paysplits do not reconcile",
	},
	"claims": {
		Name:        "claims",
		Dir:         "fragments/claims",
		Final:       "claims",
		Description: "Claims with billing mismatches or stale sent status",
	},
	"unearned-income": {
		Name:        "unearned-income",
		Dir:         "fragments/unearnedincome",
		Final:       "unearned_income",
		Description: "Unearned income balances by patient and type",
	},
}

// Lookup finds a report by name.
func Lookup(name string) (Report, bool) {
	r, ok := reports[name]
	return r, ok
}

// List returns all reports sorted by name.
func List() []Report {
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Fragments loads a report's embedded fragment set.
func Fragments(rep Report) (map[string]*fragment.Fragment, error) {
	frags, err := fragment.ScanFS(fragmentFS, rep.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading %s fragments: %w", rep.Name, err)
	}
	return frags, nil
}

// Runner executes reports against a warehouse.
type Runner struct {
	adapter   warehouse.Adapter
	batchSize int
	logger    *slog.Logger
}

// NewRunner creates a report runner. A nil logger discards output.
func NewRunner(adapter warehouse.Adapter, batchSize int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if batchSize <= 0 {
		batchSize = export.DefaultBatchSize
	}
	return &Runner{adapter: adapter, batchSize: batchSize, logger: logger}
}

// SQL assembles the report's query for a date range without executing it.
func (r *Runner) SQL(rep Report, dates fragment.DateRange) (string, error) {
	frags, err := Fragments(rep)
	if err != nil {
		return "", err
	}
	assembled, err := fragment.Assemble(frags, rep.Final, dates)
	if err != nil {
		return "", fmt.Errorf("assembling %s: %w", rep.Name, err)
	}
	return assembled, nil
}

// Run assembles, executes, and streams the report into the sink. Returns the
// number of rows written.
func (r *Runner) Run(ctx context.Context, rep Report, dates fragment.DateRange, sink export.Sink) (int64, error) {
	assembled, err := r.SQL(rep, dates)
	if err != nil {
		return 0, err
	}

	r.logger.Info("running report", "report", rep.Name, "start", dates.Start, "end", dates.End)
	rows, err := r.adapter.Query(ctx, assembled)
	if err != nil {
		return 0, fmt.Errorf("executing %s: %w", rep.Name, err)
	}
	defer rows.Close()

	written, err := export.NewExporter(r.batchSize, r.logger).Export(ctx, rows, sink)
	if err != nil {
		return written, fmt.Errorf("exporting %s: %w", rep.Name, err)
	}
	r.logger.Info("report complete", "report", rep.Name, "rows", written)
	return written, nil
}
