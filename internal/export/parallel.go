package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

// DefaultWorkers bounds concurrent table exports.
const DefaultWorkers = 4

// TableResult reports the outcome of one table export.
type TableResult struct {
	Table    string
	Path     string
	Rows     int64
	Duration time.Duration
	Err      error
}

// ParallelRunner exports multiple tables concurrently, one connection per
// worker. A failed table is logged and recorded; remaining tables still run.
type ParallelRunner struct {
	// Connect opens a fresh warehouse connection for a worker.
	Connect func(ctx context.Context) (warehouse.Adapter, error)

	// MakeSink creates the output sink and returns the file path for a table.
	MakeSink func(table string) (Sink, string, error)

	Workers   int
	BatchSize int
	Logger    *slog.Logger
}

// Run exports all tables with bounded concurrency and returns per-table
// results in input order. The returned error joins all table failures.
func (r *ParallelRunner) Run(ctx context.Context, tables []string) ([]TableResult, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	results := make([]TableResult, len(tables))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			start := time.Now()
			res := r.exportTable(gctx, table)
			res.Duration = time.Since(start)

			if res.Err != nil {
				logger.Error("table export failed", "table", table, "error", res.Err)
			} else {
				logger.Info("table exported", "table", table, "rows", res.Rows, "path", res.Path)
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()

			// Failures are recorded per table rather than cancelling the
			// group; the remaining exports are independent.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Table, res.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (r *ParallelRunner) exportTable(ctx context.Context, table string) TableResult {
	res := TableResult{Table: table}

	adapter, err := r.Connect(ctx)
	if err != nil {
		res.Err = fmt.Errorf("failed to connect: %w", err)
		return res
	}
	defer func() { _ = adapter.Close() }()

	sink, path, err := r.MakeSink(table)
	if err != nil {
		res.Err = err
		return res
	}
	res.Path = path

	rows, err := adapter.Query(ctx, fmt.Sprintf("SELECT * FROM `%s`", table))
	if err != nil {
		_ = sink.Close()
		res.Err = err
		return res
	}

	exporter := NewExporter(r.BatchSize, r.Logger)
	written, err := exporter.Export(ctx, rows, sink)
	res.Rows = written
	if err != nil {
		_ = sink.Close()
		res.Err = err
		return res
	}

	res.Err = sink.Close()
	return res
}
