package etl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Job is a single ETL pipeline. Phases run in order: Setup, Extract,
// Transform, Load. Any phase returning an error aborts the run.
type Job interface {
	Name() string
	Setup(ctx context.Context) error
	Extract(ctx context.Context) (*Frame, error)
	Transform(ctx context.Context, frame *Frame) (*Frame, error)
	Load(ctx context.Context, frame *Frame) error
}

// RunStats summarizes a completed job run.
type RunStats struct {
	Job           string
	RowsExtracted int
	RowsLoaded    int
	Duration      time.Duration
}

// Runner executes jobs.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{logger: logger}
}

// Run executes every phase of the job and returns run statistics.
func (r *Runner) Run(ctx context.Context, job Job) (*RunStats, error) {
	start := time.Now()
	log := r.logger.With("job", job.Name())

	log.Info("starting job")
	if err := job.Setup(ctx); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	extractStart := time.Now()
	frame, err := job.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	log.Info("extract complete", "rows", frame.Len(), "duration", time.Since(extractStart).String())
	extracted := frame.Len()

	transformStart := time.Now()
	frame, err = job.Transform(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	log.Info("transform complete", "rows", frame.Len(), "duration", time.Since(transformStart).String())

	loadStart := time.Now()
	if err := job.Load(ctx, frame); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	log.Info("load complete", "rows", frame.Len(), "duration", time.Since(loadStart).String())

	stats := &RunStats{
		Job:           job.Name(),
		RowsExtracted: extracted,
		RowsLoaded:    frame.Len(),
		Duration:      time.Since(start),
	}
	log.Info("job finished", "duration", stats.Duration.String())
	return stats, nil
}
