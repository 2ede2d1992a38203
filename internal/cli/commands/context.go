// Package commands implements the mdcx subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BenjaminRains/mdc-analytics/internal/cli/config"
	"github.com/BenjaminRains/mdc-analytics/internal/state"
	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig stores the loaded config in a context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in a context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// configFrom returns the config stored by the root command.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// loggerFrom returns the logger stored by the root command, or a discard
// logger when commands are run outside the root (tests).
func loggerFrom(cmd *cobra.Command) *slog.Logger {
	if logger, ok := cmd.Context().Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// connectWarehouse resolves the configured target and opens a connection.
// The caller owns the returned adapter and must close it.
func connectWarehouse(cmd *cobra.Command, cfg *config.Config) (warehouse.Adapter, error) {
	conn, err := cfg.Connection()
	if err != nil {
		return nil, err
	}

	adapter, err := warehouse.NewAdapter(conn.Target, loggerFrom(cmd))
	if err != nil {
		return nil, err
	}
	if err := adapter.Connect(cmd.Context(), conn); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", conn.Target, err)
	}
	return adapter, nil
}

// openHistory opens the run history database, creating and migrating it as
// needed. The caller must close the store.
func openHistory(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// recordedRun wraps a command body with run-history bookkeeping. History
// failures are logged, never fatal: the warehouse work is the point.
type recordedRun struct {
	store  *state.SQLiteStore
	run    *state.Run
	logger *slog.Logger
}

func startRun(cmd *cobra.Command, cfg *config.Config, command string) *recordedRun {
	logger := loggerFrom(cmd)

	store, err := openHistory(cfg, logger)
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return &recordedRun{logger: logger}
	}

	run, err := store.CreateRun(command, cfg.Target)
	if err != nil {
		logger.Warn("failed to record run", "error", err)
		store.Close()
		return &recordedRun{logger: logger}
	}
	return &recordedRun{store: store, run: run, logger: logger}
}

func (r *recordedRun) task(kind state.TaskKind, name string) *state.Task {
	if r.store == nil {
		return nil
	}
	task, err := r.store.CreateTask(r.run.ID, kind, name)
	if err != nil {
		r.logger.Warn("failed to record task", "error", err)
		return nil
	}
	return task
}

func (r *recordedRun) completeTask(task *state.Task, rows int64, outputPath string, err error) {
	if r.store == nil || task == nil {
		return
	}
	status := state.RunStatusCompleted
	msg := ""
	if err != nil {
		status = state.RunStatusFailed
		msg = err.Error()
	}
	if herr := r.store.CompleteTask(task.ID, status, rows, outputPath, msg); herr != nil {
		r.logger.Warn("failed to record task completion", "error", herr)
	}
}

func (r *recordedRun) finish(err error) {
	if r.store == nil {
		return
	}
	status := state.RunStatusCompleted
	msg := ""
	if err != nil {
		status = state.RunStatusFailed
		msg = err.Error()
	}
	if herr := r.store.CompleteRun(r.run.ID, status, msg); herr != nil {
		r.logger.Warn("failed to record run completion", "error", herr)
	}
	r.store.Close()
}
