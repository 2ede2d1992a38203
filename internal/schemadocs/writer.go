package schemadocs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BenjaminRains/mdc-analytics/internal/export"
)

// overviewFile lists every documented table; per-table files carry columns.
const overviewFile = "tables.csv"

// Write renders the schema documentation into dir as CSV files: one overview
// plus one file per table. Returns the paths written.
func Write(dir string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating docs directory: %w", err)
	}

	var paths []string

	overviewPath := filepath.Join(dir, overviewFile)
	if err := writeCSV(overviewPath, []string{"table", "column_count", "description"}, func(write func(...any) error) error {
		for _, t := range Tables {
			if err := write(t.Table, int64(len(t.Columns)), t.Description); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	paths = append(paths, overviewPath)

	for _, t := range Tables {
		path := filepath.Join(dir, t.Table+".csv")
		err := writeCSV(path, []string{"column", "type", "description"}, func(write func(...any) error) error {
			for _, c := range t.Columns {
				if err := write(c.Name, c.Type, c.Description); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		logger.Debug("wrote table docs", "table", t.Table, "path", path)
		paths = append(paths, path)
	}

	logger.Info("schema docs written", "tables", len(Tables), "dir", dir)
	return paths, nil
}

func writeCSV(path string, header []string, rows func(write func(...any) error) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	sink := export.NewCSVSink(f)

	if err := sink.WriteHeader(header); err != nil {
		f.Close()
		return err
	}
	if err := rows(func(values ...any) error { return sink.WriteRow(values) }); err != nil {
		f.Close()
		return err
	}
	if err := sink.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return f.Close()
}
