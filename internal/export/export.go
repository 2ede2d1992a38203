package export

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultBatchSize is the number of rows written between flushes.
const DefaultBatchSize = 10000

// Exporter streams sql.Rows into a Sink in fixed-size batches.
type Exporter struct {
	BatchSize int
	Logger    *slog.Logger
}

// NewExporter creates an exporter. A nil logger uses a discard logger and a
// zero batch size uses DefaultBatchSize.
func NewExporter(batchSize int, logger *slog.Logger) *Exporter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exporter{BatchSize: batchSize, Logger: logger}
}

// Export drains rows into the sink, flushing at each batch boundary, and
// returns the number of rows written. The sink is not closed; rows is closed
// on return. Cancellation is checked at batch boundaries.
func (e *Exporter) Export(ctx context.Context, rows *sql.Rows, sink Sink) (int64, error) {
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to read result columns: %w", err)
	}
	if err := sink.WriteHeader(columns); err != nil {
		return 0, err
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	var written int64
	inBatch := 0
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return written, fmt.Errorf("failed to scan row %d: %w", written+1, err)
		}

		row := make([]any, len(values))
		for i, v := range values {
			// The MySQL driver returns text columns as []byte
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}

		if err := sink.WriteRow(row); err != nil {
			return written, err
		}
		written++
		inBatch++

		if inBatch >= e.BatchSize {
			if err := sink.Flush(); err != nil {
				return written, err
			}
			inBatch = 0
			e.Logger.Debug("batch flushed", "rows_written", written)

			select {
			case <-ctx.Done():
				return written, ctx.Err()
			default:
			}
		}
	}
	if err := rows.Err(); err != nil {
		return written, fmt.Errorf("error iterating rows: %w", err)
	}

	if err := sink.Flush(); err != nil {
		return written, err
	}
	return written, nil
}

// NewFileSink creates a sink of the given format writing to path, creating
// parent directories as needed.
func NewFileSink(path string, format Format) (Sink, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	switch format {
	case FormatParquet:
		return NewParquetSink(f), nil
	default:
		return NewCSVSink(f), nil
	}
}
