// Package export streams query results into flat files in fixed-size
// batches. It provides CSV and Parquet sinks behind a common interface so
// large warehouse tables never need to fit in memory.
package export

import (
	"fmt"
	"path/filepath"
	"time"
)

// Sink receives rows from an export and writes them to an output format.
type Sink interface {
	// WriteHeader is called once with the result column names before any rows.
	WriteHeader(columns []string) error

	// WriteRow writes a single row. Values are driver-native Go types;
	// []byte has already been converted to string by the exporter.
	WriteRow(values []any) error

	// Flush is called at each batch boundary.
	Flush() error

	// Close finalizes the output. Flush is implied.
	Close() error
}

// Format identifies an output file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unknown export format %q (expected csv or parquet)", s)
	}
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	return string(f)
}

// TimestampedPath returns dir/name_YYYYMMDD_HHMMSS.ext, the naming scheme
// used for all generated export files.
func TimestampedPath(dir, name string, format Format, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", name, now.Format("20060102_150405"), format.Ext()))
}
