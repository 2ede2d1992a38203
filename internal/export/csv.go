package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVSink writes rows to CSV. NULLs are rendered as empty fields and
// timestamps use the warehouse's DATETIME layout.
type CSVSink struct {
	w       *csv.Writer
	closer  io.Closer
	columns int
}

// NewCSVSink creates a CSV sink over a writer. If w also implements
// io.Closer it is closed by Close.
func NewCSVSink(w io.Writer) *CSVSink {
	s := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// WriteHeader writes the column-name header record.
func (s *CSVSink) WriteHeader(columns []string) error {
	s.columns = len(columns)
	if err := s.w.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	return nil
}

// WriteRow writes one record.
func (s *CSVSink) WriteRow(values []any) error {
	if len(values) != s.columns {
		return fmt.Errorf("row has %d values, header has %d columns", len(values), s.columns)
	}
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = formatCSVValue(v)
	}
	if err := s.w.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	return nil
}

// Flush flushes buffered records to the underlying writer.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the underlying writer when it is closeable.
func (s *CSVSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func formatCSVValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", val)
	}
}
