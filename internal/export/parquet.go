package export

import (
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ParquetSink writes rows to a Parquet file. The schema is inferred from the
// Go types of the first row: int64, float64, and timestamp columns keep their
// types, everything else (including columns that are NULL in the first row)
// becomes an optional string. Each Flush ends the current row group.
type ParquetSink struct {
	w       io.Writer
	closer  io.Closer
	columns []string
	kinds   []colKind
	writer  *parquet.GenericWriter[map[string]any]
}

type colKind int

const (
	kindString colKind = iota
	kindInt64
	kindFloat64
	kindTimestamp
)

// NewParquetSink creates a Parquet sink over a writer. If w also implements
// io.Closer it is closed by Close.
func NewParquetSink(w io.Writer) *ParquetSink {
	s := &ParquetSink{w: w}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// WriteHeader records the column names. Schema construction is deferred to
// the first row so column types can be sniffed.
func (s *ParquetSink) WriteHeader(columns []string) error {
	s.columns = append([]string(nil), columns...)
	return nil
}

// WriteRow writes one row, building the schema from the first row seen.
func (s *ParquetSink) WriteRow(values []any) error {
	if len(values) != len(s.columns) {
		return fmt.Errorf("row has %d values, header has %d columns", len(values), len(s.columns))
	}

	if s.writer == nil {
		if err := s.buildWriter(values); err != nil {
			return err
		}
	}

	row := make(map[string]any, len(values))
	for i, v := range values {
		if v == nil {
			continue // optional column, absent key encodes NULL
		}
		row[s.columns[i]] = s.convert(i, v)
	}

	if _, err := s.writer.Write([]map[string]any{row}); err != nil {
		return fmt.Errorf("failed to write parquet row: %w", err)
	}
	return nil
}

// Flush ends the current row group.
func (s *ParquetSink) Flush() error {
	if s.writer == nil {
		return nil
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush parquet row group: %w", err)
	}
	return nil
}

// Close finalizes the file footer and closes the underlying writer.
func (s *ParquetSink) Close() error {
	if s.writer != nil {
		if err := s.writer.Close(); err != nil {
			return fmt.Errorf("failed to close parquet writer: %w", err)
		}
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *ParquetSink) buildWriter(first []any) error {
	if len(s.columns) == 0 {
		return fmt.Errorf("parquet sink: WriteHeader must be called before WriteRow")
	}

	s.kinds = make([]colKind, len(s.columns))
	group := parquet.Group{}
	for i, name := range s.columns {
		kind := sniffKind(first[i])
		s.kinds[i] = kind
		group[name] = parquet.Optional(kind.node())
	}

	schema := parquet.NewSchema("export", group)
	s.writer = parquet.NewGenericWriter[map[string]any](s.w, schema)
	return nil
}

func (s *ParquetSink) convert(i int, v any) any {
	switch s.kinds[i] {
	case kindTimestamp:
		if t, ok := v.(time.Time); ok {
			return t.UnixMilli()
		}
	case kindString:
		if _, ok := v.(string); !ok {
			return fmt.Sprintf("%v", v)
		}
	}
	return v
}

func sniffKind(v any) colKind {
	switch v.(type) {
	case int64:
		return kindInt64
	case float64:
		return kindFloat64
	case time.Time:
		return kindTimestamp
	default:
		return kindString
	}
}

func (k colKind) node() parquet.Node {
	switch k {
	case kindInt64:
		return parquet.Int(64)
	case kindFloat64:
		return parquet.Leaf(parquet.DoubleType)
	case kindTimestamp:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		return parquet.String()
	}
}
