// Package etl provides the extract/transform/load template used by warehouse
// jobs. A Job implements the four phases; the Runner executes them in order
// with timing and logging.
package etl

import "fmt"

// Frame is a small column-ordered in-memory table passed between ETL phases.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// NewFrame creates an empty frame with the given columns.
func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: columns}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// AppendRow adds a row. The value count must match the column count.
func (f *Frame) AppendRow(values ...any) error {
	if len(values) != len(f.Columns) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(values), len(f.Columns))
	}
	f.Rows = append(f.Rows, values)
	return nil
}

// ColumnIndex returns the position of a named column, or an error.
func (f *Frame) ColumnIndex(name string) (int, error) {
	for i, col := range f.Columns {
		if col == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("frame has no column %q", name)
}

// AppendColumn adds a derived column computed from each existing row.
func (f *Frame) AppendColumn(name string, compute func(row []any) any) {
	f.Columns = append(f.Columns, name)
	for i, row := range f.Rows {
		f.Rows[i] = append(row, compute(row))
	}
}
