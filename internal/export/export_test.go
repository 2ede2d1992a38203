package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in        string
		want      Format
		expectErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: "parquet", want: FormatParquet},
		{in: "xlsx", expectErr: true},
		{in: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimestampedPath(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)
	got := TimestampedPath("exports", "procedurelog", FormatCSV, now)
	assert.Equal(t, "exports/procedurelog_20240315_093045.csv", got)
}

func TestCSVSink_Values(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCSVSink(&buf)

	require.NoError(t, sink.WriteHeader([]string{"id", "name", "fee", "when", "note"}))
	require.NoError(t, sink.WriteRow([]any{
		int64(42),
		"crown",
		float64(850.5),
		time.Date(2024, 11, 2, 14, 0, 0, 0, time.UTC),
		nil,
	}))
	require.NoError(t, sink.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,name,fee,when,note", lines[0])
	assert.Equal(t, "42,crown,850.5,2024-11-02 14:00:00,", lines[1])
}

func TestCSVSink_ColumnMismatch(t *testing.T) {
	sink := NewCSVSink(&bytes.Buffer{})
	require.NoError(t, sink.WriteHeader([]string{"a", "b"}))
	assert.Error(t, sink.WriteRow([]any{int64(1)}))
}

func TestExporter_BatchBoundariesInvisible(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mockRows := sqlmock.NewRows([]string{"ProcNum", "ProcCode"})
	for i := 1; i <= 7; i++ {
		mockRows.AddRow(int64(i), []byte("D1110"))
	}
	mock.ExpectQuery("SELECT").WillReturnRows(mockRows)

	rows, err := db.Query("SELECT ProcNum, ProcCode FROM procedurelog")
	require.NoError(t, err)

	var buf bytes.Buffer
	sink := NewCSVSink(&buf)

	// Batch size 3 forces flushes mid-stream; output must be identical to a
	// single-batch export.
	exporter := NewExporter(3, nil)
	written, err := exporter.Export(context.Background(), rows, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, int64(7), written)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 8) // header + 7 rows
	assert.Equal(t, "1,D1110", lines[1])
	assert.Equal(t, "7,D1110", lines[7])
}

func TestExporter_ByteSlicesBecomeStrings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"LName"}).AddRow([]byte("Smith")))

	rows, err := db.Query("SELECT LName FROM patient")
	require.NoError(t, err)

	var buf bytes.Buffer
	sink := NewCSVSink(&buf)
	_, err = NewExporter(0, nil).Export(context.Background(), rows, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Contains(t, buf.String(), "Smith")
}

func TestExporter_EmptyResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"a", "b"}))

	rows, err := db.Query("SELECT a, b FROM t")
	require.NoError(t, err)

	var buf bytes.Buffer
	sink := NewCSVSink(&buf)
	written, err := NewExporter(0, nil).Export(context.Background(), rows, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Zero(t, written)
	assert.Equal(t, "a,b", strings.TrimSpace(buf.String()))
}

func TestParquetSink_SchemaSniffing(t *testing.T) {
	var buf bytes.Buffer
	sink := NewParquetSink(&buf)

	require.NoError(t, sink.WriteHeader([]string{"id", "fee", "code", "when", "maybe"}))
	require.NoError(t, sink.WriteRow([]any{
		int64(1),
		float64(120.0),
		"D7140",
		time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		nil, // NULL in first row defaults the column to string
	}))
	require.NoError(t, sink.WriteRow([]any{int64(2), float64(80.0), "D1110", time.Now(), "x"}))
	require.NoError(t, sink.Flush())
	require.NoError(t, sink.Close())

	assert.Equal(t, kindInt64, sink.kinds[0])
	assert.Equal(t, kindFloat64, sink.kinds[1])
	assert.Equal(t, kindString, sink.kinds[2])
	assert.Equal(t, kindTimestamp, sink.kinds[3])
	assert.Equal(t, kindString, sink.kinds[4])
	assert.NotZero(t, buf.Len())
}

func TestParquetSink_RowBeforeHeader(t *testing.T) {
	sink := NewParquetSink(&bytes.Buffer{})
	assert.Error(t, sink.WriteRow([]any{int64(1)}))
}
