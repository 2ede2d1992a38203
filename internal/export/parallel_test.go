package export

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

// stubAdapter backs the parallel runner tests with a sqlmock connection.
type stubAdapter struct {
	warehouse.BaseAdapter
	failQuery bool
}

func (s *stubAdapter) Connect(ctx context.Context, cfg warehouse.Config) error { return nil }

func (s *stubAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	if s.failQuery {
		return nil, fmt.Errorf("table has crashed")
	}
	return s.BaseAdapter.Query(ctx, sqlStr, args...)
}

func (s *stubAdapter) ListTables(ctx context.Context) ([]string, error) { return nil, nil }

func (s *stubAdapter) TableMetadata(ctx context.Context, table string) (*warehouse.TableMetadata, error) {
	return nil, nil
}

func (s *stubAdapter) ListIndexes(ctx context.Context, table string) ([]warehouse.IndexInfo, error) {
	return nil, nil
}

func newStubConnect(t *testing.T, rowsPerTable int, failTable string) func(context.Context) (warehouse.Adapter, error) {
	t.Helper()
	return func(ctx context.Context) (warehouse.Adapter, error) {
		db, mock, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		mockRows := sqlmock.NewRows([]string{"id"})
		for i := 0; i < rowsPerTable; i++ {
			mockRows.AddRow(int64(i))
		}
		mock.ExpectQuery("SELECT").WillReturnRows(mockRows)
		mock.ExpectClose()

		a := &stubAdapter{}
		a.DB = db
		return a, nil
	}
}

func TestParallelRunner_Run(t *testing.T) {
	var mu sync.Mutex
	buffers := make(map[string]*bytes.Buffer)

	runner := &ParallelRunner{
		Connect: newStubConnect(t, 5, ""),
		MakeSink: func(table string) (Sink, string, error) {
			mu.Lock()
			defer mu.Unlock()
			buf := &bytes.Buffer{}
			buffers[table] = buf
			return NewCSVSink(buf), table + ".csv", nil
		},
		Workers:   2,
		BatchSize: 2,
	}

	tables := []string{"patient", "procedurelog", "payment"}
	results, err := runner.Run(context.Background(), tables)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, res := range results {
		assert.Equal(t, tables[i], res.Table)
		assert.Equal(t, int64(5), res.Rows)
		assert.NoError(t, res.Err)
	}
	assert.Len(t, buffers, 3)
}

func TestParallelRunner_FailedTableDoesNotStopOthers(t *testing.T) {
	connect := func(ctx context.Context) (warehouse.Adapter, error) {
		db, mock, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		mock.ExpectQuery("SELECT").WillReturnRows(
			sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
		mock.ExpectClose()

		a := &stubAdapter{}
		a.DB = db
		return a, nil
	}

	calls := 0
	var mu sync.Mutex
	runner := &ParallelRunner{
		Connect: func(ctx context.Context) (warehouse.Adapter, error) {
			mu.Lock()
			calls++
			failing := calls == 1
			mu.Unlock()
			if failing {
				a := &stubAdapter{failQuery: true}
				db, _, err := sqlmock.New()
				if err != nil {
					return nil, err
				}
				a.DB = db
				return a, nil
			}
			return connect(ctx)
		},
		MakeSink: func(table string) (Sink, string, error) {
			return NewCSVSink(&bytes.Buffer{}), table + ".csv", nil
		},
		Workers: 1, // serial so the first table is the failing one
	}

	results, err := runner.Run(context.Background(), []string{"claim", "payment"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim")

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, int64(1), results[1].Rows)
}
