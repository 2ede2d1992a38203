package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminRains/mdc-analytics/internal/export"
	"github.com/BenjaminRains/mdc-analytics/internal/fragment"
	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

type stubAdapter struct {
	warehouse.BaseAdapter
}

func (a *stubAdapter) Connect(ctx context.Context, cfg warehouse.Config) error { return nil }

func (a *stubAdapter) ListTables(ctx context.Context) ([]string, error) { return nil, nil }

func (a *stubAdapter) TableMetadata(ctx context.Context, table string) (*warehouse.TableMetadata, error) {
	return nil, nil
}

func (a *stubAdapter) ListIndexes(ctx context.Context, table string) ([]warehouse.IndexInfo, error) {
	return nil, nil
}

func testDates(t *testing.T) fragment.DateRange {
	t.Helper()
	dates, err := fragment.NewDateRange("2024-01-01", "2024-12-31")
	require.NoError(t, err)
	return dates
}

func TestEveryReportAssembles(t *testing.T) {
	runner := NewRunner(&stubAdapter{}, 0, nil)
	dates := testDates(t)

	for _, rep := range List() {
		t.Run(rep.Name, func(t *testing.T) {
			sql, err := runner.SQL(rep, dates)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(sql, "WITH "), "assembled query should start with a CTE")
			assert.Contains(t, sql, "'2024-01-01'")
			assert.Contains(t, sql, "'2024-12-31'")
			assert.NotContains(t, sql, "{{", "placeholders must be fully substituted")
			assert.NotContains(t, sql, "@depends_on", "pragmas must be stripped")
		})
	}
}

func TestAssemblyIsDeterministic(t *testing.T) {
	runner := NewRunner(&stubAdapter{}, 0, nil)
	dates := testDates(t)
	rep, ok := Lookup("claims")
	require.True(t, ok)

	first, err := runner.SQL(rep, dates)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := runner.SQL(rep, dates)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClaimsDependencyOrder(t *testing.T) {
	runner := NewRunner(&stubAdapter{}, 0, nil)
	sql, err := runner.SQL(reports["claims"], testDates(t))
	require.NoError(t, err)

	base := strings.Index(sql, "claim_base AS (")
	totals := strings.Index(sql, "claim_proc_totals AS (")
	require.GreaterOrEqual(t, base, 0)
	require.GreaterOrEqual(t, totals, 0)
	assert.Less(t, base, totals, "claim_base must be defined before claim_proc_totals")
}

func TestLookup(t *testing.T) {
	_, ok := Lookup("payment-splits")
	assert.True(t, ok)
	_, ok = Lookup("nope")
	assert.False(t, ok)

	names := make([]string, 0)
	for _, r := range List() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"claims", "payment-splits", "unearned-income"}, names)
}

func TestRunExportsRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := &stubAdapter{}
	adapter.DB = db

	rows := sqlmock.NewRows([]string{"PatNum", "UnearnedType", "split_count", "unearned_total", "first_date", "last_date", "attached_to_procedure"}).
		AddRow(101, 288, 3, 450.0, "2024-02-01", "2024-06-01", 1).
		AddRow(102, 439, 1, -75.0, "2024-03-15", "2024-03-15", 0)
	mock.ExpectQuery("WITH unearned_splits AS").WillReturnRows(rows)

	var buf bytes.Buffer
	sink := export.NewCSVSink(&buf)

	runner := NewRunner(adapter, 100, nil)
	written, err := runner.Run(context.Background(), reports["unearned-income"], testDates(t), sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, int64(2), written)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "PatNum,UnearnedType,split_count,unearned_total,first_date,last_date,attached_to_procedure", lines[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}
