package index

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

type stubAdapter struct {
	warehouse.BaseAdapter
	indexes map[string][]warehouse.IndexInfo
	listErr error
}

func (a *stubAdapter) Connect(ctx context.Context, cfg warehouse.Config) error { return nil }

func (a *stubAdapter) ListTables(ctx context.Context) ([]string, error) { return nil, nil }

func (a *stubAdapter) TableMetadata(ctx context.Context, table string) (*warehouse.TableMetadata, error) {
	return nil, nil
}

func (a *stubAdapter) ListIndexes(ctx context.Context, table string) ([]warehouse.IndexInfo, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	return a.indexes[table], nil
}

func newTestManager(t *testing.T, indexes map[string][]warehouse.IndexInfo) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter := &stubAdapter{indexes: indexes}
	adapter.DB = db
	return NewManager(adapter, nil), mock
}

func TestDefinitionSQL(t *testing.T) {
	d := Definition{Name: "idx_ml_proc_date_status", Table: "procedurelog", Columns: []string{"ProcDate", "ProcStatus"}}
	assert.Equal(t, "CREATE INDEX idx_ml_proc_date_status ON procedurelog (ProcDate, ProcStatus)", d.CreateSQL())
	assert.Equal(t, "DROP INDEX idx_ml_proc_date_status ON procedurelog", d.DropSQL())

	u := Definition{Name: "idx_ml_claim_num", Table: "claim", Columns: []string{"ClaimNum"}, Unique: true}
	assert.Equal(t, "CREATE UNIQUE INDEX idx_ml_claim_num ON claim (ClaimNum)", u.CreateSQL())
}

func TestManagedDefinitionsUsePrefix(t *testing.T) {
	for _, d := range Definitions {
		assert.Contains(t, d.Name, namePrefix, "definition %s/%s", d.Table, d.Name)
		assert.NotEmpty(t, d.Columns, "definition %s has no columns", d.Name)
	}
}

func TestCreateSkipsExistingAndContinuesOnFailure(t *testing.T) {
	defs := []Definition{
		{Name: "idx_ml_a", Table: "payment", Columns: []string{"PayDate"}},
		{Name: "idx_ml_b", Table: "payment", Columns: []string{"PatNum"}},
		{Name: "idx_ml_c", Table: "payment", Columns: []string{"PayType"}},
	}
	mgr, mock := newTestManager(t, map[string][]warehouse.IndexInfo{
		"payment": {{Table: "payment", Name: "idx_ml_a", Columns: []string{"PayDate"}}},
	})

	mock.ExpectExec("CREATE INDEX idx_ml_b ON payment (PatNum)").
		WillReturnError(errors.New("disk full"))
	mock.ExpectExec("CREATE INDEX idx_ml_c ON payment (PayType)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	summary, err := mgr.Create(context.Background(), defs)
	require.NoError(t, err)

	assert.Equal(t, []string{"idx_ml_a"}, summary.Skipped)
	assert.Equal(t, []string{"idx_ml_c"}, summary.Applied)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "idx_ml_b", summary.Failures[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropByExactName(t *testing.T) {
	mgr, mock := newTestManager(t, map[string][]warehouse.IndexInfo{
		"paysplit": {{Table: "paysplit", Name: "idx_ml_paysplit_proc"}},
	})

	mock.ExpectExec("DROP INDEX idx_ml_paysplit_proc ON paysplit").
		WillReturnResult(sqlmock.NewResult(0, 0))

	summary, err := mgr.Drop(context.Background(), "idx_ml_paysplit_proc", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"idx_ml_paysplit_proc"}, summary.Applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropByPatternSelectsOnlyMatches(t *testing.T) {
	mgr, mock := newTestManager(t, map[string][]warehouse.IndexInfo{
		"paysplit": {
			{Table: "paysplit", Name: "idx_ml_paysplit_proc"},
			{Table: "paysplit", Name: "idx_ml_paysplit_pay"},
		},
	})

	mock.ExpectExec("DROP INDEX idx_ml_paysplit_proc ON paysplit").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP INDEX idx_ml_paysplit_pay ON paysplit").
		WillReturnResult(sqlmock.NewResult(0, 0))

	summary, err := mgr.Drop(context.Background(), "", "idx_ml_paysplit")
	require.NoError(t, err)

	assert.Len(t, summary.Applied, 2)
	// idx_ml_paysplit_unearned is defined but absent from the warehouse.
	assert.Equal(t, []string{"idx_ml_paysplit_unearned"}, summary.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropRefusesUnmanagedNames(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	_, err := mgr.Drop(context.Background(), "PatNum_2", "")
	assert.Error(t, err)

	_, err = mgr.Drop(context.Background(), "", "PRIMARY")
	assert.Error(t, err)

	_, err = mgr.Drop(context.Background(), "", "")
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	mgr, _ := newTestManager(t, map[string][]warehouse.IndexInfo{
		"payment": {{Table: "payment", Name: "idx_ml_pay_date"}},
	})

	rows, err := mgr.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, len(Definitions))

	byName := make(map[string]bool)
	for _, r := range rows {
		byName[r.Definition.Name] = r.Present
	}
	assert.True(t, byName["idx_ml_pay_date"])
	assert.False(t, byName["idx_ml_pay_patient"])
}

func TestListAcrossManagedTables(t *testing.T) {
	mgr, _ := newTestManager(t, map[string][]warehouse.IndexInfo{
		"claim":   {{Table: "claim", Name: "idx_ml_claim_patient"}},
		"payment": {{Table: "payment", Name: "idx_ml_pay_date"}},
	})

	all, err := mgr.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all["claim"], 1)
	assert.Len(t, all["payment"], 1)

	one, err := mgr.List(context.Background(), "claim")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "idx_ml_claim_patient", one["claim"][0].Name)
}
