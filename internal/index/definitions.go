// Package index maintains the analytics indexes on the OpenDental replica.
// Definitions are declared here; the Manager creates, drops, lists, and
// reports on them against a live warehouse connection.
package index

import (
	"fmt"
	"strings"
)

// Definition describes one analytics index.
type Definition struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// CreateSQL renders the CREATE INDEX statement.
func (d Definition) CreateSQL() string {
	unique := ""
	if d.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, d.Name, d.Table, strings.Join(d.Columns, ", "))
}

// DropSQL renders the DROP INDEX statement.
func (d Definition) DropSQL() string {
	return fmt.Sprintf("DROP INDEX %s ON %s", d.Name, d.Table)
}

// namePrefix marks every index this tool manages so drops never touch
// OpenDental's own indexes.
const namePrefix = "idx_ml_"

// Definitions are the analytics indexes, grouped by the query surface of the
// treatment journey dataset and the validation reports.
var Definitions = []Definition{
	// patient
	{Name: "idx_ml_pat_guarantor", Table: "patient", Columns: []string{"Guarantor"}},
	{Name: "idx_ml_pat_birth", Table: "patient", Columns: []string{"Birthdate"}},

	// procedurelog
	{Name: "idx_ml_proc_date_status", Table: "procedurelog", Columns: []string{"ProcDate", "ProcStatus"}},
	{Name: "idx_ml_proc_patient", Table: "procedurelog", Columns: []string{"PatNum", "ProcDate"}},
	{Name: "idx_ml_proc_code", Table: "procedurelog", Columns: []string{"CodeNum"}},
	{Name: "idx_ml_proc_clinic", Table: "procedurelog", Columns: []string{"ClinicNum"}},

	// claim
	{Name: "idx_ml_claim_dates", Table: "claim", Columns: []string{"DateSent", "DateReceived"}},
	{Name: "idx_ml_claim_patient", Table: "claim", Columns: []string{"PatNum"}},
	{Name: "idx_ml_claim_status", Table: "claim", Columns: []string{"ClaimStatus"}},

	// claimproc
	{Name: "idx_ml_claimproc_proc", Table: "claimproc", Columns: []string{"ProcNum", "Status"}},
	{Name: "idx_ml_claimproc_claim", Table: "claimproc", Columns: []string{"ClaimNum"}},
	{Name: "idx_ml_claimproc_patient", Table: "claimproc", Columns: []string{"PatNum", "DateCP"}},

	// payment
	{Name: "idx_ml_pay_date", Table: "payment", Columns: []string{"PayDate"}},
	{Name: "idx_ml_pay_patient", Table: "payment", Columns: []string{"PatNum", "PayDate"}},

	// paysplit
	{Name: "idx_ml_paysplit_proc", Table: "paysplit", Columns: []string{"ProcNum"}},
	{Name: "idx_ml_paysplit_pay", Table: "paysplit", Columns: []string{"PayNum"}},
	{Name: "idx_ml_paysplit_unearned", Table: "paysplit", Columns: []string{"UnearnedType", "DatePay"}},

	// treatplan
	{Name: "idx_ml_treatplan_patient", Table: "treatplan", Columns: []string{"PatNum", "DateTP"}},
}

// DefinitionsForTable filters the managed definitions to one table. An empty
// table returns everything.
func DefinitionsForTable(table string) []Definition {
	if table == "" {
		return Definitions
	}
	var out []Definition
	for _, d := range Definitions {
		if d.Table == table {
			out = append(out, d)
		}
	}
	return out
}
