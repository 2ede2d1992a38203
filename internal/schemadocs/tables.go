// Package schemadocs generates CSV documentation for the OpenDental tables
// the analytics warehouse reads. The column notes are maintained by hand;
// OpenDental ships no data dictionary for a replica.
package schemadocs

// ColumnDoc documents one column.
type ColumnDoc struct {
	Name        string
	Type        string
	Description string
}

// TableDoc documents one source table.
type TableDoc struct {
	Table       string
	Description string
	Columns     []ColumnDoc
}

// Tables is the documented warehouse surface, in output order.
var Tables = []TableDoc{
	{
		Table:       "patient",
		Description: "One row per patient. Guarantor links family members to a head of household.",
		Columns: []ColumnDoc{
			{"PatNum", "bigint", "Primary key"},
			{"Guarantor", "bigint", "PatNum of the family guarantor; equals PatNum for the head of household"},
			{"Birthdate", "date", "Date of birth; 0001-01-01 when unknown"},
			{"Gender", "tinyint", "0 male, 1 female, 2 unknown"},
			{"PatStatus", "tinyint", "0 patient, 1 nonpatient, 2 inactive, 3 archived, 4 deceased, 5 deleted"},
			{"HasIns", "varchar", "Non-empty when the patient carries insurance; free text"},
			{"ClinicNum", "bigint", "Clinic the patient is assigned to; 0 when unassigned"},
		},
	},
	{
		Table:       "procedurelog",
		Description: "One row per clinical procedure, planned or completed.",
		Columns: []ColumnDoc{
			{"ProcNum", "bigint", "Primary key"},
			{"PatNum", "bigint", "Patient the procedure belongs to"},
			{"CodeNum", "bigint", "FK to procedurecode"},
			{"ProcDate", "date", "Date performed, or scheduled date for planned work"},
			{"DateTP", "date", "Date the procedure was treatment planned; 0001-01-01 when never planned"},
			{"ProcFee", "double", "Office fee before adjustments"},
			{"ProcStatus", "tinyint", "1 treatment planned, 2 complete, 3 existing current provider, 4 existing other provider, 5 referred, 6 deleted, 7 condition"},
			{"ClinicNum", "bigint", "Clinic where performed"},
			{"ProvNum", "bigint", "Provider of record"},
		},
	},
	{
		Table:       "procedurecode",
		Description: "CDT procedure code dictionary.",
		Columns: []ColumnDoc{
			{"CodeNum", "bigint", "Primary key"},
			{"ProcCode", "varchar", "CDT code, e.g. D0120; D7xxx is oral surgery"},
			{"Descript", "varchar", "Long description"},
			{"AbbrDesc", "varchar", "Short description used on statements"},
			{"ProcCat", "bigint", "FK to the procedure category definition"},
		},
	},
	{
		Table:       "claim",
		Description: "One row per insurance claim.",
		Columns: []ColumnDoc{
			{"ClaimNum", "bigint", "Primary key"},
			{"PatNum", "bigint", "Patient the claim covers"},
			{"DateSent", "date", "Date last sent to the carrier"},
			{"DateReceived", "date", "Date the EOB was entered; 0001-01-01 while outstanding"},
			{"ClaimStatus", "char", "U unsent, H hold, W waiting, S sent, R received"},
			{"ClaimFee", "double", "Total billed on the claim"},
			{"PlanNum", "bigint", "FK to insplan"},
		},
	},
	{
		Table:       "claimproc",
		Description: "Procedure-level claim detail; also carries estimates before a claim exists.",
		Columns: []ColumnDoc{
			{"ClaimProcNum", "bigint", "Primary key"},
			{"ClaimNum", "bigint", "Owning claim; 0 for standalone estimates"},
			{"ProcNum", "bigint", "Procedure this row pays or estimates"},
			{"PatNum", "bigint", "Patient, denormalized from the procedure"},
			{"Status", "tinyint", "0 estimate, 1 received, 2 preauth, 3 supplemental, 4 capitation complete, 5 under review, 6 capitation estimate"},
			{"FeeBilled", "double", "Amount billed to the carrier"},
			{"InsPayAmt", "double", "Amount the carrier paid"},
			{"WriteOff", "double", "Contractual write-off"},
			{"DateCP", "date", "Date of the payment or estimate"},
		},
	},
	{
		Table:       "payment",
		Description: "Patient payments; allocation to procedures happens through paysplit.",
		Columns: []ColumnDoc{
			{"PayNum", "bigint", "Primary key"},
			{"PatNum", "bigint", "Patient who paid"},
			{"PayDate", "date", "Date of payment"},
			{"PayAmt", "double", "Payment amount; should equal the sum of its splits"},
			{"PayType", "bigint", "Payment type definition; 0 is an income transfer"},
			{"ClinicNum", "bigint", "Clinic the payment was taken at"},
		},
	},
	{
		Table:       "paysplit",
		Description: "Allocation of a payment to a procedure, provider, and patient.",
		Columns: []ColumnDoc{
			{"SplitNum", "bigint", "Primary key"},
			{"PayNum", "bigint", "Owning payment"},
			{"PatNum", "bigint", "Patient credited"},
			{"ProcNum", "bigint", "Procedure credited; 0 when unattached"},
			{"SplitAmt", "double", "Allocated amount"},
			{"DatePay", "date", "Date of the owning payment, denormalized"},
			{"UnearnedType", "bigint", "Non-zero marks prepayment or other unearned income"},
			{"ProvNum", "bigint", "Provider credited"},
		},
	},
	{
		Table:       "treatplan",
		Description: "Saved treatment plans presented to patients.",
		Columns: []ColumnDoc{
			{"TreatPlanNum", "bigint", "Primary key"},
			{"PatNum", "bigint", "Patient the plan was presented to"},
			{"DateTP", "date", "Date the plan was created"},
			{"Heading", "varchar", "Plan title shown on the printout"},
			{"TPStatus", "tinyint", "0 saved, 1 active, 2 inactive"},
		},
	},
	{
		Table:       "appointment",
		Description: "Scheduled and completed appointments.",
		Columns: []ColumnDoc{
			{"AptNum", "bigint", "Primary key"},
			{"PatNum", "bigint", "Patient scheduled"},
			{"AptDateTime", "datetime", "Scheduled start"},
			{"AptStatus", "tinyint", "1 scheduled, 2 complete, 3 unscheduled list, 5 broken, 6 planned"},
			{"ClinicNum", "bigint", "Clinic the appointment is booked at"},
		},
	},
}
