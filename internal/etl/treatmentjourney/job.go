// Package treatmentjourney builds the treatment journey dataset: one row per
// completed procedure with payment outcomes and derived features used by the
// downstream analytics models.
package treatmentjourney

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/BenjaminRains/mdc-analytics/internal/etl"
	"github.com/BenjaminRains/mdc-analytics/internal/export"
	"github.com/BenjaminRains/mdc-analytics/internal/fragment"
	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

// procedure status 2 is "complete" in OpenDental.
const extractQuery = `
SELECT
    pl.PatNum,
    pl.ProcNum,
    pc.ProcCode,
    pl.ProcDate,
    pl.DateTP,
    pl.ProcFee,
    TIMESTAMPDIFF(YEAR, pt.Birthdate, pl.ProcDate) AS PatientAge,
    pt.Gender,
    CASE WHEN pt.HasIns <> '' THEN 1 ELSE 0 END AS HasInsurance,
    COALESCE(ins.InsPayAmt, 0)  AS InsurancePaid,
    COALESCE(pay.SplitAmt, 0)   AS PatientPaid
FROM procedurelog pl
JOIN procedurecode pc ON pc.CodeNum = pl.CodeNum
JOIN patient pt       ON pt.PatNum = pl.PatNum
LEFT JOIN (
    SELECT ProcNum, SUM(InsPayAmt) AS InsPayAmt
    FROM claimproc
    WHERE Status IN (1, 4)
    GROUP BY ProcNum
) ins ON ins.ProcNum = pl.ProcNum
LEFT JOIN (
    SELECT ProcNum, SUM(SplitAmt) AS SplitAmt
    FROM paysplit
    GROUP BY ProcNum
) pay ON pay.ProcNum = pl.ProcNum
WHERE pl.ProcStatus = 2
  AND pl.ProcDate >= ?
  AND pl.ProcDate <= ?
ORDER BY pl.ProcDate, pl.ProcNum`

// baseColumns is the frame layout produced by Extract, in query order.
var baseColumns = []string{
	"patient_id", "procedure_id", "procedure_code", "procedure_date",
	"date_planned", "fee", "patient_age", "gender", "has_insurance",
	"insurance_paid", "patient_paid",
}

// Job extracts completed procedures for a date range, derives journey
// features, and writes the dataset to a sink.
type Job struct {
	Adapter warehouse.Adapter
	Sink    export.Sink
	Dates   fragment.DateRange
	Logger  *slog.Logger
}

// New creates a treatment journey job. A nil logger discards output.
func New(adapter warehouse.Adapter, sink export.Sink, dates fragment.DateRange, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Job{Adapter: adapter, Sink: sink, Dates: dates, Logger: logger}
}

func (j *Job) Name() string { return "treatment-journey" }

// Setup verifies the warehouse connection is usable.
func (j *Job) Setup(ctx context.Context) error {
	if _, err := j.Adapter.ListTables(ctx); err != nil {
		return fmt.Errorf("checking warehouse connection: %w", err)
	}
	return nil
}

// Extract runs the base query and builds the raw frame.
func (j *Job) Extract(ctx context.Context) (*etl.Frame, error) {
	rows, err := j.Adapter.Query(ctx, extractQuery, j.Dates.Start, j.Dates.End)
	if err != nil {
		return nil, fmt.Errorf("querying procedures: %w", err)
	}
	defer rows.Close()

	frame := etl.NewFrame(baseColumns...)
	for rows.Next() {
		var (
			patNum, procNum  int64
			procCode         string
			procDate         time.Time
			dateTP           sql.NullTime
			fee              float64
			age              sql.NullInt64
			gender           sql.NullInt64
			hasIns           int64
			insPaid, patPaid float64
		)
		if err := rows.Scan(&patNum, &procNum, &procCode, &procDate, &dateTP,
			&fee, &age, &gender, &hasIns, &insPaid, &patPaid); err != nil {
			return nil, fmt.Errorf("scanning procedure row: %w", err)
		}

		var planned any
		if dateTP.Valid && !dateTP.Time.IsZero() {
			planned = dateTP.Time
		}
		var patientAge any
		if age.Valid {
			patientAge = age.Int64
		}
		var patientGender any
		if gender.Valid {
			patientGender = gender.Int64
		}

		if err := frame.AppendRow(patNum, procNum, procCode, procDate, planned,
			fee, patientAge, patientGender, hasIns == 1, insPaid, patPaid); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading procedure rows: %w", err)
	}
	return frame, nil
}

// Transform appends the derived feature columns.
func (j *Job) Transform(ctx context.Context, frame *etl.Frame) (*etl.Frame, error) {
	codeIdx, err := frame.ColumnIndex("procedure_code")
	if err != nil {
		return nil, err
	}
	dateIdx, err := frame.ColumnIndex("procedure_date")
	if err != nil {
		return nil, err
	}
	plannedIdx, err := frame.ColumnIndex("date_planned")
	if err != nil {
		return nil, err
	}
	feeIdx, err := frame.ColumnIndex("fee")
	if err != nil {
		return nil, err
	}
	insIdx, err := frame.ColumnIndex("insurance_paid")
	if err != nil {
		return nil, err
	}
	patIdx, err := frame.ColumnIndex("patient_paid")
	if err != nil {
		return nil, err
	}

	frame.AppendColumn("is_urgent", func(row []any) any {
		code, _ := row[codeIdx].(string)
		return isUrgent(code)
	})
	frame.AppendColumn("is_year_end", func(row []any) any {
		date, ok := row[dateIdx].(time.Time)
		return ok && isYearEnd(date)
	})
	frame.AppendColumn("fee_bucket", func(row []any) any {
		fee, _ := row[feeIdx].(float64)
		return feeBucket(fee)
	})
	frame.AppendColumn("days_to_completion", func(row []any) any {
		completed, _ := row[dateIdx].(time.Time)
		planned, ok := row[plannedIdx].(time.Time)
		if !ok {
			return int64(-1)
		}
		return daysToCompletion(planned, completed)
	})
	frame.AppendColumn("insurance_ratio", func(row []any) any {
		fee, _ := row[feeIdx].(float64)
		paid, _ := row[insIdx].(float64)
		return paidRatio(paid, fee)
	})
	frame.AppendColumn("total_paid_ratio", func(row []any) any {
		fee, _ := row[feeIdx].(float64)
		ins, _ := row[insIdx].(float64)
		pat, _ := row[patIdx].(float64)
		return paidRatio(ins+pat, fee)
	})
	return frame, nil
}

// Load writes the frame to the sink.
func (j *Job) Load(ctx context.Context, frame *etl.Frame) error {
	if err := j.Sink.WriteHeader(frame.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range frame.Rows {
		if err := j.Sink.WriteRow(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	if err := j.Sink.Flush(); err != nil {
		return fmt.Errorf("flushing sink: %w", err)
	}
	return nil
}
