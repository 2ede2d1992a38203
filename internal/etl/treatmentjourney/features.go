package treatmentjourney

import (
	"strings"
	"time"
)

// Fee bucket boundaries in dollars.
const (
	feeBucketLow  = 100.0
	feeBucketMid  = 500.0
	feeBucketHigh = 1500.0
)

// isUrgent reports whether a procedure code is an oral surgery code.
// CDT codes beginning with D7 cover extractions and surgical procedures.
func isUrgent(procCode string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(procCode)), "D7")
}

// isYearEnd reports whether a date falls in the benefits-deadline window at
// the end of the plan year.
func isYearEnd(date time.Time) bool {
	return date.Month() == time.November || date.Month() == time.December
}

// feeBucket classifies a procedure fee into a coarse band.
func feeBucket(fee float64) string {
	switch {
	case fee <= 0:
		return "zero"
	case fee < feeBucketLow:
		return "low"
	case fee < feeBucketMid:
		return "medium"
	case fee < feeBucketHigh:
		return "high"
	default:
		return "very_high"
	}
}

// daysToCompletion returns whole days between planning and completion, or -1
// when either date is unset or completion precedes planning.
func daysToCompletion(planned, completed time.Time) int64 {
	if planned.IsZero() || completed.IsZero() || completed.Before(planned) {
		return -1
	}
	return int64(completed.Sub(planned).Hours() / 24)
}

// paidRatio returns the portion of the fee covered by a payment, clamped to
// [0, 1]. A zero fee yields 0.
func paidRatio(paid, fee float64) float64 {
	if fee <= 0 || paid <= 0 {
		return 0
	}
	r := paid / fee
	if r > 1 {
		return 1
	}
	return r
}
