package treatmentjourney

import (
	"testing"
	"time"
)

func TestIsUrgent(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"D7140", true},
		{"D7210", true},
		{"d7240", true},
		{" D7111 ", true},
		{"D0120", false},
		{"D2740", false},
		{"D8090", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isUrgent(tt.code); got != tt.want {
			t.Errorf("isUrgent(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsYearEnd(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"2024-11-01", true},
		{"2024-12-31", true},
		{"2024-10-31", false},
		{"2024-01-01", false},
		{"2024-06-15", false},
	}
	for _, tt := range tests {
		d, err := time.Parse("2006-01-02", tt.date)
		if err != nil {
			t.Fatal(err)
		}
		if got := isYearEnd(d); got != tt.want {
			t.Errorf("isYearEnd(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestFeeBucket(t *testing.T) {
	tests := []struct {
		fee  float64
		want string
	}{
		{0, "zero"},
		{-10, "zero"},
		{45, "low"},
		{99.99, "low"},
		{100, "medium"},
		{499, "medium"},
		{500, "high"},
		{1499.99, "high"},
		{1500, "very_high"},
		{8000, "very_high"},
	}
	for _, tt := range tests {
		if got := feeBucket(tt.fee); got != tt.want {
			t.Errorf("feeBucket(%v) = %q, want %q", tt.fee, got, tt.want)
		}
	}
}

func TestDaysToCompletion(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}

	if got := daysToCompletion(day("2024-01-01"), day("2024-01-15")); got != 14 {
		t.Errorf("got %d, want 14", got)
	}
	if got := daysToCompletion(day("2024-01-01"), day("2024-01-01")); got != 0 {
		t.Errorf("same day: got %d, want 0", got)
	}
	if got := daysToCompletion(day("2024-02-01"), day("2024-01-01")); got != -1 {
		t.Errorf("completion before planning: got %d, want -1", got)
	}
	if got := daysToCompletion(time.Time{}, day("2024-01-01")); got != -1 {
		t.Errorf("zero planned date: got %d, want -1", got)
	}
}

func TestPaidRatio(t *testing.T) {
	tests := []struct {
		paid, fee, want float64
	}{
		{50, 100, 0.5},
		{100, 100, 1},
		{150, 100, 1},
		{0, 100, 0},
		{50, 0, 0},
		{-10, 100, 0},
	}
	for _, tt := range tests {
		if got := paidRatio(tt.paid, tt.fee); got != tt.want {
			t.Errorf("paidRatio(%v, %v) = %v, want %v", tt.paid, tt.fee, got, tt.want)
		}
	}
}
