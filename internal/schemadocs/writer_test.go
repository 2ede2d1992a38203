package schemadocs

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestTablesAreWellFormed(t *testing.T) {
	seen := make(map[string]bool)
	for _, tbl := range Tables {
		if seen[tbl.Table] {
			t.Errorf("duplicate table doc %q", tbl.Table)
		}
		seen[tbl.Table] = true

		if tbl.Description == "" {
			t.Errorf("table %q has no description", tbl.Table)
		}
		if len(tbl.Columns) == 0 {
			t.Errorf("table %q has no columns", tbl.Table)
		}

		cols := make(map[string]bool)
		for _, c := range tbl.Columns {
			if cols[c.Name] {
				t.Errorf("table %q documents column %q twice", tbl.Table, c.Name)
			}
			cols[c.Name] = true
			if c.Type == "" || c.Description == "" {
				t.Errorf("table %q column %q missing type or description", tbl.Table, c.Name)
			}
		}
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()

	paths, err := Write(dir, nil)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(paths) != len(Tables)+1 {
		t.Fatalf("wrote %d files, want %d", len(paths), len(Tables)+1)
	}

	overview := readCSV(t, filepath.Join(dir, "tables.csv"))
	if len(overview) != len(Tables)+1 {
		t.Errorf("overview has %d rows, want %d", len(overview), len(Tables)+1)
	}
	if got := overview[0][0]; got != "table" {
		t.Errorf("overview header starts with %q, want table", got)
	}

	patient := readCSV(t, filepath.Join(dir, "patient.csv"))
	if patient[1][0] != "PatNum" {
		t.Errorf("first patient column = %q, want PatNum", patient[1][0])
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return records
}
