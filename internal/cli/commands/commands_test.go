package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminRains/mdc-analytics/internal/cli/config"
)

// execute runs a command with a background context and captures stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// executeWithConfig runs a command with a config already in context.
func executeWithConfig(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(WithConfig(context.Background(), cfg))
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand("1.2.3", "unknown", "unknown"))
	require.NoError(t, err)
	assert.Contains(t, out, "mdcx v1.2.3")

	out, err = execute(t, NewVersionCommand("1.2.3", "2024-06-01", "abc1234"))
	require.NoError(t, err)
	assert.Contains(t, out, "built 2024-06-01 (abc1234)")
}

func TestValidateListCommand(t *testing.T) {
	out, err := execute(t, NewValidateCommand(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "payment-splits")
	assert.Contains(t, out, "claims")
	assert.Contains(t, out, "unearned-income")
}

func TestValidateUnknownReport(t *testing.T) {
	_, err := execute(t, NewValidateCommand(), "nope", "--start", "2024-01-01", "--end", "2024-12-31")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report")
}

func TestValidateRejectsBadDates(t *testing.T) {
	cfg := &config.Config{Format: "csv"}
	_, err := executeWithConfig(t, NewValidateCommand(), cfg,
		"payment-splits", "--start", "not-a-date", "--end", "2024-12-31")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid start date")
}

func TestValidateShowSQL(t *testing.T) {
	cfg := &config.Config{Format: "csv", BatchSize: 100}
	out, err := executeWithConfig(t, NewValidateCommand(), cfg,
		"payment-splits", "--start", "2024-01-01", "--end", "2024-12-31", "--sql")
	require.NoError(t, err)
	assert.Contains(t, out, "WITH payment_base AS (")
	assert.Contains(t, out, "'2024-01-01'")
}

func TestDagCommandForReport(t *testing.T) {
	out, err := execute(t, NewDagCommand(), "claims")
	require.NoError(t, err)
	assert.Contains(t, out, "3 fragments")
	assert.Contains(t, out, "claim_base")
	assert.Contains(t, out, "depends on: claim_base")
}

func TestDagCommandForDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.sql"),
		[]byte("SELECT 1 AS n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "derived.sql"),
		[]byte("-- @depends_on(base)\nSELECT n FROM base"), 0o644))

	out, err := execute(t, NewDagCommand(), "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 fragments, 2 levels")
}

func TestDagCommandRequiresInput(t *testing.T) {
	_, err := execute(t, NewDagCommand())
	require.Error(t, err)
}

func TestSchemaDocsCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, NewSchemaDocsCommand(), "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	if _, err := os.Stat(filepath.Join(dir, "tables.csv")); err != nil {
		t.Errorf("overview CSV not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "procedurelog.csv")); err != nil {
		t.Errorf("procedurelog CSV not written: %v", err)
	}
}

func TestExportRequiresQueryOrFile(t *testing.T) {
	cfg := &config.Config{Format: "csv"}
	_, err := executeWithConfig(t, NewExportCommand(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--query or --file")
}

func TestQueryCommandWithoutHistory(t *testing.T) {
	cfg := &config.Config{StatePath: filepath.Join(t.TempDir(), "missing.db")}
	_, err := executeWithConfig(t, NewQueryCommand(), cfg, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run history not found")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "42", formatValue(int64(42)))
	assert.Equal(t, "3.14", formatValue(3.14))
	assert.Equal(t, "2", formatValue(2.0))
	assert.Equal(t, "hello", formatValue("hello"))
}

func TestEscapeCSV(t *testing.T) {
	assert.Equal(t, "plain", escapeCSV("plain"))
	assert.Equal(t, `"a,b"`, escapeCSV("a,b"))
	assert.Equal(t, `"say ""hi"""`, escapeCSV(`say "hi"`))
}
