package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mdcx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleConfig = `
target: local_mysql
out_dir: /data/exports
connections:
  local_mariadb:
    host: localhost
    port: 3307
    user: readonly
    password: ${MARIADB_PASSWORD}
    database: opendental
  local_mysql:
    host: localhost
    user: root
    database: opendental_replica
  mdc:
    host: ${MDC_HOST}
    user: analytics
    password: ${MDC_PASSWORD}
    database: opendental_analytics
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultTarget, cfg.Target)
	assert.Equal(t, DefaultOutDir, cfg.OutDir)
	assert.Equal(t, DefaultFormat, cfg.Format)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "local_mysql", cfg.Target)
	assert.Equal(t, "/data/exports", cfg.OutDir)
	assert.Len(t, cfg.Connections, 3)
	assert.Equal(t, []string{"local_mariadb", "local_mysql", "mdc"}, cfg.ConnectionNames())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/mdcx.yaml", nil)
	assert.ErrorContains(t, err, "config file not found")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("MDCX_TARGET", "mdc")
	t.Setenv("MDCX_BATCH_SIZE", "500")
	t.Setenv("MDCX_CONNECTIONS__MDC__HOST", "mdc.example.internal")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "mdc", cfg.Target)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, "mdc.example.internal", cfg.Connections["mdc"].Host)
}

func TestFlagsOverrideEnv(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("MDCX_TARGET", "mdc")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("target", "", "")
	flags.String("state", "", "")
	require.NoError(t, flags.Set("target", "local_mariadb"))
	require.NoError(t, flags.Set("state", "/tmp/custom.db"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "local_mariadb", cfg.Target)
	assert.Equal(t, "/tmp/custom.db", cfg.StatePath)
}

func TestUnchangedFlagsDoNotOverride(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("target", "should-not-apply", "")

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "local_mysql", cfg.Target)
}

func TestConnectionResolvesCredentials(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("MARIADB_PASSWORD", "s3cret")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	cfg.Target = "local_mariadb"

	conn, err := cfg.Connection()
	require.NoError(t, err)
	assert.Equal(t, "local_mariadb", conn.Target)
	assert.Equal(t, "localhost", conn.Host)
	assert.Equal(t, 3307, conn.Port)
	assert.Equal(t, "s3cret", conn.Password)
}

func TestConnectionDefaultsPort(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	conn, err := cfg.Connection()
	require.NoError(t, err)
	assert.Equal(t, 3306, conn.Port)
}

func TestConnectionErrors(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	cfg.Target = "nope"
	_, err = cfg.Connection()
	assert.ErrorContains(t, err, "unknown target")

	// MDC_HOST unset expands to empty
	cfg.Target = "mdc"
	_, err = cfg.Connection()
	assert.ErrorContains(t, err, "no host configured")
}
