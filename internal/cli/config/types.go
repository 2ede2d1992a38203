// Package config provides configuration management for the mdcx CLI.
//
// Configuration is layered: defaults, mdcx.yaml, MDCX_-prefixed environment
// variables, then flags. Warehouse credentials live under connections and may
// reference environment variables with ${VAR}, typically loaded from .env.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

// Default configuration values.
const (
	DefaultTarget    = "local_mariadb"
	DefaultOutDir    = "exports"
	DefaultFormat    = "csv"
	DefaultBatchSize = 10000
	DefaultStateFile = ".mdcx/history.db"
)

// Config holds all CLI configuration options.
type Config struct {
	// Target selects the named warehouse connection
	Target    string `koanf:"target"`
	OutDir    string `koanf:"out_dir"`
	Format    string `koanf:"format"`
	BatchSize int    `koanf:"batch_size"`
	StatePath string `koanf:"state_path"`
	Verbose   bool   `koanf:"verbose"`

	// Connections holds the named warehouse targets from mdcx.yaml
	Connections map[string]warehouse.Config `koanf:"connections"`
}

// Connection resolves the selected target into a warehouse config, expanding
// ${VAR} references in credential fields from the environment.
func (c *Config) Connection() (warehouse.Config, error) {
	conn, ok := c.Connections[c.Target]
	if !ok {
		return warehouse.Config{}, fmt.Errorf("unknown target %q (known targets: %v)", c.Target, c.ConnectionNames())
	}

	conn.Target = c.Target
	conn.Host = expandEnv(conn.Host)
	conn.User = expandEnv(conn.User)
	conn.Password = expandEnv(conn.Password)
	conn.Database = expandEnv(conn.Database)

	if conn.Host == "" {
		return warehouse.Config{}, fmt.Errorf("target %q has no host configured", c.Target)
	}
	if conn.Database == "" {
		return warehouse.Config{}, fmt.Errorf("target %q has no database configured", c.Target)
	}
	if conn.Port == 0 {
		conn.Port = 3306
	}
	return conn, nil
}

// ConnectionNames returns the configured target names, sorted.
func (c *Config) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// expandEnv replaces ${VAR} references; unset variables expand to empty.
func expandEnv(s string) string {
	return os.Expand(s, os.Getenv)
}
