package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/BenjaminRains/mdc-analytics/internal/warehouse"
)

// Failure records one index operation that did not succeed.
type Failure struct {
	Name string
	Err  error
}

// Summary reports the outcome of a create or drop pass.
type Summary struct {
	Applied  []string
	Skipped  []string
	Failures []Failure
}

// ReportRow pairs a managed definition with its presence in the warehouse.
type ReportRow struct {
	Definition Definition
	Present    bool
}

// Manager executes index operations against a warehouse.
type Manager struct {
	adapter warehouse.Adapter
	logger  *slog.Logger
}

// NewManager creates a manager. A nil logger discards output.
func NewManager(adapter warehouse.Adapter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{adapter: adapter, logger: logger}
}

// List returns the indexes present on a table, or on every managed table
// when table is empty. Results are keyed by table name.
func (m *Manager) List(ctx context.Context, table string) (map[string][]warehouse.IndexInfo, error) {
	tables := []string{table}
	if table == "" {
		tables = managedTables()
	}

	out := make(map[string][]warehouse.IndexInfo, len(tables))
	for _, t := range tables {
		infos, err := m.adapter.ListIndexes(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("listing indexes on %s: %w", t, err)
		}
		out[t] = infos
	}
	return out, nil
}

// Create issues CREATE INDEX for each definition. Indexes that already exist
// are skipped; a failed creation is logged and the pass continues.
func (m *Manager) Create(ctx context.Context, defs []Definition) (*Summary, error) {
	present, err := m.presentNames(ctx, defs)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, d := range defs {
		if present[d.Name] {
			m.logger.Debug("index already exists", "index", d.Name, "table", d.Table)
			summary.Skipped = append(summary.Skipped, d.Name)
			continue
		}
		m.logger.Info("creating index", "index", d.Name, "table", d.Table)
		if err := m.adapter.Exec(ctx, d.CreateSQL()); err != nil {
			m.logger.Error("index creation failed", "index", d.Name, "error", err)
			summary.Failures = append(summary.Failures, Failure{Name: d.Name, Err: err})
			continue
		}
		summary.Applied = append(summary.Applied, d.Name)
	}
	return summary, nil
}

// Drop removes managed indexes. With an exact name, only that index is
// dropped; with a pattern, every present managed index whose name starts
// with the pattern is dropped. Names outside the managed prefix are refused.
func (m *Manager) Drop(ctx context.Context, name, pattern string) (*Summary, error) {
	if name == "" && pattern == "" {
		return nil, fmt.Errorf("either an index name or a pattern is required")
	}

	var targets []Definition
	switch {
	case name != "":
		d, ok := findDefinition(name)
		if !ok {
			return nil, fmt.Errorf("index %q is not managed by this tool", name)
		}
		targets = []Definition{d}
	default:
		if !strings.HasPrefix(pattern, namePrefix) {
			return nil, fmt.Errorf("pattern %q must start with %q", pattern, namePrefix)
		}
		for _, d := range Definitions {
			if strings.HasPrefix(d.Name, pattern) {
				targets = append(targets, d)
			}
		}
	}

	present, err := m.presentNames(ctx, targets)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, d := range targets {
		if !present[d.Name] {
			summary.Skipped = append(summary.Skipped, d.Name)
			continue
		}
		m.logger.Info("dropping index", "index", d.Name, "table", d.Table)
		if err := m.adapter.Exec(ctx, d.DropSQL()); err != nil {
			m.logger.Error("index drop failed", "index", d.Name, "error", err)
			summary.Failures = append(summary.Failures, Failure{Name: d.Name, Err: err})
			continue
		}
		summary.Applied = append(summary.Applied, d.Name)
	}
	return summary, nil
}

// Report compares the managed definitions against the warehouse.
func (m *Manager) Report(ctx context.Context) ([]ReportRow, error) {
	present, err := m.presentNames(ctx, Definitions)
	if err != nil {
		return nil, err
	}

	rows := make([]ReportRow, 0, len(Definitions))
	for _, d := range Definitions {
		rows = append(rows, ReportRow{Definition: d, Present: present[d.Name]})
	}
	return rows, nil
}

// presentNames fetches the existing index names across the tables the given
// definitions touch.
func (m *Manager) presentNames(ctx context.Context, defs []Definition) (map[string]bool, error) {
	tables := make(map[string]bool)
	for _, d := range defs {
		tables[d.Table] = true
	}

	present := make(map[string]bool)
	for _, t := range sortedKeys(tables) {
		infos, err := m.adapter.ListIndexes(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("listing indexes on %s: %w", t, err)
		}
		for _, info := range infos {
			present[info.Name] = true
		}
	}
	return present, nil
}

func findDefinition(name string) (Definition, bool) {
	for _, d := range Definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

func managedTables() []string {
	seen := make(map[string]bool)
	for _, d := range Definitions {
		seen[d.Table] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
