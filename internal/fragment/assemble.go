package fragment

// assemble.go - CTE assembly in dependency order with date parameter substitution

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BenjaminRains/mdc-analytics/internal/dag"
)

// DateRange holds the inclusive report window substituted into fragments.
type DateRange struct {
	Start string
	End   string
}

// dateFormat is the only accepted date parameter layout.
const dateFormat = "2006-01-02"

// NewDateRange validates and returns a date range. Both dates must be
// YYYY-MM-DD and start must not be after end.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(dateFormat, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", start)
	}
	e, err := time.Parse(dateFormat, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", end)
	}
	if s.After(e) {
		return DateRange{}, fmt.Errorf("start date %s is after end date %s", start, end)
	}
	return DateRange{Start: start, End: end}, nil
}

// placeholderPattern matches {{name}} substitution points.
var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// substitute replaces {{start_date}} and {{end_date}} placeholders with
// quoted date literals. Unknown placeholders are an error so typos in
// fragment files fail loudly instead of reaching the server.
func substitute(sql string, dates DateRange) (string, error) {
	var unknown []string
	out := placeholderPattern.ReplaceAllStringFunc(sql, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		switch name {
		case "start_date":
			return "'" + dates.Start + "'"
		case "end_date":
			return "'" + dates.End + "'"
		default:
			unknown = append(unknown, name)
			return match
		}
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("unknown placeholder(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// BuildGraph constructs the dependency graph over a fragment set. Every
// dependency named in a pragma must resolve to a known fragment.
func BuildGraph(fragments map[string]*Fragment) (*dag.Graph, error) {
	g := dag.NewGraph()
	for name := range fragments {
		g.AddNode(name)
	}
	for name, frag := range fragments {
		for _, dep := range frag.DependsOn {
			if !g.HasNode(dep) {
				return nil, fmt.Errorf("fragment %q depends on unknown fragment %q", name, dep)
			}
			if err := g.AddEdge(dep, name); err != nil {
				return nil, err
			}
		}
	}
	if hasCycle, path := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("dependency cycle detected: %s", strings.Join(path, " -> "))
	}
	return g, nil
}

// Assemble builds a complete statement for the named final fragment: a WITH
// clause containing each upstream fragment in dependency order, followed by
// the final fragment's SELECT. Date placeholders are substituted throughout.
// Output is deterministic for identical inputs.
func Assemble(fragments map[string]*Fragment, finalName string, dates DateRange) (string, error) {
	final, ok := fragments[finalName]
	if !ok {
		return "", fmt.Errorf("unknown fragment %q", finalName)
	}

	g, err := BuildGraph(fragments)
	if err != nil {
		return "", err
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		return "", err
	}

	// Collect the final fragment's transitive dependencies, preserving
	// topological order.
	needed := upstreamSet(fragments, finalName)
	var ctes []string
	for _, name := range sorted {
		if name == finalName || !needed[name] {
			continue
		}
		body, err := substitute(fragments[name].SQL, dates)
		if err != nil {
			return "", fmt.Errorf("fragment %s: %w", name, err)
		}
		ctes = append(ctes, fmt.Sprintf("%s AS (\n%s\n)", name, indent(body)))
	}

	finalSQL, err := substitute(final.SQL, dates)
	if err != nil {
		return "", fmt.Errorf("fragment %s: %w", finalName, err)
	}

	if len(ctes) == 0 {
		return finalSQL, nil
	}
	return "WITH " + strings.Join(ctes, ",\n") + "\n" + finalSQL, nil
}

// upstreamSet returns the transitive dependency closure of a fragment.
func upstreamSet(fragments map[string]*Fragment, name string) map[string]bool {
	seen := make(map[string]bool)
	var visit func(n string)
	visit = func(n string) {
		frag, ok := fragments[n]
		if !ok {
			return
		}
		for _, dep := range frag.DependsOn {
			if !seen[dep] {
				seen[dep] = true
				visit(dep)
			}
		}
	}
	visit(name)
	return seen
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "    " + line
		}
	}
	return strings.Join(lines, "\n")
}
