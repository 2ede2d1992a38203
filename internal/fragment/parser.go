// Package fragment provides SQL fragment file parsing with pragma extraction.
// Fragments are reusable CTE bodies stored as .sql files; pragmas declare
// dependencies between them and frontmatter carries documentation metadata.
package fragment

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fragment holds a parsed SQL fragment.
type Fragment struct {
	// Name is the fragment name (filename without extension)
	Name string
	// FilePath is the path to the source .sql file
	FilePath string
	// Description comes from frontmatter, if present
	Description string
	// Owner comes from frontmatter, if present
	Owner string
	// Tags come from frontmatter, if present
	Tags []string
	// DependsOn lists fragments this one references, from @depends_on pragmas
	DependsOn []string
	// SQL is the fragment body with pragmas and frontmatter stripped
	SQL string
}

// Frontmatter is the YAML metadata block at the top of a fragment file,
// delimited by /*--- and ---*/.
type Frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Owner       string   `yaml:"owner"`
	Tags        []string `yaml:"tags"`
}

// Pragma patterns
var (
	// -- @depends_on(date_range, payment_base)
	dependsPattern = regexp.MustCompile(`--\s*@depends_on\s*\(\s*([^)]*)\s*\)`)
	// /*--- yaml ---*/ frontmatter block
	frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)
)

// ParseFile parses a single SQL fragment file.
func ParseFile(filePath string) (*Fragment, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read fragment: %w", err)
	}
	return Parse(filePath, string(content))
}

// Parse parses SQL fragment content.
func Parse(filePath string, content string) (*Fragment, error) {
	frag := &Fragment{
		FilePath: filePath,
		Name:     strings.TrimSuffix(filepath.Base(filePath), ".sql"),
	}

	// Extract frontmatter before line scanning so multi-line YAML survives
	if matches := frontmatterPattern.FindStringSubmatch(content); len(matches) > 1 {
		var fm Frontmatter
		if err := yaml.Unmarshal([]byte(matches[1]), &fm); err != nil {
			return nil, fmt.Errorf("invalid frontmatter in %s: %w", frag.Name, err)
		}
		if fm.Name != "" {
			frag.Name = fm.Name
		}
		frag.Description = fm.Description
		frag.Owner = fm.Owner
		frag.Tags = fm.Tags
		content = frontmatterPattern.ReplaceAllString(content, "")
	}

	var sqlLines []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()

		if matches := dependsPattern.FindStringSubmatch(line); len(matches) > 1 {
			for _, dep := range strings.Split(matches[1], ",") {
				dep = strings.TrimSpace(dep)
				if dep != "" && !containsString(frag.DependsOn, dep) {
					frag.DependsOn = append(frag.DependsOn, dep)
				}
			}
			continue
		}

		sqlLines = append(sqlLines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning fragment: %w", err)
	}

	frag.SQL = strings.TrimSpace(strings.Join(sqlLines, "\n"))
	if frag.SQL == "" {
		return nil, fmt.Errorf("fragment %s has no SQL body", frag.Name)
	}

	return frag, nil
}

// ScanDir recursively scans a directory for .sql fragment files and parses
// them, keyed by fragment name. Duplicate names are an error.
func ScanDir(dir string) (map[string]*Fragment, error) {
	fragments := make(map[string]*Fragment)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".sql") {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}

		frag, err := ParseFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if existing, ok := fragments[frag.Name]; ok {
			return fmt.Errorf("duplicate fragment name %q (%s and %s)", frag.Name, existing.FilePath, path)
		}
		fragments[frag.Name] = frag
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan fragment directory: %w", err)
	}

	return fragments, nil
}

// ScanFS parses every .sql fragment under root in an fs.FS, keyed by
// fragment name. Used for fragment sets embedded in the binary.
func ScanFS(fsys fs.FS, root string) (map[string]*Fragment, error) {
	fragments := make(map[string]*Fragment)

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".sql") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read fragment: %w", err)
		}
		frag, err := Parse(path, string(content))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if existing, ok := fragments[frag.Name]; ok {
			return fmt.Errorf("duplicate fragment name %q (%s and %s)", frag.Name, existing.FilePath, path)
		}
		fragments[frag.Name] = frag
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan fragment filesystem: %w", err)
	}

	return fragments, nil
}

func containsString(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
