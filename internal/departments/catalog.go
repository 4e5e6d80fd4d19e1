// Package departments defines the ordered catalog of production departments
// a project moves through. The ordinal number defines evaluation order; a
// department can only be evaluated once its predecessor has completed above
// threshold.
package departments

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed departments.yaml
var defaultCatalog []byte

// Department is one sequential unit of the readiness workflow.
type Department struct {
	ID          string `yaml:"id" json:"id"`
	Number      int    `yaml:"number" json:"number"`
	Slug        string `yaml:"slug" json:"slug"`
	Name        string `yaml:"name" json:"name"`
	Threshold   int    `yaml:"threshold" json:"threshold"`
	Description string `yaml:"description" json:"description"`
}

// Catalog is the validated, ordered set of departments.
type Catalog struct {
	byNumber map[int]Department
	ordered  []Department
}

type catalogFile struct {
	Departments []Department `yaml:"departments"`
}

// Load reads the catalog from the given YAML file, falling back to the
// embedded default catalog when path is empty.
func Load(path string) (*Catalog, error) {
	raw := defaultCatalog
	if path != "" {
		fileRaw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read departments file: %w", err)
		}
		raw = fileRaw
	}

	var parsed catalogFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse departments file: %w", err)
	}

	return New(parsed.Departments)
}

// New builds and validates a catalog. Ordinals must be contiguous starting
// at 1; gaps or duplicates are a configuration error.
func New(depts []Department) (*Catalog, error) {
	if len(depts) == 0 {
		return nil, fmt.Errorf("department catalog is empty")
	}

	ordered := make([]Department, len(depts))
	copy(ordered, depts)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	byNumber := make(map[int]Department, len(ordered))
	for i, d := range ordered {
		if d.Number != i+1 {
			return nil, fmt.Errorf("department ordinals must be contiguous starting at 1: got %d at position %d", d.Number, i+1)
		}
		if d.Slug == "" {
			return nil, fmt.Errorf("department %d has no slug", d.Number)
		}
		if d.Threshold < 0 || d.Threshold > 100 {
			return nil, fmt.Errorf("department %q threshold %d out of range 0-100", d.Slug, d.Threshold)
		}
		byNumber[d.Number] = d
	}

	return &Catalog{byNumber: byNumber, ordered: ordered}, nil
}

// ByNumber looks up a department by its ordinal.
func (c *Catalog) ByNumber(number int) (Department, bool) {
	d, ok := c.byNumber[number]
	return d, ok
}

// All returns the departments in evaluation order.
func (c *Catalog) All() []Department {
	out := make([]Department, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Count returns the total number of departments.
func (c *Catalog) Count() int {
	return len(c.ordered)
}
