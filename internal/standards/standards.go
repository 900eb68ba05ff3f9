// Package standards holds the wiring standards checklist shown to operators
// and summarized for the audit model.
package standards

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed standards.yaml
var defaultDocument []byte

// Category is one rule of the checklist
type Category struct {
	Title  string `yaml:"title"`
	Rule   string `yaml:"rule"`
	Impact string `yaml:"impact"`
	// Audit is the short phrase used in the audit description. Categories
	// without one are shown to operators but not sent to the model.
	Audit string `yaml:"audit"`
}

// Checklist is the full standards document
type Checklist struct {
	Title      string     `yaml:"title"`
	Summary    string     `yaml:"summary"`
	Categories []Category `yaml:"categories"`
}

// Default returns the built-in checklist
func Default() *Checklist {
	c, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("embedded standards are invalid: %v", err))
	}
	return c
}

// Load reads a checklist from path, or returns the built-in one when path
// is empty
func Load(path string) (*Checklist, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read standards file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML checklist
func Parse(data []byte) (*Checklist, error) {
	var c Checklist
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse standards: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("standards define no categories")
	}
	for i, cat := range c.Categories {
		if cat.Title == "" || cat.Rule == "" {
			return nil, fmt.Errorf("standards category %d needs a title and a rule", i+1)
		}
	}
	return &c, nil
}

// AuditDescription is the free-text standards summary sent with every
// audit, e.g. "Routing consistency, bundling, label placement, bend radius, clearance."
func (c *Checklist) AuditDescription() string {
	var parts []string
	for _, cat := range c.Categories {
		if cat.Audit != "" {
			parts = append(parts, cat.Audit)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	desc := strings.Join(parts, ", ")
	return strings.ToUpper(desc[:1]) + desc[1:] + "."
}
