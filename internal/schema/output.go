package schema

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a table artifact from a YAML file.
func LoadYAML(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	t := &Table{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing artifact: %w", err)
	}
	return t, nil
}

// ToYAML returns the table as YAML. The encoding depends only on the
// table's contents, so an unchanged table always yields the same bytes.
func (t *Table) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("marshaling artifact: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// Summary returns a one-line description of the table.
func (t *Table) Summary() string {
	var pk, auto, directives int
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk++
		}
		if c.AutoIncrement {
			auto++
		}
		if c.InsertDirective != "" || c.UpdateDirective != "" {
			directives++
		}
	}
	return fmt.Sprintf("%s: %d columns, %d primary key, %d auto-increment, %d with directives",
		t.Name, len(t.Columns), pk, auto, directives)
}
