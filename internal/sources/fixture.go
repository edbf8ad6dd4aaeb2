package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is a YAML snapshot of source tables used to seed a store.
//
//	tables:
//	  budget_lines:
//	    - {id: 1, project_id: 42, cost_code_id: "01-100", original_amount: 10000}
type Fixture struct {
	Tables map[string][]Record `yaml:"tables"`
}

// ParseFixture decodes a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if f.Tables == nil {
		f.Tables = map[string][]Record{}
	}
	return &f, nil
}

// LoadFixture reads and decodes a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return ParseFixture(data)
}

// Rows returns the number of rows across all tables.
func (f *Fixture) Rows() int {
	n := 0
	for _, rows := range f.Tables {
		n += len(rows)
	}
	return n
}
