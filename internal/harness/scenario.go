package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one end-to-end query check.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is a SQL script that creates and seeds the tables.
	Fixture string `yaml:"fixture"`

	// Schema is a YAML or CUE entity file.
	Schema string `yaml:"schema"`

	// Query is a query definition file.
	Query string `yaml:"query"`

	// StrictParams turns conflicting join parameters into errors.
	StrictParams bool `yaml:"strict_params,omitempty"`

	// Assertions validate the materialized tree.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the result of a scenario.
type Assertion struct {
	// Type is one of root_count, path_equals, path_len, sql_contains.
	Type string `yaml:"type"`

	// Path addresses a value in the tree (path_equals, path_len).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value (path_equals).
	Value any `yaml:"value,omitempty"`

	// Count is the expected length (root_count, path_len).
	Count int `yaml:"count,omitempty"`

	// Text is the expected SQL fragment (sql_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertRootCount   = "root_count"
	AssertPathEquals  = "path_equals"
	AssertPathLen     = "path_len"
	AssertSQLContains = "sql_contains"
)

// LoadScenario reads a scenario file and resolves its paths relative to the
// file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario file, resolving relative fixture,
// schema and query paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for _, p := range []*string{&scenario.Fixture, &scenario.Schema, &scenario.Query} {
		if *p != "" && !filepath.IsAbs(*p) && basePath != "" {
			*p = filepath.Join(basePath, *p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if s.Query == "" {
		return fmt.Errorf("query is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range []string{s.Fixture, s.Schema, s.Query} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRootCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for root_count", index)
		}
	case AssertPathEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for path_equals", index)
		}
	case AssertPathLen:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for path_len", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for path_len", index)
		}
	case AssertSQLContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for sql_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
