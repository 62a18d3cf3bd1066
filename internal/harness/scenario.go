package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/predsql/internal/dialect"
)

// Scenario defines a conformance test scenario.
// A scenario compiles one predicate and asserts on the emitted statement,
// the compile error, or the rows the statement selects.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Predicate is the predicate source: a func literal or a bare
	// expression over x.
	Predicate string `yaml:"predicate"`

	// Captures are the captured variables the predicate refers to.
	Captures map[string]any `yaml:"captures,omitempty"`

	// Schema is the path to a CUE or YAML entity schema.
	// Paths are relative to the scenario file location.
	Schema string `yaml:"schema,omitempty"`

	// Entity names the schema entity to compile against. May be empty when
	// the schema declares a single entity.
	Entity string `yaml:"entity,omitempty"`

	// Fields lists field names inline, for scenarios without a schema.
	// Each field's column equals its name.
	Fields []string `yaml:"fields,omitempty"`

	// Dialect selects the SQL dialect. Empty means plain.
	Dialect string `yaml:"dialect,omitempty"`

	// Data seeds a table the statement is executed against.
	Data *Dataset `yaml:"data,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// Dataset is a table of rows for rows_match assertions.
type Dataset struct {
	// Table is the table name. Defaults to the entity's table.
	Table string `yaml:"table,omitempty"`

	// Key is the column identifying rows in rows_match assertions.
	Key string `yaml:"key"`

	// Rows maps column names to values. Missing columns are NULL.
	Rows []map[string]any `yaml:"rows"`
}

// Columns returns every column used by any row, sorted.
func (d *Dataset) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range d.Rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// Assertion validates the scenario outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "sql_equals": emitted SQL equals SQL
	// - "param_equals": parameter Param is bound to Value
	// - "param_count": exactly Count parameters are bound
	// - "error_kind": compilation fails with Code
	// - "rows_match": the statement selects exactly Keys
	Type string `yaml:"type"`

	// SQL is the expected WHERE clause (used by sql_equals).
	SQL string `yaml:"sql,omitempty"`

	// Param is the parameter name (used by param_equals).
	Param string `yaml:"param,omitempty"`

	// Value is the expected parameter value (used by param_equals).
	// A YAML sequence matches an array parameter.
	Value any `yaml:"value,omitempty"`

	// Count is the expected number of parameters (used by param_count).
	Count int `yaml:"count,omitempty"`

	// Code is the expected error code (used by error_kind).
	Code string `yaml:"code,omitempty"`

	// Keys are the expected key column values (used by rows_match).
	Keys []any `yaml:"keys,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLEquals   = "sql_equals"
	AssertParamEquals = "param_equals"
	AssertParamCount  = "param_count"
	AssertErrorKind   = "error_kind"
	AssertRowsMatch   = "rows_match"
)

// LoadScenario reads and parses a scenario YAML file.
// The schema path is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Predicate == "" {
		return fmt.Errorf("predicate is required")
	}

	if s.Schema == "" && len(s.Fields) == 0 {
		return fmt.Errorf("either schema or fields is required")
	}
	if s.Schema != "" && len(s.Fields) > 0 {
		return fmt.Errorf("schema and fields are mutually exclusive")
	}
	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema)
		}
	}

	if _, err := dialect.Lookup(s.Dialect); err != nil {
		return err
	}

	if s.Data != nil {
		if s.Data.Key == "" {
			return fmt.Errorf("data: key is required")
		}
		if !validIdentifier.MatchString(s.Data.Key) {
			return fmt.Errorf("data: invalid key column %q", s.Data.Key)
		}
		if s.Data.Table != "" && !validIdentifier.MatchString(s.Data.Table) {
			return fmt.Errorf("data: invalid table name %q", s.Data.Table)
		}
		for _, col := range s.Data.Columns() {
			if !validIdentifier.MatchString(col) {
				return fmt.Errorf("data: invalid column name %q", col)
			}
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, s *Scenario) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSQLEquals:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for sql_equals", index)
		}
	case AssertParamEquals:
		if a.Param == "" {
			return fmt.Errorf("assertions[%d]: param is required for param_equals", index)
		}
	case AssertParamCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for param_count", index)
		}
	case AssertErrorKind:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_kind", index)
		}
	case AssertRowsMatch:
		if s.Data == nil {
			return fmt.Errorf("assertions[%d]: rows_match requires data", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
