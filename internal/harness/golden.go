package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/predsql/internal/ir"
)

// Snapshot captures the outcome of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	SQL          string
	Params       map[string]ir.IRValue
	ErrorCode    string
	Matches      []any
}

// NewSnapshot builds the snapshot of result for the named scenario.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		ScenarioName: name,
		SQL:          result.SQL,
		ErrorCode:    result.ErrorCode,
		Matches:      result.Matches,
	}
	if len(result.Params) > 0 {
		s.Params = make(map[string]ir.IRValue, len(result.Params))
		for _, p := range result.Params {
			s.Params[p.Name] = p.Value
		}
	}
	return s
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s Snapshot) toCanonicalMap() map[string]any {
	result := map[string]any{
		"scenario_name": s.ScenarioName,
	}
	if s.SQL != "" {
		result["sql"] = s.SQL
	}
	if s.Params != nil {
		result["params"] = s.Params
	}
	if s.ErrorCode != "" {
		result["error_code"] = s.ErrorCode
	}
	if s.Matches != nil {
		result["matches"] = s.Matches
	}
	return result
}

// MarshalCanonical serializes the snapshot as canonical JSON.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
