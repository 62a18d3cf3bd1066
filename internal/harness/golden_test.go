package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/predsql/internal/ir"
	"github.com/roach88/predsql/internal/querysql"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"or_of_and", "contains_or_range", "unknown_field"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestSnapshot_MarshalCanonical(t *testing.T) {
	result := NewResult()
	result.SQL = "b = @b_p0 AND a IN @a_p1"
	result.Params = []querysql.Param{
		{Name: "b_p0", Value: ir.IRString("<&>")},
		{Name: "a_p1", Value: ir.IRArray{ir.IRInt(1), ir.IRNull{}}},
	}
	result.Matches = []any{int64(7)}

	data, err := NewSnapshot("s", result).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"matches":[7],"params":{"a_p1":[1,null],"b_p0":"<&>"},"scenario_name":"s","sql":"b = @b_p0 AND a IN @a_p1"}`, string(data))
}

func TestSnapshot_OmitsEmptyParts(t *testing.T) {
	result := NewResult()
	result.ErrorCode = "UNSUPPORTED_NESTING"

	data, err := NewSnapshot("deep", result).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"error_code":"UNSUPPORTED_NESTING","scenario_name":"deep"}`, string(data))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/contains_or_range.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := NewSnapshot(scenario.Name, first).MarshalCanonical()
	require.NoError(t, err)
	b, err := NewSnapshot(scenario.Name, second).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
