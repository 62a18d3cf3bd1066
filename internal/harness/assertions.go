package harness

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/predsql/internal/ir"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// Dataset identifiers are interpolated into DDL, so nothing else is accepted.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Emitted SQL for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "\nSQL: %s\n", e.SQL)
	}

	return buf.String()
}

// assertSQLEquals checks the emitted SQL text.
func assertSQLEquals(result *Result, assertion Assertion) error {
	if result.ErrorCode != "" {
		return &AssertionError{
			Type:     AssertSQLEquals,
			Expected: assertion.SQL,
			Actual:   "compile error: " + result.Error,
		}
	}
	if result.SQL != assertion.SQL {
		return &AssertionError{
			Type:     AssertSQLEquals,
			Expected: assertion.SQL,
			Actual:   result.SQL,
		}
	}
	return nil
}

// assertParamEquals checks one bound parameter. Values are compared by
// their canonical JSON, so a YAML 3 matches an int parameter and a YAML
// string matches a uuid parameter.
func assertParamEquals(result *Result, assertion Assertion) error {
	actual, ok := result.Statement().Lookup(assertion.Param)
	if !ok {
		return &AssertionError{
			Type:     AssertParamEquals,
			Expected: fmt.Sprintf("parameter %s = %v", assertion.Param, assertion.Value),
			Actual:   fmt.Sprintf("no such parameter (have %s)", strings.Join(result.Statement().Names(), ", ")),
			SQL:      result.SQL,
		}
	}

	expected, err := ir.FromGo(assertion.Value)
	if err != nil {
		return fmt.Errorf("param_equals %s: %w", assertion.Param, err)
	}
	if !canonicalEqual(expected, actual) {
		return &AssertionError{
			Type:     AssertParamEquals,
			Expected: fmt.Sprintf("parameter %s = %s", assertion.Param, canonicalString(expected)),
			Actual:   fmt.Sprintf("parameter %s = %s", assertion.Param, canonicalString(actual)),
			SQL:      result.SQL,
		}
	}
	return nil
}

// assertParamCount checks how many parameters are bound.
func assertParamCount(result *Result, assertion Assertion) error {
	if len(result.Params) != assertion.Count {
		return &AssertionError{
			Type:     AssertParamCount,
			Expected: fmt.Sprintf("%d parameters", assertion.Count),
			Actual:   fmt.Sprintf("%d parameters (%s)", len(result.Params), strings.Join(result.Statement().Names(), ", ")),
			SQL:      result.SQL,
		}
	}
	return nil
}

// assertErrorKind checks that compilation failed with the expected code.
func assertErrorKind(result *Result, assertion Assertion) error {
	if result.ErrorCode == assertion.Code {
		return nil
	}
	actual := "compiled successfully"
	if result.ErrorCode != "" {
		actual = result.Error
	}
	return &AssertionError{
		Type:     AssertErrorKind,
		Expected: assertion.Code,
		Actual:   actual,
		SQL:      result.SQL,
	}
}

// assertRowsMatch checks the key column of the selected rows, in order.
func assertRowsMatch(result *Result, assertion Assertion) error {
	if result.ErrorCode != "" {
		return &AssertionError{
			Type:     AssertRowsMatch,
			Expected: fmt.Sprintf("rows %v", assertion.Keys),
			Actual:   "compile error: " + result.Error,
		}
	}

	match := len(result.Matches) == len(assertion.Keys)
	for i := 0; match && i < len(assertion.Keys); i++ {
		match = cellEqual(assertion.Keys[i], result.Matches[i])
	}
	if !match {
		return &AssertionError{
			Type:     AssertRowsMatch,
			Expected: fmt.Sprintf("rows %v", assertion.Keys),
			Actual:   fmt.Sprintf("rows %v", result.Matches),
			SQL:      result.SQL,
		}
	}
	return nil
}

// cellEqual compares an expected YAML value with a value read back from
// SQLite. Handles type coercion: SQLite returns int64 for integers and
// stores booleans as 0/1.
func cellEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case int:
		if actualInt, ok := actual.(int64); ok {
			return int64(exp) == actualInt
		}
	case bool:
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
	case float64:
		if actualInt, ok := actual.(int64); ok {
			return exp == float64(actualInt)
		}
	}

	ev, err := ir.FromGo(expected)
	if err != nil {
		return false
	}
	av, err := ir.FromGo(actual)
	if err != nil {
		return false
	}
	return canonicalEqual(ev, av)
}

func canonicalEqual(a, b ir.IRValue) bool {
	ab, errA := ir.MarshalCanonical(a)
	bb, errB := ir.MarshalCanonical(b)
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}

func canonicalString(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSQLEquals:
			err = assertSQLEquals(result, assertion)
		case AssertParamEquals:
			err = assertParamEquals(result, assertion)
		case AssertParamCount:
			err = assertParamCount(result, assertion)
		case AssertErrorKind:
			err = assertErrorKind(result, assertion)
		case AssertRowsMatch:
			err = assertRowsMatch(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
