package harness

import (
	"github.com/roach88/predsql/internal/querysql"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates every assertion held.
	Pass bool `json:"pass"`

	// SQL is the emitted WHERE clause. Empty when compilation failed.
	SQL string `json:"sql,omitempty"`

	// Params are the bound parameters in emission order.
	Params []querysql.Param `json:"params,omitempty"`

	// ErrorCode is the compile error code when compilation failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Error is the full compile error message.
	Error string `json:"error,omitempty"`

	// Matches holds the key column of every selected row, in key order.
	// Nil when the scenario has no data.
	Matches []any `json:"matches,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Statement returns the compiled statement.
func (r *Result) Statement() querysql.Statement {
	return querysql.Statement{SQL: r.SQL, Params: r.Params}
}
