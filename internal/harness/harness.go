package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/predsql/internal/compiler"
	"github.com/roach88/predsql/internal/dialect"
	"github.com/roach88/predsql/internal/fieldmeta"
	"github.com/roach88/predsql/internal/predicate"
	"github.com/roach88/predsql/internal/querysql"
	"github.com/roach88/predsql/internal/store"
)

// Harness is the test execution engine.
// It compiles each scenario's predicate and evaluates its assertions.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for per-scenario lines. The logger is also
// handed to the compiler.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	return h
}

// Run executes a test scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a test scenario and returns the result.
//
// A predicate the compiler rejects is not a harness error: the error code
// is recorded in the result for error_kind assertions. Errors are returned
// only when the scenario itself cannot be set up (unreadable schema, unknown
// entity, dataset that cannot be loaded).
//
// Execution flow:
// 1. Resolve field metadata from the schema or inline fields
// 2. Compile the predicate for the scenario dialect
// 3. Execute the statement over the dataset, if any, in a fresh in-memory database
// 4. Evaluate assertions
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	entity, err := resolveEntity(scenario)
	if err != nil {
		return nil, err
	}
	d, err := dialect.Lookup(scenario.Dialect)
	if err != nil {
		return nil, err
	}

	c := compiler.New(compiler.WithDialect(d), compiler.WithLogger(h.logger))
	result := NewResult()

	stmt, err := c.Compile(scenario.Predicate, scenario.Captures, entity)
	if err != nil {
		if predicate.CodeOf(err) == "" {
			return nil, fmt.Errorf("compile %s: %w", scenario.Name, err)
		}
		result.ErrorCode = string(predicate.CodeOf(err))
		result.Error = err.Error()
	} else {
		result.SQL = stmt.SQL
		result.Params = stmt.Params

		if scenario.Data != nil {
			matches, err := h.execute(ctx, scenario.Data, entity, d, stmt)
			if err != nil {
				return nil, fmt.Errorf("execute %s: %w", scenario.Name, err)
			}
			result.Matches = matches
		}
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"sql", result.SQL,
		"error_code", result.ErrorCode,
	)
	return result, nil
}

// resolveEntity loads the field metadata a scenario compiles against.
func resolveEntity(scenario *Scenario) (*fieldmeta.Entity, error) {
	if len(scenario.Fields) > 0 {
		return fieldmeta.Names(scenario.Fields...), nil
	}
	schema, err := fieldmeta.Load(scenario.Schema)
	if err != nil {
		return nil, err
	}
	return schema.Entity(scenario.Entity)
}

// execute seeds a fresh in-memory table with data and returns the key
// column of every row stmt selects, ordered by key.
func (h *Harness) execute(ctx context.Context, data *Dataset, entity *fieldmeta.Entity, d dialect.Dialect, stmt querysql.Statement) ([]any, error) {
	table := data.Table
	if table == "" {
		table = entity.TableName()
	}
	if !validIdentifier.MatchString(table) {
		return nil, fmt.Errorf("data: invalid table name %q", table)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := seed(ctx, st, table, data); err != nil {
		return nil, err
	}

	rows, err := st.Select(ctx, store.Query{
		Table:   table,
		Columns: []string{data.Key},
		Where:   store.ExpandArrays(stmt, d),
		OrderBy: []string{data.Key},
	})
	if err != nil {
		return nil, err
	}

	keys := make([]any, len(rows))
	for i, row := range rows {
		keys[i] = row[data.Key]
	}
	return keys, nil
}

// seed creates table with untyped columns and inserts every row.
func seed(ctx context.Context, st *store.Store, table string, data *Dataset) error {
	d := st.Dialect()
	cols := data.Columns()
	if !slices.Contains(cols, data.Key) {
		cols = append(cols, data.Key)
	}

	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = d.QuoteIdent(col)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", d.QuoteIdent(table), strings.Join(quoted, ", "))
	if err := st.Exec(ctx, ddl); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.QuoteIdent(table), strings.Join(quoted, ", "), placeholders)
	for i, row := range data.Rows {
		args := make([]any, len(cols))
		for j, col := range cols {
			args[j] = row[col]
		}
		if err := st.Exec(ctx, insert, args...); err != nil {
			return fmt.Errorf("data row %d: %w", i, err)
		}
	}
	return nil
}
