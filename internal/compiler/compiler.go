// Package compiler turns Go predicates into parameterized SQL WHERE
// clauses.
//
// Compilation runs four stages, each feeding the next:
//
//	source -> extract.Parse -> extract.Extract -> predicate.Normalize -> querysql.Emit
//
// Any failure aborts the whole compilation with a *predicate.CompileError;
// no partial SQL is ever returned. A Compiler holds only configuration, so
// one instance may compile concurrently from many goroutines.
package compiler

import (
	"fmt"
	"log/slog"

	"github.com/roach88/predsql/internal/dialect"
	"github.com/roach88/predsql/internal/extract"
	"github.com/roach88/predsql/internal/fieldmeta"
	"github.com/roach88/predsql/internal/predicate"
	"github.com/roach88/predsql/internal/querysql"
)

// Compiler compiles predicates for one SQL dialect.
type Compiler struct {
	dialect dialect.Dialect
	logger  *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithDialect sets the target dialect.
//
// Default: dialect.Plain (bare identifiers, @-prefixed parameters).
func WithDialect(d dialect.Dialect) Option {
	return func(c *Compiler) {
		c.dialect = d
	}
}

// WithLogger sets the logger used for per-compile debug lines.
// A nil logger discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		dialect: dialect.Plain,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Dialect returns the target dialect.
func (c *Compiler) Dialect() dialect.Dialect {
	return c.dialect
}

// Compile parses src, resolves captured values from env and validates
// field references against fields.
func (c *Compiler) Compile(src string, env map[string]any, fields fieldmeta.Provider) (querysql.Statement, error) {
	l, err := extract.Parse(src, env)
	if err != nil {
		c.logger.Debug("predicate rejected", "predicate", src, "error", err)
		return querysql.Statement{}, err
	}
	return c.CompileLambda(l, fields)
}

// CompileLambda compiles an already parsed predicate.
func (c *Compiler) CompileLambda(l *extract.Lambda, fields fieldmeta.Provider) (querysql.Statement, error) {
	if fields == nil {
		return querysql.Statement{}, fmt.Errorf("compile: no field metadata")
	}

	node, err := extract.Extract(l, fields)
	if err != nil {
		c.logger.Debug("predicate rejected", "predicate", l.Src, "error", err)
		return querysql.Statement{}, err
	}

	stmt, err := c.emit(node)
	if err != nil {
		return querysql.Statement{}, err
	}

	c.logger.Debug("predicate compiled",
		"predicate", l.Src,
		"dialect", c.dialect.Name,
		"sql", stmt.SQL,
		"params", len(stmt.Params))
	return stmt, nil
}

// CompileNode compiles a programmatically built predicate tree. The tree
// is validated first, since it did not come through the extractor.
func (c *Compiler) CompileNode(n predicate.Node) (querysql.Statement, error) {
	if result := predicate.Validate(n); !result.IsValid {
		c.logger.Debug("predicate tree rejected", "problems", result.Problems)
		return querysql.Statement{}, result.Err
	}
	return c.emit(n)
}

func (c *Compiler) emit(n predicate.Node) (querysql.Statement, error) {
	stmt, err := querysql.NewEmitter(c.dialect).Emit(predicate.Normalize(n))
	if err != nil {
		return querysql.Statement{}, fmt.Errorf("emit: %w", err)
	}
	return stmt, nil
}

// For compiles src against the fields of struct type T, reflected once and
// cached in fieldmeta.DefaultRegistry.
func For[T any](c *Compiler, src string, env map[string]any) (querysql.Statement, error) {
	entity, err := fieldmeta.For[T]()
	if err != nil {
		return querysql.Statement{}, fmt.Errorf("compile: %w", err)
	}
	return c.Compile(src, env, entity)
}

// Compile compiles src with a default Compiler.
func Compile(src string, env map[string]any, fields fieldmeta.Provider) (querysql.Statement, error) {
	return New().Compile(src, env, fields)
}
