package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/predsql/internal/compiler"
	"github.com/roach88/predsql/internal/dialect"
	"github.com/roach88/predsql/internal/fieldmeta"
	"github.com/roach88/predsql/internal/ir"
	"github.com/roach88/predsql/internal/predicate"
	"github.com/roach88/predsql/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Captures string   // captured variables as JSON, or @file
	Fields   []string // inline field names when no schema is given
}

// CompileOutput is the result of a successful compilation.
type CompileOutput struct {
	SQL     string        `json:"sql"`
	Params  []ParamOutput `json:"params"`
	Dialect string        `json:"dialect"`
}

// ParamOutput is one bound parameter. Value is canonical JSON.
type ParamOutput struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <predicate>",
		Short: "Compile a predicate to a parameterized WHERE clause",
		Long: `Compile a Go predicate to a parameterized SQL WHERE clause.

The predicate is a func literal or a bare boolean expression over x:

  predsql compile 'x.Account == "System" || slices.Contains(ids, x.Id)' \
      --fields schema.cue --entity User --captures '{"ids": [1, 2]}'

Field metadata comes from a CUE or YAML schema (--fields, --entity) or
from inline names (--field Id --field Account).

Exit codes:
  0 - Compiled
  1 - Predicate rejected (unknown field, unsupported shape, ...)
  2 - Command error (unreadable schema, invalid captures, ...)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	addPredicateFlags(cmd, &opts.Captures, &opts.Fields)
	cmd.Flags().String("dialect", "plain", fmt.Sprintf("SQL dialect (%v)", dialect.Names()))

	return cmd
}

// addPredicateFlags registers the flags shared by compile and query.
func addPredicateFlags(cmd *cobra.Command, captures *string, fields *[]string) {
	cmd.Flags().String("fields", "", "entity schema file (.cue, .yaml)")
	cmd.Flags().String("entity", "", "schema entity (optional when the schema declares one)")
	cmd.Flags().StringVar(captures, "captures", "", "captured variables as a JSON object, or @file.json")
	cmd.Flags().StringSliceVar(fields, "field", nil, "inline field name (repeatable), instead of --fields")
}

func runCompile(opts *CompileOptions, src string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	d, err := dialect.Lookup(opts.Config.Dialect)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	fields, env, failure := loadInputs(opts.RootOptions, formatter, opts.Captures, opts.Fields)
	if failure != nil {
		return failure
	}

	c := compiler.New(compiler.WithDialect(d), compiler.WithLogger(opts.logger()))
	stmt, err := c.Compile(src, env, fields)
	if err != nil {
		return compileFailure(formatter, err)
	}

	out, err := newCompileOutput(stmt, d)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	return outputCompileSuccess(formatter, out)
}

// loadInputs resolves field metadata and captures, reporting failures
// through formatter.
func loadInputs(opts *RootOptions, formatter *OutputFormatter, captures string, inline []string) (*fieldmeta.Entity, map[string]any, *ExitError) {
	fields, err := resolveFields(opts.Config.Fields, opts.Config.Entity, inline)
	if err != nil {
		code := ErrCodeSchema
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return nil, nil, formatter.Fail(ExitCommandError, code, err.Error(), nil)
	}
	formatter.VerboseLog("Compiling against %d field(s)", len(fields.Fields))

	env, err := ParseCaptures(captures)
	if err != nil {
		return nil, nil, formatter.Fail(ExitCommandError, ErrCodeCaptures, err.Error(), nil)
	}
	return fields, env, nil
}

// resolveFields loads the entity from schemaPath, or builds one from
// inline field names.
func resolveFields(schemaPath, entity string, inline []string) (*fieldmeta.Entity, error) {
	switch {
	case schemaPath != "" && len(inline) > 0:
		return nil, fmt.Errorf("--fields and --field are mutually exclusive")
	case len(inline) > 0:
		return fieldmeta.Names(inline...), nil
	case schemaPath == "":
		return nil, fmt.Errorf("field metadata is required: pass --fields <schema> or --field <name>")
	}

	schema, err := fieldmeta.Load(schemaPath)
	if err != nil {
		return nil, err
	}
	return schema.Entity(entity)
}

// compileFailure reports a rejected predicate. Rejections exit with
// ExitFailure; anything else is a command error.
func compileFailure(formatter *OutputFormatter, err error) error {
	var ce *predicate.CompileError
	if !errors.As(err, &ce) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	details := map[string]string{}
	if ce.Field != "" {
		details["field"] = ce.Field
	}
	if ce.Expr != "" {
		details["expr"] = ce.Expr
	}
	message := ce.Message
	if ce.Err != nil {
		message += ": " + ce.Err.Error()
	}
	if len(details) == 0 {
		return formatter.Fail(ExitFailure, string(ce.Code), message, nil)
	}
	return formatter.Fail(ExitFailure, string(ce.Code), message, details)
}

func newCompileOutput(stmt querysql.Statement, d dialect.Dialect) (CompileOutput, error) {
	out := CompileOutput{
		SQL:     stmt.SQL,
		Params:  make([]ParamOutput, len(stmt.Params)),
		Dialect: d.Name,
	}
	for i, p := range stmt.Params {
		data, err := ir.MarshalCanonical(p.Value)
		if err != nil {
			return CompileOutput{}, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		out.Params[i] = ParamOutput{Name: p.Name, Value: data}
	}
	return out, nil
}

// outputCompileSuccess prints the SQL and one line per parameter.
func outputCompileSuccess(formatter *OutputFormatter, out CompileOutput) error {
	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	fmt.Fprintln(formatter.Writer, out.SQL)
	for _, p := range out.Params {
		fmt.Fprintf(formatter.Writer, "  %s = %s\n", p.Name, p.Value)
	}
	return nil
}
