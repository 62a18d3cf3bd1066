package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/predsql/internal/compiler"
	"github.com/roach88/predsql/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Captures string
	Fields   []string
	Table    string // overrides the entity table
}

// QueryOutput is the result of a query.
type QueryOutput struct {
	SQL     string           `json:"sql"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <predicate>",
		Short: "Run a predicate against a SQLite database",
		Long: `Compile a predicate for SQLite and select the matching rows of the
entity's table.

Examples:
  predsql query 'x.Spell == "123"' --db data.db --fields schema.yaml --entity User
  predsql query 'slices.Contains(ids, x.id)' --db data.db --field id --table users \
      --captures '{"ids": [1, 2]}' --limit 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	addPredicateFlags(cmd, &opts.Captures, &opts.Fields)
	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().Uint64("limit", 0, "maximum rows to return (0 = no limit)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table to query (default: the entity table)")

	return cmd
}

func runQuery(opts *QueryOptions, src string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	dbPath := opts.Config.DB
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--db is required", nil)
	}
	// Opening a missing path would create an empty database.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), nil)
	}

	fields, env, failure := loadInputs(opts.RootOptions, formatter, opts.Captures, opts.Fields)
	if failure != nil {
		return failure
	}

	table := opts.Table
	if table == "" {
		table = fields.TableName()
	}
	if table == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--table is required with inline fields", nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer st.Close()

	c := compiler.New(compiler.WithDialect(st.Dialect()), compiler.WithLogger(opts.logger()))
	stmt, err := c.Compile(src, env, fields)
	if err != nil {
		return compileFailure(formatter, err)
	}

	q := store.Query{
		Table: table,
		Where: stmt,
		Limit: opts.Config.Limit,
	}
	sqlText, _, err := st.SQL(q)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	formatter.VerboseLog("Executing: %s", sqlText)

	rows, err := st.Select(cmd.Context(), q)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	out := QueryOutput{
		SQL:     sqlText,
		Columns: rowColumns(rows),
		Rows:    rows,
	}
	opts.logger().Debug("query executed", "table", table, "rows", len(rows))

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	return outputQueryText(formatter, out)
}

// rowColumns returns the union of row keys, sorted.
func rowColumns(rows []map[string]any) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
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

// outputQueryText prints rows as an aligned table followed by a count.
func outputQueryText(formatter *OutputFormatter, out QueryOutput) error {
	w := formatter.Writer

	if len(out.Rows) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(out.Columns, "\t"))
		for _, row := range out.Rows {
			cells := make([]string, len(out.Columns))
			for i, col := range out.Columns {
				if v := row[col]; v != nil {
					cells[i] = fmt.Sprint(v)
				} else {
					cells[i] = "NULL"
				}
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "%d row(s)\n", len(out.Rows))
	return nil
}
