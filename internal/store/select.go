package store

import (
	"context"
	"fmt"
	"math"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/predsql/internal/querysql"
)

// Query describes a SELECT filtered by a compiled predicate.
type Query struct {
	// Table is the table to read. Required.
	Table string

	// Columns to return. Empty selects every column.
	Columns []string

	// Where is the compiled predicate. The zero Statement matches every row.
	Where querysql.Statement

	// OrderBy lists columns to sort by, ascending.
	OrderBy []string

	// Limit caps the number of rows. Zero means no limit.
	Limit uint64

	// Offset skips rows before the first returned one.
	Offset uint64
}

// SQL renders q for the store's dialect with arrays expanded.
func (s *Store) SQL(q Query) (string, []any, error) {
	if q.Table == "" {
		return "", nil, fmt.Errorf("select: table is required")
	}
	d := s.Dialect()

	columns := []string{"*"}
	if len(q.Columns) > 0 {
		columns = make([]string, len(q.Columns))
		for i, col := range q.Columns {
			columns[i] = d.QuoteIdent(col)
		}
	}

	b := sq.Select(columns...).From(d.QuoteIdent(q.Table))
	if q.Where.SQL != "" {
		b = b.Where(ExpandArrays(q.Where, d))
	}
	for _, col := range q.OrderBy {
		b = b.OrderBy(d.QuoteIdent(col) + " ASC")
	}
	switch {
	case q.Limit > 0:
		b = b.Limit(q.Limit)
	case q.Offset > 0:
		// SQLite accepts OFFSET only after a LIMIT.
		b = b.Limit(math.MaxInt64)
	}
	if q.Offset > 0 {
		b = b.Offset(q.Offset)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("select: %w", err)
	}
	return query, args, nil
}

// Select runs q and returns each row as a column-name to value map.
// TEXT columns are returned as strings.
func (s *Store) Select(ctx context.Context, q Query) ([]map[string]any, error) {
	query, args, err := s.SQL(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}

	result := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Table, err)
	}
	return result, nil
}
