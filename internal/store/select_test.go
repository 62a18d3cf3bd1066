package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/predsql/internal/compiler"
	"github.com/roach88/predsql/internal/fieldmeta"
	"github.com/roach88/predsql/internal/ir"
	"github.com/roach88/predsql/internal/predicate"
	"github.com/roach88/predsql/internal/querysql"
)

var userEntity = fieldmeta.NewEntity("User", "users",
	fieldmeta.Field{Name: "Id", Column: "id", Type: fieldmeta.TypeInt},
	fieldmeta.Field{Name: "Account", Column: "account", Type: fieldmeta.TypeString},
	fieldmeta.Field{Name: "Spell", Column: "spell", Type: fieldmeta.TypeString},
	fieldmeta.Field{Name: "Nick", Column: "nick", Type: fieldmeta.TypeString},
)

func seedUsers(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Exec(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, account TEXT, spell TEXT, nick TEXT)`))
	rows := []struct {
		id                   int
		account, spell, nick any
	}{
		{1, "System", "000", nil},
		{2, "System01", "123", "neo"},
		{3, "System01", "456", nil},
		{4, "System2", "123", "trinity"},
		{5, "Other", "123", nil},
	}
	for _, r := range rows {
		require.NoError(t, s.Exec(ctx, `INSERT INTO users (id, account, spell, nick) VALUES (?, ?, ?, ?)`, r.id, r.account, r.spell, r.nick))
	}
}

func selectIDs(t *testing.T, s *Store, where querysql.Statement) []int64 {
	t.Helper()
	rows, err := s.Select(context.Background(), Query{
		Table:   "users",
		Columns: []string{"id"},
		Where:   where,
		OrderBy: []string{"id"},
	})
	require.NoError(t, err)

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row["id"].(int64)
	}
	return ids
}

func TestSelect_CompiledPredicates(t *testing.T) {
	s := createTestStore(t)
	seedUsers(t, s)
	c := compiler.New(compiler.WithDialect(s.Dialect()))

	testCases := []struct {
		name string
		src  string
		env  map[string]any
		want []int64
	}{
		{
			name: "or of and",
			src:  `x.Account == "System" || (x.Account == "System01" && x.Spell == "123")`,
			want: []int64{1, 2},
		},
		{
			name: "contains",
			src:  `accounts.Contains(x.Account) || (x.Account == "System01" && x.Spell == "456")`,
			env:  map[string]any{"accounts": []string{"System", "System2"}},
			want: []int64{1, 3, 4},
		},
		{
			name: "not contains",
			src:  `!slices.Contains(ids, x.Id)`,
			env:  map[string]any{"ids": []int{1, 2, 3}},
			want: []int64{4, 5},
		},
		{
			name: "empty contains matches nothing",
			src:  `slices.Contains(ids, x.Id)`,
			env:  map[string]any{"ids": []int{}},
			want: []int64{},
		},
		{
			name: "empty not contains matches everything",
			src:  `!slices.Contains(ids, x.Id)`,
			env:  map[string]any{"ids": []int{}},
			want: []int64{1, 2, 3, 4, 5},
		},
		{
			name: "is null",
			src:  `x.Nick == nil && x.Spell == "123"`,
			want: []int64{5},
		},
		{
			name: "is not null",
			src:  `x.Nick != nil`,
			want: []int64{2, 4},
		},
		{
			name: "range",
			src:  `x.Id > 1 && x.Id <= 3`,
			want: []int64{2, 3},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := c.Compile(tc.src, tc.env, userEntity)
			require.NoError(t, err)

			assert.Equal(t, tc.want, selectIDs(t, s, stmt))
		})
	}
}

func TestSelect_EmptyWhereReturnsAllRows(t *testing.T) {
	s := createTestStore(t)
	seedUsers(t, s)

	rows, err := s.Select(context.Background(), Query{Table: "users", OrderBy: []string{"id"}})
	require.NoError(t, err)

	require.Len(t, rows, 5)
	assert.Equal(t, map[string]any{"id": int64(2), "account": "System01", "spell": "123", "nick": "neo"}, rows[1])
	assert.Nil(t, rows[0]["nick"])
}

func TestSelect_Paging(t *testing.T) {
	s := createTestStore(t)
	seedUsers(t, s)

	rows, err := s.Select(context.Background(), Query{Table: "users", Columns: []string{"id"}, OrderBy: []string{"id"}, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": int64(2)}, {"id": int64(3)}}, rows)

	rows, err = s.Select(context.Background(), Query{Table: "users", Columns: []string{"id"}, OrderBy: []string{"id"}, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": int64(4)}, {"id": int64(5)}}, rows)
}

func TestSQL(t *testing.T) {
	s := createTestStore(t)
	stmt := querysql.Statement{
		SQL:    `"account" IN @Account_p0`,
		Params: []querysql.Param{{Name: "Account_p0", Value: ir.IRArray{ir.IRString("a"), ir.IRString("b")}}},
	}

	query, args, err := s.SQL(Query{Table: "users", Columns: []string{"id", "account"}, Where: stmt, OrderBy: []string{"id"}, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, `SELECT "id", "account" FROM "users" WHERE "account" IN (@Account_p0_0, @Account_p0_1) ORDER BY "id" ASC LIMIT 10`, query)
	assert.Equal(t, []any{sql.Named("Account_p0_0", "a"), sql.Named("Account_p0_1", "b")}, args)

	_, _, err = s.SQL(Query{})
	assert.ErrorContains(t, err, "table is required")
}

func TestSelect_UnknownTable(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Select(context.Background(), Query{Table: "missing"})
	assert.Error(t, err)
}

// The normalized, minimally parenthesized SQL must select exactly the rows
// selected by a rendering that parenthesizes every binary node, and exactly
// the rows predicate.Matches accepts.
func TestSelect_NormalizedMatchesFullyParenthesized(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Exec(ctx, `CREATE TABLE grid (id INTEGER PRIMARY KEY, A INTEGER, B INTEGER, C INTEGER, D INTEGER)`))

	var records []predicate.Record
	values := []any{nil, int64(0), int64(1)}
	id := 0
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				for _, d := range values {
					require.NoError(t, s.Exec(ctx, `INSERT INTO grid VALUES (?, ?, ?, ?, ?)`, id, a, b, c, d))
					rec := predicate.Record{}
					for name, v := range map[string]any{"A": a, "B": b, "C": c, "D": d} {
						if v != nil {
							rec[name] = ir.IRInt(v.(int64))
						}
					}
					records = append(records, rec)
					id++
				}
			}
		}
	}

	rng := rand.New(rand.NewSource(20240301))
	for i := 0; i < 150; i++ {
		raw := randomPredicate(rng, 1+rng.Intn(4))

		stmt, err := querysql.NewEmitter(s.Dialect()).Emit(predicate.Normalize(raw))
		require.NoError(t, err)

		var refArgs []any
		refSQL := referenceSQL(raw, &refArgs)

		got := gridIDs(t, s, ExpandArrays(stmt, s.Dialect()))
		want := gridIDs(t, s, querysql.Statement{SQL: refSQL, Params: namedParams(refArgs)})
		require.Equal(t, want, got, "normalized %q\nreference %q", stmt.SQL, refSQL)

		var matched []int64
		for rowID, rec := range records {
			if predicate.Matches(raw, rec) {
				matched = append(matched, int64(rowID))
			}
		}
		require.Equal(t, want, matched, "in-memory evaluation of %s", predicate.Format(raw))
	}
}

func gridIDs(t *testing.T, s *Store, where querysql.Statement) []int64 {
	t.Helper()
	query := `SELECT id FROM grid`
	if where.SQL != "" {
		query += ` WHERE ` + where.SQL
	}
	query += ` ORDER BY id`

	rows, err := s.DB().Query(query, where.Args()...)
	require.NoError(t, err, query)
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

func randomPredicate(rng *rand.Rand, depth int) predicate.Node {
	if depth == 0 || rng.Intn(4) == 0 {
		field := string(rune('A' + rng.Intn(4)))
		switch rng.Intn(5) {
		case 0:
			return predicate.In(field, int64(rng.Intn(2)), int64(2))
		case 1:
			return predicate.NotIn(field, int64(rng.Intn(2)))
		case 2:
			if rng.Intn(2) == 0 {
				return predicate.Compare(field, predicate.Eq, nil)
			}
			return predicate.Compare(field, predicate.Ne, nil)
		default:
			ops := []predicate.CompareOp{predicate.Eq, predicate.Ne, predicate.Lt, predicate.Ge}
			return predicate.Compare(field, ops[rng.Intn(len(ops))], int64(rng.Intn(2)))
		}
	}
	op := predicate.And
	if rng.Intn(2) == 0 {
		op = predicate.Or
	}
	return predicate.Binary(randomPredicate(rng, depth-1), op, randomPredicate(rng, depth-1))
}

// referenceSQL renders every group with parentheses, ignoring
// normalization entirely. Groups are evaluated with SQL precedence just as
// the database would, so wrapping each one is always safe.
func referenceSQL(n predicate.Node, args *[]any) string {
	bind := func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("@r%d", len(*args)-1)
	}

	switch v := n.(type) {
	case predicate.Comparison:
		if ir.IsNull(v.Value) {
			if v.Op == predicate.Ne {
				return v.Field.Name + " IS NOT NULL"
			}
			return v.Field.Name + " IS NULL"
		}
		return fmt.Sprintf("%s %s %s", v.Field.Name, v.Op, bind(ir.ToParam(v.Value)))
	case predicate.SetMembership:
		elems := make([]string, len(v.Values))
		for i, e := range v.Values {
			elems[i] = bind(ir.ToParam(e))
		}
		op := "IN"
		if v.Negated {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", v.Field.Name, op, strings.Join(elems, ", "))
	case predicate.Group:
		var sb strings.Builder
		sb.WriteByte('(')
		for i, child := range v.Children {
			if i > 0 {
				op := child.Link()
				if op == predicate.None {
					op = predicate.And
				}
				sb.WriteString(" " + op.String() + " ")
			}
			sb.WriteString(referenceSQL(child, args))
		}
		sb.WriteByte(')')
		return sb.String()
	}
	panic(fmt.Sprintf("unexpected node %T", n))
}

func namedParams(args []any) []querysql.Param {
	params := make([]querysql.Param, len(args))
	for i, a := range args {
		v, err := ir.FromGo(a)
		if err != nil {
			panic(err)
		}
		params[i] = querysql.Param{Name: fmt.Sprintf("r%d", i), Value: v}
	}
	return params
}
