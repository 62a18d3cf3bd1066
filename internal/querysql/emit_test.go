package querysql

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/predsql/internal/dialect"
	"github.com/roach88/predsql/internal/ir"
	"github.com/roach88/predsql/internal/predicate"
)

func emit(t *testing.T, n predicate.Node) Statement {
	t.Helper()
	stmt, err := Emit(predicate.Normalize(n))
	require.NoError(t, err)
	return stmt
}

func TestEmit_Scenarios(t *testing.T) {
	testCases := []struct {
		name       string
		node       predicate.Node
		wantSQL    string
		wantParams []Param
	}{
		{
			name: "or of and",
			node: predicate.Binary(
				predicate.Compare("Account", predicate.Eq, "System"),
				predicate.Or,
				predicate.Binary(
					predicate.Compare("Account", predicate.Eq, "System01"),
					predicate.And,
					predicate.Compare("Spell", predicate.Eq, "123"),
				),
			),
			wantSQL: "Account = @Account_p0 OR (Account = @Account_p1 AND Spell = @Spell_p2)",
			wantParams: []Param{
				{Name: "Account_p0", Value: ir.IRString("System")},
				{Name: "Account_p1", Value: ir.IRString("System01")},
				{Name: "Spell_p2", Value: ir.IRString("123")},
			},
		},
		{
			name: "set membership binds the whole array",
			node: predicate.Binary(
				predicate.In("Account", "System", "System2"),
				predicate.Or,
				predicate.Binary(
					predicate.Compare("Secretkey", predicate.Eq, "xyz"),
					predicate.And,
					predicate.Compare("Spell", predicate.Eq, "123"),
				),
			),
			wantSQL: "Account IN @Account_p0 OR (Secretkey = @Secretkey_p1 AND Spell = @Spell_p2)",
			wantParams: []Param{
				{Name: "Account_p0", Value: ir.IRArray{ir.IRString("System"), ir.IRString("System2")}},
				{Name: "Secretkey_p1", Value: ir.IRString("xyz")},
				{Name: "Spell_p2", Value: ir.IRString("123")},
			},
		},
		{
			name:       "single comparison",
			node:       predicate.Compare("Id", predicate.Eq, 2005),
			wantSQL:    "Id = @Id_p0",
			wantParams: []Param{{Name: "Id_p0", Value: ir.IRInt(2005)}},
		},
		{
			name: "left associative chain is flat",
			node: predicate.Binary(
				predicate.Binary(
					predicate.Compare("A", predicate.Eq, 1),
					predicate.And,
					predicate.Compare("B", predicate.Eq, 2),
				),
				predicate.And,
				predicate.Compare("C", predicate.Eq, 3),
			),
			wantSQL: "A = @A_p0 AND B = @B_p1 AND C = @C_p2",
			wantParams: []Param{
				{Name: "A_p0", Value: ir.IRInt(1)},
				{Name: "B_p1", Value: ir.IRInt(2)},
				{Name: "C_p2", Value: ir.IRInt(3)},
			},
		},
		{
			name: "null comparisons bind nothing",
			node: predicate.AllOf(
				predicate.Compare("DeletedAt", predicate.Eq, nil),
				predicate.Compare("Nick", predicate.Ne, nil),
				predicate.Compare("Id", predicate.Gt, 0),
			),
			wantSQL:    "DeletedAt IS NULL AND Nick IS NOT NULL AND Id > @Id_p0",
			wantParams: []Param{{Name: "Id_p0", Value: ir.IRInt(0)}},
		},
		{
			name: "nested field key replaces dots",
			node: predicate.Comparison{
				Field: predicate.FieldRef{Name: "Address.City", Column: "addr_city", Depth: 1},
				Op:    predicate.Ne,
				Value: ir.IRString("Oslo"),
			},
			wantSQL:    "addr_city != @Address_City_p0",
			wantParams: []Param{{Name: "Address_City_p0", Value: ir.IRString("Oslo")}},
		},
		{
			name: "not in",
			node: predicate.NotIn("Id", 1, 2),
			wantSQL:    "Id NOT IN @Id_p0",
			wantParams: []Param{{Name: "Id_p0", Value: ir.IRArray{ir.IRInt(1), ir.IRInt(2)}}},
		},
		{
			name:       "empty predicate",
			node:       predicate.Group{},
			wantSQL:    "",
			wantParams: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt := emit(t, tc.node)

			assert.Equal(t, tc.wantSQL, stmt.SQL, "SQL mismatch")
			assert.Equal(t, tc.wantParams, stmt.Params, "Parameters mismatch")
		})
	}
}

func TestEmit_ParameterKeysAreUnique(t *testing.T) {
	var leaves []predicate.Node
	for i := range 12 {
		leaves = append(leaves, predicate.Compare("Account", predicate.Eq, fmt.Sprint(i)))
	}
	tree := predicate.AnyOf(
		predicate.AllOf(leaves[:4]...),
		predicate.AllOf(leaves[4:8]...),
		predicate.AnyOf(leaves[8:]...),
	)

	stmt := emit(t, tree)

	seen := make(map[string]bool)
	for _, name := range stmt.Names() {
		assert.False(t, seen[name], "duplicate key %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, 12)
	assert.Equal(t, "Account_p11", stmt.Params[11].Name, "counter is shared across groups")
}

func TestEmit_SingletonGroupsHaveNoParentheses(t *testing.T) {
	// Built by hand: Normalize would collapse these.
	tree := predicate.Group{Children: []predicate.Node{
		predicate.Group{Children: []predicate.Node{
			predicate.Group{Children: []predicate.Node{predicate.Compare("A", predicate.Eq, 1)}},
		}},
		predicate.WithLink(predicate.Group{Children: []predicate.Node{
			predicate.Compare("B", predicate.Eq, 2),
		}}, predicate.Or),
	}}

	stmt, err := Emit(tree)
	require.NoError(t, err)
	assert.Equal(t, "A = @A_p0 OR B = @B_p1", stmt.SQL)
}

func TestEmit_ParenthesesOnlyAtOperatorBoundaries(t *testing.T) {
	tree := predicate.Binary(
		predicate.Binary(
			predicate.Compare("A", predicate.Eq, 1),
			predicate.And,
			predicate.Binary(predicate.Compare("B", predicate.Eq, 2), predicate.Or, predicate.Compare("C", predicate.Eq, 3)),
		),
		predicate.Or,
		predicate.Compare("D", predicate.Eq, 4),
	)

	stmt := emit(t, tree)
	assert.Equal(t, "(A = @A_p0 AND (B = @B_p1 OR C = @C_p2)) OR D = @D_p3", stmt.SQL)
}

func TestEmit_Dialects(t *testing.T) {
	tree := predicate.Normalize(predicate.AllOf(
		predicate.Comparison{Field: predicate.FieldRef{Name: "Id", Column: "id"}, Op: predicate.Ge, Value: ir.IRInt(10)},
		predicate.In("Account", "a"),
	))

	testCases := []struct {
		dialect dialect.Dialect
		wantSQL string
	}{
		{dialect.Plain, "id >= @Id_p0 AND Account IN @Account_p1"},
		{dialect.SQLite, `"id" >= @Id_p0 AND "Account" IN @Account_p1`},
		{dialect.Postgres, `"id" >= @Id_p0 AND "Account" IN @Account_p1`},
		{dialect.DuckDB, `"id" >= $Id_p0 AND "Account" IN $Account_p1`},
	}

	for _, tc := range testCases {
		t.Run(tc.dialect.Name, func(t *testing.T) {
			stmt, err := NewEmitter(tc.dialect).Emit(tree)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, stmt.SQL)
		})
	}
}

func TestEmit_Errors(t *testing.T) {
	_, err := NewEmitter(dialect.Dialect{}).Emit(predicate.Compare("A", predicate.Eq, 1))
	assert.ErrorContains(t, err, "no parameter prefix")

	_, err = Emit(predicate.Group{Children: []predicate.Node{
		predicate.Compare("A", predicate.Eq, 1),
		predicate.WithLink(predicate.Group{}, predicate.And),
	}})
	assert.ErrorContains(t, err, "empty nested group")
}

func TestEmit_AcceptsPointerNodes(t *testing.T) {
	cmp := predicate.Compare("A", predicate.Eq, 1)
	set := predicate.In("B", 2)
	set.Linking = predicate.Or

	stmt, err := Emit(&predicate.Group{Children: []predicate.Node{&cmp, &set}})
	require.NoError(t, err)
	assert.Equal(t, "A = @A_p0 OR B IN @B_p1", stmt.SQL)
}

func TestStatement_Accessors(t *testing.T) {
	stmt := emit(t, predicate.AllOf(
		predicate.Compare("Account", predicate.Eq, "System"),
		predicate.In("Id", 1, 2),
	))

	v, ok := stmt.Lookup("Id_p1")
	require.True(t, ok)
	assert.Equal(t, ir.IRArray{ir.IRInt(1), ir.IRInt(2)}, v)
	_, ok = stmt.Lookup("Id_p0")
	assert.False(t, ok)

	assert.True(t, stmt.HasArrays())
	assert.Equal(t, map[string]any{"Account_p0": "System", "Id_p1": []any{int64(1), int64(2)}}, stmt.Map())
	assert.Equal(t, []any{
		sql.Named("Account_p0", "System"),
		sql.Named("Id_p1", []any{int64(1), int64(2)}),
	}, stmt.Args())

	query, args, err := stmt.ToSql()
	require.NoError(t, err)
	assert.Equal(t, stmt.SQL, query)
	assert.Len(t, args, 2)

	query, args, err = Statement{}.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", query)
	assert.Empty(t, args)
}

// render prints a statement as SQL followed by one "name = value" line per
// parameter in emission order.
func render(stmt Statement) []byte {
	var sb strings.Builder
	sb.WriteString(stmt.SQL)
	sb.WriteByte('\n')
	for _, p := range stmt.Params {
		data, err := ir.MarshalIRValue(p.Value)
		if err != nil {
			data = []byte(err.Error())
		}
		fmt.Fprintf(&sb, "%s = %s\n", p.Name, data)
	}
	return []byte(sb.String())
}

func TestEmit_Golden(t *testing.T) {
	testCases := []struct {
		name    string
		dialect dialect.Dialect
		node    predicate.Node
	}{
		{
			name:    "mixed_operators",
			dialect: dialect.Plain,
			node: predicate.AnyOf(
				predicate.AllOf(
					predicate.Compare("Account", predicate.Eq, "System01"),
					predicate.AnyOf(predicate.Compare("Spell", predicate.Eq, "123"), predicate.Compare("Spell", predicate.Eq, "456")),
				),
				predicate.NotIn("Id", 1, 2, 3),
				predicate.Compare("DeletedAt", predicate.Eq, nil),
			),
		},
		{
			name:    "sqlite_quoted",
			dialect: dialect.SQLite,
			node: predicate.AllOf(
				predicate.Comparison{Field: predicate.FieldRef{Name: "Address.City", Column: "addr_city", Depth: 1}, Op: predicate.Eq, Value: ir.IRString("Oslo")},
				predicate.Compare("Score", predicate.Lt, 7.5),
				predicate.Compare("Active", predicate.Eq, true),
			),
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := NewEmitter(tc.dialect).Emit(predicate.Normalize(tc.node))
			require.NoError(t, err)
			g.Assert(t, tc.name, render(stmt))
		})
	}
}
