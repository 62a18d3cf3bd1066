package extract

import (
	"go/parser"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, src string) (any, error) {
	t.Helper()
	expr, err := parser.ParseExpr(src)
	require.NoError(t, err)
	return NewResolver(testEnv()).Resolve(expr)
}

func TestEnvResolver_Resolve(t *testing.T) {
	testCases := []struct {
		src      string
		expected any
	}{
		{`42`, int64(42)},
		{`0x10`, int64(16)},
		{`1_000`, int64(1000)},
		{`1.5`, 1.5},
		{`"s"`, "s"},
		{"`raw`", "raw"},
		{`'a'`, 'a'},
		{`true`, true},
		{`nil`, nil},
		{`limit`, 5},
		{`(limit)`, 5},
		{`-limit`, -5},
		{`+limit`, 5},
		{`owner.Name`, "System"},
		{`owner.Team.Accounts[1]`, "b"},
		{`(*owner.Team).Accounts[0]`, "a"},
		{`[]string{"a", owner.Name}`, []string{"a", "System"}},
		{`[]int64{1, limit}`, []int64{1, 5}},
		{`[]any{1, "a"}`, []any{int64(1), "a"}},
		{`[]string{"a", limit}`, []any{"a", 5}},
		{`limit * 2`, int64(10)},
		{`uint64(1) << 63`, uint64(1 << 63)},
		{`7 / 2.0`, 3.5},
		{`"pre" + "fix"`, "prefix"},
		{`ids["first"]`, 7},
	}

	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			got, err := resolve(t, tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestEnvResolver_Errors(t *testing.T) {
	testCases := []struct {
		src     string
		message string
	}{
		{`missing`, "undefined: missing"},
		{`owner.Nope`, "has no field Nope"},
		{`owner.secret`, "unexported"},
		{`owner.Team.Accounts[5]`, "out of range"},
		{`owner.Team.Lookup["missing"]`, `map has no key missing`},
		{`ids.second`, `map has no key "second"`},
		{`nilptr.Foo`, "nil"},
		{`gid.String`, "is a method"},
		{`owner.Name()`, "has no method Name"},
		{`struct{ A int }{A: 1}`, ""},
		{`1 << 70`, "cannot evaluate 1 << 70"},
	}

	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			_, err := resolve(t, tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}
