package ir

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	// Verify all types implement IRValue (compile-time check via assignment)
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRFloat(4.2)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRTime(time.Time{})
	var _ IRValue = IRUUID(uuid.Nil)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
}

type accountName string

func TestFromGo(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.New()
	name := "System"
	var nilPtr *string

	tests := []struct {
		name     string
		input    any
		expected IRValue
	}{
		{"nil", nil, IRNull{}},
		{"string", "System", IRString("System")},
		{"named string", accountName("System"), IRString("System")},
		{"int", 2005, IRInt(2005)},
		{"int8", int8(-3), IRInt(-3)},
		{"uint32", uint32(7), IRInt(7)},
		{"float32", float32(0.5), IRFloat(0.5)},
		{"bool", true, IRBool(true)},
		{"time", ts, IRTime(ts)},
		{"uuid", id, IRUUID(id)},
		{"pointer", &name, IRString("System")},
		{"nil pointer", nilPtr, IRNull{}},
		{"bytes", []byte("raw"), IRString("raw")},
		{"valid null string", sql.NullString{String: "x", Valid: true}, IRString("x")},
		{"invalid null string", sql.NullString{}, IRNull{}},
		{"null int64", sql.NullInt64{Int64: 9, Valid: true}, IRInt(9)},
		{"slice", []string{"System", "System2"}, IRArray{IRString("System"), IRString("System2")}},
		{"array", [2]int{1, 2}, IRArray{IRInt(1), IRInt(2)}},
		{"nil slice", []int(nil), IRArray{}},
		{"ir value passthrough", IRInt(3), IRInt(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFromGoRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nested slice", [][]int{{1}}},
		{"map", map[string]int{"a": 1}},
		{"struct", struct{ A int }{1}},
		{"huge uint", uint64(1 << 63)},
		{"func", func() {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGo(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(IRNull{}))
	assert.False(t, IsNull(IRString("")))
	assert.False(t, IsNull(IRArray{}))
}

func TestToParam(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	assert.Nil(t, ToParam(IRNull{}))
	assert.Equal(t, "a", ToParam(IRString("a")))
	assert.Equal(t, int64(1), ToParam(IRInt(1)))
	assert.Equal(t, 1.5, ToParam(IRFloat(1.5)))
	assert.Equal(t, true, ToParam(IRBool(true)))
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", ToParam(IRUUID(id)))
	assert.Equal(t, []any{"a", int64(2)}, ToParam(IRArray{IRString("a"), IRInt(2)}))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b IRValue
		cmp  int
		ok   bool
	}{
		{"strings", IRString("a"), IRString("b"), -1, true},
		{"ints equal", IRInt(3), IRInt(3), 0, true},
		{"int vs float", IRInt(3), IRFloat(2.5), 1, true},
		{"bools", IRBool(false), IRBool(true), -1, true},
		{"times", IRTime(time.Unix(10, 0)), IRTime(time.Unix(5, 0)), 1, true},
		{"mismatch", IRString("1"), IRInt(1), 0, false},
		{"null", IRNull{}, IRInt(1), 0, false},
		{"array", IRArray{}, IRArray{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp, ok := Compare(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.cmp, cmp)
			}
		})
	}
}

func TestMarshalIRValue(t *testing.T) {
	data, err := MarshalIRValue(IRArray{IRString("a"), IRNull{}, IRFloat(0.25)})
	require.NoError(t, err)
	assert.Equal(t, `["a",null,0.25]`, string(data))
}
