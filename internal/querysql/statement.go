package querysql

import (
	"database/sql"

	"github.com/roach88/predsql/internal/ir"
)

// Param is one named bind parameter.
type Param struct {
	Name  string
	Value ir.IRValue
}

// Statement is a compiled WHERE clause and its parameters in emission
// order. An empty SQL string means the predicate matches every row.
type Statement struct {
	SQL    string
	Params []Param
}

// Lookup returns the value bound to name.
func (s Statement) Lookup(name string) (ir.IRValue, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// Names returns the parameter names in emission order.
func (s Statement) Names() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// Map returns the parameters as driver-ready values keyed by name.
func (s Statement) Map() map[string]any {
	m := make(map[string]any, len(s.Params))
	for _, p := range s.Params {
		m[p.Name] = ir.ToParam(p.Value)
	}
	return m
}

// Args returns the parameters as database/sql named arguments, in
// emission order. Array values are passed as []any and must be expanded
// before reaching a driver that cannot bind them.
func (s Statement) Args() []any {
	args := make([]any, len(s.Params))
	for i, p := range s.Params {
		args[i] = sql.Named(p.Name, ir.ToParam(p.Value))
	}
	return args
}

// HasArrays reports whether any parameter binds a collection.
func (s Statement) HasArrays() bool {
	for _, p := range s.Params {
		if _, ok := p.Value.(ir.IRArray); ok {
			return true
		}
	}
	return false
}

// ToSql implements squirrel.Sqlizer, so a Statement can be passed to
// squirrel's Where. An empty statement renders as the always-true 1 = 1.
func (s Statement) ToSql() (string, []interface{}, error) {
	if s.SQL == "" {
		return "1 = 1", nil, nil
	}
	return s.SQL, s.Args(), nil
}
