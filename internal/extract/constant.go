package extract

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"reflect"
)

// evalConst evaluates e as a Go constant expression. Captured values whose
// type has a basic underlying kind are in scope as typed constants, so
// limit+1 or "prefix-"+name evaluate while anything involving a
// non-constant capture fails.
func (r *EnvResolver) evalConst(e ast.Expr) (any, error) {
	pkg := types.NewPackage("predsql/captures", "captures")
	for name, val := range r.Env {
		if !token.IsIdentifier(name) {
			continue
		}
		if c, ok := constDecl(pkg, name, val); ok {
			pkg.Scope().Insert(c)
		}
	}

	tv, err := types.Eval(token.NewFileSet(), pkg, token.NoPos, exprString(e))
	if err != nil {
		return nil, err
	}
	if tv.Value == nil {
		return nil, fmt.Errorf("%s is not a constant expression", exprString(e))
	}
	return constantValue(tv.Value)
}

// constDecl declares val as a typed constant when it is a scalar.
func constDecl(pkg *types.Package, name string, val any) (*types.Const, bool) {
	if val == nil {
		return nil, false
	}
	rv := reflect.ValueOf(val)

	var (
		typ types.Type
		c   constant.Value
	)
	switch rv.Kind() {
	case reflect.String:
		typ, c = types.Typ[types.String], constant.MakeString(rv.String())
	case reflect.Bool:
		typ, c = types.Typ[types.Bool], constant.MakeBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		typ, c = basicInt(rv.Kind()), constant.MakeInt64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		typ, c = basicInt(rv.Kind()), constant.MakeUint64(rv.Uint())
	case reflect.Float32:
		typ, c = types.Typ[types.Float32], constant.MakeFloat64(rv.Float())
	case reflect.Float64:
		typ, c = types.Typ[types.Float64], constant.MakeFloat64(rv.Float())
	default:
		return nil, false
	}
	return types.NewConst(token.NoPos, pkg, name, typ, c), true
}

var intKinds = map[reflect.Kind]types.BasicKind{
	reflect.Int:    types.Int,
	reflect.Int8:   types.Int8,
	reflect.Int16:  types.Int16,
	reflect.Int32:  types.Int32,
	reflect.Int64:  types.Int64,
	reflect.Uint:   types.Uint,
	reflect.Uint8:  types.Uint8,
	reflect.Uint16: types.Uint16,
	reflect.Uint32: types.Uint32,
	reflect.Uint64: types.Uint64,
}

func basicInt(k reflect.Kind) types.Type {
	return types.Typ[intKinds[k]]
}
