package extract

import (
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"reflect"
)

// Resolver reduces a value operand of a predicate to a Go value.
type Resolver interface {
	Resolve(e ast.Expr) (any, error)
}

// EnvResolver resolves operands against captured variables.
//
// Literals, captured identifiers, selector and index chains over captured
// values, zero-argument method calls, slice and array literals and unary
// minus are evaluated directly, reading the captured object graph by
// reflection. Anything else, and any chain that fails, is retried as a Go
// constant expression with the captured scalars in scope as typed
// constants.
type EnvResolver struct {
	Env map[string]any
}

// NewResolver creates an EnvResolver over env.
func NewResolver(env map[string]any) *EnvResolver {
	return &EnvResolver{Env: env}
}

// Resolve implements Resolver.
func (r *EnvResolver) Resolve(e ast.Expr) (any, error) {
	v, err := r.eval(e)
	if err == nil {
		if !v.IsValid() {
			return nil, nil
		}
		if !v.CanInterface() {
			return nil, fmt.Errorf("%s reads an unexported value", exprString(e))
		}
		return v.Interface(), nil
	}
	if c, cerr := r.evalConst(e); cerr == nil {
		return c, nil
	}
	return nil, err
}

// nilValue is the untyped nil during evaluation.
var nilValue = reflect.Value{}

func (r *EnvResolver) eval(e ast.Expr) (reflect.Value, error) {
	switch v := e.(type) {
	case *ast.ParenExpr:
		return r.eval(v.X)

	case *ast.BasicLit:
		c, err := literal(v)
		if err != nil {
			return nilValue, err
		}
		return reflect.ValueOf(c), nil

	case *ast.Ident:
		if val, ok := r.Env[v.Name]; ok {
			if val == nil {
				return nilValue, nil
			}
			return reflect.ValueOf(val), nil
		}
		switch v.Name {
		case "true":
			return reflect.ValueOf(true), nil
		case "false":
			return reflect.ValueOf(false), nil
		case "nil":
			return nilValue, nil
		}
		return nilValue, fmt.Errorf("undefined: %s", v.Name)

	case *ast.SelectorExpr:
		base, err := r.eval(v.X)
		if err != nil {
			return nilValue, err
		}
		return selectMember(base, v.Sel.Name)

	case *ast.IndexExpr:
		base, err := r.eval(v.X)
		if err != nil {
			return nilValue, err
		}
		idx, err := r.eval(v.Index)
		if err != nil {
			return nilValue, err
		}
		return index(base, idx)

	case *ast.StarExpr:
		base, err := r.eval(v.X)
		if err != nil {
			return nilValue, err
		}
		base = indirect(base)
		if !base.IsValid() {
			return nilValue, errors.New("nil pointer dereference")
		}
		return base, nil

	case *ast.CallExpr:
		sel, ok := v.Fun.(*ast.SelectorExpr)
		if !ok || len(v.Args) != 0 {
			return nilValue, fmt.Errorf("cannot evaluate call %s", exprString(v))
		}
		base, err := r.eval(sel.X)
		if err != nil {
			return nilValue, err
		}
		return callMethod(base, sel.Sel.Name)

	case *ast.CompositeLit:
		return r.compositeLit(v)

	case *ast.UnaryExpr:
		operand, err := r.eval(v.X)
		if err != nil {
			return nilValue, err
		}
		switch v.Op {
		case token.ADD:
			return operand, nil
		case token.SUB:
			return negate(operand)
		case token.AND:
			return operand, nil
		}
		return nilValue, fmt.Errorf("cannot evaluate unary %s", v.Op)
	}
	return nilValue, fmt.Errorf("cannot evaluate %s", exprString(e))
}

// compositeLit evaluates slice and array literals. Element types are taken
// from the literal when it names a built-in type.
func (r *EnvResolver) compositeLit(lit *ast.CompositeLit) (reflect.Value, error) {
	if lit.Type != nil {
		if _, ok := lit.Type.(*ast.ArrayType); !ok {
			return nilValue, fmt.Errorf("cannot evaluate %s literal", exprString(lit.Type))
		}
	}
	out := make([]any, 0, len(lit.Elts))
	for _, elt := range lit.Elts {
		if _, ok := elt.(*ast.KeyValueExpr); ok {
			return nilValue, errors.New("keyed elements are not supported in collection literals")
		}
		ev, err := r.eval(elt)
		if err != nil {
			return nilValue, err
		}
		if !ev.IsValid() {
			out = append(out, nil)
			continue
		}
		out = append(out, ev.Interface())
	}
	if arr, ok := lit.Type.(*ast.ArrayType); ok {
		if typed, ok := typedSlice(arr.Elt, out); ok {
			return typed, nil
		}
	}
	return reflect.ValueOf(out), nil
}

var builtinTypes = map[string]reflect.Type{
	"string":  reflect.TypeFor[string](),
	"bool":    reflect.TypeFor[bool](),
	"int":     reflect.TypeFor[int](),
	"int8":    reflect.TypeFor[int8](),
	"int16":   reflect.TypeFor[int16](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"uint":    reflect.TypeFor[uint](),
	"uint8":   reflect.TypeFor[uint8](),
	"uint16":  reflect.TypeFor[uint16](),
	"uint32":  reflect.TypeFor[uint32](),
	"uint64":  reflect.TypeFor[uint64](),
	"float32": reflect.TypeFor[float32](),
	"float64": reflect.TypeFor[float64](),
	"rune":    reflect.TypeFor[rune](),
	"byte":    reflect.TypeFor[byte](),
}

// typedSlice converts elements to the named built-in element type.
func typedSlice(elt ast.Expr, elems []any) (reflect.Value, bool) {
	id, ok := elt.(*ast.Ident)
	if !ok {
		return nilValue, false
	}
	t, ok := builtinTypes[id.Name]
	if !ok {
		return nilValue, false
	}
	out := reflect.MakeSlice(reflect.SliceOf(t), len(elems), len(elems))
	for i, elem := range elems {
		if elem == nil {
			return nilValue, false
		}
		ev := reflect.ValueOf(elem)
		if !ev.Type().ConvertibleTo(t) || (ev.Kind() == reflect.String) != (t.Kind() == reflect.String) {
			return nilValue, false
		}
		out.Index(i).Set(ev.Convert(t))
	}
	return out, true
}

// literal converts a basic literal to a Go value: int64 (or uint64 when it
// does not fit), float64, string or rune.
func literal(lit *ast.BasicLit) (any, error) {
	c := constant.MakeFromLiteral(lit.Value, lit.Kind, 0)
	if c.Kind() == constant.Unknown {
		return nil, fmt.Errorf("malformed literal %s", lit.Value)
	}
	if lit.Kind == token.CHAR {
		n, _ := constant.Int64Val(c)
		return rune(n), nil
	}
	return constantValue(c)
}

// constantValue converts an exact constant to a Go value.
func constantValue(c constant.Value) (any, error) {
	switch c.Kind() {
	case constant.Bool:
		return constant.BoolVal(c), nil
	case constant.String:
		return constant.StringVal(c), nil
	case constant.Int:
		if n, exact := constant.Int64Val(c); exact {
			return n, nil
		}
		if n, exact := constant.Uint64Val(c); exact {
			return n, nil
		}
		return nil, fmt.Errorf("constant %s overflows 64 bits", c)
	case constant.Float:
		f, _ := constant.Float64Val(c)
		return f, nil
	}
	return nil, fmt.Errorf("unsupported constant %s", c)
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nilValue
		}
		v = v.Elem()
	}
	return v
}

// selectMember reads a struct field, map entry or zero-argument method.
func selectMember(base reflect.Value, name string) (reflect.Value, error) {
	if !base.IsValid() {
		return nilValue, fmt.Errorf("cannot read %s of nil", name)
	}

	if m := base.MethodByName(name); m.IsValid() {
		return nilValue, fmt.Errorf("%s is a method; call it as %s()", name, name)
	}

	v := indirect(base)
	if !v.IsValid() {
		return nilValue, fmt.Errorf("cannot read %s of nil %s", name, base.Type())
	}
	switch v.Kind() {
	case reflect.Struct:
		sf, ok := v.Type().FieldByName(name)
		if !ok {
			return nilValue, fmt.Errorf("%s has no field %s", v.Type(), name)
		}
		if !sf.IsExported() {
			return nilValue, fmt.Errorf("field %s of %s is unexported", name, v.Type())
		}
		return v.FieldByIndex(sf.Index), nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nilValue, fmt.Errorf("cannot select %s from %s", name, v.Type())
		}
		entry := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !entry.IsValid() {
			return nilValue, fmt.Errorf("map has no key %q", name)
		}
		return entry, nil
	}
	return nilValue, fmt.Errorf("cannot select %s from %s", name, v.Type())
}

// index evaluates base[idx] for slices, arrays, strings and maps.
func index(base, idx reflect.Value) (reflect.Value, error) {
	v := indirect(base)
	if !v.IsValid() || !idx.IsValid() {
		return nilValue, errors.New("cannot index nil")
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		if !idx.CanInt() {
			return nilValue, fmt.Errorf("index must be an integer, got %s", idx.Type())
		}
		i := idx.Int()
		if i < 0 || i >= int64(v.Len()) {
			return nilValue, fmt.Errorf("index %d out of range [0:%d]", i, v.Len())
		}
		return v.Index(int(i)), nil
	case reflect.Map:
		key := v.Type().Key()
		if !idx.Type().ConvertibleTo(key) {
			return nilValue, fmt.Errorf("cannot use %s as %s map key", idx.Type(), key)
		}
		entry := v.MapIndex(idx.Convert(key))
		if !entry.IsValid() {
			return nilValue, fmt.Errorf("map has no key %v", idx.Interface())
		}
		return entry, nil
	}
	return nilValue, fmt.Errorf("cannot index %s", v.Type())
}

// callMethod calls a zero-argument method returning one value, or a value
// and an error.
func callMethod(base reflect.Value, name string) (reflect.Value, error) {
	if !base.IsValid() {
		return nilValue, fmt.Errorf("cannot call %s on nil", name)
	}
	m := base.MethodByName(name)
	if !m.IsValid() && base.Kind() != reflect.Pointer && base.CanAddr() {
		m = base.Addr().MethodByName(name)
	}
	if !m.IsValid() {
		return nilValue, fmt.Errorf("%s has no method %s", base.Type(), name)
	}
	mt := m.Type()
	if mt.NumIn() != 0 {
		return nilValue, fmt.Errorf("method %s takes arguments", name)
	}
	errType := reflect.TypeFor[error]()
	switch {
	case mt.NumOut() == 1:
		return m.Call(nil)[0], nil
	case mt.NumOut() == 2 && mt.Out(1) == errType:
		out := m.Call(nil)
		if !out[1].IsNil() {
			return nilValue, fmt.Errorf("%s(): %w", name, out[1].Interface().(error))
		}
		return out[0], nil
	}
	return nilValue, fmt.Errorf("method %s must return a single value", name)
}

func negate(v reflect.Value) (reflect.Value, error) {
	v = indirect(v)
	if !v.IsValid() {
		return nilValue, errors.New("cannot negate nil")
	}
	switch {
	case v.CanInt():
		out := reflect.New(v.Type()).Elem()
		out.SetInt(-v.Int())
		return out, nil
	case v.CanFloat():
		out := reflect.New(v.Type()).Elem()
		out.SetFloat(-v.Float())
		return out, nil
	case v.CanUint():
		if v.Uint() > 1<<63 {
			return nilValue, fmt.Errorf("-%d overflows int64", v.Uint())
		}
		return reflect.ValueOf(-int64(v.Uint())), nil
	}
	return nilValue, fmt.Errorf("cannot negate %s", v.Type())
}
