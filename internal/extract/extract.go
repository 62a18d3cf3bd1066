package extract

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/roach88/predsql/internal/fieldmeta"
	"github.com/roach88/predsql/internal/ir"
	"github.com/roach88/predsql/internal/predicate"
)

// Extractor converts parsed predicates into raw predicate trees.
type Extractor struct {
	// Fields validates field references and supplies their columns.
	Fields fieldmeta.Provider

	// Resolver reduces value operands. Nil uses NewResolver(l.Env).
	Resolver Resolver
}

// Extract converts l into a predicate tree, resolving values from l.Env.
func Extract(l *Lambda, fields fieldmeta.Provider) (predicate.Node, error) {
	x := &Extractor{Fields: fields}
	return x.Extract(l)
}

// Extract converts l into a raw, unnormalized predicate tree: every && and
// || becomes a two-child Group.
func (x *Extractor) Extract(l *Lambda) (predicate.Node, error) {
	if l == nil || l.Body == nil {
		return nil, predicate.NewUnsupportedPredicateError("", "nil predicate")
	}
	if x.Fields == nil {
		return nil, fmt.Errorf("extract: no field metadata provider")
	}
	resolver := x.Resolver
	if resolver == nil {
		resolver = NewResolver(l.Env)
	}
	w := &walker{param: l.Param, env: l.Env, fields: x.Fields, resolver: resolver}
	return w.predicate(l.Body)
}

// walker holds the state of one extraction.
type walker struct {
	param    string
	env      map[string]any // captured names, which shadow packages
	fields   fieldmeta.Provider
	resolver Resolver
}

func (w *walker) predicate(e ast.Expr) (predicate.Node, error) {
	switch v := e.(type) {
	case *ast.ParenExpr:
		return w.predicate(v.X)

	case *ast.BinaryExpr:
		switch v.Op {
		case token.LAND, token.LOR:
			return w.logical(v)
		case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
			return w.comparison(v)
		}
		return nil, predicate.NewUnsupportedPredicateError(exprString(v), "operator %s is not supported", v.Op)

	case *ast.UnaryExpr:
		if v.Op != token.NOT {
			return nil, predicate.NewUnsupportedPredicateError(exprString(v), "unary operator %s is not supported", v.Op)
		}
		call, ok := ast.Unparen(v.X).(*ast.CallExpr)
		if !ok {
			return nil, predicate.NewUnsupportedPredicateError(exprString(v), "negation is only supported around a Contains call")
		}
		return w.contains(call, true)

	case *ast.CallExpr:
		return w.contains(v, false)

	case *ast.Ident, *ast.SelectorExpr:
		if w.mentionsParam(v) {
			return nil, predicate.NewUnsupportedPredicateError(exprString(v), "boolean field must be compared explicitly, e.g. %s == true", exprString(v))
		}
	}
	return nil, predicate.NewUnsupportedPredicateError(exprString(e), "expression of type %T is not a supported predicate", e)
}

func (w *walker) logical(b *ast.BinaryExpr) (predicate.Node, error) {
	left, err := w.predicate(b.X)
	if err != nil {
		return nil, err
	}
	right, err := w.predicate(b.Y)
	if err != nil {
		return nil, err
	}
	op := predicate.And
	if b.Op == token.LOR {
		op = predicate.Or
	}
	return predicate.Binary(left, op, right), nil
}

var compareOps = map[token.Token]predicate.CompareOp{
	token.EQL: predicate.Eq,
	token.NEQ: predicate.Ne,
	token.LSS: predicate.Lt,
	token.LEQ: predicate.Le,
	token.GTR: predicate.Gt,
	token.GEQ: predicate.Ge,
}

func (w *walker) comparison(b *ast.BinaryExpr) (predicate.Node, error) {
	src := exprString(b)
	op := compareOps[b.Op]

	leftIsField := w.isFieldAccess(b.X)
	rightIsField := w.isFieldAccess(b.Y)

	fieldExpr, valueExpr := b.X, b.Y
	switch {
	case leftIsField && rightIsField:
		return nil, predicate.NewUnsupportedPredicateError(src, "comparison between two fields is not supported")
	case rightIsField:
		fieldExpr, valueExpr = b.Y, b.X
		op = op.Flip()
	case !leftIsField:
		return nil, predicate.NewUnsupportedPredicateError(src, "comparison must have a field of %s on one side", w.param)
	}

	field, err := w.field(fieldExpr, src)
	if err != nil {
		return nil, err
	}
	value, err := w.value(valueExpr, src)
	if err != nil {
		return nil, err
	}

	if _, isArray := value.(ir.IRArray); isArray {
		return nil, predicate.NewValueResolutionError(src,
			fmt.Errorf("%s resolves to a collection; use slices.Contains for set membership", exprString(valueExpr)))
	}
	if ir.IsNull(value) && op != predicate.Eq && op != predicate.Ne {
		return nil, predicate.NewValueResolutionError(src,
			fmt.Errorf("%s is nil and cannot be ordered with %s", exprString(valueExpr), op))
	}

	return predicate.Comparison{Field: field, Op: op, Value: value}, nil
}

// contains handles slices.Contains(coll, x.F) and coll.Contains(x.F).
func (w *walker) contains(call *ast.CallExpr, negated bool) (predicate.Node, error) {
	src := exprString(call)
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Contains" {
		return nil, predicate.NewUnsupportedPredicateError(src, "call %s is not supported; only Contains", exprString(call.Fun))
	}

	var collExpr, elemExpr ast.Expr
	switch {
	case w.isSlicesPackage(sel.X) && len(call.Args) == 2:
		collExpr, elemExpr = call.Args[0], call.Args[1]
	case !w.isSlicesPackage(sel.X) && len(call.Args) == 1:
		collExpr, elemExpr = sel.X, call.Args[0]
	default:
		return nil, predicate.NewUnsupportedPredicateError(src, "Contains takes a collection and a field of %s", w.param)
	}

	if !w.isFieldAccess(elemExpr) {
		return nil, predicate.NewUnsupportedPredicateError(src, "Contains argument must be a field of %s", w.param)
	}
	if w.mentionsParam(collExpr) {
		return nil, predicate.NewUnsupportedPredicateError(src, "Contains collection must be a captured value, not a field of %s", w.param)
	}

	field, err := w.field(elemExpr, src)
	if err != nil {
		return nil, err
	}
	value, err := w.value(collExpr, src)
	if err != nil {
		return nil, err
	}
	values, ok := value.(ir.IRArray)
	if !ok {
		return nil, predicate.NewValueResolutionError(src,
			fmt.Errorf("collection %s resolves to %s, not an array", exprString(collExpr), ir.TypeName(value)))
	}

	return predicate.SetMembership{Field: field, Negated: negated, Values: values}, nil
}

// isSlicesPackage reports whether e names the slices package rather than a
// captured variable called slices.
func (w *walker) isSlicesPackage(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	if !ok || id.Name != "slices" {
		return false
	}
	_, captured := w.env["slices"]
	return !captured
}

// fieldPath returns the selector names of a field access rooted at the
// parameter: x.A.B yields [A B]. ok is false for any other shape.
func (w *walker) fieldPath(e ast.Expr) (path []string, ok bool) {
	sel, isSel := deref(e).(*ast.SelectorExpr)
	if !isSel {
		return nil, false
	}
	if root, isIdent := deref(sel.X).(*ast.Ident); isIdent {
		if root.Name != w.param {
			return nil, false
		}
		return []string{sel.Sel.Name}, true
	}
	inner, ok := w.fieldPath(sel.X)
	if !ok {
		return nil, false
	}
	return append(inner, sel.Sel.Name), true
}

// deref strips parentheses and pointer indirections: (*x).F reads like x.F.
func deref(e ast.Expr) ast.Expr {
	for {
		switch v := e.(type) {
		case *ast.ParenExpr:
			e = v.X
		case *ast.StarExpr:
			e = v.X
		default:
			return e
		}
	}
}

func (w *walker) isFieldAccess(e ast.Expr) bool {
	_, ok := w.fieldPath(e)
	return ok
}

// mentionsParam reports whether e reads the parameter anywhere.
func (w *walker) mentionsParam(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.SelectorExpr:
			// Only the operand of a selector can be a variable.
			ast.Inspect(v.X, func(m ast.Node) bool {
				if id, ok := m.(*ast.Ident); ok && id.Name == w.param {
					found = true
				}
				return !found
			})
			return false
		case *ast.KeyValueExpr:
			// Struct literal keys are field names.
			if _, isIdent := v.Key.(*ast.Ident); isIdent {
				ast.Inspect(v.Value, func(m ast.Node) bool {
					if id, ok := m.(*ast.Ident); ok && id.Name == w.param {
						found = true
					}
					return !found
				})
				return false
			}
		case *ast.Ident:
			if v.Name == w.param {
				found = true
			}
		}
		return !found
	})
	return found
}

// field validates a field access against the metadata.
//
// x.F resolves to metadata field F. x.F.G resolves to F.G, a field one
// level down. When F.G is absent and G is a value accessor of a nullable
// wrapper, such as x.Nick.String on a sql.NullString, it resolves to F.
// Any other member of F is an unknown field.
func (w *walker) field(e ast.Expr, src string) (predicate.FieldRef, error) {
	path, _ := w.fieldPath(e)
	depth := len(path) - 1
	name := strings.Join(path, ".")

	if depth > 1 {
		return predicate.FieldRef{}, predicate.NewUnsupportedNestingError(name, src, depth)
	}

	if f, ok := w.fields.Lookup(name); ok {
		return predicate.FieldRef{Name: f.Name, Column: f.ColumnName(), Depth: depth}, nil
	}
	if depth == 1 && valueAccessors[path[1]] {
		if f, ok := w.fields.Lookup(path[0]); ok {
			return predicate.FieldRef{Name: f.Name, Column: f.ColumnName(), Depth: depth}, nil
		}
	}
	return predicate.FieldRef{}, predicate.NewUnknownFieldError(name, src)
}

// valueAccessors are the fields through which database/sql null wrappers
// expose their value. Valid is not one of them: it reports nullness rather
// than the column value.
var valueAccessors = map[string]bool{
	"String":  true,
	"Int64":   true,
	"Int32":   true,
	"Int16":   true,
	"Byte":    true,
	"Float64": true,
	"Bool":    true,
	"Time":    true,
	"V":       true,
}

// value reduces a value operand to an IR value.
func (w *walker) value(e ast.Expr, src string) (ir.IRValue, error) {
	if w.mentionsParam(e) {
		return nil, predicate.NewUnsupportedPredicateError(src, "%s depends on %s but is not a field access", exprString(e), w.param)
	}
	raw, err := w.resolver.Resolve(e)
	if err != nil {
		return nil, predicate.NewValueResolutionError(src, err)
	}
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, predicate.NewValueResolutionError(src, fmt.Errorf("%s: %w", exprString(e), err))
	}
	return v, nil
}
