package extract

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"strings"

	"github.com/roach88/predsql/internal/predicate"
)

// DefaultParam is the parameter name of a bare-expression predicate.
const DefaultParam = "x"

// Lambda is a parsed predicate.
type Lambda struct {
	// Param is the name the body uses for the filtered row.
	Param string

	// ParamType is the declared parameter type, empty for bare expressions.
	ParamType string

	// Body is the boolean expression.
	Body ast.Expr

	// Env holds captured variables by name.
	Env map[string]any

	// Src is the predicate source text.
	Src string
}

// Parse parses predicate source. env supplies captured variables and may be
// nil.
func Parse(src string, env map[string]any) (*Lambda, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, predicate.NewUnsupportedPredicateError("", "empty predicate")
	}

	expr, err := parser.ParseExpr(src)
	if err != nil {
		ce := predicate.NewUnsupportedPredicateError(src, "predicate is not a Go expression")
		ce.Err = err
		return nil, ce
	}

	l := &Lambda{Param: DefaultParam, Body: expr, Env: env, Src: src}

	lit, ok := expr.(*ast.FuncLit)
	if !ok {
		return l, nil
	}

	params := lit.Type.Params.List
	if len(params) != 1 || len(params[0].Names) != 1 {
		return nil, predicate.NewUnsupportedPredicateError(src, "predicate function must take exactly one parameter")
	}
	name := params[0].Names[0].Name
	if name == "_" {
		return nil, predicate.NewUnsupportedPredicateError(src, "predicate parameter must be named")
	}

	if len(lit.Body.List) != 1 {
		return nil, predicate.NewUnsupportedPredicateError(src, "predicate body must be a single return statement")
	}
	ret, ok := lit.Body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return nil, predicate.NewUnsupportedPredicateError(src, "predicate body must be a single return statement")
	}

	l.Param = name
	l.ParamType = exprString(params[0].Type)
	l.Body = ret.Results[0]
	return l, nil
}

// MustParse is like Parse but panics on error. Intended for predicates
// fixed at compile time.
func MustParse(src string, env map[string]any) *Lambda {
	l, err := Parse(src, env)
	if err != nil {
		panic(err)
	}
	return l
}

// exprString prints e as Go source.
func exprString(e ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, token.NewFileSet(), e); err != nil {
		return ""
	}
	return buf.String()
}
