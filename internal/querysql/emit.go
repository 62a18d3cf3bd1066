package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/predsql/internal/dialect"
	"github.com/roach88/predsql/internal/ir"
	"github.com/roach88/predsql/internal/predicate"
)

// Emitter renders normalized predicate trees for one SQL dialect.
//
// An Emitter holds no per-statement state and is safe for concurrent use.
type Emitter struct {
	Dialect dialect.Dialect
}

// NewEmitter creates an Emitter for d.
func NewEmitter(d dialect.Dialect) *Emitter {
	return &Emitter{Dialect: d}
}

// Emit renders a predicate with the plain dialect.
func Emit(n predicate.Node) (Statement, error) {
	return NewEmitter(dialect.Plain).Emit(n)
}

// Emit renders n, which must already be normalized, as a WHERE clause.
//
// The traversal is depth-first, left to right. Nested groups with two or
// more children are parenthesized; the root group and single-child groups
// are not.
func (e *Emitter) Emit(n predicate.Node) (Statement, error) {
	if e.Dialect.Prefix == "" {
		return Statement{}, fmt.Errorf("dialect %q has no parameter prefix", e.Dialect.Name)
	}

	em := &emission{dialect: e.Dialect}
	if err := em.node(n, true); err != nil {
		return Statement{}, err
	}
	return Statement{SQL: em.buf.String(), Params: em.params}, nil
}

// counter allocates parameter keys. One counter is shared by the whole
// statement so keys never repeat, even for the same field.
type counter struct {
	next int
}

func (c *counter) key(field string) string {
	key := strings.ReplaceAll(field, ".", "_") + "_p" + strconv.Itoa(c.next)
	c.next++
	return key
}

// emission is the state of rendering one statement.
type emission struct {
	dialect dialect.Dialect
	buf     strings.Builder
	params  []Param
	keys    counter
}

func (em *emission) node(n predicate.Node, root bool) error {
	switch v := n.(type) {
	case nil:
		if root {
			return nil
		}
		return fmt.Errorf("nil node in group")
	case predicate.Comparison:
		em.comparison(v)
	case *predicate.Comparison:
		em.comparison(*v)
	case predicate.SetMembership:
		em.setMembership(v)
	case *predicate.SetMembership:
		em.setMembership(*v)
	case predicate.Group:
		return em.group(v, root)
	case *predicate.Group:
		return em.group(*v, root)
	default:
		return fmt.Errorf("unsupported predicate node: %T", n)
	}
	return nil
}

func (em *emission) column(f predicate.FieldRef) string {
	return em.dialect.QuoteIdent(f.ColumnName())
}

func (em *emission) bind(field string, v ir.IRValue) string {
	key := em.keys.key(field)
	em.params = append(em.params, Param{Name: key, Value: v})
	return em.dialect.Placeholder(key)
}

// comparison renders "col op @key", or IS [NOT] NULL without a parameter.
func (em *emission) comparison(c predicate.Comparison) {
	col := em.column(c.Field)
	if ir.IsNull(c.Value) {
		if c.Op == predicate.Ne {
			fmt.Fprintf(&em.buf, "%s IS NOT NULL", col)
			return
		}
		fmt.Fprintf(&em.buf, "%s IS NULL", col)
		return
	}
	fmt.Fprintf(&em.buf, "%s %s %s", col, c.Op, em.bind(c.Field.Name, c.Value))
}

// setMembership renders "col [NOT ]IN @key" binding the whole collection.
func (em *emission) setMembership(s predicate.SetMembership) {
	op := "IN"
	if s.Negated {
		op = "NOT IN"
	}
	values := s.Values
	if values == nil {
		values = ir.IRArray{}
	}
	fmt.Fprintf(&em.buf, "%s %s %s", em.column(s.Field), op, em.bind(s.Field.Name, values))
}

func (em *emission) group(g predicate.Group, root bool) error {
	switch len(g.Children) {
	case 0:
		if root {
			return nil
		}
		return fmt.Errorf("empty nested group; normalize the predicate first")
	case 1:
		// A single child never gets its own parentheses.
		return em.node(g.Children[0], root)
	}

	if !root {
		em.buf.WriteByte('(')
	}
	for i, child := range g.Children {
		if i > 0 {
			op := child.Link()
			if op == predicate.None {
				op = predicate.And
			}
			em.buf.WriteString(" " + op.String() + " ")
		}
		if err := em.node(child, false); err != nil {
			return err
		}
	}
	if !root {
		em.buf.WriteByte(')')
	}
	return nil
}
