package predicate

import (
	"fmt"

	"github.com/roach88/predsql/internal/ir"
)

// LogicalOp is the operator linking a node to its preceding sibling.
type LogicalOp int

const (
	// None marks the first child of a group (or the root).
	None LogicalOp = iota
	// And joins a node to its preceding sibling with AND.
	And
	// Or joins a node to its preceding sibling with OR.
	Or
)

// String returns the SQL keyword for the operator.
func (op LogicalOp) String() string {
	switch op {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return ""
	}
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	Eq CompareOp = "="
	Ne CompareOp = "!="
	Lt CompareOp = "<"
	Le CompareOp = "<="
	Gt CompareOp = ">"
	Ge CompareOp = ">="
)

// Valid reports whether op is one of the six supported comparisons.
func (op CompareOp) Valid() bool {
	switch op {
	case Eq, Ne, Lt, Le, Gt, Ge:
		return true
	default:
		return false
	}
}

// Flip returns the operator with its operands swapped: 5 < x becomes x > 5.
func (op CompareOp) Flip() CompareOp {
	switch op {
	case Lt:
		return Gt
	case Le:
		return Ge
	case Gt:
		return Lt
	case Ge:
		return Le
	default:
		return op
	}
}

// FieldRef is a validated reference to an entity field.
//
// Depth is 0 for a direct field (x.Account) and 1 for one level of
// navigation (x.Profile.Email). Deeper references are rejected before a
// FieldRef is ever built.
type FieldRef struct {
	Name   string // Field name known to the metadata provider
	Column string // Storage column; empty means Name
	Depth  int
}

// ColumnName returns the storage column, defaulting to the field name.
func (f FieldRef) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Node represents a predicate AST node.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the normalizer and the SQL emitter.
type Node interface {
	predicateNode() // Marker method - seals interface to this package

	// Link returns the operator attaching this node to its preceding sibling.
	Link() LogicalOp
}

// Comparison represents <field> <op> <value>.
//
// A null Value (nil or ir.IRNull) means the source value was null. Only Eq
// and Ne are meaningful against null; they render IS NULL and IS NOT NULL.
type Comparison struct {
	Linking LogicalOp
	Field   FieldRef
	Op      CompareOp
	Value   ir.IRValue
}

func (Comparison) predicateNode() {}

// Link implements Node.
func (c Comparison) Link() LogicalOp { return c.Linking }

// SetMembership represents <field> [NOT] IN (<values>).
//
// It is produced from a "collection contains field" construct. The whole
// Values array is bound as a single parameter.
type SetMembership struct {
	Linking LogicalOp
	Field   FieldRef
	Negated bool
	Values  ir.IRArray
}

func (SetMembership) predicateNode() {}

// Link implements Node.
func (s SetMembership) Link() LogicalOp { return s.Linking }

// Group represents an ordered list of children joined by the linking
// operator each child carries.
type Group struct {
	Linking  LogicalOp
	Children []Node
}

func (Group) predicateNode() {}

// Link implements Node.
func (g Group) Link() LogicalOp { return g.Linking }

// Dominant returns the operator joining the group's children: the link of
// the second child. Groups with fewer than two children have no dominant
// operator.
func (g Group) Dominant() LogicalOp {
	if len(g.Children) < 2 {
		return None
	}
	return childLink(g.Children[1])
}

// childLink reads the link of a non-first child, defaulting to And.
func childLink(n Node) LogicalOp {
	if op := n.Link(); op != None {
		return op
	}
	return And
}

// WithLink returns a copy of n attached to its sibling by op.
func WithLink(n Node, op LogicalOp) Node {
	switch v := n.(type) {
	case Comparison:
		v.Linking = op
		return v
	case *Comparison:
		c := *v
		c.Linking = op
		return c
	case SetMembership:
		v.Linking = op
		return v
	case *SetMembership:
		s := *v
		s.Linking = op
		return s
	case Group:
		v.Linking = op
		return v
	case *Group:
		g := *v
		g.Linking = op
		return g
	default:
		panic(fmt.Sprintf("predicate: unknown node type %T", n))
	}
}

// Binary builds the raw two-child group for left <op> right, the shape the
// extractor produces for every && and ||.
func Binary(left Node, op LogicalOp, right Node) Group {
	return Group{Children: []Node{WithLink(left, None), WithLink(right, op)}}
}

// AllOf builds a group whose children are joined with AND.
func AllOf(nodes ...Node) Group {
	return Group{Children: linkAll(nodes, And)}
}

// AnyOf builds a group whose children are joined with OR.
func AnyOf(nodes ...Node) Group {
	return Group{Children: linkAll(nodes, Or)}
}

// linkAll copies nodes into a new slice, clearing the first link and
// setting every other link to op.
func linkAll(nodes []Node, op LogicalOp) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		if i == 0 {
			out[i] = WithLink(n, None)
			continue
		}
		out[i] = WithLink(n, op)
	}
	return out
}

// Field returns a depth-0 FieldRef whose column equals its name.
func Field(name string) FieldRef {
	return FieldRef{Name: name}
}

// Compare builds a Comparison from a Go value. It panics on values
// ir.FromGo cannot convert and is intended for programmatic predicates
// and tests.
func Compare(field string, op CompareOp, value any) Comparison {
	v, err := ir.FromGo(value)
	if err != nil {
		panic(fmt.Sprintf("predicate: %s %s: %v", field, op, err))
	}
	return Comparison{Field: Field(field), Op: op, Value: v}
}

// In builds a SetMembership over the given values.
func In(field string, values ...any) SetMembership {
	arr := make(ir.IRArray, len(values))
	for i, value := range values {
		v, err := ir.FromGo(value)
		if err != nil {
			panic(fmt.Sprintf("predicate: %s IN [%d]: %v", field, i, err))
		}
		arr[i] = v
	}
	return SetMembership{Field: Field(field), Values: arr}
}

// NotIn builds a negated SetMembership over the given values.
func NotIn(field string, values ...any) SetMembership {
	s := In(field, values...)
	s.Negated = true
	return s
}
