package predicate

import (
	"fmt"

	"github.com/roach88/predsql/internal/ir"
)

// Record supplies field values by field name during in-memory evaluation.
type Record map[string]ir.IRValue

// Matches evaluates n against rec with SQL WHERE semantics.
//
// A comparison involving a null field value is unknown, and an unknown
// row is filtered out exactly like a false one. Because the predicate
// grammar has no negation over groups, treating unknown as false at every
// level gives the same result SQL would. Fields missing from rec are null.
// An empty group matches every record.
func Matches(n Node, rec Record) bool {
	switch v := n.(type) {
	case nil:
		return true
	case Comparison:
		return matchComparison(v, rec)
	case *Comparison:
		return matchComparison(*v, rec)
	case SetMembership:
		return matchSetMembership(v, rec)
	case *SetMembership:
		return matchSetMembership(*v, rec)
	case Group:
		return matchGroup(v, rec)
	case *Group:
		return matchGroup(*v, rec)
	default:
		panic(fmt.Sprintf("predicate: unknown node type %T", n))
	}
}

func matchComparison(c Comparison, rec Record) bool {
	actual := rec[c.Field.Name]

	if ir.IsNull(c.Value) {
		if c.Op == Ne {
			return !ir.IsNull(actual)
		}
		return ir.IsNull(actual)
	}

	cmp, ok := ir.Compare(actual, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case Eq:
		return cmp == 0
	case Ne:
		return cmp != 0
	case Lt:
		return cmp < 0
	case Le:
		return cmp <= 0
	case Gt:
		return cmp > 0
	case Ge:
		return cmp >= 0
	default:
		return false
	}
}

func matchSetMembership(s SetMembership, rec Record) bool {
	actual := rec[s.Field.Name]
	if ir.IsNull(actual) {
		return false
	}

	member := false
	for _, elem := range s.Values {
		if cmp, ok := ir.Compare(actual, elem); ok && cmp == 0 {
			member = true
			break
		}
	}
	return member != s.Negated
}

// matchGroup evaluates children with SQL precedence: the group is true
// when any OR-separated run of AND-linked children is entirely true.
func matchGroup(g Group, rec Record) bool {
	if len(g.Children) == 0 {
		return true
	}

	runTrue := Matches(g.Children[0], rec)
	for _, child := range g.Children[1:] {
		if childLink(child) == Or {
			if runTrue {
				return true
			}
			runTrue = Matches(child, rec)
			continue
		}
		runTrue = runTrue && Matches(child, rec)
	}
	return runTrue
}
