package predicate

import (
	"fmt"
	"strings"

	"github.com/roach88/predsql/internal/ir"
)

// Format renders n as a human-readable, fully explicit string for logs and
// test failure messages. Groups always print their brackets, so the tree
// shape is visible: [A = "x" OR [B = 1 AND C IS NULL]].
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case nil:
		sb.WriteString("<nil>")
	case Comparison:
		formatComparison(sb, v)
	case *Comparison:
		formatComparison(sb, *v)
	case SetMembership:
		formatSetMembership(sb, v)
	case *SetMembership:
		formatSetMembership(sb, *v)
	case Group:
		formatGroup(sb, v)
	case *Group:
		formatGroup(sb, *v)
	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}

func formatComparison(sb *strings.Builder, c Comparison) {
	if ir.IsNull(c.Value) {
		if c.Op == Ne {
			fmt.Fprintf(sb, "%s IS NOT NULL", c.Field.Name)
			return
		}
		fmt.Fprintf(sb, "%s IS NULL", c.Field.Name)
		return
	}
	fmt.Fprintf(sb, "%s %s %s", c.Field.Name, c.Op, formatValue(c.Value))
}

func formatSetMembership(sb *strings.Builder, s SetMembership) {
	op := "IN"
	if s.Negated {
		op = "NOT IN"
	}
	fmt.Fprintf(sb, "%s %s %s", s.Field.Name, op, formatValue(s.Values))
}

func formatGroup(sb *strings.Builder, g Group) {
	sb.WriteByte('[')
	for i, child := range g.Children {
		if i > 0 {
			fmt.Fprintf(sb, " %s ", childLink(child))
		}
		format(sb, child)
	}
	sb.WriteByte(']')
}

func formatValue(v ir.IRValue) string {
	data, err := ir.MarshalIRValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
