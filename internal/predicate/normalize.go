package predicate

import "fmt"

// Normalize rewrites n into its flattened, minimally parenthesized form.
//
// Runs of nodes joined by the same operator become one n-ary group; a
// group is nested only where AND and OR meet. Single-child groups collapse
// into their child and empty groups disappear. The result of normalizing
// an empty predicate is an empty Group.
//
// Normalize is a pure function: the input is never modified, and
// Normalize(Normalize(n)) equals Normalize(n).
func Normalize(n Node) Node {
	if n == nil {
		return Group{}
	}
	out, ok := normalize(n)
	if !ok {
		return Group{}
	}
	return WithLink(out, None)
}

// normalize returns the normalized form of n, keeping n's own linking
// operator. ok is false when n is (or reduces to) an empty group.
func normalize(n Node) (Node, bool) {
	switch v := n.(type) {
	case Comparison, SetMembership:
		return v, true
	case *Comparison:
		return *v, true
	case *SetMembership:
		return *v, true
	case Group:
		return normalizeGroup(v)
	case *Group:
		return normalizeGroup(*v)
	default:
		panic(fmt.Sprintf("predicate: unknown node type %T", n))
	}
}

// normalizeGroup normalizes the children of g and recombines them.
//
// Children are folded with SQL precedence: consecutive AND-linked
// children are merged first, then the resulting terms are merged with OR.
// For the binary groups the extractor produces this reduces to a single
// merge(left, op, right).
func normalizeGroup(g Group) (Node, bool) {
	kids := make([]Node, 0, len(g.Children))
	for _, child := range g.Children {
		if nc, ok := normalize(child); ok {
			kids = append(kids, nc)
		}
	}
	if len(kids) == 0 {
		return nil, false
	}

	var terms []Node
	acc := kids[0]
	for _, k := range kids[1:] {
		if childLink(k) == Or {
			terms = append(terms, acc)
			acc = k
			continue
		}
		acc = merge(acc, And, k)
	}
	terms = append(terms, acc)

	result := terms[0]
	for _, term := range terms[1:] {
		result = merge(result, Or, term)
	}

	// A single surviving child replaces the group and inherits its link.
	return WithLink(result, g.Linking), true
}

// merge joins two normalized nodes with op.
//
// A side whose dominant operator equals op contributes its children
// (flattening one level); any other side is kept whole. This covers every
// case:
//
//	a AND (c AND d)         → (a AND c AND d)      leaf + group: splice
//	(a AND b) AND c         → (a AND b AND c)      group + leaf: append
//	(a AND b) AND (c AND d) → (a AND b AND c AND d) group + group: concatenate
//	(a AND b) OR (c AND d)  → ((a AND b) OR (c AND d)) mismatch: nest both
//	a OR b                  → (a OR b)             leaf + leaf: new group
//
// Two nodes are merged into one run only if their connecting operators
// are identical. When the left side is an op-group and the right side is
// a mismatched group, the right group becomes a single nested child.
func merge(left Node, op LogicalOp, right Node) Node {
	children := make([]Node, 0, 4)
	children = append(children, operands(left, op)...)
	children = append(children, operands(right, op)...)
	return Group{Children: linkAll(children, op)}
}

// operands returns the nodes n contributes to a run joined by op.
func operands(n Node, op LogicalOp) []Node {
	if g, ok := n.(Group); ok && len(g.Children) >= 2 && g.Dominant() == op {
		return g.Children
	}
	return []Node{n}
}
