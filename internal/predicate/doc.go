// Package predicate provides the in-memory representation of a boolean
// predicate over named entity fields, and the group normalizer that
// rewrites it into its minimally parenthesized form.
//
// ARCHITECTURE:
//
// The predicate AST sits between the front-end extractor and the SQL
// emitter:
//
//	[Go predicate source] → [extract] → [raw AST] → [Normalize] → [querysql]
//
// NODES:
//
// Node is a sealed interface using the marker method pattern. Only types
// in this package implement it:
//   - Comparison: field <op> value, where a null value means IS [NOT] NULL
//   - SetMembership: field [NOT] IN (values)
//   - Group: an ordered list of children
//
// LINKING OPERATORS:
//
// Every node carries a Linking operator: the AND/OR that attaches it to
// its preceding sibling inside the parent group. The first child of a
// group has no meaningful linking operator. A group's own Linking field
// attaches the group to its parent; the operator joining its children is
// stored on each child. A missing linking operator on a non-first child
// is read as AND.
//
// Children of one group are combined with SQL precedence: AND runs bind
// tighter than OR. So Group{a, b(OR), c(AND)} means a OR (b AND c).
//
// NORMALIZATION:
//
// The extractor produces binary groups, one per && or ||. Normalize
// flattens runs of the same operator into one n-ary group and nests a
// group only at an AND/OR boundary. A normalized group is homogeneous:
// every non-first child carries the same operator, its dominant operator.
// Parentheses are therefore needed around a nested group exactly when it
// has two or more children.
//
// Normalize never mutates its input; every rewrite step builds new nodes.
package predicate
