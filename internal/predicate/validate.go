package predicate

import (
	"fmt"

	"github.com/roach88/predsql/internal/ir"
)

// ValidationResult contains the structural problems found in a predicate.
//
// The extractor only produces valid trees. Validation exists for trees
// built programmatically (AllOf, AnyOf, Compare, ...) before they are
// handed to the emitter.
type ValidationResult struct {
	// IsValid indicates the tree can be normalized and emitted as is.
	IsValid bool

	// Problems lists every violation found, in traversal order.
	Problems []string

	// Err is the first violation as a CompileError, nil when IsValid.
	Err error
}

// Validate checks a predicate tree against the AST invariants:
//  1. every field reference has a name and a depth of 0 or 1
//  2. comparison operators are one of = != < <= > >=
//  3. a null comparison uses = or != only
//  4. comparison values are scalars; set membership values are scalars
//
// Validate is a pure function with no side effects.
func Validate(n Node) ValidationResult {
	v := &validator{}
	v.validateNode(n)

	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
		Err:      v.first,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
	first    error
}

// addProblem records a problem and keeps the first as an error.
func (v *validator) addProblem(err *CompileError) {
	v.problems = append(v.problems, err.Error())
	if v.first == nil {
		v.first = err
	}
}

// validateNode recursively validates a node.
func (v *validator) validateNode(n Node) {
	if n == nil {
		return // nil predicates are valid (no filter)
	}

	switch node := n.(type) {
	case Comparison:
		v.validateComparison(node)
	case *Comparison:
		v.validateComparison(*node)
	case SetMembership:
		v.validateSetMembership(node)
	case *SetMembership:
		v.validateSetMembership(*node)
	case Group:
		v.validateGroup(node)
	case *Group:
		v.validateGroup(*node)
	default:
		v.addProblem(NewUnsupportedPredicateError("", "unknown node type %T", n))
	}
}

// validateField checks a field reference.
func (v *validator) validateField(f FieldRef) bool {
	if f.Name == "" {
		v.addProblem(NewUnknownFieldError("", ""))
		return false
	}
	if f.Depth < 0 || f.Depth > 1 {
		v.addProblem(NewUnsupportedNestingError(f.Name, "", f.Depth))
		return false
	}
	return true
}

// validateComparison validates a Comparison node.
func (v *validator) validateComparison(c Comparison) {
	v.validateField(c.Field)

	if !c.Op.Valid() {
		v.addProblem(NewUnsupportedPredicateError("", "unsupported comparison operator %q on %s", c.Op, c.Field.Name))
		return
	}
	if ir.IsNull(c.Value) {
		if c.Op != Eq && c.Op != Ne {
			v.addProblem(NewValueResolutionError("", fmt.Errorf("null can only be compared with == or != (field %s uses %s)", c.Field.Name, c.Op)))
		}
		return
	}
	if !ir.IsScalar(c.Value) {
		v.addProblem(NewValueResolutionError("", fmt.Errorf("field %s is compared with an array; use set membership", c.Field.Name)))
	}
}

// validateSetMembership validates a SetMembership node.
func (v *validator) validateSetMembership(s SetMembership) {
	v.validateField(s.Field)

	for i, elem := range s.Values {
		if !ir.IsScalar(elem) {
			v.addProblem(NewValueResolutionError("", fmt.Errorf("set for field %s has a nested collection at index %d", s.Field.Name, i)))
		}
	}
}

// validateGroup recursively validates all children.
func (v *validator) validateGroup(g Group) {
	for _, child := range g.Children {
		v.validateNode(child)
	}
}
