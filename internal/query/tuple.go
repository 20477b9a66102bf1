// Package query recognizes textual sub-patterns embedded in a structured
// graph-pattern query, extracts them into QuerySpecs, and substitutes them
// with a tautology so the remainder — the residual query — can be handed
// to the underlying triple store unchanged.
//
// The structured query itself is modeled as a minimal tuple-expression
// tree: a Join of StatementPatterns and opaque subtrees the interpreter
// does not need to understand (the rest of the graph-pattern algebra
// already belongs to the underlying store).
package query

import (
	"github.com/kreuzverweis/lucenesail/internal/resource"
)

// Var is the name of a free variable in a structured query.
type Var string

// Term is either a bound value (a resource or a literal) or a free
// variable. Exactly one of Variable, Resource, Literal should be set; the
// zero Term is an unbound placeholder and is never valid as input.
type Term struct {
	Variable *Var
	Resource *resource.ID
	Literal  *string
}

// VarTerm builds a free-variable Term.
func VarTerm(name Var) Term {
	return Term{Variable: &name}
}

// ResourceTerm builds a Term bound to a concrete resource.
func ResourceTerm(id resource.ID) Term {
	return Term{Resource: &id}
}

// LiteralTerm builds a Term bound to a literal lexical form.
func LiteralTerm(value string) Term {
	return Term{Literal: &value}
}

// IsVar reports whether t is a free variable.
func (t Term) IsVar() bool {
	return t.Variable != nil
}

// IsResource reports whether t is bound to a concrete resource.
func (t Term) IsResource() bool {
	return t.Resource != nil
}

// IsLiteral reports whether t is bound to a literal.
func (t Term) IsLiteral() bool {
	return t.Literal != nil
}

// VarName returns the variable name and true if t is a free variable.
func (t Term) VarName() (Var, bool) {
	if t.Variable == nil {
		return "", false
	}
	return *t.Variable, true
}

// StatementPattern is one subject-predicate-object triple pattern, each
// position either bound or a free variable. Context is omitted: the
// textual sub-patterns this interpreter recognizes never constrain it.
type StatementPattern struct {
	Subject   Term
	Predicate resource.ID
	Object    Term
}

// Node is a node of the structured query's tuple-expression tree.
type Node interface {
	isNode()
}

// Pattern wraps a single StatementPattern as a tree leaf. It is a pointer
// type so the interpreter can track which leaves it has consumed by
// identity when building the residual query.
type Pattern struct {
	SP StatementPattern
}

func (*Pattern) isNode() {}

// Join conjoins two subtrees (a basic graph pattern join).
type Join struct {
	Left, Right Node
}

func (*Join) isNode() {}

// Tautology is the empty singleton set: a no-op graph pattern that
// contributes exactly one (empty) solution, used to replace a consumed
// textual sub-pattern group in the residual query.
type Tautology struct{}

func (Tautology) isNode() {}

// Opaque represents any subtree of the underlying store's algebra that the
// interpreter does not model (e.g. UNION, FILTER, property paths). It is
// passed through to the residual query unchanged. Label is for
// diagnostics only.
type Opaque struct {
	Label string
}

func (*Opaque) isNode() {}

func isTautology(n Node) bool {
	_, ok := n.(Tautology)
	return ok
}

// collectPatterns returns every *Pattern leaf reachable from n, in a
// stable left-to-right order.
func collectPatterns(n Node) []*Pattern {
	var out []*Pattern
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case *Pattern:
			out = append(out, t)
		case *Join:
			walk(t.Left)
			walk(t.Right)
		}
	}
	walk(n)
	return out
}

// substitute rebuilds n with every Pattern in consumed replaced by
// Tautology, simplifying away Joins against a Tautology branch.
func substitute(n Node, consumed map[*Pattern]bool) Node {
	switch t := n.(type) {
	case *Pattern:
		if consumed[t] {
			return Tautology{}
		}
		return t
	case *Join:
		left := substitute(t.Left, consumed)
		right := substitute(t.Right, consumed)
		if isTautology(left) {
			return right
		}
		if isTautology(right) {
			return left
		}
		return &Join{Left: left, Right: right}
	default:
		return n
	}
}
