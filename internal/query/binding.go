package query

import "github.com/kreuzverweis/lucenesail/internal/resource"

// Binding is the value assigned to one variable in a solution row: either
// a resource or a literal lexical form.
type Binding struct {
	Resource *resource.ID
	Literal  *string
}

// ResourceBinding builds a Binding to a concrete resource.
func ResourceBinding(id resource.ID) Binding {
	return Binding{Resource: &id}
}

// LiteralBinding builds a Binding to a literal lexical form.
func LiteralBinding(value string) Binding {
	return Binding{Literal: &value}
}

// BindingSet is one solution row: an assignment of values to variables.
type BindingSet map[Var]Binding

// Clone returns a shallow copy of b, safe to mutate independently.
func (b BindingSet) Clone() BindingSet {
	out := make(BindingSet, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Lookup resolves t against b: a bound Term resolves to itself; a
// variable Term resolves to its binding in b, if any.
func (b BindingSet) Lookup(t Term) (Binding, bool) {
	if t.IsResource() {
		return ResourceBinding(*t.Resource), true
	}
	if t.IsLiteral() {
		return LiteralBinding(*t.Literal), true
	}
	name, ok := t.VarName()
	if !ok {
		return Binding{}, false
	}
	bound, ok := b[name]
	return bound, ok
}
