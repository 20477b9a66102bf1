// Package fact defines the triple (subject, predicate, object, context)
// that flows between the triple store and the full-text index.
package fact

import (
	"errors"

	"github.com/kreuzverweis/lucenesail/internal/resource"
)

// Value is an object value. Only Literal participates in the index; every
// other shape (a resource object, i.e. a URI or blank node) is ignored by
// the indexing path, and every literal is indexed as text regardless of any
// declared datatype: datatypes are ignored.
type Value struct {
	// Literal, when non-nil, carries the textual lexical form of a literal
	// object. A nil Literal means the object is a resource (URI/blank node)
	// and the owning Fact does not participate in the index.
	Literal *string
}

// NewLiteral builds an object Value for a textual literal.
func NewLiteral(lexicalForm string) Value {
	return Value{Literal: &lexicalForm}
}

// NewResourceValue builds an object Value for a resource (non-literal)
// object; such facts are never indexed.
func NewResourceValue() Value {
	return Value{}
}

// IsLiteral reports whether v carries a textual literal.
func (v Value) IsLiteral() bool {
	return v.Literal != nil
}

// Fact is a single subject-predicate-object-context statement.
type Fact struct {
	Subject   resource.ID
	Predicate resource.ID
	Object    Value
	// Context is the named graph tag, or the NullContext sentinel for the
	// default graph.
	Context resource.ID
}

// New builds a Fact, defaulting an empty Context to the null-context
// sentinel.
func New(subject, predicate resource.ID, object Value, context resource.ID) (Fact, error) {
	if subject == "" {
		return Fact{}, errors.New("fact: subject must not be empty")
	}
	if predicate == "" {
		return Fact{}, errors.New("fact: predicate must not be empty")
	}
	if context == "" {
		context = resource.ID(resource.NullContext)
	}

	return Fact{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Context:   context,
	}, nil
}

// IsIndexable reports whether this fact participates in the full-text
// index: only facts whose object is a textual literal do.
func (f Fact) IsIndexable() bool {
	return f.Object.IsLiteral()
}

// Key returns a value suitable for use as a map key identifying this exact
// fact (same subject, predicate, lexical form, and context). Facts with a
// non-literal object carry no object identity in this system, so all such
// facts sharing subject, predicate, and context have the same Key.
func (f Fact) Key() string {
	lexical := ""
	if f.Object.IsLiteral() {
		lexical = *f.Object.Literal
	} else {
		lexical = "\x00resource"
	}
	return string(f.Subject) + "\x1f" + string(f.Predicate) + "\x1f" + lexical + "\x1f" + string(f.Context)
}
