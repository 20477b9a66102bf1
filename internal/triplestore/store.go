// Package triplestore defines the external contract of the underlying
// triple store this module augments with a secondary full-text index. The
// triple store implementation itself lives elsewhere (memstore is a fake
// for tests and the demo); this package only states the interface a
// concrete store must satisfy, plus the few supporting types (a pull
// cursor, a fact-change listener) the rest of the module needs from it.
package triplestore

import (
	"context"

	"github.com/kreuzverweis/lucenesail/internal/fact"
	"github.com/kreuzverweis/lucenesail/internal/query"
	"github.com/kreuzverweis/lucenesail/internal/resource"
)

// Cursor is a pull-style stream of T, closed by the consumer once
// exhausted or abandoned.
type Cursor[T any] interface {
	// Next returns the next element. ok is false once the cursor is
	// exhausted; err is non-nil only on a read failure.
	Next() (T, bool, error)
	Close() error
}

// ObjectFilter restricts Statements to facts whose object is a given
// literal lexical form. A nil ObjectFilter, like a nil subject/predicate,
// means wildcard. There is no equivalent resource-object filter: fact.Value
// carries no identity for a non-literal object (only literal objects
// participate in the index this module maintains), so there is nothing a
// resource-object filter could compare against.
type ObjectFilter struct {
	Literal *string
}

// LiteralFilter restricts to facts whose object is this literal.
func LiteralFilter(value string) *ObjectFilter {
	return &ObjectFilter{Literal: &value}
}

// Matches reports whether f's object satisfies the filter.
func (of *ObjectFilter) Matches(v fact.Value) bool {
	if of == nil || of.Literal == nil {
		return true
	}
	return v.IsLiteral() && *v.Literal == *of.Literal
}

// FactEvent is one add/remove notification delivered to a Listener.
type FactEvent struct {
	Added bool
	Fact  fact.Fact
}

// Listener receives FactEvents in the order the triple store applies them.
// Implementations must return quickly; the Store is not required to
// buffer slow listeners.
type Listener func(FactEvent)

// Store is the contract a concrete triple store must satisfy for this
// module to maintain its full-text index.
type Store interface {
	// Statements streams every fact matching the given pattern. A nil
	// subject, predicate, or object means wildcard. It MUST be usable
	// during the Synchroniser's apply, i.e. it observes the current
	// transaction's own writes.
	Statements(ctx context.Context, subject, predicate *resource.ID, object *ObjectFilter, includeInferred bool) (Cursor[fact.Fact], error)

	// Evaluate evaluates a structured residual query with the given
	// initial bindings, streaming one BindingSet per solution.
	Evaluate(ctx context.Context, residual query.Node, bindings query.BindingSet, includeInferred bool) (Cursor[query.BindingSet], error)

	// AddListener registers l to receive every subsequent fact add/remove
	// event, in order. The returned func unregisters it.
	AddListener(l Listener) (unregister func())
}
