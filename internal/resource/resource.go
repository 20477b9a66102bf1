// Package resource encodes and decodes the string tag used to identify a
// subject, object, or context resource throughout the index: a URI is used
// verbatim, a blank node is prefixed with a sentinel so it can never collide
// with a URI scheme, and the null context is the literal string "null".
package resource

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// BlankNodePrefix marks a resource tag as a blank-node identifier rather
// than a URI. '!' cannot begin a URI scheme (RFC 3986 scheme := ALPHA
// *( ALPHA / DIGIT / "+" / "-" / "." )), so the two tag spaces never collide.
const BlankNodePrefix = "!"

// NullContext is the sentinel tag for the default (unnamed) graph.
const NullContext = "null"

// ID is a resource tag: either a bare URI or a BlankNodePrefix-prefixed
// blank-node identifier.
type ID string

// IsBlankNode reports whether id denotes a blank node rather than a URI.
func (id ID) IsBlankNode() bool {
	return strings.HasPrefix(string(id), BlankNodePrefix)
}

// IsNullContext reports whether id is the sentinel null-context tag.
func (id ID) IsNullContext() bool {
	return string(id) == NullContext
}

// String returns the raw tag.
func (id ID) String() string {
	return string(id)
}

// FromURI builds a resource tag from a URI. The URI is used verbatim.
func FromURI(uri string) ID {
	return ID(uri)
}

// FromBlankNode builds a resource tag from a blank-node local identifier.
func FromBlankNode(localID string) ID {
	return ID(BlankNodePrefix + localID)
}

// LocalBlankNodeID strips the sentinel prefix, returning the original
// blank-node local identifier. ok is false if id is not a blank node.
func LocalBlankNodeID(id ID) (localID string, ok bool) {
	if !id.IsBlankNode() {
		return "", false
	}
	return strings.TrimPrefix(string(id), BlankNodePrefix), true
}

// Generator mints a fresh blank-node resource tag for a caller that has no
// stable local identifier of its own to encode.
type Generator interface {
	Generate(ctx context.Context) (ID, error)
}

var _ Generator = (*UUIDGenerator)(nil)

// UUIDGenerator mints blank-node tags from random UUIDs.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a fresh blank-node resource tag.
func (g *UUIDGenerator) Generate(_ context.Context) (ID, error) {
	return FromBlankNode(uuid.New().String()), nil
}
