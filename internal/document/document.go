// Package document translates between triples and the per-subject document
// shape that is actually indexed: pure functions that fold a subject's
// indexable facts into a Document and enforce its invariants (at least one
// indexed literal, deduplicated per-predicate labels, aggregated text and
// geo-point fields, deduplicated contexts).
package document

import (
	"errors"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/kreuzverweis/lucenesail/internal/fact"
	"github.com/kreuzverweis/lucenesail/internal/resource"
)

// Field name constants shared by the mapper, the Index Store, and the
// Synchroniser.
const (
	IDField      = "id"
	ContextField = "context"
	TextField    = "text"

	// GeoContextField is the well-known geo-point field the geo extension
	// predicates (NS.geoDegreesLat/Long/Tolerance) query against.
	GeoContextField = "geocontext"
)

// label is a single (predicate, lexical form) occurrence on a document.
type label struct {
	predicate resource.ID
	value     string
}

// Document is one indexed subject: its id, the contexts that contributed to
// it, its per-predicate literal fields, and the aggregated text field.
// Document is a plain data carrier; Index Store translates it to and from a
// concrete bleve document.
type Document struct {
	ID resource.ID

	// contexts holds, in first-seen order, each distinct context that
	// contributed an indexed fact (invariant 4).
	contexts []resource.ID

	// properties holds, in first-seen order, each distinct (predicate,
	// label) pair across all predicates (invariant 5).
	properties []label

	// text aggregates every distinct label across all predicates,
	// regardless of predicate, for default-field search (invariant 2).
	text []string

	// geo holds the first-seen literal value, aggregated across predicates
	// like text, that parses as "<lat>,<long>" degrees. A document has at
	// most one geo-point value regardless of which predicate carried it.
	geo *string
}

// NewDocument builds a fresh document for subject from a list of facts,
// equivalent to the mapper's make_document. Only facts whose object is a
// textual literal participate; facts of other subjects are rejected.
// Returns an error if no fact is indexable, since a document only exists
// for a subject with at least one indexed literal fact (invariant 3).
func NewDocument(subject resource.ID, facts []fact.Fact) (*Document, error) {
	doc := &Document{ID: subject}

	added := 0
	for _, f := range facts {
		if f.Subject != subject {
			return nil, errors.New("document: fact subject does not match document subject")
		}
		if !f.IsIndexable() {
			continue
		}
		doc.addProperty(f)
		doc.addContextIfAbsent(f.Context)
		added++
	}

	if added == 0 {
		return nil, errors.New("document: no indexable facts for subject")
	}

	return doc, nil
}

// Has reports whether doc has a (predicate, label) entry equal to label,
// i.e. membership test across the predicate field.
func (d *Document) Has(predicate resource.ID, value string) bool {
	return slices.ContainsFunc(d.properties, func(l label) bool {
		return l.predicate == predicate && l.value == value
	})
}

// PropertyFieldCount returns the count of fields that are not id, context,
// or text: the number of distinct predicates with at least one label.
func (d *Document) PropertyFieldCount() int {
	predicates := lo.Uniq(lo.Map(d.properties, func(l label, _ int) resource.ID {
		return l.predicate
	}))
	return len(predicates)
}

// AddProperty augments doc in place with a single indexable fact, used by
// the incremental single-fact add path. It is a no-op if the fact is not
// indexable, belongs to a different subject, or duplicates an existing
// (predicate, label) pair (invariant 5).
func (d *Document) AddProperty(f fact.Fact) {
	if f.Subject != d.ID || !f.IsIndexable() {
		return
	}
	d.addProperty(f)
}

func (d *Document) addProperty(f fact.Fact) {
	value := *f.Object.Literal
	if d.Has(f.Predicate, value) {
		return
	}
	d.properties = append(d.properties, label{predicate: f.Predicate, value: value})
	if !slices.Contains(d.text, value) {
		d.text = append(d.text, value)
	}
	d.setGeoIfAbsent(value)
}

// setGeoIfAbsent records value as the document's geo-point if none has been
// recorded yet and value parses as "<lat>,<long>" degrees.
func (d *Document) setGeoIfAbsent(value string) {
	if d.geo != nil {
		return
	}
	lat, long, ok := parseGeoPair(value)
	if !ok {
		return
	}
	normalized := cast.ToString(lat) + "," + cast.ToString(long)
	d.geo = &normalized
}

// parseGeoPair recognizes a "<lat>,<long>" literal, the lexical form the geo
// extension predicates are evaluated against.
func parseGeoPair(value string) (lat, long float64, ok bool) {
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, errLat := cast.ToFloat64E(strings.TrimSpace(parts[0]))
	long, errLong := cast.ToFloat64E(strings.TrimSpace(parts[1]))
	if errLat != nil || errLong != nil {
		return 0, 0, false
	}
	return lat, long, true
}

// AddContextIfAbsent augments doc in place with context, if it is not
// already present (invariant 5).
func (d *Document) AddContextIfAbsent(context resource.ID) {
	d.addContextIfAbsent(context)
}

func (d *Document) addContextIfAbsent(context resource.ID) {
	if !slices.Contains(d.contexts, context) {
		d.contexts = append(d.contexts, context)
	}
}

// Contexts returns the distinct contexts that contributed to doc, in
// first-seen order.
func (d *Document) Contexts() []resource.ID {
	return slices.Clone(d.contexts)
}

// PropertyValues returns the distinct labels indexed for predicate, in
// first-seen order.
func (d *Document) PropertyValues(predicate resource.ID) []string {
	var values []string
	for _, l := range d.properties {
		if l.predicate == predicate {
			values = append(values, l.value)
		}
	}
	return values
}

// Predicates returns every distinct predicate with at least one indexed
// label on doc.
func (d *Document) Predicates() []resource.ID {
	return lo.Uniq(lo.Map(d.properties, func(l label, _ int) resource.ID {
		return l.predicate
	}))
}

// Text returns the aggregated text field: every distinct literal label
// across all predicates.
func (d *Document) Text() []string {
	return slices.Clone(d.text)
}

// Geo returns the document's geo-point value (the GeoContextField lexical
// form), if any aggregated literal parsed as "<lat>,<long>" degrees.
func (d *Document) Geo() (string, bool) {
	if d.geo == nil {
		return "", false
	}
	return *d.geo, true
}

// IsEmpty reports whether doc has lost every indexed literal fact, i.e. it
// no longer has any property field and must be destroyed (invariant 3).
func (d *Document) IsEmpty() bool {
	return len(d.properties) == 0
}

// ResourceOf is the inverse of the resource-identifier encoding applied to a
// document's id field: it simply reinterprets the stored string as a
// resource.ID, since id fields are stored verbatim.
func ResourceOf(idValue string) resource.ID {
	return resource.ID(idValue)
}
