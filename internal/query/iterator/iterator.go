// Package iterator evaluates every extracted QuerySpec against the Index
// Store, walks the cross-product of their hit lists in digit-odometer
// order, and for each permutation evaluates the residual query against the
// underlying triple store, extending each resulting row with the
// permutation's derived bindings.
//
// The iterator is single-threaded cooperative pull: a caller drives it via
// repeated Next calls; it holds at most one open underlying-store cursor
// at a time.
package iterator

import (
	"context"
	"strconv"
	"strings"

	bleveq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kreuzverweis/lucenesail/internal/document"
	"github.com/kreuzverweis/lucenesail/internal/errs"
	"github.com/kreuzverweis/lucenesail/internal/index"
	"github.com/kreuzverweis/lucenesail/internal/query"
	"github.com/kreuzverweis/lucenesail/internal/resource"
	"github.com/kreuzverweis/lucenesail/internal/triplestore"
)

// DefaultMaxHitsPerSpec bounds how many hits are collected per QuerySpec. A
// fixed ceiling keeps one textual sub-query from exhausting memory while
// still covering any realistic test or demo corpus.
const DefaultMaxHitsPerSpec = 1000

// hit is the per-permutation-digit information carried forward from the
// Index Store search for one QuerySpec.
type hit struct {
	subject resource.ID
	score   float64
	snippet string
}

// Iterator evaluates a set of textual QuerySpecs plus their residual query.
type Iterator struct {
	ctx             context.Context
	store           triplestore.Store
	specs           []*query.QuerySpec
	residual        query.Node
	baseBindings    query.BindingSet
	includeInferred bool

	hitLists  [][]hit
	odometer  []int
	exhausted bool

	current triplestore.Cursor[query.BindingSet]
	pending query.BindingSet // derived bindings for the permutation `current` was opened against
}

// New collects hits for every spec from idx and prepares the iterator. It
// returns an already-exhausted Iterator (no error) if any spec's hit list
// is empty, since the cross-product of an empty set with anything is
// empty.
func New(
	ctx context.Context,
	idx *index.Store,
	store triplestore.Store,
	specs []*query.QuerySpec,
	residual query.Node,
	baseBindings query.BindingSet,
	includeInferred bool,
	maxHitsPerSpec int,
) (*Iterator, error) {
	if maxHitsPerSpec <= 0 {
		maxHitsPerSpec = DefaultMaxHitsPerSpec
	}
	if baseBindings == nil {
		baseBindings = query.BindingSet{}
	}

	it := &Iterator{
		ctx:             ctx,
		store:           store,
		specs:           specs,
		residual:        residual,
		baseBindings:    baseBindings,
		includeInferred: includeInferred,
		hitLists:        make([][]hit, len(specs)),
		odometer:        make([]int, len(specs)),
	}

	for i, spec := range specs {
		hits, err := it.collectHits(idx, spec, maxHitsPerSpec)
		if err != nil {
			return nil, err
		}
		it.hitLists[i] = hits
		if len(hits) == 0 {
			it.exhausted = true
		}
	}

	return it, nil
}

func (it *Iterator) collectHits(idx *index.Store, spec *query.QuerySpec, maxHits int) ([]hit, error) {
	field := ""
	highlightField := ""
	if spec.PropertyURI != nil {
		field = spec.PropertyURI.String()
	}
	if spec.SnippetVar != nil {
		if field != "" {
			highlightField = field
		} else {
			highlightField = document.TextField
		}
	}

	var q bleveq.Query
	if spec.Geo != nil {
		q = idx.ParseGeoQuery(*spec.Geo)
	} else {
		var err error
		q, err = idx.ParseQuery(spec.QueryString, field)
		if err != nil {
			return nil, err
		}
	}

	var hits []hit
	err := idx.WithSearcher(func(se *index.Searcher) error {
		if spec.SubjectVar.IsResource() {
			matched, err := se.SearchWithin(*spec.SubjectVar.Resource, q)
			if err != nil {
				return err
			}
			if matched != nil {
				hits = []hit{toHit(*matched, highlightField)}
			}
			return nil
		}

		rawHits, err := se.Search(q, maxHits, highlightField)
		if err != nil {
			return err
		}
		hits = make([]hit, len(rawHits))
		for i, h := range rawHits {
			hits[i] = toHit(h, highlightField)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func toHit(h index.Hit, highlightField string) hit {
	snippet := ""
	if highlightField != "" {
		snippet = strings.Join(h.Fragments[highlightField], "...")
	}
	return hit{subject: h.Subject, score: h.Score, snippet: snippet}
}

// Next advances the iterator and returns the next binding row, extending
// the underlying store's solution with the permutation's derived
// bindings. ok is false once every permutation has been exhausted.
func (it *Iterator) Next() (query.BindingSet, bool, error) {
	for {
		if it.exhausted {
			return nil, false, nil
		}

		if it.current == nil {
			derived, ok := it.buildDerivedBindings()
			if !ok {
				// Conflicting match-variable bindings: this permutation
				// contributes nothing; move on to the next one.
				if !it.advanceOdometer() {
					it.exhausted = true
				}
				continue
			}

			bindings := it.baseBindings.Clone()
			for k, v := range derived {
				bindings[k] = v
			}

			cur, err := it.store.Evaluate(it.ctx, it.residual, bindings, it.includeInferred)
			if err != nil {
				return nil, false, errs.NewStoreError("evaluate residual query", err)
			}
			it.current = cur
			it.pending = derived
		}

		row, ok, err := it.current.Next()
		if err != nil {
			return nil, false, errs.NewStoreError("advance residual query cursor", err)
		}
		if !ok {
			_ = it.current.Close()
			it.current = nil
			if !it.advanceOdometer() {
				it.exhausted = true
			}
			continue
		}

		extended := row.Clone()
		for k, v := range it.pending {
			extended[k] = v
		}
		return extended, true, nil
	}
}

// buildDerivedBindings builds the current permutation's bindings: the
// match variable bound to the hit subject, plus any score/snippet
// variables. ok is false if two specs bind the same match variable to
// different resources, in which case the permutation is discarded.
func (it *Iterator) buildDerivedBindings() (query.BindingSet, bool) {
	bindings := query.BindingSet{}
	for i, spec := range it.specs {
		h := it.hitLists[i][it.odometer[i]]

		if spec.MatchVar != "" {
			if existing, bound := bindings[spec.MatchVar]; bound {
				if existing.Resource == nil || *existing.Resource != h.subject {
					return nil, false
				}
			} else {
				bindings[spec.MatchVar] = query.ResourceBinding(h.subject)
			}
		}

		if spec.ScoreVar != nil && h.score > 0 {
			bindings[*spec.ScoreVar] = query.LiteralBinding(strconv.FormatFloat(h.score, 'f', -1, 64))
		}

		if spec.SnippetVar != nil && h.snippet != "" {
			bindings[*spec.SnippetVar] = query.LiteralBinding(h.snippet)
		}
	}
	return bindings, true
}

// advanceOdometer increments the least-significant (last) digit, carrying
// into more significant (earlier) digits on overflow. It returns false
// once the most significant digit overflows, meaning every permutation has
// been visited.
func (it *Iterator) advanceOdometer() bool {
	for i := len(it.odometer) - 1; i >= 0; i-- {
		it.odometer[i]++
		if it.odometer[i] < len(it.hitLists[i]) {
			return true
		}
		it.odometer[i] = 0
	}
	return false
}

// Close frees the iterator's open underlying-store cursor, if any, and
// marks it exhausted; further Next calls return end-of-stream.
func (it *Iterator) Close() error {
	it.exhausted = true
	if it.current != nil {
		err := it.current.Close()
		it.current = nil
		return err
	}
	return nil
}
