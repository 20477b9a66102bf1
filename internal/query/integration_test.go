package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kreuzverweis/lucenesail/internal/config"
	"github.com/kreuzverweis/lucenesail/internal/fact"
	"github.com/kreuzverweis/lucenesail/internal/index"
	"github.com/kreuzverweis/lucenesail/internal/query"
	"github.com/kreuzverweis/lucenesail/internal/query/algebra"
	"github.com/kreuzverweis/lucenesail/internal/query/iterator"
	"github.com/kreuzverweis/lucenesail/internal/resource"
	synchroniser "github.com/kreuzverweis/lucenesail/internal/sync"
	"github.com/kreuzverweis/lucenesail/internal/triplestore"
	"github.com/kreuzverweis/lucenesail/internal/triplestore/memstore"
	"github.com/kreuzverweis/lucenesail/internal/txbuffer"
)

// harness wires the Synchroniser and the in-memory triple store fake
// together exactly as a real deployment's listener hook would, so the
// scenarios below exercise every component from fact ingestion through to
// the final row stream.
type harness struct {
	idx   *index.Store
	store *memstore.Store
	buf   *txbuffer.Buffer
	sync  *synchroniser.Synchroniser
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := config.Load(map[string]string{"useramdir": "true"})
	require.NoError(t, err)
	idx, err := index.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	store := memstore.New()
	buf := txbuffer.New()
	store.AddListener(func(ev triplestore.FactEvent) {
		if ev.Added {
			buf.Add(ev.Fact)
		} else {
			buf.Remove(ev.Fact)
		}
	})

	return &harness{idx: idx, store: store, buf: buf, sync: synchroniser.New(idx, store)}
}

func (h *harness) addLiteral(t *testing.T, subject, predicate, value string) {
	t.Helper()
	f, err := fact.New(resource.FromURI(subject), resource.FromURI(predicate), fact.NewLiteral(value), "")
	require.NoError(t, err)
	h.store.Add(f)
}

func (h *harness) apply(t *testing.T) {
	t.Helper()
	require.NoError(t, h.sync.Apply(context.Background(), h.buf))
}

// matchesSpec builds the structured-query group `?s NS.matches [ NS.query
// "<term>" ; NS.score ?sc ]` and extracts its QuerySpec, mirroring what a
// real caller's query translator would hand the iterator.
func matchesSpec(t *testing.T, term string, scoreVar query.Var) (*query.QuerySpec, query.Node) {
	t.Helper()
	blank := query.Var("m")
	matches := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm("s"),
		Predicate: query.PredicateMatches,
		Object:    query.VarTerm(blank),
	}}
	queryPattern := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm(blank),
		Predicate: query.PredicateQuery,
		Object:    query.LiteralTerm(term),
	}}
	scorePattern := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm(blank),
		Predicate: query.PredicateScore,
		Object:    query.VarTerm(scoreVar),
	}}
	root := &query.Join{Left: &query.Join{Left: matches, Right: queryPattern}, Right: scorePattern}

	specs, residual, err := query.Extract(root, true)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	return specs[0], residual
}

// TestOrderedResultsAcrossMultipleMatches covers a SPARQL-style ORDER BY
// stacked on top of the textual iterator, sorting every matching subject
// by resource id regardless of the order the index search itself returned
// hits in.
func TestOrderedResultsAcrossMultipleMatches(t *testing.T) {
	h := newHarness(t)
	h.addLiteral(t, "urn:people:carol", "urn:vocab:bio", "maintains the search engine")
	h.addLiteral(t, "urn:people:alice", "urn:vocab:bio", "maintains the search engine")
	h.addLiteral(t, "urn:people:bob", "urn:vocab:bio", "maintains the search engine")
	h.apply(t)

	scoreVar := query.Var("sc")
	spec, residual := matchesSpec(t, "maintains", scoreVar)

	it, err := iterator.New(context.Background(), h.idx, h.store, []*query.QuerySpec{spec}, residual, nil, false, 0)
	require.NoError(t, err)
	defer it.Close()

	ordered := &algebra.Order{
		Inner: it,
		Less: func(a, b query.BindingSet) bool {
			return *a["s"].Resource < *b["s"].Resource
		},
	}

	var subjects []resource.ID
	for {
		row, ok, err := ordered.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		subjects = append(subjects, *row["s"].Resource)
	}

	require.Len(t, subjects, 3)
	assert.True(t, subjects[0] < subjects[1])
	assert.True(t, subjects[1] < subjects[2])
}

// TestIncompleteQueryPolicyFailFast and TestIncompleteQueryPolicyLenient
// cover an NS.matches group missing its NS.query literal: it is either
// rejected outright or logged and left in the residual, depending on
// config.IncompleteQueryFail.
func TestIncompleteQueryPolicyFailFast(t *testing.T) {
	blank := query.Var("m")
	matches := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm("s"),
		Predicate: query.PredicateMatches,
		Object:    query.VarTerm(blank),
	}}
	scorePattern := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm(blank),
		Predicate: query.PredicateScore,
		Object:    query.VarTerm("sc"),
	}}
	root := &query.Join{Left: matches, Right: scorePattern}

	_, _, err := query.Extract(root, true)
	assert.Error(t, err)
}

func TestIncompleteQueryPolicyLenient(t *testing.T) {
	blank := query.Var("m")
	matches := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm("s"),
		Predicate: query.PredicateMatches,
		Object:    query.VarTerm(blank),
	}}
	scorePattern := &query.Pattern{SP: query.StatementPattern{
		Subject:   query.VarTerm(blank),
		Predicate: query.PredicateScore,
		Object:    query.VarTerm("sc"),
	}}
	root := &query.Join{Left: matches, Right: scorePattern}

	specs, residual, err := query.Extract(root, false)
	require.NoError(t, err)
	assert.Empty(t, specs)
	assert.Equal(t, root, residual)
}
