package synchroniser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kreuzverweis/lucenesail/internal/config"
	"github.com/kreuzverweis/lucenesail/internal/fact"
	"github.com/kreuzverweis/lucenesail/internal/index"
	"github.com/kreuzverweis/lucenesail/internal/resource"
	"github.com/kreuzverweis/lucenesail/internal/triplestore"
	"github.com/kreuzverweis/lucenesail/internal/triplestore/memstore"
	"github.com/kreuzverweis/lucenesail/internal/txbuffer"
)

type fixture struct {
	idx   *index.Store
	store *memstore.Store
	buf   *txbuffer.Buffer
	sync  *Synchroniser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.Load(map[string]string{"useramdir": "true"})
	require.NoError(t, err)
	idx, err := index.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	store := memstore.New()
	buf := txbuffer.New()

	// Wire the store's change notifications straight into the buffer, the
	// way a real deployment connects the triple store's listener hook to
	// the Transaction Buffer.
	store.AddListener(func(ev triplestore.FactEvent) {
		if ev.Added {
			buf.Add(ev.Fact)
		} else {
			buf.Remove(ev.Fact)
		}
	})

	return &fixture{
		idx:   idx,
		store: store,
		buf:   buf,
		sync:  New(idx, store),
	}
}

func mustFact(t *testing.T, subject, predicate, value, ctx string) fact.Fact {
	t.Helper()
	c := resource.ID("")
	if ctx != "" {
		c = resource.FromURI(ctx)
	}
	f, err := fact.New(resource.FromURI(subject), resource.FromURI(predicate), fact.NewLiteral(value), c)
	require.NoError(t, err)
	return f
}

func exists(t *testing.T, idx *index.Store, subject resource.ID) bool {
	t.Helper()
	var found bool
	require.NoError(t, idx.WithSearcher(func(se *index.Searcher) error {
		var err error
		found, err = se.Exists(subject)
		return err
	}))
	return found
}

func TestApplyCreatesDocumentFromAdds(t *testing.T) {
	fx := newFixture(t)
	fx.store.Add(mustFact(t, "urn:s", "urn:p", "hello", ""))

	require.NoError(t, fx.sync.Apply(context.Background(), fx.buf))

	assert.True(t, exists(t, fx.idx, resource.FromURI("urn:s")))
	assert.True(t, fx.buf.IsEmpty())
}

func TestApplyRebuildsOnAddToExistingDocument(t *testing.T) {
	fx := newFixture(t)
	fx.store.Add(mustFact(t, "urn:s", "urn:p1", "hello", ""))
	require.NoError(t, fx.sync.Apply(context.Background(), fx.buf))

	fx.store.Add(mustFact(t, "urn:s", "urn:p2", "world", ""))
	require.NoError(t, fx.sync.Apply(context.Background(), fx.buf))

	var hit *index.Hit
	require.NoError(t, fx.idx.WithSearcher(func(se *index.Searcher) error {
		q, err := fx.idx.ParseQuery("world", "")
		require.NoError(t, err)
		var searchErr error
		hit, searchErr = se.SearchWithin(resource.FromURI("urn:s"), q)
		return searchErr
	}))
	assert.NotNil(t, hit)
}

func TestApplyRemovingLastFactDestroysDocument(t *testing.T) {
	fx := newFixture(t)
	f := mustFact(t, "urn:s", "urn:p", "hello", "")
	fx.store.Add(f)
	require.NoError(t, fx.sync.Apply(context.Background(), fx.buf))
	require.True(t, exists(t, fx.idx, resource.FromURI("urn:s")))

	fx.store.Remove(f)
	require.NoError(t, fx.sync.Apply(context.Background(), fx.buf))

	assert.False(t, exists(t, fx.idx, resource.FromURI("urn:s")))
}

func TestApplyClearContextSurvivorRebuild(t *testing.T) {
	fx := newFixture(t)
	fx.store.Add(mustFact(t, "urn:s", "urn:p1", "a", "urn:c1"))
	fx.store.Add(mustFact(t, "urn:s", "urn:p2", "b", "urn:c1"))
	fx.store.Add(mustFact(t, "urn:s", "urn:p3", "d", "urn:c2"))
	require.NoError(t, fx.sync.Apply(context.Background(), fx.buf))

	fx.store.ClearContexts([]resource.ID{resource.FromURI("urn:c1")})
	fx.buf.ClearContexts([]resource.ID{resource.FromURI("urn:c1")})
	require.NoError(t, fx.sync.Apply(context.Background(), fx.buf))

	require.True(t, exists(t, fx.idx, resource.FromURI("urn:s")))

	var hit *index.Hit
	require.NoError(t, fx.idx.WithSearcher(func(se *index.Searcher) error {
		q, err := fx.idx.ParseQuery("d", "")
		require.NoError(t, err)
		var searchErr error
		hit, searchErr = se.SearchWithin(resource.FromURI("urn:s"), q)
		return searchErr
	}))
	assert.NotNil(t, hit)

	require.NoError(t, fx.idx.WithSearcher(func(se *index.Searcher) error {
		q, err := fx.idx.ParseQuery("a", "")
		require.NoError(t, err)
		var searchErr error
		hit, searchErr = se.SearchWithin(resource.FromURI("urn:s"), q)
		return searchErr
	}))
	assert.Nil(t, hit)
}

func TestApplyClearAllEmptiesIndex(t *testing.T) {
	fx := newFixture(t)
	fx.store.Add(mustFact(t, "urn:s", "urn:p", "hello", ""))
	require.NoError(t, fx.sync.Apply(context.Background(), fx.buf))

	fx.buf.ClearAll()
	require.NoError(t, fx.sync.Apply(context.Background(), fx.buf))

	assert.False(t, exists(t, fx.idx, resource.FromURI("urn:s")))
}
