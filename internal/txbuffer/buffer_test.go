package txbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kreuzverweis/lucenesail/internal/fact"
	"github.com/kreuzverweis/lucenesail/internal/resource"
)

func mustFact(t *testing.T, v string) fact.Fact {
	t.Helper()
	f, err := fact.New(resource.FromURI("urn:s"), resource.FromURI("urn:p"), fact.NewLiteral(v), "")
	require.NoError(t, err)
	return f
}

func TestAddThenRemoveCoalescesAndCancels(t *testing.T) {
	b := New()
	f := mustFact(t, "v1")

	b.Add(f)
	b.Remove(f)

	entries := b.Entries()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].AddRemove.Adds)
	assert.Empty(t, entries[0].AddRemove.Removes)
}

func TestRemoveThenAddCancels(t *testing.T) {
	b := New()
	f := mustFact(t, "v1")

	b.Remove(f)
	b.Add(f)

	entries := b.Entries()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].AddRemove.Adds)
	assert.Empty(t, entries[0].AddRemove.Removes)
}

func TestSuccessiveAddsCoalesceIntoOneEntry(t *testing.T) {
	b := New()
	b.Add(mustFact(t, "v1"))
	b.Add(mustFact(t, "v2"))

	entries := b.Entries()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].AddRemove.Adds, 2)
}

func TestClearContextStartsNewEntry(t *testing.T) {
	b := New()
	b.Add(mustFact(t, "v1"))
	b.ClearContexts([]resource.ID{resource.FromURI("urn:c1")})
	b.Add(mustFact(t, "v2"))

	entries := b.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, KindAddRemove, entries[0].Kind)
	assert.Equal(t, KindClearContext, entries[1].Kind)
	assert.Equal(t, KindAddRemove, entries[2].Kind)
}

func TestOptimizeDropsEntriesBeforeClearAll(t *testing.T) {
	b := New()
	b.Add(mustFact(t, "v1"))
	b.ClearContexts([]resource.ID{resource.FromURI("urn:c1")})
	b.ClearAll()
	b.Add(mustFact(t, "v2"))

	b.Optimize()

	entries := b.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, KindClearAll, entries[0].Kind)
	assert.Equal(t, KindAddRemove, entries[1].Kind)
}

func TestResetEmptiesBuffer(t *testing.T) {
	b := New()
	b.Add(mustFact(t, "v1"))
	b.Reset()

	assert.True(t, b.IsEmpty())
}
