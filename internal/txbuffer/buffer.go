// Package txbuffer accumulates add/remove/clear-context/clear-all
// operations in insertion order during one transaction, coalescing and
// normalising them before the Synchroniser applies them.
package txbuffer

import (
	"sync"

	"github.com/kreuzverweis/lucenesail/internal/fact"
	"github.com/kreuzverweis/lucenesail/internal/resource"
)

// EntryKind discriminates the three operation kinds a Buffer can hold.
type EntryKind int

const (
	KindAddRemove EntryKind = iota
	KindClearContext
	KindClearAll
)

// AddRemove is a paired set of facts to add and facts to remove. The two
// sets are always kept disjoint: adding an already-removed fact cancels
// the removal, and vice versa.
type AddRemove struct {
	Adds    map[string]fact.Fact
	Removes map[string]fact.Fact
}

func newAddRemove() *AddRemove {
	return &AddRemove{
		Adds:    make(map[string]fact.Fact),
		Removes: make(map[string]fact.Fact),
	}
}

func (ar *AddRemove) add(f fact.Fact) {
	key := f.Key()
	if _, wasRemoved := ar.Removes[key]; wasRemoved {
		delete(ar.Removes, key)
		return
	}
	ar.Adds[key] = f
}

func (ar *AddRemove) remove(f fact.Fact) {
	key := f.Key()
	if _, wasAdded := ar.Adds[key]; wasAdded {
		delete(ar.Adds, key)
		return
	}
	ar.Removes[key] = f
}

// ClearContext names the set of contexts to wholly clear.
type ClearContext struct {
	Contexts map[resource.ID]struct{}
}

// Entry is one normalised buffer slot.
type Entry struct {
	Kind         EntryKind
	AddRemove    *AddRemove
	ClearContext *ClearContext
}

// Buffer accumulates operations for a single connection's transaction. It
// is owned by that one connection and is never shared across connections.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// trailingAddRemove returns the trailing entry's AddRemove if the buffer's
// last entry is an AddRemove, creating one if the buffer is empty or its
// last entry is not an AddRemove.
func (b *Buffer) trailingAddRemove() *AddRemove {
	if n := len(b.entries); n > 0 && b.entries[n-1].Kind == KindAddRemove {
		return b.entries[n-1].AddRemove
	}
	ar := newAddRemove()
	b.entries = append(b.entries, Entry{Kind: KindAddRemove, AddRemove: ar})
	return ar
}

// Add records a fact addition, coalescing with the trailing AddRemove
// entry if present.
func (b *Buffer) Add(f fact.Fact) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trailingAddRemove().add(f)
}

// Remove records a fact removal, coalescing with the trailing AddRemove
// entry if present.
func (b *Buffer) Remove(f fact.Fact) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trailingAddRemove().remove(f)
}

// ClearContexts records a clear-context operation over the given contexts
// as a new entry (it never coalesces with a preceding AddRemove).
func (b *Buffer) ClearContexts(contexts []resource.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := make(map[resource.ID]struct{}, len(contexts))
	for _, c := range contexts {
		set[c] = struct{}{}
	}
	b.entries = append(b.entries, Entry{Kind: KindClearContext, ClearContext: &ClearContext{Contexts: set}})
}

// ClearAll records a clear-all operation as a new entry.
func (b *Buffer) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, Entry{Kind: KindClearAll})
}

// Optimize collapses the buffer: if a ClearAll is present, every preceding
// entry is dropped, since it would be wiped out anyway.
func (b *Buffer) Optimize() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(b.entries) - 1; i >= 0; i-- {
		if b.entries[i].Kind == KindClearAll {
			b.entries = b.entries[i:]
			return
		}
	}
}

// Entries returns the buffer's normalised entries in application order.
// The returned slice is owned by the caller; it is not affected by later
// mutation of the Buffer.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, len(b.entries))
	for i, e := range b.entries {
		if e.AddRemove != nil {
			ar := newAddRemove()
			for k, f := range e.AddRemove.Adds {
				ar.Adds[k] = f
			}
			for k, f := range e.AddRemove.Removes {
				ar.Removes[k] = f
			}
			e.AddRemove = ar
		}
		out[i] = e
	}
	return out
}

// Reset empties the buffer without applying it.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = nil
}

// IsEmpty reports whether the buffer has no recorded operations.
func (b *Buffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries) == 0
}
