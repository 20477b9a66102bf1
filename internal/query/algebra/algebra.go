// Package algebra implements the outer solution-modifier wrappers:
// projection, multi-projection, slice, distinct, reduced, and order, each a
// stream transformer over the textual iterator's row source. The core
// textual iterator (internal/query/iterator) always produces tuples for
// the inner argument; these wrappers apply the standard semantics on top,
// and themselves satisfy RowSource so they compose.
package algebra

import (
	"sort"
	"strings"

	"github.com/kreuzverweis/lucenesail/internal/query"
)

// RowSource is the minimal pull interface every wrapper both consumes and
// implements, satisfied structurally by *iterator.Iterator.
type RowSource interface {
	Next() (query.BindingSet, bool, error)
	Close() error
}

// Projection restricts each row to the given variables.
type Projection struct {
	Vars  []query.Var
	Inner RowSource
}

func (p *Projection) Next() (query.BindingSet, bool, error) {
	row, ok, err := p.Inner.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	return project(row, p.Vars), true, nil
}

func (p *Projection) Close() error {
	return p.Inner.Close()
}

func project(row query.BindingSet, vars []query.Var) query.BindingSet {
	out := make(query.BindingSet, len(vars))
	for _, v := range vars {
		if b, ok := row[v]; ok {
			out[v] = b
		}
	}
	return out
}

// MultiProjection emits one row per projection set for every inner row
// (used when several differently-shaped projections must be produced from
// a single underlying solution, e.g. a UNION of projections).
type MultiProjection struct {
	Projections [][]query.Var
	Inner       RowSource

	buffered query.BindingSet
	next     int
}

func (m *MultiProjection) Next() (query.BindingSet, bool, error) {
	for {
		if m.buffered == nil {
			row, ok, err := m.Inner.Next()
			if err != nil || !ok {
				return nil, ok, err
			}
			m.buffered = row
			m.next = 0
		}

		if m.next >= len(m.Projections) {
			m.buffered = nil
			continue
		}

		out := project(m.buffered, m.Projections[m.next])
		m.next++
		return out, true, nil
	}
}

func (m *MultiProjection) Close() error {
	return m.Inner.Close()
}

// Slice skips the first Offset rows and yields at most Limit further rows
// (Limit <= 0 means unbounded).
type Slice struct {
	Offset int
	Limit  int
	Inner  RowSource

	skipped int
	emitted int
}

func (s *Slice) Next() (query.BindingSet, bool, error) {
	for s.skipped < s.Offset {
		_, ok, err := s.Inner.Next()
		if err != nil || !ok {
			return nil, ok, err
		}
		s.skipped++
	}

	if s.Limit > 0 && s.emitted >= s.Limit {
		return nil, false, nil
	}

	row, ok, err := s.Inner.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	s.emitted++
	return row, true, nil
}

func (s *Slice) Close() error {
	return s.Inner.Close()
}

// Distinct drops rows whose binding set has already been emitted.
type Distinct struct {
	Inner RowSource

	seen map[string]struct{}
}

func (d *Distinct) Next() (query.BindingSet, bool, error) {
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	for {
		row, ok, err := d.Inner.Next()
		if err != nil || !ok {
			return nil, ok, err
		}
		key := canonicalKey(row)
		if _, dup := d.seen[key]; dup {
			continue
		}
		d.seen[key] = struct{}{}
		return row, true, nil
	}
}

func (d *Distinct) Close() error {
	return d.Inner.Close()
}

// Reduced is a best-effort duplicate filter. SPARQL's REDUCED permits
// (but does not require) duplicate elimination; this implementation
// behaves identically to Distinct, which is a valid (if stronger than
// strictly necessary) instance of that semantics.
type Reduced struct {
	inner *Distinct
}

// NewReduced wraps inner in Reduced semantics.
func NewReduced(inner RowSource) *Reduced {
	return &Reduced{inner: &Distinct{Inner: inner}}
}

func (r *Reduced) Next() (query.BindingSet, bool, error) {
	return r.inner.Next()
}

func (r *Reduced) Close() error {
	return r.inner.Close()
}

func canonicalKey(row query.BindingSet) string {
	vars := make([]string, 0, len(row))
	for v := range row {
		vars = append(vars, string(v))
	}
	sort.Strings(vars)

	var b strings.Builder
	for _, v := range vars {
		binding := row[query.Var(v)]
		b.WriteString(v)
		b.WriteByte('=')
		if binding.Resource != nil {
			b.WriteString(string(*binding.Resource))
		} else if binding.Literal != nil {
			b.WriteString(*binding.Literal)
		}
		b.WriteByte(';')
	}
	return b.String()
}

// Order materialises every row from Inner (ORDER BY requires the full
// solution set) and replays them sorted by Less.
type Order struct {
	Inner RowSource
	Less  func(a, b query.BindingSet) bool

	sorted []query.BindingSet
	pos    int
	loaded bool
}

func (o *Order) Next() (query.BindingSet, bool, error) {
	if !o.loaded {
		for {
			row, ok, err := o.Inner.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				break
			}
			o.sorted = append(o.sorted, row)
		}
		sort.SliceStable(o.sorted, func(i, j int) bool {
			return o.Less(o.sorted[i], o.sorted[j])
		})
		o.loaded = true
	}

	if o.pos >= len(o.sorted) {
		return nil, false, nil
	}
	row := o.sorted[o.pos]
	o.pos++
	return row, true, nil
}

func (o *Order) Close() error {
	o.sorted = nil
	return o.Inner.Close()
}
