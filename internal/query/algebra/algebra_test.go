package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kreuzverweis/lucenesail/internal/resource"

	"github.com/kreuzverweis/lucenesail/internal/query"
)

type sliceSource struct {
	rows []query.BindingSet
	pos  int
}

func (s *sliceSource) Next() (query.BindingSet, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func (s *sliceSource) Close() error {
	s.pos = len(s.rows)
	return nil
}

func row(s string, n string) query.BindingSet {
	subj := resource.FromURI(s)
	return query.BindingSet{
		"s": query.ResourceBinding(subj),
		"n": query.LiteralBinding(n),
	}
}

func drain(t *testing.T, rs RowSource) []query.BindingSet {
	t.Helper()
	var out []query.BindingSet
	for {
		r, ok, err := rs.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, r)
	}
	return out
}

func TestProjectionKeepsOnlyNamedVars(t *testing.T) {
	src := &sliceSource{rows: []query.BindingSet{row("urn:s1", "a")}}
	p := &Projection{Vars: []query.Var{"n"}, Inner: src}

	out := drain(t, p)
	require.Len(t, out, 1)
	_, hasS := out[0]["s"]
	assert.False(t, hasS)
	assert.Equal(t, "a", *out[0]["n"].Literal)
}

func TestSliceAppliesOffsetAndLimit(t *testing.T) {
	src := &sliceSource{rows: []query.BindingSet{row("urn:1", "a"), row("urn:2", "b"), row("urn:3", "c")}}
	s := &Slice{Offset: 1, Limit: 1, Inner: src}

	out := drain(t, s)
	require.Len(t, out, 1)
	assert.Equal(t, "b", *out[0]["n"].Literal)
}

func TestDistinctDropsDuplicateRows(t *testing.T) {
	src := &sliceSource{rows: []query.BindingSet{row("urn:1", "a"), row("urn:1", "a"), row("urn:2", "b")}}
	d := &Distinct{Inner: src}

	out := drain(t, d)
	assert.Len(t, out, 2)
}

func TestOrderSortsBySubject(t *testing.T) {
	src := &sliceSource{rows: []query.BindingSet{row("urn:b", "2"), row("urn:a", "1")}}
	o := &Order{Inner: src, Less: func(a, b query.BindingSet) bool {
		return *a["s"].Resource < *b["s"].Resource
	}}

	out := drain(t, o)
	require.Len(t, out, 2)
	assert.Equal(t, "1", *out[0]["n"].Literal)
	assert.Equal(t, "2", *out[1]["n"].Literal)
}

func TestMultiProjectionEmitsOncePerProjection(t *testing.T) {
	src := &sliceSource{rows: []query.BindingSet{row("urn:1", "a")}}
	m := &MultiProjection{Projections: [][]query.Var{{"s"}, {"n"}}, Inner: src}

	out := drain(t, m)
	require.Len(t, out, 2)
	_, hasN0 := out[0]["n"]
	assert.False(t, hasN0)
	_, hasS1 := out[1]["s"]
	assert.False(t, hasS1)
}
