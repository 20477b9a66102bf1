package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlankNodeRoundTrip(t *testing.T) {
	id := FromBlankNode("b1")
	assert.True(t, id.IsBlankNode())

	local, ok := LocalBlankNodeID(id)
	require.True(t, ok)
	assert.Equal(t, "b1", local)
}

func TestURIIsNotBlankNode(t *testing.T) {
	id := FromURI("urn:s")
	assert.False(t, id.IsBlankNode())

	_, ok := LocalBlankNodeID(id)
	assert.False(t, ok)
}

func TestNullContext(t *testing.T) {
	assert.True(t, ID(NullContext).IsNullContext())
	assert.False(t, FromURI("urn:c").IsNullContext())
}

func TestUUIDGeneratorProducesBlankNodes(t *testing.T) {
	gen := NewUUIDGenerator()

	id, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.True(t, id.IsBlankNode())
}
