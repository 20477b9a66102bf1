package fact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kreuzverweis/lucenesail/internal/resource"
)

func TestNewDefaultsNullContext(t *testing.T) {
	f, err := New(resource.FromURI("urn:s"), resource.FromURI("urn:p"), NewLiteral("v"), "")
	require.NoError(t, err)
	assert.Equal(t, resource.ID(resource.NullContext), f.Context)
}

func TestIsIndexable(t *testing.T) {
	lit, err := New(resource.FromURI("urn:s"), resource.FromURI("urn:p"), NewLiteral("v"), "")
	require.NoError(t, err)
	assert.True(t, lit.IsIndexable())

	res, err := New(resource.FromURI("urn:s"), resource.FromURI("urn:p"), NewResourceValue(), "")
	require.NoError(t, err)
	assert.False(t, res.IsIndexable())
}

func TestNewRejectsEmptySubject(t *testing.T) {
	_, err := New("", resource.FromURI("urn:p"), NewLiteral("v"), "")
	assert.Error(t, err)
}
