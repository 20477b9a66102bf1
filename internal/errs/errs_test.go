package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexIOErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := NewIndexIOError("commit", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "commit")
}

func TestStoreErrorUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	err := NewStoreError("evaluate", cause)

	assert.ErrorIs(t, err, cause)
}

func TestCorruptStateErrorMessage(t *testing.T) {
	err := NewCorruptStateError("urn:s", "2 documents found")
	assert.Contains(t, err.Error(), "urn:s")
	assert.Contains(t, err.Error(), "2 documents found")
}
