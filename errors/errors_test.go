package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelWrapping(t *testing.T) {
	err := Wrap(ErrAlreadyInFlight, "claim for directive d1")
	assert.True(t, Is(err, ErrAlreadyInFlight))
	assert.True(t, IsAlreadyInFlight(err))
	assert.False(t, IsBackendUnavailable(err))
}

func TestWrapBackendUnavailable(t *testing.T) {
	cause := New("connection refused")
	err := WrapBackendUnavailable(cause, "relay trigger")
	assert.True(t, IsBackendUnavailable(err))
	assert.Contains(t, err.Error(), "relay trigger")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsMalformedSpec(t *testing.T) {
	err := Wrapf(ErrMalformedSpec, "interval %q", "xyz")
	assert.True(t, IsMalformedSpec(err))
	assert.False(t, IsMalformedSpec(nil))
	assert.False(t, IsMalformedSpec(New("other")))
}
