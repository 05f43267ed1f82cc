package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUpstreamUnavailable("catalog search failed", cause)

	assert.Contains(t, err.Error(), "upstream_unavailable")
	assert.Contains(t, err.Error(), "catalog search failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, err))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestWithContextChains(t *testing.T) {
	err := NewNotFound("fingerprint missing", nil).
		WithContext("fingerprint", "abc123").
		WithContext("lang", "he")

	assert.Equal(t, "abc123", err.Context["fingerprint"])
	assert.Equal(t, "he", err.Context["lang"])
}

func TestIs(t *testing.T) {
	err := NewBusy("gate held", nil)
	assert.True(t, Is(err, Busy))
	assert.False(t, Is(err, Internal))
	assert.False(t, Is(errors.New("plain"), Busy))
}
