package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("error"), "check services.base_url")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "check services.base_url", hints[0])
}

func TestIsResolutionMiss(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no class", Wrap(ErrNoClass, "head \"Paris\""), true},
		{"no property", Wrapf(ErrNoProperty, "relation %q", "capital"), true},
		{"foreign ontology", ErrForeignOntology, true},
		{"rejected", Wrap(ErrRejected, "short head"), true},
		{"collaborator failure", WrapUnavailable(New("connection refused"), "ner"), false},
		{"plain", New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsResolutionMiss(tt.err))
		})
	}
}

func TestWrapUnavailable(t *testing.T) {
	cause := New("connection refused")
	err := WrapUnavailable(cause, "encoder")

	require.Error(t, err)
	assert.True(t, Is(err, ErrServiceUnavailable))
	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "encoder")
	assert.Nil(t, WrapUnavailable(nil, "encoder"))
}

func TestNotFound(t *testing.T) {
	err := NewNotFoundError("instance %s", "urn:x")
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "instance urn:x")
	assert.False(t, IsNotFoundError(New("other")))
	assert.False(t, IsNotFoundError(nil))
}

func TestNewInvalidInputError(t *testing.T) {
	err := NewInvalidInputError("word map has %d entries, matrix has %d rows", 3, 4)
	assert.True(t, Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "3 entries")
}
