package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.9746318461970762, CosineSimilarity([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 0.25, Mean([]float64{0.1, 0.4}), 1e-12)
}

func TestContainsEither(t *testing.T) {
	assert.True(t, ContainsEither("Paris", "paris city"))
	assert.True(t, ContainsEither("Ciudad de Paris", "PARIS"))
	assert.False(t, ContainsEither("Paris", "Lyon"))
	assert.False(t, ContainsEither("", "Lyon"))
}
