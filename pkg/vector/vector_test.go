package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"opposite vectors", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"empty vectors", []float32{}, []float32{}, 0},
		{"mismatched dimensions", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 0.001)
		})
	}
}

func TestNormalizePreservesDirection(t *testing.T) {
	v := []float32{3, 4}
	n := Normalize(v)
	assert.InDelta(t, 1.0, Norm(n), 0.0001)
	assert.InDelta(t, 0.6, n[0], 0.0001)
	assert.InDelta(t, 0.8, n[1], 0.0001)
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	n := Normalize(v)
	assert.Equal(t, []float32{0, 0, 0}, n)
}

func TestDistanceIsOneMinusSimilarity(t *testing.T) {
	assert.InDelta(t, 0.0, Distance(1.0), 0.0001)
	assert.InDelta(t, 2.0, Distance(-1.0), 0.0001)
}
