package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	assert.Equal(t, 2.5, Percentile(values, 50))
	assert.Equal(t, 1.0, Percentile(values, 0))
	assert.Equal(t, 4.0, Percentile(values, 100))
	assert.InDelta(t, 1.15, Percentile(values, 5), 1e-12)
	assert.Equal(t, []float64{4, 1, 3, 2}, values, "input must not be reordered")
}

func TestPercentile_Edges(t *testing.T) {
	assert.Zero(t, Percentile(nil, 5))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 5))
	assert.Equal(t, 3.0, Percentile([]float64{1, 3}, 150))
}
