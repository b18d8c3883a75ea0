package dcsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestDistributionMatchesBatch(t *testing.T) {
	vals := []float64{3, 7, 7, 19, 24, 1.5}
	var d Distribution
	for _, v := range vals {
		d.update(v)
	}
	assert.Equal(t, len(vals), d.Count())
	assert.InDelta(t, stat.Mean(vals, nil), d.Mean(), 1e-9)

	// sample variance scaled back to the population one
	n := float64(len(vals))
	popVar := stat.Variance(vals, nil) * (n - 1) / n
	assert.InDelta(t, popVar, d.StdDev()*d.StdDev(), 1e-9)

	var empty Distribution
	assert.Equal(t, 0.0, empty.StdDev())
}
