package dcsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStochasticUtilizationKeepsOnlyLastSample(t *testing.T) {
	u := UtilizationStochastic(5).(*stochasticUtilization)
	ref := UtilizationStochastic(5)

	for step := 0; step < 1000; step++ {
		now := Ttime(step)
		v := u.Utilization(now)
		assert.Equal(t, v, u.Utilization(now))
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		// one draw per distinct time, same stream as a fresh model with the seed
		require.Equal(t, ref.Utilization(now), v)
		assert.Equal(t, now, u.lastT)
	}
}

func TestUtilizationClamp(t *testing.T) {
	assert.Equal(t, 1.0, UtilizationConstant(3).Utilization(0))
	assert.Equal(t, 0.0, UtilizationConstant(-1).Utilization(0))
	assert.Equal(t, 1.0, UtilizationFull().Utilization(42))
}
