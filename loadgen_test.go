package dcsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGenIsSeeded(t *testing.T) {
	cfg := WorkloadConfig{Seed: 11}
	a, err := NewLoadGen(cfg).GenLoad(50)
	require.NoError(t, err)
	b, err := NewLoadGen(cfg).GenLoad(50)
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i].length, b[i].length)
		assert.Equal(t, a[i].submitDelay, b[i].submitDelay)
	}

	c, err := NewLoadGen(WorkloadConfig{Seed: 12}).GenLoad(50)
	require.NoError(t, err)
	same := 0
	for i := range a {
		if a[i].length == c[i].length {
			same += 1
		}
	}
	assert.Less(t, same, 50)
}

func TestLoadGenShape(t *testing.T) {
	lg := NewLoadGen(WorkloadConfig{Seed: 3, FirstId: 7, MinLength: 1000, MaxLength: 5000, Cores: 2})
	cls, err := lg.GenLoad(200)
	require.NoError(t, err)
	require.Len(t, cls, 200)

	assert.Equal(t, Ttime(0), cls[0].submitDelay)
	for i, cl := range cls {
		assert.Equal(t, 7+i, cl.Id())
		assert.Equal(t, 2, cl.cores)
		assert.GreaterOrEqual(t, float64(cl.length), 1000.0)
		assert.LessOrEqual(t, float64(cl.length), 5000.0)
		assert.False(t, cl.vmId.Present())
		if i > 0 {
			assert.GreaterOrEqual(t, cl.submitDelay, cls[i-1].submitDelay)
		}
	}

	// later batches continue ids and arrivals
	more, err := lg.GenLoad(1)
	require.NoError(t, err)
	assert.Equal(t, 207, more[0].Id())
	assert.GreaterOrEqual(t, more[0].submitDelay, cls[199].submitDelay)
}

func TestLoadGenBindsRoundRobin(t *testing.T) {
	cls, err := NewLoadGen(WorkloadConfig{Seed: 1, VmIds: []int{4, 2}}).GenLoad(5)
	require.NoError(t, err)
	got := make([]int, 0)
	for _, cl := range cls {
		got = append(got, cl.vmId.OrElse(-1))
	}
	assert.Equal(t, []int{4, 2, 4, 2, 4}, got)
}
