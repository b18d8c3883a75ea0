package dcsim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// UtilizationModel says which fraction of its allocated resource a cloudlet uses at a given time.
type UtilizationModel interface {
	Utilization(t Ttime) float64
}

type fullUtilization struct{}

// UtilizationFull always uses all of the allocated resource.
func UtilizationFull() UtilizationModel {
	return fullUtilization{}
}

func (fullUtilization) Utilization(Ttime) float64 { return 1 }

func (fullUtilization) String() string { return "full" }

type constantUtilization float64

// UtilizationConstant uses a fixed fraction in [0, 1] of the allocated resource.
func UtilizationConstant(frac float64) UtilizationModel {
	return constantUtilization(math.Max(0, math.Min(1, frac)))
}

func (u constantUtilization) Utilization(Ttime) float64 { return float64(u) }

func (u constantUtilization) String() string { return fmt.Sprintf("%.2f", float64(u)) }

// the last sample is kept so repeated queries at one instant agree; time only moves forward
type stochasticUtilization struct {
	dist    distuv.Uniform
	sampled bool
	lastT   Ttime
	lastV   float64
}

// UtilizationStochastic draws a uniform fraction per distinct simulated time, seeded for reproducible runs.
func UtilizationStochastic(seed uint64) UtilizationModel {
	return &stochasticUtilization{
		dist: distuv.Uniform{Min: 0, Max: 1, Src: rand.NewSource(seed)},
	}
}

func (u *stochasticUtilization) Utilization(t Ttime) float64 {
	if u.sampled && u.lastT == t {
		return u.lastV
	}
	u.sampled, u.lastT, u.lastV = true, t, u.dist.Rand()
	return u.lastV
}

func (u *stochasticUtilization) String() string { return "stochastic" }
