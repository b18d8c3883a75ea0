package dcsim

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

const (
	RESOURCE_EPSILON = 0.000001
	// relative slack when deciding a cloudlet has executed its whole length
	LENGTH_EPSILON = 0.000000001
	// smallest step the datacenter schedules its next update with
	MIN_TIME_BETWEEN_EVENTS = 0.001
)

type Tid int

// simulated seconds
type Ttime float64

// estimate returned when nothing is left to complete
var TIME_NEVER = Ttime(math.Inf(1))

func (t Ttime) String() string {
	if math.IsInf(float64(t), 1) {
		return "never"
	}
	return fmt.Sprintf("%.3fs", float64(t))
}

// million instructions per second
type Tmips float64

func (m Tmips) String() string {
	return fmt.Sprintf("%.1fMIPS", float64(m))
}

// million instructions
type Tmi float64

// megabytes (ram, image size, storage)
type Tmem int64

// megabits per second
type Tbw int64

type Number interface {
	constraints.Integer | constraints.Float
}

func avg[T Number](list []T) float64 {
	if len(list) == 0 {
		return 0
	}

	var sum T
	sum = 0
	for _, val := range list {
		sum += val
	}
	return float64(sum) / float64(len(list))
}

// a safe less than or equal to comparator which takes epsilon into consideration.
func lessThanOrEqual(f1, f2 float64) bool {
	v := f1 - f2
	if math.Abs(v) < RESOURCE_EPSILON {
		return true
	}
	return v < 0
}

// a safe less than comparator which takes epsilon into consideration.
func lessThan(f1, f2 float64) bool {
	v := f1 - f2
	if math.Abs(v) < RESOURCE_EPSILON {
		return false
	}
	return v < 0
}

func minTime(a, b Ttime) Ttime {
	if a < b {
		return a
	}
	return b
}
