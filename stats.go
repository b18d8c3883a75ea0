package dcsim

import (
	"fmt"
	"math"
)

// Distribution is a running mean and standard deviation.
type Distribution struct {
	avg   float64
	count int
	m2    float64
}

func (d *Distribution) update(newVal float64) {
	d.count += 1
	delta := newVal - d.avg
	d.avg += delta / float64(d.count)
	d.m2 += delta * (newVal - d.avg)
}

func (d *Distribution) String() string {
	return fmt.Sprintf("avg: %.3f, stdDev: %.3f, n: %d", d.avg, d.StdDev(), d.count)
}

func (d *Distribution) Mean() float64 { return d.avg }
func (d *Distribution) Count() int    { return d.count }

// population standard deviation
func (d *Distribution) StdDev() float64 {
	if d.count == 0 {
		return 0
	}
	return math.Sqrt(d.m2 / float64(d.count))
}
