package dcsim

//go:generate mockgen -destination=mocks/mock_clock.go -package=mocks dcsim Clock

// Clock holds the virtual time of a simulation. The event loop is the only writer.
type Clock interface {
	Now() Ttime
	Set(t Ttime)
}

type simClock struct {
	now Ttime
}

func newSimClock() *simClock {
	return &simClock{}
}

func (c *simClock) Now() Ttime {
	return c.now
}

// time never runs backwards
func (c *simClock) Set(t Ttime) {
	if t > c.now {
		c.now = t
	}
}
