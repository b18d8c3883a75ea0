package dcsim

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig is returned when a host, vm or cloudlet spec is rejected at construction.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownEntity is returned when an id does not name a registered broker, datacenter or host.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrSimulationRunning is returned when lists are submitted while the event loop runs.
	ErrSimulationRunning = errors.New("simulation is running")
	// ErrCapacityUnderflow is the panic value for a provisioner releasing more than it reserved
	// or refusing a grant its scheduler already sized to fit.
	ErrCapacityUnderflow = errors.New("capacity underflow")
)

func invalidConfig(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}
