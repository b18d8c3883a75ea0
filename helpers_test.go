package dcsim

import (
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var testCharacteristics = Characteristics{
	Arch:           "x86",
	Os:             "Linux",
	Vmm:            "Xen",
	TimeZone:       1.0,
	CostPerSec:     3.0,
	CostPerMem:     0.05,
	CostPerStorage: 0.001,
	CostPerBw:      0.0,
}

func quietLogger() *log.Logger {
	l := log.New()
	l.Out = io.Discard
	return l
}

func testVm(t *testing.T, id int, cores int, mips float64) *Vm {
	vm, err := NewVm(VmSpec{
		Id:    id,
		Mips:  mips,
		Cores: cores,
		Ram:   512,
		Bw:    1000,
		Size:  10000,
		Vmm:   "Xen",
	})
	require.NoError(t, err)
	return vm
}

func testCloudlet(t *testing.T, id int, length float64) *Cloudlet {
	cl, err := NewCloudlet(CloudletSpec{
		Id:         id,
		Length:     length,
		Cores:      1,
		FileSize:   300,
		OutputSize: 300,
	})
	require.NoError(t, err)
	return cl
}

func hostSpec(id int, pes int, mips float64) HostSpec {
	peMips := make([]float64, pes)
	for i := range peMips {
		peMips[i] = mips
	}
	return HostSpec{
		Id:      id,
		PeMips:  peMips,
		Ram:     16384,
		Bw:      10000,
		Storage: 1000000,
	}
}

func testHost(t *testing.T, spec HostSpec) *Host {
	h, err := newHost(spec)
	require.NoError(t, err)
	return h
}

// one datacenter with the given hosts and one broker
func testSim(t *testing.T, specs []HostSpec, opts ...Option) (*Simulation, *Datacenter, *Broker) {
	sim := NewSimulation(append([]Option{WithLogger(quietLogger())}, opts...)...)
	dc, err := sim.CreateDatacenter("dc", specs, testCharacteristics, ALLOC_FIRST_FIT)
	require.NoError(t, err)
	return sim, dc, sim.CreateBroker("broker")
}

func resultById(results []CloudletResult, id int) (CloudletResult, bool) {
	for _, r := range results {
		if r.Id == id {
			return r, true
		}
	}
	return CloudletResult{}, false
}
