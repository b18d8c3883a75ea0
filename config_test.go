package dcsim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	fname := filepath.Join(t.TempDir(), "dcsim.yaml")
	require.NoError(t, os.WriteFile(fname, []byte(body), 0o644))
	return fname
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ALLOC_MOST_FREE_PES, cfg.Datacenter.AllocationPolicy)
	assert.Len(t, cfg.HostSpecs(), 20)
}

func TestConfigOverlay(t *testing.T) {
	fname := writeConfig(t, `
datacenter:
  allocation_policy: first_fit
  hosts:
    - count: 2
      pes: 4
      pe_mips: 2000
      ram: 16Gi
      bw: 10G
      storage: 1Ti
      vm_scheduler: space_shared
simulation:
  termination_time: 100
  host_failures:
    - host_id: 1
      at: 50
`)
	cfg, err := LoadConfig(fname)
	require.NoError(t, err)

	// untouched sections keep their defaults
	assert.Equal(t, "Datacenter_0", cfg.Datacenter.Name)
	assert.Equal(t, 3.0, cfg.Datacenter.Characteristics.CostPerSec)
	assert.Len(t, cfg.Vms, 1)

	assert.Equal(t, ALLOC_FIRST_FIT, cfg.Datacenter.AllocationPolicy)
	specs := cfg.HostSpecs()
	require.Len(t, specs, 2)
	assert.Equal(t, 1, specs[1].Id)
	assert.Equal(t, []float64{2000, 2000, 2000, 2000}, specs[0].PeMips)
	assert.Equal(t, Tmem(16384), specs[0].Ram)
	assert.Equal(t, Tbw(10000), specs[0].Bw)
	assert.Equal(t, Tmem(1048576), specs[0].Storage)
	assert.Equal(t, VM_SCHED_SPACE_SHARED, specs[0].VmScheduler)

	assert.Len(t, cfg.Options(), 1)
	require.Len(t, cfg.Simulation.HostFailures, 1)
	assert.Equal(t, 1, cfg.Simulation.HostFailures[0].HostId)
}

func TestConfigValidation(t *testing.T) {
	fname := writeConfig(t, `
datacenter:
  name: ""
`)
	_, err := LoadConfig(fname)
	require.Error(t, err)
	assert.IsType(t, ValidationError{}, err)
}

func TestConfigBadPolicy(t *testing.T) {
	fname := writeConfig(t, `
datacenter:
  allocation_policy: best_fit
`)
	_, err := LoadConfig(fname)
	assert.Error(t, err)
}

func TestConfigBadSize(t *testing.T) {
	fname := writeConfig(t, `
vms:
  - count: 1
    mips: 1000
    pes: 1
    ram: lots
`)
	_, err := LoadConfig(fname)
	assert.Error(t, err)
}

func TestConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultVmsGrow(t *testing.T) {
	vms, err := DefaultConfig().NewVms()
	require.NoError(t, err)
	require.Len(t, vms, 5)
	for i, vm := range vms {
		assert.Equal(t, i, vm.Id())
		assert.Equal(t, 1+i, vm.cores)
		assert.Equal(t, Tmem(512+128*i), vm.ram)
		assert.Equal(t, CLOUDLET_SCHED_TIME_SHARED, vm.schedPolicy)
	}
}

func TestDefaultCloudletsAndWorkload(t *testing.T) {
	cfg := DefaultConfig()
	cls, err := cfg.NewCloudlets()
	require.NoError(t, err)
	require.Len(t, cls, 10)
	for i, cl := range cls {
		assert.Equal(t, i, cl.Id())
		assert.Equal(t, Tmi(400000+10000*i), cl.length)
		assert.False(t, cl.vmId.Present())
	}

	cfg.Workload = WorkloadConfig{Count: 5, Seed: 1}
	cls, err = cfg.NewCloudlets()
	require.NoError(t, err)
	require.Len(t, cls, 15)
	for i, cl := range cls[10:] {
		assert.Equal(t, 10+i, cl.Id())
	}
}

func TestCloudletGroupBinding(t *testing.T) {
	cfg := DefaultConfig()
	vmId := 3
	cfg.Cloudlets = []CloudletGroup{{Count: 2, Length: 1000, Pes: 1, VmId: &vmId, Utilization: "0.5"}}
	cls, err := cfg.NewCloudlets()
	require.NoError(t, err)
	for _, cl := range cls {
		id, err := cl.vmId.Get()
		require.NoError(t, err)
		assert.Equal(t, 3, id)
		assert.Equal(t, 0.5, cl.utilCpu.Utilization(0))
	}
}

func TestParseUtilization(t *testing.T) {
	for _, s := range []string{"", "full", "FULL"} {
		u, err := parseUtilization(s, 0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, u.Utilization(3))
	}
	u, err := parseUtilization("0.25", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.25, u.Utilization(3))

	u, err = parseUtilization("stochastic", 9)
	require.NoError(t, err)
	assert.Equal(t, u.Utilization(2), u.Utilization(2))

	for _, s := range []string{"1.5", "-0.1", "sometimes"} {
		_, err := parseUtilization(s, 0)
		assert.Error(t, err, s)
	}
}

func TestSetupSchedulesHostFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.HostFailures = []HostFailure{{HostId: 0, At: 100}}
	sim := NewSimulation(WithLogger(quietLogger()))
	_, b, err := cfg.Setup(sim)
	require.NoError(t, err)

	results := runToIdle(t, sim, b)
	require.Len(t, results, 10)
	for _, r := range results {
		if r.VmId == 0 {
			assert.Equal(t, STATUS_FAILED, r.Status)
			assert.InDelta(t, 100, r.FinishTime, RESOURCE_EPSILON)
		} else {
			assert.Equal(t, STATUS_SUCCESS, r.Status)
		}
	}

	cfg.Simulation.HostFailures = []HostFailure{{HostId: 99, At: 1}}
	_, _, err = cfg.Setup(NewSimulation(WithLogger(quietLogger())))
	assert.Error(t, err)
}
