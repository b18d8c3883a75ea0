package dcsim

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionerAllOrNothing(t *testing.T) {
	p := newProvisioner(RESOURCE_RAM, 1024)
	vm1 := testVm(t, 1, 1, 1000)
	vm2 := testVm(t, 2, 1, 1000)

	assert.True(t, p.allocateForVm(vm1, 512))
	assert.Equal(t, 512.0, p.getAvailable())

	assert.False(t, p.allocateForVm(vm2, 600))
	assert.Equal(t, 512.0, p.getAvailable())
	assert.Equal(t, 0.0, p.getAllocatedForVm(vm2))

	assert.True(t, p.allocateForVm(vm2, 512))
	assert.Equal(t, 0.0, p.getAvailable())

	p.deallocateForVm(vm1)
	assert.Equal(t, 512.0, p.getAvailable())
	assert.Equal(t, 512.0, p.getAllocatedForVm(vm2))

	p.deallocateAll()
	assert.Equal(t, p.getCapacity(), p.getAvailable())
}

func TestProvisionerReallocateReplaces(t *testing.T) {
	p := newProvisioner(RESOURCE_BW, 1000)
	vm := testVm(t, 1, 1, 1000)

	require.True(t, p.allocateForVm(vm, 600))
	require.True(t, p.allocateForVm(vm, 250))
	assert.Equal(t, 750.0, p.getAvailable())

	// a refused resize keeps the old grant
	assert.False(t, p.allocateForVm(vm, 2000))
	assert.Equal(t, 250.0, p.getAllocatedForVm(vm))
	assert.Equal(t, 750.0, p.getAvailable())
}

func TestProvisionerRejectsNegative(t *testing.T) {
	p := newProvisioner(RESOURCE_STORAGE, 100)
	assert.False(t, p.allocateForVm(testVm(t, 1, 1, 1000), -1))
	assert.Equal(t, 100.0, p.getAvailable())
}

func TestProvisionerDeallocateUnknownIsNoop(t *testing.T) {
	p := newProvisioner(RESOURCE_RAM, 100)
	p.deallocateForVm(testVm(t, 1, 1, 1000))
	assert.Equal(t, 100.0, p.getAvailable())
}

func TestProvisionerUnderflowPanics(t *testing.T) {
	p := newProvisioner(RESOURCE_RAM, 100)
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.Equal(t, ErrCapacityUnderflow, errors.Cause(err))
	}()
	p.release(10)
}

func TestProvisionerKinds(t *testing.T) {
	h := testHost(t, hostSpec(0, 2, 1000))
	assert.Equal(t, RESOURCE_RAM, h.provisioner(RESOURCE_RAM).Kind())
	assert.Equal(t, RESOURCE_BW, h.provisioner(RESOURCE_BW).Kind())
	assert.Equal(t, RESOURCE_STORAGE, h.provisioner(RESOURCE_STORAGE).Kind())
	assert.Equal(t, RESOURCE_PE, h.pes[0].prov.Kind())
	assert.Nil(t, h.provisioner(RESOURCE_PE))
}
