package dcsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func testAllocator(t *testing.T, policy AllocPolicy, specs ...HostSpec) *vmAllocator {
	hosts := make([]*Host, len(specs))
	for i, spec := range specs {
		hosts[i] = testHost(t, spec)
	}
	va, err := newVmAllocator(policy, hosts)
	require.NoError(t, err)
	return va
}

func TestFirstFitRejectsTooWideVmOnly(t *testing.T) {
	va := testAllocator(t, ALLOC_FIRST_FIT, hostSpec(0, 8, 1000))

	wide := testVm(t, 0, 16, 1000)
	_, ok := va.allocateHostForVm(wide)
	assert.False(t, ok)
	assert.False(t, wide.isPlaced())

	small := testVm(t, 1, 2, 1000)
	h, ok := va.allocateHostForVm(small)
	require.True(t, ok)
	assert.Equal(t, 0, h.Id())
	hostId, placed := small.HostId()
	assert.True(t, placed)
	assert.Equal(t, 0, hostId)
}

func TestFirstFitUsesCreationOrder(t *testing.T) {
	small := hostSpec(0, 4, 1000)
	small.Ram = 1024
	va := testAllocator(t, ALLOC_FIRST_FIT, small, hostSpec(1, 4, 1000), hostSpec(2, 4, 1000))

	vm, err := NewVm(VmSpec{Id: 1, Mips: 1000, Cores: 1, Ram: 2048, Bw: 100, Size: 100})
	require.NoError(t, err)
	h, ok := va.allocateHostForVm(vm)
	require.True(t, ok)
	assert.Equal(t, 1, h.Id())

	// a smaller one goes back to host 0
	vm2 := testVm(t, 2, 1, 1000)
	h, ok = va.allocateHostForVm(vm2)
	require.True(t, ok)
	assert.Equal(t, 0, h.Id())
}

func TestAllocationRollsBackPartialReservation(t *testing.T) {
	spec := hostSpec(0, 4, 1000)
	spec.Bw = 500
	va := testAllocator(t, ALLOC_FIRST_FIT, spec)
	h := va.hosts[0]

	vm := testVm(t, 1, 1, 1000)
	_, ok := va.allocateHostForVm(vm)
	assert.False(t, ok)
	assert.Equal(t, h.ramProv.getCapacity(), h.ramProv.getAvailable())
	assert.Equal(t, h.storageProv.getCapacity(), h.storageProv.getAvailable())
	assert.Equal(t, h.bwProv.getCapacity(), h.bwProv.getAvailable())
	assert.Empty(t, h.vms)
}

func TestDeallocateRestoresHost(t *testing.T) {
	va := testAllocator(t, ALLOC_FIRST_FIT, hostSpec(0, 4, 1000))
	h := va.hosts[0]
	vm := testVm(t, 1, 2, 1000)

	_, ok := va.allocateHostForVm(vm)
	require.True(t, ok)
	assert.Equal(t, 16384.0-512, h.ramProv.getAvailable())
	assert.Equal(t, h, va.getHost(vm))

	va.deallocateHostForVm(vm)
	assert.Equal(t, h.ramProv.getCapacity(), h.ramProv.getAvailable())
	assert.Equal(t, h.bwProv.getCapacity(), h.bwProv.getAvailable())
	assert.Equal(t, h.storageProv.getCapacity(), h.storageProv.getAvailable())
	assert.InDelta(t, 4000, float64(h.vmSched.availableMips()), RESOURCE_EPSILON)
	assert.Nil(t, va.getHost(vm))
}

func TestMostFreePesSpreads(t *testing.T) {
	va := testAllocator(t, ALLOC_MOST_FREE_PES, hostSpec(0, 8, 1000), hostSpec(1, 8, 1000), hostSpec(2, 4, 1000))

	ids := make([]int, 0)
	for i := 0; i < 3; i++ {
		h, ok := va.allocateHostForVm(testVm(t, i, 2, 1000))
		require.True(t, ok)
		ids = append(ids, h.Id())
	}
	// 8,8,4 free -> 6,8,4 -> 6,6,4
	assert.Equal(t, []int{0, 1, 0}, ids)
}

func TestMostFreePesKeepsCreationOrderOnTies(t *testing.T) {
	va := testAllocator(t, ALLOC_MOST_FREE_PES, hostSpec(0, 2, 1000), hostSpec(1, 4, 1000), hostSpec(2, 4, 1000), hostSpec(3, 2, 1000))

	ids := make([]int, 0)
	for _, h := range va.candidates() {
		ids = append(ids, h.Id())
	}
	assert.Equal(t, []int{1, 2, 0, 3}, ids)
}

func TestFailedHostIsSkipped(t *testing.T) {
	va := testAllocator(t, ALLOC_FIRST_FIT, hostSpec(0, 4, 1000), hostSpec(1, 4, 1000))
	va.hosts[0].failed = true

	h, ok := va.allocateHostForVm(testVm(t, 1, 1, 1000))
	require.True(t, ok)
	assert.Equal(t, 1, h.Id())
}

func TestUnknownAllocPolicy(t *testing.T) {
	_, err := newVmAllocator(AllocPolicy(9), nil)
	assert.Error(t, err)
}

func TestReservationsNeverExceedCapacity(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	specs := make([]HostSpec, 0, 4)
	for i := 0; i < 4; i++ {
		spec := hostSpec(i, 4, 1000)
		spec.Ram = 4096
		spec.Bw = 4000
		spec.Storage = 50000
		specs = append(specs, spec)
	}
	va := testAllocator(t, ALLOC_FIRST_FIT, specs...)

	placed := make([]*Vm, 0)
	for i := 0; i < 60; i++ {
		vm, err := NewVm(VmSpec{
			Id:    i,
			Mips:  float64(250 + r.Intn(750)),
			Cores: 1 + r.Intn(4),
			Ram:   Tmem(256 + r.Intn(2048)),
			Bw:    Tbw(r.Intn(1500)),
			Size:  Tmem(1000 + r.Intn(20000)),
		})
		require.NoError(t, err)
		if _, ok := va.allocateHostForVm(vm); ok {
			placed = append(placed, vm)
		}
		// drop one now and then so hosts churn
		if len(placed) > 0 && r.Intn(3) == 0 {
			idx := r.Intn(len(placed))
			va.deallocateHostForVm(placed[idx])
			placed = append(placed[:idx], placed[idx+1:]...)
		}

		for _, h := range va.hosts {
			var ram, bw, storage float64
			for _, v := range h.vms {
				ram += float64(v.ram)
				bw += float64(v.bw)
				storage += float64(v.size)
			}
			assert.LessOrEqual(t, ram, h.ramProv.getCapacity())
			assert.LessOrEqual(t, bw, h.bwProv.getCapacity())
			assert.LessOrEqual(t, storage, h.storageProv.getCapacity())
			assert.InDelta(t, h.ramProv.getCapacity()-ram, h.ramProv.getAvailable(), RESOURCE_EPSILON)
			assert.LessOrEqual(t, committedTotal(h), float64(h.totalMips())+RESOURCE_EPSILON)
		}
	}
}
