package dcsim

import (
	"golang.org/x/exp/slices"
)

type AllocPolicy int

const (
	ALLOC_FIRST_FIT     AllocPolicy = iota // hosts in creation order
	ALLOC_MOST_FREE_PES                    // hosts with the most unused pes first
)

func (p AllocPolicy) String() string {
	return []string{"first_fit", "most_free_pes"}[p]
}

// vmAllocator maps vms onto hosts with enough free capacity; no defragmentation
type vmAllocator struct {
	policy  AllocPolicy
	hosts   []*Host
	vmTable map[*Vm]*Host
}

func newVmAllocator(policy AllocPolicy, hosts []*Host) (*vmAllocator, error) {
	if policy != ALLOC_FIRST_FIT && policy != ALLOC_MOST_FREE_PES {
		return nil, invalidConfig("unknown allocation policy %d", policy)
	}
	return &vmAllocator{
		policy:  policy,
		hosts:   hosts,
		vmTable: make(map[*Vm]*Host),
	}, nil
}

func (va *vmAllocator) candidates() []*Host {
	hosts := make([]*Host, 0, len(va.hosts))
	for _, h := range va.hosts {
		if !h.failed {
			hosts = append(hosts, h)
		}
	}
	if va.policy == ALLOC_MOST_FREE_PES {
		slices.SortStableFunc(hosts, func(a, b *Host) bool {
			return a.numFreePes() > b.numFreePes()
		})
	}
	return hosts
}

// returns the host the vm now lives on, or false if no host could take it; the vm stays unplaced then
func (va *vmAllocator) allocateHostForVm(vm *Vm) (*Host, bool) {
	if h, ok := va.vmTable[vm]; ok {
		return h, true
	}
	for _, h := range va.candidates() {
		if h.vmCreate(vm) {
			va.vmTable[vm] = h
			return h, true
		}
	}
	return nil, false
}

func (va *vmAllocator) deallocateHostForVm(vm *Vm) {
	h, ok := va.vmTable[vm]
	if !ok {
		return
	}
	delete(va.vmTable, vm)
	h.vmDestroy(vm)
}

func (va *vmAllocator) getHost(vm *Vm) *Host {
	return va.vmTable[vm]
}
