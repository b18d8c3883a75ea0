package dcsim

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

type VmSchedPolicy int

const (
	VM_SCHED_TIME_SHARED VmSchedPolicy = iota
	VM_SCHED_SPACE_SHARED
)

func (p VmSchedPolicy) String() string {
	return []string{"time_shared", "space_shared"}[p]
}

// vmScheduler decides how much mips each core of each resident vm gets on one host.
type vmScheduler interface {
	admits(vm *Vm) bool
	addVm(vm *Vm) bool
	removeVm(vm *Vm)
	allocatedMipsFor(vm *Vm) []Tmips
	totalMips() Tmips
	availableMips() Tmips
	freePes() int
}

func newVmScheduler(policy VmSchedPolicy, pes []*Pe) (vmScheduler, error) {
	switch policy {
	case VM_SCHED_TIME_SHARED:
		return &timeSharedVmSched{pes: pes, grants: make(map[*Vm][]Tmips)}, nil
	case VM_SCHED_SPACE_SHARED:
		return &spaceSharedVmSched{pes: pes, owner: make(map[*Pe]*Vm)}, nil
	}
	return nil, invalidConfig("unknown vm scheduler policy %d", policy)
}

func peMipsTotal(pes []*Pe) Tmips {
	ms := make([]float64, len(pes))
	for i, pe := range pes {
		ms[i] = float64(pe.mips)
	}
	return Tmips(floats.Sum(ms))
}

func peMipsAvailable(pes []*Pe) Tmips {
	ms := make([]float64, len(pes))
	for i, pe := range pes {
		ms[i] = pe.prov.getAvailable()
	}
	return Tmips(floats.Sum(ms))
}

func maxPeMips(pes []*Pe) Tmips {
	max := Tmips(0)
	for _, pe := range pes {
		if pe.mips > max {
			max = pe.mips
		}
	}
	return max
}

// ------------------------------------------------------------------------------------------------
// TIME SHARED
// ------------------------------------------------------------------------------------------------

// vm cores are multiplexed over all pes. A vm is admitted only while the resident demand plus
// its own fits the host's mips; recompute still scales every core by the same factor if demand
// ever exceeds supply, so grants always sum to at most the host total.
type timeSharedVmSched struct {
	pes      []*Pe
	resident []*Vm
	grants   map[*Vm][]Tmips
}

func (vs *timeSharedVmSched) admits(vm *Vm) bool {
	if vm.cores > len(vs.pes) {
		return false
	}
	if !lessThanOrEqual(float64(vm.mips), float64(maxPeMips(vs.pes))) {
		return false
	}
	return lessThanOrEqual(vs.demand()+float64(vm.requestedMips()), float64(vs.totalMips()))
}

func (vs *timeSharedVmSched) addVm(vm *Vm) bool {
	if !vs.admits(vm) {
		return false
	}
	vs.resident = append(vs.resident, vm)
	vs.recompute()
	return true
}

func (vs *timeSharedVmSched) removeVm(vm *Vm) {
	for i, v := range vs.resident {
		if v == vm {
			vs.resident = append(vs.resident[:i], vs.resident[i+1:]...)
			break
		}
	}
	delete(vs.grants, vm)
	vm.setAllocatedMips(nil)
	vs.recompute()
}

func (vs *timeSharedVmSched) demand() float64 {
	ds := make([]float64, 0, len(vs.resident))
	for _, vm := range vs.resident {
		ds = append(ds, float64(vm.requestedMips()))
	}
	return floats.Sum(ds)
}

func (vs *timeSharedVmSched) recompute() {
	supply := float64(vs.totalMips())
	demand := vs.demand()

	scale := 1.0
	if lessThan(supply, demand) {
		scale = supply / demand
	}

	vs.grants = make(map[*Vm][]Tmips, len(vs.resident))
	for _, vm := range vs.resident {
		perCore := make([]Tmips, vm.cores)
		for i := range perCore {
			perCore[i] = vm.mips * Tmips(scale)
		}
		vs.grants[vm] = perCore
		vm.setAllocatedMips(perCore)
	}
	vs.commitToPes()
}

// lays the per-core grants onto the pes in order, splitting a vm core over two pes when one runs out
func (vs *timeSharedVmSched) commitToPes() {
	left := make([]float64, len(vs.pes))
	for i, pe := range vs.pes {
		pe.prov.deallocateAll()
		left[i] = float64(pe.mips)
	}

	perPe := make([]map[*Vm]float64, len(vs.pes))
	for i := range perPe {
		perPe[i] = make(map[*Vm]float64)
	}

	peIdx := 0
	for _, vm := range vs.resident {
		for _, g := range vs.grants[vm] {
			toPlace := float64(g)
			for toPlace > RESOURCE_EPSILON && peIdx < len(vs.pes) {
				take := math.Min(toPlace, left[peIdx])
				perPe[peIdx][vm] += take
				left[peIdx] -= take
				toPlace -= take
				if left[peIdx] <= RESOURCE_EPSILON {
					peIdx += 1
				}
			}
		}
	}

	for i, pe := range vs.pes {
		for _, vm := range vs.resident {
			if amount, ok := perPe[i][vm]; ok {
				if !pe.prov.allocateForVm(vm, amount) {
					panic(errors.Wrapf(ErrCapacityUnderflow, "pe %d: cannot commit %.6f mips for vm %d, %.6f available",
						pe.id, amount, vm.Id(), pe.prov.getAvailable()))
				}
			}
		}
	}
}

func (vs *timeSharedVmSched) allocatedMipsFor(vm *Vm) []Tmips {
	return vs.grants[vm]
}

func (vs *timeSharedVmSched) totalMips() Tmips {
	return peMipsTotal(vs.pes)
}

func (vs *timeSharedVmSched) availableMips() Tmips {
	return peMipsAvailable(vs.pes)
}

func (vs *timeSharedVmSched) freePes() int {
	used := 0
	for _, vm := range vs.resident {
		used += vm.cores
	}
	if used >= len(vs.pes) {
		return 0
	}
	return len(vs.pes) - used
}

// ------------------------------------------------------------------------------------------------
// SPACE SHARED
// ------------------------------------------------------------------------------------------------

// every vm core owns one pe exclusively for the vm's lifetime
type spaceSharedVmSched struct {
	pes      []*Pe
	owner    map[*Pe]*Vm
	resident []*Vm
}

func (vs *spaceSharedVmSched) candidatePes(vm *Vm) []*Pe {
	cands := make([]*Pe, 0, vm.cores)
	for _, pe := range vs.pes {
		if _, taken := vs.owner[pe]; taken {
			continue
		}
		if lessThanOrEqual(float64(vm.mips), float64(pe.mips)) {
			cands = append(cands, pe)
		}
		if len(cands) == vm.cores {
			break
		}
	}
	return cands
}

func (vs *spaceSharedVmSched) admits(vm *Vm) bool {
	return vm.cores <= len(vs.pes) && len(vs.candidatePes(vm)) == vm.cores
}

func (vs *spaceSharedVmSched) addVm(vm *Vm) bool {
	if !vs.admits(vm) {
		return false
	}
	grants := make([]Tmips, 0, vm.cores)
	for _, pe := range vs.candidatePes(vm) {
		pe.prov.allocateForVm(vm, float64(vm.mips))
		vs.owner[pe] = vm
		grants = append(grants, vm.mips)
	}
	vs.resident = append(vs.resident, vm)
	vm.setAllocatedMips(grants)
	return true
}

func (vs *spaceSharedVmSched) removeVm(vm *Vm) {
	for _, pe := range vs.pes {
		if vs.owner[pe] == vm {
			pe.prov.deallocateForVm(vm)
			delete(vs.owner, pe)
		}
	}
	for i, v := range vs.resident {
		if v == vm {
			vs.resident = append(vs.resident[:i], vs.resident[i+1:]...)
			break
		}
	}
	vm.setAllocatedMips(nil)
}

func (vs *spaceSharedVmSched) allocatedMipsFor(vm *Vm) []Tmips {
	for _, v := range vs.resident {
		if v == vm {
			return vm.allocatedMips
		}
	}
	return nil
}

func (vs *spaceSharedVmSched) totalMips() Tmips {
	return peMipsTotal(vs.pes)
}

func (vs *spaceSharedVmSched) availableMips() Tmips {
	return peMipsAvailable(vs.pes)
}

func (vs *spaceSharedVmSched) freePes() int {
	return len(vs.pes) - len(vs.owner)
}
