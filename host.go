package dcsim

import (
	"fmt"
)

// Pe is one physical core with a fixed mips rating.
type Pe struct {
	id   Tid
	mips Tmips
	prov Provisioner
}

func newPe(id Tid, mips Tmips) *Pe {
	return &Pe{
		id:   id,
		mips: mips,
		prov: newProvisioner(RESOURCE_PE, float64(mips)),
	}
}

func (pe *Pe) String() string {
	return fmt.Sprintf("{pe %d: %.1f/%v free}", pe.id, pe.prov.getAvailable(), pe.mips)
}

// HostSpec describes one physical machine; PeMips holds the rating of each core in order.
type HostSpec struct {
	Id          int
	PeMips      []float64
	Ram         Tmem
	Bw          Tbw
	Storage     Tmem
	VmScheduler VmSchedPolicy
}

type Host struct {
	id          Tid
	pes         []*Pe
	ramProv     Provisioner
	bwProv      Provisioner
	storageProv Provisioner
	vmSched     vmScheduler
	vms         []*Vm
	failed      bool
}

func newHost(spec HostSpec) (*Host, error) {
	if spec.Id < 0 {
		return nil, invalidConfig("host %d: negative id", spec.Id)
	}
	if len(spec.PeMips) == 0 {
		return nil, invalidConfig("host %d: no pes", spec.Id)
	}
	if spec.Ram <= 0 {
		return nil, invalidConfig("host %d: ram %d", spec.Id, spec.Ram)
	}
	if spec.Bw < 0 || spec.Storage < 0 {
		return nil, invalidConfig("host %d: bw %d storage %d", spec.Id, spec.Bw, spec.Storage)
	}
	pes := make([]*Pe, len(spec.PeMips))
	for i, mips := range spec.PeMips {
		if mips <= 0 {
			return nil, invalidConfig("host %d: pe %d mips %v", spec.Id, i, mips)
		}
		pes[i] = newPe(Tid(i), Tmips(mips))
	}
	vmSched, err := newVmScheduler(spec.VmScheduler, pes)
	if err != nil {
		return nil, err
	}
	h := &Host{
		id:          Tid(spec.Id),
		pes:         pes,
		ramProv:     newProvisioner(RESOURCE_RAM, float64(spec.Ram)),
		bwProv:      newProvisioner(RESOURCE_BW, float64(spec.Bw)),
		storageProv: newProvisioner(RESOURCE_STORAGE, float64(spec.Storage)),
		vmSched:     vmSched,
		vms:         make([]*Vm, 0),
	}
	return h, nil
}

func (h *Host) String() string {
	str := fmt.Sprintf("host %d: ram %.0f/%.0f, bw %.0f/%.0f, storage %.0f/%.0f, vms: [",
		h.id, h.ramProv.getAvailable(), h.ramProv.getCapacity(), h.bwProv.getAvailable(), h.bwProv.getCapacity(),
		h.storageProv.getAvailable(), h.storageProv.getCapacity())
	for _, vm := range h.vms {
		str += fmt.Sprintf(" %d", vm.id)
	}
	return str + " ]"
}

func (h *Host) Id() int { return int(h.id) }

func (h *Host) provisioner(kind ResourceKind) Provisioner {
	switch kind {
	case RESOURCE_RAM:
		return h.ramProv
	case RESOURCE_BW:
		return h.bwProv
	case RESOURCE_STORAGE:
		return h.storageProv
	}
	return nil
}

// reserves storage, ram, bw and cpu for vm, rolling back on the first refusal
func (h *Host) vmCreate(vm *Vm) bool {
	if h.failed || !h.vmSched.admits(vm) {
		return false
	}
	if !h.storageProv.allocateForVm(vm, float64(vm.size)) {
		return false
	}
	if !h.ramProv.allocateForVm(vm, float64(vm.ram)) {
		h.storageProv.deallocateForVm(vm)
		return false
	}
	if !h.bwProv.allocateForVm(vm, float64(vm.bw)) {
		h.ramProv.deallocateForVm(vm)
		h.storageProv.deallocateForVm(vm)
		return false
	}
	if !h.vmSched.addVm(vm) {
		h.bwProv.deallocateForVm(vm)
		h.ramProv.deallocateForVm(vm)
		h.storageProv.deallocateForVm(vm)
		return false
	}
	h.vms = append(h.vms, vm)
	vm.placeOn(h)
	return true
}

func (h *Host) vmDestroy(vm *Vm) {
	idx := -1
	for i, v := range h.vms {
		if v == vm {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	h.vms = append(h.vms[:idx], h.vms[idx+1:]...)
	h.vmSched.removeVm(vm)
	h.bwProv.deallocateForVm(vm)
	h.ramProv.deallocateForVm(vm)
	h.storageProv.deallocateForVm(vm)
}

func (h *Host) numFreePes() int {
	return h.vmSched.freePes()
}

func (h *Host) totalMips() Tmips {
	return h.vmSched.totalMips()
}

// fraction of pe mips currently granted to vms
func (h *Host) cpuUtilization() float64 {
	total := h.totalMips()
	if total <= 0 {
		return 0
	}
	return float64(total-h.vmSched.availableMips()) / float64(total)
}
