package dcsim

import (
	"fmt"

	"github.com/markphelps/optional"
	"gonum.org/v1/gonum/floats"
)

type VmState int

const (
	VM_CREATED VmState = iota
	VM_PLACED
	VM_FAILED
	VM_DESTROYED
)

func (s VmState) String() string {
	return []string{"created", "placed", "failed", "destroyed"}[s]
}

// VmSpec describes a virtual machine request before it is submitted to a broker.
type VmSpec struct {
	Id                int
	Mips              float64 // per core
	Cores             int
	Ram               Tmem
	Bw                Tbw
	Size              Tmem // image size
	Vmm               string
	CloudletScheduler CloudletSchedPolicy
}

type Vm struct {
	id            Tid
	userId        Tid
	mips          Tmips
	cores         int
	ram           Tmem
	bw            Tbw
	size          Tmem
	vmm           string
	schedPolicy   CloudletSchedPolicy
	cloudletSched cloudletScheduler
	hostId        optional.Int
	allocatedMips []Tmips // per core, set by the host's vm scheduler
	state         VmState
}

// NewVm validates spec and returns an unplaced vm with its own cloudlet scheduler.
func NewVm(spec VmSpec) (*Vm, error) {
	if spec.Id < 0 {
		return nil, invalidConfig("vm %d: negative id", spec.Id)
	}
	if spec.Cores <= 0 {
		return nil, invalidConfig("vm %d: cores %d", spec.Id, spec.Cores)
	}
	if spec.Mips <= 0 {
		return nil, invalidConfig("vm %d: mips %v", spec.Id, spec.Mips)
	}
	if spec.Ram <= 0 {
		return nil, invalidConfig("vm %d: ram %d", spec.Id, spec.Ram)
	}
	if spec.Bw < 0 || spec.Size < 0 {
		return nil, invalidConfig("vm %d: bw %d size %d", spec.Id, spec.Bw, spec.Size)
	}
	sched, err := newCloudletScheduler(spec.CloudletScheduler, spec.Cores)
	if err != nil {
		return nil, err
	}
	return &Vm{
		id:            Tid(spec.Id),
		userId:        -1,
		mips:          Tmips(spec.Mips),
		cores:         spec.Cores,
		ram:           spec.Ram,
		bw:            spec.Bw,
		size:          spec.Size,
		vmm:           spec.Vmm,
		schedPolicy:   spec.CloudletScheduler,
		cloudletSched: sched,
		state:         VM_CREATED,
	}, nil
}

func (vm *Vm) String() string {
	return fmt.Sprintf("{vm %d user %d: %dx%v ram %d bw %d %s host %d %v}",
		vm.id, vm.userId, vm.cores, vm.mips, vm.ram, vm.bw, vm.vmm, vm.hostId.OrElse(-1), vm.state)
}

func (vm *Vm) Id() int        { return int(vm.id) }
func (vm *Vm) State() VmState { return vm.state }

// HostId reports the host the vm is placed on, if any.
func (vm *Vm) HostId() (int, bool) {
	id, err := vm.hostId.Get()
	return id, err == nil
}

func (vm *Vm) key() vmKey {
	return vmKey{userId: vm.userId, vmId: vm.id}
}

func (vm *Vm) requestedMips() Tmips {
	return vm.mips * Tmips(vm.cores)
}

// total mips granted by the host across all cores
func (vm *Vm) totalAllocatedMips() Tmips {
	if len(vm.allocatedMips) == 0 {
		return 0
	}
	return Tmips(floats.Sum(mipsToFloats(vm.allocatedMips)))
}

func (vm *Vm) setAllocatedMips(grants []Tmips) {
	vm.allocatedMips = grants
}

func (vm *Vm) placeOn(h *Host) {
	vm.hostId = optional.NewInt(int(h.id))
	vm.state = VM_PLACED
}

func (vm *Vm) unplace(state VmState) {
	vm.hostId = optional.Int{}
	vm.allocatedMips = nil
	vm.state = state
}

func (vm *Vm) isPlaced() bool {
	return vm.state == VM_PLACED && vm.hostId.Present()
}

type vmKey struct {
	userId Tid
	vmId   Tid
}

func mipsToFloats(ms []Tmips) []float64 {
	fs := make([]float64, len(ms))
	for i, m := range ms {
		fs[i] = float64(m)
	}
	return fs
}
