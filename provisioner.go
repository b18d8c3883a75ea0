package dcsim

import (
	"fmt"

	"github.com/pkg/errors"
)

type ResourceKind int

const (
	RESOURCE_PE ResourceKind = iota // mips of one processing element
	RESOURCE_RAM
	RESOURCE_BW
	RESOURCE_STORAGE
)

func (rk ResourceKind) String() string {
	return []string{"pe", "ram", "bw", "storage"}[rk]
}

// Provisioner grants and revokes one bounded resource dimension of a host to vms.
// Grants are all or nothing; a host holds one per dimension (and one per pe).
type Provisioner interface {
	Kind() ResourceKind
	allocateForVm(vm *Vm, amount float64) bool
	deallocateForVm(vm *Vm)
	deallocateAll()
	getAllocatedForVm(vm *Vm) float64
	getAvailable() float64
	getCapacity() float64
}

type simpleProvisioner struct {
	kind      ResourceKind
	capacity  float64
	available float64
	table     map[*Vm]float64
}

func newProvisioner(kind ResourceKind, capacity float64) *simpleProvisioner {
	return &simpleProvisioner{
		kind:      kind,
		capacity:  capacity,
		available: capacity,
		table:     make(map[*Vm]float64),
	}
}

func (p *simpleProvisioner) String() string {
	return fmt.Sprintf("{%v: %.2f/%.2f, vms: %d}", p.kind, p.available, p.capacity, len(p.table))
}

func (p *simpleProvisioner) Kind() ResourceKind {
	return p.kind
}

// allocating again for a vm replaces its previous grant; on failure the previous grant is kept
func (p *simpleProvisioner) allocateForVm(vm *Vm, amount float64) bool {
	if amount < 0 {
		return false
	}
	prev, had := p.table[vm]
	if had {
		p.deallocateForVm(vm)
	}
	if !lessThanOrEqual(amount, p.available) {
		if had {
			p.available -= prev
			p.table[vm] = prev
		}
		return false
	}
	p.available -= amount
	p.table[vm] = amount
	return true
}

func (p *simpleProvisioner) deallocateForVm(vm *Vm) {
	amount, ok := p.table[vm]
	if !ok {
		return
	}
	delete(p.table, vm)
	p.release(amount)
}

func (p *simpleProvisioner) deallocateAll() {
	for vm := range p.table {
		p.deallocateForVm(vm)
	}
}

func (p *simpleProvisioner) release(amount float64) {
	p.available += amount
	if lessThan(p.capacity, p.available) {
		panic(errors.Wrapf(ErrCapacityUnderflow, "%v provisioner: available %.6f above capacity %.6f",
			p.kind, p.available, p.capacity))
	}
	// absorb rounding so a fully released provisioner reads exactly its capacity
	if len(p.table) == 0 {
		p.available = p.capacity
	}
}

func (p *simpleProvisioner) getAllocatedForVm(vm *Vm) float64 {
	return p.table[vm]
}

func (p *simpleProvisioner) getAvailable() float64 {
	return p.available
}

func (p *simpleProvisioner) getCapacity() float64 {
	return p.capacity
}
