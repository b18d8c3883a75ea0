package dcsim

import (
	"fmt"

	"github.com/markphelps/optional"
	log "github.com/sirupsen/logrus"
)

// Datacenter owns the hosts, places vms on them and runs the cloudlets it is sent.
type Datacenter struct {
	id                 Tid
	name               string
	characteristics    Characteristics
	hosts              []*Host
	allocator          *vmAllocator
	vms                map[vmKey]*Vm
	lastProcessTime    Ttime
	pendingUpdates     map[Ttime]bool
	schedulingInterval Ttime
	// charged once per placed vm
	hostingCost float64
}

func newDatacenter(id Tid, name string, hostSpecs []HostSpec, ch Characteristics, policy AllocPolicy, interval Ttime) (*Datacenter, error) {
	if len(hostSpecs) == 0 {
		return nil, invalidConfig("datacenter %s: no hosts", name)
	}
	if interval < 0 {
		return nil, invalidConfig("datacenter %s: scheduling interval %v", name, interval)
	}
	seen := make(map[int]bool, len(hostSpecs))
	hosts := make([]*Host, 0, len(hostSpecs))
	for _, spec := range hostSpecs {
		if seen[spec.Id] {
			return nil, invalidConfig("datacenter %s: duplicate host id %d", name, spec.Id)
		}
		seen[spec.Id] = true
		h, err := newHost(spec)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	allocator, err := newVmAllocator(policy, hosts)
	if err != nil {
		return nil, err
	}
	return &Datacenter{
		id:                 id,
		name:               name,
		characteristics:    ch,
		hosts:              hosts,
		allocator:          allocator,
		vms:                make(map[vmKey]*Vm),
		pendingUpdates:     make(map[Ttime]bool),
		schedulingInterval: interval,
	}, nil
}

func (dc *Datacenter) String() string {
	return fmt.Sprintf("datacenter %d %s: %d hosts, %d vms, utilization %.3f",
		dc.id, dc.name, len(dc.hosts), len(dc.vms), dc.meanUtilization())
}

func (dc *Datacenter) Id() int                          { return int(dc.id) }
func (dc *Datacenter) Name() string                     { return dc.name }
func (dc *Datacenter) Characteristics() Characteristics { return dc.characteristics }
func (dc *Datacenter) HostingCost() float64             { return dc.hostingCost }

func (dc *Datacenter) entityId() Tid      { return dc.id }
func (dc *Datacenter) entityName() string { return dc.name }

func (dc *Datacenter) host(id Tid) *Host {
	for _, h := range dc.hosts {
		if h.id == id {
			return h
		}
	}
	return nil
}

// mean cpu utilization over the hosts still alive
func (dc *Datacenter) meanUtilization() float64 {
	utils := make([]float64, 0, len(dc.hosts))
	for _, h := range dc.hosts {
		if !h.failed {
			utils = append(utils, h.cpuUtilization())
		}
	}
	return avg(utils)
}

func (dc *Datacenter) hasWork() bool {
	for _, vm := range dc.vms {
		if vm.cloudletSched.hasWork() {
			return true
		}
	}
	return false
}

func (dc *Datacenter) processEvent(sim *Simulation, ev *Event) {
	switch ev.tag {
	case EV_VM_CREATE:
		dc.processVmCreate(sim, ev.src, ev.data.(*Vm))
	case EV_VM_DESTROY:
		dc.processVmDestroy(sim, ev.data.(vmKey))
	case EV_CLOUDLET_SUBMIT:
		dc.processCloudletSubmit(sim, ev.src, ev.data.(*Cloudlet))
	case EV_UPDATE_RESOURCE:
		delete(dc.pendingUpdates, ev.time)
		dc.updateProcessing(sim)
	case EV_HOST_FAIL:
		dc.processHostFail(sim, ev.data.(Tid))
	default:
		sim.log.WithField("event", ev.String()).Warn("datacenter got unexpected event")
	}
}

func (dc *Datacenter) processVmCreate(sim *Simulation, src Tid, vm *Vm) {
	now := sim.Now()
	// credit the running cloudlets with the shares they had before the resident set changes
	dc.updateProcessing(sim)

	ok := false
	var h *Host
	if _, dup := dc.vms[vm.key()]; !dup && vm.state == VM_CREATED {
		h, ok = dc.allocator.allocateHostForVm(vm)
	}
	hostId := -1
	if ok {
		hostId = int(h.id)
		dc.vms[vm.key()] = vm
		dc.hostingCost += dc.characteristics.vmCost(vm)
		sim.metrics.VmPlaced.Inc(1)
		dc.scheduleUpdateAt(sim, now)
	} else {
		vm.state = VM_FAILED
		sim.metrics.VmRejected.Inc(1)
	}
	sim.log.WithFields(log.Fields{
		"clock":  now,
		"vm":     vm.id,
		"user":   vm.userId,
		"host":   hostId,
		"placed": ok,
	}).Debug("vm create")
	sim.logWrite(TRACE_VM_ALLOC, fmt.Sprintf("%v, %v, %v, %v, %v\n", float64(now), vm.id, vm.userId, hostId, ok))

	sim.send(dc.id, src, 0, EV_VM_CREATE_ACK, &vmCreateAck{vm: vm, dcId: dc.id, success: ok})
}

func (dc *Datacenter) processVmDestroy(sim *Simulation, key vmKey) {
	vm, ok := dc.vms[key]
	if !ok {
		sim.log.WithFields(log.Fields{"vm": key.vmId, "user": key.userId}).Debug("destroy for unknown vm")
		return
	}
	now := sim.Now()
	dc.updateProcessing(sim)
	dc.releaseVm(sim, vm, VM_DESTROYED)
	dc.scheduleUpdateAt(sim, now)
}

// the host disappears: its vms' cloudlets fail with whatever they executed so far
func (dc *Datacenter) processHostFail(sim *Simulation, hostId Tid) {
	h := dc.host(hostId)
	if h == nil || h.failed {
		return
	}
	now := sim.Now()
	dc.updateProcessing(sim)

	vms := append([]*Vm{}, h.vms...)
	for _, vm := range vms {
		dc.releaseVm(sim, vm, VM_FAILED)
		sim.metrics.VmFailed.Inc(1)
	}
	h.failed = true
	sim.log.WithFields(log.Fields{
		"clock": now,
		"host":  hostId,
		"vms":   len(vms),
	}).Info("host failed")
	dc.scheduleUpdateAt(sim, now)
}

func (dc *Datacenter) releaseVm(sim *Simulation, vm *Vm, state VmState) {
	for _, cl := range vm.cloudletSched.failAll(sim.Now()) {
		dc.returnCloudlet(sim, cl)
	}
	dc.allocator.deallocateHostForVm(vm)
	vm.unplace(state)
	delete(dc.vms, vm.key())
}

func (dc *Datacenter) processCloudletSubmit(sim *Simulation, src Tid, cl *Cloudlet) {
	now := sim.Now()
	cl.resourceId = dc.id

	var vm *Vm
	if vmId, err := cl.vmId.Get(); err == nil {
		vm = dc.vms[vmKey{userId: cl.userId, vmId: Tid(vmId)}]
	}
	if vm == nil || !vm.isPlaced() {
		cl.queue(now)
		cl.finish(STATUS_FAILED, now)
		sim.log.WithFields(log.Fields{
			"clock":    now,
			"cloudlet": cl.id,
			"vm":       cl.vmId.OrElse(-1),
		}).Debug("cloudlet submitted to unknown vm")
		dc.returnCloudlet(sim, cl)
		return
	}

	dc.updateProcessing(sim)
	hostId, _ := vm.HostId()
	cl.hostId = optional.NewInt(hostId)
	vm.cloudletSched.submit(cl, now)
	// a cloudlet the scheduler refused is already terminal and goes back with the update, unacknowledged
	if !cl.status.terminal() {
		sim.send(dc.id, src, 0, EV_CLOUDLET_SUBMIT_ACK, cl)
	}
	dc.scheduleUpdateAt(sim, now)
}

// advances every placed vm's cloudlets to now and returns the ones that finished
func (dc *Datacenter) updateProcessing(sim *Simulation) {
	now := sim.Now()
	next := TIME_NEVER
	for _, h := range dc.hosts {
		if h.failed {
			continue
		}
		for _, vm := range h.vms {
			est := vm.cloudletSched.updateProcessing(now, vm.allocatedMips)
			next = minTime(next, est)
			for _, cl := range vm.cloudletSched.takeFinished() {
				dc.returnCloudlet(sim, cl)
			}
		}
	}
	dc.lastProcessTime = now

	if dc.schedulingInterval > 0 && dc.hasWork() {
		next = minTime(next, now+dc.schedulingInterval)
	}
	if next == TIME_NEVER {
		return
	}
	if next < now+MIN_TIME_BETWEEN_EVENTS {
		next = now + MIN_TIME_BETWEEN_EVENTS
	}
	dc.scheduleUpdateAt(sim, next)
}

// at most one pending update per timestamp
func (dc *Datacenter) scheduleUpdateAt(sim *Simulation, t Ttime) {
	if dc.pendingUpdates[t] {
		return
	}
	dc.pendingUpdates[t] = true
	sim.sendAt(dc.id, dc.id, t, EV_UPDATE_RESOURCE, nil)
}

func (dc *Datacenter) returnCloudlet(sim *Simulation, cl *Cloudlet) {
	cl.cost = dc.characteristics.cloudletCost(cl)
	if cl.status == STATUS_SUCCESS {
		sim.metrics.CloudletSuccess.Inc(1)
	} else {
		sim.metrics.CloudletFailed.Inc(1)
	}
	sim.logWrite(TRACE_CLOUDLETS, fmt.Sprintf("%v, %v, %v, %v, %v, %v, %v\n",
		float64(sim.Now()), cl.id, cl.status, cl.vmId.OrElse(-1), cl.hostId.OrElse(-1), float64(cl.executed), cl.cost))
	sim.send(dc.id, cl.userId, 0, EV_CLOUDLET_RETURN, cl)
}
