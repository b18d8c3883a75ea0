package dcsim

import (
	"fmt"

	"github.com/markphelps/optional"
	log "github.com/sirupsen/logrus"
)

// Broker acts for one user: it owns the vm and cloudlet lists until they are handed to
// the datacenter, and collects what comes back.
type Broker struct {
	id           Tid
	name         string
	dcId         Tid
	vmList       []*Vm
	cloudletList []*Cloudlet

	acksPending int
	vmsCreated  []*Vm
	vmsRejected []*Vm
	outstanding int
	received    []CloudletResult
	// turnaround (finish - submission) per vm id
	turnaround map[int]*Distribution
}

func newBroker(id Tid, name string) *Broker {
	return &Broker{
		id:         id,
		name:       name,
		dcId:       -1,
		turnaround: make(map[int]*Distribution),
	}
}

func (b *Broker) String() string {
	return fmt.Sprintf("broker %d %s: %d vms created, %d rejected, %d cloudlets out, %d received",
		b.id, b.name, len(b.vmsCreated), len(b.vmsRejected), b.outstanding, len(b.received))
}

func (b *Broker) Id() int      { return int(b.id) }
func (b *Broker) Name() string { return b.name }

func (b *Broker) entityId() Tid      { return b.id }
func (b *Broker) entityName() string { return b.name }

func (b *Broker) hasPending() bool {
	return len(b.vmList) > 0 || len(b.cloudletList) > 0
}

// SubmitVmList appends vms to the broker's pending list. A vm belongs to one broker only.
func (b *Broker) SubmitVmList(vms []*Vm) error {
	seen := make(map[Tid]bool)
	for _, vm := range b.vmList {
		seen[vm.id] = true
	}
	for _, vm := range b.vmsCreated {
		seen[vm.id] = true
	}
	for _, vm := range vms {
		if vm == nil {
			return invalidConfig("broker %s: nil vm", b.name)
		}
		if vm.userId != -1 {
			return invalidConfig("broker %s: vm %d already submitted by %d", b.name, vm.id, vm.userId)
		}
		if seen[vm.id] {
			return invalidConfig("broker %s: duplicate vm id %d", b.name, vm.id)
		}
		seen[vm.id] = true
	}
	for _, vm := range vms {
		vm.userId = b.id
		b.vmList = append(b.vmList, vm)
	}
	return nil
}

// SubmitCloudletList appends cloudlets to the broker's pending list.
func (b *Broker) SubmitCloudletList(cloudlets []*Cloudlet) error {
	for _, cl := range cloudlets {
		if cl == nil {
			return invalidConfig("broker %s: nil cloudlet", b.name)
		}
		if cl.userId != -1 || cl.status != STATUS_CREATED {
			return invalidConfig("broker %s: cloudlet %d already submitted", b.name, cl.id)
		}
	}
	for _, cl := range cloudlets {
		cl.userId = b.id
		b.cloudletList = append(b.cloudletList, cl)
	}
	return nil
}

// ReceivedCloudlets returns a copy of the results collected so far, in arrival order.
func (b *Broker) ReceivedCloudlets() []CloudletResult {
	return append([]CloudletResult{}, b.received...)
}

func (b *Broker) CreatedVmIds() []int {
	ids := make([]int, len(b.vmsCreated))
	for i, vm := range b.vmsCreated {
		ids[i] = int(vm.id)
	}
	return ids
}

func (b *Broker) RejectedVmIds() []int {
	ids := make([]int, len(b.vmsRejected))
	for i, vm := range b.vmsRejected {
		ids[i] = int(vm.id)
	}
	return ids
}

// Turnaround reports the running turnaround statistics of the cloudlets that ran on vmId.
func (b *Broker) Turnaround(vmId int) (Distribution, bool) {
	d, ok := b.turnaround[vmId]
	if !ok {
		return Distribution{}, false
	}
	return *d, true
}

func (b *Broker) processEvent(sim *Simulation, ev *Event) {
	switch ev.tag {
	case EV_START:
		b.start(sim)
	case EV_VM_CREATE_ACK:
		b.processVmAck(sim, ev.data.(*vmCreateAck))
	case EV_CLOUDLET_SUBMIT_ACK:
		cl := ev.data.(*Cloudlet)
		sim.log.WithFields(log.Fields{"broker": b.name, "cloudlet": cl.id}).Debug("cloudlet queued")
	case EV_CLOUDLET_RETURN:
		b.processCloudletReturn(sim, ev.data.(*Cloudlet))
	default:
		sim.log.WithField("event", ev.String()).Warn("broker got unexpected event")
	}
}

// hands the pending vms to the datacenter; cloudlets follow once every vm is acknowledged
func (b *Broker) start(sim *Simulation) {
	b.dcId = sim.datacenters[0].id
	if len(b.vmList) == 0 {
		b.submitCloudlets(sim)
		return
	}
	for _, vm := range b.vmList {
		sim.send(b.id, b.dcId, 0, EV_VM_CREATE, vm)
		b.acksPending += 1
	}
	sim.log.WithFields(log.Fields{
		"broker":     b.name,
		"datacenter": b.dcId,
		"vms":        len(b.vmList),
	}).Info("creating vms")
	b.vmList = nil
}

func (b *Broker) processVmAck(sim *Simulation, ack *vmCreateAck) {
	b.acksPending -= 1
	if ack.success {
		b.vmsCreated = append(b.vmsCreated, ack.vm)
	} else {
		b.vmsRejected = append(b.vmsRejected, ack.vm)
		sim.log.WithFields(log.Fields{
			"broker": b.name,
			"vm":     ack.vm.id,
			"cores":  ack.vm.cores,
		}).Info("vm creation failed")
	}
	if b.acksPending == 0 {
		b.submitCloudlets(sim)
	}
}

// unbound cloudlets go round robin over the vms that were created
func (b *Broker) submitCloudlets(sim *Simulation) {
	rr := 0
	for _, cl := range b.cloudletList {
		if !cl.vmId.Present() && len(b.vmsCreated) > 0 {
			cl.vmId = optional.NewInt(int(b.vmsCreated[rr%len(b.vmsCreated)].id))
			rr += 1
		}
		sim.send(b.id, b.dcId, cl.submitDelay, EV_CLOUDLET_SUBMIT, cl)
		b.outstanding += 1
	}
	if len(b.cloudletList) > 0 {
		sim.log.WithFields(log.Fields{
			"broker":    b.name,
			"cloudlets": len(b.cloudletList),
		}).Info("submitting cloudlets")
	}
	b.cloudletList = nil
}

func (b *Broker) processCloudletReturn(sim *Simulation, cl *Cloudlet) {
	res := cl.result()
	b.received = append(b.received, res)
	b.outstanding -= 1
	if vmId, err := cl.vmId.Get(); err == nil && cl.status == STATUS_SUCCESS {
		d, ok := b.turnaround[vmId]
		if !ok {
			d = &Distribution{}
			b.turnaround[vmId] = d
		}
		d.update(res.FinishTime - float64(cl.submissionTime))
	}
	sim.log.WithFields(log.Fields{
		"clock":    sim.Now(),
		"broker":   b.name,
		"cloudlet": cl.id,
		"status":   cl.status,
	}).Debug("cloudlet returned")

	if b.outstanding == 0 && b.acksPending == 0 {
		b.teardown(sim)
	}
}

// all work is back: the vms are no longer needed
func (b *Broker) teardown(sim *Simulation) {
	for _, vm := range b.vmsCreated {
		if vm.isPlaced() {
			sim.send(b.id, b.dcId, 0, EV_VM_DESTROY, vm.key())
		}
	}
	sim.log.WithFields(log.Fields{
		"broker":   b.name,
		"received": len(b.received),
	}).Info("all cloudlets returned, destroying vms")
}
