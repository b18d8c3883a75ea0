package dcsim

import (
	"context"
	"fmt"
	"io"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
)

// entity is anything events can be addressed to
type entity interface {
	entityId() Tid
	entityName() string
	processEvent(sim *Simulation, ev *Event)
}

// Simulation owns the clock, the event queue and every datacenter and broker.
// It is single threaded: all state changes happen inside RunUntilIdle's loop.
type Simulation struct {
	runId              string
	clock              Clock
	queue              *eventQueue
	entities           map[Tid]entity
	datacenters        []*Datacenter
	brokers            []*Broker
	nextId             Tid
	running            bool
	terminateAt        Ttime
	schedulingInterval Ttime
	log                *log.Entry
	metrics            *Metrics
	traceWriters       map[TraceCategory]io.Writer
}

type Option func(*Simulation)

// WithClock replaces the default virtual clock.
func WithClock(c Clock) Option {
	return func(sim *Simulation) { sim.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(sim *Simulation) { sim.log = log.NewEntry(l) }
}

func WithScope(scope tally.Scope) Option {
	return func(sim *Simulation) { sim.metrics = NewMetrics(scope) }
}

// WithTraceWriters turns on csv tracing for the given categories.
func WithTraceWriters(ws map[TraceCategory]io.Writer) Option {
	return func(sim *Simulation) { sim.traceWriters = ws }
}

// WithTerminationTime stops the run before the first event later than t.
func WithTerminationTime(t Ttime) Option {
	return func(sim *Simulation) { sim.terminateAt = t }
}

// WithSchedulingInterval makes datacenters also update at this period while they have work,
// which time-varying utilization models need.
func WithSchedulingInterval(t Ttime) Option {
	return func(sim *Simulation) { sim.schedulingInterval = t }
}

func NewSimulation(opts ...Option) *Simulation {
	sim := &Simulation{
		runId:        uuid.New(),
		clock:        newSimClock(),
		queue:        newEventQueue(),
		entities:     make(map[Tid]entity),
		log:          log.NewEntry(log.StandardLogger()),
		metrics:      NewMetrics(tally.NoopScope),
		traceWriters: map[TraceCategory]io.Writer{},
	}
	for _, opt := range opts {
		opt(sim)
	}
	sim.log = sim.log.WithField("run_id", sim.runId)
	return sim
}

func (sim *Simulation) String() string {
	str := fmt.Sprintf("run %s @ %v, pending events %d\n", sim.runId, sim.Now(), sim.queue.qlen())
	for _, dc := range sim.datacenters {
		str += "  " + dc.String() + "\n"
	}
	return str
}

func (sim *Simulation) Now() Ttime {
	return sim.clock.Now()
}

func (sim *Simulation) RunId() string {
	return sim.runId
}

func (sim *Simulation) register(e entity) {
	sim.entities[e.entityId()] = e
}

func (sim *Simulation) newId() Tid {
	id := sim.nextId
	sim.nextId += 1
	return id
}

// CreateDatacenter builds the hosts from specs and registers a datacenter using the given allocation policy.
func (sim *Simulation) CreateDatacenter(name string, hostSpecs []HostSpec, ch Characteristics, policy AllocPolicy) (*Datacenter, error) {
	if len(sim.datacenters) > 0 {
		return nil, invalidConfig("datacenter %s: only one datacenter per simulation", name)
	}
	dc, err := newDatacenter(sim.newId(), name, hostSpecs, ch, policy, sim.schedulingInterval)
	if err != nil {
		return nil, err
	}
	sim.datacenters = append(sim.datacenters, dc)
	sim.register(dc)
	sim.log.WithFields(log.Fields{
		"datacenter": name,
		"id":         dc.id,
		"hosts":      len(dc.hosts),
		"policy":     policy,
	}).Info("datacenter created")
	return dc, nil
}

func (sim *Simulation) CreateBroker(name string) *Broker {
	b := newBroker(sim.newId(), name)
	sim.brokers = append(sim.brokers, b)
	sim.register(b)
	return b
}

func (sim *Simulation) broker(brokerId int) (*Broker, error) {
	e, ok := sim.entities[Tid(brokerId)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntity, "broker %d", brokerId)
	}
	b, ok := e.(*Broker)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntity, "entity %d is not a broker", brokerId)
	}
	return b, nil
}

func (sim *Simulation) datacenter(dcId int) (*Datacenter, error) {
	e, ok := sim.entities[Tid(dcId)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntity, "datacenter %d", dcId)
	}
	dc, ok := e.(*Datacenter)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntity, "entity %d is not a datacenter", dcId)
	}
	return dc, nil
}

// SubmitVmList hands vms to a broker; they are sent for placement when the simulation runs.
func (sim *Simulation) SubmitVmList(brokerId int, vms []*Vm) error {
	if sim.running {
		return ErrSimulationRunning
	}
	b, err := sim.broker(brokerId)
	if err != nil {
		return err
	}
	return b.SubmitVmList(vms)
}

// SubmitCloudletList hands cloudlets to a broker; they are submitted once its vms are acknowledged.
func (sim *Simulation) SubmitCloudletList(brokerId int, cloudlets []*Cloudlet) error {
	if sim.running {
		return ErrSimulationRunning
	}
	b, err := sim.broker(brokerId)
	if err != nil {
		return err
	}
	return b.SubmitCloudletList(cloudlets)
}

// ReceivedCloudlets returns the results a broker has collected, in arrival order.
func (sim *Simulation) ReceivedCloudlets(brokerId int) ([]CloudletResult, error) {
	b, err := sim.broker(brokerId)
	if err != nil {
		return nil, err
	}
	return b.ReceivedCloudlets(), nil
}

// ScheduleHostFailure makes a host disappear at the given time; its vms' cloudlets fail.
func (sim *Simulation) ScheduleHostFailure(dcId int, hostId int, at Ttime) error {
	dc, err := sim.datacenter(dcId)
	if err != nil {
		return err
	}
	if dc.host(Tid(hostId)) == nil {
		return errors.Wrapf(ErrUnknownEntity, "host %d in datacenter %d", hostId, dcId)
	}
	if at < sim.Now() {
		return invalidConfig("host failure at %v is in the past (now %v)", at, sim.Now())
	}
	sim.sendAt(dc.id, dc.id, at, EV_HOST_FAIL, Tid(hostId))
	return nil
}

// ScheduleVmDestroy has a broker tear one of its vms down at the given time.
func (sim *Simulation) ScheduleVmDestroy(brokerId int, vmId int, at Ttime) error {
	b, err := sim.broker(brokerId)
	if err != nil {
		return err
	}
	if len(sim.datacenters) == 0 {
		return errors.Wrap(ErrUnknownEntity, "no datacenter")
	}
	if at < sim.Now() {
		return invalidConfig("vm destroy at %v is in the past (now %v)", at, sim.Now())
	}
	sim.sendAt(b.id, sim.datacenters[0].id, at, EV_VM_DESTROY, vmKey{userId: b.id, vmId: Tid(vmId)})
	return nil
}

func (sim *Simulation) send(src, dst Tid, delay Ttime, tag EventTag, data interface{}) {
	if delay < 0 {
		delay = 0
	}
	sim.sendAt(src, dst, sim.Now()+delay, tag, data)
}

func (sim *Simulation) sendAt(src, dst Tid, t Ttime, tag EventTag, data interface{}) {
	sim.queue.push(&Event{time: t, src: src, dst: dst, tag: tag, data: data})
}

// RunUntilIdle starts every broker with pending work and drains the event queue.
// It returns early only when ctx is done.
func (sim *Simulation) RunUntilIdle(ctx context.Context) error {
	if sim.running {
		return ErrSimulationRunning
	}
	if len(sim.datacenters) == 0 {
		return errors.Wrap(ErrUnknownEntity, "no datacenter to run against")
	}
	sim.running = true
	defer func() { sim.running = false }()

	for _, b := range sim.brokers {
		if b.hasPending() {
			sim.send(b.id, b.id, 0, EV_START, nil)
		}
	}

	sim.log.WithFields(log.Fields{
		"clock":  sim.Now(),
		"events": sim.queue.qlen(),
	}).Info("simulation started")

	nEvents := 0
	for sim.queue.qlen() > 0 {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "simulation interrupted at %v", sim.Now())
		}
		if sim.terminateAt > 0 && sim.queue.peek().time > sim.terminateAt {
			sim.log.WithField("termination_time", sim.terminateAt).Info("termination time reached")
			break
		}
		ev := sim.queue.pop()
		sim.clock.Set(ev.time)
		sim.dispatch(ev)
		nEvents += 1
	}

	for _, dc := range sim.datacenters {
		sim.log.WithFields(log.Fields{
			"datacenter":  dc.name,
			"utilization": fmt.Sprintf("%.3f", dc.meanUtilization()),
		}).Debug("datacenter state at end of run")
	}
	sim.log.WithFields(log.Fields{
		"clock":  sim.Now(),
		"events": nEvents,
	}).Info("simulation finished")
	return nil
}

func (sim *Simulation) dispatch(ev *Event) {
	sim.metrics.Clock.Update(float64(ev.time))
	sim.metrics.QueueDepth.Update(float64(sim.queue.qlen()))
	sim.logWrite(TRACE_EVENTS, fmt.Sprintf("%v, %v, %v, %v, %v\n", float64(ev.time), ev.seq, ev.tag, ev.src, ev.dst))

	e, ok := sim.entities[ev.dst]
	if !ok {
		sim.metrics.EventsDropped.Inc(1)
		sim.log.WithField("event", ev.String()).Debug("dropping event for unknown entity")
		return
	}
	sim.log.WithFields(log.Fields{
		"clock": ev.time,
		"event": ev.tag,
		"src":   ev.src,
		"dst":   e.entityName(),
	}).Debug("dispatch")
	e.processEvent(sim, ev)
	sim.metrics.EventsProcessed.Inc(1)
}
