package dcsim

import (
	"gonum.org/v1/gonum/floats"
)

type CloudletSchedPolicy int

const (
	CLOUDLET_SCHED_TIME_SHARED CloudletSchedPolicy = iota
	CLOUDLET_SCHED_SPACE_SHARED
)

func (p CloudletSchedPolicy) String() string {
	return []string{"time_shared", "space_shared"}[p]
}

// cloudletScheduler advances the cloudlets of one vm over simulated time.
type cloudletScheduler interface {
	submit(cl *Cloudlet, now Ttime)
	// credits running cloudlets for the time since the previous call and returns
	// the estimated time of the next completion, or TIME_NEVER
	updateProcessing(now Ttime, mipsShare []Tmips) Ttime
	// newly terminal cloudlets since the last call
	takeFinished() []*Cloudlet
	failAll(now Ttime) []*Cloudlet
	running() []*Cloudlet
	hasWork() bool
}

func newCloudletScheduler(policy CloudletSchedPolicy, vmCores int) (cloudletScheduler, error) {
	switch policy {
	case CLOUDLET_SCHED_TIME_SHARED:
		return &timeSharedCloudletSched{base: newSchedBase()}, nil
	case CLOUDLET_SCHED_SPACE_SHARED:
		return &spaceSharedCloudletSched{base: newSchedBase(), vmCores: vmCores}, nil
	}
	return nil, invalidConfig("unknown cloudlet scheduler policy %d", policy)
}

type schedBase struct {
	waitQ    *Queue
	execQ    *Queue
	doneQ    *Queue
	prevTime Ttime
}

func newSchedBase() schedBase {
	return schedBase{
		waitQ: newQueue(),
		execQ: newQueue(),
		doneQ: newQueue(),
	}
}

func (sb *schedBase) submit(cl *Cloudlet, now Ttime) {
	cl.queue(now)
	sb.waitQ.enq(cl)
}

func (sb *schedBase) takeFinished() []*Cloudlet {
	return sb.doneQ.drain()
}

func (sb *schedBase) failAll(now Ttime) []*Cloudlet {
	failed := make([]*Cloudlet, 0)
	for _, cl := range append(sb.execQ.drain(), sb.waitQ.drain()...) {
		if cl.finish(STATUS_FAILED, now) {
			failed = append(failed, cl)
		}
	}
	return append(sb.takeFinished(), failed...)
}

func (sb *schedBase) running() []*Cloudlet {
	return sb.execQ.getQ()
}

func (sb *schedBase) hasWork() bool {
	return sb.execQ.qlen() > 0 || sb.waitQ.qlen() > 0
}

// runs every cloudlet in execQ at its own rate for the interval [prevTime, now];
// finished ones get an exact finish time inside the interval and move to doneQ
func (sb *schedBase) runExecQ(now Ttime, rateOf func(cl *Cloudlet) float64) {
	elapsed := now - sb.prevTime
	if elapsed < 0 {
		elapsed = 0
	}
	newQ := make([]*Cloudlet, 0, sb.execQ.qlen())
	for _, cl := range sb.execQ.getQ() {
		rate := rateOf(cl)
		used, done := cl.runTillOutOrDone(Tmi(rate * float64(elapsed)))
		if !done {
			newQ = append(newQ, cl)
			continue
		}
		finishAt := now
		if rate > 0 {
			finishAt = minTime(now, sb.prevTime+Ttime(float64(used)/rate))
		}
		cl.finish(STATUS_SUCCESS, finishAt)
		sb.doneQ.enq(cl)
	}
	sb.execQ.q = newQ
	sb.prevTime = now
}

func (sb *schedBase) nextCompletion(now Ttime, rateOf func(cl *Cloudlet) float64) Ttime {
	next := TIME_NEVER
	for _, cl := range sb.execQ.getQ() {
		rate := rateOf(cl)
		if rate <= 0 {
			continue
		}
		next = minTime(next, now+Ttime(float64(cl.remaining())/rate))
	}
	return next
}

// ------------------------------------------------------------------------------------------------
// TIME SHARED
// ------------------------------------------------------------------------------------------------

// all admitted cloudlets run at once; the vm's mips is split evenly, one share per cloudlet
type timeSharedCloudletSched struct {
	base schedBase
}

func (cs *timeSharedCloudletSched) share(mipsShare []Tmips) float64 {
	n := cs.base.execQ.qlen()
	if n == 0 {
		return 0
	}
	return floats.Sum(mipsToFloats(mipsShare)) / float64(n)
}

func (cs *timeSharedCloudletSched) updateProcessing(now Ttime, mipsShare []Tmips) Ttime {
	// the share for the elapsed interval is the one the cloudlets ran with, before admitting new ones
	share := cs.share(mipsShare)
	cs.base.runExecQ(now, func(cl *Cloudlet) float64 {
		return share * cl.utilCpu.Utilization(now)
	})

	for cs.base.waitQ.qlen() > 0 {
		cl := cs.base.waitQ.deq()
		cl.start(now)
		cs.base.execQ.enq(cl)
	}

	share = cs.share(mipsShare)
	return cs.base.nextCompletion(now, func(cl *Cloudlet) float64 {
		return share * cl.utilCpu.Utilization(now)
	})
}

func (cs *timeSharedCloudletSched) submit(cl *Cloudlet, now Ttime) { cs.base.submit(cl, now) }
func (cs *timeSharedCloudletSched) takeFinished() []*Cloudlet      { return cs.base.takeFinished() }
func (cs *timeSharedCloudletSched) failAll(now Ttime) []*Cloudlet  { return cs.base.failAll(now) }
func (cs *timeSharedCloudletSched) running() []*Cloudlet           { return cs.base.running() }
func (cs *timeSharedCloudletSched) hasWork() bool                  { return cs.base.hasWork() }

// ------------------------------------------------------------------------------------------------
// SPACE SHARED
// ------------------------------------------------------------------------------------------------

// a cloudlet runs only on vm cores of its own; the rest wait in fifo order
type spaceSharedCloudletSched struct {
	base    schedBase
	vmCores int
}

func (cs *spaceSharedCloudletSched) coresInUse() int {
	used := 0
	for _, cl := range cs.base.execQ.getQ() {
		used += cl.cores
	}
	return used
}

func perCoreMips(mipsShare []Tmips) float64 {
	if len(mipsShare) == 0 {
		return 0
	}
	return floats.Sum(mipsToFloats(mipsShare)) / float64(len(mipsShare))
}

// a cloudlet wider than the vm can never run and fails on submission
func (cs *spaceSharedCloudletSched) submit(cl *Cloudlet, now Ttime) {
	if cl.cores > cs.vmCores {
		cl.queue(now)
		cl.finish(STATUS_FAILED, now)
		cs.base.doneQ.enq(cl)
		return
	}
	cs.base.submit(cl, now)
}

func (cs *spaceSharedCloudletSched) updateProcessing(now Ttime, mipsShare []Tmips) Ttime {
	perCore := perCoreMips(mipsShare)
	rateOf := func(cl *Cloudlet) float64 {
		return perCore * float64(cl.cores) * cl.utilCpu.Utilization(now)
	}
	cs.base.runExecQ(now, rateOf)

	for cs.base.waitQ.qlen() > 0 {
		head := cs.base.waitQ.peek()
		if cs.coresInUse()+head.cores > cs.vmCores {
			break
		}
		cl := cs.base.waitQ.deq()
		cl.start(now)
		cs.base.execQ.enq(cl)
	}

	return cs.base.nextCompletion(now, rateOf)
}

func (cs *spaceSharedCloudletSched) takeFinished() []*Cloudlet     { return cs.base.takeFinished() }
func (cs *spaceSharedCloudletSched) failAll(now Ttime) []*Cloudlet { return cs.base.failAll(now) }
func (cs *spaceSharedCloudletSched) running() []*Cloudlet          { return cs.base.running() }
func (cs *spaceSharedCloudletSched) hasWork() bool                 { return cs.base.hasWork() }
