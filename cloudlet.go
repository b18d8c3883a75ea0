package dcsim

import (
	"fmt"
	"math"
	"strconv"

	"github.com/markphelps/optional"
)

type CloudletStatus int

const (
	STATUS_CREATED CloudletStatus = iota
	STATUS_QUEUED
	STATUS_RUNNING
	STATUS_SUCCESS
	STATUS_FAILED
)

func (s CloudletStatus) String() string {
	return []string{"CREATED", "QUEUED", "RUNNING", "SUCCESS", "FAILED"}[s]
}

func (s CloudletStatus) terminal() bool {
	return s == STATUS_SUCCESS || s == STATUS_FAILED
}

// CloudletSpec describes a unit of work before it is handed to a broker.
type CloudletSpec struct {
	Id         int
	Length     float64 // million instructions
	Cores      int
	FileSize   Tmem
	OutputSize Tmem
	// nil models default to full utilization
	UtilizationCpu UtilizationModel
	UtilizationRam UtilizationModel
	UtilizationBw  UtilizationModel
	// unset lets the broker bind round robin over its created vms
	VmId        optional.Int
	SubmitDelay Ttime
}

type Cloudlet struct {
	id          Tid
	userId      Tid
	vmId        optional.Int
	length      Tmi
	cores       int
	fileSize    Tmem
	outputSize  Tmem
	utilCpu     UtilizationModel
	utilRam     UtilizationModel
	utilBw      UtilizationModel
	submitDelay Ttime

	status         CloudletStatus
	executed       Tmi
	submissionTime Ttime
	execStart      optional.Float64
	finishTime     optional.Float64
	resourceId     Tid
	hostId         optional.Int
	cost           float64
}

// NewCloudlet validates spec and returns a cloudlet in the CREATED state.
func NewCloudlet(spec CloudletSpec) (*Cloudlet, error) {
	if spec.Id < 0 {
		return nil, invalidConfig("cloudlet %d: negative id", spec.Id)
	}
	if spec.Length <= 0 || math.IsInf(spec.Length, 0) || math.IsNaN(spec.Length) {
		return nil, invalidConfig("cloudlet %d: length %v", spec.Id, spec.Length)
	}
	if spec.Cores <= 0 {
		return nil, invalidConfig("cloudlet %d: cores %d", spec.Id, spec.Cores)
	}
	if spec.FileSize < 0 || spec.OutputSize < 0 {
		return nil, invalidConfig("cloudlet %d: file sizes %d/%d", spec.Id, spec.FileSize, spec.OutputSize)
	}
	if spec.SubmitDelay < 0 {
		return nil, invalidConfig("cloudlet %d: submit delay %v", spec.Id, spec.SubmitDelay)
	}
	cl := &Cloudlet{
		id:          Tid(spec.Id),
		userId:      -1,
		vmId:        spec.VmId,
		length:      Tmi(spec.Length),
		cores:       spec.Cores,
		fileSize:    spec.FileSize,
		outputSize:  spec.OutputSize,
		utilCpu:     orFull(spec.UtilizationCpu),
		utilRam:     orFull(spec.UtilizationRam),
		utilBw:      orFull(spec.UtilizationBw),
		submitDelay: spec.SubmitDelay,
		status:      STATUS_CREATED,
		resourceId:  -1,
	}
	return cl, nil
}

func orFull(u UtilizationModel) UtilizationModel {
	if u == nil {
		return UtilizationFull()
	}
	return u
}

func (cl *Cloudlet) String() string {
	return "{" + strconv.Itoa(int(cl.id)) +
		": " + cl.status.String() +
		", vm: " + strconv.Itoa(cl.vmId.OrElse(-1)) +
		", length: " + strconv.FormatFloat(float64(cl.length), 'f', 1, 64) +
		", executed: " + strconv.FormatFloat(float64(cl.executed), 'f', 1, 64) +
		"}"
}

func (cl *Cloudlet) Id() int                { return int(cl.id) }
func (cl *Cloudlet) Status() CloudletStatus { return cl.status }
func (cl *Cloudlet) Executed() float64      { return float64(cl.executed) }

func (cl *Cloudlet) remaining() Tmi {
	return cl.length - cl.executed
}

func (cl *Cloudlet) isDone() bool {
	slack := math.Max(RESOURCE_EPSILON, LENGTH_EPSILON*float64(cl.length))
	return float64(cl.remaining()) <= slack
}

// credits up to toRun instructions, returning how many were used and whether the cloudlet is done
func (cl *Cloudlet) runTillOutOrDone(toRun Tmi) (Tmi, bool) {
	if cl.status != STATUS_RUNNING || toRun <= 0 {
		return 0, cl.isDone()
	}

	workLeft := cl.remaining()

	if workLeft <= toRun {
		cl.executed = cl.length
		return workLeft, true
	}
	cl.executed += toRun
	return toRun, cl.isDone()
}

func (cl *Cloudlet) queue(now Ttime) {
	if cl.status.terminal() {
		return
	}
	cl.status = STATUS_QUEUED
	cl.submissionTime = now
}

func (cl *Cloudlet) start(now Ttime) {
	if cl.status != STATUS_QUEUED {
		return
	}
	cl.status = STATUS_RUNNING
	cl.execStart = optional.NewFloat64(float64(now))
}

// terminal statuses are set once; later calls are no-ops
func (cl *Cloudlet) finish(status CloudletStatus, now Ttime) bool {
	if cl.status.terminal() || !status.terminal() {
		return false
	}
	if status == STATUS_SUCCESS {
		cl.executed = cl.length
	}
	cl.status = status
	cl.finishTime = optional.NewFloat64(float64(now))
	return true
}

// wall time between the first tick the cloudlet ran and its finish
func (cl *Cloudlet) actualCpuTime() float64 {
	start, err := cl.execStart.Get()
	if err != nil {
		return 0
	}
	return cl.finishTime.OrElse(start) - start
}

// CloudletResult is the immutable outcome of a terminal cloudlet as seen by its broker.
type CloudletResult struct {
	Id             int
	Status         CloudletStatus
	DatacenterId   int
	HostId         int // -1 when never placed
	VmId           int // -1 when never bound
	ActualCpuTime  float64
	StartTime      float64
	FinishTime     float64
	ExecutedLength float64
	Cost           float64
}

func (cl *Cloudlet) result() CloudletResult {
	return CloudletResult{
		Id:             int(cl.id),
		Status:         cl.status,
		DatacenterId:   int(cl.resourceId),
		HostId:         cl.hostId.OrElse(-1),
		VmId:           cl.vmId.OrElse(-1),
		ActualCpuTime:  cl.actualCpuTime(),
		StartTime:      cl.execStart.OrElse(0),
		FinishTime:     cl.finishTime.OrElse(0),
		ExecutedLength: float64(cl.executed),
		Cost:           cl.cost,
	}
}

func (r CloudletResult) String() string {
	return fmt.Sprintf("{cloudlet %d %v dc %d host %d vm %d cpu %.2f start %.2f finish %.2f}",
		r.Id, r.Status, r.DatacenterId, r.HostId, r.VmId, r.ActualCpuTime, r.StartTime, r.FinishTime)
}
