package dcsim

import (
	"container/heap"
	"fmt"
)

type EventTag int

const (
	EV_START               EventTag = iota // sim -> broker; submit pending lists
	EV_VM_CREATE                           // broker -> dc; place a vm
	EV_VM_CREATE_ACK                       // dc -> broker; vm placed or rejected
	EV_VM_DESTROY                          // broker -> dc; tear a vm down
	EV_CLOUDLET_SUBMIT                     // broker -> dc; run a cloudlet on its vm
	EV_CLOUDLET_SUBMIT_ACK                 // dc -> broker; cloudlet queued
	EV_CLOUDLET_RETURN                     // dc -> broker; cloudlet terminal
	EV_UPDATE_RESOURCE                     // dc -> dc; advance every vm's cloudlets
	EV_HOST_FAIL                           // sim -> dc; host disappears
)

func (t EventTag) String() string {
	return []string{"start", "vm_create", "vm_create_ack", "vm_destroy", "cloudlet_submit",
		"cloudlet_submit_ack", "cloudlet_return", "update_resource", "host_fail"}[t]
}

type Event struct {
	time Ttime
	seq  uint64
	src  Tid
	dst  Tid
	tag  EventTag
	data interface{}
}

func (ev *Event) String() string {
	return fmt.Sprintf("{%v #%d %v %d->%d}", ev.time, ev.seq, ev.tag, ev.src, ev.dst)
}

func (ev *Event) Time() Ttime   { return ev.time }
func (ev *Event) Tag() EventTag { return ev.tag }

type vmCreateAck struct {
	vm      *Vm
	dcId    Tid
	success bool
}

// ordered by time, ties broken by insertion order
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*Event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

type eventQueue struct {
	h       eventHeap
	nextSeq uint64
}

func newEventQueue() *eventQueue {
	return &eventQueue{h: make(eventHeap, 0)}
}

func (eq *eventQueue) push(ev *Event) {
	ev.seq = eq.nextSeq
	eq.nextSeq += 1
	heap.Push(&eq.h, ev)
}

func (eq *eventQueue) pop() *Event {
	if len(eq.h) == 0 {
		return nil
	}
	return heap.Pop(&eq.h).(*Event)
}

func (eq *eventQueue) peek() *Event {
	if len(eq.h) == 0 {
		return nil
	}
	return eq.h[0]
}

func (eq *eventQueue) qlen() int {
	return len(eq.h)
}
