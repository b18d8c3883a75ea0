package dcsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueueOrdersByTimeThenInsertion(t *testing.T) {
	eq := newEventQueue()
	eq.push(&Event{time: 5, tag: EV_UPDATE_RESOURCE, dst: 1})
	eq.push(&Event{time: 1, tag: EV_VM_CREATE, dst: 1})
	eq.push(&Event{time: 5, tag: EV_CLOUDLET_SUBMIT, dst: 2})
	eq.push(&Event{time: 1, tag: EV_VM_CREATE_ACK, dst: 3})
	eq.push(&Event{time: 0, tag: EV_START, dst: 4})
	require.Equal(t, 5, eq.qlen())
	assert.Equal(t, EV_START, eq.peek().Tag())

	got := make([]EventTag, 0)
	for eq.qlen() > 0 {
		got = append(got, eq.pop().Tag())
	}
	assert.Equal(t, []EventTag{EV_START, EV_VM_CREATE, EV_VM_CREATE_ACK, EV_UPDATE_RESOURCE, EV_CLOUDLET_SUBMIT}, got)
	assert.Nil(t, eq.pop())
	assert.Nil(t, eq.peek())
}

func TestEventQueueSequenceIsMonotonic(t *testing.T) {
	eq := newEventQueue()
	for i := 0; i < 100; i++ {
		eq.push(&Event{time: 3})
	}
	prev := -1
	for eq.qlen() > 0 {
		ev := eq.pop()
		assert.Equal(t, Ttime(3), ev.Time())
		assert.Greater(t, int(ev.seq), prev)
		prev = int(ev.seq)
	}
}
