package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeEvents(n int) []Event {
	events := make([]Event, n)
	for i := 0; i < n; i++ {
		events[i] = Event{
			Kind:     EventMessage,
			Payload:  fmt.Sprintf("message %d", i),
			Sequence: uint64(i + 1),
		}
	}
	return events
}

func TestHistory_AppendWithinCapacity(t *testing.T) {
	h := NewHistory(10)

	for _, evt := range makeEvents(3) {
		h.Append(evt)
	}

	assert.Equal(t, 3, h.Len())
	recent := h.Recent(10)
	assert.Len(t, recent, 3)
	assert.Equal(t, "message 0", recent[0].Payload)
	assert.Equal(t, "message 2", recent[2].Payload)
}

func TestHistory_EvictsOldestBeyondCapacity(t *testing.T) {
	h := NewHistory(5)

	for _, evt := range makeEvents(12) {
		h.Append(evt)
	}

	assert.Equal(t, 5, h.Len())
	recent := h.Recent(5)
	assert.Equal(t, "message 7", recent[0].Payload)
	assert.Equal(t, "message 11", recent[4].Payload)
}

func TestHistory_RecentClampsCount(t *testing.T) {
	h := NewHistory(10)

	for _, evt := range makeEvents(4) {
		h.Append(evt)
	}

	assert.Len(t, h.Recent(100), 4)
	assert.Len(t, h.Recent(2), 2)
	assert.Len(t, h.Recent(0), 0)
	assert.Len(t, h.Recent(-1), 0)

	// Recent(2) returns the newest two, oldest first.
	last := h.Recent(2)
	assert.Equal(t, "message 2", last[0].Payload)
	assert.Equal(t, "message 3", last[1].Payload)
}

func TestHistory_Capacity(t *testing.T) {
	h := NewHistory(7)
	assert.Equal(t, 7, h.Capacity())
	assert.Equal(t, 0, h.Len())
}
