package domain

// History is a bounded, ordered buffer of events with FIFO eviction.
// Not safe for concurrent use; the owning session serializes access.
type History struct {
	events   []Event
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// Append inserts the event, evicting the oldest entry once at capacity.
func (h *History) Append(evt Event) {
	if len(h.events) == h.capacity {
		copy(h.events, h.events[1:])
		h.events[len(h.events)-1] = evt
		return
	}
	h.events = append(h.events, evt)
}

// Recent returns the last count events, oldest first. Count is clamped to
// the current length.
func (h *History) Recent(count int) []Event {
	if count < 0 {
		count = 0
	}
	if count > len(h.events) {
		count = len(h.events)
	}
	out := make([]Event, count)
	copy(out, h.events[len(h.events)-count:])
	return out
}

func (h *History) Len() int {
	return len(h.events)
}

func (h *History) Capacity() int {
	return h.capacity
}
