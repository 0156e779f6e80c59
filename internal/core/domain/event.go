package domain

import (
	"time"
)

type RoomName string
type StreamID string
type Identity string

// EventKind classifies events flowing through a session.
type EventKind string

const (
	EventSystem   EventKind = "system"
	EventMessage  EventKind = "message"
	EventFrame    EventKind = "frame"
	EventPresence EventKind = "presence"
	EventTyping   EventKind = "typing"
)

// Event is the unit delivered to every subscriber of a session. Payload is
// opaque to the core; the transport layer serializes it.
type Event struct {
	Kind      EventKind   `json:"kind"`
	Origin    Identity    `json:"origin,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Session   string      `json:"session"`
	Timestamp time.Time   `json:"timestamp"`
	Sequence  uint64      `json:"sequence"`
}

// BroadcastReport summarizes one fan-out pass.
type BroadcastReport struct {
	Delivered int
	Pruned    int
}
