package domain

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrStreamNotFound     = errors.New("stream not found")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrRegistryFull       = errors.New("registry capacity reached")
	ErrCaptureUnavailable = errors.New("capture resource unavailable")
	ErrCaptureEnded       = errors.New("capture resource stopped yielding frames")
	ErrStreamStopped      = errors.New("stream already stopped")
)
