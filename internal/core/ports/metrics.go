package ports

import (
	"time"

	"livecast/internal/core/domain"
)

// StatsRecorder receives operational metrics from the session layer.
type StatsRecorder interface {
	SetActiveRooms(n int)
	SetActiveStreams(n int)
	EventBroadcast(kind domain.EventKind, report domain.BroadcastReport)
	FrameCaptured(id domain.StreamID, d time.Duration)
	SetViewerCount(id domain.StreamID, n int)
}
