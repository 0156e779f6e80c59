package ports

import (
	"context"

	"livecast/internal/core/domain"
)

// ChatRoom is one named broadcast scope for chat subscribers.
// PostMessage appends to history and fans out under the same sequence
// counter, so subscribers observe messages in history order.
type ChatRoom interface {
	Name() domain.RoomName
	Users() []domain.Identity
	Broadcast(ctx context.Context, evt domain.Event, exclude domain.Identity) domain.BroadcastReport
	PostMessage(ctx context.Context, origin domain.Identity, text string) (domain.Event, domain.BroadcastReport)
	Recent(count int) []domain.Event
	SetTyping(identity domain.Identity, typing bool) []domain.Identity
	TypingEvent(users []domain.Identity) domain.Event
}

// JoinResult describes the outcome of joining a room, including the
// implicit departure from the identity's previous room, if any.
type JoinResult struct {
	Room      ChatRoom
	JoinEvent domain.Event
	History   []domain.Event
	Departed  *LeaveResult
}

// LeaveResult describes a departure from a room. Destroyed reports whether
// the room was removed from the registry because it became empty.
type LeaveResult struct {
	Room       ChatRoom
	LeaveEvent domain.Event
	Destroyed  bool
}

// ChatRegistry owns the room set and the identity-to-room exclusivity
// mapping. An identity is joined to at most one room at a time.
type ChatRegistry interface {
	JoinRoom(identity domain.Identity, room domain.RoomName, sub Subscriber) (*JoinResult, error)
	LeaveCurrent(identity domain.Identity) (*LeaveResult, bool)
	Current(identity domain.Identity) (ChatRoom, bool)
	List() []domain.RoomInfo
}

// StreamManager owns all active stream sessions. Streams live until an
// explicit Stop regardless of viewer count.
type StreamManager interface {
	Start(ctx context.Context, cameraIndex int, quality string) (domain.StreamInfo, error)
	Stop(id domain.StreamID) bool
	AddViewer(id domain.StreamID, sub Subscriber) (domain.StreamInfo, error)
	RemoveViewer(id domain.StreamID, identity domain.Identity)
	Get(id domain.StreamID) (domain.StreamInfo, error)
	List() []domain.StreamInfo
	Shutdown(ctx context.Context)
}
