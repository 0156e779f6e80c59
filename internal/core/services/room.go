package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"

	"go.uber.org/zap"
)

// Room is a chat session: one subscriber set, one bounded history buffer,
// and the typing substate. State is guarded by a per-room mutex that is
// never held across a send; deliveries run against a snapshot of the
// subscriber set, serialized by sendMu so subscribers observe events in
// sequence order. Lock order is sendMu before mu, never the reverse.
type Room struct {
	name      domain.RoomName
	createdAt time.Time

	mu          sync.Mutex
	subscribers map[domain.Identity]ports.Subscriber
	history     *domain.History
	typing      map[domain.Identity]struct{}
	seq         uint64

	sendMu sync.Mutex

	engine *broadcaster
	stats  ports.StatsRecorder
	logger *zap.SugaredLogger
}

func newRoom(name domain.RoomName, historyCapacity int, engine *broadcaster, stats ports.StatsRecorder, logger *zap.SugaredLogger) *Room {
	return &Room{
		name:        name,
		createdAt:   time.Now(),
		subscribers: make(map[domain.Identity]ports.Subscriber),
		history:     domain.NewHistory(historyCapacity),
		typing:      make(map[domain.Identity]struct{}),
		engine:      engine,
		stats:       stats,
		logger:      logger,
	}
}

func (r *Room) Name() domain.RoomName {
	return r.name
}

func (r *Room) Users() []domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userList()
}

// userList must be called with r.mu held.
func (r *Room) userList() []domain.Identity {
	users := make([]domain.Identity, 0, len(r.subscribers))
	for identity := range r.subscribers {
		users = append(users, identity)
	}
	return users
}

// nextEvent must be called with r.mu held.
func (r *Room) nextEvent(kind domain.EventKind, origin domain.Identity, payload interface{}) domain.Event {
	r.seq++
	return domain.Event{
		Kind:      kind,
		Origin:    origin,
		Payload:   payload,
		Session:   string(r.name),
		Timestamp: time.Now().UTC(),
		Sequence:  r.seq,
	}
}

// join registers the subscriber and appends a system event to history.
// The caller broadcasts the returned event.
func (r *Room) join(identity domain.Identity, sub ports.Subscriber) domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers[identity] = sub
	evt := r.nextEvent(domain.EventSystem, identity, fmt.Sprintf("%s joined the room", identity))
	r.history.Append(evt)
	return evt
}

// leave removes the subscriber. Returns false if the identity was not a
// member; leaving twice is a no-op, not an error.
func (r *Room) leave(identity domain.Identity) (domain.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribers[identity]; !ok {
		return domain.Event{}, false
	}

	delete(r.subscribers, identity)
	delete(r.typing, identity)
	evt := r.nextEvent(domain.EventSystem, identity, fmt.Sprintf("%s left the room", identity))
	r.history.Append(evt)
	return evt, true
}

// empty must be called with the registry lock held; the room itself takes
// its own mutex.
func (r *Room) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers) == 0
}

// snapshotLocked copies the subscriber set; must be called with r.mu held.
func (r *Room) snapshotLocked() map[domain.Identity]ports.Subscriber {
	subs := make(map[domain.Identity]ports.Subscriber, len(r.subscribers))
	for identity, sub := range r.subscribers {
		subs[identity] = sub
	}
	return subs
}

// deliver fans evt out to the snapshot without holding r.mu, then prunes
// subscribers whose sends failed so membership is consistent for the
// next event.
func (r *Room) deliver(ctx context.Context, subs map[domain.Identity]ports.Subscriber, evt domain.Event, exclude domain.Identity) domain.BroadcastReport {
	report, failed := r.engine.fanOut(ctx, subs, evt, exclude)

	if len(failed) > 0 {
		r.mu.Lock()
		for _, identity := range failed {
			delete(r.subscribers, identity)
			delete(r.typing, identity)
		}
		r.mu.Unlock()
	}

	if r.stats != nil {
		r.stats.EventBroadcast(evt.Kind, report)
	}
	return report
}

// Broadcast delivers evt to every current subscriber except exclude. The
// room mutex is released during the sends; a slow subscriber never stalls
// joins, leaves, or state queries.
func (r *Room) Broadcast(ctx context.Context, evt domain.Event, exclude domain.Identity) domain.BroadcastReport {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.Lock()
	subs := r.snapshotLocked()
	r.mu.Unlock()

	return r.deliver(ctx, subs, evt, exclude)
}

// PostMessage appends a message event to history and fans it out to all
// subscribers, including the sender. Sequence assignment and the history
// append share one critical section, and deliveries are serialized under
// sendMu, so every subscriber observes messages in history order without
// the room mutex ever covering a send.
func (r *Room) PostMessage(ctx context.Context, origin domain.Identity, text string) (domain.Event, domain.BroadcastReport) {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.Lock()
	evt := r.nextEvent(domain.EventMessage, origin, text)
	r.history.Append(evt)
	subs := r.snapshotLocked()
	r.mu.Unlock()

	report := r.deliver(ctx, subs, evt, "")
	return evt, report
}

func (r *Room) Recent(count int) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Recent(count)
}

// SetTyping flips the typing flag and returns the identities currently
// typing. Typing state is ephemeral and never written to history.
func (r *Room) SetTyping(identity domain.Identity, typing bool) []domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	if typing {
		r.typing[identity] = struct{}{}
	} else {
		delete(r.typing, identity)
	}

	users := make([]domain.Identity, 0, len(r.typing))
	for id := range r.typing {
		users = append(users, id)
	}
	return users
}

// TypingEvent wraps the typing identity set into an unsequenced event for
// the caller to broadcast.
func (r *Room) TypingEvent(users []domain.Identity) domain.Event {
	return domain.Event{
		Kind:      domain.EventTyping,
		Payload:   users,
		Session:   string(r.name),
		Timestamp: time.Now().UTC(),
	}
}

func (r *Room) info() domain.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.RoomInfo{
		Name:      r.name,
		UserCount: len(r.subscribers),
		Users:     r.userList(),
		CreatedAt: r.createdAt,
	}
}
