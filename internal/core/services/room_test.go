package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"livecast/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeSubscriber records delivered events and can be told to fail sends.
type fakeSubscriber struct {
	id   domain.Identity
	fail bool

	mu     sync.Mutex
	events []domain.Event
}

func newFakeSubscriber(id domain.Identity) *fakeSubscriber {
	return &fakeSubscriber{id: id}
}

func (f *fakeSubscriber) Identity() domain.Identity {
	return f.id
}

func (f *fakeSubscriber) Send(ctx context.Context, evt domain.Event) error {
	if f.fail {
		return errors.New("send failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeSubscriber) Close() error {
	return nil
}

func (f *fakeSubscriber) received() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Event, len(f.events))
	copy(out, f.events)
	return out
}

func testRoom(t *testing.T, historyCapacity int) *Room {
	t.Helper()
	logger := zap.NewNop().Sugar()
	return newRoom("general", historyCapacity, newBroadcaster(50*time.Millisecond, logger), nil, logger)
}

func TestRoom_JoinAppendsSystemEvent(t *testing.T) {
	room := testRoom(t, 100)

	evt := room.join("alice", newFakeSubscriber("alice"))

	assert.Equal(t, domain.EventSystem, evt.Kind)
	assert.Equal(t, domain.Identity("alice"), evt.Origin)
	assert.Equal(t, "alice joined the room", evt.Payload)
	assert.Equal(t, uint64(1), evt.Sequence)
	assert.Equal(t, []domain.Identity{"alice"}, room.Users())

	recent := room.Recent(10)
	assert.Len(t, recent, 1)
	assert.Equal(t, evt, recent[0])
}

func TestRoom_LeaveTwiceIsNoop(t *testing.T) {
	room := testRoom(t, 100)
	room.join("alice", newFakeSubscriber("alice"))

	evt, ok := room.leave("alice")
	assert.True(t, ok)
	assert.Equal(t, "alice left the room", evt.Payload)

	_, ok = room.leave("alice")
	assert.False(t, ok)
	assert.True(t, room.empty())
}

func TestRoom_PostMessageDeliversToAllIncludingSender(t *testing.T) {
	room := testRoom(t, 100)
	alice := newFakeSubscriber("alice")
	bob := newFakeSubscriber("bob")
	room.join("alice", alice)
	room.join("bob", bob)

	evt, report := room.PostMessage(context.Background(), "bob", "hi")

	assert.Equal(t, domain.EventMessage, evt.Kind)
	assert.Equal(t, "hi", evt.Payload)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, 0, report.Pruned)

	for _, sub := range []*fakeSubscriber{alice, bob} {
		events := sub.received()
		assert.Len(t, events, 1)
		assert.Equal(t, "hi", events[0].Payload)
	}
}

func TestRoom_PostMessageHistoryIsBounded(t *testing.T) {
	room := testRoom(t, 5)

	for i := 0; i < 10; i++ {
		room.PostMessage(context.Background(), "alice", fmt.Sprintf("message %d", i))
	}

	recent := room.Recent(100)
	assert.Len(t, recent, 5)
	assert.Equal(t, "message 5", recent[0].Payload)
	assert.Equal(t, "message 9", recent[4].Payload)
}

func TestRoom_BroadcastPrunesFailedSubscribers(t *testing.T) {
	room := testRoom(t, 100)
	alice := newFakeSubscriber("alice")
	bob := newFakeSubscriber("bob")
	carol := newFakeSubscriber("carol")
	carol.fail = true

	room.join("alice", alice)
	room.join("bob", bob)
	room.join("carol", carol)

	_, report := room.PostMessage(context.Background(), "alice", "hello")

	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, 1, report.Pruned)
	assert.ElementsMatch(t, []domain.Identity{"alice", "bob"}, room.Users())

	// The pruned subscriber stays gone for the next event.
	_, report = room.PostMessage(context.Background(), "alice", "again")
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, 0, report.Pruned)
}

func TestRoom_BroadcastExcludesOrigin(t *testing.T) {
	room := testRoom(t, 100)
	alice := newFakeSubscriber("alice")
	bob := newFakeSubscriber("bob")
	room.join("alice", alice)
	room.join("bob", bob)

	evt := domain.Event{Kind: domain.EventSystem, Payload: "bob joined the room"}
	report := room.Broadcast(context.Background(), evt, "bob")

	assert.Equal(t, 1, report.Delivered)
	assert.Len(t, bob.received(), 0)
	assert.Len(t, alice.received(), 1)
}

// blockingSubscriber stalls every Send until the send context expires,
// signalling on inFlight once the delivery has started.
type blockingSubscriber struct {
	id       domain.Identity
	inFlight chan struct{}
}

func (b *blockingSubscriber) Identity() domain.Identity {
	return b.id
}

func (b *blockingSubscriber) Send(ctx context.Context, evt domain.Event) error {
	select {
	case b.inFlight <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingSubscriber) Close() error {
	return nil
}

func TestRoom_SlowSubscriberDoesNotBlockStateQueries(t *testing.T) {
	logger := zap.NewNop().Sugar()
	room := newRoom("general", 100, newBroadcaster(300*time.Millisecond, logger), nil, logger)

	slow := &blockingSubscriber{id: "slow", inFlight: make(chan struct{}, 1)}
	room.join("slow", slow)

	done := make(chan struct{})
	go func() {
		room.PostMessage(context.Background(), "slow", "stuck")
		close(done)
	}()

	select {
	case <-slow.inFlight:
	case <-time.After(time.Second):
		t.Fatal("delivery never started")
	}

	// Membership queries must not wait out the stalled delivery.
	start := time.Now()
	users := room.Users()
	elapsed := time.Since(start)

	assert.Equal(t, []domain.Identity{"slow"}, users)
	assert.Less(t, elapsed, 100*time.Millisecond)

	<-done
}

func TestRoom_TypingStateIsEphemeral(t *testing.T) {
	room := testRoom(t, 100)
	room.join("alice", newFakeSubscriber("alice"))
	before := room.Recent(100)

	typing := room.SetTyping("alice", true)
	assert.Equal(t, []domain.Identity{"alice"}, typing)

	typing = room.SetTyping("alice", false)
	assert.Empty(t, typing)

	// Typing never touches history.
	assert.Equal(t, before, room.Recent(100))

	evt := room.TypingEvent([]domain.Identity{"alice"})
	assert.Equal(t, domain.EventTyping, evt.Kind)
	assert.Zero(t, evt.Sequence)
}

func TestRoom_LeaveClearsTyping(t *testing.T) {
	room := testRoom(t, 100)
	room.join("alice", newFakeSubscriber("alice"))
	room.join("bob", newFakeSubscriber("bob"))
	room.SetTyping("alice", true)

	room.leave("alice")

	assert.Empty(t, room.SetTyping("bob", false))
}

func TestRoom_SequencesAreMonotonic(t *testing.T) {
	room := testRoom(t, 100)
	room.join("alice", newFakeSubscriber("alice"))

	evt1, _ := room.PostMessage(context.Background(), "alice", "one")
	evt2, _ := room.PostMessage(context.Background(), "alice", "two")

	assert.Greater(t, evt2.Sequence, evt1.Sequence)
}

func TestRoom_Info(t *testing.T) {
	room := testRoom(t, 100)
	room.join("alice", newFakeSubscriber("alice"))

	info := room.info()
	assert.Equal(t, domain.RoomName("general"), info.Name)
	assert.Equal(t, 1, info.UserCount)
	assert.Equal(t, []domain.Identity{"alice"}, info.Users)
	assert.False(t, info.CreatedAt.IsZero())
}
