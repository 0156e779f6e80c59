package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T, maxRooms int) ports.ChatRegistry {
	t.Helper()
	return NewRegistry(ChatConfig{
		HistoryCapacity: 100,
		MaxRooms:        maxRooms,
		SendTimeout:     50 * time.Millisecond,
	}, nil, zap.NewNop().Sugar())
}

func TestRegistry_JoinCreatesRoom(t *testing.T) {
	registry := testRegistry(t, 0)

	result, err := registry.JoinRoom("alice", "general", newFakeSubscriber("alice"))
	require.NoError(t, err)

	assert.Equal(t, domain.RoomName("general"), result.Room.Name())
	assert.Equal(t, domain.EventSystem, result.JoinEvent.Kind)
	assert.Nil(t, result.Departed)

	// The join event itself is already in the history snapshot.
	require.Len(t, result.History, 1)
	assert.Equal(t, "alice joined the room", result.History[0].Payload)

	rooms := registry.List()
	require.Len(t, rooms, 1)
	assert.Equal(t, domain.RoomName("general"), rooms[0].Name)
	assert.Equal(t, 1, rooms[0].UserCount)
}

func TestRegistry_JoinImpliesLeavingCurrentRoom(t *testing.T) {
	registry := testRegistry(t, 0)

	_, err := registry.JoinRoom("alice", "general", newFakeSubscriber("alice"))
	require.NoError(t, err)

	result, err := registry.JoinRoom("alice", "random", newFakeSubscriber("alice"))
	require.NoError(t, err)

	require.NotNil(t, result.Departed)
	assert.Equal(t, domain.RoomName("general"), result.Departed.Room.Name())
	assert.Equal(t, "alice left the room", result.Departed.LeaveEvent.Payload)
	assert.True(t, result.Departed.Destroyed)

	current, ok := registry.Current("alice")
	require.True(t, ok)
	assert.Equal(t, domain.RoomName("random"), current.Name())

	// The emptied room is gone.
	rooms := registry.List()
	require.Len(t, rooms, 1)
	assert.Equal(t, domain.RoomName("random"), rooms[0].Name)
}

func TestRegistry_RejoiningSameRoomEmitsLeaveAndJoin(t *testing.T) {
	registry := testRegistry(t, 0)

	_, err := registry.JoinRoom("alice", "general", newFakeSubscriber("alice"))
	require.NoError(t, err)
	_, err = registry.JoinRoom("bob", "general", newFakeSubscriber("bob"))
	require.NoError(t, err)

	result, err := registry.JoinRoom("alice", "general", newFakeSubscriber("alice"))
	require.NoError(t, err)

	require.NotNil(t, result.Departed)
	assert.False(t, result.Departed.Destroyed)
	assert.Equal(t, domain.RoomName("general"), result.Departed.Room.Name())

	rooms := registry.List()
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].UserCount)
}

func TestRegistry_LeaveCurrentDestroysEmptyRoom(t *testing.T) {
	registry := testRegistry(t, 0)

	_, err := registry.JoinRoom("alice", "general", newFakeSubscriber("alice"))
	require.NoError(t, err)
	_, err = registry.JoinRoom("bob", "general", newFakeSubscriber("bob"))
	require.NoError(t, err)

	result, ok := registry.LeaveCurrent("alice")
	require.True(t, ok)
	assert.False(t, result.Destroyed)

	result, ok = registry.LeaveCurrent("bob")
	require.True(t, ok)
	assert.True(t, result.Destroyed)

	assert.Empty(t, registry.List())
}

func TestRegistry_LeaveWithoutRoomIsNoop(t *testing.T) {
	registry := testRegistry(t, 0)

	_, ok := registry.LeaveCurrent("ghost")
	assert.False(t, ok)

	_, ok = registry.Current("ghost")
	assert.False(t, ok)
}

func TestRegistry_MaxRoomsLimit(t *testing.T) {
	registry := testRegistry(t, 1)

	_, err := registry.JoinRoom("alice", "general", newFakeSubscriber("alice"))
	require.NoError(t, err)

	_, err = registry.JoinRoom("bob", "random", newFakeSubscriber("bob"))
	assert.ErrorIs(t, err, domain.ErrRegistryFull)

	// Joining the existing room is still fine.
	_, err = registry.JoinRoom("bob", "general", newFakeSubscriber("bob"))
	assert.NoError(t, err)
}

func TestRegistry_JoinIsAtomicWithRoomDestruction(t *testing.T) {
	registry := testRegistry(t, 0)

	// A join racing the last member's leave must never strand the joiner
	// in a room the registry has already destroyed.
	for i := 0; i < 500; i++ {
		_, err := registry.JoinRoom("bob", "general", newFakeSubscriber("bob"))
		require.NoError(t, err)

		alice := newFakeSubscriber("alice")
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.LeaveCurrent("bob")
		}()
		go func() {
			defer wg.Done()
			_, err := registry.JoinRoom("alice", "general", alice)
			assert.NoError(t, err)
		}()
		wg.Wait()

		room, ok := registry.Current("alice")
		require.True(t, ok, "iteration %d: joiner lost its room", i)

		_, report := room.PostMessage(context.Background(), "alice", "ping")
		require.GreaterOrEqual(t, report.Delivered, 1, "iteration %d", i)
		require.NotEmpty(t, alice.received(), "iteration %d", i)

		registry.LeaveCurrent("alice")
		registry.LeaveCurrent("bob")
	}
}

func TestRegistry_ChatScenario(t *testing.T) {
	registry := testRegistry(t, 0)

	alice := newFakeSubscriber("alice")
	bob := newFakeSubscriber("bob")

	aliceJoin, err := registry.JoinRoom("alice", "general", alice)
	require.NoError(t, err)
	bobJoin, err := registry.JoinRoom("bob", "general", bob)
	require.NoError(t, err)

	// Bob's join history includes alice's join.
	require.Len(t, bobJoin.History, 2)
	assert.Equal(t, "alice joined the room", bobJoin.History[0].Payload)

	// Broadcast bob's join to everyone else, as the gateway does.
	report := bobJoin.Room.Broadcast(context.Background(), bobJoin.JoinEvent, "bob")
	assert.Equal(t, 1, report.Delivered)

	evt, report := bobJoin.Room.PostMessage(context.Background(), "bob", "hi")
	assert.Equal(t, "hi", evt.Payload)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, 0, report.Pruned)

	aliceEvents := alice.received()
	require.Len(t, aliceEvents, 2)
	assert.Equal(t, "bob joined the room", aliceEvents[0].Payload)
	assert.Equal(t, "hi", aliceEvents[1].Payload)

	// Message events carry a higher sequence than the joins they follow.
	assert.Greater(t, evt.Sequence, aliceJoin.JoinEvent.Sequence)
}
