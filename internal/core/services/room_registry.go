package services

import (
	"sync"
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"

	"go.uber.org/zap"
)

// ChatConfig carries the tunables of the chat registry.
type ChatConfig struct {
	HistoryCapacity int
	MaxRooms        int
	SendTimeout     time.Duration
}

// Registry owns the room set and tracks which room each identity is
// joined to. Membership changes run under the registry mutex so a join
// can never race a concurrent leave destroying the same room; room locks
// are only ever taken while the registry lock is held, never the
// reverse. Room mutexes never cover a send, so holding the registry lock
// across join and leave is cheap.
type Registry struct {
	mu      sync.Mutex
	rooms   map[domain.RoomName]*Room
	current map[domain.Identity]domain.RoomName

	cfg    ChatConfig
	engine *broadcaster
	stats  ports.StatsRecorder
	logger *zap.SugaredLogger
}

func NewRegistry(cfg ChatConfig, stats ports.StatsRecorder, logger *zap.SugaredLogger) ports.ChatRegistry {
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = 100
	}
	return &Registry{
		rooms:   make(map[domain.RoomName]*Room),
		current: make(map[domain.Identity]domain.RoomName),
		cfg:     cfg,
		engine:  newBroadcaster(cfg.SendTimeout, logger),
		stats:   stats,
		logger:  logger,
	}
}

// joinHistoryCount is how much history a joining subscriber receives.
const joinHistoryCount = 20

// JoinRoom attaches the identity to the named room, creating it on first
// reference. The identity's previous room, if any, is left first so an
// identity is never a member of two rooms; the departure is reported in
// the result for the caller to broadcast.
func (g *Registry) JoinRoom(identity domain.Identity, name domain.RoomName, sub ports.Subscriber) (*ports.JoinResult, error) {
	departed, _ := g.LeaveCurrent(identity)

	g.mu.Lock()
	room, ok := g.rooms[name]
	if !ok {
		if g.cfg.MaxRooms > 0 && len(g.rooms) >= g.cfg.MaxRooms {
			g.mu.Unlock()
			return nil, domain.ErrRegistryFull
		}
		room = newRoom(name, g.cfg.HistoryCapacity, g.engine, g.stats, g.logger)
		g.rooms[name] = room
		g.logger.Infow("room created", "room", name)
	}
	g.current[identity] = name

	// The membership insert happens under the registry lock so that a
	// concurrent LeaveCurrent cannot observe the room empty and destroy
	// it between the map update above and the join below.
	joinEvt := room.join(identity, sub)
	history := room.Recent(joinHistoryCount)

	roomCount := len(g.rooms)
	g.mu.Unlock()

	if g.stats != nil {
		g.stats.SetActiveRooms(roomCount)
	}

	return &ports.JoinResult{
		Room:      room,
		JoinEvent: joinEvt,
		History:   history,
		Departed:  departed,
	}, nil
}

// LeaveCurrent removes the identity from whichever room it is joined to.
// The room is destroyed once its subscriber set becomes empty. Returns
// false if the identity is not in any room.
func (g *Registry) LeaveCurrent(identity domain.Identity) (*ports.LeaveResult, bool) {
	g.mu.Lock()
	name, ok := g.current[identity]
	if !ok {
		g.mu.Unlock()
		return nil, false
	}
	delete(g.current, identity)

	room, ok := g.rooms[name]
	if !ok {
		g.mu.Unlock()
		return nil, false
	}

	leaveEvt, present := room.leave(identity)

	destroyed := false
	if room.empty() {
		delete(g.rooms, name)
		destroyed = true
		g.logger.Infow("room destroyed", "room", name)
	}
	roomCount := len(g.rooms)
	g.mu.Unlock()

	if g.stats != nil {
		g.stats.SetActiveRooms(roomCount)
	}

	if !present {
		return nil, false
	}

	return &ports.LeaveResult{
		Room:       room,
		LeaveEvent: leaveEvt,
		Destroyed:  destroyed,
	}, true
}

// Current resolves the room the identity is joined to, if any.
func (g *Registry) Current(identity domain.Identity) (ports.ChatRoom, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	name, ok := g.current[identity]
	if !ok {
		return nil, false
	}
	room, ok := g.rooms[name]
	if !ok {
		return nil, false
	}
	return room, true
}

// List returns a snapshot of every room. Only the registry maps are held
// during iteration; each room is locked just long enough to copy its info.
func (g *Registry) List() []domain.RoomInfo {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.mu.Unlock()

	infos := make([]domain.RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.info())
	}
	return infos
}
