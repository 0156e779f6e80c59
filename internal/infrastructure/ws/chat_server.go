package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"
	"livecast/internal/core/services"
	"livecast/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// GatewayConfig carries the transport tunables shared by the chat and
// viewer endpoints.
type GatewayConfig struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	MaxMessageSize    int64
	MessagesPerSecond float64
	MessageBurst      int
}

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 * 1024
	}
	if c.MessagesPerSecond <= 0 {
		c.MessagesPerSecond = 100
	}
	if c.MessageBurst <= 0 {
		c.MessageBurst = 200
	}
	return c
}

// intent is one decoded inbound client message. Data is loosely typed;
// missing fields degrade to no-ops, never to errors.
type intent struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func (i intent) str(key string) string {
	v, _ := i.Data[key].(string)
	return v
}

// ChatServer bridges websocket connections into the chat registry. Each
// connection runs a reader goroutine plus a select loop, and the
// equivalent of leave_room is guaranteed to run exactly once on every
// exit path.
type ChatServer struct {
	registry ports.ChatRegistry
	auth     services.AuthService
	cfg      GatewayConfig
	logger   *zap.SugaredLogger
}

func NewChatServer(registry ports.ChatRegistry, auth services.AuthService, cfg GatewayConfig, logger *zap.SugaredLogger) *ChatServer {
	return &ChatServer{
		registry: registry,
		auth:     auth,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// authenticate resolves the subscriber identity from the bearer token in
// the query string or Authorization header.
func authenticate(auth services.AuthService, r *http.Request) (domain.Identity, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		return "", services.ErrInvalidToken
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.Identity, nil
}

func (s *ChatServer) HandleChat(w http.ResponseWriter, r *http.Request) {
	identity, err := authenticate(s.auth, r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := NewSubscriber(identity, conn, s.cfg.WriteTimeout)
	s.logger.Infow("chat client connected", "identity", identity)

	conn.SetReadLimit(s.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	limiter := rate.NewLimiter(rate.Limit(s.cfg.MessagesPerSecond), s.cfg.MessageBurst)

	intentChan := make(chan intent, 10)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var msg intent
			if err := conn.ReadJSON(&msg); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
			intentChan <- msg
		}
	}()

	for {
		select {
		case msg := <-intentChan:
			if !limiter.Allow() {
				s.logger.Warnw("message rate exceeded, dropping", "identity", identity)
				continue
			}
			s.handleIntent(context.Background(), identity, sub, msg)

		case <-pingTicker.C:
			if err := sub.Ping(); err != nil {
				s.logger.Infow("ping failed", "identity", identity, "error", err)
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read error", "identity", identity, "error", err)
			}
			goto cleanup
		}
	}

cleanup:
	// The only place departure is guaranteed to run; LeaveCurrent is a
	// no-op if an explicit leave_room already happened.
	s.leaveAndNotify(context.Background(), identity)
	s.logger.Infow("chat client disconnected", "identity", identity)
}

// handleIntent dispatches one decoded inbound message. A malformed intent
// is a silent no-op; it never tears down the connection or the room.
func (s *ChatServer) handleIntent(ctx context.Context, identity domain.Identity, sub *Subscriber, msg intent) {
	switch msg.Type {
	case "join_room":
		s.handleJoin(ctx, identity, sub, msg.str("room"))
	case "leave_room":
		s.leaveAndNotify(ctx, identity)
	case "send_message":
		s.handleMessage(ctx, identity, msg.str("message"))
	case "typing_start":
		s.handleTyping(ctx, identity, true)
	case "typing_stop":
		s.handleTyping(ctx, identity, false)
	default:
		s.logger.Debugw("ignoring unknown intent", "identity", identity, "type", msg.Type)
	}
}

func (s *ChatServer) handleJoin(ctx context.Context, identity domain.Identity, sub *Subscriber, roomName string) {
	if err := validation.ValidateRoomName(roomName); err != nil {
		s.logger.Warnw("join rejected", "identity", identity, "room", roomName, "error", err)
		sub.SendPayload(ctx, "error", map[string]string{"message": err.Error()})
		return
	}

	result, err := s.registry.JoinRoom(identity, domain.RoomName(roomName), sub)
	if err != nil {
		s.logger.Warnw("join rejected", "identity", identity, "room", roomName, "error", err)
		sub.SendPayload(ctx, "error", map[string]string{"message": err.Error()})
		return
	}

	// Notify the room the identity implicitly departed, if any.
	if result.Departed != nil {
		s.notifyDeparture(ctx, result.Departed)
	}

	if err := sub.SendPayload(ctx, "message_history", map[string]interface{}{"messages": result.History}); err != nil {
		s.logger.Infow("history push failed", "identity", identity, "error", err)
	}

	result.Room.Broadcast(ctx, result.JoinEvent, identity)
	result.Room.Broadcast(ctx, presenceEvent(result.Room), "")
}

func (s *ChatServer) leaveAndNotify(ctx context.Context, identity domain.Identity) {
	result, ok := s.registry.LeaveCurrent(identity)
	if !ok {
		return
	}
	s.notifyDeparture(ctx, result)
}

func (s *ChatServer) notifyDeparture(ctx context.Context, result *ports.LeaveResult) {
	// Broadcasting to a destroyed (empty) room is a correct no-op.
	result.Room.Broadcast(ctx, result.LeaveEvent, "")
	result.Room.Broadcast(ctx, presenceEvent(result.Room), "")
}

func (s *ChatServer) handleMessage(ctx context.Context, identity domain.Identity, text string) {
	// Messages are broadcast stripped of surrounding whitespace.
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	room, ok := s.registry.Current(identity)
	if !ok {
		return
	}
	room.PostMessage(ctx, identity, text)
}

func (s *ChatServer) handleTyping(ctx context.Context, identity domain.Identity, typing bool) {
	room, ok := s.registry.Current(identity)
	if !ok {
		return
	}
	users := room.SetTyping(identity, typing)
	room.Broadcast(ctx, room.TypingEvent(users), "")
}

func presenceEvent(room ports.ChatRoom) domain.Event {
	return domain.Event{
		Kind:      domain.EventPresence,
		Payload:   room.Users(),
		Session:   string(room.Name()),
		Timestamp: time.Now().UTC(),
	}
}
