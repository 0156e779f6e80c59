package ws

import (
	"context"
	"sync"
	"time"

	"livecast/internal/core/domain"

	"github.com/gorilla/websocket"
)

// envelope is the wire form of everything the server pushes: a type tag
// and an opaque data document.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Subscriber wraps one websocket connection as a session subscriber.
// Writes are serialized; gorilla connections allow one concurrent writer.
type Subscriber struct {
	identity     domain.Identity
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
}

func NewSubscriber(identity domain.Identity, conn *websocket.Conn, writeTimeout time.Duration) *Subscriber {
	return &Subscriber{
		identity:     identity,
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (s *Subscriber) Identity() domain.Identity {
	return s.identity
}

// Send delivers one event as an envelope keyed by the event kind. The
// context deadline, when present, bounds the write.
func (s *Subscriber) Send(ctx context.Context, evt domain.Event) error {
	return s.write(ctx, envelope{Type: string(evt.Kind), Data: evt})
}

// SendPayload pushes a gateway-level message that is not a session event,
// such as message_history or stream_info.
func (s *Subscriber) SendPayload(ctx context.Context, msgType string, data interface{}) error {
	return s.write(ctx, envelope{Type: msgType, Data: data})
}

func (s *Subscriber) write(ctx context.Context, env envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline := time.Now().Add(s.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteJSON(env)
}

// Ping sends a control ping under the same write lock as event delivery;
// gorilla connections permit only one concurrent writer.
func (s *Subscriber) Ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *Subscriber) Close() error {
	return s.conn.Close()
}
