package ws

import (
	"context"
	"net/http"
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"
	"livecast/internal/core/services"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ViewerServer attaches websocket clients as viewers of a stream.
// Attaching and detaching only mutate the delivery set; the capture loop
// runs whether or not anyone is watching.
type ViewerServer struct {
	manager ports.StreamManager
	auth    services.AuthService
	cfg     GatewayConfig
	logger  *zap.SugaredLogger
}

func NewViewerServer(manager ports.StreamManager, auth services.AuthService, cfg GatewayConfig, logger *zap.SugaredLogger) *ViewerServer {
	return &ViewerServer{
		manager: manager,
		auth:    auth,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// HandleViewer serves one viewer connection for the stream named in the
// query or path. The stream must already exist; viewers never create or
// destroy streams.
func (s *ViewerServer) HandleViewer(streamID domain.StreamID, w http.ResponseWriter, r *http.Request) {
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

	info, err := s.manager.AddViewer(streamID, sub)
	if err != nil {
		sub.SendPayload(context.Background(), "error", map[string]string{"message": err.Error()})
		return
	}
	defer s.manager.RemoveViewer(streamID, identity)

	s.logger.Infow("viewer attached", "stream_id", streamID, "identity", identity)

	if err := sub.SendPayload(context.Background(), "stream_info", info); err != nil {
		s.logger.Infow("stream info push failed", "identity", identity, "error", err)
		return
	}

	conn.SetReadLimit(s.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	readErr := make(chan error, 1)
	go func() {
		for {
			// Viewers are receive-only; inbound payloads are drained
			// and discarded.
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
	}()

	for {
		select {
		case <-pingTicker.C:
			if err := sub.Ping(); err != nil {
				s.logger.Infow("viewer ping failed", "identity", identity, "error", err)
				return
			}
		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("viewer read error", "identity", identity, "error", err)
			}
			s.logger.Infow("viewer detached", "stream_id", streamID, "identity", identity)
			return
		}
	}
}
