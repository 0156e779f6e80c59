package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"
	"livecast/pkg/retry"
	"livecast/pkg/utils"

	"go.uber.org/zap"
)

// DefaultStopGrace bounds how long Stop waits for the capture loop to
// acknowledge termination before forcing device release.
const DefaultStopGrace = 2 * time.Second

// StreamConfig carries the tunables of the stream manager.
type StreamConfig struct {
	MaxStreams  int
	StopGrace   time.Duration
	SendTimeout time.Duration
	Profiles    map[string]domain.QualityProfile
	OpenRetry   retry.Config
}

// DefaultProfiles mirrors the capture presets of the original service.
func DefaultProfiles() map[string]domain.QualityProfile {
	return map[string]domain.QualityProfile{
		"low":    {Name: "low", Width: 320, Height: 240, TargetFPS: 15, EncodeQuality: 50},
		"medium": {Name: "medium", Width: 640, Height: 480, TargetFPS: 24, EncodeQuality: 70},
		"high":   {Name: "high", Width: 1280, Height: 720, TargetFPS: 30, EncodeQuality: 85},
	}
}

// Manager owns every active stream session. Stream sessions are destroyed
// only by an explicit Stop; viewer churn never starts or stops capture.
type Manager struct {
	mu      sync.Mutex
	streams map[domain.StreamID]*StreamSession

	driver  ports.CaptureDriver
	encoder ports.FrameEncoder
	cfg     StreamConfig
	engine  *broadcaster
	stats   ports.StatsRecorder
	logger  *zap.SugaredLogger
}

func NewManager(driver ports.CaptureDriver, encoder ports.FrameEncoder, cfg StreamConfig, stats ports.StatsRecorder, logger *zap.SugaredLogger) ports.StreamManager {
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = DefaultProfiles()
	}
	return &Manager{
		streams: make(map[domain.StreamID]*StreamSession),
		driver:  driver,
		encoder: encoder,
		cfg:     cfg,
		engine:  newBroadcaster(cfg.SendTimeout, logger),
		stats:   stats,
		logger:  logger,
	}
}

// Start acquires the capture device, registers the session, and launches
// its capture loop. Acquisition failure is fatal to this call: no session
// is registered and the error is returned to the caller.
func (m *Manager) Start(ctx context.Context, cameraIndex int, quality string) (domain.StreamInfo, error) {
	profile, ok := m.cfg.Profiles[quality]
	if !ok {
		profile = m.cfg.Profiles["medium"]
	}

	m.mu.Lock()
	if m.cfg.MaxStreams > 0 && len(m.streams) >= m.cfg.MaxStreams {
		m.mu.Unlock()
		return domain.StreamInfo{}, domain.ErrRegistryFull
	}
	m.mu.Unlock()

	var device ports.CaptureDevice
	err := retry.Retry(ctx, m.cfg.OpenRetry, func() error {
		var openErr error
		device, openErr = m.driver.Open(cameraIndex)
		return openErr
	})
	if err != nil {
		return domain.StreamInfo{}, fmt.Errorf("%w: camera %d: %v", domain.ErrCaptureUnavailable, cameraIndex, err)
	}

	id := domain.StreamID(utils.GenerateStreamID())
	session := newStreamSession(id, cameraIndex, profile, device, m.encoder, m.engine, m.stats, m.logger)

	m.mu.Lock()
	if m.cfg.MaxStreams > 0 && len(m.streams) >= m.cfg.MaxStreams {
		m.mu.Unlock()
		session.release()
		return domain.StreamInfo{}, domain.ErrRegistryFull
	}
	m.streams[id] = session
	streamCount := len(m.streams)
	m.mu.Unlock()

	go session.run()

	if m.stats != nil {
		m.stats.SetActiveStreams(streamCount)
	}
	m.logger.Infow("stream started",
		"stream_id", id,
		"camera_index", cameraIndex,
		"quality", profile.Name,
		"target_fps", profile.TargetFPS,
	)

	return session.info(), nil
}

// Stop terminates the stream and removes it from the registry. Stopping
// an absent or already-stopped stream is a no-op, not an error.
func (m *Manager) Stop(id domain.StreamID) bool {
	m.mu.Lock()
	session, ok := m.streams[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.streams, id)
	streamCount := len(m.streams)
	m.mu.Unlock()

	session.stop(m.cfg.StopGrace)

	if m.stats != nil {
		m.stats.SetActiveStreams(streamCount)
	}
	m.logger.Infow("stream stopped", "stream_id", id)
	return true
}

// AddViewer attaches the subscriber to the stream's delivery set. Capture
// runs regardless of viewers; attaching never touches the device.
func (m *Manager) AddViewer(id domain.StreamID, sub ports.Subscriber) (domain.StreamInfo, error) {
	m.mu.Lock()
	session, ok := m.streams[id]
	m.mu.Unlock()
	if !ok {
		return domain.StreamInfo{}, domain.ErrStreamNotFound
	}

	session.addViewer(sub)
	return session.info(), nil
}

func (m *Manager) RemoveViewer(id domain.StreamID, identity domain.Identity) {
	m.mu.Lock()
	session, ok := m.streams[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	session.removeViewer(identity)
}

func (m *Manager) Get(id domain.StreamID) (domain.StreamInfo, error) {
	m.mu.Lock()
	session, ok := m.streams[id]
	m.mu.Unlock()
	if !ok {
		return domain.StreamInfo{}, domain.ErrStreamNotFound
	}
	return session.info(), nil
}

func (m *Manager) List() []domain.StreamInfo {
	m.mu.Lock()
	sessions := make([]*StreamSession, 0, len(m.streams))
	for _, session := range m.streams {
		sessions = append(sessions, session)
	}
	m.mu.Unlock()

	infos := make([]domain.StreamInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, session.info())
	}
	return infos
}

// Shutdown stops every active stream, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, info := range m.List() {
		select {
		case <-ctx.Done():
			m.logger.Warnw("shutdown deadline reached before all streams stopped")
			return
		default:
		}
		m.Stop(info.ID)
	}
}
