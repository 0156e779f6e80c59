package services

import (
	"context"
	"sync"
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"

	"go.uber.org/zap"
)

// StreamSession owns one capture device and the goroutine that pumps
// frames from it to every attached viewer. The device is exclusively held
// from a successful open until Release, which runs exactly once on every
// exit path of the loop.
type StreamSession struct {
	id          domain.StreamID
	cameraIndex int
	profile     domain.QualityProfile
	startedAt   time.Time

	mu         sync.Mutex
	state      domain.CaptureState
	viewers    map[domain.Identity]ports.Subscriber
	frameCount uint64

	device  ports.CaptureDevice
	encoder ports.FrameEncoder
	engine  *broadcaster
	stats   ports.StatsRecorder
	logger  *zap.SugaredLogger

	stopCh      chan struct{}
	doneCh      chan struct{}
	releaseOnce sync.Once
}

func newStreamSession(
	id domain.StreamID,
	cameraIndex int,
	profile domain.QualityProfile,
	device ports.CaptureDevice,
	encoder ports.FrameEncoder,
	engine *broadcaster,
	stats ports.StatsRecorder,
	logger *zap.SugaredLogger,
) *StreamSession {
	return &StreamSession{
		id:          id,
		cameraIndex: cameraIndex,
		profile:     profile,
		startedAt:   time.Now(),
		state:       domain.CaptureStarting,
		viewers:     make(map[domain.Identity]ports.Subscriber),
		device:      device,
		encoder:     encoder,
		engine:      engine,
		stats:       stats,
		logger:      logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// run is the capture loop. It ticks at the cadence implied by the quality
// profile, independent of viewer count; broadcasting to zero viewers is a
// valid no-op. A read failure terminates this loop only.
func (s *StreamSession) run() {
	defer close(s.doneCh)
	defer s.release()

	s.setState(domain.CaptureStreaming)

	ticker := time.NewTicker(s.profile.FrameInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.setState(domain.CaptureStopped)
			return

		case <-ticker.C:
			start := time.Now()

			raw, err := s.device.ReadFrame()
			if err != nil {
				s.logger.Warnw("capture ended", "stream_id", s.id, "error", err)
				s.setState(domain.CaptureStopped)
				return
			}

			payload, err := s.encoder.Encode(raw, s.profile)
			if err != nil {
				s.logger.Errorw("frame encode failed", "stream_id", s.id, "error", err)
				continue
			}

			s.broadcastFrame(payload)

			if s.stats != nil {
				s.stats.FrameCaptured(s.id, time.Since(start))
			}
		}
	}
}

// broadcastFrame tags the payload with the next frame counter value and
// fans it out to a snapshot of the viewer set; the session mutex never
// covers a send. Frames are never retained; late joiners start at the
// current counter. Only the capture loop calls this, so frame order is
// inherent.
func (s *StreamSession) broadcastFrame(payload string) {
	s.mu.Lock()
	seq := s.frameCount
	s.frameCount++

	viewers := make(map[domain.Identity]ports.Subscriber, len(s.viewers))
	for identity, sub := range s.viewers {
		viewers[identity] = sub
	}
	s.mu.Unlock()

	evt := domain.Event{
		Kind:   domain.EventFrame,
		Origin: "",
		Payload: domain.FramePayload{
			StreamID:    s.id,
			Frame:       payload,
			FrameNumber: seq,
			Quality:     s.profile.Name,
			Timestamp:   time.Now().Unix(),
		},
		Session:   string(s.id),
		Timestamp: time.Now().UTC(),
		Sequence:  seq,
	}

	report, failed := s.engine.fanOut(context.Background(), viewers, evt, "")

	s.mu.Lock()
	for _, identity := range failed {
		delete(s.viewers, identity)
	}
	viewerCount := len(s.viewers)
	s.mu.Unlock()

	if s.stats != nil {
		s.stats.EventBroadcast(domain.EventFrame, report)
		s.stats.SetViewerCount(s.id, viewerCount)
	}
}

// stop signals the loop and waits up to grace for acknowledgment. A
// wedged loop does not block the caller: after the grace period the
// device is force-released and the session is marked stopped anyway.
func (s *StreamSession) stop(grace time.Duration) {
	s.mu.Lock()
	switch s.state {
	case domain.CaptureStopped, domain.CaptureStopping:
		s.mu.Unlock()
		return
	}
	s.state = domain.CaptureStopping
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
	case <-time.After(grace):
		s.logger.Errorw("capture loop did not acknowledge stop, forcing release",
			"stream_id", s.id, "grace", grace)
		s.release()
		s.setState(domain.CaptureStopped)
	}
}

// release frees the capture device at most once.
func (s *StreamSession) release() {
	s.releaseOnce.Do(func() {
		if err := s.device.Release(); err != nil {
			s.logger.Warnw("device release failed", "stream_id", s.id, "error", err)
		}
	})
}

func (s *StreamSession) setState(state domain.CaptureState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Stopping/stopped is terminal relative to the loop's own transitions.
	if s.state == domain.CaptureStopping && state == domain.CaptureStreaming {
		return
	}
	s.state = state
}

func (s *StreamSession) addViewer(sub ports.Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewers[sub.Identity()] = sub
	if s.stats != nil {
		s.stats.SetViewerCount(s.id, len(s.viewers))
	}
}

func (s *StreamSession) removeViewer(identity domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.viewers, identity)
	if s.stats != nil {
		s.stats.SetViewerCount(s.id, len(s.viewers))
	}
}

func (s *StreamSession) info() domain.StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.StreamInfo{
		ID:          s.id,
		State:       s.state,
		Quality:     s.profile,
		ViewerCount: len(s.viewers),
		FrameCount:  s.frameCount,
		CameraIndex: s.cameraIndex,
		StartedAt:   s.startedAt,
	}
}
