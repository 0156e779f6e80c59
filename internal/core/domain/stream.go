package domain

import (
	"time"
)

// CaptureState tracks the lifecycle of a stream's capture loop.
type CaptureState string

const (
	CaptureIdle      CaptureState = "idle"
	CaptureStarting  CaptureState = "starting"
	CaptureStreaming CaptureState = "streaming"
	CaptureStopping  CaptureState = "stopping"
	CaptureStopped   CaptureState = "stopped"
	CaptureFailed    CaptureState = "failed"
)

// QualityProfile describes a named capture preset.
type QualityProfile struct {
	Name          string `json:"name" yaml:"name"`
	Width         int    `json:"width" yaml:"width"`
	Height        int    `json:"height" yaml:"height"`
	TargetFPS     int    `json:"target_fps" yaml:"target_fps"`
	EncodeQuality int    `json:"encode_quality" yaml:"encode_quality"`
}

// FrameInterval returns the cadence implied by the profile's target FPS.
func (p QualityProfile) FrameInterval() time.Duration {
	fps := p.TargetFPS
	if fps <= 0 {
		fps = 24
	}
	return time.Second / time.Duration(fps)
}

// StreamInfo is a point-in-time snapshot of one stream session.
type StreamInfo struct {
	ID          StreamID       `json:"stream_id"`
	State       CaptureState   `json:"state"`
	Quality     QualityProfile `json:"quality"`
	ViewerCount int            `json:"viewer_count"`
	FrameCount  uint64         `json:"frame_count"`
	CameraIndex int            `json:"camera_index"`
	StartedAt   time.Time      `json:"started_at"`
}

// FramePayload is the payload carried by frame events.
type FramePayload struct {
	StreamID    StreamID `json:"stream_id"`
	Frame       string   `json:"frame"`
	FrameNumber uint64   `json:"frame_number"`
	Quality     string   `json:"quality"`
	Timestamp   int64    `json:"timestamp"`
}
