package capture

import (
	"encoding/base64"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"
)

// Base64Encoder packages raw frames as base64 text for websocket
// delivery. The codec itself is external to the core; swapping in a real
// JPEG pipeline only requires another ports.FrameEncoder.
type Base64Encoder struct{}

func NewBase64Encoder() ports.FrameEncoder {
	return Base64Encoder{}
}

func (Base64Encoder) Encode(raw []byte, _ domain.QualityProfile) (string, error) {
	return base64.StdEncoding.EncodeToString(raw), nil
}
