package ports

import (
	"livecast/internal/core/domain"
)

// CaptureDriver opens capture devices by index. The real device is an
// external resource; the driver reports acquisition failure synchronously.
type CaptureDriver interface {
	Open(index int) (CaptureDevice, error)
}

// CaptureDevice is an acquired capture handle, exclusively owned by one
// stream session. ReadFrame returns domain.ErrCaptureEnded once the
// device stops yielding frames. Release must be safe to call after a
// failed ReadFrame.
type CaptureDevice interface {
	ReadFrame() ([]byte, error)
	Release() error
}

// FrameEncoder transforms one raw frame into a transmissible payload.
// The encoding itself is opaque to the core.
type FrameEncoder interface {
	Encode(raw []byte, profile domain.QualityProfile) (string, error)
}
