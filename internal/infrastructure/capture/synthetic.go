package capture

import (
	"fmt"
	"sync"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"
)

// SyntheticDriver produces deterministic test-pattern frames. It stands
// in for a real camera driver in development and tests; the session layer
// only sees the ports.CaptureDriver contract.
type SyntheticDriver struct {
	deviceCount int
}

// NewSyntheticDriver exposes deviceCount virtual devices at indices
// [0, deviceCount).
func NewSyntheticDriver(deviceCount int) *SyntheticDriver {
	if deviceCount <= 0 {
		deviceCount = 1
	}
	return &SyntheticDriver{deviceCount: deviceCount}
}

func (d *SyntheticDriver) Open(index int) (ports.CaptureDevice, error) {
	if index < 0 || index >= d.deviceCount {
		return nil, fmt.Errorf("%w: no device at index %d", domain.ErrCaptureUnavailable, index)
	}
	return &syntheticDevice{index: index}, nil
}

type syntheticDevice struct {
	index int

	mu       sync.Mutex
	released bool
	frame    uint64
}

// ReadFrame yields a small moving-gradient pattern. After Release the
// device behaves like a camera that was unplugged.
func (d *syntheticDevice) ReadFrame() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil, domain.ErrCaptureEnded
	}

	d.frame++
	buf := make([]byte, 256)
	for i := range buf {
		buf[i] = byte((uint64(i) + d.frame + uint64(d.index)*31) % 256)
	}
	return buf, nil
}

func (d *syntheticDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
	return nil
}
