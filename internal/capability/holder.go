// Package capability owns the transient microphone capture acquired
// for the lifetime of a room view.
package capability

import (
	"context"
	"errors"
	"sync"

	"chat-client/internal/remote"
)

// RoomAudio is the capture configuration requested on room entry.
var RoomAudio = remote.AudioConstraints{
	EchoCancellation: true,
	NoiseSuppression: true,
	AutoGainControl:  true,
	SampleRate:       48000,
}

// ErrHeld is returned when acquiring while a stream is already held.
var ErrHeld = errors.New("audio capture already held")

// Holder holds at most one capture stream. Release stops the tracks
// exactly once no matter how often it is called; after Release the
// holder can be reused for the next room entry.
type Holder struct {
	mu      sync.Mutex
	stream  remote.AudioStream
	enabled bool
}

// NewHolder creates an empty holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Acquire requests a capture stream. Failure leaves the holder empty;
// the caller proceeds without local audio and no retry is attempted.
func (h *Holder) Acquire(ctx context.Context, devices remote.Devices, constraints remote.AudioConstraints) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stream != nil {
		return ErrHeld
	}
	stream, err := devices.AcquireAudio(ctx, constraints)
	if err != nil {
		return err
	}
	h.stream = stream
	h.enabled = true
	return nil
}

// Held reports whether a stream is currently held.
func (h *Holder) Held() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stream != nil
}

// Enabled reports whether the held tracks are live.
func (h *Holder) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stream != nil && h.enabled
}

// Toggle flips track enablement and returns the new state. Without a
// held stream it reports false.
func (h *Holder) Toggle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stream == nil {
		return false
	}
	h.enabled = !h.enabled
	h.stream.SetEnabled(h.enabled)
	return h.enabled
}

// Release stops the held tracks and clears the reference. Idempotent.
func (h *Holder) Release() {
	h.mu.Lock()
	stream := h.stream
	h.stream = nil
	h.enabled = false
	h.mu.Unlock()

	if stream != nil {
		stream.Stop()
	}
}
