package remote

import (
	"context"
	"errors"
)

var ErrDeviceUnavailable = errors.New("audio device unavailable")

// AudioConstraints requested when acquiring a capture stream.
type AudioConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SampleRate       int
}

// AudioStream is a held microphone capture. SetEnabled mutes or
// unmutes the tracks without releasing the device; Stop releases it.
type AudioStream interface {
	SetEnabled(enabled bool)
	Enabled() bool
	Stop()
}

// Devices is the device-capability collaborator.
type Devices interface {
	AcquireAudio(ctx context.Context, constraints AudioConstraints) (AudioStream, error)
}
