package emulator

import (
	"context"
	"sync"

	"chat-client/internal/remote"
)

// Mic is a fake device-capability collaborator. It can be told to deny
// acquisition and counts how many streams it has handed out and how
// many were stopped.
type Mic struct {
	mu       sync.Mutex
	denyWith error
	acquired int
	stopped  int
}

// NewMic creates a permitting fake microphone source.
func NewMic() *Mic {
	return &Mic{}
}

// Deny makes subsequent acquisitions fail with err (nil re-permits).
func (m *Mic) Deny(err error) {
	m.mu.Lock()
	m.denyWith = err
	m.mu.Unlock()
}

// AcquireAudio hands out a fake capture stream.
func (m *Mic) AcquireAudio(ctx context.Context, constraints remote.AudioConstraints) (remote.AudioStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denyWith != nil {
		return nil, m.denyWith
	}
	m.acquired++
	return &micStream{owner: m, enabled: true, constraints: constraints}, nil
}

// Counts reports acquired and stopped stream totals.
func (m *Mic) Counts() (acquired, stopped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired, m.stopped
}

type micStream struct {
	mu          sync.Mutex
	owner       *Mic
	enabled     bool
	stopped     bool
	constraints remote.AudioConstraints
}

func (s *micStream) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

func (s *micStream) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *micStream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.owner.mu.Lock()
	s.owner.stopped++
	s.owner.mu.Unlock()
}

var _ remote.Devices = (*Mic)(nil)
