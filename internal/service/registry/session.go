package registry

import (
	"sync"
	"time"

	"scam-guard-service/internal/models"
)

// Release reasons.
const (
	ReasonDisconnect  = "disconnect"
	ReasonIdleTimeout = "idle_timeout"
	ReasonShutdown    = "shutdown"
	ReasonProtocol    = "protocol_error"
	ReasonInternal    = "internal_error"
)

// Session is the registry's record of one live connection.
type Session struct {
	ID         string
	RemoteAddr string
	CreatedAt  time.Time

	mu             sync.Mutex
	lastChunkKind  models.ChunkKind
	inFlight       bool
	lastActivityAt time.Time
	closed         bool
	releasers      []func(reason string)
}

func newSession(id, remoteAddr string, now time.Time) *Session {
	return &Session{
		ID:             id,
		RemoteAddr:     remoteAddr,
		CreatedAt:      now,
		lastActivityAt: now,
	}
}

// Touch records inbound activity. ChunkKindNone leaves the last kind unchanged.
func (s *Session) Touch(kind models.ChunkKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivityAt = time.Now()
	if kind != models.ChunkKindNone {
		s.lastChunkKind = kind
	}
}

// BeginFlight marks a classification as in flight.
// Returns false if one already was.
func (s *Session) BeginFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

// EndFlight clears the in-flight mark and counts as activity.
func (s *Session) EndFlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.lastActivityAt = time.Now()
}

func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Session) LastChunkKind() models.ChunkKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastChunkKind
}

func (s *Session) LastActivityAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivityAt
}

// IsClosed returns true once the session has been released.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// OnRelease registers fn to run when the session leaves the registry.
// If the session is already released fn runs immediately.
func (s *Session) OnRelease(fn func(reason string)) {
	s.mu.Lock()
	if !s.closed {
		s.releasers = append(s.releasers, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn(ReasonDisconnect)
}

// release marks the session closed and runs release hooks once, in
// registration order.
func (s *Session) release(reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	fns := s.releasers
	s.releasers = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn(reason)
	}
}
