// Package registry tracks live sessions, enforces the session cap, and reaps idle ones.
package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"scam-guard-service/internal/observability/metrics"
)

// ErrMaxSessions is returned by Create when the registry is full.
var ErrMaxSessions = errors.New("maximum sessions reached")

// Mirror publishes the live session set to shared storage.
type Mirror interface {
	Store(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Config holds registry limits.
type Config struct {
	MaxSessions  int // 0 means unlimited
	IdleTimeout  time.Duration
	ReapInterval time.Duration
}

const shardCount = 32

// shard is one lock domain of the session map.
type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// Registry owns all live sessions. It is safe for concurrent use.
// Sessions are spread over shards by id so operations on different sessions
// rarely contend; the cap is enforced with an atomic reservation.
type Registry struct {
	shards [shardCount]*shard
	count  atomic.Int64

	cfg     Config
	mirror  Mirror
	metrics *metrics.Metrics
}

// New creates a registry. mirror may be nil.
func New(cfg Config, mirror Mirror) *Registry {
	r := &Registry{
		cfg:     cfg,
		mirror:  mirror,
		metrics: metrics.DefaultMetrics,
	}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	return r.shards[xxhash.Sum64String(id)%shardCount]
}

// reserve claims a slot under the session cap.
func (r *Registry) reserve() bool {
	for {
		n := r.count.Load()
		if r.cfg.MaxSessions > 0 && n >= int64(r.cfg.MaxSessions) {
			return false
		}
		if r.count.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Create registers a new session with a fresh id.
func (r *Registry) Create(ctx context.Context, remoteAddr string) (*Session, error) {
	if !r.reserve() {
		r.metrics.RecordSessionRejected()
		return nil, ErrMaxSessions
	}
	s := newSession(uuid.New().String(), remoteAddr, time.Now())
	sh := r.shardFor(s.ID)
	sh.mu.Lock()
	sh.sessions[s.ID] = s
	sh.mu.Unlock()

	r.metrics.RecordSessionStart()
	r.store(ctx, s)

	log.Info().
		Str("sessionId", s.ID).
		Str("remoteAddr", remoteAddr).
		Msg("Session created")
	return s, nil
}

// Get retrieves a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	sh := r.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Remove releases a session. Returns false if it was not registered.
func (r *Registry) Remove(ctx context.Context, id, reason string) bool {
	sh := r.shardFor(id)
	sh.mu.Lock()
	s, ok := sh.sessions[id]
	if ok {
		delete(sh.sessions, id)
		r.count.Add(-1)
	}
	sh.mu.Unlock()

	if !ok {
		return false
	}
	r.finish(ctx, s, reason)
	return true
}

// ReapIdle releases sessions with no activity for longer than the idle
// timeout. Sessions with a classification in flight are kept. Surviving
// sessions are re-mirrored so their shared TTL stays fresh.
func (r *Registry) ReapIdle(ctx context.Context, now time.Time) int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}

	var idle, live []*Session
	for _, sh := range r.shards {
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if !s.InFlight() && now.Sub(s.LastActivityAt()) > r.cfg.IdleTimeout {
				delete(sh.sessions, id)
				r.count.Add(-1)
				idle = append(idle, s)
				continue
			}
			live = append(live, s)
		}
		sh.mu.Unlock()
	}

	for _, s := range idle {
		r.metrics.RecordSessionReaped()
		r.finish(ctx, s, ReasonIdleTimeout)
	}
	for _, s := range live {
		r.store(ctx, s)
	}
	return len(idle)
}

// StartReaper runs ReapIdle every ReapInterval until ctx is done.
func (r *Registry) StartReaper(ctx context.Context) {
	interval := r.cfg.ReapInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.ReapIdle(ctx, now); n > 0 {
				log.Info().Int("reaped", n).Msg("Reaped idle sessions")
			}
		}
	}
}

// Shutdown releases every session and closes the mirror.
func (r *Registry) Shutdown(ctx context.Context) {
	var all []*Session
	for _, sh := range r.shards {
		sh.mu.Lock()
		for id, s := range sh.sessions {
			all = append(all, s)
			delete(sh.sessions, id)
			r.count.Add(-1)
		}
		sh.mu.Unlock()
	}

	for _, s := range all {
		r.finish(ctx, s, ReasonShutdown)
	}

	if r.mirror != nil {
		if err := r.mirror.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing session mirror")
		}
	}
	log.Info().Int("released", len(all)).Msg("Session registry shut down")
}

func (r *Registry) finish(ctx context.Context, s *Session, reason string) {
	s.release(reason)
	r.metrics.RecordSessionEnd(time.Since(s.CreatedAt).Seconds())

	if r.mirror != nil {
		if err := r.mirror.Delete(ctx, s.ID); err != nil {
			log.Warn().Err(err).Str("sessionId", s.ID).Msg("Failed to remove session from mirror")
		}
	}

	log.Info().
		Str("sessionId", s.ID).
		Str("reason", reason).
		Dur("duration", time.Since(s.CreatedAt)).
		Msg("Session released")
}

func (r *Registry) store(ctx context.Context, s *Session) {
	if r.mirror == nil {
		return
	}
	if err := r.mirror.Store(ctx, s); err != nil {
		log.Warn().Err(err).Str("sessionId", s.ID).Msg("Failed to mirror session")
	}
}
