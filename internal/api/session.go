package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
)

// Sessions maps kiosk wizard sessions to their workflow instances. Sessions
// left idle past the TTL are swept so abandoned walk-aways do not accumulate.
type Sessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	ttl      time.Duration
	factory  func() *booking.Workflow
}

type session struct {
	wf       *booking.Workflow
	lastSeen time.Time
}

func NewSessions(ttl time.Duration, factory func() *booking.Workflow) *Sessions {
	return &Sessions{
		sessions: make(map[uuid.UUID]*session),
		ttl:      ttl,
		factory:  factory,
	}
}

func (s *Sessions) Create() (uuid.UUID, *booking.Workflow) {
	id := uuid.New()
	wf := s.factory()

	s.mu.Lock()
	s.sessions[id] = &session{wf: wf, lastSeen: time.Now()}
	s.mu.Unlock()

	return id, wf
}

func (s *Sessions) Get(id uuid.UUID) (*booking.Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = time.Now()
	return sess.wf, true
}

func (s *Sessions) Delete(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// StartJanitor sweeps expired sessions until ctx is done.
func (s *Sessions) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Sessions) sweep() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
