package memory

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often RegisterFailure scans for expired windows.
const sweepInterval = time.Minute

type attemptWindow struct {
	count     int
	expiresAt time.Time
}

// LoginAttemptStore counts failed logins in process memory.
type LoginAttemptStore struct {
	mu        sync.Mutex
	windows   map[string]attemptWindow
	lastSweep time.Time
	now       func() time.Time
}

// NewLoginAttemptStore returns an empty store.
func NewLoginAttemptStore() *LoginAttemptStore {
	return &LoginAttemptStore{windows: make(map[string]attemptWindow), now: time.Now}
}

func (s *LoginAttemptStore) Failures(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.live(key)
	if !ok {
		return 0, nil
	}
	return w.count, nil
}

func (s *LoginAttemptStore) RegisterFailure(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	w, ok := s.live(key)
	if !ok {
		w = attemptWindow{expiresAt: s.now().Add(window)}
	}
	w.count++
	s.windows[key] = w
	return w.count, nil
}

func (s *LoginAttemptStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, key)
	return nil
}

// live returns the unexpired window for key, dropping a stale one.
func (s *LoginAttemptStore) live(key string) (attemptWindow, bool) {
	w, ok := s.windows[key]
	if !ok {
		return attemptWindow{}, false
	}
	if !s.now().Before(w.expiresAt) {
		delete(s.windows, key)
		return attemptWindow{}, false
	}
	return w, true
}

// sweep drops every expired window, at most once per sweepInterval, so keys
// that never come back do not accumulate.
func (s *LoginAttemptStore) sweep() {
	now := s.now()
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for k, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, k)
		}
	}
}
