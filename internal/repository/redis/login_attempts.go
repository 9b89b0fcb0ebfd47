package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptsPrefix = "login_failures:"

// LoginAttemptStore counts failed logins in Redis so every API replica
// shares one lockout state.
type LoginAttemptStore struct {
	client redis.UniversalClient
}

// NewLoginAttemptStore creates a Redis-backed attempt counter.
func NewLoginAttemptStore(client redis.UniversalClient) *LoginAttemptStore {
	return &LoginAttemptStore{client: client}
}

func attemptKey(key string) string {
	return loginAttemptsPrefix + key
}

// Failures returns the current failure count, zero when no window is open.
func (s *LoginAttemptStore) Failures(ctx context.Context, key string) (int, error) {
	n, err := s.client.Get(ctx, attemptKey(key)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get login failures: %w", err)
	}
	return n, nil
}

// RegisterFailure increments the counter. INCR and EXPIRE NX run in one
// MULTI so the key always carries a TTL, and later failures never extend
// the window opened by the first.
func (s *LoginAttemptStore) RegisterFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	k := attemptKey(key)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis incr login failures: %w", err)
	}
	return int(incr.Val()), nil
}

// Reset clears the counter after a successful login.
func (s *LoginAttemptStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, attemptKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del login failures: %w", err)
	}
	return nil
}
