package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository"
)

// LoginThrottle locks an email out for one source after too many failed
// logins from that source. Other sources keep their own counters, so a
// stranger guessing passwords cannot lock the owner out. Emails are matched
// exactly. Store errors fail open: they are logged and the login proceeds.
type LoginThrottle struct {
	store       repository.LoginAttemptStore
	maxFailures int
	lockout     time.Duration
	logger      *slog.Logger
}

// NewLoginThrottle creates a throttle allowing maxFailures failures per
// lockout window.
func NewLoginThrottle(store repository.LoginAttemptStore, maxFailures int, lockout time.Duration, logger *slog.Logger) *LoginThrottle {
	return &LoginThrottle{store: store, maxFailures: maxFailures, lockout: lockout, logger: logger}
}

// attemptKey scopes a counter to one source and one exact email. Source
// comes first since an IP never contains the separator.
func attemptKey(email, source string) string {
	return source + "|" + email
}

// Locked reports whether email has exhausted its failures from source.
func (t *LoginThrottle) Locked(ctx context.Context, email, source string) bool {
	if t == nil {
		return false
	}
	n, err := t.store.Failures(ctx, attemptKey(email, source))
	if err != nil {
		t.logger.WarnContext(ctx, "login throttle unavailable", slog.String("error", err.Error()))
		return false
	}
	return n >= t.maxFailures
}

// Fail records a failed login.
func (t *LoginThrottle) Fail(ctx context.Context, email, source string) {
	if t == nil {
		return
	}
	n, err := t.store.RegisterFailure(ctx, attemptKey(email, source), t.lockout)
	if err != nil {
		t.logger.WarnContext(ctx, "failed to record login failure", slog.String("error", err.Error()))
		return
	}
	if n == t.maxFailures {
		t.logger.WarnContext(ctx, "login locked out",
			slog.String("source", source),
			slog.Int("failures", n),
			slog.Duration("lockout", t.lockout),
		)
	}
}

// Succeed clears the failure count for email from source.
func (t *LoginThrottle) Succeed(ctx context.Context, email, source string) {
	if t == nil {
		return
	}
	if err := t.store.Reset(ctx, attemptKey(email, source)); err != nil {
		t.logger.WarnContext(ctx, "failed to reset login failures", slog.String("error", err.Error()))
	}
}
