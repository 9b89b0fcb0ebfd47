package repository

import (
	"context"
	"time"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
)

// UserRepository persists users. Lookups that find nothing return an error
// matching apperrors.ErrNotFound.
type UserRepository interface {
	// Create inserts u and fills in its ID and timestamps. A duplicate email
	// yields an apperrors conflict.
	Create(ctx context.Context, u *domain.User) error

	GetByID(ctx context.Context, id int64) (*domain.User, error)

	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// SealFunc signs the refresh token for ledger row id and returns its hash.
type SealFunc func(id int64) (tokenHash string, err error)

// RefreshTokenRepository is the refresh token ledger.
type RefreshTokenRepository interface {
	// Issue reserves a row for userID with a placeholder hash, calls seal
	// with the new row id and stores the returned hash. Both writes commit
	// together or not at all.
	Issue(ctx context.Context, userID int64, expiresAt time.Time, seal SealFunc) (int64, error)

	// Consume revokes row id if it belongs to userID, carries tokenHash, is
	// not revoked and has not expired at now. It reports whether this call
	// performed the revocation; at most one concurrent caller wins.
	Consume(ctx context.Context, id, userID int64, tokenHash string, now time.Time) (bool, error)

	// Get returns row id regardless of its state.
	Get(ctx context.Context, id int64) (*domain.RefreshToken, error)

	// RevokeAllForUser revokes every active row of userID and returns how
	// many were revoked.
	RevokeAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error)

	// ListActive returns the unrevoked, unexpired rows of userID, newest first.
	ListActive(ctx context.Context, userID int64, now time.Time) ([]domain.RefreshToken, error)
}

// ClientRepository persists clients. Every method is scoped to the owning
// user; another user's client behaves as missing.
type ClientRepository interface {
	List(ctx context.Context, userID int64, filter domain.ClientFilter) ([]domain.Client, int, error)

	GetByID(ctx context.Context, userID, id int64) (*domain.Client, error)

	// Create inserts c and fills in its ID and timestamps.
	Create(ctx context.Context, c *domain.Client) error

	// Update applies upd and returns the stored row.
	Update(ctx context.Context, userID, id int64, upd domain.ClientUpdate) (*domain.Client, error)

	// Archive sets is_archived.
	Archive(ctx context.Context, userID, id int64) error
}

// LoginAttemptStore counts failed logins per key inside a lockout
// window that starts at the first failure.
type LoginAttemptStore interface {
	Failures(ctx context.Context, key string) (int, error)

	// RegisterFailure increments the counter and returns the new value.
	RegisterFailure(ctx context.Context, key string, window time.Duration) (int, error)

	Reset(ctx context.Context, key string) error
}
