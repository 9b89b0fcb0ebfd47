package domain

import "time"

// PendingTokenHash marks a ledger row whose token has not been sealed yet.
// It can never equal a real sha256 hex digest.
const PendingTokenHash = "pending"

// RefreshToken is one ledger row. Rows are revoked, never deleted.
type RefreshToken struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsActive reports whether the row can still be consumed at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Reasons a presented refresh token is refused. They are logged, never
// returned to the client.
const (
	RejectMissing      = "record not found"
	RejectOwner        = "owner mismatch"
	RejectRevoked      = "revoked"
	RejectExpired      = "expired"
	RejectHashMismatch = "hash mismatch"
)

// RejectReason explains why consuming t for userID with tokenHash failed.
// A nil t means the row does not exist. An empty result means the row
// looks consumable, which only happens when it was raced.
func (t *RefreshToken) RejectReason(userID int64, tokenHash string, now time.Time) string {
	switch {
	case t == nil:
		return RejectMissing
	case t.UserID != userID:
		return RejectOwner
	case t.RevokedAt != nil:
		return RejectRevoked
	case !now.Before(t.ExpiresAt):
		return RejectExpired
	case t.TokenHash != tokenHash:
		return RejectHashMismatch
	}
	return ""
}

// Session is the public view of an active ledger row.
type Session struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionFrom projects a ledger row.
func SessionFrom(t RefreshToken) Session {
	return Session{ID: t.ID, CreatedAt: t.CreatedAt, ExpiresAt: t.ExpiresAt}
}

// TokenPair holds freshly issued raw tokens.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
