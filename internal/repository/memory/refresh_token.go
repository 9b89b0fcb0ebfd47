package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
)

// RefreshTokenRepository is a map-backed ledger. One mutex serializes all
// writes, which gives Consume its compare-and-set semantics.
type RefreshTokenRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.RefreshToken
}

// NewRefreshTokenRepository returns an empty ledger.
func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{rows: make(map[int64]domain.RefreshToken)}
}

func (r *RefreshTokenRepository) Issue(_ context.Context, userID int64, expiresAt time.Time, seal repository.SealFunc) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.rows[id] = domain.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: domain.PendingTokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	hash, err := seal(id)
	if err != nil {
		delete(r.rows, id)
		return 0, fmt.Errorf("seal refresh token %d: %w", id, err)
	}

	row := r.rows[id]
	row.TokenHash = hash
	r.rows[id] = row
	return id, nil
}

func (r *RefreshTokenRepository) Consume(_ context.Context, id, userID int64, tokenHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.RejectReason(userID, tokenHash, now) != "" {
		return false, nil
	}
	revokedAt := now
	row.RevokedAt = &revokedAt
	r.rows[id] = row
	return true, nil
}

func (r *RefreshTokenRepository) Get(_ context.Context, id int64) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &row, nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(_ context.Context, userID int64, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.rows {
		if row.UserID != userID || !row.IsActive(now) {
			continue
		}
		revokedAt := now
		row.RevokedAt = &revokedAt
		r.rows[id] = row
		n++
	}
	return n, nil
}

func (r *RefreshTokenRepository) ListActive(_ context.Context, userID int64, now time.Time) ([]domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.RefreshToken, 0)
	for _, row := range r.rows {
		if row.UserID == userID && row.IsActive(now) {
			out = append(out, row)
		}
	}
	// IDs grow with creation time, so descending ID is newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
