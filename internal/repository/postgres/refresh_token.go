package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/database"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
)

// RefreshTokenRepository implements the refresh token ledger on PostgreSQL.
type RefreshTokenRepository struct {
	db database.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed ledger.
func NewRefreshTokenRepository(db database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

const (
	reserveTokenSQL = `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	sealTokenSQL = `UPDATE refresh_tokens SET token_hash = $1 WHERE id = $2`

	consumeTokenSQL = `
		UPDATE refresh_tokens SET revoked_at = $1
		WHERE id = $2 AND user_id = $3 AND token_hash = $4
		  AND revoked_at IS NULL AND expires_at > $1`

	getTokenSQL = `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE id = $1`

	revokeAllSQL = `
		UPDATE refresh_tokens SET revoked_at = $1
		WHERE user_id = $2 AND revoked_at IS NULL AND expires_at > $1`

	listActiveSQL = `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC, id DESC`
)

// Issue reserves a row, seals it and stores the hash in one transaction.
func (r *RefreshTokenRepository) Issue(ctx context.Context, userID int64, expiresAt time.Time, seal repository.SealFunc) (id int64, err error) {
	ctx, end := traceQuery(ctx, "IssueRefreshToken", reserveTokenSQL)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, reserveTokenSQL, userID, domain.PendingTokenHash, expiresAt).Scan(&id); err != nil {
			return fmt.Errorf("reserve refresh token: %w", err)
		}

		hash, err := seal(id)
		if err != nil {
			return fmt.Errorf("seal refresh token %d: %w", id, err)
		}

		if _, err := tx.Exec(ctx, sealTokenSQL, hash, id); err != nil {
			return fmt.Errorf("store refresh token hash: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Consume revokes the row with a single conditional update. Only the caller
// whose update affects the row wins.
func (r *RefreshTokenRepository) Consume(ctx context.Context, id, userID int64, tokenHash string, now time.Time) (_ bool, err error) {
	ctx, end := traceQuery(ctx, "ConsumeRefreshToken", consumeTokenSQL)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, consumeTokenSQL, now, id, userID, tokenHash)
	if err != nil {
		return false, fmt.Errorf("consume refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get returns a ledger row by ID.
func (r *RefreshTokenRepository) Get(ctx context.Context, id int64) (_ *domain.RefreshToken, err error) {
	ctx, end := traceQuery(ctx, "GetRefreshToken", getTokenSQL)
	defer func() { end(err) }()

	var rt domain.RefreshToken
	err = r.db.QueryRow(ctx, getTokenSQL, id).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.TokenHash,
		&rt.ExpiresAt,
		&rt.RevokedAt,
		&rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeAllForUser revokes every active row of the user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, now time.Time) (_ int64, err error) {
	ctx, end := traceQuery(ctx, "RevokeAllRefreshTokens", revokeAllSQL)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, revokeAllSQL, now, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens by user: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListActive returns the user's live sessions.
func (r *RefreshTokenRepository) ListActive(ctx context.Context, userID int64, now time.Time) (_ []domain.RefreshToken, err error) {
	ctx, end := traceQuery(ctx, "ListActiveRefreshTokens", listActiveSQL)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listActiveSQL, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]domain.RefreshToken, 0)
	for rows.Next() {
		var rt domain.RefreshToken
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.RevokedAt, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan refresh token row: %w", err)
		}
		tokens = append(tokens, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh token rows: %w", err)
	}
	return tokens, nil
}
