package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/auth"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/event"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
)

// passwordHashCost is the bcrypt cost for stored passwords.
const passwordHashCost = 12

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

const (
	msgInvalidCredentials = "invalid email or password"
	msgInvalidRefresh     = "invalid or expired refresh token"
	msgInvalidAccess      = "invalid or expired token"
)

// AuthService implements registration, login and the refresh token
// lifecycle, and resolves access tokens for the auth middleware.
type AuthService struct {
	users    repository.UserRepository
	tokens   repository.RefreshTokenRepository
	codec    *auth.TokenManager
	events   event.Publisher
	throttle *LoginThrottle
	logger   *slog.Logger

	now          func() time.Time
	passwordCost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new auth service. A nil throttle disables login
// lockout.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	codec *auth.TokenManager,
	events event.Publisher,
	throttle *LoginThrottle,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		codec:        codec,
		events:       events,
		throttle:     throttle,
		logger:       logger,
		now:          time.Now,
		passwordCost: passwordHashCost,
	}
}

// RegisterInput holds the parameters for registering a new user. Empty
// optional fields are stored as NULL.
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Currency    string
	CompanyName string
	Address     string
	TaxID       string
	LogoURL     string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
	// Source identifies the caller, usually the client IP. Failed logins
	// are counted per email and source.
	Source string
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" || input.FirstName == "" || input.LastName == "" {
		return nil, nil, apperrors.InvalidInput("email, first_name and last_name are required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	switch _, err := s.users.GetByEmail(ctx, input.Email); {
	case err == nil:
		observe("register", outcomeRejected)
		return nil, nil, apperrors.AlreadyExists("user", "email", input.Email)
	case !errors.Is(err, apperrors.ErrNotFound):
		observe("register", outcomeError)
		return nil, nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.passwordCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	user := &domain.User{
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Currency:     currency,
		CompanyName:  optional(input.CompanyName),
		Address:      optional(input.Address),
		TaxID:        optional(input.TaxID),
		LogoURL:      optional(input.LogoURL),
	}

	// The unique index still catches a concurrent registration that passed the check above.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			observe("register", outcomeRejected)
		} else {
			observe("register", outcomeError)
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.issuePair(ctx, user.ID)
	if err != nil {
		observe("register", outcomeError)
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.events.UserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	observe("register", outcomeSuccess)
	s.logger.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID))
	return user, tokens, nil
}

// Login checks credentials and issues a new token pair. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" || input.Password == "" {
		return nil, nil, apperrors.InvalidInput("email and password are required")
	}

	if s.throttle.Locked(ctx, input.Email, input.Source) {
		observe("login", outcomeThrottled)
		return nil, nil, apperrors.TooManyRequests("too many failed login attempts, try again later")
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		observe("login", outcomeError)
		return nil, nil, fmt.Errorf("get user by email: %w", err)
	}

	if user == nil {
		// Spend the same bcrypt work as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummyPasswordHash(), []byte(input.Password))
		s.rejectLogin(ctx, input, "unknown email")
		return nil, nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.rejectLogin(ctx, input, "wrong password")
		return nil, nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	tokens, err := s.issuePair(ctx, user.ID)
	if err != nil {
		observe("login", outcomeError)
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}
	s.throttle.Succeed(ctx, input.Email, input.Source)

	observe("login", outcomeSuccess)
	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))
	return user, tokens, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, input LoginInput, reason string) {
	s.throttle.Fail(ctx, input.Email, input.Source)
	observe("login", outcomeRejected)
	s.logger.InfoContext(ctx, "login rejected", slog.String("reason", reason))
}

func (s *AuthService) dummyPasswordHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.passwordCost)
	})
	return s.dummyHash
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Every refusal is the same Unauthorized error; the actual
// reason is only logged.
func (s *AuthService) Refresh(ctx context.Context, rawRefreshToken string) (*domain.TokenPair, error) {
	claims, err := s.codec.VerifyRefresh(rawRefreshToken)
	if err != nil {
		s.rejectRefresh(ctx, "verification failed", slog.String("error", err.Error()))
		return nil, apperrors.Unauthorized(msgInvalidRefresh)
	}
	userID, err := claims.UserID()
	if err != nil {
		s.rejectRefresh(ctx, "bad subject")
		return nil, apperrors.Unauthorized(msgInvalidRefresh)
	}

	now := s.now().UTC()
	hash := auth.HashToken(rawRefreshToken)

	consumed, err := s.tokens.Consume(ctx, claims.RecordID, userID, hash, now)
	if err != nil {
		observe("refresh", outcomeError)
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if !consumed {
		reason := s.diagnose(ctx, claims.RecordID, userID, hash, now)
		s.rejectRefresh(ctx, reason,
			slog.Int64("user_id", userID),
			slog.Int64("token_id", claims.RecordID),
		)
		return nil, apperrors.Unauthorized(msgInvalidRefresh)
	}

	tokens, err := s.issuePair(ctx, userID)
	if err != nil {
		observe("refresh", outcomeError)
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	observe("refresh", outcomeSuccess)
	s.logger.InfoContext(ctx, "refresh token rotated",
		slog.Int64("user_id", userID),
		slog.Int64("token_id", claims.RecordID),
	)
	return tokens, nil
}

// diagnose reads the ledger row back to explain a failed Consume.
func (s *AuthService) diagnose(ctx context.Context, id, userID int64, hash string, now time.Time) string {
	row, err := s.tokens.Get(ctx, id)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return "lookup failed: " + err.Error()
	}
	if reason := row.RejectReason(userID, hash, now); reason != "" {
		return reason
	}
	return "consumed concurrently"
}

func (s *AuthService) rejectRefresh(ctx context.Context, reason string, attrs ...any) {
	observe("refresh", outcomeRejected)
	refreshRejections.WithLabelValues(rejectionLabel(reason)).Inc()
	s.logger.WarnContext(ctx, "refresh token rejected", append([]any{slog.String("reason", reason)}, attrs...)...)
}

// rejectionLabel keeps the metric label set bounded.
func rejectionLabel(reason string) string {
	switch reason {
	case domain.RejectMissing, domain.RejectOwner, domain.RejectRevoked,
		domain.RejectExpired, domain.RejectHashMismatch, "verification failed", "consumed concurrently":
		return reason
	}
	return "other"
}

// Logout revokes the presented refresh token. Invalid, expired or already
// revoked tokens are accepted silently; only store failures are returned.
func (s *AuthService) Logout(ctx context.Context, rawRefreshToken string) error {
	claims, err := s.codec.VerifyRefresh(rawRefreshToken)
	if err != nil {
		s.logger.DebugContext(ctx, "logout with unverifiable token", slog.String("error", err.Error()))
		return nil
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil
	}

	consumed, err := s.tokens.Consume(ctx, claims.RecordID, userID, auth.HashToken(rawRefreshToken), s.now().UTC())
	if err != nil {
		observe("logout", outcomeError)
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	observe("logout", outcomeSuccess)
	s.logger.InfoContext(ctx, "user logged out",
		slog.Int64("user_id", userID),
		slog.Bool("revoked", consumed),
	)
	return nil
}

// LogoutAll revokes every active session of userID and returns how many
// were revoked.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.tokens.RevokeAllForUser(ctx, userID, s.now().UTC())
	if err != nil {
		observe("logout_all", outcomeError)
		return 0, fmt.Errorf("revoke all refresh tokens: %w", err)
	}

	if err := s.events.SessionsRevoked(ctx, userID, n); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish auth.sessions_revoked event",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	observe("logout_all", outcomeSuccess)
	s.logger.InfoContext(ctx, "all sessions revoked",
		slog.Int64("user_id", userID),
		slog.Int64("revoked", n),
	)
	return n, nil
}

// ListSessions returns the user's active sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID int64) ([]domain.Session, error) {
	rows, err := s.tokens.ListActive(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, domain.SessionFrom(row))
	}
	return sessions, nil
}

// Authenticate resolves an access token to a live user. The ledger is not
// consulted: access tokens stay valid until they expire.
func (s *AuthService) Authenticate(ctx context.Context, rawAccessToken string) (*domain.Identity, error) {
	claims, err := s.codec.VerifyAccess(rawAccessToken)
	if err != nil {
		return nil, apperrors.Unauthorized(msgInvalidAccess)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, apperrors.Unauthorized(msgInvalidAccess)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "access token for missing user", slog.Int64("user_id", userID))
			return nil, apperrors.Unauthorized(msgInvalidAccess)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user.Identity(), nil
}

// issuePair seals a new ledger row and signs both tokens. The ledger
// expiry and the refresh token's exp claim are the same instant.
func (s *AuthService) issuePair(ctx context.Context, userID int64) (*domain.TokenPair, error) {
	expiresAt := s.now().UTC().Add(s.codec.RefreshTTL()).Truncate(time.Second)

	var refresh string
	_, err := s.tokens.Issue(ctx, userID, expiresAt, func(id int64) (string, error) {
		signed, err := s.codec.SignRefresh(userID, id, expiresAt)
		if err != nil {
			return "", err
		}
		refresh = signed
		return auth.HashToken(signed), nil
	})
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	access, err := s.codec.SignAccess(userID)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at most %d bytes", maxPasswordLength))
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
