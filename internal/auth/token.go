package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrInvalidToken wraps every verification failure returned by TokenManager.
var ErrInvalidToken = errors.New("invalid token")

// Config is the immutable signing configuration, built once at startup.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Validate rejects missing or shared secrets and non-positive lifetimes.
func (c Config) Validate() error {
	switch {
	case len(c.AccessSecret) == 0:
		return errors.New("access token secret is empty")
	case len(c.RefreshSecret) == 0:
		return errors.New("refresh token secret is empty")
	case string(c.AccessSecret) == string(c.RefreshSecret):
		return errors.New("access and refresh token secrets must differ")
	case c.AccessTTL <= 0:
		return fmt.Errorf("access token ttl must be positive, got %s", c.AccessTTL)
	case c.RefreshTTL <= 0:
		return fmt.Errorf("refresh token ttl must be positive, got %s", c.RefreshTTL)
	}
	return nil
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject.
func (c *AccessClaims) UserID() (int64, error) {
	return parseSubject(c.Subject)
}

// RefreshClaims is the payload of a refresh token. RecordID points at the
// ledger row the token was sealed into.
type RefreshClaims struct {
	TokenType string `json:"typ"`
	RecordID  int64  `json:"rid"`
	jwt.RegisteredClaims
}

// UserID parses the subject.
func (c *RefreshClaims) UserID() (int64, error) {
	return parseSubject(c.Subject)
}

// TokenManager signs and verifies HS256 access and refresh tokens, each
// with its own secret.
type TokenManager struct {
	cfg Config
	now func() time.Time
}

// NewTokenManager validates cfg and returns a manager bound to it.
func NewTokenManager(cfg Config) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("token config: %w", err)
	}
	return &TokenManager{cfg: cfg, now: time.Now}, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *TokenManager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *TokenManager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

// SignAccess issues an access token for userID.
func (m *TokenManager) SignAccess(userID int64) (string, error) {
	now := m.now().UTC()
	claims := &AccessClaims{
		TokenType:        tokenTypeAccess,
		RegisteredClaims: m.registered(userID, now, now.Add(m.cfg.AccessTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// SignRefresh issues a refresh token bound to ledger row recordID. The
// token expires at expiresAt so it never outlives its row.
func (m *TokenManager) SignRefresh(userID, recordID int64, expiresAt time.Time) (string, error) {
	claims := &RefreshClaims{
		TokenType:        tokenTypeRefresh,
		RecordID:         recordID,
		RegisteredClaims: m.registered(userID, m.now().UTC(), expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) registered(userID int64, issuedAt, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.NewString(),
		Issuer:    m.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

// VerifyAccess checks signature, expiry, issuer and token type.
func (m *TokenManager) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(raw, claims, m.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks signature, expiry, issuer, token type and record id.
// It does not consult the ledger.
func (m *TokenManager) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(raw, claims, m.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	if claims.RecordID <= 0 {
		return nil, fmt.Errorf("%w: missing record id", ErrInvalidToken)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *TokenManager) parse(raw string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func parseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, sub)
	}
	return id, nil
}

// HashToken returns the hex sha256 digest stored in the ledger in place of
// the raw refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
