package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/httputil"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/logger"
)

type contextKeyType string

const claimsKey contextKeyType = "auth_claims"

// Claims is the identity the auth middleware attaches to a request.
type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
}

// TokenValidator verifies a bearer token and resolves the identity behind it.
// Errors matching apperrors.ErrUnauthorized become a plain 401; any other
// error is treated as a server failure.
type TokenValidator func(ctx context.Context, token string) (*Claims, error)

// Auth rejects requests without a valid "Authorization: Bearer <token>"
// header and stores the resolved Claims in the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeAuthError(w, r, "missing or malformed authorization header")
				return
			}

			claims, err := validate(r.Context(), token)
			if err != nil && apperrors.HTTPStatus(err) != http.StatusUnauthorized {
				httputil.WriteError(w, r, err, nil)
				return
			}
			if err != nil || claims == nil {
				writeAuthError(w, r, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = logger.WithUserID(ctx, claims.UserID)
			if l := logger.FromContext(ctx); l != slog.Default() {
				ctx = logger.NewContext(ctx, l.With(slog.Int64("user_id", claims.UserID)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ClaimsFromContext returns the claims stored by Auth, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// UserIDFromContext returns the authenticated user ID.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID, true
	}
	return 0, false
}

// WithClaims returns a context carrying c. Handlers mounted without Auth
// (tests, internal callers) use it to supply an identity.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
		Status:    httputil.StatusError,
		Code:      "UNAUTHORIZED",
		Message:   message,
		RequestID: logger.RequestIDFromContext(r.Context()),
	})
}
