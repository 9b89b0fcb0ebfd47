package http

import (
	"log/slog"
	"net/http"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/service"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/httputil"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/middleware"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/validator"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FirstName   string `json:"first_name" validate:"required,min=1,max=100"`
	LastName    string `json:"last_name" validate:"required,min=1,max=100"`
	Currency    string `json:"currency" validate:"omitempty,iso4217"`
	CompanyName string `json:"company_name" validate:"omitempty,max=255"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	TaxID       string `json:"tax_id" validate:"omitempty,max=64"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url,max=2048"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the JSON request body for refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// --- Response types ---

// authResponse places the tokens next to the envelope's data.
type authResponse struct {
	Status       string `json:"status"`
	Data         any    `json:"data,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type logoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

func writeAuth(w http.ResponseWriter, status int, data any, tokens *domain.TokenPair) {
	httputil.WriteJSON(w, status, authResponse{
		Status:       httputil.StatusSuccess,
		Data:         data,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// --- Handlers ---

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	user, tokens, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Currency:    req.Currency,
		CompanyName: req.CompanyName,
		Address:     req.Address,
		TaxID:       req.TaxID,
		LogoURL:     req.LogoURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeAuth(w, http.StatusCreated, user, tokens)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	user, tokens, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Source:   middleware.ClientIP(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeAuth(w, http.StatusOK, user, tokens)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeAuth(w, http.StatusOK, nil, tokens)
}

// Logout handles POST /auth/logout. Unknown or already revoked tokens
// still get a 200.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "logged out")
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		httputil.WriteError(w, r, errUnauthenticated, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, domain.Identity{ID: claims.UserID, Email: claims.Email})
}

// LogoutAll handles POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errUnauthenticated, h.logger)
		return
	}

	n, err := h.service.LogoutAll(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, logoutAllResponse{Revoked: n})
}

// Sessions handles GET /auth/sessions
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errUnauthenticated, h.logger)
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, sessions)
}
