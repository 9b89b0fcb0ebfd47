package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/service"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/httputil"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/middleware"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/pagination"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/validator"
)

var errUnauthenticated = apperrors.Unauthorized("authentication required")

// ClientHandler handles HTTP requests for the client resource.
type ClientHandler struct {
	service *service.ClientService
	logger  *slog.Logger
}

// NewClientHandler creates a new client HTTP handler.
func NewClientHandler(svc *service.ClientService, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateClientRequest is the JSON request body for creating a client.
type CreateClientRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	Type           string `json:"type" validate:"omitempty,oneof=entreprise particular"`
	ContactName    string `json:"contact_name" validate:"omitempty,max=255"`
	ContactEmail   string `json:"contact_email" validate:"omitempty,email,max=255"`
	ContactPhone   string `json:"contact_phone" validate:"omitempty,max=50"`
	BillingAddress string `json:"billing_address" validate:"omitempty,max=500"`
	Notes          string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateClientRequest is the JSON request body for a partial client update.
type UpdateClientRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=255"`
	Type           *string `json:"type" validate:"omitempty,oneof=entreprise particular"`
	ContactName    *string `json:"contact_name" validate:"omitempty,max=255"`
	ContactEmail   *string `json:"contact_email" validate:"omitempty,email,max=255"`
	ContactPhone   *string `json:"contact_phone" validate:"omitempty,max=50"`
	BillingAddress *string `json:"billing_address" validate:"omitempty,max=500"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
	IsArchived     *bool   `json:"is_archived"`
}

func (req UpdateClientRequest) toUpdate() domain.ClientUpdate {
	upd := domain.ClientUpdate{
		Name:           req.Name,
		ContactName:    req.ContactName,
		ContactEmail:   req.ContactEmail,
		ContactPhone:   req.ContactPhone,
		BillingAddress: req.BillingAddress,
		Notes:          req.Notes,
		IsArchived:     req.IsArchived,
	}
	if req.Type != nil {
		t := domain.ClientType(*req.Type)
		upd.Type = &t
	}
	return upd
}

// --- Handlers ---

// List handles GET /clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errUnauthenticated, h.logger)
		return
	}

	q := r.URL.Query()
	includeArchived, _ := strconv.ParseBool(q.Get("include_archived"))

	result, err := h.service.List(r.Context(), userID, service.ListClientsInput{
		Query:           q.Get("q"),
		Type:            q.Get("type"),
		IncludeArchived: includeArchived,
		Page:            pagination.FromRequest(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, result)
}

// Get handles GET /clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errUnauthenticated, h.logger)
		return
	}
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, c)
}

// Create handles POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errUnauthenticated, h.logger)
		return
	}

	var req CreateClientRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	c, err := h.service.Create(r.Context(), userID, service.CreateClientInput{
		Name:           req.Name,
		Type:           req.Type,
		ContactName:    req.ContactName,
		ContactEmail:   req.ContactEmail,
		ContactPhone:   req.ContactPhone,
		BillingAddress: req.BillingAddress,
		Notes:          req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, c)
}

// Update handles PUT /clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errUnauthenticated, h.logger)
		return
	}
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateClientRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	c, err := h.service.Update(r.Context(), userID, id, req.toUpdate())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, c)
}

// Archive handles DELETE /clients/{id}
func (h *ClientHandler) Archive(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errUnauthenticated, h.logger)
		return
	}
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Archive(r.Context(), userID, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "client archived")
}
