package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/pagination"
)

// ClientService implements business logic for a user's clients.
type ClientService struct {
	repo   repository.ClientRepository
	logger *slog.Logger
}

// NewClientService creates a new client service.
func NewClientService(repo repository.ClientRepository, logger *slog.Logger) *ClientService {
	return &ClientService{repo: repo, logger: logger}
}

// ListClientsInput holds the filters for listing clients.
type ListClientsInput struct {
	Query           string
	Type            string
	IncludeArchived bool
	Page            pagination.Params
}

// CreateClientInput holds the parameters for creating a client.
type CreateClientInput struct {
	Name           string
	Type           string
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	BillingAddress string
	Notes          string
}

// List returns one page of the user's clients, newest first.
func (s *ClientService) List(ctx context.Context, userID int64, input ListClientsInput) (pagination.Result[domain.Client], error) {
	filter := domain.ClientFilter{
		Query:           strings.TrimSpace(input.Query),
		IncludeArchived: input.IncludeArchived,
		Limit:           input.Page.Limit,
		Offset:          input.Page.Offset,
	}
	if input.Type != "" {
		t := domain.ClientType(input.Type)
		if !t.IsValid() {
			return pagination.Result[domain.Client]{}, invalidClientType()
		}
		filter.Type = t
	}

	clients, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return pagination.Result[domain.Client]{}, fmt.Errorf("list clients: %w", err)
	}
	return pagination.NewResult(clients, total, input.Page), nil
}

// Get returns one client owned by userID.
func (s *ClientService) Get(ctx context.Context, userID, id int64) (*domain.Client, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Create adds a client for userID.
func (s *ClientService) Create(ctx context.Context, userID int64, input CreateClientInput) (*domain.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	c := &domain.Client{
		UserID:         userID,
		Name:           name,
		ContactName:    optional(input.ContactName),
		ContactEmail:   optional(input.ContactEmail),
		ContactPhone:   optional(input.ContactPhone),
		BillingAddress: optional(input.BillingAddress),
		Notes:          optional(input.Notes),
	}
	if input.Type != "" {
		t := domain.ClientType(input.Type)
		if !t.IsValid() {
			return nil, invalidClientType()
		}
		c.Type = &t
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	s.logger.InfoContext(ctx, "client created",
		slog.Int64("user_id", userID),
		slog.Int64("client_id", c.ID),
	)
	return c, nil
}

// Update applies a partial update to a client owned by userID.
func (s *ClientService) Update(ctx context.Context, userID, id int64, upd domain.ClientUpdate) (*domain.Client, error) {
	if upd.IsEmpty() {
		return nil, apperrors.InvalidInput("no fields to update")
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		upd.Name = &name
	}
	if upd.Type != nil && !upd.Type.IsValid() {
		return nil, invalidClientType()
	}

	c, err := s.repo.Update(ctx, userID, id, upd)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "client updated",
		slog.Int64("user_id", userID),
		slog.Int64("client_id", id),
	)
	return c, nil
}

// Archive hides a client from default listings.
func (s *ClientService) Archive(ctx context.Context, userID, id int64) error {
	if err := s.repo.Archive(ctx, userID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "client archived",
		slog.Int64("user_id", userID),
		slog.Int64("client_id", id),
	)
	return nil
}

func invalidClientType() *apperrors.AppError {
	return apperrors.InvalidInput(fmt.Sprintf("type must be %q or %q", domain.ClientTypeEntreprise, domain.ClientTypeParticular))
}
