package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository/memory"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/pagination"
)

func newClientService() *ClientService {
	return NewClientService(memory.NewClientRepository(), testLogger())
}

func TestClientService_CreateAndGet(t *testing.T) {
	svc := newClientService()
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, CreateClientInput{
		Name:         "  Acme  ",
		Type:         "entreprise",
		ContactEmail: "billing@acme.test",
	})
	require.NoError(t, err)
	assert.Positive(t, c.ID)
	assert.Equal(t, "Acme", c.Name)
	require.NotNil(t, c.Type)
	assert.Equal(t, domain.ClientTypeEntreprise, *c.Type)
	assert.Nil(t, c.ContactName)

	got, err := svc.Get(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = svc.Get(ctx, 2, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClientService_CreateValidation(t *testing.T) {
	svc := newClientService()

	_, err := svc.Create(context.Background(), 1, CreateClientInput{Name: "   "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Create(context.Background(), 1, CreateClientInput{Name: "Acme", Type: "company"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestClientService_ListPaginates(t *testing.T) {
	svc := newClientService()
	ctx := context.Background()

	for _, name := range []string{"Acme", "Globex", "Initech"} {
		_, err := svc.Create(ctx, 1, CreateClientInput{Name: name})
		require.NoError(t, err)
	}

	page := pagination.Params{Page: 1, Limit: 2, Offset: 0}
	result, err := svc.List(ctx, 1, ListClientsInput{Page: page})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 3, result.Pagination.Total)
	assert.Equal(t, 2, result.Pagination.Pages)

	_, err = svc.List(ctx, 1, ListClientsInput{Type: "company", Page: page})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestClientService_Update(t *testing.T) {
	svc := newClientService()
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, CreateClientInput{Name: "Acme"})
	require.NoError(t, err)

	notes := "pays late"
	updated, err := svc.Update(ctx, 1, c.ID, domain.ClientUpdate{Notes: &notes})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)
	assert.Equal(t, "Acme", updated.Name)

	_, err = svc.Update(ctx, 1, c.ID, domain.ClientUpdate{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	blank := " "
	_, err = svc.Update(ctx, 1, c.ID, domain.ClientUpdate{Name: &blank})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	bad := domain.ClientType("company")
	_, err = svc.Update(ctx, 1, c.ID, domain.ClientUpdate{Type: &bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestClientService_ArchiveHidesFromDefaultList(t *testing.T) {
	svc := newClientService()
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, CreateClientInput{Name: "Acme"})
	require.NoError(t, err)
	require.NoError(t, svc.Archive(ctx, 1, c.ID))

	page := pagination.DefaultParams()
	result, err := svc.List(ctx, 1, ListClientsInput{Page: page})
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	result, err = svc.List(ctx, 1, ListClientsInput{IncludeArchived: true, Page: page})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].IsArchived)

	assert.ErrorIs(t, svc.Archive(ctx, 2, c.ID), apperrors.ErrNotFound)
}
