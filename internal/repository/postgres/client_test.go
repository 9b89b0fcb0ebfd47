package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
)

func newClientTestFixture(t *testing.T) (*ClientRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewClientRepository(mock), mock
}

func clientRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "name", "type", "contact_name", "contact_email", "contact_phone",
		"billing_address", "notes", "is_archived", "created_at", "updated_at",
	})
}

func addClientRow(rows *pgxmock.Rows, id int64, name string, typ *string, archived bool, at time.Time) *pgxmock.Rows {
	return rows.AddRow(id, int64(7), name, typ, strPtr("Jane"), strPtr("jane@acme.io"), (*string)(nil),
		(*string)(nil), (*string)(nil), archived, at, at)
}

func TestClientRepository_List_DefaultFilter(t *testing.T) {
	repo, mock := newClientTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT (.+) FROM clients WHERE user_id = (.+) AND is_archived = FALSE ORDER BY created_at DESC").
		WithArgs(int64(7), 20, 0).
		WillReturnRows(addClientRow(addClientRow(clientRows(), 2, "Beta", strPtr("entreprise"), false, now), 1, "Alpha", nil, false, now))

	clients, total, err := repo.List(context.Background(), 7, domain.ClientFilter{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, clients, 2)
	assert.Equal(t, "Beta", clients[0].Name)
	require.NotNil(t, clients[0].Type)
	assert.Equal(t, domain.ClientTypeEntreprise, *clients[0].Type)
	assert.Nil(t, clients[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepository_List_AllFilters(t *testing.T) {
	repo, mock := newClientTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT(.+) name ILIKE \\$2 AND type = \\$3").
		WithArgs(int64(7), "%acme%", "particular").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("LIMIT \\$4 OFFSET \\$5").
		WithArgs(int64(7), "%acme%", "particular", 10, 20).
		WillReturnRows(clientRows())

	clients, total, err := repo.List(context.Background(), 7, domain.ClientFilter{
		Query:           "acme",
		Type:            domain.ClientTypeParticular,
		IncludeArchived: true,
		Limit:           10,
		Offset:          20,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, clients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepository_GetByID_NotOwned(t *testing.T) {
	repo, mock := newClientTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id").
		WithArgs(int64(3), int64(7)).
		WillReturnRows(clientRows())

	c, err := repo.GetByID(context.Background(), 7, 3)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepository_Create(t *testing.T) {
	repo, mock := newClientTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	typ := domain.ClientTypeEntreprise
	c := &domain.Client{UserID: 7, Name: "Acme", Type: &typ, ContactEmail: strPtr("ops@acme.io")}

	mock.ExpectQuery("INSERT INTO clients").
		WithArgs(int64(7), "Acme", "entreprise", (*string)(nil), strPtr("ops@acme.io"), (*string)(nil), (*string)(nil), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_archived", "created_at", "updated_at"}).AddRow(int64(11), false, now, now))

	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(11), c.ID)
	assert.False(t, c.IsArchived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepository_Update_Partial(t *testing.T) {
	repo, mock := newClientTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	name := "Acme Corp"
	archived := false

	mock.ExpectQuery("UPDATE clients SET name = \\$1, is_archived = \\$2, updated_at = NOW\\(\\) WHERE id = \\$3 AND user_id = \\$4").
		WithArgs("Acme Corp", false, int64(3), int64(7)).
		WillReturnRows(addClientRow(clientRows(), 3, "Acme Corp", nil, false, now))

	c, err := repo.Update(context.Background(), 7, 3, domain.ClientUpdate{Name: &name, IsArchived: &archived})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", c.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepository_Update_Empty(t *testing.T) {
	repo, mock := newClientTestFixture(t)
	defer mock.Close()

	_, err := repo.Update(context.Background(), 7, 3, domain.ClientUpdate{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepository_Update_NotFound(t *testing.T) {
	repo, mock := newClientTestFixture(t)
	defer mock.Close()

	notes := "late payer"
	mock.ExpectQuery("UPDATE clients SET notes").
		WithArgs("late payer", int64(3), int64(7)).
		WillReturnRows(clientRows())

	_, err := repo.Update(context.Background(), 7, 3, domain.ClientUpdate{Notes: &notes})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClientRepository_Archive(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"archived", 1, nil},
		{"not owned", 0, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newClientTestFixture(t)
			defer mock.Close()

			mock.ExpectExec("UPDATE clients SET is_archived = TRUE").
				WithArgs(int64(3), int64(7)).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			err := repo.Archive(context.Background(), 7, 3)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClientRepository_Archive_DBError(t *testing.T) {
	repo, mock := newClientTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE clients SET is_archived = TRUE").
		WithArgs(int64(3), int64(7)).
		WillReturnError(errors.New("conn closed"))

	err := repo.Archive(context.Background(), 7, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive client")
}
