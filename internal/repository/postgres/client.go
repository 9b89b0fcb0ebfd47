package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/database"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
)

const clientColumns = `id, user_id, name, type, contact_name, contact_email, contact_phone,
		billing_address, notes, is_archived, created_at, updated_at`

// ClientRepository implements repository.ClientRepository using PostgreSQL.
type ClientRepository struct {
	db database.DBTX
}

// NewClientRepository creates a new PostgreSQL-backed client repository.
func NewClientRepository(db database.DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

// List returns one page of the user's clients, newest first, and the total
// number of matches.
func (r *ClientRepository) List(ctx context.Context, userID int64, filter domain.ClientFilter) (_ []domain.Client, _ int, err error) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	if !filter.IncludeArchived {
		where = append(where, "is_archived = FALSE")
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where = append(where, "name ILIKE $"+strconv.Itoa(len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, "type = $"+strconv.Itoa(len(args)))
	}
	whereSQL := " WHERE " + strings.Join(where, " AND ")

	countSQL := "SELECT COUNT(*) FROM clients" + whereSQL
	ctx, end := traceQuery(ctx, "ListClients", countSQL)
	defer func() { end(err) }()

	var total int
	if err := r.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	listSQL := "SELECT " + clientColumns + " FROM clients" + whereSQL +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, filter.Limit)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate client rows: %w", err)
	}
	return clients, total, nil
}

// GetByID returns the user's client, or a not-found error.
func (r *ClientRepository) GetByID(ctx context.Context, userID, id int64) (_ *domain.Client, err error) {
	query := "SELECT " + clientColumns + " FROM clients WHERE id = $1 AND user_id = $2"
	ctx, end := traceQuery(ctx, "GetClient", query)
	defer func() { end(err) }()

	c, err := scanClient(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("client", id)
		}
		return nil, err
	}
	return c, nil
}

const insertClientSQL = `
		INSERT INTO clients (user_id, name, type, contact_name, contact_email, contact_phone, billing_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_archived, created_at, updated_at`

// Create inserts a client.
func (r *ClientRepository) Create(ctx context.Context, c *domain.Client) (err error) {
	ctx, end := traceQuery(ctx, "CreateClient", insertClientSQL)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, insertClientSQL,
		c.UserID,
		c.Name,
		clientTypeArg(c.Type),
		c.ContactName,
		c.ContactEmail,
		c.ContactPhone,
		c.BillingAddress,
		c.Notes,
	).Scan(&c.ID, &c.IsArchived, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// Update writes the set fields of upd and returns the updated row.
func (r *ClientRepository) Update(ctx context.Context, userID, id int64, upd domain.ClientUpdate) (_ *domain.Client, err error) {
	if upd.IsEmpty() {
		return nil, apperrors.InvalidInput("no fields to update")
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Type != nil {
		set("type", string(*upd.Type))
	}
	if upd.ContactName != nil {
		set("contact_name", *upd.ContactName)
	}
	if upd.ContactEmail != nil {
		set("contact_email", *upd.ContactEmail)
	}
	if upd.ContactPhone != nil {
		set("contact_phone", *upd.ContactPhone)
	}
	if upd.BillingAddress != nil {
		set("billing_address", *upd.BillingAddress)
	}
	if upd.Notes != nil {
		set("notes", *upd.Notes)
	}
	if upd.IsArchived != nil {
		set("is_archived", *upd.IsArchived)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id, userID)

	query := fmt.Sprintf("UPDATE clients SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args)-1, len(args), clientColumns)
	ctx, end := traceQuery(ctx, "UpdateClient", query)
	defer func() { end(err) }()

	c, err := scanClient(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("client", id)
		}
		return nil, err
	}
	return c, nil
}

const archiveClientSQL = `UPDATE clients SET is_archived = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2`

// Archive soft-deletes a client.
func (r *ClientRepository) Archive(ctx context.Context, userID, id int64) (err error) {
	ctx, end := traceQuery(ctx, "ArchiveClient", archiveClientSQL)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, archiveClientSQL, id, userID)
	if err != nil {
		return fmt.Errorf("archive client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("client", id)
	}
	return nil
}

func clientTypeArg(t *domain.ClientType) any {
	if t == nil {
		return nil
	}
	return string(*t)
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var (
		c   domain.Client
		typ *string
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&typ,
		&c.ContactName,
		&c.ContactEmail,
		&c.ContactPhone,
		&c.BillingAddress,
		&c.Notes,
		&c.IsArchived,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	if typ != nil {
		t := domain.ClientType(*typ)
		c.Type = &t
	}
	return &c, nil
}
