package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
)

// ClientRepository is a map-backed client store.
type ClientRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]domain.Client
}

// NewClientRepository returns an empty store.
func NewClientRepository() *ClientRepository {
	return &ClientRepository{rows: make(map[int64]domain.Client)}
}

func (r *ClientRepository) List(_ context.Context, userID int64, filter domain.ClientFilter) ([]domain.Client, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(filter.Query)
	matched := make([]domain.Client, 0)
	for _, c := range r.rows {
		switch {
		case c.UserID != userID:
			continue
		case c.IsArchived && !filter.IncludeArchived:
			continue
		case query != "" && !strings.Contains(strings.ToLower(c.Name), query):
			continue
		case filter.Type != "" && (c.Type == nil || *c.Type != filter.Type):
			continue
		}
		matched = append(matched, c)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *ClientRepository) GetByID(_ context.Context, userID, id int64) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.NotFound("client", id)
	}
	return &c, nil
}

func (r *ClientRepository) Create(_ context.Context, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	c.ID = r.nextID
	c.IsArchived = false
	c.CreatedAt = now
	c.UpdatedAt = now
	r.rows[c.ID] = *c
	return nil
}

func (r *ClientRepository) Update(_ context.Context, userID, id int64, upd domain.ClientUpdate) (*domain.Client, error) {
	if upd.IsEmpty() {
		return nil, apperrors.InvalidInput("no fields to update")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.NotFound("client", id)
	}
	upd.Apply(&c)
	c.UpdatedAt = time.Now().UTC()
	r.rows[id] = c
	return &c, nil
}

func (r *ClientRepository) Archive(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return apperrors.NotFound("client", id)
	}
	c.IsArchived = true
	c.UpdatedAt = time.Now().UTC()
	r.rows[id] = c
	return nil
}
