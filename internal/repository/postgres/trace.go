package postgres

import (
	"context"
	"errors"

	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/database"
	apperrors "github.com/Ayoub-Elkhouzari/freelance-management/pkg/errors"
)

// traceQuery is database.TraceQuery minus span errors for missing rows.
func traceQuery(ctx context.Context, op, stmt string) (context.Context, func(error)) {
	ctx, end := database.TraceQuery(ctx, op, stmt)
	return ctx, func(err error) {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = nil
		}
		end(err)
	}
}
