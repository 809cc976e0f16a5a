package trackeddate

import (
	"context"

	domain "nightslip/internal/domain/trackeddate"
)

// Store persists tracked dates.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.TrackedDate, error)
	GetByDateString(ctx context.Context, dateString string) (domain.TrackedDate, error)
	Save(ctx context.Context, value domain.TrackedDate) error
	// Delete removes the date and every attendance record for it, returning the record count.
	Delete(ctx context.Context, id string) (int64, error)
	List(ctx context.Context) ([]domain.TrackedDate, error)
}
