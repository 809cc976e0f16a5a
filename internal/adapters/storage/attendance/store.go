package attendance

import (
	"context"

	domain "nightslip/internal/domain/attendance"
)

// Store persists stored attendance records. Absent records are the caller's
// concern; see domain.Materialize.
type Store interface {
	// Get returns the stored record for the pair, or nil when none is stored.
	Get(ctx context.Context, memberID, dateID string) (*domain.Record, error)
	Save(ctx context.Context, value domain.Record) error
	DeleteByDateID(ctx context.Context, dateID string) (int64, error)
	ListByDateID(ctx context.Context, dateID string) ([]domain.Record, error)
	List(ctx context.Context) ([]domain.Record, error)
}
