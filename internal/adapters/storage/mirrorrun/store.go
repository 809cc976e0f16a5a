package mirrorrun

import (
	"context"

	domain "nightslip/internal/domain/mirror"
)

// Store persists the spreadsheet mirror run log.
type Store interface {
	Save(ctx context.Context, run domain.Run) error
	// ListRecent returns up to limit runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.Run, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
