package trackeddate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"nightslip/internal/adapters/storage"
	domain "nightslip/internal/domain/trackeddate"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new tracked date store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) getOne(ctx context.Context, where string, arg string) (domain.TrackedDate, error) {
	var entity domain.TrackedDate
	err := s.db.QueryRowContext(ctx, "SELECT id, date_string FROM tracked_date WHERE "+where+" = ?", arg).
		Scan(&entity.ID, &entity.DateString)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TrackedDate{}, fmt.Errorf("tracked date not found: %w", err)
	}
	return entity, err
}

// GetByID retrieves a tracked date by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.TrackedDate, error) {
	return s.getOne(ctx, "id", id)
}

// GetByDateString retrieves a tracked date by its YYYY-MM-DD value.
func (s *SQLiteStore) GetByDateString(ctx context.Context, dateString string) (domain.TrackedDate, error) {
	return s.getOne(ctx, "date_string", dateString)
}

// Save persists a tracked date.
// PRE: entity has been validated
// POST: Entity is persisted; a second date with the same date_string yields domain.ErrExists
func (s *SQLiteStore) Save(ctx context.Context, entity domain.TrackedDate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracked_date (id, date_string) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET date_string=excluded.date_string`,
		entity.ID, entity.DateString,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: tracked_date.date_string") {
		return fmt.Errorf("save date %s: %w", entity.DateString, domain.ErrExists)
	}
	return err
}

// Delete removes the date and cascades a batch delete of its attendance records.
// PRE: id is non-empty
// POST: The date and its records are gone, or nothing changed on error
// INVARIANT: Records of other dates are untouched
func (s *SQLiteStore) Delete(ctx context.Context, id string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM tracked_date WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, fmt.Errorf("tracked date not found: %w", sql.ErrNoRows)
	}

	res, err = tx.ExecContext(ctx, "DELETE FROM attendance WHERE date_id = ?", id)
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return removed, tx.Commit()
}

// List retrieves all tracked dates, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.TrackedDate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, date_string FROM tracked_date ORDER BY date_string DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.TrackedDate
	for rows.Next() {
		var entity domain.TrackedDate
		if err := rows.Scan(&entity.ID, &entity.DateString); err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
