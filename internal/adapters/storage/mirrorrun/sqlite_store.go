package mirrorrun

import (
	"context"
	"database/sql"
	"time"

	"nightslip/internal/adapters/storage"
	domain "nightslip/internal/domain/mirror"
)

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new mirror run store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts or updates a run.
// PRE: run has been validated
// POST: Run is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, run domain.Run) error {
	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mirror_run (id, trigger, status, dates, users, records, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status=excluded.status, dates=excluded.dates, users=excluded.users,
		 records=excluded.records, error=excluded.error, finished_at=excluded.finished_at`,
		run.ID, run.Trigger, run.Status, run.Dates, run.Users, run.Records, run.Error,
		run.StartedAt.UTC().Format(timeLayout), finished,
	)
	return err
}

// ListRecent returns up to limit runs ordered by start time descending.
// PRE: limit > 0
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger, status, dates, users, records, error, started_at, finished_at
		 FROM mirror_run ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var r domain.Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &r.Trigger, &r.Status, &r.Dates, &r.Users, &r.Records, &r.Error, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		if finished.Valid {
			r.FinishedAt, _ = time.Parse(timeLayout, finished.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
