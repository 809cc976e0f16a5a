package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"nightslip/internal/adapters/storage"
	domain "nightslip/internal/domain/attendance"
)

const recordColumns = "member_id, date_id, intent, applied, presence_1, presence_2, locked"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new attendance store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.Record, error) {
	var r domain.Record
	var locked int
	err := row.Scan(&r.MemberID, &r.DateID, &r.Intent, &r.Applied, &r.Presence1, &r.Presence2, &locked)
	r.Locked = locked != 0
	return r, err
}

// Get retrieves the stored record for a member/date pair.
// PRE: memberID and dateID are non-empty
// POST: Returns nil, nil when no record is stored
func (s *SQLiteStore) Get(ctx context.Context, memberID, dateID string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM attendance WHERE id = ?", domain.Key(memberID, dateID))
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Save writes the whole record in a single upsert.
// PRE: entity.MemberID and entity.DateID are non-empty
// POST: The stored record equals entity (last write wins)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Record) error {
	fields := []string{"id", "member_id", "date_id", "intent", "applied", "presence_1", "presence_2", "locked"}
	placeholders := []string{"?", "?", "?", "?", "?", "?", "?", "?"}
	updates := []string{"intent=excluded.intent", "applied=excluded.applied", "presence_1=excluded.presence_1", "presence_2=excluded.presence_2", "locked=excluded.locked"}

	query := fmt.Sprintf(
		"INSERT INTO attendance (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	locked := 0
	if entity.Locked {
		locked = 1
	}
	_, err := s.db.ExecContext(ctx, query,
		entity.Key(),
		entity.MemberID,
		entity.DateID,
		entity.Intent,
		entity.Applied,
		entity.Presence1,
		entity.Presence2,
		locked,
	)
	return err
}

// DeleteByDateID removes every stored record for a date in one transaction.
// POST: Every member reads as the default record for dateID
func (s *SQLiteStore) DeleteByDateID(ctx context.Context, dateID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM attendance WHERE date_id = ?", dateID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// ListByDateID returns the stored records of one date.
func (s *SQLiteStore) ListByDateID(ctx context.Context, dateID string) ([]domain.Record, error) {
	return s.list(ctx, "SELECT "+recordColumns+" FROM attendance WHERE date_id = ? ORDER BY member_id", dateID)
}

// List returns every stored record.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Record, error) {
	return s.list(ctx, "SELECT "+recordColumns+" FROM attendance ORDER BY date_id, member_id")
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
