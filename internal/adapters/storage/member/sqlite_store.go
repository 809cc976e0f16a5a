package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nightslip/internal/adapters/storage"
	domain "nightslip/internal/domain/member"
)

const memberColumns = "id, name, reg_no, email"

const upsertMember = `INSERT INTO member (id, name, reg_no, email) VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET name=excluded.name, reg_no=excluded.reg_no, email=excluded.email`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE id = ?", id)

	var entity domain.Member
	err := row.Scan(&entity.ID, &entity.Name, &entity.RegNo, &entity.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, fmt.Errorf("member not found: %w", err)
	}
	return entity, err
}

// Save persists a Member to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Member) error {
	return s.SaveMany(ctx, []domain.Member{entity})
}

// SaveMany upserts every member in one transaction.
// PRE: every entity has been validated
// POST: All entities persisted, or none on error
func (s *SQLiteStore) SaveMany(ctx context.Context, entities []domain.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertMember)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entity := range entities {
		if _, err := stmt.ExecContext(ctx, entity.ID, entity.Name, entity.RegNo, entity.Email); err != nil {
			return fmt.Errorf("upsert member %s: %w", entity.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes a Member from the database. Attendance rows are not touched.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM member WHERE id = ?", id)
	return err
}

// List retrieves members ordered by name ascending.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member WHERE 1=1"
	var args []any
	if filter.Search != "" {
		query += " AND (name LIKE ? OR email LIKE ? OR reg_no LIKE ?)"
		term := "%" + filter.Search + "%"
		args = append(args, term, term, term)
	}
	query += " ORDER BY name ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Member
	for rows.Next() {
		var entity domain.Member
		if err := rows.Scan(&entity.ID, &entity.Name, &entity.RegNo, &entity.Email); err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
