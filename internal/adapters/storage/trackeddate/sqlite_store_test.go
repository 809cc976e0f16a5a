package trackeddate_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attendancestore "nightslip/internal/adapters/storage/attendance"
	"nightslip/internal/adapters/storage/storagetest"
	store "nightslip/internal/adapters/storage/trackeddate"
	"nightslip/internal/domain/attendance"
	domain "nightslip/internal/domain/trackeddate"
)

func TestSQLiteStore_SaveAndLookup(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(storagetest.Open(t))
	d := domain.New("d1", "2025-03-01")
	require.NoError(t, s.Save(ctx, d))

	got, err := s.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, d, got)

	got, err = s.GetByDateString(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.ID)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSQLiteStore_DuplicateDateString(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(storagetest.Open(t))
	require.NoError(t, s.Save(ctx, domain.New("d1", "2025-03-01")))

	err := s.Save(ctx, domain.New("d2", "2025-03-01"))
	assert.ErrorIs(t, err, domain.ErrExists)
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(storagetest.Open(t))
	for i, ds := range []string{"2025-01-10", "2025-03-01", "2024-12-31"} {
		require.NoError(t, s.Save(ctx, domain.New(string(rune('a'+i)), ds)))
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-03-01", all[0].DateString)
	assert.Equal(t, "2025-01-10", all[1].DateString)
	assert.Equal(t, "2024-12-31", all[2].DateString)
}

func TestSQLiteStore_DeleteCascadesAttendance(t *testing.T) {
	ctx := context.Background()
	db := storagetest.Open(t)
	s := store.NewSQLiteStore(db)
	records := attendancestore.NewSQLiteStore(db)

	require.NoError(t, s.Save(ctx, domain.New("d1", "2025-03-01")))
	require.NoError(t, s.Save(ctx, domain.New("d2", "2025-03-08")))
	require.NoError(t, records.Save(ctx, attendance.Default("ana@club.org", "d1")))
	require.NoError(t, records.Save(ctx, attendance.Default("ben@club.org", "d1")))
	require.NoError(t, records.Save(ctx, attendance.Default("ana@club.org", "d2")))

	removed, err := s.Delete(ctx, "d1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	left, err := records.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "d2", left[0].DateID)

	_, err = s.Delete(ctx, "d1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
