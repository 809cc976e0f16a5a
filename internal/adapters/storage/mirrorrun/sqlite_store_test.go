package mirrorrun_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	store "nightslip/internal/adapters/storage/mirrorrun"
	"nightslip/internal/adapters/storage/storagetest"
	domain "nightslip/internal/domain/mirror"
)

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(storagetest.Open(t))
	start := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	run := domain.NewRun("r1", domain.TriggerAttendance, start)
	require.NoError(t, s.Save(ctx, run))

	runs, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.StatusRunning, runs[0].Status)
	assert.True(t, runs[0].FinishedAt.IsZero())

	run.Counts(domain.Snapshot{Dates: make([]domain.DateRow, 2), Users: make([]domain.UserRow, 3)})
	run.MarkFailed(errors.New("status 500"), start.Add(2*time.Second))
	require.NoError(t, s.Save(ctx, run))

	runs, err = s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "status 500", got.Error)
	assert.Equal(t, 2, got.Dates)
	assert.Equal(t, 3, got.Users)
	assert.Equal(t, 2*time.Second, got.Duration())
}

func TestSQLiteStore_ListRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(storagetest.Open(t))
	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		run := domain.NewRun(id, domain.TriggerManual, base.Add(time.Duration(i)*time.Minute))
		run.MarkDone(run.StartedAt.Add(time.Second))
		require.NoError(t, s.Save(ctx, run))
	}

	runs, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)
}
