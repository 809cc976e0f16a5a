package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	store "nightslip/internal/adapters/storage/audit"
	"nightslip/internal/adapters/storage/storagetest"
	domain "nightslip/internal/domain/audit"
)

func TestSQLiteStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := store.NewSQLiteStore(storagetest.Open(t))

	older := domain.NewEvent("chair@club.org", domain.CategoryDate, domain.ActionCreate).
		WithResource("tracked_date", "d1")
	older.Timestamp = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := domain.NewEvent("chair@club.org", domain.CategoryMember, domain.ActionImport).
		WithDescription("created=2 updated=1")
	newer.Timestamp = time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	all, err := s.List(ctx, store.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.True(t, all[1].Timestamp.Equal(older.Timestamp))
	assert.Equal(t, "d1", all[1].ResourceID)

	cat := domain.CategoryDate
	dates, err := s.List(ctx, store.Filter{Category: &cat}, 10)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, older.ID, dates[0].ID)

	limited, err := s.List(ctx, store.Filter{}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
