package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nightslip/internal/domain/mirror"
)

func TestClient_PushPostsSnapshot(t *testing.T) {
	var got map[string]any
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	snap := mirror.Snapshot{
		Dates: []mirror.DateRow{{ID: "d1", DateString: "2025-03-01"}},
		Users: []mirror.UserRow{{ID: "ana@club.org", Name: "Ana", RegNo: "R1", Email: "ana@club.org"}},
		Attendance: []mirror.AttendanceRow{{
			ID: "ana@club.org_d1", UserID: "ana@club.org", DateID: "d1",
			Coming: "COMING", Applied: "APPLIED", Attendance1: "PRESENT", Attendance2: "PRESENT", IsLocked: 1,
		}},
	}
	require.NoError(t, NewClient(srv.URL, nil).Push(context.Background(), snap))

	assert.Equal(t, "application/json", contentType)
	require.Contains(t, got, "attendance")
	row := got["attendance"].([]any)[0].(map[string]any)
	assert.Equal(t, "ana@club.org", row["user_id"])
	assert.EqualValues(t, 1, row["is_locked"])
	assert.Equal(t, "PRESENT", row["attendance_2"])
}

func TestClient_PushNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "script exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil).Push(context.Background(), mirror.Snapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "script exploded")
}

func TestClient_PushHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewClient(srv.URL, nil).Push(ctx, mirror.Snapshot{}))
}

func TestNoopClient(t *testing.T) {
	assert.NoError(t, NoopClient{}.Push(context.Background(), mirror.Snapshot{}))
}
