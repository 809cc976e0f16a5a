package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nightslip/internal/adapters/identity"
)

type stubVerifier map[string]identity.Identity

func (s stubVerifier) Verify(_ context.Context, token string) (identity.Identity, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return identity.Identity{}, identity.ErrInvalidToken
}

func TestAuth(t *testing.T) {
	verifier := stubVerifier{
		"cookie-token": {Email: "ana@club.org", Subject: "u1"},
		"bearer-token": {Email: "ben@club.org", Subject: "u2"},
	}
	tests := []struct {
		name       string
		cookie     string
		authHeader string
		wantEmail  string
		wantBearer bool
	}{
		{"no credentials", "", "", "", false},
		{"cookie", "cookie-token", "", "ana@club.org", false},
		{"bearer", "", "Bearer bearer-token", "ben@club.org", true},
		{"bearer wins over cookie", "cookie-token", "Bearer bearer-token", "ben@club.org", true},
		{"rejected token", "forged", "", "", false},
		{"basic scheme ignored", "", "Basic Zm9vOmJhcg==", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Actor
			var ok bool
			h := Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, ok = ActorFromContext(r.Context())
			}))
			req := httptest.NewRequest("GET", "/api/dates", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: tt.cookie})
			}
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantEmail == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantEmail, got.Email)
			assert.Equal(t, tt.wantBearer, got.Bearer)
		})
	}
}

func TestAuthCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	SetAuthCookie(rr, "tok")
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AuthCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rr = httptest.NewRecorder()
	ClearAuthCookie(rr)
	cookies = rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "third request within the interval")
	assert.True(t, rl.Allow("10.0.0.2"), "other clients have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "bucket refills after the interval")
}

func TestRateLimit_KeysOnHost(t *testing.T) {
	h := RateLimit(NewRateLimiter(1, time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRequest("GET", "/", nil)
	first.RemoteAddr = "10.0.0.9:5000"
	second := httptest.NewRequest("GET", "/", nil)
	second.RemoteAddr = "10.0.0.9:5001"

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, first)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, second)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestCSRF(t *testing.T) {
	key := []byte(strings.Repeat("k", 32))
	h := CSRF(key, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name        string
		contentType string
		auth        string
		want        int
	}{
		{"json is exempt", "application/json", "", http.StatusNoContent},
		{"csv is exempt", "text/csv", "", http.StatusNoContent},
		{"bearer is exempt", "application/x-www-form-urlencoded", "Bearer tok", http.StatusNoContent},
		{"bodyless command is exempt", "", "", http.StatusNoContent},
		{"form without token", "application/x-www-form-urlencoded", "", http.StatusForbidden},
		{"form with charset", "application/x-www-form-urlencoded; charset=utf-8", "", http.StatusForbidden},
		{"multipart without token", "multipart/form-data; boundary=x", "", http.StatusForbidden},
		{"plain text without token", "text/plain", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/sync", strings.NewReader(""))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}
