package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"nightslip/internal/adapters/http/middleware"
	"nightslip/internal/adapters/identity"
	attendanceStore "nightslip/internal/adapters/storage/attendance"
	auditStore "nightslip/internal/adapters/storage/audit"
	memberStore "nightslip/internal/adapters/storage/member"
	mirrorRunStore "nightslip/internal/adapters/storage/mirrorrun"
	dateStore "nightslip/internal/adapters/storage/trackeddate"
	"nightslip/internal/application/orchestrators"
	"nightslip/internal/domain/authz"
	"nightslip/internal/platform/metrics"
)

// Stores holds all storage dependencies.
type Stores struct {
	MemberStore     memberStore.Store
	DateStore       dateStore.Store
	AttendanceStore attendanceStore.Store
	MirrorRunStore  mirrorRunStore.Store
	AuditStore      auditStore.Store
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services holds the non-storage collaborators of the handlers.
type Services struct {
	Policy   authz.Policy
	Verifier identity.Verifier
	Mirror   *orchestrators.MirrorDispatcher  // nil disables mirroring
	Receipts *orchestrators.ReceiptDispatcher // nil disables receipt emails
	DB       Pinger
}

// Options tunes the middleware chain.
type Options struct {
	StaticDir          string
	CSRFKey            []byte // 32 bytes; random per process when nil
	TrustedOrigins     []string
	RateLimitPerSecond int
	SlowRequestMs      int
	SecureCookies      bool
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global services instance (set by NewMux)
var services *Services

// DefaultRateLimitPerSecond is the per-IP limit when Options leaves it unset.
const DefaultRateLimitPerSecond = 10

// ParseCSRFKey decodes a hex-encoded 32-byte key. An empty string yields a random key.
func ParseCSRFKey(keyHex string) ([]byte, error) {
	if keyHex == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate CSRF key: %w", err)
		}
		slog.Warn("csrf_key_generated", "hint", "set NIGHTSLIP_CSRF_KEY so tokens survive restarts")
		return key, nil
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("CSRF key must be 64 hex characters (32 bytes)")
	}
	return key, nil
}

// NewMux wires HTTP handlers for the app.
// PRE: s and svc are non-nil; svc.Verifier is set
func NewMux(s *Stores, svc *Services, opts Options) (http.Handler, error) {
	stores = s
	services = svc
	middleware.SecureCookies = opts.SecureCookies

	csrfKey := opts.CSRFKey
	if csrfKey == nil {
		var err error
		if csrfKey, err = ParseCSRFKey(""); err != nil {
			return nil, err
		}
	}
	rate := opts.RateLimitPerSecond
	if rate <= 0 {
		rate = DefaultRateLimitPerSecond
	}

	mux := http.NewServeMux()
	if opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(rate, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, opts.TrustedOrigins),
		middleware.Auth(svc.Verifier),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.SlowRequestMs),
	), nil
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", handleLogin)
	mux.HandleFunc("GET /api/auth/me", handleMe)
	mux.HandleFunc("POST /api/auth/logout", handleLogout)

	mux.HandleFunc("GET /api/dates", handleListDates)
	mux.HandleFunc("POST /api/dates", handleCreateDate)
	mux.HandleFunc("DELETE /api/dates/{id}", handleDeleteDate)
	mux.HandleFunc("GET /api/dates/{dateId}/entries", handleDateEntries)
	mux.HandleFunc("PATCH /api/dates/{dateId}/users/{userId}", handleApplyFieldUpdate)
	mux.HandleFunc("POST /api/dates/{dateId}/reset", handleResetDate)

	mux.HandleFunc("GET /api/users", handleListUsers)
	mux.HandleFunc("POST /api/users", handleImportUsers)
	mux.HandleFunc("PATCH /api/users/{id}", handleUpdateUser)
	mux.HandleFunc("DELETE /api/users/{id}", handleDeleteUser)

	mux.HandleFunc("POST /api/sync", handleSync)
	mux.HandleFunc("GET /api/admin/mirror-runs", handleMirrorRuns)
	mux.HandleFunc("GET /api/admin/audit", handleAuditTrail)

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", handleHealthz)
}

// mirrorTrigger returns the dispatcher as an interface, nil when mirroring is off.
func mirrorTrigger() orchestrators.MirrorTrigger {
	if services.Mirror == nil {
		return nil
	}
	return services.Mirror
}

// receiptNotifier returns the receipt dispatcher as an interface, nil when email is off.
func receiptNotifier() orchestrators.ReceiptNotifier {
	if services.Receipts == nil {
		return nil
	}
	return services.Receipts
}
