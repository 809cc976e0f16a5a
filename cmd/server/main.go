package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	emailPkg "nightslip/internal/adapters/email"
	web "nightslip/internal/adapters/http"
	"nightslip/internal/adapters/identity"
	"nightslip/internal/adapters/sheets"
	"nightslip/internal/adapters/storage"
	attendanceStore "nightslip/internal/adapters/storage/attendance"
	auditStore "nightslip/internal/adapters/storage/audit"
	memberStore "nightslip/internal/adapters/storage/member"
	mirrorRunStore "nightslip/internal/adapters/storage/mirrorrun"
	dateStore "nightslip/internal/adapters/storage/trackeddate"
	"nightslip/internal/application/orchestrators"
	"nightslip/internal/application/projections"
	"nightslip/internal/domain/authz"
	"nightslip/internal/platform/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	slog.SetDefault(cfg.NewLogger())

	db, err := storage.OpenSQLite(cfg.DSN(), cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()
	slog.Info("database_ready", "path", cfg.DBPath, "schema", storage.LatestSchemaVersion())

	timedDB := storage.NewTimedDB(db, cfg.SlowQueryMs)
	stores := &web.Stores{
		MemberStore:     memberStore.NewSQLiteStore(timedDB),
		DateStore:       dateStore.NewSQLiteStore(timedDB),
		AttendanceStore: attendanceStore.NewSQLiteStore(timedDB),
		MirrorRunStore:  mirrorRunStore.NewSQLiteStore(timedDB),
		AuditStore:      auditStore.NewSQLiteStore(timedDB),
	}

	policy := authz.NewAllowList(cfg.AdminEmails...)
	if cfg.AdminsFile != "" {
		if err := policy.LoadAllowListFile(cfg.AdminsFile); err != nil {
			log.Fatalf("failed to load admins: %v", err)
		}
	}
	if policy.Len() == 0 {
		slog.Warn("no_admins_configured", "hint", "set NIGHTSLIP_ADMIN_EMAILS or NIGHTSLIP_ADMINS_FILE")
	}

	verifier, err := identity.NewJWTVerifier(identity.Config{
		JWKSURL:   cfg.JWKSURL,
		Issuer:    cfg.TokenIssuer,
		Audience:  cfg.TokenAudience,
		DevSecret: cfg.DevTokenSecret,
	})
	if err != nil {
		log.Fatalf("failed to configure identity verifier: %v", err)
	}

	var pusher sheets.Pusher = sheets.NoopClient{}
	if cfg.MirrorURL != "" {
		pusher = sheets.NewClient(cfg.MirrorURL, &http.Client{Timeout: cfg.MirrorTimeout})
		slog.Info("mirror_configured", "timeout", cfg.MirrorTimeout)
	} else {
		slog.Warn("mirror_disabled", "hint", "set NIGHTSLIP_MIRROR_URL to push to the spreadsheet")
	}
	mirror := orchestrators.NewMirrorDispatcher(orchestrators.MirrorDeps{
		Snapshot: projections.SnapshotFunc(projections.BuildSnapshotDeps{
			MemberStore:     stores.MemberStore,
			DateStore:       stores.DateStore,
			AttendanceStore: stores.AttendanceStore,
		}),
		Pusher:  pusher,
		Runs:    stores.MirrorRunStore,
		Timeout: cfg.MirrorTimeout,
	})

	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom)
		slog.Info("email_configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_disabled", "hint", "NIGHTSLIP_RESEND_KEY is not set; receipts are not delivered")
		}
	}
	receipts := orchestrators.NewReceiptDispatcher(orchestrators.ReceiptDeps{Sender: sender, From: cfg.EmailFrom})

	csrfKey, err := web.ParseCSRFKey(cfg.CSRFKey)
	if err != nil {
		log.Fatalf("invalid CSRF key: %v", err)
	}
	if cfg.CSRFKey == "" && cfg.IsProduction() {
		log.Fatalf("NIGHTSLIP_CSRF_KEY is required in production")
	}

	handler, err := web.NewMux(stores, &web.Services{
		Policy:   policy,
		Verifier: verifier,
		Mirror:   mirror,
		Receipts: receipts,
		DB:       timedDB,
	}, web.Options{
		StaticDir:          cfg.StaticDir,
		CSRFKey:            csrfKey,
		TrustedOrigins:     cfg.TrustedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SlowRequestMs:      cfg.SlowRequestMs,
		SecureCookies:      cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("failed to build handler: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "admins", policy.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_failed", "error", err)
	}
	// In-flight mirror pushes and receipts finish before the database closes.
	mirror.Wait()
	receipts.Wait()
	slog.Info("server_stopped")
}
