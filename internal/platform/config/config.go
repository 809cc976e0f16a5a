package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the process configuration, read from NIGHTSLIP_* environment variables.
type Config struct {
	Env       string `env:"NIGHTSLIP_ENV" envDefault:"development"`
	Addr      string `env:"NIGHTSLIP_ADDR" envDefault:":3000"`
	DBPath    string `env:"NIGHTSLIP_DB_PATH" envDefault:"nightslip.db"`
	StaticDir string `env:"NIGHTSLIP_STATIC_DIR" envDefault:"static"`
	LogLevel  string `env:"NIGHTSLIP_LOG_LEVEL" envDefault:"info"`

	// CSRFKey is hex-encoded, 32 bytes. Generated per process when empty outside production.
	CSRFKey            string   `env:"NIGHTSLIP_CSRF_KEY"`
	RateLimitPerSecond int      `env:"NIGHTSLIP_RATE_LIMIT" envDefault:"10"`
	TrustedOrigins     []string `env:"NIGHTSLIP_TRUSTED_ORIGINS" envSeparator:","`
	SlowQueryMs        int      `env:"NIGHTSLIP_SLOW_QUERY_MS" envDefault:"50"`
	SlowRequestMs      int      `env:"NIGHTSLIP_SLOW_REQUEST_MS" envDefault:"200"`

	AdminEmails []string `env:"NIGHTSLIP_ADMIN_EMAILS" envSeparator:","`
	AdminsFile  string   `env:"NIGHTSLIP_ADMINS_FILE"`

	JWKSURL        string `env:"NIGHTSLIP_JWKS_URL"`
	TokenIssuer    string `env:"NIGHTSLIP_TOKEN_ISSUER"`
	TokenAudience  string `env:"NIGHTSLIP_TOKEN_AUDIENCE"`
	DevTokenSecret string `env:"NIGHTSLIP_DEV_TOKEN_SECRET"`

	MirrorURL     string        `env:"NIGHTSLIP_MIRROR_URL"`
	MirrorTimeout time.Duration `env:"NIGHTSLIP_MIRROR_TIMEOUT" envDefault:"30s"`

	ResendKey string `env:"NIGHTSLIP_RESEND_KEY"`
	EmailFrom string `env:"NIGHTSLIP_EMAIL_FROM" envDefault:"Night Slip <noreply@nightslip.local>"`
}

// Load parses the environment into a Config.
// PRE: .env has already been loaded by the caller if one is wanted
// POST: Returns a Config with defaults applied, or an error for malformed values
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	if c.IsProduction() && c.JWKSURL == "" && c.DevTokenSecret == "" {
		return fmt.Errorf("NIGHTSLIP_JWKS_URL is required in production")
	}
	if c.IsProduction() && c.DevTokenSecret != "" {
		return fmt.Errorf("NIGHTSLIP_DEV_TOKEN_SECRET must not be set in production")
	}
	if c.MirrorTimeout <= 0 {
		return fmt.Errorf("NIGHTSLIP_MIRROR_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// DSN returns the SQLite data source name with the pragmas every connection needs.
func (c Config) DSN() string {
	return c.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}

// NewLogger builds the process logger: JSON in production, text otherwise.
func (c Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
