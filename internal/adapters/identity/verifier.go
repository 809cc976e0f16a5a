// Package identity verifies the bearer tokens issued by the external identity
// provider. A verified token's email claim is trusted as the actor's identity.
package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by Verify.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingEmail = errors.New("token has no email claim")
)

// Identity is the verified caller.
type Identity struct {
	Email   string `json:"email"`
	Subject string `json:"sub"`
}

// Verifier checks a bearer token and returns the identity it asserts.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Config holds JWTVerifier settings. At least one of JWKSURL or DevSecret must be set.
type Config struct {
	JWKSURL   string
	Issuer    string
	Audience  string
	DevSecret string
	// RefreshInterval bounds how often the key set is refetched; default one hour.
	RefreshInterval time.Duration
	// MinRefreshInterval is the shortest gap between two fetch attempts, so
	// tokens with unknown kids cannot drive outbound calls; default one minute.
	MinRefreshInterval time.Duration
	HTTPClient         *http.Client
}

// claims is the token payload this service reads.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type jwks struct {
	Keys []jsonWebKey `json:"keys"`
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWTVerifier verifies RS256 tokens against a JWKS endpoint and, when a
// development secret is configured, HS256 tokens signed with it.
type JWTVerifier struct {
	cfg    Config
	parser *jwt.Parser
	client *http.Client

	refreshMu sync.Mutex // serializes fetches

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	attemptedAt time.Time
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier creates a verifier. Keys are fetched lazily on first use.
// PRE: cfg.JWKSURL or cfg.DevSecret is non-empty
func NewJWTVerifier(cfg Config) (*JWTVerifier, error) {
	if cfg.JWKSURL == "" && cfg.DevSecret == "" {
		return nil, errors.New("identity: JWKS URL or development secret required")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = time.Minute
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	var methods []string
	if cfg.JWKSURL != "" {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if cfg.DevSecret != "" {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWTVerifier{
		cfg:    cfg,
		parser: jwt.NewParser(opts...),
		client: client,
		keys:   make(map[string]*rsa.PublicKey),
	}, nil
}

// Verify parses and validates the token.
// POST: On success Identity.Email is non-empty, exactly as asserted by the issuer
func (v *JWTVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	var c claims
	_, err := v.parser.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(v.cfg.DevSecret), nil
		case *jwt.SigningMethodRSA:
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token missing kid header")
			}
			return v.publicKey(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	email := strings.TrimSpace(c.Email)
	if email == "" {
		return Identity{}, ErrMissingEmail
	}
	return Identity{Email: email, Subject: c.Subject}, nil
}

// publicKey returns the key for kid, refetching the key set when it is stale
// or kid is unknown. At most one fetch is attempted per MinRefreshInterval.
func (v *JWTVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	stale := time.Since(v.fetchedAt) > v.cfg.RefreshInterval
	attemptedAt := v.attemptedAt
	v.mu.RUnlock()
	if ok && !stale {
		return key, nil
	}
	if time.Since(attemptedAt) < v.cfg.MinRefreshInterval {
		if ok {
			return key, nil
		}
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}

	v.refreshMu.Lock()
	v.mu.RLock()
	raced := !v.attemptedAt.Equal(attemptedAt)
	v.mu.RUnlock()
	var err error
	if !raced {
		err = v.refresh(ctx)
	}
	v.refreshMu.Unlock()
	if err != nil {
		if ok {
			slog.Warn("jwks_refresh_failed", "error", err)
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("key %q not found in JWKS", kid)
}

func (v *JWTVerifier) refresh(ctx context.Context) error {
	if v.cfg.JWKSURL == "" {
		return errors.New("no JWKS URL configured")
	}
	v.mu.Lock()
	v.attemptedAt = time.Now()
	v.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return fmt.Errorf("create JWKS request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKey(k)
		if err != nil {
			slog.Warn("jwks_key_skipped", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()
	slog.Info("jwks_refreshed", "key_count", len(keys))
	return nil
}

func rsaKey(k jsonWebKey) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	var exp int
	for _, b := range e {
		exp = exp<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil
}
