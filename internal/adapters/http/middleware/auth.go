package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"nightslip/internal/adapters/identity"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const actorContextKey contextKey = "actor"

// AuthCookieName holds the identity token between requests.
const AuthCookieName = "auth_token"

// SecureCookies controls the Secure flag on the auth cookie. Set in production.
var SecureCookies = false

// Actor is the verified caller of a request.
type Actor struct {
	Email   string
	Subject string
	// Bearer is true when the token came from the Authorization header.
	Bearer bool
}

// TokenFromRequest returns the identity token and whether it was sent as a bearer token.
// The Authorization header wins over the cookie.
func TokenFromRequest(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), true
		}
	}
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, false
	}
	return "", false
}

// Auth returns middleware that verifies the request's identity token and puts the actor in context.
// It does NOT block unauthenticated requests; handlers decide with ActorFromContext.
// Every request is verified afresh; there is no server-side session.
func Auth(verifier identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, bearer := TokenFromRequest(r)
			if token != "" {
				id, err := verifier.Verify(r.Context(), token)
				if err != nil {
					slog.Debug("token_rejected", "path", r.URL.Path, "bearer", bearer, "error", err)
				} else {
					r = r.WithContext(ContextWithActor(r.Context(), Actor{Email: id.Email, Subject: id.Subject, Bearer: bearer}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorFromContext extracts the verified caller from the request context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(Actor)
	return actor, ok
}

// ContextWithActor returns a context carrying actor.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// SetAuthCookie stores the identity token in an HttpOnly cookie.
func SetAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   3600, // identity tokens expire after an hour
	})
}

// ClearAuthCookie removes the identity cookie.
func ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
