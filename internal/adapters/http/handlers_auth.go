package web

import (
	"log/slog"
	"net/http"

	"nightslip/internal/adapters/http/middleware"
)

// userView is the signed-in user as reported to the client.
type userView struct {
	Email   string `json:"email"`
	UID     string `json:"uid"`
	IsAdmin bool   `json:"is_admin"`
}

func userViewOf(email, subject string) *userView {
	return &userView{Email: email, UID: subject, IsAdmin: services.Policy.IsAdmin(email)}
}

// handleLogin handles POST /api/auth/login
// PRE: body is {"token": "<identity token>"}
// POST: On a valid token the auth cookie is set and the user is returned
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token string `json:"token"`
	}
	if err := strictDecode(r, &input); err != nil || input.Token == "" {
		writeError(w, http.StatusBadRequest, "Token required")
		return
	}

	id, err := services.Verifier.Verify(r.Context(), input.Token)
	if err != nil {
		slog.Warn("login_rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	middleware.SetAuthCookie(w, input.Token)
	slog.Info("login", "email", id.Email)
	writeJSON(w, http.StatusOK, struct {
		Success bool      `json:"success"`
		User    *userView `json:"user"`
	}{true, userViewOf(id.Email, id.Subject)})
}

// handleMe handles GET /api/auth/me. Anonymous callers get {"user": null}.
func handleMe(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		User *userView `json:"user"`
	}{}
	if actor, ok := middleware.ActorFromContext(r.Context()); ok {
		resp.User = userViewOf(actor.Email, actor.Subject)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout handles POST /api/auth/logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearAuthCookie(w)
	writeJSON(w, http.StatusOK, okBody)
}
