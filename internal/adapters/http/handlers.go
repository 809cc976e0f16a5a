package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nightslip/internal/adapters/http/middleware"
	"nightslip/internal/application/orchestrators"
	"nightslip/internal/application/projections"
	"nightslip/internal/domain/attendance"
	"nightslip/internal/domain/member"
	"nightslip/internal/domain/trackeddate"
)

// Messages shown to members; the client displays them verbatim.
const (
	msgAccessDenied = "Access Denied: You can only edit your own row (Coming/Applied)."
	msgLocked       = "Submission Locked: You have already used your one chance to edit."
	msgForbidden    = "Forbidden"
	msgUnauthorized = "Unauthorized"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// successBody acknowledges a command without a payload.
type successBody struct {
	Success bool `json:"success"`
}

var okBody = successBody{Success: true}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// requireActor returns the verified caller or answers 401.
func requireActor(w http.ResponseWriter, r *http.Request) (middleware.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return middleware.Actor{}, false
	}
	return actor, true
}

// requireAdmin returns the caller when they are an administrator; otherwise answers 401 or 403.
// Used by admin views and by sync, which must not reveal mirror state to members.
func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Actor, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return middleware.Actor{}, false
	}
	if !services.Policy.IsAdmin(actor.Email) {
		slog.Warn("auth_denied", "path", r.URL.Path, "actor", actor.Email, "required", "admin")
		writeError(w, http.StatusForbidden, msgForbidden)
		return middleware.Actor{}, false
	}
	return actor, true
}

// writeCommandError maps an orchestrator or projection error to a response.
func writeCommandError(w http.ResponseWriter, err error) {
	var importErr *orchestrators.ImportMembersValidationError
	switch {
	case errors.Is(err, orchestrators.ErrLocked):
		writeError(w, http.StatusForbidden, msgLocked)
	case errors.Is(err, orchestrators.ErrAccessDenied):
		writeError(w, http.StatusForbidden, msgForbidden)
	case errors.Is(err, orchestrators.ErrNotFound), errors.Is(err, projections.ErrDateNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, attendance.ErrUnknownField),
		errors.Is(err, member.ErrUnknownField),
		errors.Is(err, orchestrators.ErrInvalid),
		errors.Is(err, orchestrators.ErrDateExists),
		errors.Is(err, trackeddate.ErrInvalidDate),
		errors.As(err, &importErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		internalError(w, err)
	}
}

// handleHealthz handles GET /healthz
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	if services.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := services.DB.PingContext(ctx); err != nil {
			slog.Error("healthz_failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
