package web

import (
	"errors"
	"net/http"
	"strconv"

	"nightslip/internal/application/orchestrators"
	"nightslip/internal/application/projections"
)

// handleSync handles POST /api/sync
// POST: The snapshot was pushed; a failed push answers 502 with the recorded run
func handleSync(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	if services.Mirror == nil {
		writeError(w, http.StatusServiceUnavailable, "Mirroring is not configured")
		return
	}

	run, err := orchestrators.ExecuteSyncNow(r.Context(), orchestrators.SyncNowInput{ActorEmail: actor.Email},
		orchestrators.SyncNowDeps{
			Policy:     services.Policy,
			Dispatcher: services.Mirror,
			AuditStore: stores.AuditStore,
		})
	switch {
	case errors.Is(err, orchestrators.ErrAccessDenied):
		writeCommandError(w, err)
	case err != nil:
		writeJSON(w, http.StatusBadGateway, struct {
			Error string                    `json:"error"`
			Run   projections.MirrorRunView `json:"run"`
		}{"Sync failed", projections.MirrorRunViewOf(run)})
	default:
		writeJSON(w, http.StatusOK, struct {
			Success bool                      `json:"success"`
			Run     projections.MirrorRunView `json:"run"`
		}{true, projections.MirrorRunViewOf(run)})
	}
}

// handleMirrorRuns handles GET /api/admin/mirror-runs
func handleMirrorRuns(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}
	runs, err := projections.QueryMirrorRuns(r.Context(), limit, stores.MirrorRunStore)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleAuditTrail handles GET /api/admin/audit
// Optional query parameters: category, limit.
func handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	query := projections.AuditQuery{Category: r.URL.Query().Get("category")}
	query.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := projections.QueryAuditLog(r.Context(), query, stores.AuditStore)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
