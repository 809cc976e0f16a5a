package web

import (
	"errors"
	"net/http"

	"nightslip/internal/application/orchestrators"
	"nightslip/internal/application/projections"
)

// handleListDates handles GET /api/dates
func handleListDates(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	dates, err := projections.QueryListDates(r.Context(), stores.DateStore)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

// handleCreateDate handles POST /api/dates
func handleCreateDate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body struct {
		DateString string `json:"date_string"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	d, err := orchestrators.ExecuteCreateDate(r.Context(), orchestrators.CreateDateInput{
		ActorEmail: actor.Email,
		DateString: body.DateString,
	}, dateDeps())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, projections.DateViewOf(d))
}

// handleDeleteDate handles DELETE /api/dates/{id}
func handleDeleteDate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteDeleteDate(r.Context(), orchestrators.DeleteDateInput{
		ActorEmail: actor.Email,
		DateID:     r.PathValue("id"),
	}, dateDeps())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func dateDeps() orchestrators.DateDeps {
	return orchestrators.DateDeps{
		Policy:     services.Policy,
		Dates:      stores.DateStore,
		Mirror:     mirrorTrigger(),
		AuditStore: stores.AuditStore,
	}
}

// handleDateEntries handles GET /api/dates/{dateId}/entries
func handleDateEntries(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	entries, err := projections.QueryGetDateEntries(r.Context(),
		projections.GetDateEntriesQuery{DateID: r.PathValue("dateId")},
		projections.GetDateEntriesDeps{
			MemberStore:     stores.MemberStore,
			DateStore:       stores.DateStore,
			AttendanceStore: stores.AttendanceStore,
		})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// fieldUpdate is the body of the attendance and member PATCH endpoints.
type fieldUpdate struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// handleApplyFieldUpdate handles PATCH /api/dates/{dateId}/users/{userId}
// PRE: body is {"field": ..., "value": ...}
// POST: Responds with the stored record's lock state, or the coordinator's refusal
func handleApplyFieldUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body fieldUpdate
	if err := strictDecode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	result, err := orchestrators.ExecuteApplyFieldUpdate(r.Context(), orchestrators.ApplyFieldUpdateInput{
		ActorEmail: actor.Email,
		MemberID:   r.PathValue("userId"),
		DateID:     r.PathValue("dateId"),
		Field:      body.Field,
		Value:      body.Value,
	}, orchestrators.ApplyFieldUpdateDeps{
		Policy:     services.Policy,
		Members:    stores.MemberStore,
		Dates:      stores.DateStore,
		Records:    stores.AttendanceStore,
		Mirror:     mirrorTrigger(),
		Receipts:   receiptNotifier(),
		AuditStore: stores.AuditStore,
	})
	if errors.Is(err, orchestrators.ErrAccessDenied) {
		writeError(w, http.StatusForbidden, msgAccessDenied)
		return
	}
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success  bool `json:"success"`
		IsLocked bool `json:"is_locked"`
	}{true, result.Record.Locked})
}

// handleResetDate handles POST /api/dates/{dateId}/reset
func handleResetDate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	removed, err := orchestrators.ExecuteResetDate(r.Context(), orchestrators.ResetDateInput{
		ActorEmail: actor.Email,
		DateID:     r.PathValue("dateId"),
	}, orchestrators.ResetDateDeps{
		Policy:     services.Policy,
		Dates:      stores.DateStore,
		Records:    stores.AttendanceStore,
		Mirror:     mirrorTrigger(),
		AuditStore: stores.AuditStore,
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool  `json:"success"`
		Removed int64 `json:"removed"`
	}{true, removed})
}
