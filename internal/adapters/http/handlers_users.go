package web

import (
	"mime"
	"net/http"
	"strconv"

	"nightslip/internal/application/orchestrators"
	"nightslip/internal/application/projections"
)

// handleListUsers handles GET /api/users
// Optional query parameters: q (search), limit, offset.
func handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	q := r.URL.Query()
	query := projections.ListMembersQuery{Search: q.Get("q")}
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	query.Offset, _ = strconv.Atoi(q.Get("offset"))

	members, err := projections.QueryListMembers(r.Context(), query, stores.MemberStore)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// handleImportUsers handles POST /api/users
// PRE: body is {"users": [...]} JSON or headerless Name,RegNo,Email CSV (Content-Type: text/csv)
// POST: Members are merged by email; ?dry_run=true reports without writing
func handleImportUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var rows []orchestrators.ImportMemberRow
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		parsed, err := orchestrators.ParseMembersCSV(http.MaxBytesReader(w, r.Body, 5<<20))
		if err != nil {
			writeCommandError(w, err)
			return
		}
		rows = parsed
	} else {
		var body struct {
			Users []orchestrators.ImportMemberRow `json:"users"`
		}
		if err := strictDecode(r, &body); err != nil || body.Users == nil {
			writeError(w, http.StatusBadRequest, "Expected users array")
			return
		}
		rows = body.Users
	}

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	result, err := orchestrators.ExecuteImportMembers(r.Context(), orchestrators.ImportMembersInput{
		ActorEmail: actor.Email,
		Rows:       rows,
		DryRun:     dryRun,
	}, orchestrators.ImportMembersDeps{
		Policy:      services.Policy,
		MemberStore: stores.MemberStore,
		Mirror:      mirrorTrigger(),
		AuditStore:  stores.AuditStore,
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		orchestrators.ImportMembersResult
	}{true, result})
}

// handleUpdateUser handles PATCH /api/users/{id}
func handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body fieldUpdate
	if err := strictDecode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	m, err := orchestrators.ExecuteUpdateMember(r.Context(), orchestrators.UpdateMemberInput{
		ActorEmail: actor.Email,
		MemberID:   r.PathValue("id"),
		Field:      body.Field,
		Value:      body.Value,
	}, memberDeps())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projections.MemberViewOf(m))
}

// handleDeleteUser handles DELETE /api/users/{id}
func handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteDeleteMember(r.Context(), orchestrators.DeleteMemberInput{
		ActorEmail: actor.Email,
		MemberID:   r.PathValue("id"),
	}, memberDeps())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func memberDeps() orchestrators.MemberDeps {
	return orchestrators.MemberDeps{
		Policy:      services.Policy,
		MemberStore: stores.MemberStore,
		Mirror:      mirrorTrigger(),
		AuditStore:  stores.AuditStore,
	}
}
