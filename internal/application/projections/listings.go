package projections

import (
	"context"

	"nightslip/internal/adapters/storage/audit"
	"nightslip/internal/adapters/storage/member"
	domainAudit "nightslip/internal/domain/audit"
	domainMember "nightslip/internal/domain/member"
	domainMirror "nightslip/internal/domain/mirror"
	domainDate "nightslip/internal/domain/trackeddate"
)

// DateView is a tracked date as listed to clients.
type DateView struct {
	ID         string `json:"id"`
	DateString string `json:"date_string"`
}

// QueryListDates returns every tracked date, newest first.
func QueryListDates(ctx context.Context, store DateStore) ([]DateView, error) {
	dates, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DateView, 0, len(dates))
	for _, d := range dates {
		out = append(out, DateViewOf(d))
	}
	return out, nil
}

// DateViewOf converts a domain date for responses.
func DateViewOf(d domainDate.TrackedDate) DateView {
	return DateView{ID: d.ID, DateString: d.DateString}
}

// MemberView is a member as listed to clients.
type MemberView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	RegNo string `json:"reg_no"`
	Email string `json:"email"`
}

// MemberViewOf converts a domain member for responses.
func MemberViewOf(m domainMember.Member) MemberView {
	return MemberView{ID: m.ID, Name: m.Name, RegNo: m.RegNo, Email: m.Email}
}

// ListMembersQuery carries optional search and paging.
type ListMembersQuery struct {
	Search string
	Limit  int
	Offset int
}

// QueryListMembers returns members ordered by name ascending.
func QueryListMembers(ctx context.Context, query ListMembersQuery, store MemberStore) ([]MemberView, error) {
	members, err := store.List(ctx, member.ListFilter{Search: query.Search, Limit: query.Limit, Offset: query.Offset})
	if err != nil {
		return nil, err
	}
	out := make([]MemberView, 0, len(members))
	for _, m := range members {
		out = append(out, MemberViewOf(m))
	}
	return out, nil
}

// MirrorRunView is one entry of the mirror run log.
type MirrorRunView struct {
	ID         string `json:"id"`
	Trigger    string `json:"trigger"`
	Status     string `json:"status"`
	Dates      int    `json:"dates"`
	Users      int    `json:"users"`
	Records    int    `json:"records"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`
}

// QueryMirrorRuns returns the most recent mirror runs.
// PRE: limit > 0
func QueryMirrorRuns(ctx context.Context, limit int, store MirrorRunStore) ([]MirrorRunView, error) {
	runs, err := store.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]MirrorRunView, 0, len(runs))
	for _, r := range runs {
		out = append(out, MirrorRunViewOf(r))
	}
	return out, nil
}

// MirrorRunViewOf converts a run for responses.
func MirrorRunViewOf(r domainMirror.Run) MirrorRunView {
	return MirrorRunView{
		ID:         r.ID,
		Trigger:    r.Trigger,
		Status:     r.Status,
		Dates:      r.Dates,
		Users:      r.Users,
		Records:    r.Records,
		Error:      r.Error,
		StartedAt:  r.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		DurationMs: r.Duration().Milliseconds(),
	}
}

// AuditQuery filters the audit trail.
type AuditQuery struct {
	Category string
	Limit    int
}

// QueryAuditLog returns recent audit events, newest first. Limit defaults to 100.
func QueryAuditLog(ctx context.Context, query AuditQuery, store AuditStore) ([]domainAudit.Event, error) {
	var filter audit.Filter
	if query.Category != "" {
		c := domainAudit.Category(query.Category)
		filter.Category = &c
	}
	limit := query.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := store.List(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domainAudit.Event{}
	}
	return events, nil
}
