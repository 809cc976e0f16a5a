package projections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nightslip/internal/adapters/storage/member"
	"nightslip/internal/domain/attendance"
)

// ErrDateNotFound is returned when the requested date does not exist.
var ErrDateNotFound = errors.New("date not found")

// GetDateEntriesQuery identifies the date to read.
type GetDateEntriesQuery struct {
	DateID string
}

// Entry is one member's row on a date, in the sign-up sheet's wire vocabulary.
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RegNo       string `json:"reg_no"`
	Email       string `json:"email"`
	Coming      string `json:"coming"`
	Applied     string `json:"applied"`
	Attendance1 string `json:"attendance_1"`
	Attendance2 string `json:"attendance_2"`
	IsLocked    int    `json:"is_locked"`
}

// GetDateEntriesDeps holds dependencies for GetDateEntries.
type GetDateEntriesDeps struct {
	MemberStore     MemberStore
	DateStore       DateStore
	AttendanceStore AttendanceStore
}

// QueryGetDateEntries lists every member with their materialized record for a date.
// PRE: DateID names an existing date
// POST: One entry per member, ordered by name; members without a stored record carry defaults
func QueryGetDateEntries(ctx context.Context, query GetDateEntriesQuery, deps GetDateEntriesDeps) ([]Entry, error) {
	if _, err := deps.DateStore.GetByID(ctx, query.DateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", query.DateID, ErrDateNotFound)
		}
		return nil, err
	}

	members, err := deps.MemberStore.List(ctx, member.ListFilter{})
	if err != nil {
		return nil, err
	}
	stored, err := deps.AttendanceStore.ListByDateID(ctx, query.DateID)
	if err != nil {
		return nil, err
	}

	byMember := make(map[string]*attendance.Record, len(stored))
	for i := range stored {
		byMember[stored[i].MemberID] = &stored[i]
	}

	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		r := attendance.Materialize(byMember[m.ID], m.ID, query.DateID)
		entries = append(entries, Entry{
			ID:          m.ID,
			Name:        m.Name,
			RegNo:       m.RegNo,
			Email:       m.Email,
			Coming:      r.Intent,
			Applied:     r.Applied,
			Attendance1: r.Presence1,
			Attendance2: r.Presence2,
			IsLocked:    boolInt(r.Locked),
		})
	}
	return entries, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
