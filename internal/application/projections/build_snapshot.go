package projections

import (
	"context"

	"nightslip/internal/adapters/storage/member"
	"nightslip/internal/domain/mirror"
)

// BuildSnapshotDeps holds dependencies for BuildSnapshot.
type BuildSnapshotDeps struct {
	MemberStore     MemberStore
	DateStore       DateStore
	AttendanceStore AttendanceStore
}

// QueryBuildSnapshot reads the full dataset pushed to the spreadsheet.
// POST: Dates newest first, users by name, every stored record
func QueryBuildSnapshot(ctx context.Context, deps BuildSnapshotDeps) (mirror.Snapshot, error) {
	dates, err := deps.DateStore.List(ctx)
	if err != nil {
		return mirror.Snapshot{}, err
	}
	members, err := deps.MemberStore.List(ctx, member.ListFilter{})
	if err != nil {
		return mirror.Snapshot{}, err
	}
	records, err := deps.AttendanceStore.List(ctx)
	if err != nil {
		return mirror.Snapshot{}, err
	}

	snap := mirror.Snapshot{
		Dates:      make([]mirror.DateRow, 0, len(dates)),
		Users:      make([]mirror.UserRow, 0, len(members)),
		Attendance: make([]mirror.AttendanceRow, 0, len(records)),
	}
	for _, d := range dates {
		snap.Dates = append(snap.Dates, mirror.DateRow{ID: d.ID, DateString: d.DateString})
	}
	for _, m := range members {
		snap.Users = append(snap.Users, mirror.UserRow{ID: m.ID, Name: m.Name, RegNo: m.RegNo, Email: m.Email})
	}
	for _, r := range records {
		snap.Attendance = append(snap.Attendance, mirror.AttendanceRow{
			ID:          r.Key(),
			UserID:      r.MemberID,
			DateID:      r.DateID,
			Coming:      r.Intent,
			Applied:     r.Applied,
			Attendance1: r.Presence1,
			Attendance2: r.Presence2,
			IsLocked:    boolInt(r.Locked),
		})
	}
	return snap, nil
}

// SnapshotFunc binds deps so the mirror dispatcher can call it without knowing the stores.
func SnapshotFunc(deps BuildSnapshotDeps) func(context.Context) (mirror.Snapshot, error) {
	return func(ctx context.Context) (mirror.Snapshot, error) {
		return QueryBuildSnapshot(ctx, deps)
	}
}
