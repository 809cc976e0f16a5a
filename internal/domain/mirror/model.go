package mirror

import (
	"errors"
	"time"
)

// Status constants for a mirror run.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Trigger names what caused a run.
const (
	TriggerAttendance = "attendance"
	TriggerDate       = "date"
	TriggerReset      = "reset"
	TriggerMembers    = "members"
	TriggerManual     = "manual"
)

// Snapshot is the full dataset pushed to the spreadsheet.
// JSON names match the spreadsheet script's expectations.
type Snapshot struct {
	Dates      []DateRow       `json:"dates"`
	Users      []UserRow       `json:"users"`
	Attendance []AttendanceRow `json:"attendance"`
}

// DateRow is one tracked date.
type DateRow struct {
	ID         string `json:"id"`
	DateString string `json:"date_string"`
}

// UserRow is one member.
type UserRow struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	RegNo string `json:"reg_no"`
	Email string `json:"email"`
}

// AttendanceRow is one stored attendance record.
type AttendanceRow struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	DateID      string `json:"date_id"`
	Coming      string `json:"coming"`
	Applied     string `json:"applied"`
	Attendance1 string `json:"attendance_1"`
	Attendance2 string `json:"attendance_2"`
	IsLocked    int    `json:"is_locked"`
}

// Run records one push of the snapshot. Runs are never retried; a failed run stays failed.
type Run struct {
	ID         string
	Trigger    string
	Status     string
	Dates      int
	Users      int
	Records    int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun starts a run.
// POST: Status is running, StartedAt is now
func NewRun(id, trigger string, now time.Time) Run {
	return Run{ID: id, Trigger: trigger, Status: StatusRunning, StartedAt: now}
}

// Validate checks that the Run has valid data.
// PRE: Run struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Run) Validate() error {
	if r.ID == "" {
		return errors.New("run id is required")
	}
	if r.Trigger == "" {
		return errors.New("trigger is required")
	}
	if r.StartedAt.IsZero() {
		return errors.New("started_at must be set")
	}
	return nil
}

// Counts records the size of the pushed snapshot.
func (r *Run) Counts(s Snapshot) {
	r.Dates = len(s.Dates)
	r.Users = len(s.Users)
	r.Records = len(s.Attendance)
}

// MarkDone marks the run as successfully pushed.
// POST: Status is done, Error cleared
func (r *Run) MarkDone(now time.Time) {
	r.Status = StatusDone
	r.Error = ""
	r.FinishedAt = now
}

// MarkFailed marks the run as failed with the cause.
// POST: Status is failed, Error set
func (r *Run) MarkFailed(err error, now time.Time) {
	r.Status = StatusFailed
	r.Error = err.Error()
	r.FinishedAt = now
}

// Duration returns how long the run took, or zero while running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
