package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"nightslip/internal/domain/attendance"
	"nightslip/internal/domain/audit"
	"nightslip/internal/domain/authz"
	"nightslip/internal/domain/member"
	"nightslip/internal/domain/mirror"
	"nightslip/internal/domain/trackeddate"
	"nightslip/internal/platform/metrics"
)

// MemberReader loads members by ID.
type MemberReader interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// DateReader loads tracked dates by ID.
type DateReader interface {
	GetByID(ctx context.Context, id string) (trackeddate.TrackedDate, error)
}

// RecordStore reads and writes stored attendance records.
type RecordStore interface {
	Get(ctx context.Context, memberID, dateID string) (*attendance.Record, error)
	Save(ctx context.Context, r attendance.Record) error
}

// ReceiptNotifier tells a member their self-edit was used. Implementations must not block.
type ReceiptNotifier interface {
	Notify(m member.Member, d trackeddate.TrackedDate, r attendance.Record)
}

// ApplyFieldUpdateInput carries one requested field change.
type ApplyFieldUpdateInput struct {
	ActorEmail string
	MemberID   string
	DateID     string
	Field      string
	Value      string
}

// ApplyFieldUpdateResult is the record as persisted.
type ApplyFieldUpdateResult struct {
	Record       attendance.Record
	LockConsumed bool
}

// ApplyFieldUpdateDeps holds dependencies for ApplyFieldUpdate.
type ApplyFieldUpdateDeps struct {
	Policy     authz.Policy
	Members    MemberReader
	Dates      DateReader
	Records    RecordStore
	Mirror     MirrorTrigger   // optional
	Receipts   ReceiptNotifier // optional
	AuditStore AuditRecorder   // optional
}

// ExecuteApplyFieldUpdate is the single write path for attendance records.
// PRE: ActorEmail is the verified caller
// POST: On success the merged record is stored and a mirror push is scheduled;
//
//	on any error nothing was written.
//
// INVARIANT: A non-admin only ever changes intent or applied on their own unlocked record
func ExecuteApplyFieldUpdate(ctx context.Context, input ApplyFieldUpdateInput, deps ApplyFieldUpdateDeps) (ApplyFieldUpdateResult, error) {
	isAdmin := deps.Policy != nil && deps.Policy.IsAdmin(input.ActorEmail)
	actor := "member"
	if isAdmin {
		actor = "admin"
	}

	res, err := applyFieldUpdate(ctx, input, deps, isAdmin)
	outcome := outcomeOf(err)
	metrics.AttendanceUpdates.WithLabelValues(actor, outcome).Inc()
	slog.Info("attendance_event",
		"actor", input.ActorEmail,
		"admin", isAdmin,
		"member_id", input.MemberID,
		"date_id", input.DateID,
		"field", input.Field,
		"value", input.Value,
		"outcome", outcome,
		"locked", res.Record.Locked,
	)
	return res, err
}

func applyFieldUpdate(ctx context.Context, input ApplyFieldUpdateInput, deps ApplyFieldUpdateDeps, isAdmin bool) (ApplyFieldUpdateResult, error) {
	field, err := attendance.ParseField(input.Field)
	if err != nil {
		return ApplyFieldUpdateResult{}, err
	}

	target, err := deps.Members.GetByID(ctx, input.MemberID)
	if err != nil {
		return ApplyFieldUpdateResult{}, lookupErr("member", input.MemberID, err)
	}
	date, err := deps.Dates.GetByID(ctx, input.DateID)
	if err != nil {
		return ApplyFieldUpdateResult{}, lookupErr("date", input.DateID, err)
	}

	if !isAdmin {
		if !target.Owns(input.ActorEmail) {
			return ApplyFieldUpdateResult{}, fmt.Errorf("update another member's record: %w", ErrAccessDenied)
		}
		if !field.IsSelfService() {
			return ApplyFieldUpdateResult{}, fmt.Errorf("set %s: %w", field, ErrAccessDenied)
		}
	}

	stored, err := deps.Records.Get(ctx, target.ID, date.ID)
	if err != nil {
		return ApplyFieldUpdateResult{}, storeErr("load record", err)
	}
	current := attendance.Materialize(stored, target.ID, date.ID)
	if !isAdmin && current.Locked {
		return ApplyFieldUpdateResult{Record: current}, ErrLocked
	}

	next := current.Apply(field, input.Value, isAdmin)
	if err := deps.Records.Save(ctx, next); err != nil {
		return ApplyFieldUpdateResult{}, storeErr("save record", err)
	}

	lockConsumed := next.Locked && !current.Locked
	triggerMirror(deps.Mirror, mirror.TriggerAttendance)
	if lockConsumed && deps.Receipts != nil {
		deps.Receipts.Notify(target, date, next)
	}
	if isAdmin {
		recordAudit(ctx, deps.AuditStore,
			audit.NewEvent(input.ActorEmail, audit.CategoryAttendance, audit.ActionUpdate).
				WithResource("attendance", next.Key()).
				WithDescription(fmt.Sprintf("%s=%s", field, input.Value)))
	}

	return ApplyFieldUpdateResult{Record: next, LockConsumed: lockConsumed}, nil
}
