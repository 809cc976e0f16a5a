package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"nightslip/internal/domain/audit"
	"nightslip/internal/domain/authz"
	"nightslip/internal/domain/mirror"
)

// RecordResetter batch-deletes the stored records of a date.
type RecordResetter interface {
	DeleteByDateID(ctx context.Context, dateID string) (int64, error)
}

// ResetDateInput identifies the date to reset.
type ResetDateInput struct {
	ActorEmail string
	DateID     string
}

// ResetDateDeps holds dependencies for ResetDate.
type ResetDateDeps struct {
	Policy     authz.Policy
	Dates      DateReader
	Records    RecordResetter
	Mirror     MirrorTrigger
	AuditStore AuditRecorder
}

// ExecuteResetDate reverts every member's record for a date to the defaults.
// PRE: ActorEmail is an administrator
// POST: No stored record references DateID; returns how many were removed
// INVARIANT: Records of other dates are untouched
func ExecuteResetDate(ctx context.Context, input ResetDateInput, deps ResetDateDeps) (int64, error) {
	if err := requireAdmin(deps.Policy, input.ActorEmail, "reset date"); err != nil {
		return 0, err
	}
	if _, err := deps.Dates.GetByID(ctx, input.DateID); err != nil {
		return 0, lookupErr("date", input.DateID, err)
	}

	removed, err := deps.Records.DeleteByDateID(ctx, input.DateID)
	if err != nil {
		return 0, storeErr("reset date", err)
	}

	slog.Info("date_reset", "actor", input.ActorEmail, "date_id", input.DateID, "records", removed)
	recordAudit(ctx, deps.AuditStore,
		audit.NewEvent(input.ActorEmail, audit.CategoryDate, audit.ActionReset).
			WithResource("tracked_date", input.DateID).
			WithDescription(fmt.Sprintf("removed %d records", removed)))
	triggerMirror(deps.Mirror, mirror.TriggerReset)
	return removed, nil
}
