package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"nightslip/internal/domain/audit"
	"nightslip/internal/domain/authz"
	"nightslip/internal/domain/mirror"
	"nightslip/internal/domain/trackeddate"
)

// DateStore is the tracked date persistence used by the date commands.
type DateStore interface {
	GetByDateString(ctx context.Context, dateString string) (trackeddate.TrackedDate, error)
	Save(ctx context.Context, d trackeddate.TrackedDate) error
	Delete(ctx context.Context, id string) (int64, error)
}

// CreateDateInput carries a new tracked date.
type CreateDateInput struct {
	ActorEmail string
	DateString string
}

// DateDeps holds dependencies for the date commands.
type DateDeps struct {
	Policy     authz.Policy
	Dates      DateStore
	Mirror     MirrorTrigger
	AuditStore AuditRecorder
	GenerateID func() string // defaults to uuid.NewString
}

// ExecuteCreateDate adds a tracked date.
// PRE: ActorEmail is an administrator
// POST: A date with DateString exists exactly once
func ExecuteCreateDate(ctx context.Context, input CreateDateInput, deps DateDeps) (trackeddate.TrackedDate, error) {
	if err := requireAdmin(deps.Policy, input.ActorEmail, "create date"); err != nil {
		return trackeddate.TrackedDate{}, err
	}

	genID := deps.GenerateID
	if genID == nil {
		genID = uuid.NewString
	}
	d := trackeddate.New(genID(), input.DateString)
	if err := d.Validate(); err != nil {
		return trackeddate.TrackedDate{}, err
	}

	switch _, err := deps.Dates.GetByDateString(ctx, d.DateString); {
	case err == nil:
		return trackeddate.TrackedDate{}, fmt.Errorf("%s: %w", d.DateString, ErrDateExists)
	case !errors.Is(err, sql.ErrNoRows):
		return trackeddate.TrackedDate{}, storeErr("check date", err)
	}

	if err := deps.Dates.Save(ctx, d); err != nil {
		if errors.Is(err, ErrDateExists) {
			return trackeddate.TrackedDate{}, err
		}
		return trackeddate.TrackedDate{}, storeErr("save date", err)
	}

	slog.Info("date_created", "actor", input.ActorEmail, "date_id", d.ID, "date", d.DateString)
	recordAudit(ctx, deps.AuditStore,
		audit.NewEvent(input.ActorEmail, audit.CategoryDate, audit.ActionCreate).
			WithResource("tracked_date", d.ID).
			WithDescription(d.DateString))
	triggerMirror(deps.Mirror, mirror.TriggerDate)
	return d, nil
}

// DeleteDateInput identifies the date to delete.
type DeleteDateInput struct {
	ActorEmail string
	DateID     string
}

// ExecuteDeleteDate removes a date and every attendance record for it.
// PRE: ActorEmail is an administrator
// POST: The date is gone and no stored record references it
// INVARIANT: Records of other dates are untouched
func ExecuteDeleteDate(ctx context.Context, input DeleteDateInput, deps DateDeps) error {
	if err := requireAdmin(deps.Policy, input.ActorEmail, "delete date"); err != nil {
		return err
	}

	removed, err := deps.Dates.Delete(ctx, input.DateID)
	if err != nil {
		return lookupErr("date", input.DateID, err)
	}

	slog.Info("date_deleted", "actor", input.ActorEmail, "date_id", input.DateID, "records", removed)
	recordAudit(ctx, deps.AuditStore,
		audit.NewEvent(input.ActorEmail, audit.CategoryDate, audit.ActionDelete).
			WithResource("tracked_date", input.DateID).
			WithDescription(fmt.Sprintf("removed %d records", removed)))
	triggerMirror(deps.Mirror, mirror.TriggerDate)
	return nil
}
