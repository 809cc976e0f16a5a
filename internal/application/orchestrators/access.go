package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"nightslip/internal/domain/audit"
	"nightslip/internal/domain/authz"
)

// MirrorTrigger schedules a best-effort spreadsheet push. Implementations must not block.
type MirrorTrigger interface {
	Trigger(trigger string)
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Save(ctx context.Context, event audit.Event) error
}

// requireAdmin rejects non-administrators.
// POST: Returns nil only when policy names actorEmail as an administrator
func requireAdmin(policy authz.Policy, actorEmail, action string) error {
	if policy != nil && policy.IsAdmin(actorEmail) {
		return nil
	}
	slog.Warn("auth_denied", "actor", actorEmail, "action", action)
	return fmt.Errorf("%s: %w", action, ErrAccessDenied)
}

// triggerMirror is a nil-safe Trigger.
func triggerMirror(m MirrorTrigger, trigger string) {
	if m != nil {
		m.Trigger(trigger)
	}
}

// recordAudit saves an audit event; failures are logged and otherwise ignored.
func recordAudit(ctx context.Context, store AuditRecorder, event audit.Event) {
	if store == nil {
		return
	}
	if err := store.Save(ctx, event); err != nil {
		slog.Error("audit_save_failed", "category", event.Category, "action", event.Action, "error", err)
	}
}
