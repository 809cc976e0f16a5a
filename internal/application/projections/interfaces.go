package projections

import (
	"context"

	"nightslip/internal/adapters/storage/audit"
	"nightslip/internal/adapters/storage/member"
	domainAttendance "nightslip/internal/domain/attendance"
	domainAudit "nightslip/internal/domain/audit"
	domainMember "nightslip/internal/domain/member"
	domainMirror "nightslip/internal/domain/mirror"
	domainDate "nightslip/internal/domain/trackeddate"
)

// MemberStore interface for member queries.
type MemberStore interface {
	List(ctx context.Context, filter member.ListFilter) ([]domainMember.Member, error)
}

// DateStore interface for tracked date queries.
type DateStore interface {
	GetByID(ctx context.Context, id string) (domainDate.TrackedDate, error)
	List(ctx context.Context) ([]domainDate.TrackedDate, error)
}

// AttendanceStore interface for stored record queries.
type AttendanceStore interface {
	ListByDateID(ctx context.Context, dateID string) ([]domainAttendance.Record, error)
	List(ctx context.Context) ([]domainAttendance.Record, error)
}

// MirrorRunStore interface for the mirror run log.
type MirrorRunStore interface {
	ListRecent(ctx context.Context, limit int) ([]domainMirror.Run, error)
}

// AuditStore interface for the audit trail.
type AuditStore interface {
	List(ctx context.Context, filter audit.Filter, limit int) ([]domainAudit.Event, error)
}
