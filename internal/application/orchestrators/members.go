package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"nightslip/internal/domain/audit"
	"nightslip/internal/domain/authz"
	domain "nightslip/internal/domain/member"
	"nightslip/internal/domain/mirror"
)

// MemberWriter is the member persistence used by the admin edit commands.
type MemberWriter interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	Save(ctx context.Context, m domain.Member) error
	Delete(ctx context.Context, id string) error
}

// MemberDeps holds dependencies for UpdateMember and DeleteMember.
type MemberDeps struct {
	Policy      authz.Policy
	MemberStore MemberWriter
	Mirror      MirrorTrigger
	AuditStore  AuditRecorder
}

// UpdateMemberInput carries one admin field edit.
type UpdateMemberInput struct {
	ActorEmail string
	MemberID   string
	Field      string
	Value      string
}

// ExecuteUpdateMember overwrites one member field. Changing the email keeps the member ID.
// PRE: ActorEmail is an administrator
// POST: The stored member holds Value in Field
func ExecuteUpdateMember(ctx context.Context, input UpdateMemberInput, deps MemberDeps) (domain.Member, error) {
	if err := requireAdmin(deps.Policy, input.ActorEmail, "update member"); err != nil {
		return domain.Member{}, err
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return domain.Member{}, lookupErr("member", input.MemberID, err)
	}
	if err := m.Set(input.Field, input.Value); err != nil {
		return domain.Member{}, fmt.Errorf("%s: %w", input.Field, err)
	}
	if err := m.Validate(); err != nil {
		return domain.Member{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return domain.Member{}, storeErr("save member", err)
	}

	slog.Info("member_updated", "actor", input.ActorEmail, "member_id", m.ID, "field", input.Field)
	recordAudit(ctx, deps.AuditStore,
		audit.NewEvent(input.ActorEmail, audit.CategoryMember, audit.ActionUpdate).
			WithResource("member", m.ID).
			WithDescription(input.Field))
	triggerMirror(deps.Mirror, mirror.TriggerMembers)
	return m, nil
}

// DeleteMemberInput identifies the member to remove.
type DeleteMemberInput struct {
	ActorEmail string
	MemberID   string
}

// ExecuteDeleteMember removes a member. Their stored attendance records are kept.
// PRE: ActorEmail is an administrator
// POST: The member no longer appears in listings or entries
func ExecuteDeleteMember(ctx context.Context, input DeleteMemberInput, deps MemberDeps) error {
	if err := requireAdmin(deps.Policy, input.ActorEmail, "delete member"); err != nil {
		return err
	}
	if _, err := deps.MemberStore.GetByID(ctx, input.MemberID); err != nil {
		return lookupErr("member", input.MemberID, err)
	}
	if err := deps.MemberStore.Delete(ctx, input.MemberID); err != nil {
		return storeErr("delete member", err)
	}

	slog.Info("member_deleted", "actor", input.ActorEmail, "member_id", input.MemberID)
	recordAudit(ctx, deps.AuditStore,
		audit.NewEvent(input.ActorEmail, audit.CategoryMember, audit.ActionDelete).
			WithResource("member", input.MemberID))
	triggerMirror(deps.Mirror, mirror.TriggerMembers)
	return nil
}
