package audit_test

import (
	"testing"

	"nightslip/internal/domain/audit"
)

func TestNewEvent(t *testing.T) {
	e := audit.NewEvent("chair@club.org", audit.CategoryDate, audit.ActionReset).
		WithResource("tracked_date", "d1").
		WithDescription("reset 12 records")

	if e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("id and timestamp must be set: %+v", e)
	}
	if e.ResourceType != "tracked_date" || e.ResourceID != "d1" || e.Description != "reset 12 records" {
		t.Errorf("unexpected event: %+v", e)
	}

	other := audit.NewEvent("chair@club.org", audit.CategoryDate, audit.ActionReset)
	if other.ID == e.ID {
		t.Error("event ids must be unique")
	}
}
