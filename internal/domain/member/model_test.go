package member_test

import (
	"errors"
	"strings"
	"testing"

	"nightslip/internal/domain/member"
)

// TestMemberValidation tests validation of Member.
func TestMemberValidation(t *testing.T) {
	tests := []struct {
		name    string
		member  member.Member
		wantErr bool
	}{
		{
			name:    "valid member",
			member:  member.New("Jane Doe", "21BCE0001", "jane@example.com"),
			wantErr: false,
		},
		{
			name:    "valid member without reg no",
			member:  member.New("Jane Doe", "", "jane@example.com"),
			wantErr: false,
		},
		{
			name:    "empty name",
			member:  member.New("  ", "21BCE0001", "jane@example.com"),
			wantErr: true,
		},
		{
			name:    "name too long",
			member:  member.New(strings.Repeat("a", 101), "", "jane@example.com"),
			wantErr: true,
		},
		{
			name:    "invalid email",
			member:  member.New("Jane Doe", "", "invalid-email"),
			wantErr: true,
		},
		{
			name:    "empty id",
			member:  member.Member{Name: "Jane", Email: "jane@example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.member.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_NormalizesEmailIntoID(t *testing.T) {
	m := member.New(" Jane ", " 21BCE0001 ", "  Jane@Example.COM ")
	if m.ID != "jane@example.com" || m.Email != "jane@example.com" {
		t.Errorf("got id=%q email=%q", m.ID, m.Email)
	}
	if m.Name != "Jane" || m.RegNo != "21BCE0001" {
		t.Errorf("fields not trimmed: %+v", m)
	}
}

// TestOwns verifies ownership ignores case.
func TestOwns(t *testing.T) {
	m := member.New("Jane", "", "jane@example.com")
	if !m.Owns("JANE@example.com") {
		t.Error("expected case-insensitive match")
	}
	if m.Owns("john@example.com") {
		t.Error("different address must not match")
	}
	if m.Owns("") {
		t.Error("empty actor must not match")
	}
}

func TestSet(t *testing.T) {
	m := member.New("Jane", "1", "jane@example.com")
	if err := m.Set(member.FieldRegNo, "2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.RegNo != "2" {
		t.Errorf("RegNo = %q", m.RegNo)
	}
	if err := m.Set(member.FieldEmail, "New@Example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Email != "new@example.com" || m.ID != "jane@example.com" {
		t.Errorf("email update should not change id: %+v", m)
	}
	if err := m.Set("role", "admin"); !errors.Is(err, member.ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}
