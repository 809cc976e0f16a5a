package member

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength  = 100
	MaxRegNoLength = 32
)

// Editable field names for admin updates.
const (
	FieldName  = "name"
	FieldRegNo = "reg_no"
	FieldEmail = "email"
)

// Domain errors
var (
	ErrUnknownField = errors.New("unknown member field")
)

// Member is an organization member. ID is the normalized email.
type Member struct {
	ID    string
	Name  string
	RegNo string
	Email string
}

// NormalizeEmail trims and lower-cases an address so it can serve as the member key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// New builds a member keyed by its normalized email.
// POST: ID == Email == NormalizeEmail(email)
func New(name, regNo, email string) Member {
	e := NormalizeEmail(email)
	return Member{
		ID:    e,
		Name:  strings.TrimSpace(name),
		RegNo: strings.TrimSpace(regNo),
		Email: e,
	}
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', Name must not be empty
func (m *Member) Validate() error {
	if m.ID == "" {
		return errors.New("member id cannot be empty")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("member name cannot be empty")
	}
	if len(m.Name) > MaxNameLength {
		return errors.New("member name cannot exceed 100 characters")
	}
	if len(m.RegNo) > MaxRegNoLength {
		return errors.New("registration number cannot exceed 32 characters")
	}
	if !strings.Contains(m.Email, "@") {
		return errors.New("member email must be valid")
	}
	return nil
}

// Owns reports whether actorEmail is this member, ignoring case.
func (m *Member) Owns(actorEmail string) bool {
	return actorEmail != "" && strings.EqualFold(strings.TrimSpace(actorEmail), m.Email)
}

// Set overwrites one editable field. The ID is never changed.
// PRE: field is one of FieldName, FieldRegNo, FieldEmail
// POST: The named field holds value; ErrUnknownField otherwise
func (m *Member) Set(field, value string) error {
	switch field {
	case FieldName:
		m.Name = strings.TrimSpace(value)
	case FieldRegNo:
		m.RegNo = strings.TrimSpace(value)
	case FieldEmail:
		m.Email = NormalizeEmail(value)
	default:
		return ErrUnknownField
	}
	return nil
}
