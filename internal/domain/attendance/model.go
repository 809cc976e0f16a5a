package attendance

import (
	"errors"
	"strings"
)

// Intent values.
const (
	IntentComing    = "COMING"
	IntentNotComing = "NOT COMING"
)

// Applied values.
const (
	AppliedYes = "APPLIED"
	AppliedNo  = "NOT APPLIED"
)

// Presence values, used for both checkpoints.
const (
	PresencePresent = "PRESENT"
	PresenceAbsent  = "ABSENT"
)

// Field names a record update can target.
type Field string

const (
	FieldIntent    Field = "intent"
	FieldApplied   Field = "applied"
	FieldPresence1 Field = "presence1"
	FieldPresence2 Field = "presence2"
)

// fieldAliases maps the legacy wire names used by the spreadsheet-era client.
var fieldAliases = map[string]Field{
	"intent":       FieldIntent,
	"coming":       FieldIntent,
	"applied":      FieldApplied,
	"presence1":    FieldPresence1,
	"attendance_1": FieldPresence1,
	"presence2":    FieldPresence2,
	"attendance_2": FieldPresence2,
}

// Domain errors
var (
	ErrUnknownField = errors.New("unknown attendance field")
)

// ParseField resolves a field name, accepting legacy aliases.
// PRE: none
// POST: Returns the canonical Field or ErrUnknownField
func ParseField(name string) (Field, error) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", ErrUnknownField
	}
	return f, nil
}

// IsSelfService reports whether a member may set this field on their own record.
func (f Field) IsSelfService() bool {
	return f == FieldIntent || f == FieldApplied
}

// Record is one member's sign-up state for one tracked date.
type Record struct {
	MemberID  string
	DateID    string
	Intent    string
	Applied   string
	Presence1 string
	Presence2 string
	Locked    bool
}

// Key returns the composite document key for a member/date pair.
func Key(memberID, dateID string) string {
	return memberID + "_" + dateID
}

// Key returns the composite document key of the record.
func (r Record) Key() string {
	return Key(r.MemberID, r.DateID)
}

// Default returns the record every member has for a date before any write.
// POST: NOT COMING / NOT APPLIED / ABSENT / ABSENT / unlocked
func Default(memberID, dateID string) Record {
	return Record{
		MemberID:  memberID,
		DateID:    dateID,
		Intent:    IntentNotComing,
		Applied:   AppliedNo,
		Presence1: PresenceAbsent,
		Presence2: PresenceAbsent,
	}
}

// Materialize returns the stored record, or the default record when none is stored.
// PRE: memberID and dateID identify the pair being read
// POST: Result always carries memberID and dateID
// INVARIANT: stored is not mutated
func Materialize(stored *Record, memberID, dateID string) Record {
	if stored == nil {
		return Default(memberID, dateID)
	}
	r := *stored
	r.MemberID = memberID
	r.DateID = dateID
	return r
}

// Apply sets one field and propagates the dependent fields.
// Changing intent clears the application and both checkpoints. Changing applied
// marks both checkpoints PRESENT only for COMING+APPLIED, and consumes the
// member's single self-edit when the actor is not an administrator.
// Direct checkpoint toggles set only the named field.
// PRE: field came from ParseField
// POST: Returns the merged record; the receiver is not modified
// INVARIANT: Presence1 == Presence2 whenever field is intent or applied
func (r Record) Apply(field Field, value string, byAdmin bool) Record {
	next := r
	switch field {
	case FieldIntent:
		next.Intent = value
		next.Applied = AppliedNo
		next.Presence1 = PresenceAbsent
		next.Presence2 = PresenceAbsent
	case FieldApplied:
		next.Applied = value
		presence := PresenceAbsent
		if strings.EqualFold(next.Intent, IntentComing) && strings.EqualFold(next.Applied, AppliedYes) {
			presence = PresencePresent
		}
		next.Presence1 = presence
		next.Presence2 = presence
		if !byAdmin {
			next.Locked = true
		}
	case FieldPresence1:
		next.Presence1 = value
	case FieldPresence2:
		next.Presence2 = value
	}
	return next
}
