package orchestrators

import (
	"database/sql"
	"errors"
	"fmt"

	"nightslip/internal/domain/trackeddate"
)

// Outcome errors shared by the commands. Classify with errors.Is.
var (
	// ErrAccessDenied means the actor may not touch the requested field or target.
	ErrAccessDenied = errors.New("access denied")
	// ErrLocked means the member has already used their single self-edit.
	ErrLocked = errors.New("record is locked")
	// ErrNotFound means a referenced member or date does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstream means the document store or the spreadsheet call failed.
	ErrUpstream = errors.New("upstream failure")
	// ErrInvalid means the supplied values failed domain validation.
	ErrInvalid = errors.New("invalid input")
	// ErrDateExists means a tracked date with the same date string already exists.
	ErrDateExists = trackeddate.ErrExists
)

// lookupErr maps a store lookup failure to ErrNotFound or ErrUpstream.
func lookupErr(what, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("%w: load %s %s: %w", ErrUpstream, what, id, err)
}

// storeErr wraps a failed write as ErrUpstream.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
