package trackeddate

import (
	"errors"
	"strings"
	"time"
)

// Layout is the wire format of a tracked date.
const Layout = "2006-01-02"

// Domain errors
var (
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")
	ErrExists      = errors.New("date already exists")
)

// TrackedDate is a calendar date under attendance tracking.
type TrackedDate struct {
	ID         string
	DateString string // YYYY-MM-DD
}

// New builds a tracked date with a trimmed date string.
func New(id, dateString string) TrackedDate {
	return TrackedDate{ID: id, DateString: strings.TrimSpace(dateString)}
}

// Validate checks if the TrackedDate has valid data.
// PRE: TrackedDate struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (d *TrackedDate) Validate() error {
	if d.ID == "" {
		return errors.New("date id cannot be empty")
	}
	if _, err := time.Parse(Layout, d.DateString); err != nil {
		return ErrInvalidDate
	}
	return nil
}
