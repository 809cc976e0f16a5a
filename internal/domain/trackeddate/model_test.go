package trackeddate_test

import (
	"errors"
	"testing"

	"nightslip/internal/domain/trackeddate"
)

func TestTrackedDateValidation(t *testing.T) {
	tests := []struct {
		name    string
		date    trackeddate.TrackedDate
		wantErr error
	}{
		{"valid", trackeddate.New("d1", "2026-10-19"), nil},
		{"trimmed", trackeddate.New("d1", " 2026-10-19 "), nil},
		{"slashes", trackeddate.New("d1", "19/10/2026"), trackeddate.ErrInvalidDate},
		{"impossible day", trackeddate.New("d1", "2026-02-30"), trackeddate.ErrInvalidDate},
		{"empty", trackeddate.New("d1", ""), trackeddate.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.date.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTrackedDateValidation_EmptyID(t *testing.T) {
	d := trackeddate.New("", "2026-10-19")
	if err := d.Validate(); err == nil {
		t.Error("expected error for empty id")
	}
}
