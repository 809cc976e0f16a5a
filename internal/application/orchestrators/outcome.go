package orchestrators

import (
	"errors"

	"nightslip/internal/domain/attendance"
	"nightslip/internal/platform/metrics"
)

// outcomeOf names an error for logs and metric labels.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrAccessDenied):
		return metrics.OutcomeAccessDenied
	case errors.Is(err, ErrLocked):
		return metrics.OutcomeLocked
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, attendance.ErrUnknownField):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
