package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brewcrafthq/brewery_backend/utils"
)

// Error kinds returned to API consumers. Every failure carries a
// machine-readable kind plus a human-readable reason.
const (
	KindConflict          = "CONFLICT"
	KindInvalidTransition = "INVALID_TRANSITION"
	KindIncompatibleBatch = "INCOMPATIBLE_BATCH_STATE"
	KindLockTimeout       = "LOCK_TIMEOUT"
	KindNotFound          = "NOT_FOUND"
	KindValidation        = "VALIDATION"
	KindDuplicate         = "DUPLICATE_REQUEST"
)

// ErrLockTimeout means a tank could not be serialized within the retry
// budget. Transient: callers should retry with backoff.
var ErrLockTimeout = errors.New("resource busy, retry")

// ErrDuplicateRequest means an idempotency key was already consumed but its
// cached result has expired; the original request did commit.
var ErrDuplicateRequest = errors.New("duplicate request: idempotency key already used")

// TankConflict describes one destination whose window overlaps existing
// bookings.
type TankConflict struct {
	TankId        int       `json:"tank_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	AssignmentIds []int     `json:"assignment_ids"`
}

// ConflictError carries every blocking booking, not just the first, so the
// caller can report all of them at once.
type ConflictError struct {
	Conflicts []TankConflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("tank %d blocked by assignments %v", c.TankId, c.AssignmentIds))
	}
	return "tank window conflict: " + strings.Join(parts, "; ")
}

// InvalidTransitionError reports a lifecycle guard violation, naming the
// expected and actual state.
type InvalidTransitionError struct {
	Entity   string
	Expected string
	Actual   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: expected %s, got %s", e.Entity, e.Expected, e.Actual)
}

// NewAssignmentNotPlanned is the guard failure for starting an assignment
// that is not in PLANNED state.
func NewAssignmentNotPlanned(actual string) *InvalidTransitionError {
	return &InvalidTransitionError{Entity: "assignment", Expected: "PLANNED", Actual: actual}
}

// IncompatibleBatchStateError means split/blend preconditions were unmet.
type IncompatibleBatchStateError struct {
	BatchIds []int
	Reason   string
}

func (e *IncompatibleBatchStateError) Error() string {
	return fmt.Sprintf("incompatible batch state for batches %v: %s", e.BatchIds, e.Reason)
}

// ValidationError reports a malformed request rejected before any lock is
// acquired.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func newValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Kind maps an error to its machine-readable kind.
func Kind(err error) string {
	var conflict *ConflictError
	var transition *InvalidTransitionError
	var incompatible *IncompatibleBatchStateError
	var validation *ValidationError
	switch {
	case errors.As(err, &conflict):
		return KindConflict
	case errors.As(err, &transition):
		return KindInvalidTransition
	case errors.As(err, &incompatible):
		return KindIncompatibleBatch
	case errors.As(err, &validation):
		return KindValidation
	case errors.Is(err, utils.ErrorInvalidInput):
		return KindValidation
	case errors.Is(err, utils.ErrorRecordNotFound):
		return KindNotFound
	case errors.Is(err, ErrLockTimeout):
		return KindLockTimeout
	case errors.Is(err, ErrDuplicateRequest):
		return KindDuplicate
	default:
		return ""
	}
}
