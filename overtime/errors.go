/*
errors.go - Centralized error taxonomy for the overtime engine

PURPOSE:
  All error kinds the public boundary can return, in one place. Errors
  are tagged values matched with errors.Is; nothing is thrown across the
  boundary, and raw storage errors never leak; they are wrapped into an
  OperationError at the operation edge.

ERROR CATEGORIES:
  1. Authorization / state-machine violations (detected before any write)
  2. Input validation (reason, date, hours, balance)
  3. Storage faults (wrapped, logged, generic tag)

USAGE:
  if errors.Is(err, overtime.ErrInvalidStatus) { ... }

SEE ALSO:
  - machine.go, correction.go, bulk.go: producers
  - api/handlers.go: maps tags to HTTP statuses
*/
package overtime

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnauthorized is returned when the caller's identity/roles do not
	// permit the attempted transition.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when the request id does not resolve, or
	// vanished between lookup and conditional write.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStatus is returned when the transition is not an edge of
	// the state machine from the request's current status.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrReasonRequired is returned when a rejection or correction lacks
	// a non-empty reason.
	ErrReasonRequired = errors.New("reason required")

	// ErrInvalidDate is returned for malformed or non-future scheduled
	// dates.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidHours is returned when hours are zero or not a multiple
	// of 0.5.
	ErrInvalidHours = errors.New("invalid hours")

	// ErrCannotCancel is returned when a requester tries to withdraw a
	// request that already left the pending stages.
	ErrCannotCancel = errors.New("cannot cancel")

	// ErrCannotCorrectAccounted: accounted requests are immutable via the
	// correction path, for every caller including admins.
	ErrCannotCorrectAccounted = errors.New("cannot correct accounted")

	// ErrExceedsBalance is returned when a payout withdrawal asks for
	// more hours than the submitter has accrued.
	ErrExceedsBalance = errors.New("exceeds_balance")

	// ErrNoBalance is returned when a payout withdrawal is filed against
	// an empty or negative balance.
	ErrNoBalance = errors.New("no_balance")

	// ErrDuplicateInternalID surfaces an insert-time uniqueness violation
	// on (kind, internal id).
	ErrDuplicateInternalID = errors.New("duplicate config")

	// ErrNoEligibleRequests is returned by bulk operations when zero
	// items qualify. Partial success is NOT an error.
	ErrNoEligibleRequests = errors.New("no eligible requests")

	// ErrConcurrentModification is returned when the conditional write
	// found the status changed since it was read.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// OPERATION ERROR - generic wrapper for unexpected storage faults
// =============================================================================

// OperationError wraps an unexpected storage fault. The underlying error
// is kept for logs; callers only see the operation tag.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s server action error", e.Op)
}

func (e *OperationError) Unwrap() error { return e.Err }

// opErr wraps err unless it is already one of the tagged client errors.
func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}

// WrapOp tags an unexpected storage fault with its operation name. Tagged
// client errors and ErrNotFound pass through unchanged. Services and
// handlers outside this package use it so raw store errors never reach
// the public boundary.
func WrapOp(op string, err error) error { return opErr(op, err) }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to caller input or state,
// as opposed to a storage fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrCannotCancel) ||
		errors.Is(err, ErrCannotCorrectAccounted) ||
		errors.Is(err, ErrExceedsBalance) ||
		errors.Is(err, ErrNoBalance) ||
		errors.Is(err, ErrDuplicateInternalID) ||
		errors.Is(err, ErrNoEligibleRequests) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsNotFound reports whether the error indicates a missing request.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
