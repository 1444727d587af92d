// Package apperror holds the error taxonomy shared by every library
// component. All of these are business-rule outcomes: callers surface them
// verbatim and never retry them.
package apperror

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrDuplicateInvitation = errors.New("a pending invitation already exists for this email")
	ErrEmailMismatch       = errors.New("invitation email does not match the accepting actor")
	ErrAlreadyProcessed    = errors.New("invitation has already been processed")
	ErrExpired             = errors.New("invitation has expired")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrRenewalLimit        = errors.New("renewal limit reached")
	ErrInvalidInput        = errors.New("invalid input")
	ErrAuditIncomplete     = errors.New("state changed but audit record is incomplete")
)

// AuditError reports a degraded success: the primary state transition was
// committed, but writing its audit row failed. Operations return it alongside
// a non-nil result.
type AuditError struct {
	Op  string
	Err error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrAuditIncomplete, e.Err)
}

func (e *AuditError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrAuditIncomplete) match any AuditError.
func (e *AuditError) Is(target error) bool {
	return target == ErrAuditIncomplete
}

// NewAuditError wraps err as a degraded-success error, or returns nil when err is nil.
func NewAuditError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AuditError{Op: op, Err: err}
}

// IsDegraded reports whether err only signals a missing audit row.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrAuditIncomplete)
}

// Invalid returns an ErrInvalidInput carrying a message for the caller.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
