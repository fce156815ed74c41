// Package apperrors defines the error taxonomy shared by the lifecycle
// coordinator, the record store, and the HTTP layer. Gateway failures keep
// their own type in the alpaca package because they carry upstream wire data.
package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marketbridge/brokergate/internal/identity"
)

// ErrNotFound indicates no local record exists for the requested account.
var ErrNotFound = errors.New("record not found")

// ValidationError carries ordered field-level violations detected before any
// external call is made.
type ValidationError struct {
	Violations []identity.Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for _, violation := range e.Violations {
		fields = append(fields, violation.Field)
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

// AuthorizationError indicates the caller lacks permission for the operation.
type AuthorizationError struct {
	Reason string
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "unauthorized for this action"
	}
	return e.Reason
}

// ConflictError indicates a duplicate unique key or a failed idempotency
// precondition, such as closing an already-closed account.
type ConflictError struct {
	Reason string
	Fields []string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
	}
	return e.Reason
}

// ReconciliationGap indicates the gateway call succeeded but the local write
// failed, leaving the two systems inconsistent until a sweep resolves it.
type ReconciliationGap struct {
	Operation     string
	AlpacaID      string
	AccountNumber string
	Err           error
}

// Error implements the error interface.
func (e *ReconciliationGap) Error() string {
	return fmt.Sprintf("reconciliation gap after %s for gateway account %s: %v", e.Operation, e.AlpacaID, e.Err)
}

// Unwrap returns the underlying store error.
func (e *ReconciliationGap) Unwrap() error { return e.Err }
