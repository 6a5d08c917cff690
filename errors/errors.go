// Package errors provides error handling for Continuum.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := deliver(); err != nil {
//	    return errors.Wrap(err, "delivery failed")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrAlreadyInFlight) {
//	    // advisory no-op, not a failure
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllDetails = crdb.GetAllDetails
	GetAllHints   = crdb.GetAllHints
)

// Sentinel errors for the scheduling and delivery core.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrDirectiveNotFound indicates the referenced directive does not exist
	ErrDirectiveNotFound = New("directive not found")

	// ErrDirectiveDisabled indicates a claim was attempted on a disabled directive
	ErrDirectiveDisabled = New("directive disabled")

	// ErrAlreadyInFlight indicates a directive already has an active execution.
	// This is advisory: a second claim is a no-op, not an operator-facing failure.
	ErrAlreadyInFlight = New("directive already in flight")

	// ErrMalformedSpec indicates a directive's firing rule could not be parsed.
	// Malformed directives fail closed and never fire.
	ErrMalformedSpec = New("malformed firing spec")

	// ErrBackendUnavailable indicates a delivery backend could not be reached.
	// Inside the chain it triggers the next tier; at the end of the chain it
	// becomes a Failed journal entry.
	ErrBackendUnavailable = New("delivery backend unavailable")

	// ErrNoBackendConfigured indicates no delivery tier applied to a firing
	ErrNoBackendConfigured = New("no delivery backend configured")

	// ErrPersistenceWrite indicates a best-effort persistence save failed.
	// In-memory state is unaffected; the save is retried on the next cycle.
	ErrPersistenceWrite = New("persistence write failed")

	// ErrEntrySettled indicates a journal entry already reached a terminal status
	ErrEntrySettled = New("journal entry already settled")

	// ErrEntryNotFound indicates the referenced journal entry does not exist
	ErrEntryNotFound = New("journal entry not found")
)

// IsAlreadyInFlight checks if an error is or wraps ErrAlreadyInFlight
func IsAlreadyInFlight(err error) bool {
	return err != nil && Is(err, ErrAlreadyInFlight)
}

// IsBackendUnavailable checks if an error is or wraps ErrBackendUnavailable
func IsBackendUnavailable(err error) bool {
	return err != nil && Is(err, ErrBackendUnavailable)
}

// IsMalformedSpec checks if an error is or wraps ErrMalformedSpec
func IsMalformedSpec(err error) bool {
	return err != nil && Is(err, ErrMalformedSpec)
}

// WrapBackendUnavailable marks err as a backend-availability failure with context
func WrapBackendUnavailable(err error, context string) error {
	return Wrap(Wrap(ErrBackendUnavailable, err.Error()), context)
}
