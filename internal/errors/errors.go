package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application.
// The taxonomy follows the billing engine's failure classes:
// validation (malformed input), invalid operation (illegal state
// transition), consistency (overpayment, currency mismatch, rate window
// conflict), not found, and infrastructure failures.
var (
	ErrNotFound         = newInternal(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = newInternal(ErrCodeAlreadyExists, "resource already exists")
	ErrVersionConflict  = newInternal(ErrCodeVersionConflict, "version conflict")
	ErrValidation       = newInternal(ErrCodeValidation, "validation error")
	ErrInvalidOperation = newInternal(ErrCodeInvalidOperation, "invalid operation")
	ErrConsistency      = newInternal(ErrCodeConsistency, "consistency violation")
	ErrDatabase         = newInternal(ErrCodeDatabase, "database error")
	ErrSystem           = newInternal(ErrCodeSystemError, "system error")

	// Named consistency violations. These all mark ErrConsistency as well so
	// callers can match on either the broad class or the specific failure.
	ErrOverpayment      = newInternal(ErrCodeOverpayment, "payment exceeds invoice balance")
	ErrCurrencyMismatch = newInternal(ErrCodeCurrencyMismatch, "currency mismatch")
	ErrRateConflict     = newInternal(ErrCodeRateConflict, "rate window conflict")

	// Named state violations
	ErrInvoiceNotEditable = newInternal(ErrCodeInvoiceNotEditable, "invoice is not editable")
	ErrEmptyInvoice       = newInternal(ErrCodeEmptyInvoice, "invoice has no items")

	// maps errors to http status codes; checked in order so that an error
	// carrying both a named mark and its broad class resolves to the named
	// mark's status
	statusCodeMap = []struct {
		sentinel error
		status   int
	}{
		{ErrOverpayment, http.StatusUnprocessableEntity},
		{ErrCurrencyMismatch, http.StatusUnprocessableEntity},
		{ErrRateConflict, http.StatusConflict},
		{ErrInvoiceNotEditable, http.StatusBadRequest},
		{ErrEmptyInvoice, http.StatusBadRequest},
		{ErrVersionConflict, http.StatusConflict},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrNotFound, http.StatusNotFound},
		{ErrValidation, http.StatusBadRequest},
		{ErrInvalidOperation, http.StatusBadRequest},
		{ErrConsistency, http.StatusUnprocessableEntity},
		{ErrDatabase, http.StatusInternalServerError},
		{ErrSystem, http.StatusInternalServerError},
	}
)

const (
	ErrCodeSystemError        = "system_error"
	ErrCodeNotFound           = "not_found"
	ErrCodeAlreadyExists      = "already_exists"
	ErrCodeVersionConflict    = "version_conflict"
	ErrCodeValidation         = "validation_error"
	ErrCodeInvalidOperation   = "invalid_operation"
	ErrCodeConsistency        = "consistency_error"
	ErrCodeOverpayment        = "overpayment"
	ErrCodeCurrencyMismatch   = "currency_mismatch"
	ErrCodeRateConflict       = "rate_conflict"
	ErrCodeInvoiceNotEditable = "invoice_not_editable"
	ErrCodeEmptyInvoice       = "empty_invoice"
	ErrCodeDatabase           = "database_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func newInternal(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsConsistency checks if an error is a consistency violation
func IsConsistency(err error) bool {
	return errors.Is(err, ErrConsistency)
}

// IsOverpayment checks if an error is an overpayment rejection
func IsOverpayment(err error) bool {
	return errors.Is(err, ErrOverpayment)
}

// IsCurrencyMismatch checks if an error is a currency mismatch
func IsCurrencyMismatch(err error) bool {
	return errors.Is(err, ErrCurrencyMismatch)
}

func HTTPStatusFromErr(err error) int {
	for _, entry := range statusCodeMap {
		if errors.Is(err, entry.sentinel) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}
