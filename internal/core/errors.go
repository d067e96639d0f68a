package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks every input rejected before a write.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned by storage when an owner-scoped row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAggregation marks a failed invoice recompute. The invoice keeps its prior state.
	ErrAggregation = errors.New("invoice aggregation failed")

	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidPayment     = errors.New("invalid payment method")
	ErrInvalidOwner       = errors.New("invalid owner")
	ErrCardRequired       = errors.New("card payment requires a card")
	ErrUnknownCard        = errors.New("card not found for owner")
	ErrChargeNotSettled   = errors.New("card charge must be paid")
	ErrInvoiceManaged     = errors.New("invoice rows are managed by the aggregator")
	ErrInvoiceNotCharged  = errors.New("invoice row cannot be charged to a card")
	ErrInvalidInstallment = errors.New("invalid installment count")
)

// ValidationError reports which input field was rejected and why.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", ErrValidation, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrValidation, e.Field, e.Err)
}

// Unwrap lets errors.Is match both ErrValidation and the underlying reason.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// Invalid builds a ValidationError for field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
