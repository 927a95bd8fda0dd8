package errors

import (
	"errors"
	"fmt"
)

var (
	// Order / member errors
	ErrOrderNotFound  = errors.New("order not found")
	ErrMemberNotFound = errors.New("member not found")

	// Payment errors
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownMethod      = errors.New("unknown payment method")
	ErrInsufficientPoints = errors.New("insufficient point balance")
	ErrApprovalRejected   = errors.New("payment rejected by gateway")
	ErrApprovalFailed     = errors.New("payment approval failed")

	// Refund errors
	ErrCancelRejected         = errors.New("cancellation rejected by gateway")
	ErrInsufficientRefundable = errors.New("refundable balance does not cover cancel amount")

	// Gateway errors
	ErrUnknownProvider    = errors.New("unknown payment gateway")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// Lock errors
	ErrOrderLocked = errors.New("order is being processed by another request")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
