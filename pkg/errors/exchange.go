package errors

import (
	"errors"
	"fmt"
)

// ExchangeErrorKind classifies failures reported by the exchange.
type ExchangeErrorKind string

const (
	ExchangeErrorAuth        ExchangeErrorKind = "AUTH"
	ExchangeErrorRateLimit   ExchangeErrorKind = "RATE_LIMIT"
	ExchangeErrorRejected    ExchangeErrorKind = "REJECTED"
	ExchangeErrorTimeout     ExchangeErrorKind = "TIMEOUT"
	ExchangeErrorMaintenance ExchangeErrorKind = "MAINTENANCE"
)

// HaltsSubmission reports whether new order submission must stop until the condition clears.
func (k ExchangeErrorKind) HaltsSubmission() bool {
	return k == ExchangeErrorAuth || k == ExchangeErrorMaintenance
}

// Code maps the kind to its ErrorCode.
func (k ExchangeErrorKind) Code() ErrorCode {
	switch k {
	case ExchangeErrorAuth:
		return ErrCodeExchangeAuth
	case ExchangeErrorRateLimit:
		return ErrCodeExchangeRateLimit
	case ExchangeErrorTimeout:
		return ErrCodeExchangeTimeout
	case ExchangeErrorMaintenance:
		return ErrCodeExchangeMaintenance
	case ExchangeErrorRejected:
		return ErrCodeExchangeRejected
	default:
		return ErrCodeExchangeRejected
	}
}

// ExchangeError is returned by exchange adapters.
type ExchangeError struct {
	Kind    ExchangeErrorKind
	Code    int // exchange specific error code, 0 when not applicable
	Message string
	Cause   error
}

// NewExchangeError creates a new ExchangeError.
func NewExchangeError(kind ExchangeErrorKind, code int, message string, cause error) *ExchangeError {
	return &ExchangeError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("exchange %s (code=%d): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("exchange %s (code=%d): %s", e.Kind, e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *ExchangeError) Unwrap() error {
	return e.Cause
}

// AsExchangeError returns the ExchangeError in err's chain, if any.
func AsExchangeError(err error) (*ExchangeError, bool) {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return exErr, true
	}

	return nil, false
}

// IsExchangeErrorKind checks if err carries an ExchangeError of the given kind.
func IsExchangeErrorKind(err error, kind ExchangeErrorKind) bool {
	exErr, ok := AsExchangeError(err)

	return ok && exErr.Kind == kind
}
