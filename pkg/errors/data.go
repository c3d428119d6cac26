package errors

import (
	"errors"
	"fmt"
)

// DataUnavailableError is returned by market data sources when bars or prices
// cannot be fetched. Callers skip the current tick for the symbol.
type DataUnavailableError struct {
	Symbol  string
	Message string
	Cause   error
}

// NewDataUnavailableError creates a new DataUnavailableError.
func NewDataUnavailableError(symbol, message string, cause error) *DataUnavailableError {
	return &DataUnavailableError{
		Symbol:  symbol,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *DataUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("data unavailable for %s: %s: %v", e.Symbol, e.Message, e.Cause)
	}

	return fmt.Sprintf("data unavailable for %s: %s", e.Symbol, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *DataUnavailableError) Unwrap() error {
	return e.Cause
}

// IsDataUnavailableError checks if an error is a DataUnavailableError.
func IsDataUnavailableError(err error) bool {
	var dataErr *DataUnavailableError

	return errors.As(err, &dataErr)
}
