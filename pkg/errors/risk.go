package errors

import (
	"errors"
	"fmt"
)

// RiskReason identifies which risk rule vetoed a position.
type RiskReason string

const (
	RiskReasonNoDirection        RiskReason = "NO_DIRECTION"
	RiskReasonSignalStrength     RiskReason = "SIGNAL_STRENGTH"
	RiskReasonBacktestScore      RiskReason = "BACKTEST_SCORE"
	RiskReasonStrategyIneligible RiskReason = "STRATEGY_INELIGIBLE"
	RiskReasonDuplicateSymbol    RiskReason = "DUPLICATE_SYMBOL"
	RiskReasonMaxPositions       RiskReason = "MAX_POSITIONS"
	RiskReasonBalanceFloor       RiskReason = "BALANCE_FLOOR"
	RiskReasonNotionalMin        RiskReason = "NOTIONAL_MIN"
	RiskReasonNotionalMax        RiskReason = "NOTIONAL_MAX"
	RiskReasonBalanceFraction    RiskReason = "BALANCE_FRACTION"
	RiskReasonExchangeBlocked    RiskReason = "EXCHANGE_BLOCKED"
)

// RiskRejectedError is returned when the risk gate vetoes a transition that
// would commit capital. It is never retried.
type RiskRejectedError struct {
	Reason  RiskReason
	Symbol  string
	Message string
}

// NewRiskRejectedError creates a new RiskRejectedError.
func NewRiskRejectedError(reason RiskReason, symbol, message string) *RiskRejectedError {
	return &RiskRejectedError{
		Reason:  reason,
		Symbol:  symbol,
		Message: message,
	}
}

// NewRiskRejectedErrorf creates a new RiskRejectedError with a formatted message.
func NewRiskRejectedErrorf(reason RiskReason, symbol, format string, args ...any) *RiskRejectedError {
	return &RiskRejectedError{
		Reason:  reason,
		Symbol:  symbol,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *RiskRejectedError) Error() string {
	return fmt.Sprintf("risk rejected %s (%s): %s", e.Symbol, e.Reason, e.Message)
}

// IsRiskRejectedError checks if an error is a RiskRejectedError.
func IsRiskRejectedError(err error) bool {
	var riskErr *RiskRejectedError

	return errors.As(err, &riskErr)
}

// GetRiskReason returns the reason of a RiskRejectedError in err's chain,
// or an empty reason if there is none.
func GetRiskReason(err error) RiskReason {
	var riskErr *RiskRejectedError
	if errors.As(err, &riskErr) {
		return riskErr.Reason
	}

	return ""
}
