package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// PositionState is a state of the position lifecycle.
type PositionState string

const (
	PositionStateCandidate  PositionState = "CANDIDATE"
	PositionStateSizing     PositionState = "SIZING"
	PositionStateSubmitting PositionState = "SUBMITTING"
	PositionStateOpen       PositionState = "OPEN"
	PositionStateClosing    PositionState = "CLOSING"
	PositionStateClosed     PositionState = "CLOSED"
	PositionStateRejected   PositionState = "REJECTED"
	PositionStateFailed     PositionState = "FAILED"
)

// allowedTransitions is the lifecycle state machine.
var allowedTransitions = map[PositionState][]PositionState{
	PositionStateCandidate:  {PositionStateSizing, PositionStateRejected},
	PositionStateSizing:     {PositionStateSubmitting, PositionStateRejected, PositionStateFailed},
	PositionStateSubmitting: {PositionStateOpen, PositionStateFailed},
	PositionStateOpen:       {PositionStateClosing},
	PositionStateClosing:    {PositionStateClosed, PositionStateFailed},
	PositionStateClosed:     {},
	PositionStateRejected:   {},
	PositionStateFailed:     {},
}

// IsTerminal reports whether no further transition is possible.
func (s PositionState) IsTerminal() bool {
	return s == PositionStateClosed || s == PositionStateRejected || s == PositionStateFailed
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s PositionState) CanTransitionTo(next PositionState) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// CloseReason explains why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonTakeProfit CloseReason = "take_profit"
	CloseReasonManual     CloseReason = "manual"
	CloseReasonExternal   CloseReason = "external"
)

// Position is the bot's authoritative view of one leveraged position.
type Position struct {
	ID              string        `yaml:"id" json:"id"`
	Symbol          string        `yaml:"symbol" json:"symbol"`
	Side            Direction     `yaml:"side" json:"side"`
	StrategyID      string        `yaml:"strategy_id" json:"strategy_id"`
	State           PositionState `yaml:"state" json:"state"`
	EntryPrice      float64       `yaml:"entry_price" json:"entry_price"`
	Quantity        float64       `yaml:"quantity" json:"quantity"`
	Leverage        int           `yaml:"leverage" json:"leverage"`
	StopLossPrice   float64       `yaml:"stop_loss_price" json:"stop_loss_price"`
	TakeProfitPrice float64       `yaml:"take_profit_price" json:"take_profit_price"`
	EntryOrderID    string        `yaml:"entry_order_id" json:"entry_order_id"`
	StopLossID      string        `yaml:"stop_loss_id" json:"stop_loss_id"`
	TakeProfitID    string        `yaml:"take_profit_id" json:"take_profit_id"`
	OpenedAt        time.Time     `yaml:"opened_at" json:"opened_at"`
	// ClosedAt is set once the position reaches CLOSED.
	ClosedAt optional.Option[time.Time] `yaml:"closed_at" json:"closed_at"`
	// ExitPrice is set once the closing fill is confirmed.
	ExitPrice optional.Option[float64] `yaml:"exit_price" json:"exit_price"`
	// RealizedPnL is set once the position reaches CLOSED.
	RealizedPnL optional.Option[decimal.Decimal] `yaml:"realized_pnl" json:"realized_pnl"`
	CloseReason CloseReason                      `yaml:"close_reason" json:"close_reason"`
	// NeedsReconciliation marks a FAILED position whose exchange-side outcome is unknown.
	NeedsReconciliation bool   `yaml:"needs_reconciliation" json:"needs_reconciliation"`
	FailureReason       string `yaml:"failure_reason" json:"failure_reason"`
}

// Notional returns quantity times entry price.
func (p Position) Notional() float64 {
	return p.Quantity * p.EntryPrice
}

// RealizedPnLFor computes the profit of closing the position at exitPrice.
// Quantity already includes leverage, so PnL is the price move times quantity.
func RealizedPnLFor(side Direction, entryPrice, exitPrice, quantity float64) decimal.Decimal {
	move := decimal.NewFromFloat(exitPrice).Sub(decimal.NewFromFloat(entryPrice))
	if side == DirectionShort {
		move = move.Neg()
	}

	return move.Mul(decimal.NewFromFloat(quantity))
}
