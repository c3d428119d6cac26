package position

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

// Open takes a qualifying signal through CANDIDATE, SIZING and SUBMITTING.
// It returns the position in its final state for this call: OPEN on success,
// REJECTED with a RiskRejectedError, or FAILED with the exchange error.
func (m *Manager) Open(ctx context.Context, signal types.Signal, balance float64) (types.Position, error) {
	unlock := m.lockSymbol(signal.Symbol)
	defer unlock()

	pos := types.Position{
		ID:         m.newID(),
		Symbol:     signal.Symbol,
		Side:       signal.Direction,
		StrategyID: signal.StrategyID,
		Leverage:   m.cfg.Risk.Leverage,
	}

	if err := m.transition(&pos, types.PositionStateCandidate,
		fmt.Sprintf("%s signal strength %d", signal.Direction, signal.Strength)); err != nil {
		return pos, err
	}

	if err := m.reserve(signal, pos); err != nil {
		return m.reject(pos, err)
	}

	if err := m.transition(&pos, types.PositionStateSizing, "risk checks passed"); err != nil {
		return pos, err
	}

	rules, err := m.exchange.GetSymbolRules(ctx, signal.Symbol)
	if err != nil {
		return m.fail(pos, "symbol rules unavailable", err, false)
	}

	sizing, err := m.gate.Size(signal.Symbol, signal.Price, balance, rules)
	if err != nil {
		return m.reject(pos, err)
	}

	pos.Quantity = sizing.Quantity
	pos.Leverage = sizing.Leverage

	if err := m.prepare(ctx, signal.Symbol); err != nil {
		return m.fail(pos, "symbol preparation failed", err, false)
	}

	if err := m.transition(&pos, types.PositionStateSubmitting,
		fmt.Sprintf("qty %g notional %.2f margin %.2f", sizing.Quantity, sizing.Notional, sizing.Margin)); err != nil {
		return pos, err
	}

	submitted := m.execute(ctx, types.OrderRequest{
		Symbol:        signal.Symbol,
		Side:          types.EntrySide(signal.Direction),
		Type:          types.OrderTypeMarket,
		Quantity:      sizing.Quantity,
		Leverage:      sizing.Leverage,
		ClientOrderID: "",
		ReduceOnly:    false,
	}, entryIDPrefix)
	if !submitted.filled() {
		return m.fail(pos, "entry order "+submitted.describe(), submitted.err, submitted.unknown)
	}

	entry := submitted.result.AvgPrice
	if entry <= 0 {
		entry = signal.Price
	}

	levels := m.gate.Levels(signal.Direction, entry, rules)
	pos.EntryPrice = entry
	pos.Quantity = submitted.result.FilledQty
	pos.EntryOrderID = submitted.result.OrderID
	pos.StopLossPrice = levels.StopLoss
	pos.TakeProfitPrice = levels.TakeProfit
	pos.OpenedAt = m.now()
	m.setTracking(pos.Symbol, levels, rules, signal.GeneratedAt)

	if err := m.transition(&pos, types.PositionStateOpen,
		fmt.Sprintf("filled %g @ %g", pos.Quantity, pos.EntryPrice)); err != nil {
		return pos, err
	}

	m.notifier.Notify(types.NotificationOrderPlaced,
		fmt.Sprintf("Opened %s %s qty %g @ %g (SL %g, TP %g, %dx)",
			pos.Side, pos.Symbol, pos.Quantity, pos.EntryPrice, pos.StopLossPrice, pos.TakeProfitPrice, pos.Leverage),
		types.SeverityTrade)

	m.protect(ctx, &pos)

	return pos, nil
}

// reserve runs the pre-SIZING checks and takes a slot in one critical section.
func (m *Manager) reserve(signal types.Signal, pos types.Position) error {
	eligibility := risk.Eligibility{Known: false, Score: 0, Eligible: false}
	if m.eligibility != nil {
		eligibility = m.eligibility.Eligibility(signal.StrategyID, signal.Symbol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	blocked, reason := m.blockedLocked()
	_, active := m.active[signal.Symbol]
	_, external := m.external[signal.Symbol]

	exposure := risk.Exposure{
		OpenPositions: len(m.active),
		SymbolActive:  active || external,
		Blocked:       blocked,
		BlockReason:   reason,
	}

	if err := m.gate.CheckCandidate(signal, eligibility, exposure); err != nil {
		return err
	}

	m.active[signal.Symbol] = &tracked{
		position: pos,
		levels:   risk.Levels{StopLoss: 0, TakeProfit: 0},
		rules:    types.SymbolRules{},
		entryBar: time.Time{},
		notified: false,
	}

	return nil
}

// prepare sets leverage and margin type once per symbol.
func (m *Manager) prepare(ctx context.Context, symbol string) error {
	m.mu.Lock()
	done := m.prepared[symbol]
	m.mu.Unlock()

	if done {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	if err := m.exchange.PrepareSymbol(callCtx, symbol, m.cfg.Risk.Leverage, m.cfg.Risk.MarginType); err != nil {
		return err
	}

	m.mu.Lock()
	m.prepared[symbol] = true
	m.mu.Unlock()

	return nil
}

// reject ends pos in REJECTED because of a risk veto.
func (m *Manager) reject(pos types.Position, err error) (types.Position, error) {
	pos.FailureReason = err.Error()

	if terr := m.transition(&pos, types.PositionStateRejected, string(errors.GetRiskReason(err))); terr != nil {
		return pos, terr
	}

	m.notifier.Notify(types.NotificationRiskRejected,
		fmt.Sprintf("%s %s rejected: %s", pos.Side, pos.Symbol, err.Error()), types.SeverityWarning)

	return pos, err
}

// fail ends pos in FAILED. An unknown exchange-side outcome keeps the slot
// and blocks the symbol until Reconcile resolves it.
func (m *Manager) fail(pos types.Position, what string, err error, unknown bool) (types.Position, error) {
	if err == nil {
		err = errors.New(errors.ErrCodeOrderFailed, what)
	}

	m.HandleExchangeError(err)

	pos.NeedsReconciliation = unknown
	pos.FailureReason = what + ": " + err.Error()

	if terr := m.transition(&pos, types.PositionStateFailed, what); terr != nil {
		return pos, terr
	}

	message := fmt.Sprintf("%s %s failed: %s", pos.Side, pos.Symbol, pos.FailureReason)
	if unknown {
		message += " (reconciliation required)"
	}

	m.log.Error("Position failed",
		zap.String("position_id", pos.ID),
		zap.String("symbol", pos.Symbol),
		zap.Bool("needs_reconciliation", unknown),
		zap.Error(err),
	)
	m.notifier.Notify(types.NotificationError, message, types.SeverityError)

	return pos, err
}

// protect places exchange-side stop-loss and take-profit orders. The levels
// are also monitored locally, so a failure here is reported but not fatal.
func (m *Manager) protect(ctx context.Context, pos *types.Position) {
	orders := types.ProtectiveOrders{
		Symbol:          pos.Symbol,
		Side:            types.ExitSide(pos.Side),
		StopLossPrice:   pos.StopLossPrice,
		TakeProfitPrice: pos.TakeProfitPrice,
		StopLossID:      m.clientOrderID(stopLossIDPrefix),
		TakeProfitID:    m.clientOrderID(takeProfitIDPrefix),
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	if err := m.exchange.PlaceProtectiveOrders(callCtx, orders); err != nil {
		m.HandleExchangeError(err)
		m.log.Error("Protective orders not placed, monitoring locally",
			zap.String("position_id", pos.ID),
			zap.String("symbol", pos.Symbol),
			zap.Error(errors.Wrap(errors.ErrCodeProtectionNotPlaced, "protective orders failed", err)),
		)
		m.notifier.Notify(types.NotificationError,
			fmt.Sprintf("Protective orders for %s not placed, levels monitored locally: %v", pos.Symbol, err),
			types.SeverityWarning)

		return
	}

	pos.StopLossID = orders.StopLossID
	pos.TakeProfitID = orders.TakeProfitID
	m.commit(*pos)
}
