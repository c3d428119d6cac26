package position

import (
	"context"
	"fmt"
	"sort"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

// Close exits the position of symbol with a reduce-only market order. An
// OPEN position moves to CLOSING first. A CLOSING position retries an exit
// that did not fill and keeps the reason it was first closed for. Protective
// orders stay on the exchange until the exit fills. exitHint is used as the
// exit price when the fill carries none.
func (m *Manager) Close(ctx context.Context, symbol string, exitHint float64, reason types.CloseReason) (types.Position, error) {
	unlock := m.lockSymbol(symbol)
	defer unlock()

	t, ok := m.tracking(symbol)
	if !ok || (t.position.State != types.PositionStateOpen && t.position.State != types.PositionStateClosing) {
		return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", symbol)
	}

	pos := t.position
	if pos.State == types.PositionStateOpen {
		pos.CloseReason = reason
		if err := m.transition(&pos, types.PositionStateClosing, string(reason)); err != nil {
			return pos, err
		}
	} else if pos.CloseReason != "" {
		reason = pos.CloseReason
	}

	submitted := m.execute(ctx, types.OrderRequest{
		Symbol:        symbol,
		Side:          types.ExitSide(pos.Side),
		Type:          types.OrderTypeMarket,
		Quantity:      pos.Quantity,
		Leverage:      pos.Leverage,
		ClientOrderID: "",
		ReduceOnly:    true,
	}, exitIDPrefix)

	switch {
	case submitted.filled():
		m.cancelOpenOrders(ctx, symbol)

		exit := submitted.result.AvgPrice
		if exit <= 0 {
			exit = exitHint
		}

		return m.settle(pos, exit, reason, fmt.Sprintf("exit filled %g @ %g", submitted.result.FilledQty, exit))
	case submitted.unknown:
		return m.fail(pos, "exit order "+submitted.describe(), submitted.err, true)
	case errors.IsExchangeErrorKind(submitted.err, errors.ExchangeErrorRejected) && m.flatOnExchange(ctx, symbol):
		m.cancelOpenOrders(ctx, symbol)

		return m.settle(pos, exitHint, reason, "already flat on exchange")
	}

	return m.stall(pos, submitted)
}

// stall keeps a CLOSING position whose exit was confirmed not filled. Its
// protective orders are still resting and Monitor retries the exit once
// submissions are no longer blocked.
func (m *Manager) stall(pos types.Position, submitted outcome) (types.Position, error) {
	err := submitted.err
	if err == nil {
		err = errors.New(errors.ErrCodeOrderFailed, "exit order "+submitted.describe())
	}

	m.HandleExchangeError(err)

	m.log.Warn("Exit order did not fill, retrying on a later tick",
		zap.String("position_id", pos.ID),
		zap.String("symbol", pos.Symbol),
		zap.String("outcome", submitted.describe()),
		zap.Error(err),
	)

	if m.markNotified(pos.Symbol, pos.ID) {
		m.notifier.Notify(types.NotificationError,
			fmt.Sprintf("Exit of %s %s did not fill, protective orders kept and exit retried: %v", pos.Side, pos.Symbol, err),
			types.SeverityWarning)
	}

	return pos, err
}

// CloseManual closes symbol at the last seen price.
func (m *Manager) CloseManual(ctx context.Context, symbol string) (types.Position, error) {
	hint, ok := m.LastPrice(symbol)
	if !ok {
		pos, found := m.Position(symbol)
		if !found {
			return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", symbol)
		}

		hint = pos.EntryPrice
	}

	return m.Close(ctx, symbol, hint, types.CloseReasonManual)
}

// Monitor records the latest bar of symbol and closes its OPEN position
// when the bar crosses a protective level. Bars up to the entry bar are
// ignored. A CLOSING position has its exit retried unless submissions are
// blocked. It reports whether a close was attempted.
func (m *Manager) Monitor(ctx context.Context, symbol string, bar types.Bar) (types.Position, bool, error) {
	m.mu.Lock()
	m.lastPrice[symbol] = bar.Close
	m.mu.Unlock()

	t, ok := m.tracking(symbol)
	if !ok {
		return types.Position{}, false, nil
	}

	switch t.position.State {
	case types.PositionStateOpen:
	case types.PositionStateClosing:
		if blocked, _ := m.Blocked(); blocked {
			return t.position, false, nil
		}

		m.log.Info("Retrying exit", zap.String("symbol", symbol), zap.String("reason", string(t.position.CloseReason)))

		pos, err := m.Close(ctx, symbol, bar.Close, t.position.CloseReason)

		return pos, true, err
	default:
		return t.position, false, nil
	}

	entered := t.entryBar
	if entered.IsZero() {
		entered = t.position.OpenedAt
	}

	if !bar.Time.After(entered) {
		return t.position, false, nil
	}

	price, reason, hit := risk.ExitTrigger(t.position.Side, t.levels, bar.High, bar.Low)
	if !hit {
		return t.position, false, nil
	}

	m.log.Info("Protective level crossed",
		zap.String("symbol", symbol),
		zap.String("reason", string(reason)),
		zap.Float64("level", price),
		zap.Float64("high", bar.High),
		zap.Float64("low", bar.Low),
	)

	pos, err := m.Close(ctx, symbol, price, reason)

	return pos, true, err
}

// Reconcile compares local positions with the exchange. OPEN and CLOSING
// positions the exchange no longer holds are closed. A FAILED position with
// an unknown outcome is released once the exchange is flat; while the
// exchange still holds it, its exchange position is closed. Untracked
// exchange positions block their symbol.
func (m *Manager) Reconcile(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	onExchange, err := m.exchange.GetOpenPositions(callCtx)
	cancel()

	if err != nil {
		m.HandleExchangeError(err)

		return err
	}

	m.mu.Lock()
	local := make([]types.Position, 0, len(m.active))
	for _, t := range m.active {
		local = append(local, t.position)
	}

	external := make(map[string]types.ExchangePosition)
	for symbol, ep := range onExchange {
		if _, held := m.active[symbol]; held {
			continue
		}

		if _, known := m.external[symbol]; !known {
			m.log.Warn("Untracked exchange position, symbol blocked",
				zap.String("symbol", symbol),
				zap.String("direction", string(ep.Direction)),
				zap.Float64("quantity", ep.Quantity),
			)
		}

		external[symbol] = ep
	}
	m.external = external
	m.mu.Unlock()

	sortBySymbol(local)

	for _, pos := range local {
		_, present := onExchange[pos.Symbol]

		switch {
		case (pos.State == types.PositionStateOpen || pos.State == types.PositionStateClosing) && !present:
			m.closeExternally(ctx, pos)
		case pos.State == types.PositionStateFailed && pos.NeedsReconciliation && !present:
			m.release(ctx, pos)
		case pos.State == types.PositionStateFailed && pos.NeedsReconciliation:
			m.flatten(ctx, pos, onExchange[pos.Symbol])
		}
	}

	return nil
}

// External returns exchange positions the bot does not track.
func (m *Manager) External() []types.ExchangePosition {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.ExchangePosition, 0, len(m.external))
	for _, ep := range m.external {
		out = append(out, ep)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	return out
}

// closeExternally settles an OPEN or CLOSING position that was closed outside
// the bot, usually by its exchange-side stop-loss or take-profit.
func (m *Manager) closeExternally(ctx context.Context, snapshot types.Position) {
	unlock := m.lockSymbol(snapshot.Symbol)
	defer unlock()

	t, ok := m.tracking(snapshot.Symbol)
	if !ok || t.position.ID != snapshot.ID {
		return
	}

	pos := t.position

	switch pos.State {
	case types.PositionStateOpen:
		if err := m.transition(&pos, types.PositionStateClosing, "position no longer on exchange"); err != nil {
			m.log.Error("Failed to close external position", zap.String("symbol", pos.Symbol), zap.Error(err))

			return
		}
	case types.PositionStateClosing:
	default:
		return
	}

	m.cancelOpenOrders(ctx, pos.Symbol)

	exit := pos.EntryPrice
	reason := types.CloseReasonExternal

	if last, seen := m.LastPrice(pos.Symbol); seen {
		exit = last
		if level, why, hit := risk.ExitTrigger(pos.Side, t.levels, last, last); hit {
			exit = level
			reason = why
		}
	}

	if _, err := m.settle(pos, exit, reason, "closed on exchange"); err != nil {
		m.log.Error("Failed to settle external close", zap.String("symbol", pos.Symbol), zap.Error(err))
	}
}

// release frees the slot of a FAILED position once the exchange is flat and
// removes any protective order left behind.
func (m *Manager) release(ctx context.Context, snapshot types.Position) {
	unlock := m.lockSymbol(snapshot.Symbol)
	defer unlock()

	t, ok := m.tracking(snapshot.Symbol)
	if !ok || t.position.ID != snapshot.ID {
		return
	}

	m.cancelOpenOrders(ctx, snapshot.Symbol)

	pos := t.position
	pos.NeedsReconciliation = false
	m.commit(pos)

	m.log.Info("Reconciled failed position, slot released",
		zap.String("position_id", pos.ID),
		zap.String("symbol", pos.Symbol),
	)
	m.notifier.Notify(types.NotificationBotStatus,
		fmt.Sprintf("%s reconciled: no exchange position, slot released", pos.Symbol), types.SeverityInfo)
}

// flatten closes what the exchange still holds for a FAILED position with an
// unknown order outcome. It is retried on every reconciliation until the
// exchange is flat, except while submissions are blocked.
func (m *Manager) flatten(ctx context.Context, snapshot types.Position, held types.ExchangePosition) {
	unlock := m.lockSymbol(snapshot.Symbol)
	defer unlock()

	t, ok := m.tracking(snapshot.Symbol)
	if !ok || t.position.ID != snapshot.ID || !t.position.NeedsReconciliation {
		return
	}

	pos := t.position

	if m.markNotified(pos.Symbol, pos.ID) {
		m.log.Error("Failed position still open on exchange, closing it",
			zap.String("position_id", pos.ID),
			zap.String("symbol", pos.Symbol),
			zap.Float64("quantity", held.Quantity),
		)
		m.notifier.Notify(types.NotificationError,
			fmt.Sprintf("%s has an exchange position after a failed order, closing it", pos.Symbol),
			types.SeverityError)
	}

	if blocked, reason := m.Blocked(); blocked {
		m.log.Warn("Exchange position left open while submissions are blocked",
			zap.String("symbol", pos.Symbol),
			zap.String("reason", reason),
		)

		return
	}

	submitted := m.execute(ctx, types.OrderRequest{
		Symbol:        pos.Symbol,
		Side:          types.ExitSide(held.Direction),
		Type:          types.OrderTypeMarket,
		Quantity:      held.Quantity,
		Leverage:      pos.Leverage,
		ClientOrderID: "",
		ReduceOnly:    true,
	}, exitIDPrefix)
	if !submitted.filled() {
		m.HandleExchangeError(submitted.err)
		m.log.Warn("Exit of leftover exchange position did not fill",
			zap.String("symbol", pos.Symbol),
			zap.String("outcome", submitted.describe()),
			zap.Error(submitted.err),
		)

		return
	}

	m.cancelOpenOrders(ctx, pos.Symbol)

	pos.NeedsReconciliation = false
	m.commit(pos)

	m.log.Info("Leftover exchange position closed, slot released",
		zap.String("position_id", pos.ID),
		zap.String("symbol", pos.Symbol),
		zap.Float64("quantity", submitted.result.FilledQty),
		zap.Float64("price", submitted.result.AvgPrice),
	)
	m.notifier.Notify(types.NotificationPositionClosed,
		fmt.Sprintf("Closed leftover %s %s qty %g @ %g after a failed order",
			held.Direction, pos.Symbol, submitted.result.FilledQty, submitted.result.AvgPrice),
		types.SeverityWarning)
}

// settle moves a CLOSING position to CLOSED at exit.
func (m *Manager) settle(pos types.Position, exit float64, reason types.CloseReason, note string) (types.Position, error) {
	pnl := types.RealizedPnLFor(pos.Side, pos.EntryPrice, exit, pos.Quantity)

	pos.ExitPrice = optional.Some(exit)
	pos.ClosedAt = optional.Some(m.now())
	pos.RealizedPnL = optional.Some(pnl)
	pos.CloseReason = reason

	if err := m.transition(&pos, types.PositionStateClosed, note); err != nil {
		return pos, err
	}

	severity := types.SeveritySuccess
	if pnl.IsNegative() {
		severity = types.SeverityWarning
	}

	m.notifier.Notify(types.NotificationPositionClosed,
		fmt.Sprintf("Closed %s %s @ %g (%s), PnL %s USDT", pos.Side, pos.Symbol, exit, reason, pnl.StringFixed(4)),
		severity)

	return pos, nil
}

// cancelOpenOrders removes leftover protective orders. Failures are logged.
func (m *Manager) cancelOpenOrders(ctx context.Context, symbol string) {
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	if err := m.exchange.CancelOpenOrders(callCtx, symbol); err != nil {
		m.HandleExchangeError(err)
		m.log.Warn("Failed to cancel open orders", zap.String("symbol", symbol), zap.Error(err))
	}
}

// flatOnExchange reports whether the exchange confirms no position on symbol.
func (m *Manager) flatOnExchange(ctx context.Context, symbol string) bool {
	callCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	positions, err := m.exchange.GetOpenPositions(callCtx)
	if err != nil {
		return false
	}

	_, open := positions[symbol]

	return !open
}

func sortBySymbol(positions []types.Position) {
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
}
