package bot

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// candidate is a scored, eligible signal of one strategy.
type candidate struct {
	signal      types.Signal
	eligibility risk.Eligibility
	order       int
}

// better reports whether c should be preferred over other: higher backtest
// score, then higher strength, then earlier strategy order.
func (c candidate) better(other candidate) bool {
	if c.eligibility.Score != other.eligibility.Score {
		return c.eligibility.Score > other.eligibility.Score
	}

	if c.signal.Strength != other.signal.Strength {
		return c.signal.Strength > other.signal.Strength
	}

	return c.order < other.order
}

// Tick runs one evaluation cycle. It only returns an error when the
// consecutive error limit is reached.
func (b *Bot) Tick(ctx context.Context, callbacks Callbacks) error {
	defer func() {
		if callbacks.OnTick != nil {
			(*callbacks.OnTick)(b.Snapshot())
		}
	}()

	b.mu.Lock()
	b.snapshot.Ticks++
	b.snapshot.LastTick = b.now()
	b.mu.Unlock()

	balance, err := b.deps.Exchange.GetBalance(ctx)
	if err != nil {
		return b.tickFailed(ctx, callbacks, "balance check failed", err)
	}

	b.deps.Manager.ClearHalt()

	if err := b.deps.Manager.Reconcile(ctx); err != nil {
		return b.tickFailed(ctx, callbacks, "reconciliation failed", err)
	}

	b.mu.Lock()
	b.snapshot.Balance = balance
	b.snapshot.ConsecutiveErrors = 0
	symbols := append([]string(nil), b.snapshot.Symbols...)
	b.mu.Unlock()

	entries := b.entriesAllowed(balance)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Bot.MaxParallelSymbols)

	for _, symbol := range symbols {
		g.Go(func() error {
			if err := b.evaluateSymbol(gctx, callbacks, symbol, balance, entries); err != nil {
				b.reportError(callbacks, symbol, err)
			}

			return nil
		})
	}

	_ = g.Wait()

	return nil
}

// tickFailed counts a failed tick and stops the bot once the limit is hit.
func (b *Bot) tickFailed(ctx context.Context, callbacks Callbacks, what string, err error) error {
	if ctx.Err() != nil {
		return nil
	}

	b.deps.Manager.HandleExchangeError(err)
	b.reportError(callbacks, "", errors.Wrap(errors.ErrCodeUnknown, what, err))

	b.mu.Lock()
	b.snapshot.ConsecutiveErrors++
	count := b.snapshot.ConsecutiveErrors
	b.mu.Unlock()

	if count >= b.cfg.Bot.MaxConsecutiveErrors {
		b.log.Error("Too many consecutive errors, stopping", zap.Int("count", count))

		return errors.Wrapf(errors.ErrCodeTooManyErrors, err, "%d consecutive failed ticks", count)
	}

	return nil
}

// entriesAllowed applies the balance floor and the exchange halt/backoff
// state. Open positions keep being monitored either way.
func (b *Bot) entriesAllowed(balance float64) bool {
	floor := b.cfg.Risk.MinBalance

	b.mu.Lock()
	wasLow := b.balanceLow
	b.balanceLow = balance < floor
	low := b.balanceLow
	b.mu.Unlock()

	if low && !wasLow {
		b.log.Warn("Balance below floor, new entries paused", zap.Float64("balance", balance), zap.Float64("floor", floor))
		b.deps.Notifier.Notify(types.NotificationBalanceLow,
			fmt.Sprintf("Balance %.2f %s is below the floor %.2f, new entries paused", balance, b.cfg.Bot.QuoteAsset, floor),
			types.SeverityWarning)
	}

	blocked, reason := b.deps.Manager.Blocked()
	if blocked {
		b.log.Info("New entries blocked", zap.String("reason", reason))
	}

	status := types.BotStatusRunning
	if low || blocked {
		status = types.BotStatusPaused
	}

	b.setStatus(status)

	return !low && !blocked
}

// evaluateSymbol monitors the open position of symbol and, when entries are
// allowed and the symbol is flat, opens the best eligible signal.
func (b *Bot) evaluateSymbol(ctx context.Context, callbacks Callbacks, symbol string, balance float64, entries bool) error {
	bars, err := b.deps.Provider.GetBars(ctx, symbol, b.interval, b.cfg.Bot.LookbackBars)
	if err != nil {
		if errors.IsDataUnavailableError(err) {
			b.log.Warn("Market data unavailable, skipping symbol", zap.String("symbol", symbol), zap.Error(err))

			return nil
		}

		return err
	}

	if len(bars) == 0 {
		return nil
	}

	latest := bars[len(bars)-1]

	if _, _, err := b.deps.Manager.Monitor(ctx, symbol, latest); err != nil {
		b.reportError(callbacks, symbol, err)
	}

	if !entries {
		return nil
	}

	if _, active := b.deps.Manager.Position(symbol); active {
		return nil
	}

	best, ok := b.selectSignal(callbacks, symbol, bars)
	if !ok {
		return nil
	}

	signal := best.signal

	b.log.Info("Trade signal",
		zap.String("symbol", symbol),
		zap.String("strategy", signal.StrategyID),
		zap.String("direction", string(signal.Direction)),
		zap.Int("strength", signal.Strength),
		zap.Float64("backtest_score", best.eligibility.Score),
		zap.Strings("indicators", signal.ContributingIndicators),
	)
	b.deps.Notifier.Notify(types.NotificationTradeSignal,
		fmt.Sprintf("%s %s from %s, strength %d, backtest score %.1f @ %g",
			signal.Direction, symbol, signal.StrategyID, signal.Strength, best.eligibility.Score, signal.Price),
		types.SeverityTrade)

	if _, err := b.deps.Manager.Open(ctx, signal, balance); err != nil && !errors.IsRiskRejectedError(err) {
		return err
	}

	return nil
}

// selectSignal scores every strategy on bars and returns the best eligible
// actionable signal.
func (b *Bot) selectSignal(callbacks Callbacks, symbol string, bars []types.Bar) (candidate, bool) {
	var (
		best  candidate
		found bool
	)

	for order, def := range b.deps.Strategies.All() {
		signal, err := b.deps.Scorer.Evaluate(symbol, def, bars)
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				b.log.Debug("Not enough bars for strategy",
					zap.String("symbol", symbol), zap.String("strategy", def.ID), zap.Error(err))
			} else {
				b.reportError(callbacks, symbol, err)
			}

			continue
		}

		if !signal.IsActionable() {
			continue
		}

		eligibility := b.eligibility(def.ID, symbol)

		if callbacks.OnSignal != nil {
			(*callbacks.OnSignal)(signal, eligibility)
		}

		if b.cfg.Backtest.Enabled && !eligibility.Eligible {
			b.reject(signal, eligibility)

			continue
		}

		c := candidate{signal: signal, eligibility: eligibility, order: order}
		if !found || c.better(best) {
			best = c
			found = true
		}
	}

	return best, found
}

// reject reports a signal dropped because its strategy did not pass the
// backtest gate. Each strategy, symbol and bar is notified once.
func (b *Bot) reject(signal types.Signal, eligibility risk.Eligibility) {
	err := b.gate.CheckCandidate(signal, eligibility, risk.Exposure{
		OpenPositions: 0,
		SymbolActive:  false,
		Blocked:       false,
		BlockReason:   "",
	})
	if err == nil {
		err = errors.NewRiskRejectedErrorf(errors.RiskReasonStrategyIneligible, signal.Symbol,
			"strategy %s is not eligible", signal.StrategyID)
	}

	key := signal.StrategyID + "/" + signal.Symbol

	b.mu.Lock()
	last, seen := b.rejected[key]
	repeat := seen && last.Equal(signal.GeneratedAt)
	b.rejected[key] = signal.GeneratedAt
	b.mu.Unlock()

	if repeat {
		b.log.Debug("Signal from ineligible strategy ignored",
			zap.String("symbol", signal.Symbol),
			zap.String("strategy", signal.StrategyID),
			zap.Float64("score", eligibility.Score),
		)

		return
	}

	b.log.Info("Signal rejected",
		zap.String("symbol", signal.Symbol),
		zap.String("strategy", signal.StrategyID),
		zap.String("direction", string(signal.Direction)),
		zap.Float64("score", eligibility.Score),
		zap.Error(err),
	)
	b.deps.Notifier.Notify(types.NotificationRiskRejected,
		fmt.Sprintf("%s %s from %s rejected: %v", signal.Direction, signal.Symbol, signal.StrategyID, err),
		types.SeverityWarning)
}

func (b *Bot) eligibility(strategyID, symbol string) risk.Eligibility {
	if b.deps.Registry == nil {
		return risk.Eligibility{Known: false, Score: 0, Eligible: false}
	}

	return b.deps.Registry.Eligibility(strategyID, symbol)
}

func (b *Bot) reportError(callbacks Callbacks, symbol string, err error) {
	b.log.Error("Evaluation error", zap.String("symbol", symbol), zap.Error(err))

	if callbacks.OnError != nil {
		(*callbacks.OnError)(symbol, err)
	}
}
