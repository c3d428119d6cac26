// Package bot runs the evaluation loop: on every tick it checks the account,
// reconciles positions, then evaluates every symbol concurrently and hands
// the best eligible signal to the position manager.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/exchange"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/notify"
	"github.com/rxtech-lab/argo-futures/internal/position"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/rxtech-lab/argo-futures/pkg/marketdata"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dependencies are the collaborators of a Bot. Scheduler and Registry may
// be nil when backtest gating is disabled.
type Dependencies struct {
	Provider   marketdata.Provider
	Exchange   exchange.Exchange
	Manager    *position.Manager
	Scheduler  *backtest.Scheduler
	Registry   *backtest.Registry
	Scorer     strategy.Scorer
	Strategies *strategy.Set
	Notifier   notify.Notifier
}

// Bot is the live decision loop.
type Bot struct {
	cfg      config.Config
	deps     Dependencies
	interval marketdata.Interval
	log      *logger.Logger
	now      func() time.Time
	// gate explains why a signal from an ineligible strategy is dropped.
	gate *risk.Gate

	mu       sync.RWMutex
	snapshot types.BotSnapshot
	// balanceLow is set while the balance is under the floor.
	balanceLow bool
	// rejected holds the bar time of the last notified rejection per
	// strategy and symbol.
	rejected map[string]time.Time
}

// New creates a bot.
func New(cfg config.Config, deps Dependencies, log *logger.Logger) (*Bot, error) {
	interval, err := marketdata.ParseInterval(cfg.Bot.KlineInterval)
	if err != nil {
		return nil, err
	}

	if deps.Provider == nil || deps.Exchange == nil || deps.Manager == nil || deps.Scorer == nil || deps.Strategies == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "provider, exchange, manager, scorer and strategies are required")
	}

	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}

	return &Bot{
		cfg:      cfg,
		deps:     deps,
		interval: interval,
		log:      log,
		now:      time.Now,
		gate:     risk.NewGate(cfg.Risk, cfg.Backtest.Enabled),
		mu:       sync.RWMutex{},
		snapshot: types.BotSnapshot{
			Status:            types.BotStatusStopped,
			StartedAt:         time.Time{},
			LastTick:          time.Time{},
			Ticks:             0,
			Balance:           0,
			OpenPositions:     0,
			Symbols:           nil,
			Halted:            false,
			HaltReason:        "",
			BackoffUntil:      time.Time{},
			ConsecutiveErrors: 0,
		},
		balanceLow: false,
		rejected:   map[string]time.Time{},
	}, nil
}

// Run evaluates ticks until ctx is done or the consecutive error limit is
// reached. The backtest scheduler runs alongside and stops with it.
func (b *Bot) Run(ctx context.Context, callbacks Callbacks) error {
	var runErr error

	defer func() {
		b.setStatus(types.BotStatusStopped)

		message := "Bot stopped"
		severity := types.SeverityInfo

		if runErr != nil {
			message = fmt.Sprintf("Bot stopped: %v", runErr)
			severity = types.SeverityError
		}

		b.deps.Notifier.Notify(types.NotificationBotStatus, message, severity)

		if callbacks.OnStop != nil {
			(*callbacks.OnStop)(runErr)
		}
	}()

	if callbacks.OnTransition != nil {
		b.deps.Manager.SetCallbacks(position.Callbacks{OnTransition: callbacks.OnTransition})
	}

	b.mu.Lock()
	b.snapshot.Status = types.BotStatusStarting
	b.snapshot.StartedAt = b.now()
	b.mu.Unlock()

	symbols, balance, err := b.preRunCheck(ctx)
	if err != nil {
		runErr = err

		return err
	}

	if callbacks.OnStart != nil {
		if err := (*callbacks.OnStart)(symbols, balance); err != nil {
			runErr = err

			return err
		}
	}

	if err := b.deps.Manager.Reconcile(ctx); err != nil {
		b.log.Warn("Initial reconciliation failed", zap.Error(err))
	}

	b.deps.Notifier.Notify(types.NotificationBotStatus,
		fmt.Sprintf("Bot started: %d symbols, %d strategies, balance %.2f %s",
			len(symbols), b.deps.Strategies.Len(), balance, b.cfg.Bot.QuoteAsset),
		types.SeverityInfo)
	b.log.Info("Bot started",
		zap.Strings("symbols", symbols),
		zap.Strings("strategies", b.deps.Strategies.IDs()),
		zap.Float64("balance", balance),
		zap.String("interval", b.interval.String()),
	)

	g, gctx := errgroup.WithContext(ctx)

	if b.deps.Scheduler != nil {
		b.deps.Scheduler.SetSymbols(symbols)
		g.Go(func() error {
			return b.deps.Scheduler.Run(gctx)
		})
	}

	g.Go(func() error {
		return b.loop(gctx, callbacks)
	})

	runErr = g.Wait()

	return runErr
}

// preRunCheck validates the exchange connection and resolves the symbol universe.
func (b *Bot) preRunCheck(ctx context.Context) ([]string, float64, error) {
	if b.deps.Strategies.Len() == 0 {
		return nil, 0, errors.New(errors.ErrCodePreRunCheckFailed, "no strategies configured")
	}

	balance, err := b.deps.Exchange.GetBalance(ctx)
	if err != nil {
		b.deps.Manager.HandleExchangeError(err)

		return nil, 0, errors.Wrap(errors.ErrCodePreRunCheckFailed, "exchange connection check failed", err)
	}

	symbols, err := b.resolveSymbols(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(errors.ErrCodePreRunCheckFailed, "failed to resolve symbols", err)
	}

	if len(symbols) == 0 {
		return nil, 0, errors.New(errors.ErrCodePreRunCheckFailed, "no symbols to trade")
	}

	b.mu.Lock()
	b.snapshot.Symbols = symbols
	b.snapshot.Balance = balance
	b.mu.Unlock()

	return symbols, balance, nil
}

// resolveSymbols returns the configured symbols or every tradable perpetual
// of the quote asset, capped at MaxSymbols.
func (b *Bot) resolveSymbols(ctx context.Context) ([]string, error) {
	symbols := b.cfg.Bot.Symbols

	if len(symbols) == 0 {
		listed, err := b.deps.Provider.ListSymbols(ctx, b.cfg.Bot.QuoteAsset)
		if err != nil {
			return nil, err
		}

		symbols = listed
	}

	if len(symbols) > b.cfg.Bot.MaxSymbols {
		symbols = symbols[:b.cfg.Bot.MaxSymbols]
	}

	return append([]string(nil), symbols...), nil
}

// loop runs the first tick immediately, then one per TickInterval.
func (b *Bot) loop(ctx context.Context, callbacks Callbacks) error {
	ticker := time.NewTicker(b.cfg.Bot.TickInterval)
	defer ticker.Stop()

	for {
		if err := b.Tick(ctx, callbacks); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Snapshot returns the current bot status.
func (b *Bot) Snapshot() types.BotSnapshot {
	b.mu.RLock()
	snapshot := b.snapshot
	snapshot.Symbols = append([]string(nil), b.snapshot.Symbols...)
	b.mu.RUnlock()

	halt := b.deps.Manager.Halted()
	snapshot.Halted = halt != ""
	snapshot.HaltReason = halt
	snapshot.BackoffUntil = b.deps.Manager.BackoffUntil()
	snapshot.OpenPositions = b.deps.Manager.OpenCount()

	return snapshot
}

// Positions returns the positions holding a slot.
func (b *Bot) Positions() []types.Position {
	return b.deps.Manager.Positions()
}

// History returns recently finished positions.
func (b *Bot) History() []types.Position {
	return b.deps.Manager.History()
}

// Backtests returns the published backtest entries, best first.
func (b *Bot) Backtests() []backtest.Entry {
	if b.deps.Registry == nil {
		return nil
	}

	return b.deps.Registry.Snapshot().Entries()
}

// ClosePosition closes the open position of symbol on request.
func (b *Bot) ClosePosition(ctx context.Context, symbol string) (types.Position, error) {
	return b.deps.Manager.CloseManual(ctx, symbol)
}

// TriggerBacktest requests a recomputation. It reports false when backtests are disabled.
func (b *Bot) TriggerBacktest() bool {
	if b.deps.Scheduler == nil {
		return false
	}

	b.deps.Scheduler.Trigger()

	return true
}

func (b *Bot) setStatus(status types.BotStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snapshot.Status = status
}
