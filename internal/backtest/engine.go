// Package backtest replays strategies over historical bars to derive a
// composite score per strategy and symbol. Scores gate live trading through
// the Registry.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-futures/internal/backtest/commission_fee"
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OnDecisionCallback is called for every bar the engine evaluates while flat.
type OnDecisionCallback func(index int, signal types.Signal)

// OnTradeCallback is called for every closed simulated trade.
type OnTradeCallback func(trade types.BacktestTrade)

// LifecycleCallbacks holds optional hooks into a simulation.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnDecision *OnDecisionCallback
	OnTrade    *OnTradeCallback
}

// Engine simulates one strategy on one symbol.
type Engine interface {
	// Run replays bars and returns the derived result. Decisions at bar t only
	// see bars[0..t].
	Run(ctx context.Context, def types.StrategyDefinition, symbol string, bars []types.Bar, callbacks LifecycleCallbacks) (types.BacktestResult, error)
}

// EngineConfig holds the simulation parameters shared with live trading.
type EngineConfig struct {
	Risk           config.RiskConfig
	InitialBalance float64
	// Window is the number of trailing bars handed to the scorer per step.
	// It is raised to the strategy warm-up when smaller.
	Window int
	Fee    commission_fee.CommissionFee
}

// NewEngineConfig derives the simulation parameters from the application config.
func NewEngineConfig(cfg config.Config) EngineConfig {
	return EngineConfig{
		Risk:           cfg.Risk,
		InitialBalance: cfg.Backtest.InitialBalance,
		Window:         cfg.Bot.LookbackBars,
		Fee:            commission_fee.GetCommissionFeeHandler(cfg.Backtest.Broker, cfg.Backtest.FeeRate),
	}
}

// EngineV1 is the bar-by-bar simulator.
type EngineV1 struct {
	scorer strategy.Scorer
	cfg    EngineConfig
	log    *logger.Logger
	now    func() time.Time
}

var _ Engine = (*EngineV1)(nil)

// NewEngine creates a simulator. A nil fee handler means no commission.
func NewEngine(scorer strategy.Scorer, cfg EngineConfig, log *logger.Logger) Engine {
	if cfg.Fee == nil {
		cfg.Fee = commission_fee.NewZeroCommissionFee()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &EngineV1{
		scorer: scorer,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// openTrade is the simulated position.
type openTrade struct {
	index    int
	side     types.Direction
	entry    decimal.Decimal
	quantity decimal.Decimal
	fee      decimal.Decimal
	levels   risk.Levels
	time     time.Time
	strength int
}

func (e *EngineV1) Run(
	ctx context.Context,
	def types.StrategyDefinition,
	symbol string,
	bars []types.Bar,
	callbacks LifecycleCallbacks,
) (types.BacktestResult, error) {
	if err := types.ValidateBars(bars); err != nil {
		return types.BacktestResult{}, err
	}

	warmup, err := e.scorer.Warmup(def)
	if err != nil {
		return types.BacktestResult{}, err
	}

	if len(bars) < warmup {
		return types.BacktestResult{}, errors.NewInsufficientDataErrorf(warmup, len(bars), symbol,
			"strategy %s needs %d bars to backtest, got %d", def.ID, warmup, len(bars))
	}

	window := max(e.cfg.Window, warmup)
	stats := newStatsAccumulator(e.cfg.InitialBalance)

	var open *openTrade

	for t := warmup - 1; t < len(bars); t++ {
		if err := ctx.Err(); err != nil {
			return types.BacktestResult{}, errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest cancelled", err)
		}

		bar := bars[t]
		exited := false

		if open != nil && t > open.index {
			if price, reason, hit := risk.ExitTrigger(open.side, open.levels, bar.High, bar.Low); hit {
				trade, net, fees := e.closeTrade(open, price, bar.Time, reason)
				stats.addTrade(trade, net, fees)

				if callbacks.OnTrade != nil {
					(*callbacks.OnTrade)(trade)
				}

				open = nil
				exited = true
			}
		}

		unrealized := decimal.Zero
		if open != nil {
			unrealized = grossPnL(open.side, open.entry, decimal.NewFromFloat(bar.Close), open.quantity)
		}

		stats.mark(unrealized)

		if open != nil || exited {
			continue
		}

		start := max(0, t+1-window)

		signal, err := e.scorer.Evaluate(symbol, def, bars[start:t+1])
		if err != nil {
			return types.BacktestResult{}, errors.Wrapf(errors.GetCode(err), err,
				"evaluate %s on %s at bar %d", def.ID, symbol, t)
		}

		if callbacks.OnDecision != nil {
			(*callbacks.OnDecision)(t, signal)
		}

		if !signal.IsActionable() || signal.Strength < e.cfg.Risk.MinSignalStrength {
			continue
		}

		open = e.openTrade(t, bar, signal)
	}

	if open != nil {
		e.log.Debug("Excluding trade still open at end of data",
			zap.String("strategy", def.ID),
			zap.String("symbol", symbol),
			zap.Time("entry_time", open.time),
		)
	}

	result := stats.result(e.cfg.InitialBalance)
	result.ID = uuid.New().String()
	result.StrategyID = def.ID
	result.Symbol = symbol
	result.ComputedAt = e.now()
	result.BarsFrom = bars[0].Time
	result.BarsTo = bars[len(bars)-1].Time

	e.log.Debug("Backtest finished",
		zap.String("strategy", def.ID),
		zap.String("symbol", symbol),
		zap.Int("trades", result.TradeCount),
		zap.Float64("win_rate", result.WinRate),
		zap.Float64("max_drawdown", result.MaxDrawdown),
		zap.Float64("score", result.CompositeScore),
	)

	return result, nil
}

// openTrade enters at the close of the signal bar with the live sizing target.
func (e *EngineV1) openTrade(index int, bar types.Bar, signal types.Signal) *openTrade {
	entry := decimal.NewFromFloat(bar.Close)
	notional := decimal.NewFromFloat(e.cfg.Risk.Volume).Mul(decimal.NewFromInt(int64(e.cfg.Risk.Leverage)))
	quantity := notional.Div(entry)
	fee := decimal.NewFromFloat(e.cfg.Fee.Calculate(notional.InexactFloat64()))

	return &openTrade{
		index:    index,
		side:     signal.Direction,
		entry:    entry,
		quantity: quantity,
		fee:      fee,
		levels:   risk.ProtectiveLevels(signal.Direction, bar.Close, e.cfg.Risk.StopLoss, e.cfg.Risk.TakeProfit),
		time:     bar.Time,
		strength: signal.Strength,
	}
}

func (e *EngineV1) closeTrade(open *openTrade, price float64, at time.Time, reason types.CloseReason) (types.BacktestTrade, decimal.Decimal, decimal.Decimal) {
	exit := decimal.NewFromFloat(price)
	exitFee := decimal.NewFromFloat(e.cfg.Fee.Calculate(exit.Mul(open.quantity).InexactFloat64()))
	fees := open.fee.Add(exitFee)
	net := grossPnL(open.side, open.entry, exit, open.quantity).Sub(fees)

	trade := types.BacktestTrade{
		Direction:  open.side,
		EntryTime:  open.time,
		ExitTime:   at,
		EntryPrice: open.entry.InexactFloat64(),
		ExitPrice:  price,
		Quantity:   open.quantity.InexactFloat64(),
		PnL:        net.InexactFloat64(),
		Fees:       fees.InexactFloat64(),
		Reason:     reason,
		Strength:   open.strength,
	}

	return trade, net, fees
}

func grossPnL(side types.Direction, entry, exit, quantity decimal.Decimal) decimal.Decimal {
	if side == types.DirectionShort {
		return entry.Sub(exit).Mul(quantity)
	}

	return exit.Sub(entry).Mul(quantity)
}
