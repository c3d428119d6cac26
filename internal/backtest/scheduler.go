package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/notify"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/rxtech-lab/argo-futures/pkg/marketdata"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SchedulerConfig controls background recomputation.
type SchedulerConfig struct {
	Interval          marketdata.Interval
	HistoryBars       int
	RecomputeInterval time.Duration
	// Parallelism bounds how many symbols are simulated at once.
	Parallelism int
}

// NewSchedulerConfig derives the scheduler settings from the application config.
func NewSchedulerConfig(cfg config.Config) (SchedulerConfig, error) {
	interval, err := marketdata.ParseInterval(cfg.Bot.KlineInterval)
	if err != nil {
		return SchedulerConfig{}, err
	}

	return SchedulerConfig{
		Interval:          interval,
		HistoryBars:       cfg.Backtest.HistoryBars,
		RecomputeInterval: cfg.Backtest.RecomputeInterval,
		Parallelism:       cfg.Bot.MaxParallelSymbols,
	}, nil
}

// Scheduler recomputes every strategy/symbol pair in the background and
// publishes the results to the registry in one swap per run.
type Scheduler struct {
	engine     Engine
	registry   *Registry
	provider   marketdata.Provider
	recorder   journal.Recorder
	notifier   notify.Notifier
	log        *logger.Logger
	cfg        SchedulerConfig
	strategies []types.StrategyDefinition

	symbolsMu sync.RWMutex
	symbols   []string

	// runMu serializes recomputations.
	runMu   sync.Mutex
	trigger chan struct{}
}

// NewScheduler creates a scheduler. recorder may be nil.
func NewScheduler(
	engine Engine,
	registry *Registry,
	provider marketdata.Provider,
	recorder journal.Recorder,
	notifier notify.Notifier,
	strategies []types.StrategyDefinition,
	cfg SchedulerConfig,
	log *logger.Logger,
) *Scheduler {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}

	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Scheduler{
		engine:     engine,
		registry:   registry,
		provider:   provider,
		recorder:   recorder,
		notifier:   notifier,
		log:        log,
		cfg:        cfg,
		strategies: strategies,
		symbolsMu:  sync.RWMutex{},
		symbols:    nil,
		runMu:      sync.Mutex{},
		trigger:    make(chan struct{}, 1),
	}
}

// SetSymbols replaces the symbol universe used by the next recomputation.
func (s *Scheduler) SetSymbols(symbols []string) {
	s.symbolsMu.Lock()
	defer s.symbolsMu.Unlock()

	s.symbols = append([]string(nil), symbols...)
}

// Symbols returns the current symbol universe.
func (s *Scheduler) Symbols() []string {
	s.symbolsMu.RLock()
	defer s.symbolsMu.RUnlock()

	return append([]string(nil), s.symbols...)
}

// Trigger requests an on-demand recomputation. It never blocks; a request
// made while one is already pending is merged into it.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run recomputes once immediately, then on every RecomputeInterval tick and
// Trigger call until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.RecomputeInterval)
	defer ticker.Stop()

	s.recomputeLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.recomputeLogged(ctx)
		case <-s.trigger:
			s.recomputeLogged(ctx)
		}
	}
}

func (s *Scheduler) recomputeLogged(ctx context.Context) {
	if _, err := s.RecomputeAll(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("Backtest recomputation failed", zap.Error(err))
		s.notifier.Notify(types.NotificationError, fmt.Sprintf("Backtest recomputation failed: %v", err), types.SeverityError)
	}
}

// RecomputeAll simulates every strategy on every symbol and publishes the
// results atomically. Symbols whose data is unavailable or too short are
// skipped and keep their previous result.
func (s *Scheduler) RecomputeAll(ctx context.Context) ([]types.BacktestRecord, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	symbols := s.Symbols()
	if len(s.strategies) == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies to backtest")
	}

	started := time.Now()

	var (
		mu      sync.Mutex
		results []types.BacktestResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)

	for _, symbol := range symbols {
		g.Go(func() error {
			symbolResults, err := s.recomputeSymbol(gctx, symbol)
			if err != nil {
				return err
			}

			mu.Lock()
			results = append(results, symbolResults...)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := s.registry.Publish(results...)
	s.record(records)

	s.log.Info("Backtest recomputation finished",
		zap.Int("symbols", len(symbols)),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(started)),
	)

	return records, nil
}

// recomputeSymbol fetches one history per symbol and runs every strategy on it.
func (s *Scheduler) recomputeSymbol(ctx context.Context, symbol string) ([]types.BacktestResult, error) {
	bars, err := s.provider.GetBars(ctx, symbol, s.cfg.Interval, s.cfg.HistoryBars)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest recomputation cancelled", ctx.Err())
		}

		s.log.Warn("Skipping backtest, no history", zap.String("symbol", symbol), zap.Error(err))

		return nil, nil
	}

	results := make([]types.BacktestResult, 0, len(s.strategies))

	for _, def := range s.strategies {
		result, err := s.engine.Run(ctx, def, symbol, bars, LifecycleCallbacks{OnDecision: nil, OnTrade: nil})
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeBacktestCancelled) {
				return nil, err
			}

			s.log.Warn("Skipping backtest",
				zap.String("symbol", symbol),
				zap.String("strategy", def.ID),
				zap.Error(err),
			)

			continue
		}

		results = append(results, result)
	}

	return results, nil
}

// record journals, logs and notifies every published result.
func (s *Scheduler) record(records []types.BacktestRecord) {
	for _, record := range records {
		result := record.Result

		s.log.Info("Backtest result published",
			zap.Time("timestamp", record.Timestamp),
			zap.String("strategy", result.StrategyID),
			zap.String("symbol", result.Symbol),
			zap.Int("trades", result.TradeCount),
			zap.Float64("win_rate", result.WinRate),
			zap.String("profit_factor", result.ProfitFactorString()),
			zap.Float64("max_drawdown", result.MaxDrawdown),
			zap.Float64("previous_score", record.PreviousScore),
			zap.Float64("score", result.CompositeScore),
			zap.Bool("previous_eligible", record.PreviousEligible),
			zap.Bool("eligible", record.Eligible),
		)

		if s.recorder != nil {
			if err := s.recorder.RecordBacktest(record); err != nil {
				s.log.Error("Failed to journal backtest result", zap.String("id", result.ID), zap.Error(err))
			}
		}

		if record.Eligible != record.PreviousEligible {
			state := "ineligible"
			if record.Eligible {
				state = "eligible"
			}

			s.notifier.Notify(types.NotificationBacktest,
				fmt.Sprintf("%s on %s is now %s (score %.1f -> %.1f)",
					result.StrategyID, result.Symbol, state, record.PreviousScore, result.CompositeScore),
				types.SeverityInfo)
		}
	}
}
