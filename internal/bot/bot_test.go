package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/position"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/mocks"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type scriptedScorer struct {
	signals map[string]types.Signal
	errs    map[string]error
}

func (s *scriptedScorer) Score(symbol string, def types.StrategyDefinition, _ types.IndicatorSeries, bar types.Bar) (types.Signal, error) {
	return s.Evaluate(symbol, def, []types.Bar{bar})
}

func (s *scriptedScorer) Evaluate(symbol string, def types.StrategyDefinition, _ []types.Bar) (types.Signal, error) {
	if err, ok := s.errs[def.ID]; ok {
		return types.Signal{}, err
	}

	signal, ok := s.signals[def.ID]
	if !ok {
		return types.Signal{Symbol: symbol, Direction: types.DirectionNone, StrategyID: def.ID}, nil
	}

	signal.Symbol = symbol
	signal.StrategyID = def.ID

	return signal, nil
}

func (s *scriptedScorer) Warmup(types.StrategyDefinition) (int, error) {
	return 0, nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	categories []types.NotificationCategory
}

func (r *recordingNotifier) Notify(category types.NotificationCategory, _ string, _ types.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.categories = append(r.categories, category)
}

func (r *recordingNotifier) count(category types.NotificationCategory) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0

	for _, c := range r.categories {
		if c == category {
			n++
		}
	}

	return n
}

type BotTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	exchange *mocks.MockExchange
	provider *mocks.MockProvider
	notifier *recordingNotifier
	scorer   *scriptedScorer
	registry *backtest.Registry
	cfg      config.Config
	rules    types.SymbolRules
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotTestSuite))
}

func (suite *BotTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.exchange = mocks.NewMockExchange(suite.ctrl)
	suite.provider = mocks.NewMockProvider(suite.ctrl)
	suite.notifier = &recordingNotifier{}
	suite.scorer = &scriptedScorer{signals: map[string]types.Signal{}, errs: map[string]error{}}
	suite.registry = backtest.NewRegistry(45)

	suite.cfg = config.Default()
	suite.cfg.Bot.Symbols = []string{"BTCUSDT"}
	suite.cfg.Bot.TickInterval = time.Hour

	suite.rules = types.SymbolRules{
		Symbol:            "BTCUSDT",
		StepSize:          0.001,
		TickSize:          0.01,
		MinQty:            0.001,
		MinNotional:       5,
		QuantityPrecision: 3,
		PricePrecision:    2,
	}
}

func (suite *BotTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *BotTestSuite) newBot() (*Bot, *position.Manager) {
	var eligibility position.EligibilitySource
	if suite.cfg.Backtest.Enabled {
		eligibility = suite.registry
	}

	manager := position.NewManager(suite.exchange, risk.NewGate(suite.cfg.Risk, suite.cfg.Backtest.Enabled), eligibility,
		nil, suite.notifier, position.NewConfig(suite.cfg), logger.NewNopLogger())

	set, err := strategy.NewSet(strategy.Builtin(suite.cfg.Indicators, suite.cfg.Risk.MinSignalStrength)...)
	suite.Require().NoError(err)

	var registry *backtest.Registry
	if suite.cfg.Backtest.Enabled {
		registry = suite.registry
	}

	b, err := New(suite.cfg, Dependencies{
		Provider:   suite.provider,
		Exchange:   suite.exchange,
		Manager:    manager,
		Scheduler:  nil,
		Registry:   registry,
		Scorer:     suite.scorer,
		Strategies: set,
		Notifier:   suite.notifier,
	}, logger.NewNopLogger())
	suite.Require().NoError(err)

	b.snapshot.Symbols = suite.cfg.Bot.Symbols

	return b, manager
}

func (suite *BotTestSuite) publish(strategyID, symbol string, score float64) {
	suite.registry.Publish(types.BacktestResult{
		StrategyID:     strategyID,
		Symbol:         symbol,
		TradeCount:     10,
		CompositeScore: score,
	})
}

func long(strength int) types.Signal {
	return types.Signal{Direction: types.DirectionLong, Strength: strength, Price: 100}
}

func short(strength int) types.Signal {
	return types.Signal{Direction: types.DirectionShort, Strength: strength, Price: 100}
}

func (suite *BotTestSuite) expectHealthyAccount(balance float64) {
	suite.exchange.EXPECT().GetBalance(gomock.Any()).Return(balance, nil)
	suite.exchange.EXPECT().GetOpenPositions(gomock.Any()).Return(map[string]types.ExchangePosition{}, nil)
}

func (suite *BotTestSuite) TestTickOpensBestEligibleSignal() {
	suite.scorer.signals[strategy.IDRSIBollingerVWAP] = long(3)
	suite.scorer.signals[strategy.IDMACDEMAVolume] = short(4)
	suite.publish(strategy.IDRSIBollingerVWAP, "BTCUSDT", 70)
	suite.publish(strategy.IDMACDEMAVolume, "BTCUSDT", 50)

	b, manager := suite.newBot()

	suite.expectHealthyAccount(1000)
	suite.provider.EXPECT().GetBars(gomock.Any(), "BTCUSDT", gomock.Any(), 300).Return(mocks.GenerateSeries(50), nil)
	suite.exchange.EXPECT().GetSymbolRules(gomock.Any(), "BTCUSDT").Return(suite.rules, nil)
	suite.exchange.EXPECT().PrepareSymbol(gomock.Any(), "BTCUSDT", 10, config.MarginTypeIsolated).Return(nil)
	suite.exchange.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req types.OrderRequest) (types.OrderResult, error) {
			suite.Equal(types.SideBuy, req.Side)

			return types.OrderResult{OrderID: "1", ClientOrderID: req.ClientOrderID, Status: types.OrderStatusFilled, FilledQty: req.Quantity, AvgPrice: 100}, nil
		})
	suite.exchange.EXPECT().PlaceProtectiveOrders(gomock.Any(), gomock.Any()).Return(nil)

	var signals []types.Signal

	onSignal := OnSignalCallback(func(signal types.Signal, _ risk.Eligibility) {
		signals = append(signals, signal)
	})

	suite.Require().NoError(b.Tick(context.Background(), Callbacks{OnSignal: &onSignal}))

	pos, ok := manager.Position("BTCUSDT")
	suite.Require().True(ok)
	suite.Equal(types.PositionStateOpen, pos.State)
	suite.Equal(types.DirectionLong, pos.Side)
	suite.Equal(strategy.IDRSIBollingerVWAP, pos.StrategyID)
	suite.Len(signals, 2)
	suite.Equal(1, suite.notifier.count(types.NotificationTradeSignal))
	suite.Equal(types.BotStatusRunning, b.Snapshot().Status)
}

func (suite *BotTestSuite) TestEqualScoresPreferStrength() {
	suite.scorer.signals[strategy.IDRSIBollingerVWAP] = long(2)
	suite.scorer.signals[strategy.IDMACDEMAVolume] = short(4)

	b, _ := suite.newBot()

	c1 := candidate{signal: long(2), eligibility: risk.Eligibility{Known: true, Score: 60, Eligible: true}, order: 0}
	c2 := candidate{signal: short(4), eligibility: risk.Eligibility{Known: true, Score: 60, Eligible: true}, order: 1}
	c3 := candidate{signal: short(4), eligibility: risk.Eligibility{Known: true, Score: 60, Eligible: true}, order: 2}

	suite.True(c2.better(c1))
	suite.True(c2.better(c3))
	suite.False(c3.better(c2))

	suite.publish(strategy.IDRSIBollingerVWAP, "BTCUSDT", 60)
	suite.publish(strategy.IDMACDEMAVolume, "BTCUSDT", 60)

	best, ok := b.selectSignal(Callbacks{}, "BTCUSDT", mocks.GenerateSeries(10))
	suite.Require().True(ok)
	suite.Equal(strategy.IDMACDEMAVolume, best.signal.StrategyID)
}

func (suite *BotTestSuite) TestIneligibleSignalsAreIgnored() {
	suite.scorer.signals[strategy.IDRSIBollingerVWAP] = long(3)
	suite.publish(strategy.IDRSIBollingerVWAP, "BTCUSDT", 30)

	b, manager := suite.newBot()

	suite.expectHealthyAccount(1000)
	suite.provider.EXPECT().GetBars(gomock.Any(), "BTCUSDT", gomock.Any(), gomock.Any()).Return(mocks.GenerateSeries(50), nil)

	var seen []risk.Eligibility

	onSignal := OnSignalCallback(func(_ types.Signal, eligibility risk.Eligibility) {
		seen = append(seen, eligibility)
	})

	suite.Require().NoError(b.Tick(context.Background(), Callbacks{OnSignal: &onSignal}))

	suite.Require().Len(seen, 1)
	suite.False(seen[0].Eligible)
	suite.Equal(0, manager.OpenCount())
	suite.Equal(0, suite.notifier.count(types.NotificationTradeSignal))
	suite.Equal(1, suite.notifier.count(types.NotificationRiskRejected))

	// Same bar again: no second notification.
	suite.expectHealthyAccount(1000)
	suite.provider.EXPECT().GetBars(gomock.Any(), "BTCUSDT", gomock.Any(), gomock.Any()).Return(mocks.GenerateSeries(50), nil)
	suite.Require().NoError(b.Tick(context.Background(), Callbacks{OnSignal: &onSignal}))
	suite.Equal(1, suite.notifier.count(types.NotificationRiskRejected))

	// A later bar is reported again.
	suite.scorer.signals[strategy.IDRSIBollingerVWAP] = types.Signal{
		Direction:   types.DirectionLong,
		Strength:    3,
		Price:       100,
		GeneratedAt: time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC),
	}
	suite.expectHealthyAccount(1000)
	suite.provider.EXPECT().GetBars(gomock.Any(), "BTCUSDT", gomock.Any(), gomock.Any()).Return(mocks.GenerateSeries(50), nil)
	suite.Require().NoError(b.Tick(context.Background(), Callbacks{OnSignal: &onSignal}))
	suite.Equal(2, suite.notifier.count(types.NotificationRiskRejected))
}

func (suite *BotTestSuite) TestBalanceFloorPausesEntries() {
	suite.scorer.signals[strategy.IDRSIBollingerVWAP] = long(3)
	suite.publish(strategy.IDRSIBollingerVWAP, "BTCUSDT", 70)

	b, manager := suite.newBot()

	for range 2 {
		suite.expectHealthyAccount(5)
		suite.provider.EXPECT().GetBars(gomock.Any(), "BTCUSDT", gomock.Any(), gomock.Any()).Return(mocks.GenerateSeries(50), nil)
		suite.Require().NoError(b.Tick(context.Background(), Callbacks{}))
	}

	suite.Equal(1, suite.notifier.count(types.NotificationBalanceLow))
	suite.Equal(types.BotStatusPaused, b.Snapshot().Status)
	suite.Equal(0, manager.OpenCount())
}

func (suite *BotTestSuite) TestDataUnavailableSkipsSymbol() {
	suite.cfg.Bot.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	b, _ := suite.newBot()

	suite.expectHealthyAccount(1000)
	suite.provider.EXPECT().GetBars(gomock.Any(), "BTCUSDT", gomock.Any(), gomock.Any()).Return(mocks.GenerateSeries(50), nil)
	suite.provider.EXPECT().GetBars(gomock.Any(), "ETHUSDT", gomock.Any(), gomock.Any()).
		Return(nil, errors.NewDataUnavailableError("ETHUSDT", "klines request failed", nil))

	var failures []error

	onError := OnErrorCallback(func(_ string, err error) {
		failures = append(failures, err)
	})

	suite.Require().NoError(b.Tick(context.Background(), Callbacks{OnError: &onError}))
	suite.Empty(failures)
}

func (suite *BotTestSuite) TestConsecutiveErrorsStopTheBot() {
	suite.cfg.Bot.MaxConsecutiveErrors = 2
	b, _ := suite.newBot()

	suite.exchange.EXPECT().GetBalance(gomock.Any()).
		Return(0.0, errors.NewExchangeError(errors.ExchangeErrorTimeout, 0, "timeout", nil)).Times(2)

	suite.Require().NoError(b.Tick(context.Background(), Callbacks{}))
	suite.Equal(1, b.Snapshot().ConsecutiveErrors)

	err := b.Tick(context.Background(), Callbacks{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeTooManyErrors))
}

func (suite *BotTestSuite) TestRunResolvesSymbolsAndStops() {
	suite.cfg.Bot.Symbols = nil
	suite.cfg.Bot.MaxSymbols = 2
	suite.cfg.Backtest.Enabled = false

	b, _ := suite.newBot()

	suite.exchange.EXPECT().GetBalance(gomock.Any()).Return(1000.0, nil).Times(2)
	suite.exchange.EXPECT().GetOpenPositions(gomock.Any()).Return(map[string]types.ExchangePosition{}, nil).Times(2)
	suite.provider.EXPECT().ListSymbols(gomock.Any(), "USDT").Return([]string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, nil)
	suite.provider.EXPECT().GetBars(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(mocks.GenerateSeries(50), nil).Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		started []string
		stopped bool
		stopErr error
	)

	onStart := OnStartCallback(func(symbols []string, _ float64) error {
		started = symbols

		return nil
	})
	onTick := OnTickCallback(func(types.BotSnapshot) {
		cancel()
	})
	onStop := OnStopCallback(func(err error) {
		stopped = true
		stopErr = err
	})

	err := b.Run(ctx, Callbacks{OnStart: &onStart, OnTick: &onTick, OnStop: &onStop})

	suite.NoError(err)
	suite.Equal([]string{"BTCUSDT", "ETHUSDT"}, started)
	suite.True(stopped)
	suite.NoError(stopErr)
	suite.Equal(types.BotStatusStopped, b.Snapshot().Status)
	suite.Equal(int64(1), b.Snapshot().Ticks)
	suite.Equal(2, suite.notifier.count(types.NotificationBotStatus))
}

func (suite *BotTestSuite) TestPreRunCheckFailure() {
	b, manager := suite.newBot()

	suite.exchange.EXPECT().GetBalance(gomock.Any()).
		Return(0.0, errors.NewExchangeError(errors.ExchangeErrorAuth, -2015, "Invalid API-key", nil))

	err := b.Run(context.Background(), Callbacks{})

	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodePreRunCheckFailed))
	suite.NotEmpty(manager.Halted())
}

func (suite *BotTestSuite) TestTriggerBacktestWithoutScheduler() {
	b, _ := suite.newBot()

	suite.False(b.TriggerBacktest())
	suite.Empty(b.Backtests())
}
