package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/bot"
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/exchange"
	"github.com/rxtech-lab/argo-futures/internal/indicator"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/notify"
	"github.com/rxtech-lab/argo-futures/internal/position"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/server"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/rxtech-lab/argo-futures/pkg/marketdata"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the trading bot until interrupted",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "paper",
				Usage: "Trade against an in-memory exchange priced by live market data",
			},
			&cli.FloatFlag{
				Name:  "paper-balance",
				Usage: "Starting USDT balance of the paper exchange",
				Value: 1000,
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	paper := cmd.Bool("paper")
	if !paper && !cfg.HasCredentials() {
		return errors.Newf(errors.ErrCodeMissingParameter,
			"%s and %s are required for live trading, use --paper to trade without credentials",
			config.EnvAPIKey, config.EnvSecretKey)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	strategies, err := strategy.FromConfig(cfg)
	if err != nil {
		return err
	}

	session := journal.NewSessionManager(cfg.Journal.DataPath, log)
	if err := session.Initialize(); err != nil {
		return err
	}

	recorder := journal.NewDuckDBJournal(session, log)
	if err := recorder.Initialize(""); err != nil {
		return err
	}

	defer func() {
		if err := recorder.Close(); err != nil {
			log.Warn("Failed to close journal", zap.Error(err))
		}
	}()

	hub := notify.NewHub(log)
	defer hub.Close()

	dispatcher := notify.NewDispatcher(cfg.Notify, log, append(notify.ChannelsFromConfig(cfg.Notify, log), hub)...)
	dispatcher.Start()

	defer dispatcher.Close()

	provider := marketdata.NewBinanceProvider(marketdata.BinanceProviderConfig{
		Testnet: cfg.Exchange.Testnet,
		BaseURL: cfg.Exchange.BaseURL,
	}, log)

	ex := newExchange(cfg, provider, paper, cmd.Float("paper-balance"), log)

	registry := backtest.NewRegistry(cfg.Risk.MinBacktestScore)
	scorer := strategy.NewScorer(indicator.NewDefaultRegistry())

	var scheduler *backtest.Scheduler

	if cfg.Backtest.Enabled {
		schedulerConfig, err := backtest.NewSchedulerConfig(cfg)
		if err != nil {
			return err
		}

		engine := backtest.NewEngine(scorer, backtest.NewEngineConfig(cfg), log)
		scheduler = backtest.NewScheduler(engine, registry, provider, recorder, dispatcher, strategies.All(), schedulerConfig, log)
	}

	manager := position.NewManager(
		ex,
		risk.NewGate(cfg.Risk, cfg.Backtest.Enabled),
		registry,
		recorder,
		dispatcher,
		position.NewConfig(cfg),
		log,
	)

	tradingBot, err := bot.New(cfg, bot.Dependencies{
		Provider:   provider,
		Exchange:   ex,
		Manager:    manager,
		Scheduler:  scheduler,
		Registry:   registry,
		Scorer:     scorer,
		Strategies: strategies,
		Notifier:   dispatcher,
	}, log)
	if err != nil {
		return err
	}

	if cfg.Server.Enabled {
		srv := server.New(tradingBot, hub, log)
		if err := srv.Start(cfg.Server.Addr); err != nil {
			return err
		}

		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Stop(stopCtx); err != nil {
				log.Warn("Failed to stop status server", zap.Error(err))
			}
		}()
	}

	err = tradingBot.Run(ctx, runCallbacks(log, paper))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// newExchange returns the paper exchange or the Binance futures client.
func newExchange(cfg config.Config, prices exchange.PriceSource, paper bool, balance float64, log *logger.Logger) exchange.Exchange {
	if !paper {
		return exchange.NewBinanceFutures(exchange.NewBinanceFuturesConfig(cfg.Exchange), log)
	}

	return exchange.NewPaper(prices, exchange.PaperConfig{
		InitialBalance: balance,
		FeeRate:        cfg.Backtest.FeeRate,
		Rules: types.SymbolRules{
			StepSize:          0.001,
			TickSize:          0.01,
			MinQty:            0.001,
			MinNotional:       cfg.Risk.MinNotional,
			QuantityPrecision: 3,
			PricePrecision:    2,
		},
	}, log)
}

func runCallbacks(log *logger.Logger, paper bool) bot.Callbacks {
	onStart := bot.OnStartCallback(func(symbols []string, balance float64) error {
		mode := "live"
		if paper {
			mode = "paper"
		}

		fmt.Println(TitleStyle.Render(fmt.Sprintf("argo-futures %s trading", mode)))
		fmt.Println(HelpStyle.Render(fmt.Sprintf("balance %.2f, %d symbols: %s",
			balance, len(symbols), strings.Join(symbols, ", "))))

		return nil
	})

	onStop := bot.OnStopCallback(func(err error) {
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Bot stopped with error", zap.Error(err))
			return
		}

		log.Info("Bot stopped")
	})

	onTransition := position.OnTransitionCallback(func(record types.TransitionRecord, pos types.Position) {
		log.Debug("Position transition",
			zap.String("symbol", pos.Symbol),
			zap.String("from", string(record.From)),
			zap.String("to", string(record.To)),
		)
	})

	return bot.Callbacks{
		OnStart:      &onStart,
		OnStop:       &onStop,
		OnTick:       nil,
		OnSignal:     nil,
		OnTransition: &onTransition,
		OnError:      nil,
	}
}
