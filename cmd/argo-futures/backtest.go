package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/indicator"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/rxtech-lab/argo-futures/pkg/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Score strategies on historical bars",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "symbol",
				Aliases:  []string{"s"},
				Usage:    "Symbol to simulate, repeatable",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "strategy",
				Usage: "Strategy id to simulate, repeatable. Defaults to every active strategy",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Parquet `FILE` with downloaded bars. Bars are fetched from Binance when empty",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the results as YAML to `FILE`",
			},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	set, err := strategy.FromConfig(cfg)
	if err != nil {
		return err
	}

	if ids := cmd.StringSlice("strategy"); len(ids) > 0 {
		if set, err = set.Select(ids); err != nil {
			return err
		}
	}

	load, closeSource, err := barSource(ctx, cmd, cfg.Bot.KlineInterval, cfg.Backtest.HistoryBars, cfg.Exchange.Testnet, log)
	if err != nil {
		return err
	}

	defer closeSource()

	engine := backtest.NewEngine(strategy.NewScorer(indicator.NewDefaultRegistry()), backtest.NewEngineConfig(cfg), log)
	registry := backtest.NewRegistry(cfg.Risk.MinBacktestScore)

	symbols := cmd.StringSlice("symbol")
	bar := progressbar.NewOptions(len(symbols)*set.Len(),
		progressbar.OptionSetDescription("Backtesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	results := make([]types.BacktestResult, 0, len(symbols)*set.Len())

	for _, symbol := range symbols {
		symbol = strings.ToUpper(symbol)

		bars, err := load(symbol)
		if err != nil {
			return err
		}

		for _, def := range set.All() {
			result, err := engine.Run(ctx, def, symbol, bars, backtest.LifecycleCallbacks{})
			if err != nil {
				if errors.IsInsufficientDataError(err) {
					log.Warn("Skipping backtest", zap.String("symbol", symbol), zap.String("strategy", def.ID), zap.Error(err))
					_ = bar.Add(1)

					continue
				}

				return err
			}

			results = append(results, result)
			_ = bar.Add(1)
		}
	}

	_ = bar.Finish()

	registry.Publish(results...)
	printBacktests(registry.Snapshot().Entries())

	if out := cmd.String("out"); out != "" {
		if err := types.WriteBacktestResults(out, results); err != nil {
			return err
		}

		fmt.Println(HelpStyle.Render("Results written to " + out))
	}

	return nil
}

// barSource returns a loader for the bars of one symbol, reading the parquet
// file given by --data or fetching from Binance.
func barSource(
	ctx context.Context,
	cmd *cli.Command,
	klineInterval string,
	count int,
	testnet bool,
	log *logger.Logger,
) (func(symbol string) ([]types.Bar, error), func(), error) {
	if path := cmd.String("data"); path != "" {
		store, err := marketdata.NewParquetStore(log)
		if err != nil {
			return nil, nil, err
		}

		load := func(symbol string) ([]types.Bar, error) {
			return store.LoadBars(ctx, path, symbol, optional.None[time.Time](), optional.None[time.Time]())
		}

		return load, func() { _ = store.Close() }, nil
	}

	interval, err := marketdata.ParseInterval(klineInterval)
	if err != nil {
		return nil, nil, err
	}

	provider := marketdata.NewBinanceProvider(marketdata.BinanceProviderConfig{Testnet: testnet}, log)
	load := func(symbol string) ([]types.Bar, error) {
		return provider.GetBars(ctx, symbol, interval, count)
	}

	return load, func() {}, nil
}

func printBacktests(entries []backtest.Entry) {
	if len(entries) == 0 {
		fmt.Println(HelpStyle.Render("No backtest results"))
		return
	}

	t := newTable("Symbol", "Strategy", "Trades", "Win rate", "Profit factor", "Sharpe", "Net PnL", "Max DD", "Score", "Eligible")

	for _, entry := range entries {
		r := entry.Result
		t.Row(
			r.Symbol,
			r.StrategyID,
			fmt.Sprintf("%d", r.TradeCount),
			fmt.Sprintf("%.1f%%", r.WinRate*100),
			r.ProfitFactorString(),
			fmt.Sprintf("%.2f", r.SharpeRatio),
			FormatPnL(r.NetPnL),
			fmt.Sprintf("%.1f%%", r.MaxDrawdown*100),
			fmt.Sprintf("%.1f", r.CompositeScore),
			fmt.Sprintf("%t", entry.Eligible),
		)
	}

	fmt.Println(TitleStyle.Render("Backtest results"))
	fmt.Println(t.Render())
}
