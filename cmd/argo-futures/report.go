package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/urfave/cli/v3"
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Summarize the backtests recorded by earlier runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "top",
				Usage: "Number of best symbols to list",
				Value: 10,
			},
		},
		Action: reportAction,
	}
}

func reportAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	history := journal.NewDuckDBJournal(nil, log)
	if err := history.Initialize(cfg.Journal.DataPath); err != nil {
		return err
	}

	defer func() { _ = history.Close() }()

	report, err := history.Report(ctx, int(cmd.Int("top")))
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Performance report"))
	fmt.Println(HelpStyle.Render(fmt.Sprintf("%d backtests, average score %.1f, win rate %.1f%%, max drawdown %.1f%%, sharpe %.2f",
		report.TotalBacktests, report.AvgScore, report.AvgWinRate*100, report.AvgMaxDrawdown*100, report.AvgSharpe)))

	strategies := newTable("Strategy", "Tests", "Symbols", "Avg score", "Avg win rate", "Avg net PnL", "Avg max DD", "Avg sharpe")
	for _, s := range report.Strategies {
		strategies.Row(
			s.StrategyID,
			fmt.Sprintf("%d", s.Tests),
			fmt.Sprintf("%d", s.Symbols),
			fmt.Sprintf("%.1f", s.AvgScore),
			fmt.Sprintf("%.1f%%", s.AvgWinRate*100),
			FormatPnL(s.AvgNetPnL),
			fmt.Sprintf("%.1f%%", s.AvgMaxDrawdown*100),
			fmt.Sprintf("%.2f", s.AvgSharpe),
		)
	}

	fmt.Println(TitleStyle.Render("Strategies"))
	fmt.Println(strategies.Render())

	symbols := newTable("Symbol", "Strategy", "Score", "Win rate")
	for _, s := range report.TopSymbols {
		symbols.Row(s.Symbol, s.StrategyID, fmt.Sprintf("%.1f", s.Score), fmt.Sprintf("%.1f%%", s.WinRate*100))
	}

	fmt.Println(TitleStyle.Render("Top symbols"))
	fmt.Println(symbols.Render())

	printRecommendations(report.Recommendations)

	return nil
}

func printRecommendations(rec types.Recommendations) {
	fmt.Println(TitleStyle.Render("Recommendations"))

	if rec.BestStrategy == "" {
		fmt.Println(HelpStyle.Render("Insufficient recent data"))

		return
	}

	days := int(journal.RecommendationWindow.Hours() / 24)
	lines := []string{fmt.Sprintf("Best performing strategy (last %d days): %s", days, rec.BestStrategy)}

	if len(rec.HighWinRate) > 0 {
		lines = append(lines, "High win rate strategies: "+strings.Join(rec.HighWinRate, ", "))
	}

	if len(rec.LowDrawdown) > 0 {
		lines = append(lines, "Low drawdown strategies: "+strings.Join(rec.LowDrawdown, ", "))
	}

	if len(rec.ConsistentSymbols) > 0 {
		lines = append(lines, "Consistently good symbols: "+strings.Join(rec.ConsistentSymbols, ", "))
	}

	for _, line := range lines {
		fmt.Println("  " + line)
	}
}
