package types

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BacktestTrade is one simulated round trip.
type BacktestTrade struct {
	Direction  Direction   `yaml:"direction" json:"direction"`
	EntryTime  time.Time   `yaml:"entry_time" json:"entry_time"`
	ExitTime   time.Time   `yaml:"exit_time" json:"exit_time"`
	EntryPrice float64     `yaml:"entry_price" json:"entry_price"`
	ExitPrice  float64     `yaml:"exit_price" json:"exit_price"`
	Quantity   float64     `yaml:"quantity" json:"quantity"`
	PnL        float64     `yaml:"pnl" json:"pnl"`
	Fees       float64     `yaml:"fees" json:"fees"`
	Reason     CloseReason `yaml:"reason" json:"reason"`
	Strength   int         `yaml:"strength" json:"strength"`
}

// BacktestResult is the derived performance of a strategy on one symbol.
// Results are never mutated; a recomputation produces a new value.
type BacktestResult struct {
	ID             string          `yaml:"id" json:"id"`
	StrategyID     string          `yaml:"strategy_id" json:"strategy_id"`
	Symbol         string          `yaml:"symbol" json:"symbol"`
	ComputedAt     time.Time       `yaml:"computed_at" json:"computed_at"`
	BarsFrom       time.Time       `yaml:"bars_from" json:"bars_from"`
	BarsTo         time.Time       `yaml:"bars_to" json:"bars_to"`
	TradeCount     int             `yaml:"trade_count" json:"trade_count"`
	WinningTrades  int             `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades   int             `yaml:"losing_trades" json:"losing_trades"`
	WinRate        float64         `yaml:"win_rate" json:"win_rate"`
	ProfitFactor   float64         `yaml:"profit_factor" json:"profit_factor"`
	SharpeRatio    float64         `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	GrossProfit    float64         `yaml:"gross_profit" json:"gross_profit"`
	GrossLoss      float64         `yaml:"gross_loss" json:"gross_loss"`
	NetPnL         float64         `yaml:"net_pnl" json:"net_pnl"`
	TotalFees      float64         `yaml:"total_fees" json:"total_fees"`
	MaxDrawdown    float64         `yaml:"max_drawdown" json:"max_drawdown"`
	CompositeScore float64         `yaml:"composite_score" json:"composite_score"`
	Trades         []BacktestTrade `yaml:"trades,omitempty" json:"trades,omitempty"`
}

// ProfitFactorString renders +Inf readably.
func (r BacktestResult) ProfitFactorString() string {
	if math.IsInf(r.ProfitFactor, 1) {
		return "inf"
	}

	return fmt.Sprintf("%.2f", r.ProfitFactor)
}

// BacktestRecord attributes one recomputation: the previous and new score and eligibility.
type BacktestRecord struct {
	Timestamp        time.Time      `yaml:"timestamp" json:"timestamp"`
	Result           BacktestResult `yaml:"result" json:"result"`
	PreviousScore    float64        `yaml:"previous_score" json:"previous_score"`
	PreviousEligible bool           `yaml:"previous_eligible" json:"previous_eligible"`
	Eligible         bool           `yaml:"eligible" json:"eligible"`
}

// StrategySummary aggregates backtest history for one strategy.
type StrategySummary struct {
	StrategyID     string  `yaml:"strategy_id" json:"strategy_id"`
	Tests          int     `yaml:"tests" json:"tests"`
	AvgScore       float64 `yaml:"avg_score" json:"avg_score"`
	AvgWinRate     float64 `yaml:"avg_win_rate" json:"avg_win_rate"`
	AvgNetPnL      float64 `yaml:"avg_net_pnl" json:"avg_net_pnl"`
	AvgMaxDrawdown float64 `yaml:"avg_max_drawdown" json:"avg_max_drawdown"`
	AvgSharpe      float64 `yaml:"avg_sharpe" json:"avg_sharpe"`
	Symbols        int     `yaml:"symbols" json:"symbols"`
}

// SymbolScore is one row of the best performing symbols table.
type SymbolScore struct {
	Symbol     string  `yaml:"symbol" json:"symbol"`
	StrategyID string  `yaml:"strategy_id" json:"strategy_id"`
	Score      float64 `yaml:"score" json:"score"`
	WinRate    float64 `yaml:"win_rate" json:"win_rate"`
}

// Recommendations are drawn from the backtests recorded since Since.
// BestStrategy is empty when there are none.
type Recommendations struct {
	Since             time.Time `yaml:"since" json:"since"`
	BestStrategy      string    `yaml:"best_strategy" json:"best_strategy"`
	HighWinRate       []string  `yaml:"high_win_rate" json:"high_win_rate"`
	LowDrawdown       []string  `yaml:"low_drawdown" json:"low_drawdown"`
	ConsistentSymbols []string  `yaml:"consistent_symbols" json:"consistent_symbols"`
}

// PerformanceReport summarizes all recorded backtests.
type PerformanceReport struct {
	GeneratedAt     time.Time         `yaml:"generated_at" json:"generated_at"`
	TotalBacktests  int               `yaml:"total_backtests" json:"total_backtests"`
	AvgScore        float64           `yaml:"avg_score" json:"avg_score"`
	AvgWinRate      float64           `yaml:"avg_win_rate" json:"avg_win_rate"`
	AvgMaxDrawdown  float64           `yaml:"avg_max_drawdown" json:"avg_max_drawdown"`
	AvgSharpe       float64           `yaml:"avg_sharpe" json:"avg_sharpe"`
	Strategies      []StrategySummary `yaml:"strategies" json:"strategies"`
	TopSymbols      []SymbolScore     `yaml:"top_symbols" json:"top_symbols"`
	Recommendations Recommendations   `yaml:"recommendations" json:"recommendations"`
}

// WriteBacktestResults writes results as YAML to path.
func WriteBacktestResults(path string, results []BacktestResult) error {
	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest results to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest results to file: %w", err)
	}

	return nil
}
