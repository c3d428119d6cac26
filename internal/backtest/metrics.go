package backtest

import (
	"math"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

// Composite score weights. The three components sum to 100.
const (
	WinRateWeight      = 40.0
	ProfitFactorWeight = 30.0
	DrawdownWeight     = 30.0
	// ProfitFactorCap is the profit factor that earns the full profit factor weight.
	ProfitFactorCap = 3.0
	// DrawdownCap is the drawdown fraction at which the drawdown component reaches zero.
	DrawdownCap = 0.25
)

// CompositeScore combines win rate, capped profit factor and an inverse
// drawdown penalty into [0,100]:
//
//	40*winRate + 30*min(pf,3)/3 + 30*(1-min(dd/0.25,1))
//
// A run without trades scores 0.
func CompositeScore(tradeCount int, winRate, profitFactor, maxDrawdown float64) float64 {
	if tradeCount == 0 {
		return 0
	}

	pf := profitFactor
	if math.IsInf(pf, 1) || pf > ProfitFactorCap {
		pf = ProfitFactorCap
	}

	if pf < 0 || math.IsNaN(pf) {
		pf = 0
	}

	ddPenalty := math.Min(math.Max(maxDrawdown, 0)/DrawdownCap, 1)
	score := WinRateWeight*winRate + ProfitFactorWeight*pf/ProfitFactorCap + DrawdownWeight*(1-ddPenalty)

	return math.Max(0, math.Min(100, score))
}

// ProfitFactor is grossProfit/grossLoss, +Inf when there is profit and no loss,
// and 0 without trades.
func ProfitFactor(tradeCount int, grossProfit, grossLoss float64) float64 {
	switch {
	case tradeCount == 0:
		return 0
	case grossLoss == 0 && grossProfit > 0:
		return math.Inf(1)
	case grossLoss == 0:
		return 0
	default:
		return grossProfit / grossLoss
	}
}

// SharpeRatio is mean(returns)/std(returns)*sqrt(n) over per-trade returns,
// using the population deviation. It is 0 for fewer than two trades or
// returns without dispersion.
func SharpeRatio(returns []float64) float64 {
	n := float64(len(returns))
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= n

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	std := math.Sqrt(variance / n)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(n)
}

// StatsAccumulator holds running statistics of one simulation.
type StatsAccumulator struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	GrossProfit   decimal.Decimal
	GrossLoss     decimal.Decimal
	TotalFees     decimal.Decimal
	Equity        decimal.Decimal
	PeakEquity    decimal.Decimal
	MaxDrawdown   float64
	// Returns holds each trade's net PnL over its entry notional.
	Returns []float64
	Trades  []types.BacktestTrade
}

func newStatsAccumulator(initialBalance float64) *StatsAccumulator {
	equity := decimal.NewFromFloat(initialBalance)

	return &StatsAccumulator{
		TotalTrades:   0,
		WinningTrades: 0,
		LosingTrades:  0,
		GrossProfit:   decimal.Zero,
		GrossLoss:     decimal.Zero,
		TotalFees:     decimal.Zero,
		Equity:        equity,
		PeakEquity:    equity,
		MaxDrawdown:   0,
		Returns:       nil,
		Trades:        make([]types.BacktestTrade, 0),
	}
}

// addTrade books a closed trade whose net PnL already includes fees.
func (s *StatsAccumulator) addTrade(trade types.BacktestTrade, net, fees decimal.Decimal) {
	s.TotalTrades++
	s.TotalFees = s.TotalFees.Add(fees)
	s.Equity = s.Equity.Add(net)

	if net.IsPositive() {
		s.WinningTrades++
		s.GrossProfit = s.GrossProfit.Add(net)
	} else {
		s.LosingTrades++
		s.GrossLoss = s.GrossLoss.Add(net.Abs())
	}

	if notional := trade.EntryPrice * trade.Quantity; notional > 0 {
		s.Returns = append(s.Returns, net.InexactFloat64()/notional)
	}

	s.Trades = append(s.Trades, trade)
}

// mark updates the peak and drawdown with the equity including unrealized PnL.
func (s *StatsAccumulator) mark(unrealized decimal.Decimal) {
	equity := s.Equity.Add(unrealized)
	if equity.GreaterThan(s.PeakEquity) {
		s.PeakEquity = equity
	}

	if !s.PeakEquity.IsPositive() {
		return
	}

	dd := s.PeakEquity.Sub(equity).Div(s.PeakEquity).InexactFloat64()
	if dd > s.MaxDrawdown {
		s.MaxDrawdown = dd
	}
}

// result fills the metric fields of a BacktestResult.
func (s *StatsAccumulator) result(initialBalance float64) types.BacktestResult {
	grossProfit := s.GrossProfit.InexactFloat64()
	grossLoss := s.GrossLoss.InexactFloat64()

	winRate := 0.0
	if s.TotalTrades > 0 {
		winRate = float64(s.WinningTrades) / float64(s.TotalTrades)
	}

	pf := ProfitFactor(s.TotalTrades, grossProfit, grossLoss)

	return types.BacktestResult{
		TradeCount:     s.TotalTrades,
		WinningTrades:  s.WinningTrades,
		LosingTrades:   s.LosingTrades,
		WinRate:        winRate,
		ProfitFactor:   pf,
		SharpeRatio:    SharpeRatio(s.Returns),
		GrossProfit:    grossProfit,
		GrossLoss:      grossLoss,
		NetPnL:         s.Equity.Sub(decimal.NewFromFloat(initialBalance)).InexactFloat64(),
		TotalFees:      s.TotalFees.InexactFloat64(),
		MaxDrawdown:    s.MaxDrawdown,
		CompositeScore: CompositeScore(s.TotalTrades, winRate, pf, s.MaxDrawdown),
		Trades:         s.Trades,
	}
}
