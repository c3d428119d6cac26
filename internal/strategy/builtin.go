package strategy

import (
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/indicator"
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Identifiers of the built-in strategies.
const (
	IDRSIBollingerVWAP    = "rsi_bb_vwap"
	IDMACDEMAVolume       = "macd_ema_vol"
	IDStochasticFibonacci = "stoch_fib_trend"
)

// Builtin returns the three shipped strategies parameterized by cfg.
// minStrength is the minimum satisfied-condition count for a direction.
func Builtin(cfg config.IndicatorConfig, minStrength int) []types.StrategyDefinition {
	return []types.StrategyDefinition{
		RSIBollingerVWAP(cfg, minStrength),
		MACDEMAVolume(cfg, minStrength),
		StochasticFibonacciTrend(cfg, minStrength),
	}
}

func ref(name string) types.Operand {
	return types.SeriesOperand(name)
}

func constant(v float64) types.Operand {
	return types.ConstOperand(v)
}

func compare(op types.Operator, left, right types.Operand, tolerance float64) types.Clause {
	return types.Clause{
		Operator:  op,
		Left:      left,
		Right:     right,
		Any:       nil,
		Tolerance: tolerance,
	}
}

func condition(name string, polarity types.Direction, clauses ...types.Clause) types.Condition {
	return types.Condition{
		Name:     name,
		Polarity: polarity,
		Clauses:  clauses,
	}
}

// RSIBollingerVWAP goes long on an oversold RSI with close at the lower band
// and above VWAP, and mirrors that for shorts. The long EMA must slope with the trade.
func RSIBollingerVWAP(cfg config.IndicatorConfig, minStrength int) types.StrategyDefinition {
	lastClose := ref(indicator.SeriesClose)
	emaLong := indicator.EMASeriesName(cfg.EMALong)

	return types.StrategyDefinition{
		ID:          IDRSIBollingerVWAP,
		Name:        "RSI + Bollinger Bands + VWAP",
		Description: "Mean reversion at the Bollinger bands confirmed by RSI extremes and VWAP side",
		Indicators: []types.IndicatorSpec{
			{Type: types.IndicatorTypeRSI, Name: "", Period: cfg.RSIPeriod, Fast: 0, Slow: 0, Signal: 0, Multiplier: 0},
			{Type: types.IndicatorTypeBollingerBands, Name: "", Period: cfg.BBPeriod, Fast: 0, Slow: 0, Signal: 0, Multiplier: cfg.BBStdDev},
			{Type: types.IndicatorTypeVWAP, Name: "", Period: 0, Fast: 0, Slow: 0, Signal: 0, Multiplier: 0},
			{Type: types.IndicatorTypeEMA, Name: "", Period: cfg.EMALong, Fast: 0, Slow: 0, Signal: 0, Multiplier: 0},
		},
		Conditions: []types.Condition{
			condition("rsi_oversold", types.DirectionLong,
				compare(types.OperatorLessThan, ref("rsi"), constant(cfg.RSIOversold), 0)),
			condition("near_lower_band", types.DirectionLong,
				compare(types.OperatorAtOrBelow, lastClose, ref(indicator.SeriesBBLower), cfg.BandProximity)),
			condition("above_vwap", types.DirectionLong,
				compare(types.OperatorGreaterThan, lastClose, ref(indicator.SeriesVWAP), 0)),
			condition("rsi_overbought", types.DirectionShort,
				compare(types.OperatorGreaterThan, ref("rsi"), constant(cfg.RSIOverbought), 0)),
			condition("near_upper_band", types.DirectionShort,
				compare(types.OperatorAtOrAbove, lastClose, ref(indicator.SeriesBBUpper), cfg.BandProximity)),
			condition("below_vwap", types.DirectionShort,
				compare(types.OperatorLessThan, lastClose, ref(indicator.SeriesVWAP), 0)),
		},
		MinStrength: minStrength,
		TrendFilter: types.TrendFilter{
			Type:      types.TrendFilterSlope,
			Series:    emaLong,
			Reference: "",
			Lookback:  cfg.TrendSlopeLookback,
		},
	}
}

// macdAgreement is the strength MACDEMAVolume needs. The EMA ordering and
// the volume surge hold for whole stretches of a trend, so only a bar that
// also crosses can reach it.
const macdAgreement = 3

// MACDEMAVolume follows a MACD crossing that agrees with the short/long EMA
// ordering on above-average volume. Volume votes for both sides, so it never
// breaks a tie. minStrength below macdAgreement is raised to it.
func MACDEMAVolume(cfg config.IndicatorConfig, minStrength int) types.StrategyDefinition {
	emaShort := ref(indicator.EMASeriesName(cfg.EMAShort))
	emaLong := ref(indicator.EMASeriesName(cfg.EMALong))
	volumeSurge := compare(types.OperatorAtOrAbove, ref(indicator.SeriesVolumeRatio), constant(cfg.VolumeThreshold), 0)

	return types.StrategyDefinition{
		ID:          IDMACDEMAVolume,
		Name:        "MACD + EMA + Volume",
		Description: "Momentum entries on MACD signal-line crossings in the direction of the EMA trend",
		Indicators: []types.IndicatorSpec{
			{Type: types.IndicatorTypeMACD, Name: "", Period: 0, Fast: cfg.MACDFast, Slow: cfg.MACDSlow, Signal: cfg.MACDSignal, Multiplier: 0},
			{Type: types.IndicatorTypeEMA, Name: "", Period: cfg.EMAShort, Fast: 0, Slow: 0, Signal: 0, Multiplier: 0},
			{Type: types.IndicatorTypeEMA, Name: "", Period: cfg.EMALong, Fast: 0, Slow: 0, Signal: 0, Multiplier: 0},
			{Type: types.IndicatorTypeVolume, Name: "", Period: cfg.VolumePeriod, Fast: 0, Slow: 0, Signal: 0, Multiplier: 0},
		},
		Conditions: []types.Condition{
			condition("macd_cross_up", types.DirectionLong,
				compare(types.OperatorCrossesAbove, ref(indicator.SeriesMACD), ref(indicator.SeriesMACDSignal), 0)),
			condition("ema_bullish", types.DirectionLong,
				compare(types.OperatorGreaterThan, emaShort, emaLong, 0)),
			condition("volume_surge_long", types.DirectionLong, volumeSurge),
			condition("macd_cross_down", types.DirectionShort,
				compare(types.OperatorCrossesBelow, ref(indicator.SeriesMACD), ref(indicator.SeriesMACDSignal), 0)),
			condition("ema_bearish", types.DirectionShort,
				compare(types.OperatorLessThan, emaShort, emaLong, 0)),
			condition("volume_surge_short", types.DirectionShort, volumeSurge),
		},
		MinStrength: max(minStrength, macdAgreement),
		TrendFilter: types.TrendFilter{
			Type:      types.TrendFilterNone,
			Series:    "",
			Reference: "",
			Lookback:  0,
		},
	}
}

// StochasticFibonacciTrend buys a rising %K out of oversold near a deep
// retracement level and sells a falling %K out of overbought near a shallow
// one. The medium EMA must slope with the trade.
func StochasticFibonacciTrend(cfg config.IndicatorConfig, minStrength int) types.StrategyDefinition {
	lastClose := ref(indicator.SeriesClose)
	stochK := ref(indicator.SeriesStochK)

	return types.StrategyDefinition{
		ID:          IDStochasticFibonacci,
		Name:        "Stochastic + Fibonacci + Trend",
		Description: "Stochastic reversals at Fibonacci retracement levels in the direction of the EMA trend",
		Indicators: []types.IndicatorSpec{
			{Type: types.IndicatorTypeStochastic, Name: "", Period: cfg.StochPeriod, Fast: 0, Slow: 0, Signal: cfg.StochSmoothing, Multiplier: 0},
			{Type: types.IndicatorTypeFibonacci, Name: "", Period: cfg.FibLookback, Fast: 0, Slow: 0, Signal: 0, Multiplier: 0},
			{Type: types.IndicatorTypeEMA, Name: "", Period: cfg.EMAMedium, Fast: 0, Slow: 0, Signal: 0, Multiplier: 0},
		},
		Conditions: []types.Condition{
			condition("stoch_oversold_rising", types.DirectionLong,
				compare(types.OperatorLessThan, stochK, constant(cfg.StochOversold), 0),
				compare(types.OperatorRising, stochK, types.Operand{}, 0)),
			condition("near_fib_support", types.DirectionLong, types.Clause{
				Operator:  types.OperatorNearAny,
				Left:      lastClose,
				Right:     types.Operand{},
				Any:       []types.Operand{ref(indicator.FibonacciSeriesName(0.618)), ref(indicator.FibonacciSeriesName(0.786))},
				Tolerance: cfg.FibProximity,
			}),
			condition("stoch_overbought_falling", types.DirectionShort,
				compare(types.OperatorGreaterThan, stochK, constant(cfg.StochOverbought), 0),
				compare(types.OperatorFalling, stochK, types.Operand{}, 0)),
			condition("near_fib_resistance", types.DirectionShort, types.Clause{
				Operator:  types.OperatorNearAny,
				Left:      lastClose,
				Right:     types.Operand{},
				Any:       []types.Operand{ref(indicator.FibonacciSeriesName(0.236)), ref(indicator.FibonacciSeriesName(0.382))},
				Tolerance: cfg.FibProximity,
			}),
		},
		MinStrength: minStrength,
		TrendFilter: types.TrendFilter{
			Type:      types.TrendFilterSlope,
			Series:    indicator.EMASeriesName(cfg.EMAMedium),
			Reference: "",
			Lookback:  cfg.TrendSlopeLookback,
		},
	}
}
