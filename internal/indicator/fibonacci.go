package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-futures/internal/types"
)

// FibonacciRatios are the retracement ratios applied to the swing range.
var FibonacciRatios = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

// Series names produced by FibonacciIndicator besides the per-ratio levels.
const (
	SeriesFibHigh = "fib_high"
	SeriesFibLow  = "fib_low"
)

// FibonacciSeriesName returns the series name for a ratio, e.g. 0.618 -> "fib_618".
func FibonacciSeriesName(ratio float64) string {
	return fmt.Sprintf("fib_%03d", int(ratio*1000+0.5))
}

// FibonacciLevels computes retracement levels high - ratio*(high-low) for the
// most recent swing, where the swing is the highest high and lowest low of the
// trailing lookback bars. Each level series has len(bars)-lookback+1 values.
func FibonacciLevels(bars []types.Bar, lookback int) (types.IndicatorSeries, error) {
	if err := requirePeriod("fibonacci lookback", lookback); err != nil {
		return nil, err
	}

	if err := requireLength("fibonacci", lookback, len(bars)); err != nil {
		return nil, err
	}

	swingHigh := RollingMax(highs(bars), lookback)
	swingLow := RollingMin(lows(bars), lookback)

	series := types.IndicatorSeries{
		SeriesFibHigh: swingHigh,
		SeriesFibLow:  swingLow,
	}

	for _, ratio := range FibonacciRatios {
		levels := make([]float64, len(swingHigh))
		for i := range swingHigh {
			levels[i] = swingHigh[i] - ratio*(swingHigh[i]-swingLow[i])
		}

		series[FibonacciSeriesName(ratio)] = levels
	}

	return series, nil
}

// FibonacciIndicator outputs "fib_high", "fib_low" and one "fib_NNN" series per ratio.
type FibonacciIndicator struct{}

func NewFibonacci() Indicator {
	return &FibonacciIndicator{}
}

func (f *FibonacciIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeFibonacci
}

func (f *FibonacciIndicator) Warmup(spec types.IndicatorSpec) int {
	return orDefault(spec.Period, 50)
}

func (f *FibonacciIndicator) Compute(bars []types.Bar, spec types.IndicatorSpec) (types.IndicatorSeries, error) {
	return FibonacciLevels(bars, orDefault(spec.Period, 50))
}
