package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-futures/internal/types"
)

// SMA computes the simple moving average. The result has len(values)-period+1 values.
func SMA(values []float64, period int) ([]float64, error) {
	if err := requirePeriod("sma", period); err != nil {
		return nil, err
	}

	if err := requireLength("sma", period, len(values)); err != nil {
		return nil, err
	}

	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0

	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}

	return out, nil
}

// EMA computes the exponential moving average seeded with the SMA of the first
// period values. The result has len(values)-period+1 values.
func EMA(values []float64, period int) ([]float64, error) {
	if err := requirePeriod("ema", period); err != nil {
		return nil, err
	}

	if err := requireLength("ema", period, len(values)); err != nil {
		return nil, err
	}

	k := 2.0 / float64(period+1)
	seed := 0.0

	for _, v := range values[:period] {
		seed += v
	}

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed/float64(period))

	for _, v := range values[period:] {
		prev := out[len(out)-1]
		out = append(out, (v-prev)*k+prev)
	}

	return out, nil
}

// EMAIndicator outputs "ema{period}" (e.g. "ema200"), or spec.Name when set.
type EMAIndicator struct{}

func NewEMA() Indicator {
	return &EMAIndicator{}
}

func (e *EMAIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

func (e *EMAIndicator) Warmup(spec types.IndicatorSpec) int {
	return orDefault(spec.Period, 20)
}

func (e *EMAIndicator) Compute(bars []types.Bar, spec types.IndicatorSpec) (types.IndicatorSeries, error) {
	period := orDefault(spec.Period, 20)

	values, err := EMA(types.Closes(bars), period)
	if err != nil {
		return nil, err
	}

	return types.IndicatorSeries{orDefault(spec.Name, EMASeriesName(period)): values}, nil
}

// EMASeriesName is the default series name of an EMA with the given period.
func EMASeriesName(period int) string {
	return fmt.Sprintf("ema%d", period)
}
