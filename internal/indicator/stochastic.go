package indicator

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Series names produced by StochasticIndicator.
const (
	SeriesStochK = "stoch_k"
	SeriesStochD = "stoch_d"
)

// StochasticResult holds %K with len(bars)-period+1 values and %D with smoothing-1 fewer.
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes %K = 100*(close-lowest low)/(highest high-lowest low)
// over period bars and %D as the SMA of %K over smoothing values. A flat window
// yields %K = 50.
func Stochastic(bars []types.Bar, period, smoothing int) (StochasticResult, error) {
	if err := requirePeriod("stochastic", period); err != nil {
		return StochasticResult{}, err
	}

	if err := requirePeriod("stochastic smoothing", smoothing); err != nil {
		return StochasticResult{}, err
	}

	if err := requireLength("stochastic", period+smoothing-1, len(bars)); err != nil {
		return StochasticResult{}, err
	}

	highest := RollingMax(highs(bars), period)
	lowest := RollingMin(lows(bars), period)
	k := make([]float64, len(highest))

	for i := range highest {
		last := bars[i+period-1].Close
		span := highest[i] - lowest[i]

		if span == 0 {
			k[i] = 50
			continue
		}

		k[i] = 100 * (last - lowest[i]) / span
	}

	d, err := SMA(k, smoothing)
	if err != nil {
		return StochasticResult{}, err
	}

	return StochasticResult{
		K: k,
		D: d,
	}, nil
}

// RollingMax returns the maximum of each window of period values.
// The caller guarantees len(values) >= period > 0.
func RollingMax(values []float64, period int) []float64 {
	return rolling(values, period, func(a, b float64) bool { return a > b })
}

// RollingMin returns the minimum of each window of period values.
// The caller guarantees len(values) >= period > 0.
func RollingMin(values []float64, period int) []float64 {
	return rolling(values, period, func(a, b float64) bool { return a < b })
}

// rolling keeps a monotonic deque of indexes so each window costs O(1) amortized.
func rolling(values []float64, period int, better func(a, b float64) bool) []float64 {
	out := make([]float64, 0, len(values)-period+1)
	deque := make([]int, 0, period)

	for i, v := range values {
		for len(deque) > 0 && deque[0] <= i-period {
			deque = deque[1:]
		}

		for len(deque) > 0 && !better(values[deque[len(deque)-1]], v) {
			deque = deque[:len(deque)-1]
		}

		deque = append(deque, i)

		if i >= period-1 {
			out = append(out, values[deque[0]])
		}
	}

	return out
}

// StochasticIndicator outputs "stoch_k" and "stoch_d".
type StochasticIndicator struct{}

func NewStochastic() Indicator {
	return &StochasticIndicator{}
}

func (s *StochasticIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeStochastic
}

func (s *StochasticIndicator) Warmup(spec types.IndicatorSpec) int {
	return orDefault(spec.Period, 14) + orDefault(spec.Signal, 3) - 1
}

func (s *StochasticIndicator) Compute(bars []types.Bar, spec types.IndicatorSpec) (types.IndicatorSeries, error) {
	result, err := Stochastic(bars, orDefault(spec.Period, 14), orDefault(spec.Signal, 3))
	if err != nil {
		return nil, err
	}

	return types.IndicatorSeries{
		SeriesStochK: result.K,
		SeriesStochD: result.D,
	}, nil
}
