package indicator

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// RSI computes the Relative Strength Index with Wilder smoothing.
// The result has len(closes)-period values; the first belongs to closes[period].
func RSI(closes []float64, period int) ([]float64, error) {
	if err := requirePeriod("rsi", period); err != nil {
		return nil, err
	}

	if err := requireLength("rsi", period+1, len(closes)); err != nil {
		return nil, err
	}

	avgGain, avgLoss := 0.0, 0.0

	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0

		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}

	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}

		return 100
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs)
}

// RSIIndicator outputs the "rsi" series, or spec.Name when set.
type RSIIndicator struct{}

func NewRSI() Indicator {
	return &RSIIndicator{}
}

func (r *RSIIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

func (r *RSIIndicator) Warmup(spec types.IndicatorSpec) int {
	return orDefault(spec.Period, 14) + 1
}

func (r *RSIIndicator) Compute(bars []types.Bar, spec types.IndicatorSpec) (types.IndicatorSeries, error) {
	values, err := RSI(types.Closes(bars), orDefault(spec.Period, 14))
	if err != nil {
		return nil, err
	}

	return types.IndicatorSeries{orDefault(spec.Name, "rsi"): values}, nil
}
