package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Series names produced by BollingerBandsIndicator.
const (
	SeriesBBUpper  = "bb_upper"
	SeriesBBMiddle = "bb_middle"
	SeriesBBLower  = "bb_lower"
)

// BollingerBandsResult holds the three bands, each with len(closes)-period+1 values.
type BollingerBandsResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// BollingerBands computes the rolling mean plus and minus k population standard deviations.
func BollingerBands(closes []float64, period int, k float64) (BollingerBandsResult, error) {
	if err := requirePeriod("bollinger bands", period); err != nil {
		return BollingerBandsResult{}, err
	}

	if err := requireLength("bollinger bands", period, len(closes)); err != nil {
		return BollingerBandsResult{}, err
	}

	middle, err := SMA(closes, period)
	if err != nil {
		return BollingerBandsResult{}, err
	}

	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))

	for i, mean := range middle {
		window := closes[i : i+period]
		variance := 0.0

		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}

		sd := math.Sqrt(variance / float64(period))
		upper[i] = mean + k*sd
		lower[i] = mean - k*sd
	}

	return BollingerBandsResult{
		Upper:  upper,
		Middle: middle,
		Lower:  lower,
	}, nil
}

// BollingerBandsIndicator outputs "bb_upper", "bb_middle" and "bb_lower".
type BollingerBandsIndicator struct{}

func NewBollingerBands() Indicator {
	return &BollingerBandsIndicator{}
}

func (b *BollingerBandsIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

func (b *BollingerBandsIndicator) Warmup(spec types.IndicatorSpec) int {
	return orDefault(spec.Period, 20)
}

func (b *BollingerBandsIndicator) Compute(bars []types.Bar, spec types.IndicatorSpec) (types.IndicatorSeries, error) {
	result, err := BollingerBands(types.Closes(bars), orDefault(spec.Period, 20), orDefault(spec.Multiplier, 2.0))
	if err != nil {
		return nil, err
	}

	return types.IndicatorSeries{
		SeriesBBUpper:  result.Upper,
		SeriesBBMiddle: result.Middle,
		SeriesBBLower:  result.Lower,
	}, nil
}
