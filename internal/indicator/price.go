package indicator

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Raw bar series exposed to strategy conditions.
const (
	SeriesOpen   = "open"
	SeriesHigh   = "high"
	SeriesLow    = "low"
	SeriesClose  = "close"
	SeriesVolume = "volume"
)

// PriceIndicator exposes the raw bar fields as series so conditions can compare
// price against indicator levels.
type PriceIndicator struct{}

func NewPrice() Indicator {
	return &PriceIndicator{}
}

func (p *PriceIndicator) Name() types.IndicatorType {
	return types.IndicatorTypePrice
}

func (p *PriceIndicator) Warmup(_ types.IndicatorSpec) int {
	return 1
}

func (p *PriceIndicator) Compute(bars []types.Bar, _ types.IndicatorSpec) (types.IndicatorSeries, error) {
	if err := requireLength("price", 1, len(bars)); err != nil {
		return nil, err
	}

	opens := make([]float64, len(bars))
	for i, b := range bars {
		opens[i] = b.Open
	}

	return types.IndicatorSeries{
		SeriesOpen:   opens,
		SeriesHigh:   highs(bars),
		SeriesLow:    lows(bars),
		SeriesClose:  types.Closes(bars),
		SeriesVolume: types.Volumes(bars),
	}, nil
}
