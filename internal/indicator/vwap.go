package indicator

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// SeriesVWAP is the series name produced by VWAPIndicator.
const SeriesVWAP = "vwap"

// VWAP computes the cumulative volume weighted average of the typical price
// (high+low+close)/3 from the first bar. While cumulative volume is zero the
// typical price itself is used.
func VWAP(bars []types.Bar) ([]float64, error) {
	if err := requireLength("vwap", 1, len(bars)); err != nil {
		return nil, err
	}

	out := make([]float64, len(bars))
	cumPV, cumVolume := 0.0, 0.0

	for i, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		cumPV += typical * b.Volume
		cumVolume += b.Volume

		if cumVolume == 0 {
			out[i] = typical
		} else {
			out[i] = cumPV / cumVolume
		}
	}

	return out, nil
}

// VWAPIndicator outputs the "vwap" series.
type VWAPIndicator struct{}

func NewVWAP() Indicator {
	return &VWAPIndicator{}
}

func (v *VWAPIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeVWAP
}

func (v *VWAPIndicator) Warmup(_ types.IndicatorSpec) int {
	return 1
}

func (v *VWAPIndicator) Compute(bars []types.Bar, spec types.IndicatorSpec) (types.IndicatorSeries, error) {
	values, err := VWAP(bars)
	if err != nil {
		return nil, err
	}

	return types.IndicatorSeries{orDefault(spec.Name, SeriesVWAP): values}, nil
}
