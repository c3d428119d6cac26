package indicator

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Series names produced by VolumeIndicator.
const (
	SeriesVolumeSMA   = "volume_sma"
	SeriesVolumeRatio = "volume_ratio"
)

// VolumeIndicator outputs the rolling average volume and the ratio of each
// bar's volume to that average. A zero average yields a ratio of 1.
type VolumeIndicator struct{}

func NewVolume() Indicator {
	return &VolumeIndicator{}
}

func (v *VolumeIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeVolume
}

func (v *VolumeIndicator) Warmup(spec types.IndicatorSpec) int {
	return orDefault(spec.Period, 20)
}

func (v *VolumeIndicator) Compute(bars []types.Bar, spec types.IndicatorSpec) (types.IndicatorSeries, error) {
	period := orDefault(spec.Period, 20)
	volumes := types.Volumes(bars)

	avg, err := SMA(volumes, period)
	if err != nil {
		return nil, err
	}

	ratio := make([]float64, len(avg))
	for i, a := range avg {
		if a <= 0 {
			ratio[i] = 1
			continue
		}

		ratio[i] = volumes[i+period-1] / a
	}

	return types.IndicatorSeries{
		SeriesVolumeSMA:   avg,
		SeriesVolumeRatio: ratio,
	}, nil
}
