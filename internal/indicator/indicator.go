// Package indicator computes technical indicators from bar sequences.
//
// Every function is pure: it reads its input, never mutates it, and returns a
// fresh slice aligned to the tail of the input. A function fails with an
// InsufficientDataError, before doing any work, when the input is shorter than
// the indicator's warm-up length.
package indicator

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// Indicator computes one indicator type for a spec.
type Indicator interface {
	// Name returns the indicator type this implementation computes.
	Name() types.IndicatorType
	// Warmup returns the minimum number of bars Compute needs for spec.
	Warmup(spec types.IndicatorSpec) int
	// Compute returns the named output series for bars.
	Compute(bars []types.Bar, spec types.IndicatorSpec) (types.IndicatorSeries, error)
}

func requireLength(name string, required, actual int) error {
	if actual < required {
		return errors.NewInsufficientDataErrorf(required, actual, "",
			"%s needs %d values, got %d", name, required, actual)
	}

	return nil
}

func requirePeriod(name string, period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "%s period must be a positive integer, got %d", name, period)
	}

	return nil
}

func highs(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}

	return out
}

func lows(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}

	return out
}

// orDefault returns value unless it is zero.
func orDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}

	return value
}
