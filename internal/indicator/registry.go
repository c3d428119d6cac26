package indicator

import (
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// IndicatorRegistry manages all available indicators.
type IndicatorRegistry interface {
	RegisterIndicator(indicator Indicator) error
	GetIndicator(name types.IndicatorType) (Indicator, error)
	ListIndicators() []types.IndicatorType
	RemoveIndicator(name types.IndicatorType) error
	// Warmup returns the bars needed to compute every spec.
	Warmup(specs []types.IndicatorSpec) (int, error)
	// Compute evaluates specs over bars and merges the outputs together with the raw price series.
	Compute(bars []types.Bar, specs []types.IndicatorSpec) (types.IndicatorSeries, error)
}

// IndicatorRegistryV1 manages all available indicators.
type IndicatorRegistryV1 struct {
	indicators map[types.IndicatorType]Indicator
	mu         sync.RWMutex
}

// NewIndicatorRegistry creates an empty indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		indicators: make(map[types.IndicatorType]Indicator),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry holding every built-in indicator.
func NewDefaultRegistry() IndicatorRegistry {
	registry := NewIndicatorRegistry()
	for _, ind := range []Indicator{
		NewRSI(),
		NewEMA(),
		NewMACD(),
		NewBollingerBands(),
		NewVWAP(),
		NewStochastic(),
		NewFibonacci(),
		NewVolume(),
		NewPrice(),
	} {
		// names are distinct
		_ = registry.RegisterIndicator(ind)
	}

	return registry
}

// RegisterIndicator adds an indicator to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := indicator.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator with name %s already registered", name)
	}

	r.indicators[name] = indicator

	return nil
}

// GetIndicator retrieves an indicator by name.
func (r *IndicatorRegistryV1) GetIndicator(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	return indicator, nil
}

// ListIndicators returns all registered indicator names in sorted order.
func (r *IndicatorRegistryV1) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	return nil
}

func (r *IndicatorRegistryV1) Warmup(specs []types.IndicatorSpec) (int, error) {
	warmup := 1

	for _, spec := range specs {
		ind, err := r.GetIndicator(spec.Type)
		if err != nil {
			return 0, err
		}

		warmup = max(warmup, ind.Warmup(spec))
	}

	return warmup, nil
}

func (r *IndicatorRegistryV1) Compute(bars []types.Bar, specs []types.IndicatorSpec) (types.IndicatorSeries, error) {
	warmup, err := r.Warmup(specs)
	if err != nil {
		return nil, err
	}

	// fail before computing anything
	if err := requireLength("indicator set", warmup, len(bars)); err != nil {
		return nil, err
	}

	price, err := r.GetIndicator(types.IndicatorTypePrice)
	if err != nil {
		price = NewPrice()
	}

	series, err := price.Compute(bars, types.IndicatorSpec{Type: types.IndicatorTypePrice})
	if err != nil {
		return nil, err
	}

	for _, spec := range specs {
		ind, err := r.GetIndicator(spec.Type)
		if err != nil {
			return nil, err
		}

		out, err := ind.Compute(bars, spec)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to compute %s", spec.Type)
		}

		series.Merge(out)
	}

	return series, nil
}
