package types

type IndicatorType string

const (
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeMACD           IndicatorType = "macd"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
	IndicatorTypeVWAP           IndicatorType = "vwap"
	IndicatorTypeStochastic     IndicatorType = "stochastic"
	IndicatorTypeFibonacci      IndicatorType = "fibonacci"
	IndicatorTypeVolume         IndicatorType = "volume"
	IndicatorTypePrice          IndicatorType = "price"
)

// IndicatorSeries maps an output name (e.g. "rsi", "bb_lower", "ema200") to its values.
// Every series is aligned to the tail of the bar sequence it was computed from:
// the last value belongs to the most recent bar, and a series is shorter than
// the bars by its warm-up length.
type IndicatorSeries map[string][]float64

// Latest returns the value for the most recent bar.
func (s IndicatorSeries) Latest(name string) (float64, bool) {
	return s.Back(name, 0)
}

// Back returns the value n bars before the most recent one.
func (s IndicatorSeries) Back(name string, n int) (float64, bool) {
	values, ok := s[name]
	if !ok || n < 0 || len(values) <= n {
		return 0, false
	}

	return values[len(values)-1-n], true
}

// Has reports whether a series with the given name exists.
func (s IndicatorSeries) Has(name string) bool {
	_, ok := s[name]

	return ok
}

// Merge copies all series from other into s, overwriting duplicates.
func (s IndicatorSeries) Merge(other IndicatorSeries) {
	for name, values := range other {
		s[name] = values
	}
}
