package indicator

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Series names produced by MACDIndicator.
const (
	SeriesMACD       = "macd"
	SeriesMACDSignal = "macd_signal"
	SeriesMACDHist   = "macd_hist"
)

// MACDResult holds the three MACD outputs, each tail aligned to the input.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the MACD line (fast EMA minus slow EMA), its signal EMA and the
// histogram. The line has len(closes)-slow+1 values and the signal and
// histogram have signal-1 fewer. It needs slow+signal-1 closes.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	if err := requirePeriod("macd fast", fast); err != nil {
		return MACDResult{}, err
	}

	if err := requirePeriod("macd slow", slow); err != nil {
		return MACDResult{}, err
	}

	if err := requirePeriod("macd signal", signal); err != nil {
		return MACDResult{}, err
	}

	if err := requireLength("macd", slow+signal-1, len(closes)); err != nil {
		return MACDResult{}, err
	}

	fastEMA, err := EMA(closes, fast)
	if err != nil {
		return MACDResult{}, err
	}

	slowEMA, err := EMA(closes, slow)
	if err != nil {
		return MACDResult{}, err
	}

	// align the fast EMA to the slow one
	offset := len(fastEMA) - len(slowEMA)
	line := make([]float64, len(slowEMA))

	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine, err := EMA(line, signal)
	if err != nil {
		return MACDResult{}, err
	}

	offset = len(line) - len(signalLine)
	hist := make([]float64, len(signalLine))

	for i := range signalLine {
		hist[i] = line[i+offset] - signalLine[i]
	}

	return MACDResult{
		Line:      line,
		Signal:    signalLine,
		Histogram: hist,
	}, nil
}

// MACDIndicator outputs "macd", "macd_signal" and "macd_hist".
type MACDIndicator struct{}

func NewMACD() Indicator {
	return &MACDIndicator{}
}

func (m *MACDIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

func (m *MACDIndicator) Warmup(spec types.IndicatorSpec) int {
	return orDefault(spec.Slow, 26) + orDefault(spec.Signal, 9) - 1
}

func (m *MACDIndicator) Compute(bars []types.Bar, spec types.IndicatorSpec) (types.IndicatorSeries, error) {
	result, err := MACD(types.Closes(bars), orDefault(spec.Fast, 12), orDefault(spec.Slow, 26), orDefault(spec.Signal, 9))
	if err != nil {
		return nil, err
	}

	return types.IndicatorSeries{
		SeriesMACD:       result.Line,
		SeriesMACDSignal: result.Signal,
		SeriesMACDHist:   result.Histogram,
	}, nil
}
