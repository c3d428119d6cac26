package strategy

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/indicator"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ScorerTestSuite struct {
	suite.Suite
	scorer Scorer
	bar    types.Bar
}

func TestScorerSuite(t *testing.T) {
	suite.Run(t, new(ScorerTestSuite))
}

func (suite *ScorerTestSuite) SetupTest() {
	suite.scorer = NewScorer(nil)
	suite.bar = types.Bar{
		Time:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Open:   101,
		High:   101.5,
		Low:    100,
		Close:  100.5,
		Volume: 1200,
	}
}

// oversoldSeries has RSI at 25, close at the lower band, close above VWAP and a rising EMA200.
func oversoldSeries() types.IndicatorSeries {
	return types.IndicatorSeries{
		"close":     {101, 100.5},
		"rsi":       {40, 25},
		"bb_lower":  {100, 100},
		"bb_middle": {105, 105},
		"bb_upper":  {110, 110},
		"vwap":      {95, 95},
		"ema200":    {199, 200},
	}
}

func alwaysTrue(name string, polarity types.Direction) types.Condition {
	return condition(name, polarity, compare(types.OperatorGreaterThan, ref("close"), constant(0), 0))
}

func (suite *ScorerTestSuite) TestOversoldBounceIsLongStrengthThree() {
	def := RSIBollingerVWAP(config.Default().Indicators, 2)

	signal, err := suite.scorer.Score("BTCUSDT", def, oversoldSeries(), suite.bar)
	suite.Require().NoError(err)

	suite.Equal(types.DirectionLong, signal.Direction)
	suite.Equal(3, signal.Strength)
	suite.Equal(IDRSIBollingerVWAP, signal.StrategyID)
	suite.Equal("BTCUSDT", signal.Symbol)
	suite.Equal(suite.bar.Time, signal.GeneratedAt)
	suite.Equal(100.5, signal.Price)
	suite.ElementsMatch([]string{"rsi_oversold", "near_lower_band", "above_vwap"}, signal.ContributingIndicators)
}

func (suite *ScorerTestSuite) TestMACDStrategyNeedsACrossing() {
	cfg := config.Default().Indicators
	def := MACDEMAVolume(cfg, 2)
	suite.Equal(3, def.MinStrength)

	trend := func(macd []float64) types.IndicatorSeries {
		return types.IndicatorSeries{
			indicator.SeriesMACD:                  macd,
			indicator.SeriesMACDSignal:            {0.5, 0.6},
			indicator.EMASeriesName(cfg.EMAShort): {110, 111},
			indicator.EMASeriesName(cfg.EMALong):  {100, 100.5},
			indicator.SeriesVolumeRatio:           {1, 2},
		}
	}

	// EMA ordering and volume alone are not enough
	signal, err := suite.scorer.Score("BTCUSDT", def, trend([]float64{1.0, 1.2}), suite.bar)
	suite.Require().NoError(err)
	suite.Equal(types.DirectionNone, signal.Direction)
	suite.Equal(0, signal.Strength)

	signal, err = suite.scorer.Score("BTCUSDT", def, trend([]float64{0.4, 0.7}), suite.bar)
	suite.Require().NoError(err)
	suite.Equal(types.DirectionLong, signal.Direction)
	suite.Equal(3, signal.Strength)
	suite.ElementsMatch([]string{"macd_cross_up", "ema_bullish", "volume_surge_long"}, signal.ContributingIndicators)
}

func (suite *ScorerTestSuite) TestFailingTrendFilterForcesNone() {
	def := RSIBollingerVWAP(config.Default().Indicators, 2)
	series := oversoldSeries()
	series["ema200"] = []float64{201, 200}

	signal, err := suite.scorer.Score("BTCUSDT", def, series, suite.bar)
	suite.Require().NoError(err)
	suite.Equal(types.DirectionNone, signal.Direction)
	suite.Equal(0, signal.Strength)
	suite.Empty(signal.ContributingIndicators)
}

func (suite *ScorerTestSuite) TestAllConditionsSatisfiedButTrendFails() {
	def := types.StrategyDefinition{
		ID:   "five_of_five",
		Name: "five",
		Conditions: []types.Condition{
			alwaysTrue("a", types.DirectionLong),
			alwaysTrue("b", types.DirectionLong),
			alwaysTrue("c", types.DirectionLong),
			alwaysTrue("d", types.DirectionLong),
			alwaysTrue("e", types.DirectionLong),
		},
		MinStrength: 1,
		TrendFilter: types.TrendFilter{Type: types.TrendFilterOrdering, Series: "ema50", Reference: "ema200"},
	}
	series := types.IndicatorSeries{
		"close":  {100},
		"ema50":  {90},
		"ema200": {95},
	}

	signal, err := suite.scorer.Score("ETHUSDT", def, series, suite.bar)
	suite.Require().NoError(err)
	suite.Equal(types.DirectionNone, signal.Direction)

	series["ema50"] = []float64{99}
	signal, err = suite.scorer.Score("ETHUSDT", def, series, suite.bar)
	suite.Require().NoError(err)
	suite.Equal(types.DirectionLong, signal.Direction)
	suite.Equal(5, signal.Strength)
}

func (suite *ScorerTestSuite) TestStrengthIsCapped() {
	conds := make([]types.Condition, 0, 7)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		conds = append(conds, alwaysTrue(name, types.DirectionShort))
	}

	def := types.StrategyDefinition{ID: "many", Conditions: conds, MinStrength: 2}

	signal, err := suite.scorer.Score("SOLUSDT", def, types.IndicatorSeries{"close": {10}}, suite.bar)
	suite.Require().NoError(err)
	suite.Equal(types.DirectionShort, signal.Direction)
	suite.Equal(types.MaxSignalStrength, signal.Strength)
	suite.Len(signal.ContributingIndicators, 7)
}

func (suite *ScorerTestSuite) TestTieAndMinimumStrength() {
	tests := []struct {
		name     string
		conds    []types.Condition
		min      int
		expected types.Direction
	}{
		{
			name:     "tie is none",
			conds:    []types.Condition{alwaysTrue("l", types.DirectionLong), alwaysTrue("s", types.DirectionShort)},
			min:      1,
			expected: types.DirectionNone,
		},
		{
			name:     "below minimum is none",
			conds:    []types.Condition{alwaysTrue("l", types.DirectionLong)},
			min:      2,
			expected: types.DirectionNone,
		},
		{
			name:     "strictly more long",
			conds:    []types.Condition{alwaysTrue("l1", types.DirectionLong), alwaysTrue("l2", types.DirectionLong), alwaysTrue("s", types.DirectionShort)},
			min:      2,
			expected: types.DirectionLong,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			def := types.StrategyDefinition{ID: "t", Conditions: tc.conds, MinStrength: tc.min}
			signal, err := suite.scorer.Score("BTCUSDT", def, types.IndicatorSeries{"close": {1}}, suite.bar)
			suite.Require().NoError(err)
			suite.Equal(tc.expected, signal.Direction)
		})
	}
}

func (suite *ScorerTestSuite) TestDeterministic() {
	def := RSIBollingerVWAP(config.Default().Indicators, 2)

	first, err := suite.scorer.Score("BTCUSDT", def, oversoldSeries(), suite.bar)
	suite.Require().NoError(err)

	for range 20 {
		again, err := suite.scorer.Score("BTCUSDT", def, oversoldSeries(), suite.bar)
		suite.Require().NoError(err)
		suite.Equal(first, again)
	}
}

func (suite *ScorerTestSuite) TestUnknownSeries() {
	def := types.StrategyDefinition{
		ID:          "bad",
		Conditions:  []types.Condition{condition("x", types.DirectionLong, compare(types.OperatorLessThan, ref("adx"), constant(20), 0))},
		MinStrength: 1,
	}

	_, err := suite.scorer.Score("BTCUSDT", def, types.IndicatorSeries{"close": {1}}, suite.bar)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownSeries))
}

func (suite *ScorerTestSuite) TestClauseOperators() {
	series := types.IndicatorSeries{
		"a":     {1, 3},
		"b":     {2, 2},
		"c":     {5},
		"close": {100},
		"lvl":   {100.4},
	}

	tests := []struct {
		name     string
		clause   types.Clause
		expected bool
	}{
		{"lt", compare(types.OperatorLessThan, ref("b"), ref("a"), 0), true},
		{"gt", compare(types.OperatorGreaterThan, ref("b"), ref("a"), 0), false},
		{"at or below within tolerance", compare(types.OperatorAtOrBelow, ref("close"), constant(99.5), 0.01), true},
		{"at or below outside tolerance", compare(types.OperatorAtOrBelow, ref("close"), constant(98), 0.01), false},
		{"at or above within tolerance", compare(types.OperatorAtOrAbove, ref("close"), constant(100.5), 0.01), true},
		{"crosses above", compare(types.OperatorCrossesAbove, ref("a"), ref("b"), 0), true},
		{"crosses below", compare(types.OperatorCrossesBelow, ref("a"), ref("b"), 0), false},
		{"crossing needs history", compare(types.OperatorCrossesAbove, ref("c"), ref("b"), 0), false},
		{"rising", compare(types.OperatorRising, ref("a"), types.Operand{}, 0), true},
		{"falling", compare(types.OperatorFalling, ref("a"), types.Operand{}, 0), false},
		{"flat is not rising", compare(types.OperatorRising, ref("b"), types.Operand{}, 0), false},
		{
			"near any",
			types.Clause{Operator: types.OperatorNearAny, Left: ref("close"), Any: []types.Operand{constant(90), ref("lvl")}, Tolerance: 0.005},
			true,
		},
		{
			"near none",
			types.Clause{Operator: types.OperatorNearAny, Left: ref("close"), Any: []types.Operand{constant(90)}, Tolerance: 0.005},
			false,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			ok, err := evaluateClause(tc.clause, series)
			suite.Require().NoError(err)
			suite.Equal(tc.expected, ok)
		})
	}
}

func (suite *ScorerTestSuite) TestEvaluateNeedsWarmup() {
	def := RSIBollingerVWAP(config.Default().Indicators, 2)
	bars := make([]types.Bar, 50)

	for i := range bars {
		bars[i] = types.Bar{Time: suite.bar.Time.Add(time.Duration(i) * time.Minute), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
	}

	_, err := suite.scorer.Evaluate("BTCUSDT", def, bars)
	suite.True(errors.IsInsufficientDataError(err))

	warmup, err := suite.scorer.Warmup(def)
	suite.NoError(err)
	suite.Equal(200, warmup)
}
