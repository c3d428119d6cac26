// Package strategy turns declarative strategy definitions into signals.
//
// A StrategyDefinition is data. The scorer evaluates its conditions against
// the latest aligned indicator values, counts satisfied conditions per
// polarity, applies the trend filter and returns a Signal. Scoring holds no
// state and is safe to call concurrently.
package strategy

import (
	"math"

	"github.com/rxtech-lab/argo-futures/internal/indicator"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// Scorer evaluates strategy definitions.
type Scorer interface {
	// Score evaluates def against series, whose last values belong to bar.
	Score(symbol string, def types.StrategyDefinition, series types.IndicatorSeries, bar types.Bar) (types.Signal, error)
	// Evaluate computes the indicators def needs over bars and scores the last bar.
	Evaluate(symbol string, def types.StrategyDefinition, bars []types.Bar) (types.Signal, error)
	// Warmup returns the number of bars def needs before it can be evaluated.
	Warmup(def types.StrategyDefinition) (int, error)
}

// ScorerV1 scores definitions with indicators from a registry.
type ScorerV1 struct {
	registry indicator.IndicatorRegistry
}

var _ Scorer = (*ScorerV1)(nil)

// NewScorer creates a scorer backed by registry. A nil registry uses the built-in indicators.
func NewScorer(registry indicator.IndicatorRegistry) Scorer {
	if registry == nil {
		registry = indicator.NewDefaultRegistry()
	}

	return &ScorerV1{
		registry: registry,
	}
}

func (s *ScorerV1) Warmup(def types.StrategyDefinition) (int, error) {
	return s.registry.Warmup(def.Indicators)
}

func (s *ScorerV1) Evaluate(symbol string, def types.StrategyDefinition, bars []types.Bar) (types.Signal, error) {
	if len(bars) == 0 {
		return types.Signal{}, errors.NewInsufficientDataError(1, 0, symbol, "no bars to evaluate")
	}

	series, err := s.registry.Compute(bars, def.Indicators)
	if err != nil {
		return types.Signal{}, err
	}

	return s.Score(symbol, def, series, bars[len(bars)-1])
}

func (s *ScorerV1) Score(symbol string, def types.StrategyDefinition, series types.IndicatorSeries, bar types.Bar) (types.Signal, error) {
	var longHits, shortHits []string

	for _, cond := range def.Conditions {
		ok, err := evaluateCondition(cond, series)
		if err != nil {
			return types.Signal{}, errors.Wrapf(errors.GetCode(err), err,
				"strategy %s condition %s", def.ID, cond.Name)
		}

		if !ok {
			continue
		}

		switch cond.Polarity {
		case types.DirectionLong:
			longHits = append(longHits, cond.Name)
		case types.DirectionShort:
			shortHits = append(shortHits, cond.Name)
		case types.DirectionNone:
		}
	}

	direction := types.DirectionNone
	var winners []string

	switch {
	case len(longHits) > len(shortHits) && len(longHits) >= def.MinStrength:
		direction, winners = types.DirectionLong, longHits
	case len(shortHits) > len(longHits) && len(shortHits) >= def.MinStrength:
		direction, winners = types.DirectionShort, shortHits
	}

	if direction != types.DirectionNone {
		pass, err := trendAgrees(def.TrendFilter, direction, series)
		if err != nil {
			return types.Signal{}, errors.Wrapf(errors.GetCode(err), err,
				"strategy %s trend filter", def.ID)
		}

		if !pass {
			direction, winners = types.DirectionNone, nil
		}
	}

	strength := 0
	if direction != types.DirectionNone {
		strength = min(len(winners), types.MaxSignalStrength)
	}

	contributing := make([]string, len(winners))
	copy(contributing, winners)

	return types.Signal{
		Symbol:                 symbol,
		Direction:              direction,
		Strength:               strength,
		StrategyID:             def.ID,
		GeneratedAt:            bar.Time,
		ContributingIndicators: contributing,
		Price:                  bar.Close,
	}, nil
}

// evaluateCondition is the conjunction of the condition's clauses.
func evaluateCondition(cond types.Condition, series types.IndicatorSeries) (bool, error) {
	for _, clause := range cond.Clauses {
		ok, err := evaluateClause(clause, series)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return len(cond.Clauses) > 0, nil
}

// value resolves an operand n bars back. A missing value is reported as ok=false;
// a series that was never computed is an error.
func value(op types.Operand, series types.IndicatorSeries, n int) (float64, bool, error) {
	if op.IsConst() {
		return op.Value, true, nil
	}

	if !series.Has(op.Series) {
		return 0, false, errors.Newf(errors.ErrCodeUnknownSeries, "unknown series %q", op.Series)
	}

	v, ok := series.Back(op.Series, n)
	if !ok || math.IsNaN(v) {
		return 0, false, nil
	}

	return v, true, nil
}

func evaluateClause(clause types.Clause, series types.IndicatorSeries) (bool, error) {
	left, ok, err := value(clause.Left, series, 0)
	if err != nil || !ok {
		return false, err
	}

	switch clause.Operator {
	case types.OperatorRising, types.OperatorFalling:
		prev, ok, err := value(clause.Left, series, 1)
		if err != nil || !ok {
			return false, err
		}

		if clause.Operator == types.OperatorRising {
			return left > prev, nil
		}

		return left < prev, nil

	case types.OperatorNearAny:
		if left == 0 {
			return false, nil
		}

		for _, op := range clause.Any {
			level, ok, err := value(op, series, 0)
			if err != nil {
				return false, err
			}

			if ok && math.Abs(left-level)/math.Abs(left) <= clause.Tolerance {
				return true, nil
			}
		}

		return false, nil

	case types.OperatorLessThan, types.OperatorGreaterThan, types.OperatorAtOrBelow, types.OperatorAtOrAbove:
		right, ok, err := value(clause.Right, series, 0)
		if err != nil || !ok {
			return false, err
		}

		switch clause.Operator {
		case types.OperatorLessThan:
			return left < right, nil
		case types.OperatorGreaterThan:
			return left > right, nil
		case types.OperatorAtOrBelow:
			return left <= right*(1+clause.Tolerance), nil
		default:
			return left >= right*(1-clause.Tolerance), nil
		}

	case types.OperatorCrossesAbove, types.OperatorCrossesBelow:
		right, ok, err := value(clause.Right, series, 0)
		if err != nil || !ok {
			return false, err
		}

		prevLeft, okLeft, err := value(clause.Left, series, 1)
		if err != nil {
			return false, err
		}

		prevRight, okRight, err := value(clause.Right, series, 1)
		if err != nil {
			return false, err
		}

		// not enough history for a crossing
		if !okLeft || !okRight {
			return false, nil
		}

		if clause.Operator == types.OperatorCrossesAbove {
			return prevLeft <= prevRight && left > right, nil
		}

		return prevLeft >= prevRight && left < right, nil

	default:
		return false, errors.Newf(errors.ErrCodeStrategyConfigError, "unknown operator %q", clause.Operator)
	}
}

// trendAgrees reports whether the trend filter allows direction.
func trendAgrees(filter types.TrendFilter, direction types.Direction, series types.IndicatorSeries) (bool, error) {
	switch filter.Type {
	case types.TrendFilterNone, "":
		return true, nil

	case types.TrendFilterSlope:
		lookback := max(filter.Lookback, 1)

		now, ok, err := value(types.SeriesOperand(filter.Series), series, 0)
		if err != nil || !ok {
			return false, err
		}

		then, ok, err := value(types.SeriesOperand(filter.Series), series, lookback)
		if err != nil || !ok {
			return false, err
		}

		if direction == types.DirectionLong {
			return now > then, nil
		}

		return now < then, nil

	case types.TrendFilterOrdering:
		a, ok, err := value(types.SeriesOperand(filter.Series), series, 0)
		if err != nil || !ok {
			return false, err
		}

		b, ok, err := value(types.SeriesOperand(filter.Reference), series, 0)
		if err != nil || !ok {
			return false, err
		}

		if direction == types.DirectionLong {
			return a > b, nil
		}

		return a < b, nil

	default:
		return false, errors.Newf(errors.ErrCodeStrategyConfigError, "unknown trend filter %q", filter.Type)
	}
}
