package types

// Operator is the comparison a clause applies to its operands.
type Operator string

const (
	// OperatorLessThan holds when left < right.
	OperatorLessThan Operator = "lt"
	// OperatorGreaterThan holds when left > right.
	OperatorGreaterThan Operator = "gt"
	// OperatorAtOrBelow holds when left <= right*(1+tolerance).
	OperatorAtOrBelow Operator = "at_or_below"
	// OperatorAtOrAbove holds when left >= right*(1-tolerance).
	OperatorAtOrAbove Operator = "at_or_above"
	// OperatorCrossesAbove holds when left was <= right on the previous bar and is > right now.
	OperatorCrossesAbove Operator = "crosses_above"
	// OperatorCrossesBelow holds when left was >= right on the previous bar and is < right now.
	OperatorCrossesBelow Operator = "crosses_below"
	// OperatorRising holds when left increased since the previous bar.
	OperatorRising Operator = "rising"
	// OperatorFalling holds when left decreased since the previous bar.
	OperatorFalling Operator = "falling"
	// OperatorNearAny holds when |left-x|/left <= tolerance for any x in Any.
	OperatorNearAny Operator = "near_any"
)

// Operand is either a named series from the IndicatorSeries or a constant.
type Operand struct {
	Series string  `yaml:"series,omitempty" json:"series,omitempty"`
	Value  float64 `yaml:"value,omitempty" json:"value,omitempty"`
}

// SeriesOperand references a series by name.
func SeriesOperand(name string) Operand {
	return Operand{Series: name, Value: 0}
}

// ConstOperand is a constant operand.
func ConstOperand(value float64) Operand {
	return Operand{Series: "", Value: value}
}

// IsConst reports whether the operand is a constant.
func (o Operand) IsConst() bool {
	return o.Series == ""
}

// Clause is a single predicate over the latest aligned indicator values.
type Clause struct {
	Operator  Operator  `yaml:"op" json:"op"`
	Left      Operand   `yaml:"left" json:"left"`
	Right     Operand   `yaml:"right,omitempty" json:"right,omitempty"`
	Any       []Operand `yaml:"any,omitempty" json:"any,omitempty"`
	Tolerance float64   `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
}

// Condition is a named conjunction of clauses voting for one polarity.
type Condition struct {
	Name     string    `yaml:"name" json:"name"`
	Polarity Direction `yaml:"polarity" json:"polarity"`
	Clauses  []Clause  `yaml:"clauses" json:"clauses"`
}

// TrendFilterType selects how the trend filter is evaluated.
type TrendFilterType string

const (
	// TrendFilterNone disables the trend filter.
	TrendFilterNone TrendFilterType = "none"
	// TrendFilterSlope requires Series to have risen (LONG) or fallen (SHORT) over Lookback bars.
	TrendFilterSlope TrendFilterType = "slope"
	// TrendFilterOrdering requires Series above Reference (LONG) or below it (SHORT).
	TrendFilterOrdering TrendFilterType = "ordering"
)

// TrendFilter must agree with a signal's direction for the signal to be emitted.
type TrendFilter struct {
	Type      TrendFilterType `yaml:"type" json:"type"`
	Series    string          `yaml:"series,omitempty" json:"series,omitempty"`
	Reference string          `yaml:"reference,omitempty" json:"reference,omitempty"`
	Lookback  int             `yaml:"lookback,omitempty" json:"lookback,omitempty"`
}

// IndicatorSpec declares an indicator a strategy needs and its parameters.
// Unused parameters stay zero.
type IndicatorSpec struct {
	Type IndicatorType `yaml:"type" json:"type"`
	// Name overrides the output series name of single-output indicators.
	Name       string  `yaml:"name,omitempty" json:"name,omitempty"`
	Period     int     `yaml:"period,omitempty" json:"period,omitempty"`
	Fast       int     `yaml:"fast,omitempty" json:"fast,omitempty"`
	Slow       int     `yaml:"slow,omitempty" json:"slow,omitempty"`
	Signal     int     `yaml:"signal,omitempty" json:"signal,omitempty"`
	Multiplier float64 `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
}

// StrategyDefinition is a declarative rule set consumed by the signal scorer.
type StrategyDefinition struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Indicators  []IndicatorSpec `yaml:"indicators" json:"indicators"`
	Conditions  []Condition     `yaml:"conditions" json:"conditions"`
	MinStrength int             `yaml:"min_strength" json:"min_strength"`
	TrendFilter TrendFilter     `yaml:"trend_filter" json:"trend_filter"`
}
