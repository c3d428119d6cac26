package types

import "time"

// Direction is the side a signal asks for.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// Opposite returns the mirror direction. NONE stays NONE.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	case DirectionNone:
		return DirectionNone
	default:
		return DirectionNone
	}
}

// MaxSignalStrength caps the number of satisfied conditions reported as strength.
const MaxSignalStrength = 5

// Signal is the immutable output of the signal scorer.
type Signal struct {
	Symbol     string    `json:"symbol" yaml:"symbol"`
	Direction  Direction `json:"direction" yaml:"direction"`
	Strength   int       `json:"strength" yaml:"strength"`
	StrategyID string    `json:"strategy_id" yaml:"strategy_id"`
	// GeneratedAt is the timestamp of the bar the signal was computed on.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	// ContributingIndicators lists the satisfied conditions of the winning polarity.
	ContributingIndicators []string `json:"contributing_indicators" yaml:"contributing_indicators"`
	// Price is the close of the bar the signal was computed on.
	Price float64 `json:"price" yaml:"price"`
}

// IsActionable reports whether the signal asks to open a position.
func (s Signal) IsActionable() bool {
	return s.Direction == DirectionLong || s.Direction == DirectionShort
}
