package types

import "time"

// TransitionRecord attributes a single position state change.
type TransitionRecord struct {
	Timestamp  time.Time     `yaml:"timestamp" json:"timestamp"`
	PositionID string        `yaml:"position_id" json:"position_id"`
	Symbol     string        `yaml:"symbol" json:"symbol"`
	StrategyID string        `yaml:"strategy_id" json:"strategy_id"`
	From       PositionState `yaml:"from" json:"from"`
	To         PositionState `yaml:"to" json:"to"`
	Reason     string        `yaml:"reason" json:"reason"`
}
