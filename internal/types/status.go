package types

import "time"

// BotStatus represents the current state of the trading bot.
type BotStatus string

const (
	// BotStatusStarting indicates the bot is running its pre-run checks.
	BotStatusStarting BotStatus = "starting"

	// BotStatusRunning indicates the bot is evaluating ticks.
	BotStatusRunning BotStatus = "running"

	// BotStatusPaused indicates new entries are suspended (balance floor or exchange halt).
	BotStatusPaused BotStatus = "paused"

	// BotStatusStopped indicates the bot has stopped.
	BotStatusStopped BotStatus = "stopped"
)

// BotSnapshot is the status exposed by the status server.
type BotSnapshot struct {
	Status            BotStatus `json:"status" yaml:"status"`
	StartedAt         time.Time `json:"started_at" yaml:"started_at"`
	LastTick          time.Time `json:"last_tick" yaml:"last_tick"`
	Ticks             int64     `json:"ticks" yaml:"ticks"`
	Balance           float64   `json:"balance" yaml:"balance"`
	OpenPositions     int       `json:"open_positions" yaml:"open_positions"`
	Symbols           []string  `json:"symbols" yaml:"symbols"`
	Halted            bool      `json:"halted" yaml:"halted"`
	HaltReason        string    `json:"halt_reason,omitempty" yaml:"halt_reason,omitempty"`
	BackoffUntil      time.Time `json:"backoff_until,omitempty" yaml:"backoff_until,omitempty"`
	ConsecutiveErrors int       `json:"consecutive_errors" yaml:"consecutive_errors"`
}
