package bot

import (
	"github.com/rxtech-lab/argo-futures/internal/position"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// OnStartCallback is called once the pre-run checks passed.
// Returning an error aborts the run.
type OnStartCallback func(symbols []string, balance float64) error

// OnStopCallback is called when Run returns (always called via defer).
type OnStopCallback func(err error)

// OnTickCallback is called after every evaluation tick.
type OnTickCallback func(snapshot types.BotSnapshot)

// OnSignalCallback is called for every actionable signal, eligible or not.
type OnSignalCallback func(signal types.Signal, eligibility risk.Eligibility)

// OnErrorCallback is called when a non-fatal error occurs.
type OnErrorCallback func(symbol string, err error)

// Callbacks holds all lifecycle callback functions for the bot.
// All fields are pointers - nil means no callback will be invoked.
type Callbacks struct {
	OnStart      *OnStartCallback
	OnStop       *OnStopCallback
	OnTick       *OnTickCallback
	OnSignal     *OnSignalCallback
	OnTransition *position.OnTransitionCallback
	OnError      *OnErrorCallback
}
