// Package position owns the lifecycle of leveraged positions.
//
// Every position moves through CANDIDATE, SIZING, SUBMITTING, OPEN, CLOSING
// and CLOSED, or ends in REJECTED or FAILED. Transitions of one symbol are
// serialized by a per-symbol lock. The open-position counter is reserved
// before SIZING and released only when a position is terminal and its
// exchange-side outcome is known, so the concurrency limit holds exactly
// under concurrent evaluation.
package position

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/exchange"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/notify"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

// Client order id prefixes. Each id is a prefix plus 32 hex characters.
const (
	entryIDPrefix      = "ae"
	exitIDPrefix       = "ax"
	stopLossIDPrefix   = "sl"
	takeProfitIDPrefix = "tp"
)

const maxHistory = 200

// EligibilitySource reports the latest backtest verdict. *backtest.Registry satisfies it.
type EligibilitySource interface {
	Eligibility(strategyID, symbol string) risk.Eligibility
}

// OnTransitionCallback is called after every recorded transition.
type OnTransitionCallback func(record types.TransitionRecord, position types.Position)

// Callbacks holds optional hooks.
// All fields are pointers - nil means no callback will be invoked.
type Callbacks struct {
	OnTransition *OnTransitionCallback
}

// Config holds the manager settings.
type Config struct {
	Risk             config.RiskConfig
	RequestTimeout   time.Duration
	ConfirmTimeout   time.Duration
	RateLimitBackoff time.Duration
}

// NewConfig extracts the manager settings from the application config.
func NewConfig(cfg config.Config) Config {
	return Config{
		Risk:             cfg.Risk,
		RequestTimeout:   cfg.Exchange.RequestTimeout,
		ConfirmTimeout:   cfg.Exchange.ConfirmTimeout,
		RateLimitBackoff: cfg.Exchange.RateLimitBackoff,
	}
}

// tracked is a position holding an open-position slot.
type tracked struct {
	position types.Position
	levels   risk.Levels
	rules    types.SymbolRules
	// entryBar is the time of the bar the entry signal was computed on.
	// Bars up to and including it never trigger an exit.
	entryBar time.Time
	// notified is set once a pending reconciliation or a stalled exit was reported.
	notified bool
}

// Manager is the Position Lifecycle Manager.
type Manager struct {
	exchange    exchange.Exchange
	gate        *risk.Gate
	eligibility EligibilitySource
	recorder    journal.Recorder
	notifier    notify.Notifier
	log         *logger.Logger
	cfg         Config
	callbacks   Callbacks
	now         func() time.Time
	newID       func() string

	symbolMu    sync.Mutex
	symbolLocks map[string]*sync.Mutex

	// mu guards everything below.
	mu           sync.Mutex
	active       map[string]*tracked
	history      []types.Position
	external     map[string]types.ExchangePosition
	prepared     map[string]bool
	lastPrice    map[string]float64
	haltReason   string
	backoffUntil time.Time
}

// NewManager creates a manager. eligibility and recorder may be nil.
func NewManager(
	ex exchange.Exchange,
	gate *risk.Gate,
	eligibility EligibilitySource,
	recorder journal.Recorder,
	notifier notify.Notifier,
	cfg Config,
	log *logger.Logger,
) *Manager {
	if notifier == nil {
		notifier = notify.Nop{}
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 5 * time.Second
	}

	return &Manager{
		exchange:     ex,
		gate:         gate,
		eligibility:  eligibility,
		recorder:     recorder,
		notifier:     notifier,
		log:          log,
		cfg:          cfg,
		callbacks:    Callbacks{OnTransition: nil},
		now:          time.Now,
		newID:        newHexID,
		symbolMu:     sync.Mutex{},
		symbolLocks:  make(map[string]*sync.Mutex),
		mu:           sync.Mutex{},
		active:       make(map[string]*tracked),
		history:      nil,
		external:     make(map[string]types.ExchangePosition),
		prepared:     make(map[string]bool),
		lastPrice:    make(map[string]float64),
		haltReason:   "",
		backoffUntil: time.Time{},
	}
}

// SetCallbacks installs lifecycle hooks. Call before the first Open.
func (m *Manager) SetCallbacks(callbacks Callbacks) {
	m.callbacks = callbacks
}

func newHexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (m *Manager) clientOrderID(prefix string) string {
	return prefix + m.newID()
}

// lockSymbol serializes all transitions of symbol.
func (m *Manager) lockSymbol(symbol string) func() {
	m.symbolMu.Lock()
	lock, ok := m.symbolLocks[symbol]

	if !ok {
		lock = &sync.Mutex{}
		m.symbolLocks[symbol] = lock
	}
	m.symbolMu.Unlock()

	lock.Lock()

	return lock.Unlock
}

// OpenCount returns the number of positions holding a slot.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.active)
}

// Positions returns a copy of every position holding a slot, sorted by symbol.
func (m *Manager) Positions() []types.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Position, 0, len(m.active))
	for _, t := range m.active {
		out = append(out, t.position)
	}

	sortBySymbol(out)

	return out
}

// Position returns the active position of symbol.
func (m *Manager) Position(symbol string) (types.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.active[symbol]
	if !ok {
		return types.Position{}, false
	}

	return t.position, true
}

// History returns the most recent terminal positions, oldest first.
func (m *Manager) History() []types.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]types.Position(nil), m.history...)
}

// Blocked reports whether new submissions are halted or backing off.
func (m *Manager) Blocked() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.blockedLocked()
}

func (m *Manager) blockedLocked() (bool, string) {
	if m.haltReason != "" {
		return true, m.haltReason
	}

	if m.now().Before(m.backoffUntil) {
		return true, "rate limited until " + m.backoffUntil.Format(time.RFC3339)
	}

	return false, ""
}

// Halted returns the halt reason, empty when not halted.
func (m *Manager) Halted() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.haltReason
}

// BackoffUntil returns the end of the current rate-limit backoff.
func (m *Manager) BackoffUntil() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.backoffUntil
}

// ClearHalt resumes submissions after an authenticated call succeeded again.
func (m *Manager) ClearHalt() {
	m.mu.Lock()
	reason := m.haltReason
	m.haltReason = ""
	m.mu.Unlock()

	if reason != "" {
		m.log.Info("Order submission resumed", zap.String("previous_reason", reason))
		m.notifier.Notify(types.NotificationBotStatus, "Order submission resumed", types.SeveritySuccess)
	}
}

// HandleExchangeError applies the halt and backoff rules for err. It is
// called for every exchange failure, including those seen by the bot loop.
func (m *Manager) HandleExchangeError(err error) {
	exErr, ok := errors.AsExchangeError(err)
	if !ok {
		return
	}

	switch {
	case exErr.Kind.HaltsSubmission():
		m.mu.Lock()
		first := m.haltReason == ""
		m.haltReason = string(exErr.Kind) + ": " + exErr.Message
		m.mu.Unlock()

		if first {
			m.log.Error("Order submission halted", zap.String("kind", string(exErr.Kind)), zap.Error(err))
			m.notifier.Notify(types.NotificationError,
				"Order submission halted: "+exErr.Error(), types.SeverityError)
		}
	case exErr.Kind == errors.ExchangeErrorRateLimit:
		m.mu.Lock()
		m.backoffUntil = m.now().Add(m.cfg.RateLimitBackoff)
		until := m.backoffUntil
		m.mu.Unlock()

		m.log.Warn("Rate limited, backing off", zap.Time("until", until))
	case exErr.Kind == errors.ExchangeErrorRejected, exErr.Kind == errors.ExchangeErrorTimeout:
	}
}

// LastPrice returns the latest price seen by Monitor for symbol.
func (m *Manager) LastPrice(symbol string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	price, ok := m.lastPrice[symbol]

	return price, ok
}

// transition moves pos to next, journals, logs and publishes the new state.
func (m *Manager) transition(pos *types.Position, next types.PositionState, reason string) error {
	from := pos.State
	if from != "" && !from.CanTransitionTo(next) {
		return errors.Newf(errors.ErrCodeInvalidTransition, "position %s cannot move from %s to %s", pos.ID, from, next)
	}

	pos.State = next

	record := types.TransitionRecord{
		Timestamp:  m.now(),
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		StrategyID: pos.StrategyID,
		From:       from,
		To:         next,
		Reason:     reason,
	}

	m.commit(*pos)
	m.attribute(record, *pos)

	return nil
}

// attribute journals, logs and reports a transition.
func (m *Manager) attribute(record types.TransitionRecord, pos types.Position) {
	m.log.Info("Position transition",
		zap.Time("timestamp", record.Timestamp),
		zap.String("position_id", record.PositionID),
		zap.String("symbol", record.Symbol),
		zap.String("strategy", record.StrategyID),
		zap.String("from", string(record.From)),
		zap.String("to", string(record.To)),
		zap.String("reason", record.Reason),
	)

	if m.recorder != nil {
		if err := m.recorder.RecordTransition(record); err != nil {
			m.log.Error("Failed to journal transition", zap.String("position_id", record.PositionID), zap.Error(err))
		}
	}

	if m.callbacks.OnTransition != nil {
		(*m.callbacks.OnTransition)(record, pos)
	}
}

// commit publishes pos. A terminal position whose outcome is known releases
// its slot and moves to history.
func (m *Manager) commit(pos types.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, held := m.active[pos.Symbol]
	if held && t.position.ID != pos.ID {
		held = false
	}

	if !pos.State.IsTerminal() || pos.NeedsReconciliation {
		if held {
			t.position = pos
		}

		return
	}

	if held {
		delete(m.active, pos.Symbol)
	}

	m.history = append(m.history, pos)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

// setTracking stores the protective levels, rules and entry bar of an active position.
func (m *Manager) setTracking(symbol string, levels risk.Levels, rules types.SymbolRules, entryBar time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.active[symbol]; ok {
		t.levels = levels
		t.rules = rules
		t.entryBar = entryBar
	}
}

// markNotified reports whether this is the first call for the position id.
func (m *Manager) markNotified(symbol, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.active[symbol]
	first := ok && t.position.ID == id && !t.notified
	if first {
		t.notified = true
	}

	return first
}

func (m *Manager) tracking(symbol string) (tracked, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.active[symbol]
	if !ok {
		return tracked{}, false
	}

	return *t, true
}
