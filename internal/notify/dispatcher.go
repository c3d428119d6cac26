package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"go.uber.org/zap"
)

// DefaultSendTimeout bounds a single channel delivery.
const DefaultSendTimeout = 10 * time.Second

// Dispatcher queues notifications and fans them out to its channels from a
// single worker goroutine.
type Dispatcher struct {
	queue    chan types.Notification
	channels []Channel
	enabled  map[types.NotificationCategory]bool
	log      *logger.Logger
	timeout  time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
	dropped atomic.Int64
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. Call Start before notifications are delivered.
func NewDispatcher(cfg config.NotifyConfig, log *logger.Logger, channels ...Channel) *Dispatcher {
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	return &Dispatcher{
		queue:    make(chan types.Notification, size),
		channels: channels,
		enabled:  categorySwitches(cfg),
		log:      log,
		timeout:  DefaultSendTimeout,
		now:      time.Now,
		mu:       sync.RWMutex{},
		closed:   false,
		started:  false,
		done:     make(chan struct{}),
		dropped:  atomic.Int64{},
	}
}

func categorySwitches(cfg config.NotifyConfig) map[types.NotificationCategory]bool {
	return map[types.NotificationCategory]bool{
		types.NotificationTradeSignal:    cfg.NotifyOnTrades,
		types.NotificationOrderPlaced:    cfg.NotifyOnTrades,
		types.NotificationPositionClosed: cfg.NotifyOnTrades,
		types.NotificationRiskRejected:   cfg.NotifyOnTrades,
		types.NotificationError:          cfg.NotifyOnErrors,
		types.NotificationBacktest:       cfg.NotifyOnErrors,
		types.NotificationBotStatus:      cfg.NotifyOnStartup,
		types.NotificationBalanceLow:     cfg.NotifyOnBalanceLow,
	}
}

// Enabled reports whether category is delivered.
func (d *Dispatcher) Enabled(category types.NotificationCategory) bool {
	return d.enabled[category]
}

// Dropped returns how many notifications were discarded because the queue was full or closed.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.closed {
		return
	}

	d.started = true

	go d.run()
}

// Notify queues a notification without blocking.
func (d *Dispatcher) Notify(category types.NotificationCategory, message string, severity types.Severity) {
	if !d.Enabled(category) {
		return
	}

	n := types.Notification{
		Category: category,
		Severity: severity,
		Message:  message,
		Time:     d.now(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)

		return
	}

	select {
	case d.queue <- n:
	default:
		d.dropped.Add(1)
		d.log.Warn("Notification queue full, dropping",
			zap.String("category", string(category)),
			zap.String("message", message),
		)
	}
}

// Close stops accepting notifications and waits until the queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return
	}

	d.closed = true
	started := d.started
	close(d.queue)
	d.mu.Unlock()

	if started {
		<-d.done
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n types.Notification) {
	for _, channel := range d.channels {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := channel.Send(ctx, n)

		cancel()

		if err != nil {
			d.log.Warn("Failed to deliver notification",
				zap.String("channel", channel.Name()),
				zap.String("category", string(n.Category)),
				zap.Error(err),
			)
		}
	}
}
