// Package notify delivers best-effort notifications.
//
// Notify never blocks and never fails: a notification that cannot be queued
// is dropped and logged, and a channel error is logged and forgotten.
package notify

import (
	"context"

	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Notifier is the notification dispatcher contract consumed by the decision core.
type Notifier interface {
	Notify(category types.NotificationCategory, message string, severity types.Severity)
}

// Channel is one notification destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, n types.Notification) error
}

// Nop discards every notification.
type Nop struct{}

var _ Notifier = Nop{}

// Notify implements Notifier.
func (Nop) Notify(types.NotificationCategory, string, types.Severity) {}
