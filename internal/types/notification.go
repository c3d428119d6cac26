package types

import "time"

// NotificationCategory groups notifications so channels can be switched per category.
type NotificationCategory string

const (
	NotificationTradeSignal    NotificationCategory = "trade_signal"
	NotificationOrderPlaced    NotificationCategory = "order_placed"
	NotificationPositionClosed NotificationCategory = "position_closed"
	NotificationError          NotificationCategory = "error"
	NotificationBalanceLow     NotificationCategory = "balance_low"
	NotificationBotStatus      NotificationCategory = "bot_status"
	NotificationRiskRejected   NotificationCategory = "risk_rejected"
	NotificationBacktest       NotificationCategory = "backtest"
)

// Severity of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityTrade   Severity = "trade"
	SeverityInfo    Severity = "info"
)

// Notification is a single message handed to the dispatcher.
type Notification struct {
	Category NotificationCategory `json:"category"`
	Severity Severity             `json:"severity"`
	Message  string               `json:"message"`
	Time     time.Time            `json:"time"`
}
