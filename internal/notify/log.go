package notify

import (
	"context"

	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"go.uber.org/zap"
)

// LogChannel writes notifications to the structured log.
type LogChannel struct {
	log *logger.Logger
}

var _ Channel = (*LogChannel)(nil)

// NewLogChannel creates a log channel.
func NewLogChannel(log *logger.Logger) *LogChannel {
	return &LogChannel{log: log}
}

// Name implements Channel.
func (c *LogChannel) Name() string {
	return "log"
}

// Send implements Channel.
func (c *LogChannel) Send(_ context.Context, n types.Notification) error {
	fields := []zap.Field{
		zap.String("category", string(n.Category)),
		zap.String("severity", string(n.Severity)),
		zap.Time("time", n.Time),
	}

	switch n.Severity {
	case types.SeverityError:
		c.log.Error(n.Message, fields...)
	case types.SeverityWarning:
		c.log.Warn(n.Message, fields...)
	case types.SeveritySuccess, types.SeverityTrade, types.SeverityInfo:
		c.log.Info(n.Message, fields...)
	default:
		c.log.Info(n.Message, fields...)
	}

	return nil
}
