package notify

import (
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/logger"
)

// ChannelsFromConfig builds the log channel plus every configured remote channel.
func ChannelsFromConfig(cfg config.NotifyConfig, log *logger.Logger) []Channel {
	channels := []Channel{NewLogChannel(log)}

	for _, url := range cfg.WebhookURLs {
		channels = append(channels, NewWebhookChannel(url))
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		channels = append(channels, NewTelegramChannel("", cfg.TelegramToken, cfg.TelegramChatID))
	}

	return channels
}
