package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// Embed colors per severity.
const (
	colorGreen  = 0x2ECC71
	colorYellow = 0xF1C40F
	colorRed    = 0xE74C3C
	colorBlue   = 0x3498DB
	colorGrey   = 0x95A5A6
)

// WebhookChannel posts notifications as JSON. The payload carries both a
// Discord embed and a Slack text field.
type WebhookChannel struct {
	url    string
	client *http.Client
}

var _ Channel = (*WebhookChannel)(nil)

type webhookEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type webhookPayload struct {
	Content string         `json:"content"`
	Text    string         `json:"text"`
	Embeds  []webhookEmbed `json:"embeds"`
}

// NewWebhookChannel creates a webhook channel posting to url.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: DefaultSendTimeout},
	}
}

// Name implements Channel.
func (c *WebhookChannel) Name() string {
	return "webhook"
}

// Send implements Channel.
func (c *WebhookChannel) Send(ctx context.Context, n types.Notification) error {
	title := Title(n)
	payload := webhookPayload{
		Content: "",
		Text:    fmt.Sprintf("*%s*\n%s", title, n.Message),
		Embeds: []webhookEmbed{{
			Title:       title,
			Description: n.Message,
			Color:       severityColor(n.Severity),
			Timestamp:   n.Time.UTC().Format(time.RFC3339),
		}},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotificationFailed, "failed to encode webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotificationFailed, "failed to build webhook request", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotificationFailed, "webhook request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Newf(errors.ErrCodeNotificationFailed, "webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Title renders a short headline for n.
func Title(n types.Notification) string {
	switch n.Category {
	case types.NotificationTradeSignal:
		return "Trade signal"
	case types.NotificationOrderPlaced:
		return "Order placed"
	case types.NotificationPositionClosed:
		return "Position closed"
	case types.NotificationError:
		return "Error"
	case types.NotificationBalanceLow:
		return "Balance low"
	case types.NotificationBotStatus:
		return "Bot status"
	case types.NotificationRiskRejected:
		return "Risk rejected"
	case types.NotificationBacktest:
		return "Backtest"
	default:
		return string(n.Category)
	}
}

func severityColor(s types.Severity) int {
	switch s {
	case types.SeveritySuccess:
		return colorGreen
	case types.SeverityWarning:
		return colorYellow
	case types.SeverityError:
		return colorRed
	case types.SeverityTrade:
		return colorBlue
	case types.SeverityInfo:
		return colorGrey
	default:
		return colorGrey
	}
}
