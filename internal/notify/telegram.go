package notify

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// TelegramAPIURL is the Bot API root.
const TelegramAPIURL = "https://api.telegram.org"

// TelegramChannel sends notifications through the Telegram Bot API.
type TelegramChannel struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

var _ Channel = (*TelegramChannel)(nil)

// NewTelegramChannel creates a Telegram channel. An empty baseURL means TelegramAPIURL.
func NewTelegramChannel(baseURL, token, chatID string) *TelegramChannel {
	if baseURL == "" {
		baseURL = TelegramAPIURL
	}

	return &TelegramChannel{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: DefaultSendTimeout},
	}
}

// Name implements Channel.
func (c *TelegramChannel) Name() string {
	return "telegram"
}

// Send implements Channel.
func (c *TelegramChannel) Send(ctx context.Context, n types.Notification) error {
	text := fmt.Sprintf("<b>%s</b> [%s]\n%s",
		html.EscapeString(Title(n)), html.EscapeString(string(n.Severity)), html.EscapeString(n.Message))

	form := url.Values{}
	form.Set("chat_id", c.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotificationFailed, "failed to build telegram request", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotificationFailed, "telegram request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return errors.Newf(errors.ErrCodeNotificationFailed, "telegram returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
