package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/stretchr/testify/suite"
)

type ChannelsTestSuite struct {
	suite.Suite
	notification types.Notification
}

func TestChannelsSuite(t *testing.T) {
	suite.Run(t, new(ChannelsTestSuite))
}

func (suite *ChannelsTestSuite) SetupTest() {
	suite.notification = types.Notification{
		Category: types.NotificationPositionClosed,
		Severity: types.SeveritySuccess,
		Message:  "BTCUSDT closed <take_profit>",
		Time:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (suite *ChannelsTestSuite) TestWebhookPayload() {
	var payload webhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.Equal(http.MethodPost, r.Method)
		suite.Equal("application/json", r.Header.Get("Content-Type"))
		suite.NoError(json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewWebhookChannel(server.URL).Send(context.Background(), suite.notification)
	suite.Require().NoError(err)

	suite.Require().Len(payload.Embeds, 1)
	suite.Equal("Position closed", payload.Embeds[0].Title)
	suite.Equal(suite.notification.Message, payload.Embeds[0].Description)
	suite.Equal(colorGreen, payload.Embeds[0].Color)
	suite.Equal("2024-03-01T12:00:00Z", payload.Embeds[0].Timestamp)
	suite.Contains(payload.Text, "Position closed")
}

func (suite *ChannelsTestSuite) TestWebhookErrorStatus() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := NewWebhookChannel(server.URL).Send(context.Background(), suite.notification)
	suite.Error(err)
	suite.Contains(err.Error(), "429")
}

func (suite *ChannelsTestSuite) TestTelegramSendMessage() {
	var form url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.Equal("/botsecret/sendMessage", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		suite.NoError(err)

		form, err = url.ParseQuery(string(body))
		suite.NoError(err)

		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	err := NewTelegramChannel(server.URL+"/", "secret", "99").Send(context.Background(), suite.notification)
	suite.Require().NoError(err)

	suite.Equal("99", form.Get("chat_id"))
	suite.Equal("HTML", form.Get("parse_mode"))
	suite.True(strings.HasPrefix(form.Get("text"), "<b>Position closed</b> [success]"))
	suite.Contains(form.Get("text"), "&lt;take_profit&gt;")
}

func (suite *ChannelsTestSuite) TestTelegramErrorStatus() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	err := NewTelegramChannel(server.URL, "bad", "1").Send(context.Background(), suite.notification)
	suite.Error(err)
	suite.Contains(err.Error(), "Unauthorized")
}

func (suite *ChannelsTestSuite) TestLogChannel() {
	channel := NewLogChannel(logger.NewNopLogger())

	for _, severity := range []types.Severity{types.SeverityError, types.SeverityWarning, types.SeverityInfo} {
		n := suite.notification
		n.Severity = severity
		suite.NoError(channel.Send(context.Background(), n))
	}
}

func (suite *ChannelsTestSuite) TestHubBroadcast() {
	hub := NewHub(logger.NewNopLogger())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	suite.Require().NoError(err)
	defer conn.Close()

	suite.Eventually(func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	suite.Require().NoError(hub.Send(context.Background(), suite.notification))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	suite.Require().NoError(err)

	var got types.Notification
	suite.Require().NoError(json.Unmarshal(data, &got))
	suite.Equal(suite.notification.Message, got.Message)
	suite.Equal(types.NotificationPositionClosed, got.Category)
}

func (suite *ChannelsTestSuite) TestHubDropsDisconnectedClients() {
	hub := NewHub(logger.NewNopLogger())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	suite.Require().NoError(err)

	suite.Eventually(func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	suite.Require().NoError(conn.Close())
	suite.Eventually(func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
}
