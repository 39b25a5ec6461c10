package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// ClientEvent is one server-pushed message as seen by a Client.
type ClientEvent struct {
	Type       string          `json:"type"`
	Status     string          `json:"status,omitempty"`
	UpdateType UpdateType      `json:"updateType,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	UserID     *int64          `json:"userId,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
}

// ClientConfig configures a reconnecting realtime client.
type ClientConfig struct {
	// URL is the websocket endpoint, e.g. "ws://host:port/ws".
	URL string

	// UserID and IsAdmin form the handshake identity.
	UserID  int64
	IsAdmin bool

	// ReconnectDelay is the fixed wait between reconnect attempts.
	// There is no backoff and no retry cutoff; the client redials
	// forever until its context is cancelled. Default 3s.
	ReconnectDelay time.Duration

	// Dialer overrides the websocket dialer. Default websocket.DefaultDialer.
	Dialer *websocket.Dialer

	Logger *slog.Logger
}

// Client maintains a realtime connection to the server: it dials, sends
// the auth handshake, forwards pushed events, and on any disconnect waits
// a fixed delay and starts over with a fresh connection and handshake.
type Client struct {
	config ClientConfig
	events chan ClientEvent
	logger *slog.Logger
}

// NewClient creates a client. Run must be called to start it.
func NewClient(config ClientConfig) *Client {
	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = 3 * time.Second
	}
	if config.Dialer == nil {
		config.Dialer = websocket.DefaultDialer
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		events: make(chan ClientEvent, 16),
		logger: logger.With("component", "realtime_client"),
	}
}

// Events returns the channel of server-pushed events, including auth acks.
func (c *Client) Events() <-chan ClientEvent { return c.events }

// Run dials and reads until ctx is cancelled. Each disconnect schedules a
// full reconnect after the fixed delay.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.runOnce(ctx); err != nil {
			c.logger.Info("disconnected, reconnecting",
				"delay", c.config.ReconnectDelay, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.config.ReconnectDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	ws, _, err := c.config.Dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	// Close the socket when ctx is cancelled so ReadMessage unblocks.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-stop:
		}
	}()

	hello, err := json.Marshal(authFrame{
		Type:    msgTypeAuth,
		UserID:  &c.config.UserID,
		IsAdmin: c.config.IsAdmin,
	})
	if err != nil {
		return err
	}
	if err := ws.WriteMessage(websocket.TextMessage, hello); err != nil {
		return err
	}

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		var event ClientEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			c.logger.Warn("unparseable server frame", "error", err)
			continue
		}
		select {
		case c.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
