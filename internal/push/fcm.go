// Package push delivers per-device push notifications. Each device attempt
// is independent: the caller fans out over registered tokens and treats any
// failure as a soft delivery outcome, never as an operation failure.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Sender delivers one notification payload to a single device token.
// Data carries string-keyed metadata the client uses for dedup and routing
// (notification id, category, related message id). highPriority requests
// alert-level delivery and is set for emergency messages.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string, highPriority bool) error
}

// Client is an FCM-style HTTP implementation of Sender.
type Client struct {
	Endpoint  string
	ServerKey string
	HTTP      *http.Client
}

// NewClient builds a Client with a bounded timeout; a hung push service must
// degrade to a per-device delivery failure.
func NewClient(endpoint, serverKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		Endpoint:  endpoint,
		ServerKey: serverKey,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound,omitempty"`
}

type fcmPayload struct {
	To           string            `json:"to"`
	Priority     string            `json:"priority"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// Send posts one message to one device. Non-2xx responses are errors so the
// caller can log the failed device; it must not propagate them further.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string, highPriority bool) error {
	payload := fcmPayload{
		To:       token,
		Priority: "normal",
		Notification: fcmNotification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	if highPriority {
		payload.Priority = "high"
		payload.Notification.Sound = "default"
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("push: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Authorization", "key="+c.ServerKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("push: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push: provider returned status %d", resp.StatusCode)
	}
	return nil
}
