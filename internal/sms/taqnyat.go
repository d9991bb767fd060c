// Package sms provides the outbound SMS gateway client. The wire shape
// matches the Taqnyat messaging API, but callers only see the Gateway
// interface: provider-side rejections come back as a non-success SendResult,
// and an error is returned only when the HTTP call itself could not be made.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// SendResult reports the outcome of one gateway call.
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// Gateway sends an SMS body to one or more recipients under a sender label.
type Gateway interface {
	Send(ctx context.Context, recipients []string, body, sender string) (SendResult, error)
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient builds a Client with a bounded request timeout. Delivery runs on
// the request path, so a slow provider must surface as a delivery failure
// rather than a hung dispatch.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type sendPayload struct {
	Recipients []string `json:"recipients"`
	Body       string   `json:"body"`
	Sender     string   `json:"sender"`
}

type sendResponse struct {
	StatusCode int    `json:"statusCode"`
	MessageID  string `json:"messageId"`
	Message    string `json:"message"`
}

// Send posts the message to the provider. Transport failures return an error;
// provider-side rejections are reported through the result only.
func (c *Client) Send(ctx context.Context, recipients []string, body, sender string) (SendResult, error) {
	payload, err := json.Marshal(sendPayload{
		Recipients: recipients,
		Body:       body,
		Sender:     sender,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("sms: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()

	var out sendResponse
	if derr := json.NewDecoder(resp.Body).Decode(&out); derr != nil {
		// Provider answered with something unparsable; the attempt happened,
		// so report it as a provider failure rather than a transport error.
		log.Warn().Int("status", resp.StatusCode).Err(derr).Msg("sms gateway returned invalid response")
		return SendResult{Success: false, Error: "invalid response from provider"}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{Success: false, Error: out.Message}, nil
	}
	return SendResult{Success: true, MessageID: out.MessageID}, nil
}
