// Package notifier delivers engine notification values to the external
// delivery collaborator over a webhook. Deciding when to notify lives in the
// engine; this package only ships the value.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"attendance-engine/internal/model"
)

// Sender is what the service layer depends on, so tests can capture
// notifications without a network.
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// Client POSTs notifications to a configured webhook URL with a bearer token.
type Client struct {
	webhookURL string
	token      string
	httpClient *http.Client
}

func NewClient(webhookURL, token string) *Client {
	return &Client{
		webhookURL: webhookURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers one notification. Delivery failures are the collaborator's
// problem to retry; the engine never blocks on them.
func (c *Client) Send(ctx context.Context, n model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// LogSender logs notifications instead of delivering them. Used when no
// webhook is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, n model.Notification) error {
	log.Printf("notification [%s/%s] employee=%s: %s", n.Type, n.Severity, n.EmployeeID, n.Message)
	return nil
}
