package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Delivery headers set on every webhook request.
const (
	HeaderDeliveryID = "X-Delivery-ID"
	HeaderEvent      = "X-Truckwatch-Event"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// WebhookClient posts event payloads to subscriber endpoints.
type WebhookClient struct {
	client HTTPDoer
}

// NewWebhookClient wraps client; a nil client gets a default one with timeout.
func NewWebhookClient(client HTTPDoer, timeout time.Duration) *WebhookClient {
	if client == nil {
		client = NewDefaultHTTPClient(timeout)
	}
	return &WebhookClient{client: client}
}

// Post delivers payload to endpoint. Any non-2xx status is an error.
func (c *WebhookClient) Post(ctx context.Context, endpoint, event, deliveryID string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderDeliveryID, deliveryID)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
