package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	v1 "github.com/verdict-lab/project-verdict/internal/api/v1"
)

const defaultSendTimeout = 5 * time.Second

// WebhookSender POSTs envelopes as JSON to subscriber URLs.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a sender with a per-request timeout.
func NewWebhookSender(timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &WebhookSender{
		client: &http.Client{Timeout: timeout},
	}
}

func (s *WebhookSender) Send(ctx context.Context, url string, envelope v1.EventEnvelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("subscriber returned status %d", resp.StatusCode)
	}
	return nil
}
