package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

type webhookPayload struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Webhook struct {
	url    string
	client *retryablehttp.Client
	now    func() time.Time
}

type WebhookOption func(*Webhook)

func WithRetryMax(n int) WebhookOption {
	return func(w *Webhook) {
		w.client.RetryMax = n
	}
}

func WithBackoff(min, max time.Duration) WebhookOption {
	return func(w *Webhook) {
		w.client.RetryWaitMin = min
		w.client.RetryWaitMax = max
	}
}

func WithClock(now func() time.Time) WebhookOption {
	return func(w *Webhook) {
		w.now = now
	}
}

func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = 10 * time.Second
	// retryablehttp logs through its own logger; request failures surface as errors instead.
	client.Logger = nil

	w := &Webhook{url: url, client: client, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Webhook) Notify(ctx context.Context, title, message string) error {
	body, err := json.Marshal(webhookPayload{
		Title:     title,
		Message:   message,
		Timestamp: w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	zerolog.Ctx(ctx).Debug().Str("title", title).Int("status", resp.StatusCode).Msg("webhook notification delivered")
	return nil
}
