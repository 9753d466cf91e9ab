package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	alerts "engine-monitor/internal/alerts/domain"
	"engine-monitor/internal/wib"
)

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// WebhookNotifier posts a summary of generated alerts to a chat webhook.
type WebhookNotifier struct {
	url    string
	client *resty.Client
	logger *log.Logger
}

// WebhookOption configures the webhook notifier.
type WebhookOption func(*WebhookNotifier)

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) WebhookOption {
	return func(n *WebhookNotifier) {
		if timeout > 0 {
			n.client.SetTimeout(timeout)
		}
	}
}

// WithLogger assigns a logger for delivery failures.
func WithLogger(logger *log.Logger) WebhookOption {
	return func(n *WebhookNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewWebhookNotifier constructs a webhook notifier.
func NewWebhookNotifier(url string, opts ...WebhookOption) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	n := &WebhookNotifier{
		url:    url,
		client: resty.New().SetTimeout(10 * time.Second),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify posts the batch summary. Delivery failures are logged, never
// surfaced, so the processing cycle is unaffected.
func (n *WebhookNotifier) Notify(ctx context.Context, batch []alerts.Alert) {
	if n == nil || n.url == "" || len(batch) == 0 {
		return
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookPayload{
			MsgType: "text",
			Text:    webhookText{Content: renderBatch(batch)},
		}).
		Post(n.url)
	if err != nil {
		n.logger.Printf("notify: webhook delivery failed: %v", err)
		return
	}
	if resp.StatusCode() >= 300 {
		n.logger.Printf("notify: webhook returned status %d", resp.StatusCode())
	}
}

func renderBatch(batch []alerts.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Engine alerts (%d)\n", len(batch))
	for _, alert := range batch {
		limit := alert.Upper
		if alert.Description == alerts.DescriptionBelowLower {
			limit = alert.Lower
		}
		fmt.Fprintf(&b, "%s %s: %.2f %s (limit %.2f) at %s\n",
			alert.Sensor,
			alert.Description,
			alert.Value,
			alert.Unit,
			limit,
			wib.ToWIB(alert.Timestamp).Format("2006-01-02 15:04:05 MST"))
	}
	return strings.TrimRight(b.String(), "\n")
}
