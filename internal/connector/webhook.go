// Package connector delivers connection events to outbound services.
package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"resty.dev/v3"

	"github.com/energizer-project/craftlure/internal/events"
)

const (
	// DefaultWebhookTimeout bounds one delivery attempt.
	DefaultWebhookTimeout = 10 * time.Second
	userAgent             = "craftlure"
)

// WebhookMessage is the JSON body posted to the webhook. The "content"
// field is what chat webhooks (Discord and compatibles) display.
type WebhookMessage struct {
	Content string `json:"content"`
}

// FailureFunc is called after a failed delivery.
type FailureFunc func(err error)

// WebhookConnector posts the display string of each connection event to a
// webhook URL. Deliveries are independent per event and never retried.
type WebhookConnector struct {
	url       string
	client    *resty.Client
	logger    zerolog.Logger
	onFailure FailureFunc
}

// NewWebhookConnector creates a connector for url. A zero timeout uses
// DefaultWebhookTimeout.
func NewWebhookConnector(url string, timeout time.Duration) *WebhookConnector {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	return &WebhookConnector{
		url:    url,
		client: client,
		logger: log.With().Str("component", "webhook").Logger(),
	}
}

// OnFailure registers a callback for failed deliveries.
func (wc *WebhookConnector) OnFailure(fn FailureFunc) {
	wc.onFailure = fn
}

// Subscribe registers the connector on the bus for connection events.
func (wc *WebhookConnector) Subscribe(eventBus *events.EventBus) {
	eventBus.SubscribeConnections("webhook.deliver", wc.onConnectionEvent)
}

// Send posts one message to the webhook.
func (wc *WebhookConnector) Send(ctx context.Context, message string) error {
	resp, err := wc.client.R().
		SetContext(ctx).
		SetBody(WebhookMessage{Content: message}). // default request content type is JSON
		Post(wc.url)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())
	}

	wc.logger.Debug().Int("status", resp.StatusCode()).Msg("webhook notification sent")
	return nil
}

// Close releases the HTTP client.
func (wc *WebhookConnector) Close() error {
	return wc.client.Close()
}

// onConnectionEvent handles EventStatusProbe and EventLoginAttempt.
func (wc *WebhookConnector) onConnectionEvent(ctx context.Context, event events.Event) error {
	ce, ok := event.Payload.(events.ConnectionEvent)
	if !ok {
		return nil
	}

	if err := wc.Send(ctx, ce.String()); err != nil {
		wc.logger.Warn().Err(err).Str("event", ce.String()).Msg("failed to send message to webhook")
		if wc.onFailure != nil {
			wc.onFailure(err)
		}
		return nil
	}
	return nil
}
