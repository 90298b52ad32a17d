// Package notify posts summary events to configured webhook endpoints.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/tradeintel/internal/domain"
	"github.com/ignite/tradeintel/internal/metrics"
	"github.com/ignite/tradeintel/internal/pkg/httpretry"
	"github.com/ignite/tradeintel/internal/pkg/logger"
)

const (
	userAgent = "Logcomex-Importer/1.0"
	source    = "logcomex_importer"

	TriggerSummaryCreated = "summary_created"
)

// Payload is the JSON body of every delivery.
type Payload struct {
	Timestamp    time.Time        `json:"timestamp"`
	Source       string           `json:"source"`
	Trigger      string           `json:"trigger"`
	SummaryCount int              `json:"summary_count"`
	Data         []domain.Summary `json:"data"`
}

// Webhook delivers payloads to every URL. Retries are handled by the
// underlying RetryClient.
type Webhook struct {
	urls       []string
	httpClient httpretry.HTTPDoer
	metrics    *metrics.Pipeline
	now        func() time.Time
}

// NewWebhook creates a notifier for urls with the given per-request timeout
// and retry budget.
func NewWebhook(urls []string, timeout time.Duration, maxRetries int) *Webhook {
	return &Webhook{
		urls:       urls,
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: timeout}, maxRetries),
		now:        time.Now,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (w *Webhook) SetHTTPClient(client httpretry.HTTPDoer) {
	w.httpClient = client
}

// SetMetrics attaches delivery counters.
func (w *Webhook) SetMetrics(m *metrics.Pipeline) { w.metrics = m }

// SummariesPublished sends one summary_created event to every URL. Every
// URL is attempted; the returned error joins the individual failures.
func (w *Webhook) SummariesPublished(ctx context.Context, summaries []domain.Summary) error {
	if len(w.urls) == 0 || len(summaries) == 0 {
		return nil
	}
	body, err := json.Marshal(Payload{
		Timestamp:    w.now().UTC(),
		Source:       source,
		Trigger:      TriggerSummaryCreated,
		SummaryCount: len(summaries),
		Data:         summaries,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	deliveryID := uuid.NewString()
	var errs []error
	for _, url := range w.urls {
		err := w.post(ctx, url, deliveryID, body)
		w.metrics.WebhookDelivery(err == nil)
		if err != nil {
			logger.Warn("webhook delivery failed", "url", url, "delivery_id", deliveryID, "error", err)
			errs = append(errs, err)
			continue
		}
		logger.Info("webhook delivered", "url", url, "delivery_id", deliveryID, "summaries", len(summaries))
	}
	return errors.Join(errs...)
}

func (w *Webhook) post(ctx context.Context, url, deliveryID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Delivery-ID", deliveryID)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: status %d", url, resp.StatusCode)
	}
	return nil
}
