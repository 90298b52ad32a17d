// Package logcomex fetches customs declarations from the Logcomex BI API.
//
// Pages are requested strictly in sequence, one per limiter token, and a
// failed page never discards what was already fetched: FetchRecords returns
// the accumulated records together with a *PageError.
package logcomex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignite/tradeintel/internal/metrics"
	"github.com/ignite/tradeintel/internal/pkg/httpretry"
	"github.com/ignite/tradeintel/internal/pkg/logger"
)

const (
	// PageSize is fixed by the upstream API.
	PageSize = 100

	// MinPageDelay is the smallest pause allowed between page requests.
	MinPageDelay = 500 * time.Millisecond

	DefaultProductSignature = "mexico-import-logistic"
	defaultTimeout          = 30 * time.Second
	defaultMaxPages         = 1000
)

// ErrPageLimit is wrapped in a PageError when MaxPages is reached before the
// upstream ran out of data.
var ErrPageLimit = errors.New("page limit reached")

// Config holds the client settings.
type Config struct {
	APIKey           string
	BaseURL          string
	ProductSignature string
	Timeout          time.Duration
	PageDelay        time.Duration
	MaxPages         int
}

// PageError reports the page that failed and how many records had been
// fetched before it.
type PageError struct {
	Page    int
	Fetched int
	Err     error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("logcomex: page %d failed after %d records: %v", e.Page, e.Fetched, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Client is the Logcomex API client.
type Client struct {
	baseURL          string
	apiKey           string
	productSignature string
	timeout          time.Duration
	maxPages         int
	pageDelay        time.Duration
	limiter          *rate.Limiter
	httpClient       httpretry.HTTPDoer
	archiver         PageArchiver
	metrics          *metrics.Pipeline
}

// NewClient creates a client. Upstream fetches are not retried, so the
// transport is a plain *http.Client.
func NewClient(cfg Config) *Client {
	if cfg.ProductSignature == "" {
		cfg.ProductSignature = DefaultProductSignature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageDelay < MinPageDelay {
		cfg.PageDelay = MinPageDelay
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	return &Client{
		baseURL:          cfg.BaseURL,
		apiKey:           cfg.APIKey,
		productSignature: cfg.ProductSignature,
		timeout:          cfg.Timeout,
		maxPages:         cfg.MaxPages,
		pageDelay:        cfg.PageDelay,
		limiter:          rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
		httpClient:       &http.Client{},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// SetArchiver stores every raw page body through a.
func (c *Client) SetArchiver(a PageArchiver) {
	c.archiver = a
}

// SetMetrics attaches page counters.
func (c *Client) SetMetrics(m *metrics.Pipeline) {
	c.metrics = m
}

type filter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type pageRequest struct {
	Filters []filter `json:"filters"`
	Page    int      `json:"page"`
	Size    int      `json:"size"`
}

type pageResponse struct {
	Data json.RawMessage `json:"data"`
}

// FetchRecords returns every declaration of entity dispatched between start
// and end (inclusive, YYYY-MM-DD). Pagination stops at the first empty or
// short page. On failure the records fetched so far are returned along with
// a *PageError.
func (c *Client) FetchRecords(ctx context.Context, entity, start, end string) ([]json.RawMessage, error) {
	req := pageRequest{
		Filters: []filter{
			{Field: "dispatch_date", Value: []string{start, end}},
			{Field: "importer_name", Value: entity},
		},
		Size: PageSize,
	}

	var all []json.RawMessage
	for page := 1; ; page++ {
		if page > c.maxPages {
			return all, &PageError{Page: page, Fetched: len(all), Err: ErrPageLimit}
		}
		if page > 1 {
			if err := c.pause(ctx); err != nil {
				return all, &PageError{Page: page, Fetched: len(all), Err: err}
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return all, &PageError{Page: page, Fetched: len(all), Err: err}
		}

		req.Page = page
		began := time.Now()
		body, records, err := c.fetchPage(ctx, req)
		c.metrics.ObservePage(err == nil, time.Since(began), len(records))
		if err != nil {
			logger.Warn("logcomex page failed", "entity", entity, "page", page, "fetched", len(all), "error", err)
			return all, &PageError{Page: page, Fetched: len(all), Err: err}
		}
		logger.Debug("logcomex page fetched", "entity", entity, "page", page, "records", len(records))
		if len(records) == 0 {
			break
		}
		c.archive(ctx, entity, start, end, page, body)
		all = append(all, records...)
		if len(records) < PageSize {
			break
		}
	}
	return all, nil
}

// pause holds the next page request for the full page delay after the
// previous response, however long that response took. The limiter only
// spaces request starts, which a slow page would otherwise use up.
func (c *Client) pause(ctx context.Context) error {
	if c.pageDelay <= 0 {
		return nil
	}
	t := time.NewTimer(c.pageDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) fetchPage(ctx context.Context, payload pageRequest) ([]byte, []json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("product-signature", c.productSignature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(respBody, 256))
	}

	var parsed pageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, nil, fmt.Errorf("failed to parse response: %w", err)
	}
	records, err := dataSection(parsed.Data)
	if err != nil {
		return nil, nil, err
	}
	return respBody, records, nil
}

func (c *Client) archive(ctx context.Context, entity, start, end string, page int, body []byte) {
	if c.archiver == nil {
		return
	}
	if err := c.archiver.ArchivePage(ctx, PageKey{Entity: entity, Start: start, End: end, Page: page}, body); err != nil {
		c.metrics.ArchiveFailure()
		logger.Warn("archive page failed", "entity", entity, "page", page, "error", err)
	}
}

// dataSection accepts either a JSON array or a JSON object whose values are
// the records, in document order. null or a missing section is an empty page.
func dataSection(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("failed to parse data section: %w", err)
		}
		return list, nil
	case '{':
		return objectValues(raw)
	default:
		return nil, fmt.Errorf("unexpected data section %s", truncate(raw, 32))
	}
}

func objectValues(raw json.RawMessage) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse data section: %w", err)
	}
	var values []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("failed to parse data section: %w", err)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to parse data section: %w", err)
		}
		values = append(values, v)
	}
	return values, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
