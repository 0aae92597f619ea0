// Package trackman provides the authenticated client for the TrackMan
// Baseball Data API: client-credentials token exchange plus the session,
// play, and ball endpoints.
//
// Requests are rate limited with a token bucket. Responses decode into
// generic records, leaving tabular shaping to the callers.
package trackman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Record is one decoded JSON object from the data API.
type Record = map[string]any

// Client is the rate-limited HTTP client shared by all data endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     *TokenSource
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a data API client. requestsPerSecond bounds the
// sustained upstream request rate.
func NewClient(baseURL string, tokens *TokenSource, requestsPerSecond float64, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:     logger,
	}
}

func (c *Client) getRecords(ctx context.Context, path string) ([]Record, error) {
	return c.doRecords(ctx, http.MethodGet, path, nil)
}

func (c *Client) postRecords(ctx context.Context, path string, payload any) ([]Record, error) {
	return c.doRecords(ctx, http.MethodPost, path, payload)
}

// doRecords performs one rate-limited, bearer-authenticated request and
// decodes the record list. Non-2xx responses become a *FetchError; there is
// no automatic retry.
func (c *Client) doRecords(ctx context.Context, method, path string, payload any) ([]Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("accept", "text/plain")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json-patch+json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Endpoint: path, Status: resp.StatusCode, Body: truncate(raw, 200)}
	}

	recs, err := decodeRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	c.logger.Debug("fetched records", "path", path, "count", len(recs))
	return recs, nil
}

// decodeRecords accepts a bare JSON array of objects, or an object wrapping
// one under a conventional key.
func decodeRecords(raw []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var arr []Record
	if err := json.Unmarshal(trimmed, &arr); err == nil {
		return arr, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("payload is neither an array nor an object: %w", err)
	}
	for _, key := range []string{"data", "records", "items", "values", "result"} {
		if inner, ok := wrapper[key]; ok {
			if err := json.Unmarshal(inner, &arr); err == nil && arr != nil {
				return arr, nil
			}
		}
	}
	if len(wrapper) == 1 {
		for _, inner := range wrapper {
			if err := json.Unmarshal(inner, &arr); err == nil && arr != nil {
				return arr, nil
			}
		}
	}
	return nil, fmt.Errorf("no record array found in object payload")
}

// truncate keeps error messages short when a response body is echoed back.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
