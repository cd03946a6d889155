// Package nutrition is the gateway to the external nutrition search API.
package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/and161185/macronizer/internal/errs"
)

// DefaultBaseURL is the CalorieNinjas API root.
const DefaultBaseURL = "https://api.calorieninjas.com"

// maxBody caps how much of an upstream answer is read.
const maxBody = 1 << 20

// Searcher looks up nutrition facts for a free-text query and returns the raw JSON answer.
type Searcher interface {
	Search(ctx context.Context, query string) (json.RawMessage, error)
}

// UpstreamError is returned when the API answers with a non-200 status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("nutrition api status %d: %s", e.Status, e.Body)
}

// Unwrap lets callers match errs.ErrUpstream.
func (e *UpstreamError) Unwrap() error { return errs.ErrUpstream }

// Client calls GET {base}/v1/nutrition?query=... with the X-Api-Key header.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient constructs a Client; empty baseURL means DefaultBaseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Search forwards query upstream and returns the body verbatim on 200.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	u := c.baseURL + "/v1/nutrition?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errs.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json", errs.ErrUpstream)
	}
	return json.RawMessage(body), nil
}
