package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var errBaseURLRequired = errors.New("analytics base url is required")

// Client talks to the analytics HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an analytics API client. Requests are traced through otelhttp.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid analytics base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL: trimmed,
		token:   token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Dashboard returns the summary and overlaps for userID.
func (c *Client) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	endpoint := fmt.Sprintf("%s/analytics/dashboard?user_id=%s", c.baseURL, strconv.FormatInt(userID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to create analytics request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to request analytics: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Dashboard{}, fmt.Errorf("analytics API returned status %d", resp.StatusCode)
	}

	var payload Dashboard
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Dashboard{}, fmt.Errorf("failed to decode analytics response: %w", err)
	}
	return payload, nil
}
