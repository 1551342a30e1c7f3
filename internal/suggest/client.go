// Package suggest talks to the external match-suggestion service and caches
// its responses for the review session.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kbyiringiro/saccoflow/internal/common"
	"github.com/kbyiringiro/saccoflow/internal/model"
)

const defaultTimeout = 15 * time.Second

// Client fetches scored match suggestions over HTTP. Failures surface to the
// caller as-is; suggestion fetches are advisory and are never retried
// automatically.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a suggestion client for the given service base URL.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: suggest.url", common.ErrMissingConfig)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: suggest.url: %v", common.ErrInvalidConfig, err)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// Suggest fetches the scored candidates for one payment.
func (c *Client) Suggest(ctx context.Context, paymentID string) (model.Suggestion, error) {
	if paymentID == "" {
		return model.Suggestion{}, fmt.Errorf("payment ID cannot be empty")
	}

	u, err := url.Parse(c.baseURL + "/suggest")
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("failed to build suggestion URL: %w", err)
	}
	q := u.Query()
	q.Set("payment_id", paymentID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("%w: %v", common.ErrServiceUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return model.Suggestion{}, fmt.Errorf("suggestion service error: %d - %s", resp.StatusCode, string(body))
	}

	var suggestion model.Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&suggestion); err != nil {
		return model.Suggestion{}, fmt.Errorf("failed to decode suggestion: %w", err)
	}

	return suggestion, nil
}
