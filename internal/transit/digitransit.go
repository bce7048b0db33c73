// Package transit queries transit data sources and turns their stop times
// into normalized departures.
package transit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/randytsao24/departures/internal/models"
)

// DefaultDigitransitURL is the HSL routing GraphQL endpoint
const DefaultDigitransitURL = "https://api.digitransit.fi/routing/v1/routers/hsl/index/graphql"

// subscriptionKeyHeader carries the API key. Request URLs show up in
// transport errors, so the key is never put in the query string.
const subscriptionKeyHeader = "digitransit-subscription-key"

// ErrNoAPIKey is returned when a source needs a subscription key but has none
var ErrNoAPIKey = errors.New("DIGITRANSIT_SUBSCRIPTION_KEY not configured")

// Source fetches a batch response for an ordered list of stop queries
type Source interface {
	Fetch(ctx context.Context, queries []models.StopQuery) (*BatchResponse, error)
}

// StatusError is a non-200 answer from an upstream API
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transit API returned status %d", e.Code)
}

// Temporary reports whether retrying the request may succeed
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// DigitransitClient posts GraphQL documents to a Digitransit routing API
type DigitransitClient struct {
	endpoint        string
	apiKey          string
	client          *http.Client
	retryMaxElapsed time.Duration
	logger          *slog.Logger
}

// NewDigitransitClient creates a client. Transient failures are retried
// until retryMaxElapsed has passed; zero disables retries.
func NewDigitransitClient(endpoint, apiKey string, timeout, retryMaxElapsed time.Duration) *DigitransitClient {
	if endpoint == "" {
		endpoint = DefaultDigitransitURL
	}
	return &DigitransitClient{
		endpoint:        endpoint,
		apiKey:          apiKey,
		client:          &http.Client{Timeout: timeout},
		retryMaxElapsed: retryMaxElapsed,
		logger:          slog.Default().With("source", "digitransit"),
	}
}

// HasAPIKey returns true if the client has a subscription key configured
func (c *DigitransitClient) HasAPIKey() bool {
	return c.apiKey != ""
}

// Fetch queries departures for all stop queries in a single request
func (c *DigitransitClient) Fetch(ctx context.Context, queries []models.StopQuery) (*BatchResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if len(queries) == 0 {
		return &BatchResponse{Data: map[string]*StopResult{}}, nil
	}

	body := BuildQuery(queries)
	resp, err := backoff.RetryNotifyWithData(
		func() (*BatchResponse, error) {
			return c.post(ctx, body)
		},
		backoff.WithContext(c.backOff(), ctx),
		func(err error, d time.Duration) {
			c.logger.Warn("retrying departures request", "error", err, "backoff", d.String())
		},
	)
	if err != nil {
		return nil, fmt.Errorf("fetching departures: %w", err)
	}
	return resp, nil
}

func (c *DigitransitClient) backOff() backoff.BackOff {
	if c.retryMaxElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = c.retryMaxElapsed
	return b
}

func (c *DigitransitClient) post(ctx context.Context, body string) (*BatchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Content-Type", "application/graphql")
	req.Header.Set(subscriptionKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("posting query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &StatusError{Code: resp.StatusCode}
		if statusErr.Temporary() {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	var result BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parsing response: %w", err))
	}
	return &result, nil
}
