package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/metrics"
)

const (
	// DefaultBaseURL serves GET /latest/{BASE}
	DefaultBaseURL = "https://open.er-api.com/v6"

	defaultMaxRetries = 3
	maxBodyBytes      = 1 << 20
)

// RatesAPIClient fetches full rate tables from an exchangerate-api compatible endpoint
type RatesAPIClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    func(attempt int) time.Duration
	breaker    *gobreaker.CircuitBreaker
	tripAfter  uint32
	logger     logger.Logger
	metrics    metrics.Recorder
	now        func() time.Time
}

// ClientOption configures a RatesAPIClient
type ClientOption func(*RatesAPIClient)

// WithBaseURL points the client at another endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(c *RatesAPIClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default 10s-timeout client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *RatesAPIClient) {
		c.httpClient = httpClient
	}
}

// WithRetries sets the number of attempts for retryable failures
func WithRetries(n int) ClientOption {
	return func(c *RatesAPIClient) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the wait before retry attempt+1
func WithBackoff(backoff func(attempt int) time.Duration) ClientOption {
	return func(c *RatesAPIClient) {
		c.backoff = backoff
	}
}

// WithBreakerThreshold opens the circuit after n consecutive failed fetches
func WithBreakerThreshold(n uint32) ClientOption {
	return func(c *RatesAPIClient) {
		if n > 0 {
			c.tripAfter = n
		}
	}
}

// WithLogger sets the client logger
func WithLogger(log logger.Logger) ClientOption {
	return func(c *RatesAPIClient) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithMetrics sets the recorder for breaker state changes
func WithMetrics(recorder metrics.Recorder) ClientOption {
	return func(c *RatesAPIClient) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// NewRatesAPIClient creates a new rates API client
func NewRatesAPIClient(opts ...ClientOption) *RatesAPIClient {
	c := &RatesAPIClient{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: defaultMaxRetries,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
		tripAfter: 5,
		logger:    logger.GetDefaultLogger(),
		metrics:   metrics.NoOpRecorder{},
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rates-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.tripAfter
		},
		// A semantic failure means the upstream is up and answering
		IsSuccessful: func(err error) bool {
			return err == nil || failure.KindOf(err) == failure.KindUpstream
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Rates API circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			c.metrics.RecordBreakerState(name, to.String())
		},
	})

	return c
}

// ratesResponse is the upstream payload
type ratesResponse struct {
	Result             string                     `json:"result"`
	BaseCode           string                     `json:"base_code"`
	TimeLastUpdateUnix int64                      `json:"time_last_update_unix"`
	Rates              map[string]decimal.Decimal `json:"rates"`
	ErrorType          string                     `json:"error-type"`
}

// FetchRates retrieves every target rate for base
func (c *RatesAPIClient) FetchRates(ctx context.Context, base string) (*entity.RateTable, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, base)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("Rates API circuit open - request rejected", map[string]interface{}{
			"base": base,
		})
		return nil, &failure.Error{Kind: failure.KindTransport, Op: "fetch", Currency: base, Err: err}
	}
	if err != nil {
		return nil, err
	}

	return result.(*entity.RateTable), nil
}

func (c *RatesAPIClient) fetchWithRetry(ctx context.Context, base string) (*entity.RateTable, error) {
	reqURL := fmt.Sprintf("%s/latest/%s", c.baseURL, url.PathEscape(base))

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		table, retryable, err := c.fetchOnce(ctx, reqURL, base)
		if err == nil {
			return table, nil
		}
		lastErr = err

		if !retryable || attempt == c.maxRetries {
			break
		}

		backoffTime := c.backoff(attempt)
		c.logger.Warn("Rates API request failed, retrying", map[string]interface{}{
			"base":    base,
			"attempt": attempt,
			"max":     c.maxRetries,
			"backoff": backoffTime.String(),
			"error":   err.Error(),
		})

		select {
		case <-ctx.Done():
			return nil, contextFailure(ctx, base)
		case <-time.After(backoffTime):
		}
	}

	c.logger.Error("Rates API request failed", map[string]interface{}{
		"base":  base,
		"error": lastErr.Error(),
	})
	return nil, lastErr
}

// fetchOnce performs one request and reports whether a failure is worth retrying
func (c *RatesAPIClient) fetchOnce(ctx context.Context, reqURL, base string) (*entity.RateTable, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, &failure.Error{Kind: failure.KindTransport, Op: "fetch", Currency: base, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			// Only a per-attempt client timeout is worth another try
			return nil, ctx.Err() == nil, &failure.Error{Kind: failure.KindTimeout, Op: "fetch", Currency: base, Err: err}
		}
		return nil, ctx.Err() == nil, &failure.Error{Kind: failure.KindTransport, Op: "fetch", Currency: base, Err: fmt.Errorf("failed to execute request: %w", err)}
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, ctx.Err() == nil, &failure.Error{Kind: failure.KindTimeout, Op: "fetch", Currency: base, Err: err}
		}
		return nil, true, &failure.Error{Kind: failure.KindTransport, Op: "fetch", Currency: base, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug("Rates API response", map[string]interface{}{
		"base":   base,
		"status": resp.StatusCode,
		"bytes":  len(bodyBytes),
	})

	var payload ratesResponse
	decodeErr := json.Unmarshal(bodyBytes, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, &failure.Error{
			Kind:         failure.KindTransport,
			Op:           "fetch",
			Currency:     base,
			UpstreamType: payload.ErrorType,
			Err:          fmt.Errorf("API returned error status: %d", resp.StatusCode),
		}
	}

	if decodeErr != nil {
		return nil, false, &failure.Error{Kind: failure.KindUpstream, Op: "fetch", Currency: base, UpstreamType: "malformed-response", Err: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}

	if payload.Result != "success" {
		return nil, false, &failure.Error{Kind: failure.KindUpstream, Op: "fetch", Currency: base, UpstreamType: payload.ErrorType, Err: fmt.Errorf("upstream result %q", payload.Result)}
	}

	if len(payload.Rates) == 0 {
		return nil, false, &failure.Error{Kind: failure.KindUpstream, Op: "fetch", Currency: base, UpstreamType: "empty-rates", Err: errors.New("no rates in response")}
	}

	asOf := c.now().UTC()
	if payload.TimeLastUpdateUnix > 0 {
		asOf = time.Unix(payload.TimeLastUpdateUnix, 0).UTC()
	}

	tableBase := base
	if payload.BaseCode != "" {
		tableBase = strings.ToUpper(payload.BaseCode)
	}

	return &entity.RateTable{Base: tableBase, Rates: payload.Rates, AsOf: asOf}, false, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// contextFailure classifies a finished ctx: an expired deadline is a timeout,
// a cancellation is a transport failure
func contextFailure(ctx context.Context, base string) error {
	kind := failure.KindTransport
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = failure.KindTimeout
	}
	return &failure.Error{Kind: kind, Op: "fetch", Currency: base, Err: ctx.Err()}
}
