// Package httpclient provides an http.Client wrapper with timeout and
// exponential-backoff retry for transient failures.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"server/internal/infra"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 5
	defaultBaseDelay  = 2000 * time.Millisecond
)

// Options configures the retrying client.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	Transport  http.RoundTripper
	Logger     *infra.Logger
}

// Client issues HTTP requests and transparently retries responses with
// status 429 or >= 500 as well as transport-level failures. Delays grow as
// BaseDelay * 2^attempt with no cap other than MaxRetries.
type Client struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	logger     *infra.Logger

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a Client with sane defaults.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: opts.Transport},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// Do sends the request, retrying on 429/5xx responses and transport errors.
// After retries are exhausted it returns the last response for status-based
// retries, or the last error for transport failures; callers must check both.
// Requests with a body must be rewindable (req.GetBody set, which
// http.NewRequest does for byte readers).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(attemptReq)
		if err != nil {
			lastErr = err
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
			}
			delay := c.backoff(attempt)
			c.logger.Warn().Err(err).Dur("delay", delay).Int("attempt", attempt+1).
				Str("url", req.URL.String()).Msg("httpclient: transport error, retrying")
			if err := c.sleep(req.Context(), delay); err != nil {
				return nil, err
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt >= c.maxRetries {
			return resp, nil
		}

		// Discard the retried response so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		delay := c.backoff(attempt)
		c.logger.Warn().Int("status", resp.StatusCode).Dur("delay", delay).Int("attempt", attempt+1).
			Str("url", req.URL.String()).Msg("httpclient: retryable status, retrying")
		if err := c.sleep(req.Context(), delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.baseDelay * time.Duration(1<<attempt)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// rewind returns a request whose body is positioned at the start. The first
// attempt uses the request as-is; later attempts need a fresh body.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("cannot retry request with non-rewindable body")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
