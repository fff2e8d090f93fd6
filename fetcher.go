package topic2html

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"
)

// Fetch behavior constants.
const (
	maxFetchAttempts   = 5
	maxRedirects       = 10
	initialBackoff     = 250 * time.Millisecond
	maxBackoffInterval = 10 * time.Second
)

var errTooManyRedirects = errors.New("stopped after too many redirects")

// Fetcher downloads resources with bounded concurrency and retry/backoff.
// Concurrent calls beyond the configured limit block until a permit frees up.
type Fetcher struct {
	client    *http.Client
	permits   *semaphore.Weighted
	userAgent string
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher capped at maxConcurrency simultaneous
// downloads. A nil logger falls back to slog.Default().
func NewFetcher(userAgent string, maxConcurrency int, logger *slog.Logger) *Fetcher {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
		permits:   semaphore.NewWeighted(int64(maxConcurrency)),
		userAgent: userAgent,
		logger:    logger,
	}
}

// Fetch performs a GET and returns the body bytes and response headers.
// HTTP 429 and 503 responses and transport-level failures are retried with
// exponential backoff (honoring Retry-After) for up to five attempts; any
// other non-2xx status fails immediately.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL) ([]byte, http.Header, error) {
	if err := f.permits.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("acquire download permit: %w", err)
	}
	defer f.permits.Release(1)

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = initialBackoff
	schedule.RandomizationFactor = 0
	schedule.Multiplier = 2
	schedule.MaxInterval = maxBackoffInterval
	schedule.MaxElapsedTime = 0
	schedule.Reset()

	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		body, headers, retryAfter, err := f.attempt(ctx, u)
		if err == nil {
			return body, headers, nil
		}
		lastErr = err

		var re *retryableError
		if !errors.As(err, &re) {
			return nil, nil, err
		}
		if attempt == maxFetchAttempts {
			break
		}

		wait := schedule.NextBackOff()
		if retryAfter > 0 {
			wait = retryAfter
		}
		f.logger.Warn("fetch throttled; backing off",
			"url", u.String(), "attempt", attempt, "wait", wait, "error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("GET %s: %w", u, ctx.Err())
		}
	}

	return nil, nil, fmt.Errorf("GET %s failed after %d attempts: %w", u, maxFetchAttempts, lastErr)
}

// retryableError marks a failure worth another attempt.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// attempt performs a single GET. On a retryable outcome the returned error
// wraps retryableError and retryAfter carries a server-requested delay if
// one was present.
func (f *Fetcher) attempt(ctx context.Context, u *url.URL) (body []byte, headers http.Header, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("GET %s: %w", u, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		// Transport-level failures are transient by taxonomy.
		return nil, nil, 0, fmt.Errorf("GET %s: %w", u, &retryableError{err})
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		b, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, nil, 0, fmt.Errorf("GET %s: read body: %w", u, &retryableError{readErr})
		}
		return b, resp.Header, 0, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		statusErr := fmt.Errorf("status %s", resp.Status)
		return nil, nil, parseRetryAfter(resp.Header), fmt.Errorf("GET %s: %w", u, &retryableError{statusErr})

	default:
		return nil, nil, 0, fmt.Errorf("GET %s failed with status %s", u, resp.Status)
	}
}

// parseRetryAfter reads a Retry-After header given in seconds.
// HTTP-date forms are ignored; the backoff schedule covers that case.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
