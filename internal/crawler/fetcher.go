package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Default fetcher settings.
const (
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36"

	// DefaultMaxRetries is the number of retries after the first attempt,
	// so a page that keeps failing with 502/503/504 is requested 4 times.
	DefaultMaxRetries = 3

	// DefaultRetryInterval is the wait before the first retry. Later
	// waits grow exponentially up to DefaultMaxRetryInterval.
	DefaultRetryInterval = 100 * time.Millisecond

	// DefaultMaxRetryInterval bounds a single backoff wait.
	DefaultMaxRetryInterval = 2 * time.Second

	// DefaultPoolSize is the number of idle connections kept per host.
	DefaultPoolSize = 16

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Fetcher retrieves pages over one shared, pooled HTTP client.
// It is safe for concurrent use.
type Fetcher struct {
	client *http.Client

	// timeout applies to the whole request when Fetcher builds its own client.
	timeout time.Duration

	// poolSize sets MaxIdleConnsPerHost when Fetcher builds its own client.
	poolSize int

	userAgent string

	// headers are sent with every request in addition to User-Agent.
	headers map[string]string

	maxRetries       uint64
	retryInterval    time.Duration
	maxRetryInterval time.Duration
	maxBodySize      int64

	// limiter throttles requests when a rate limit is configured.
	limiter *rate.Limiter

	logger *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient makes the Fetcher use client instead of building one.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithPoolSize sets how many idle connections are kept per host.
// It should match the fan-out concurrency.
func WithPoolSize(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.poolSize = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithRetry sets the retry budget and the first backoff interval.
func WithRetry(maxRetries int, interval time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if maxRetries >= 0 {
			f.maxRetries = uint64(maxRetries)
		}
		if interval > 0 {
			f.retryInterval = interval
		}
	}
}

// WithRateLimit throttles requests to rps per second. Zero disables it.
func WithRateLimit(rps float64) FetcherOption {
	return func(f *Fetcher) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithMaxBodySize sets the response body limit.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithFetcherLogger sets the logger used to report retries.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		timeout:          30 * time.Second,
		poolSize:         DefaultPoolSize,
		userAgent:        DefaultUserAgent,
		maxRetries:       DefaultMaxRetries,
		retryInterval:    DefaultRetryInterval,
		maxRetryInterval: DefaultMaxRetryInterval,
		maxBodySize:      DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	if f.client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
		transport.MaxIdleConns = f.poolSize * 2
		transport.MaxIdleConnsPerHost = f.poolSize
		f.client = &http.Client{
			Transport: transport,
			Timeout:   f.timeout,
		}
	}

	return f
}

// Fetch GETs url and returns its body.
//
// 502, 503 and 504 responses are retried with exponential backoff, up to
// the configured retry budget. Every other failure is returned at once.
// The returned error is always a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		b, err := f.get(ctx, url)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) && fe.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Debug("retrying request",
			"url", url,
			"error", err,
			"wait", wait,
		)
	}

	if err := backoff.RetryNotify(operation, f.newBackOff(ctx), notify); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{URL: url, Err: err}
	}

	return body, nil
}

func (f *Fetcher) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryInterval
	b.MaxInterval = f.maxRetryInterval
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, f.maxRetries), ctx)
}

// get performs one attempt.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: url, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.logger.Enabled(ctx, slog.LevelDebug) {
		f.logger.DebugContext(ctx, "request", "url", url, headerGroup(req.Header))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection goes back to the pool.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBodySize)) //nolint:errcheck // best effort
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if int64(len(body)) > f.maxBodySize {
		// A cut-off page would parse as a shorter table.
		return nil, &FetchError{
			URL: url,
			Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, f.maxBodySize),
		}
	}

	return body, nil
}

// headerGroup renders request headers as a log group. Credential headers
// are masked by the logger's handler, not here.
func headerGroup(h http.Header) slog.Attr {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, h.Get(k)))
	}
	return slog.Group("headers", attrs...)
}
