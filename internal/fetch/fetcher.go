// Package fetch implements outbound retrieval with timeout, retry, and
// backoff. Two modes exist: FetchStrict retries and propagates exhaustion
// to the caller, FetchLenient makes a single attempt and reports absence,
// letting high-volume discovery loops tolerate sparse data.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/metrics"
)

// Default knobs, mirroring the cadence the upstream services tolerate.
const (
	DefaultTimeout        = 60 * time.Second
	DefaultLenientTimeout = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 5 * time.Second

	// The Cámara service rejects unknown agents; a browser UA is required.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
)

// Options controls Client behavior. Zero values fall back to the defaults
// above.
type Options struct {
	Timeout        time.Duration // per strict attempt
	LenientTimeout time.Duration // single lenient attempt
	MaxRetries     int
	RetryDelay     time.Duration // base; waits grow base*1, base*2, ...
	UserAgent      string
	HostRPS        float64 // per-host request rate, 0 disables
	HostBurst      int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.LenientTimeout <= 0 {
		o.LenientTimeout = DefaultLenientTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	return o
}

// Client issues sequential HTTP GETs through a Colly collector.
type Client struct {
	opts    Options
	base    *colly.Collector
	limiter *hostLimiter
	logger  *zap.Logger

	// pause is swapped out in tests so retry waits don't slow the suite.
	pause func(ctx context.Context, d time.Duration)
}

// NewClient builds a Client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	opts = opts.withDefaults()

	base := colly.NewCollector(colly.Async(false))
	base.UserAgent = opts.UserAgent
	base.IgnoreRobotsTxt = true
	// Retries revisit the same URL; Colly refuses that by default.
	base.AllowURLRevisit = true

	return &Client{
		opts:    opts,
		base:    base,
		limiter: newHostLimiter(opts.HostRPS, opts.HostBurst),
		logger:  logger,
		pause:   timerPause,
	}
}

// FetchStrict retrieves url, retrying up to MaxRetries times with waits of
// RetryDelay*1, RetryDelay*2, ... between attempts. Exhaustion propagates
// to the caller.
func (c *Client) FetchStrict(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		body, err := c.attempt(ctx, rawURL, c.opts.Timeout)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt == c.opts.MaxRetries {
			break
		}
		wait := c.opts.RetryDelay * time.Duration(attempt)
		c.logger.Warn("fetch attempt failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.opts.MaxRetries),
			zap.Duration("wait", wait),
			zap.Error(err))
		c.pause(ctx, wait)
	}
	c.logger.Error("fetch failed after all attempts",
		zap.String("url", rawURL),
		zap.Int("max_retries", c.opts.MaxRetries),
		zap.Error(lastErr))
	return "", fmt.Errorf("fetch %s after %d attempts: %w", rawURL, c.opts.MaxRetries, lastErr)
}

// FetchLenient makes a single attempt with its own shorter timeout and
// reports absence instead of failing.
func (c *Client) FetchLenient(ctx context.Context, rawURL string) (string, bool) {
	body, err := c.attempt(ctx, rawURL, c.opts.LenientTimeout)
	if err != nil {
		c.logger.Debug("lenient fetch yielded nothing",
			zap.String("url", rawURL),
			zap.Error(err))
		return "", false
	}
	return body, true
}

// attempt performs one GET through a collector clone.
func (c *Client) attempt(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return "", err
	}

	collector := c.base.Clone()
	collector.SetRequestTimeout(timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	start := time.Now()
	if err := collector.Visit(rawURL); err != nil {
		fetchErr = err
	}
	collector.Wait()

	host := hostOf(rawURL)
	if fetchErr != nil {
		metrics.ObserveFetchAttempt(host, "error")
		return "", fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	}
	metrics.ObserveFetchAttempt(host, "success")
	c.logger.Debug("fetched",
		zap.String("url", rawURL),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return string(body), nil
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "unknown"
}

func timerPause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
