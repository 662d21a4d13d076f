// Package fetch is the single gate every outbound HTTP request passes
// through. A request only reaches the network after the circuit breaker,
// robots rules, and rate limiter have all cleared it, and the host has
// been paced politely.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/owdb/wrestlebot/internal/breaker"
	"github.com/owdb/wrestlebot/internal/errlog"
	"github.com/owdb/wrestlebot/internal/metrics"
	"github.com/owdb/wrestlebot/internal/ratelimit"
	"github.com/owdb/wrestlebot/internal/robots"
	"github.com/owdb/wrestlebot/internal/statestore"
)

// Sentinel errors callers branch on to classify a refused or failed fetch.
var (
	ErrCircuitOpen       = errors.New("circuit breaker is open")
	ErrRobotsDisallowed  = errors.New("disallowed by robots.txt")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrAuthRejected      = errors.New("authentication rejected")
	ErrSourceUnavailable = errors.New("source unavailable")
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultCacheTTL    = time.Hour
	defaultAcquire     = 2 * time.Minute

	backoffBase = time.Second
	backoffCap  = 30 * time.Second

	// A Retry-After beyond this is treated as this; servers occasionally
	// send absurd values.
	maxRetryAfter = 5 * time.Minute
	// How many 429 waits to honor before giving up on the request.
	maxRateLimitWaits = 3

	cachePrefix = "pagecache:"
)

// Response is the outcome of a successful fetch.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	FromCache  bool
}

// Options tweaks a single request.
type Options struct {
	Header  http.Header
	NoCache bool
}

// Config holds the per-source fetch settings.
type Config struct {
	Source             string
	UserAgent          string
	Timeout            time.Duration
	MaxAttempts        int
	CrawlDelay         time.Duration
	CacheTTL           time.Duration
	AcquireTimeout     time.Duration
	InsecureSkipVerify bool
}

// Client fetches URLs for one source through the full politeness pipeline.
type Client struct {
	cfg      Config
	breaker  *breaker.Breaker
	robots   *robots.Checker
	limiter  *ratelimit.Limiter
	reporter *errlog.Reporter
	cache    statestore.Store
	http     *http.Client
	pacer    *rate.Limiter
	logger   *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Client. All dependencies are required except the reporter,
// which may be nil when error feed persistence is not wanted.
func New(cfg Config, brk *breaker.Breaker, rob *robots.Checker, lim *ratelimit.Limiter,
	rep *errlog.Reporter, cache statestore.Store, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = defaultAcquire
	}

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- source serves an expired chain
		transport = t
	}

	pace := rate.Inf
	if cfg.CrawlDelay > 0 {
		pace = rate.Every(cfg.CrawlDelay)
	}

	return &Client{
		cfg:      cfg,
		breaker:  brk,
		robots:   rob,
		limiter:  lim,
		reporter: rep,
		cache:    cache,
		http:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		pacer:    rate.NewLimiter(pace, 1),
		logger:   logger,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Get runs the full pipeline for a GET request.
func (c *Client) Get(ctx context.Context, url string, opts Options) (*Response, error) {
	return c.gated(ctx, http.MethodGet, url, "", opts)
}

// Post runs the same pipeline for a POST request. Responses are never
// cached.
func (c *Client) Post(ctx context.Context, url, body string, opts Options) (*Response, error) {
	opts.NoCache = true
	return c.gated(ctx, http.MethodPost, url, body, opts)
}

func (c *Client) gated(ctx context.Context, method, url, body string, opts Options) (*Response, error) {
	open, err := c.breaker.IsOpen()
	if err != nil {
		return nil, fmt.Errorf("failed to read breaker state: %w", err)
	}
	if open {
		c.report(url, "circuit_open", "circuit breaker is open", 0, 0)
		return nil, fmt.Errorf("%s: %w", c.cfg.Source, ErrCircuitOpen)
	}

	if !c.robots.CanFetch(ctx, url) {
		c.report(url, "robots", "blocked by robots.txt", 0, 0)
		return nil, fmt.Errorf("%s: %w", url, ErrRobotsDisallowed)
	}

	if err := c.limiter.Acquire(ctx, c.cfg.AcquireTimeout); err != nil {
		if errors.Is(err, ratelimit.ErrBudgetExhausted) {
			c.report(url, "rate_limit", "request budget exhausted", 0, 0)
			return nil, fmt.Errorf("%s: %w", c.cfg.Source, ErrRateLimited)
		}
		return nil, fmt.Errorf("failed to acquire rate limit slot: %w", err)
	}

	if err := c.pace(ctx, url); err != nil {
		return nil, err
	}

	if !opts.NoCache {
		if resp, ok := c.cached(url); ok {
			metrics.IncCacheHit(c.cfg.Source)
			return resp, nil
		}
	}

	return c.do(ctx, method, url, body, opts)
}

// pace waits out the per-host minimum interval, honoring a robots.txt
// crawl-delay when it is longer than the configured one, plus a small
// random jitter so requests never land on a fixed cadence.
func (c *Client) pace(ctx context.Context, url string) error {
	delay := c.cfg.CrawlDelay
	if robotsDelay := c.robots.CrawlDelay(ctx, url); robotsDelay > delay {
		if err := c.sleep(ctx, robotsDelay-delay); err != nil {
			return err
		}
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("pacing wait interrupted: %w", err)
	}
	if delay > 0 {
		jitter := time.Duration(rand.Int64N(int64(delay / 4)))
		if err := c.sleep(ctx, jitter); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) cached(url string) (*Response, bool) {
	body, ok, err := c.cache.Get(cachePrefix + url)
	if err != nil || !ok {
		return nil, false
	}
	return &Response{StatusCode: http.StatusOK, Body: body, FromCache: true}, true
}

func (c *Client) do(ctx context.Context, method, url, body string, opts Options) (*Response, error) {
	var lastErr error
	rateLimitWaits := 0

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			metrics.IncFetchRetry(c.cfg.Source)
			if err := c.sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		resp, err := c.request(ctx, method, url, body, opts)
		if err != nil {
			if fatalNetworkError(err) {
				metrics.ObserveFetch(c.cfg.Source, "fatal", time.Since(start))
				c.report(url, "connection", err.Error(), 0, attempt)
				if ferr := c.breaker.ForceOpen(); ferr != nil {
					c.logger.Warn("failed to force breaker open", zap.Error(ferr))
				}
				return nil, fmt.Errorf("%s: %v: %w", c.cfg.Source, err, ErrSourceUnavailable)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Timeouts and transient transport errors are retryable.
			metrics.ObserveFetch(c.cfg.Source, "error", time.Since(start))
			if berr := c.breaker.RecordFailure(); berr != nil {
				c.logger.Warn("failed to record breaker failure", zap.Error(berr))
			}
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			metrics.ObserveFetch(c.cfg.Source, "ok", time.Since(start))
			if err := c.breaker.RecordSuccess(); err != nil {
				c.logger.Warn("failed to record breaker success", zap.Error(err))
			}
			if !opts.NoCache && method == http.MethodGet {
				if err := c.cache.Set(cachePrefix+url, resp.Body, c.cfg.CacheTTL); err != nil {
					c.logger.Warn("failed to cache response", zap.Error(err))
				}
			}
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			metrics.ObserveFetch(c.cfg.Source, "rate_limited", time.Since(start))
			rateLimitWaits++
			if rateLimitWaits > maxRateLimitWaits {
				c.report(url, "rate_limit", "too many 429 responses", resp.StatusCode, attempt)
				return nil, fmt.Errorf("%s: %w", c.cfg.Source, ErrRateLimited)
			}
			wait := retryAfter(resp.Header)
			c.logger.Info("rate limited by server, waiting",
				zap.String("source", c.cfg.Source),
				zap.Duration("wait", wait))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			// A server-directed wait does not consume a retry.
			attempt--
			continue

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			metrics.ObserveFetch(c.cfg.Source, "auth", time.Since(start))
			c.report(url, "auth", http.StatusText(resp.StatusCode), resp.StatusCode, attempt)
			if err := c.breaker.RecordFailure(); err != nil {
				c.logger.Warn("failed to record breaker failure", zap.Error(err))
			}
			return nil, fmt.Errorf("%s: status %d: %w", c.cfg.Source, resp.StatusCode, ErrAuthRejected)

		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Definitive client errors never succeed on retry.
			metrics.ObserveFetch(c.cfg.Source, "client_error", time.Since(start))
			c.report(url, "http", http.StatusText(resp.StatusCode), resp.StatusCode, attempt)
			return nil, fmt.Errorf("%s: unexpected status %d", c.cfg.Source, resp.StatusCode)

		default:
			metrics.ObserveFetch(c.cfg.Source, "server_error", time.Since(start))
			if err := c.breaker.RecordFailure(); err != nil {
				c.logger.Warn("failed to record breaker failure", zap.Error(err))
			}
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		}
	}

	c.report(url, "retries_exhausted", fmt.Sprint(lastErr), 0, c.cfg.MaxAttempts)
	return nil, fmt.Errorf("%s: all %d attempts failed: %w", c.cfg.Source, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) request(ctx context.Context, method, url, body string, opts Options) (*Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	for k, vals := range opts.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: respBody, Header: resp.Header}, nil
}

// GetJSON fetches and decodes a JSON payload.
func (c *Client) GetJSON(ctx context.Context, url string, opts Options, v any) error {
	resp, err := c.Get(ctx, url, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", url, err)
	}
	return nil
}

// PostJSON posts a body and decodes the JSON response.
func (c *Client) PostJSON(ctx context.Context, url, body string, opts Options, v any) error {
	resp, err := c.Post(ctx, url, body, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", url, err)
	}
	return nil
}

func (c *Client) report(endpoint, kind, message string, status, retries int) {
	if c.reporter == nil {
		return
	}
	c.reporter.Report(errlog.APIError{
		Source:     c.cfg.Source,
		Endpoint:   endpoint,
		Kind:       kind,
		Message:    message,
		StatusCode: status,
		Retries:    retries,
		Timestamp:  time.Now(),
	})
}

func backoff(attempt int) time.Duration {
	d := backoffBase << (attempt - 1)
	if d > backoffCap {
		d = backoffCap
	}
	return d + time.Duration(rand.Int64N(int64(backoffBase)))
}

// retryAfter honors an integer-seconds Retry-After header, capped.
func retryAfter(h http.Header) time.Duration {
	raw := h.Get("Retry-After")
	if raw == "" {
		return backoffBase
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs <= 0 {
		return backoffBase
	}
	wait := time.Duration(secs) * time.Second
	if wait > maxRetryAfter {
		wait = maxRetryAfter
	}
	return wait
}

// fatalNetworkError reports whether the transport error means the source
// itself is unreachable, as opposed to a transient hiccup.
func fatalNetworkError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"no such host",
		"connection refused",
		"certificate",
		"tls handshake",
		"network is unreachable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
