// Package robots enforces robots.txt directives per host, with a whitelist
// for endpoints that are official programmatic-access APIs.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/statestore"
)

const cacheTTL = 24 * time.Hour

// A missing robots.txt (404) is persisted as this marker so the absence is
// cached too.
var absentMarker = []byte{}

// apiWhitelist matches endpoints designed for programmatic access. These
// are allowed even when a blanket robots.txt disallow would block them;
// the MediaWiki Action and REST APIs are the canonical case.
var apiWhitelist = []*regexp.Regexp{
	regexp.MustCompile(`/w/api\.php`),
	regexp.MustCompile(`/api/rest_v1/`),
	regexp.MustCompile(`^https?://api\.`),
	regexp.MustCompile(`/api/1\.0/`),
}

// Checker fetches and caches robots.txt per host and answers allow/deny.
type Checker struct {
	client    *http.Client
	store     statestore.Store
	userAgent string
	logger    *zap.Logger

	mu      sync.Mutex
	parsers map[string]*robotstxt.RobotsData // host -> parsed file, nil = absent
}

// NewChecker builds a Checker. The store holds fetched robots.txt bodies so
// concurrent runs share one fetch per host per day.
func NewChecker(userAgent string, store statestore.Store, logger *zap.Logger) *Checker {
	return &Checker{
		client:    &http.Client{Timeout: 10 * time.Second},
		store:     store,
		userAgent: userAgent,
		logger:    logger,
		parsers:   make(map[string]*robotstxt.RobotsData),
	}
}

// CanFetch reports whether rawURL may be fetched for the configured
// user-agent. Whitelisted API endpoints are always allowed; fetch failures
// for the robots file itself default to allowed.
func (c *Checker) CanFetch(ctx context.Context, rawURL string) bool {
	for _, pattern := range apiWhitelist {
		if pattern.MatchString(rawURL) {
			return true
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data, err := c.load(ctx, parsed)
	if err != nil {
		c.logger.Warn("robots fetch failed; allowing access",
			zap.String("host", parsed.Host), zap.Error(err))
		return true
	}
	if data == nil {
		return true
	}
	group := data.FindGroup(c.userAgent)
	if group == nil {
		return true
	}
	path := parsed.Path
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return group.Test(path)
}

// CrawlDelay returns the Crawl-delay directive for rawURL's host, or zero.
func (c *Checker) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	data, err := c.load(ctx, parsed)
	if err != nil || data == nil {
		return 0
	}
	group := data.FindGroup(c.userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

func (c *Checker) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Host)

	c.mu.Lock()
	data, cached := c.parsers[hostKey]
	c.mu.Unlock()
	if cached {
		return data, nil
	}

	storeKey := "robots:" + hostKey
	if raw, ok, err := c.store.Get(storeKey); err == nil && ok {
		data, perr := c.parse(hostKey, raw)
		if perr == nil {
			return data, nil
		}
	}

	body, status, err := c.fetch(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		body = absentMarker
	}
	if err := c.store.Set(storeKey, body, cacheTTL); err != nil {
		c.logger.Debug("robots cache write failed", zap.Error(err))
	}
	return c.parse(hostKey, body)
}

// parse turns a cached body into parsed data; an empty body is the absent
// marker and means nothing is disallowed.
func (c *Checker) parse(hostKey string, body []byte) (*robotstxt.RobotsData, error) {
	if len(body) == 0 {
		c.mu.Lock()
		c.parsers[hostKey] = nil
		c.mu.Unlock()
		return nil, nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	c.mu.Lock()
	c.parsers[hostKey] = data
	c.mu.Unlock()
	return data, nil
}

func (c *Checker) fetch(ctx context.Context, parsed *url.URL) ([]byte, int, error) {
	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close robots response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return nil, resp.StatusCode, fmt.Errorf("robots status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read robots body: %w", err)
	}
	return body, resp.StatusCode, nil
}
