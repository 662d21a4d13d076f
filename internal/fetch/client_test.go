package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/breaker"
	"github.com/owdb/wrestlebot/internal/errlog"
	"github.com/owdb/wrestlebot/internal/ratelimit"
	"github.com/owdb/wrestlebot/internal/robots"
	"github.com/owdb/wrestlebot/internal/statestore"
)

type fixture struct {
	client  *Client
	breaker *breaker.Breaker
	store   *statestore.Memory
	slept   *[]time.Duration
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := statestore.NewMemory()
	if cfg.Source == "" {
		cfg.Source = "testsource"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "OWDBBot/1.0 (+https://wrestlingdb.org/about/bot)"
	}
	if cfg.AcquireTimeout == 0 {
		cfg.AcquireTimeout = 50 * time.Millisecond
	}

	brk := breaker.New(cfg.Source, 5, 300*time.Second, store, logger)
	rob := robots.NewChecker(cfg.UserAgent, store, logger)
	lim := ratelimit.New(cfg.Source, 1000, 10000, 100000, store, logger)
	rep := errlog.New(store, logger)

	c := New(cfg, brk, rob, lim, rep, store, logger)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return &fixture{client: c, breaker: brk, store: store, slept: &slept}
}

func TestGetSuccessAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := newFixture(t, Config{})
	resp, err := f.client.Get(context.Background(), srv.URL+"/page", Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(resp.Body))
	assert.False(t, resp.FromCache)

	resp, err = f.client.Get(context.Background(), srv.URL+"/page", Options{})
	require.NoError(t, err)
	assert.True(t, resp.FromCache)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetRobotsDisallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newFixture(t, Config{})
	_, err := f.client.Get(context.Background(), srv.URL+"/private/page", Options{})
	assert.ErrorIs(t, err, ErrRobotsDisallowed)
}

func TestGetCircuitOpen(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.breaker.ForceOpen())

	_, err := f.client.Get(context.Background(), "https://example.com/page", Options{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newFixture(t, Config{MaxAttempts: 3})
	resp, err := f.client.Get(context.Background(), srv.URL+"/flaky", Options{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(resp.Body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetClientErrorNoRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newFixture(t, Config{MaxAttempts: 3})
	_, err := f.client.Get(context.Background(), srv.URL+"/missing", Options{})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetAuthRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newFixture(t, Config{MaxAttempts: 3})
	_, err := f.client.Get(context.Background(), srv.URL+"/secret", Options{})
	assert.ErrorIs(t, err, ErrAuthRejected)
}

func TestGetHonorsRetryAfter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// One attempt is enough because the 429 wait does not consume it.
	f := newFixture(t, Config{MaxAttempts: 1})
	resp, err := f.client.Get(context.Background(), srv.URL+"/busy", Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Contains(t, *f.slept, 7*time.Second)
}

func TestGetFatalOpensBreaker(t *testing.T) {
	f := newFixture(t, Config{MaxAttempts: 3})

	// Nothing listens here; the refused connection is a fatal error.
	_, err := f.client.Get(context.Background(), "http://127.0.0.1:1/page", Options{})
	require.ErrorIs(t, err, ErrSourceUnavailable)

	open, berr := f.breaker.IsOpen()
	require.NoError(t, berr)
	assert.True(t, open)
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"name":"Bret Hart","debut":1978}`))
	}))
	defer srv.Close()

	f := newFixture(t, Config{})
	var payload struct {
		Name  string `json:"name"`
		Debut int    `json:"debut"`
	}
	require.NoError(t, f.client.GetJSON(context.Background(), srv.URL+"/api", Options{}, &payload))
	assert.Equal(t, "Bret Hart", payload.Name)
	assert.Equal(t, 1978, payload.Debut)
}

func TestRetryAfterParsing(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, backoffBase, retryAfter(h))

	h.Set("Retry-After", "20")
	assert.Equal(t, 20*time.Second, retryAfter(h))

	h.Set("Retry-After", "9000")
	assert.Equal(t, maxRetryAfter, retryAfter(h))

	h.Set("Retry-After", "garbage")
	assert.Equal(t, backoffBase, retryAfter(h))
}

func TestFatalNetworkError(t *testing.T) {
	assert.True(t, fatalNetworkError(errors.New("dial tcp: lookup nope.invalid: no such host")))
	assert.True(t, fatalNetworkError(errors.New("x509: certificate signed by unknown authority")))
	assert.False(t, fatalNetworkError(errors.New("context deadline exceeded")))
}
