package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/statestore"
)

func newTestChecker(t *testing.T) (*Checker, *statestore.Memory) {
	t.Helper()
	mem := statestore.NewMemory()
	t.Cleanup(func() { _ = mem.Close() })
	return NewChecker("OWDBBot/1.0", mem, zap.NewNop()), mem
}

func robotsServer(t *testing.T, body string, status int, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			if hits != nil {
				hits.Add(1)
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDisallowedPath(t *testing.T) {
	c, _ := newTestChecker(t)
	srv := robotsServer(t, "User-agent: *\nDisallow: /private/\n", http.StatusOK, nil)

	assert.True(t, c.CanFetch(context.Background(), srv.URL+"/public/page"))
	assert.False(t, c.CanFetch(context.Background(), srv.URL+"/private/page"))
}

func TestWhitelistOverridesBlanketDisallow(t *testing.T) {
	c, _ := newTestChecker(t)
	srv := robotsServer(t, "User-agent: *\nDisallow: /\n", http.StatusOK, nil)

	assert.False(t, c.CanFetch(context.Background(), srv.URL+"/wiki/Some_Page"))
	// The structured API path is meant for programmatic access and stays
	// allowed despite the blanket disallow.
	assert.True(t, c.CanFetch(context.Background(), srv.URL+"/w/api.php?action=query"))
	assert.True(t, c.CanFetch(context.Background(), srv.URL+"/api/rest_v1/page/summary/X"))
}

func TestMissingRobotsAllowsEverything(t *testing.T) {
	c, _ := newTestChecker(t)
	srv := robotsServer(t, "", http.StatusNotFound, nil)

	assert.True(t, c.CanFetch(context.Background(), srv.URL+"/anything"))
}

func TestFetchFailureDefaultsToAllowed(t *testing.T) {
	c, _ := newTestChecker(t)
	// Unreachable host.
	assert.True(t, c.CanFetch(context.Background(), "http://127.0.0.1:1/page"))
}

func TestRobotsFetchedOncePerHost(t *testing.T) {
	c, _ := newTestChecker(t)
	var hits atomic.Int64
	srv := robotsServer(t, "User-agent: *\nDisallow: /x/\n", http.StatusOK, &hits)

	for i := 0; i < 5; i++ {
		c.CanFetch(context.Background(), srv.URL+"/page")
	}
	assert.Equal(t, int64(1), hits.Load())
}

func TestSharedCacheAvoidsRefetch(t *testing.T) {
	mem := statestore.NewMemory()
	t.Cleanup(func() { _ = mem.Close() })
	var hits atomic.Int64
	srv := robotsServer(t, "User-agent: *\nDisallow: /x/\n", http.StatusOK, &hits)

	c1 := NewChecker("OWDBBot/1.0", mem, zap.NewNop())
	require.False(t, c1.CanFetch(context.Background(), srv.URL+"/x/page"))

	// A fresh checker over the same store must not hit the network again.
	c2 := NewChecker("OWDBBot/1.0", mem, zap.NewNop())
	assert.False(t, c2.CanFetch(context.Background(), srv.URL+"/x/page"))
	assert.Equal(t, int64(1), hits.Load())
}

func TestCrawlDelay(t *testing.T) {
	c, _ := newTestChecker(t)
	srv := robotsServer(t, "User-agent: *\nCrawl-delay: 7\n", http.StatusOK, nil)

	assert.Equal(t, 7*time.Second, c.CrawlDelay(context.Background(), srv.URL+"/page"))
}

func TestCrawlDelayAbsent(t *testing.T) {
	c, _ := newTestChecker(t)
	srv := robotsServer(t, "User-agent: *\nDisallow:\n", http.StatusOK, nil)

	assert.Equal(t, time.Duration(0), c.CrawlDelay(context.Background(), srv.URL+"/page"))
}
