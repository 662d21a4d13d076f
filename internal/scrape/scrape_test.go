package scrape

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/breaker"
	"github.com/owdb/wrestlebot/internal/fetch"
	"github.com/owdb/wrestlebot/internal/ratelimit"
	"github.com/owdb/wrestlebot/internal/robots"
	"github.com/owdb/wrestlebot/internal/statestore"
)

// testFetchClient builds a fully gated fetch client with generous limits
// against an in-memory state store.
func testFetchClient(t *testing.T, source string) (*fetch.Client, *statestore.Memory) {
	t.Helper()
	logger := zap.NewNop()
	store := statestore.NewMemory()
	brk := breaker.New(source, 5, 300*time.Second, store, logger)
	rob := robots.NewChecker("OWDBBot/1.0", store, logger)
	lim := ratelimit.New(source, 1000, 10000, 100000, store, logger)
	client := fetch.New(fetch.Config{Source: source, UserAgent: "OWDBBot/1.0"},
		brk, rob, lim, nil, store, logger)
	return client, store
}

// goJSONString encodes s as a JSON string literal for fixture payloads.
func goJSONString(s string) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}
