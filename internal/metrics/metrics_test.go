package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // must not panic on duplicate registration
}

func TestObserveFetchCounts(t *testing.T) {
	Init()
	before := testutil.ToFloat64(fetchRequestsTotal.WithLabelValues("wikipedia", "success"))
	ObserveFetch("wikipedia", "success", 100*time.Millisecond)
	after := testutil.ToFloat64(fetchRequestsTotal.WithLabelValues("wikipedia", "success"))
	assert.Equal(t, before+1, after)
}

func TestHelpersSafeBeforeInit(t *testing.T) {
	// Helpers are no-ops when Init has not run; exercised via fresh labels
	// since Init is package-global. The nil guards protect library users.
	assert.NotPanics(t, func() {
		IncFetchRetry("x")
		IncCacheHit("x")
		AddScraped("x", "wrestlers", 3)
		IncImported("wrestlers", "created")
		IncRotation("events", "rate_limited")
	})
}
