// Package ratelimit implements the per-source request budget across rolling
// minute, hour, and day windows. Counters live in the shared state store so
// concurrent runs and process restarts share one budget.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/statestore"
)

// ErrBudgetExhausted is returned when Acquire cannot obtain a slot within
// its timeout.
var ErrBudgetExhausted = errors.New("rate limit budget exhausted")

// Bucket TTLs outlive their window so stale counters self-clean.
const (
	minuteTTL = 2 * time.Minute
	hourTTL   = 2 * time.Hour
	dayTTL    = 48 * time.Hour

	// maxSleepSlice bounds each wait so Acquire re-checks the budget and
	// the context regularly.
	maxSleepSlice = 5 * time.Second
)

// Window reports usage against one ceiling.
type Window struct {
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}

// Stats exposes all three windows for observability.
type Stats struct {
	Source string `json:"source"`
	Minute Window `json:"minute"`
	Hour   Window `json:"hour"`
	Day    Window `json:"day"`
}

// Limiter gates requests to one source.
type Limiter struct {
	source string
	rpm    int64
	rph    int64
	rpd    int64
	store  statestore.Store
	logger *zap.Logger

	now func() time.Time
}

// New constructs a Limiter for source with per-minute/hour/day ceilings.
func New(source string, rpm, rph, rpd int, store statestore.Store, logger *zap.Logger) *Limiter {
	return &Limiter{
		source: source,
		rpm:    int64(rpm),
		rph:    int64(rph),
		rpd:    int64(rpd),
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) key(window string, width int64) string {
	bucket := l.now().Unix() / width
	return fmt.Sprintf("ratelimit:%s:%s:%d", l.source, window, bucket)
}

func (l *Limiter) count(window string, width int64) (int64, error) {
	raw, ok, err := l.store.Get(l.key(window, width))
	if err != nil {
		return 0, fmt.Errorf("read %s bucket: %w", window, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Check reports whether a request is allowed now and, if not, how long
// until the nearest blocking window rolls over.
func (l *Limiter) Check() (bool, time.Duration, error) {
	minute, err := l.count("minute", 60)
	if err != nil {
		return false, 0, err
	}
	hour, err := l.count("hour", 3600)
	if err != nil {
		return false, 0, err
	}
	day, err := l.count("day", 86400)
	if err != nil {
		return false, 0, err
	}

	now := l.now().Unix()
	if day >= l.rpd {
		return false, time.Duration(86400-now%86400) * time.Second, nil
	}
	if hour >= l.rph {
		return false, time.Duration(3600-now%3600) * time.Second, nil
	}
	if minute >= l.rpm {
		return false, time.Duration(60-now%60) * time.Second, nil
	}
	return true, 0, nil
}

func (l *Limiter) increment() error {
	for _, w := range []struct {
		name  string
		width int64
		ttl   time.Duration
	}{
		{"minute", 60, minuteTTL},
		{"hour", 3600, hourTTL},
		{"day", 86400, dayTTL},
	} {
		if _, err := l.store.IncrBy(l.key(w.name, w.width), 1, w.ttl); err != nil {
			return fmt.Errorf("increment %s bucket: %w", w.name, err)
		}
	}
	return nil
}

// Acquire blocks until a request slot is available or the timeout budget is
// spent. On success all three window counters are incremented.
func (l *Limiter) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline := l.now().Add(timeout)

	for {
		allowed, wait, err := l.Check()
		if err != nil {
			return err
		}
		if allowed {
			return l.increment()
		}

		remaining := deadline.Sub(l.now())
		if wait > remaining {
			l.logger.Warn("rate limit wait exceeds budget",
				zap.String("source", l.source),
				zap.Duration("wait", wait),
				zap.Duration("remaining", remaining))
			return fmt.Errorf("%w: %s needs %s", ErrBudgetExhausted, l.source, wait)
		}

		sleep := wait
		if sleep > maxSleepSlice {
			sleep = maxSleepSlice
		}
		// Jitter staggers concurrent runs waiting on the same boundary.
		sleep += time.Duration(rand.Int64N(int64(time.Second)))

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Stats returns current usage against all three ceilings.
func (l *Limiter) Stats() (Stats, error) {
	minute, err := l.count("minute", 60)
	if err != nil {
		return Stats{}, err
	}
	hour, err := l.count("hour", 3600)
	if err != nil {
		return Stats{}, err
	}
	day, err := l.count("day", 86400)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Source: l.source,
		Minute: Window{Current: minute, Limit: l.rpm},
		Hour:   Window{Current: hour, Limit: l.rph},
		Day:    Window{Current: day, Limit: l.rpd},
	}, nil
}
