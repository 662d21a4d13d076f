// Package breaker implements a per-source circuit breaker whose state lives
// in the shared state store, so every run and restart observes the same
// failure history.
package breaker

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/statestore"
)

// State names persisted in the store.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// Health buckets the breaker state for operator-facing stats.
type Health string

const (
	Healthy     Health = "healthy"
	Degraded    Health = "degraded"
	Unavailable Health = "unavailable"
)

const stateTTL = 24 * time.Hour

type persistedState struct {
	Failures    int    `json:"failures"`
	State       string `json:"state"`
	LastFailure int64  `json:"last_failure,omitempty"` // unix seconds
}

// Breaker tracks consecutive failures for one source.
type Breaker struct {
	source           string
	failureThreshold int
	recoveryTimeout  time.Duration
	store            statestore.Store
	logger           *zap.Logger

	now func() time.Time
}

// New constructs a Breaker. A threshold of consecutive failures opens the
// circuit; after recoveryTimeout the next check half-opens it for a probe.
func New(source string, failureThreshold int, recoveryTimeout time.Duration, store statestore.Store, logger *zap.Logger) *Breaker {
	return &Breaker{
		source:           source,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		store:            store,
		logger:           logger,
		now:              time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

func (b *Breaker) key() string {
	return "breaker:" + b.source
}

func (b *Breaker) load() (persistedState, error) {
	raw, ok, err := b.store.Get(b.key())
	if err != nil {
		return persistedState{}, fmt.Errorf("load breaker state: %w", err)
	}
	if !ok {
		return persistedState{State: StateClosed}, nil
	}
	var st persistedState
	if err := json.Unmarshal(raw, &st); err != nil {
		return persistedState{State: StateClosed}, nil
	}
	return st, nil
}

func (b *Breaker) save(st persistedState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal breaker state: %w", err)
	}
	if err := b.store.Set(b.key(), raw, stateTTL); err != nil {
		return fmt.Errorf("save breaker state: %w", err)
	}
	return nil
}

// IsOpen reports whether calls should be blocked. After the recovery
// timeout it transitions open -> half-open and lets exactly the next call
// through as a probe.
func (b *Breaker) IsOpen() (bool, error) {
	st, err := b.load()
	if err != nil {
		return false, err
	}

	switch st.State {
	case StateOpen:
		if st.LastFailure > 0 {
			elapsed := b.now().Sub(time.Unix(st.LastFailure, 0))
			if elapsed >= b.recoveryTimeout {
				st.State = StateHalfOpen
				if err := b.save(st); err != nil {
					return false, err
				}
				b.logger.Info("circuit half-open, probing",
					zap.String("source", b.source))
				return false, nil
			}
		}
		return true, nil
	default:
		// closed and half-open both allow requests
		return false, nil
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (b *Breaker) RecordSuccess() error {
	return b.save(persistedState{State: StateClosed})
}

// RecordFailure increments the failure count and opens the circuit at the
// threshold. A failure during half-open re-opens immediately.
func (b *Breaker) RecordFailure() error {
	st, err := b.load()
	if err != nil {
		return err
	}
	st.Failures++
	st.LastFailure = b.now().Unix()
	if st.Failures >= b.failureThreshold || st.State == StateHalfOpen {
		if st.State != StateOpen {
			b.logger.Warn("circuit open", zap.String("source", b.source),
				zap.Int("failures", st.Failures))
		}
		st.State = StateOpen
	}
	return b.save(st)
}

// ForceOpen opens the circuit immediately, bypassing the threshold. Used
// when a fatal error (DNS, TLS, connection refused) shows the source is
// unreachable.
func (b *Breaker) ForceOpen() error {
	st, err := b.load()
	if err != nil {
		return err
	}
	st.Failures = b.failureThreshold
	st.LastFailure = b.now().Unix()
	st.State = StateOpen
	b.logger.Warn("circuit forced open", zap.String("source", b.source))
	return b.save(st)
}

// Status maps the breaker state onto operator-facing health.
func (b *Breaker) Status() (Health, error) {
	st, err := b.load()
	if err != nil {
		return Unavailable, err
	}
	switch st.State {
	case StateClosed:
		return Healthy, nil
	case StateHalfOpen:
		return Degraded, nil
	default:
		return Unavailable, nil
	}
}
