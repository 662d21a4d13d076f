// Package rotate decides which source to scrape next for an entity type,
// remembering per-source health across runs so a struggling source rests
// while a healthy one works.
package rotate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/metrics"
	"github.com/owdb/wrestlebot/internal/statestore"
)

// Status is a source's rotation state.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusRateLimited Status = "rate_limited"
	StatusUnavailable Status = "unavailable"
	StatusCooldown    Status = "cooldown"
)

const (
	stateTTL = time.Hour

	// Consecutive non-fatal failures before a source is sidelined for the
	// rest of the run.
	maxConsecutiveFailures = 5

	failureCooldown = 30 * time.Second

	// Wait for a cooling source only when it comes back this soon.
	maxWaitForSource = time.Minute
)

// ErrNoSources means every source for the entity type is sidelined.
var ErrNoSources = errors.New("no sources available")

type sourceState struct {
	Priority     int    `json:"priority"`
	Status       Status `json:"status"`
	AvailableAt  int64  `json:"available_at"`
	Failures     int    `json:"failures"`
	RequestsMade int    `json:"requests_made"`
	LastSuccess  int64  `json:"last_success"`
}

// Rotator schedules the sources of one entity type.
type Rotator struct {
	entityType string
	priorities map[string]int
	store      statestore.Store
	logger     *zap.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// New builds a Rotator. priorities maps source name to priority, lower
// meaning preferred.
func New(entityType string, priorities map[string]int, store statestore.Store, logger *zap.Logger) *Rotator {
	return &Rotator{
		entityType: entityType,
		priorities: priorities,
		store:      store,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// WithClock overrides the wall clock, for tests.
func (r *Rotator) WithClock(now func() time.Time) *Rotator {
	r.now = now
	return r
}

// Sources lists the configured source names, sorted.
func (r *Rotator) Sources() []string {
	names := make([]string, 0, len(r.priorities))
	for name := range r.priorities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
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

func (r *Rotator) key() string {
	return "rotator:" + r.entityType
}

// load merges the persisted state with the configured source set, so new
// sources appear and removed ones vanish without manual cleanup.
func (r *Rotator) load() (map[string]*sourceState, error) {
	states := make(map[string]*sourceState)
	raw, ok, err := r.store.Get(r.key())
	if err != nil {
		return nil, fmt.Errorf("failed to load rotation state: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &states); err != nil {
			r.logger.Warn("corrupt rotation state, resetting",
				zap.String("entity_type", r.entityType), zap.Error(err))
			states = make(map[string]*sourceState)
		}
	}
	merged := make(map[string]*sourceState, len(r.priorities))
	for name, priority := range r.priorities {
		if st, ok := states[name]; ok {
			st.Priority = priority
			merged[name] = st
		} else {
			merged[name] = &sourceState{Priority: priority, Status: StatusAvailable}
		}
	}
	return merged, nil
}

func (r *Rotator) save(states map[string]*sourceState) error {
	raw, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("failed to encode rotation state: %w", err)
	}
	if err := r.store.Set(r.key(), raw, stateTTL); err != nil {
		return fmt.Errorf("failed to save rotation state: %w", err)
	}
	return nil
}

// revive flips cooling sources whose wait has elapsed back to available.
func (r *Rotator) revive(states map[string]*sourceState) {
	now := r.now().Unix()
	for _, st := range states {
		if (st.Status == StatusCooldown || st.Status == StatusRateLimited) && st.AvailableAt <= now {
			st.Status = StatusAvailable
		}
	}
}

// Next picks the source to scrape: highest priority among the available,
// ties broken by fewer requests this run. When every source is cooling,
// it waits for the soonest one if that wait is short.
func (r *Rotator) Next(ctx context.Context) (string, error) {
	for {
		states, err := r.load()
		if err != nil {
			return "", err
		}
		r.revive(states)

		if name := pick(states); name != "" {
			states[name].RequestsMade++
			if err := r.save(states); err != nil {
				return "", err
			}
			return name, nil
		}

		wait, ok := soonestWait(states, r.now())
		if !ok || wait > maxWaitForSource {
			if err := r.save(states); err != nil {
				return "", err
			}
			return "", ErrNoSources
		}
		r.logger.Info("all sources cooling, waiting for soonest",
			zap.String("entity_type", r.entityType),
			zap.Duration("wait", wait))
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

func pick(states map[string]*sourceState) string {
	var best string
	for name, st := range states {
		if st.Status != StatusAvailable {
			continue
		}
		if best == "" {
			best = name
			continue
		}
		cur := states[best]
		if st.Priority < cur.Priority ||
			(st.Priority == cur.Priority && st.RequestsMade < cur.RequestsMade) ||
			(st.Priority == cur.Priority && st.RequestsMade == cur.RequestsMade && name < best) {
			best = name
		}
	}
	return best
}

func soonestWait(states map[string]*sourceState, now time.Time) (time.Duration, bool) {
	var soonest int64
	for _, st := range states {
		if st.Status != StatusCooldown && st.Status != StatusRateLimited {
			continue
		}
		if soonest == 0 || st.AvailableAt < soonest {
			soonest = st.AvailableAt
		}
	}
	if soonest == 0 {
		return 0, false
	}
	wait := time.Duration(soonest-now.Unix()) * time.Second
	if wait < time.Second {
		wait = time.Second
	}
	return wait, true
}

func (r *Rotator) update(source string, fn func(*sourceState)) error {
	states, err := r.load()
	if err != nil {
		return err
	}
	st, ok := states[source]
	if !ok {
		return fmt.Errorf("unknown source %q for %s", source, r.entityType)
	}
	fn(st)
	return r.save(states)
}

// MarkSuccess resets the failure streak and makes the source available.
func (r *Rotator) MarkSuccess(source string) error {
	return r.update(source, func(st *sourceState) {
		st.Status = StatusAvailable
		st.Failures = 0
		st.LastSuccess = r.now().Unix()
	})
}

// MarkRateLimited sidelines the source for the given cooldown.
func (r *Rotator) MarkRateLimited(source string, cooldown time.Duration) error {
	metrics.IncRotation(r.entityType, "rate_limited")
	return r.update(source, func(st *sourceState) {
		st.Status = StatusRateLimited
		st.AvailableAt = r.now().Add(cooldown).Unix()
	})
}

// MarkFailure records a failure. Fatal failures and long streaks sideline
// the source for the rest of the run; others cost a short cooldown.
func (r *Rotator) MarkFailure(source string, fatal bool) error {
	reason := "failure"
	if fatal {
		reason = "fatal"
	}
	metrics.IncRotation(r.entityType, reason)
	return r.update(source, func(st *sourceState) {
		st.Failures++
		if fatal || st.Failures >= maxConsecutiveFailures {
			st.Status = StatusUnavailable
			return
		}
		st.Status = StatusCooldown
		st.AvailableAt = r.now().Add(failureCooldown).Unix()
	})
}

// ResetAll clears the persisted state, returning every source to
// available.
func (r *Rotator) ResetAll() error {
	if err := r.store.Delete(r.key()); err != nil {
		return fmt.Errorf("failed to reset rotation state: %w", err)
	}
	return nil
}
