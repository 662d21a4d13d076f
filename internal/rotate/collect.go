package rotate

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/fetch"
)

const (
	// Server-imposed rate limits get a long rest.
	rateLimitCooldown = 5 * time.Minute
	// A source with nothing to give right now is asked again later.
	emptyResultCooldown = 3 * time.Minute
)

// ScrapeFunc fetches up to limit records from the named source.
type ScrapeFunc[T any] func(ctx context.Context, source string, limit int) ([]T, error)

// Collect accumulates records across rotated sources until the limit is
// reached or maxSources distinct sources have been tried. Per-source errors
// are classified and fed back into the rotation; they never abort the
// collection.
func Collect[T any](ctx context.Context, r *Rotator, limit, maxSources int, scrape ScrapeFunc[T]) ([]T, error) {
	var out []T
	tried := make(map[string]bool)
	for len(tried) < maxSources && len(out) < limit {
		source, err := r.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrNoSources) {
				break
			}
			return out, err
		}
		tried[source] = true

		items, err := scrape(ctx, source, limit-len(out))
		out = append(out, items...)
		switch {
		case err != nil:
			r.observeError(source, err)
		case len(items) == 0:
			r.logger.Info("source returned nothing, cooling",
				zap.String("entity_type", r.entityType),
				zap.String("source", source))
			if merr := r.MarkRateLimited(source, emptyResultCooldown); merr != nil {
				r.logger.Warn("failed to mark source", zap.Error(merr))
			}
		default:
			if merr := r.MarkSuccess(source); merr != nil {
				r.logger.Warn("failed to mark source", zap.Error(merr))
			}
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
	}
	return out, nil
}

// observeError maps a scrape error onto the source's rotation state.
func (r *Rotator) observeError(source string, err error) {
	r.logger.Warn("source scrape failed",
		zap.String("entity_type", r.entityType),
		zap.String("source", source),
		zap.Error(err))

	var merr error
	switch classifyError(err) {
	case "rate_limited":
		merr = r.MarkRateLimited(source, rateLimitCooldown)
	case "fatal":
		merr = r.MarkFailure(source, true)
	default:
		merr = r.MarkFailure(source, false)
	}
	if merr != nil {
		r.logger.Warn("failed to mark source", zap.Error(merr))
	}
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, fetch.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, fetch.ErrSourceUnavailable),
		errors.Is(err, fetch.ErrCircuitOpen),
		errors.Is(err, fetch.ErrAuthRejected),
		errors.Is(err, fetch.ErrRobotsDisallowed):
		return "fatal"
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "too many requests", "429"} {
		if strings.Contains(msg, marker) {
			return "rate_limited"
		}
	}
	for _, marker := range []string{"ssl", "certificate", "connection", "timeout", "timed out", "no such host"} {
		if strings.Contains(msg, marker) {
			return "fatal"
		}
	}
	return "failure"
}
