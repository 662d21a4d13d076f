// Package errlog keeps a rolling feed of recent fetch errors for
// operational visibility.
package errlog

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/statestore"
)

const (
	feedKey   = "apierrors"
	maxErrors = 100
	feedTTL   = 24 * time.Hour
)

// APIError is one structured error record.
type APIError struct {
	Source     string    `json:"source"`
	Endpoint   string    `json:"endpoint"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	Retries    int       `json:"retries"`
	Timestamp  time.Time `json:"timestamp"`
}

// Reporter appends to and reads from the shared error feed.
type Reporter struct {
	store  statestore.Store
	logger *zap.Logger

	now func() time.Time
}

// New builds a Reporter over the shared state store.
func New(store statestore.Store, logger *zap.Logger) *Reporter {
	return &Reporter{store: store, logger: logger, now: time.Now}
}

func (r *Reporter) load() ([]APIError, error) {
	raw, ok, err := r.store.Get(feedKey)
	if err != nil {
		return nil, fmt.Errorf("load error feed: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var errs []APIError
	if err := json.Unmarshal(raw, &errs); err != nil {
		return nil, nil
	}
	return errs, nil
}

func (r *Reporter) save(errs []APIError) error {
	raw, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("marshal error feed: %w", err)
	}
	if err := r.store.Set(feedKey, raw, feedTTL); err != nil {
		return fmt.Errorf("save error feed: %w", err)
	}
	return nil
}

// Report appends one error, trimming the feed to the most recent entries.
func (r *Reporter) Report(e APIError) {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}
	r.logger.Warn("api error",
		zap.String("source", e.Source),
		zap.String("endpoint", e.Endpoint),
		zap.String("kind", e.Kind),
		zap.String("message", e.Message),
		zap.Int("status", e.StatusCode),
		zap.Int("retries", e.Retries))

	errs, err := r.load()
	if err != nil {
		r.logger.Error("error feed read failed", zap.Error(err))
		return
	}
	errs = append(errs, e)
	if len(errs) > maxErrors {
		errs = errs[len(errs)-maxErrors:]
	}
	if err := r.save(errs); err != nil {
		r.logger.Error("error feed write failed", zap.Error(err))
	}
}

// Errors returns recent errors, optionally filtered by source.
func (r *Reporter) Errors(source string) ([]APIError, error) {
	errs, err := r.load()
	if err != nil {
		return nil, err
	}
	if source == "" {
		return errs, nil
	}
	filtered := errs[:0:0]
	for _, e := range errs {
		if e.Source == source {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Clear drops errors for one source, or every error when source is empty.
func (r *Reporter) Clear(source string) error {
	if source == "" {
		return r.store.Delete(feedKey)
	}
	errs, err := r.load()
	if err != nil {
		return err
	}
	kept := errs[:0:0]
	for _, e := range errs {
		if e.Source != source {
			kept = append(kept, e)
		}
	}
	return r.save(kept)
}
