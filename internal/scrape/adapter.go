// Package scrape contains the per-source adapters. Each adapter knows one
// site or API and turns its pages into raw records; all network traffic
// goes through the gated fetch client.
package scrape

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/owdb/wrestlebot/internal/model"
)

// Adapter is the base contract every source adapter satisfies.
type Adapter interface {
	Name() string
}

// Per-kind scrape contracts. An adapter implements the ones its source can
// serve; the rotator selects among adapters implementing the same one.

type WrestlerSource interface {
	Adapter
	ScrapeWrestlers(ctx context.Context, limit int) ([]model.RawWrestler, error)
}

type PromotionSource interface {
	Adapter
	ScrapePromotions(ctx context.Context, limit int) ([]model.RawPromotion, error)
}

type EventSource interface {
	Adapter
	ScrapeEvents(ctx context.Context, limit int) ([]model.RawEvent, error)
}

type GameSource interface {
	Adapter
	ScrapeGames(ctx context.Context, limit int) ([]model.RawGame, error)
}

type BookSource interface {
	Adapter
	ScrapeBooks(ctx context.Context, limit int) ([]model.RawBook, error)
}

type PodcastSource interface {
	Adapter
	ScrapePodcasts(ctx context.Context, limit int) ([]model.RawPodcast, error)
}

type SpecialSource interface {
	Adapter
	ScrapeSpecials(ctx context.Context, limit int) ([]model.RawSpecial, error)
}

// Registry holds the configured adapters by name.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Add registers an adapter under its own name.
func (r *Registry) Add(a Adapter) {
	r.adapters[a.Name()] = a
}

// Get looks up an adapter by name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// extractYear pulls the first plausible year out of free text like
// "c. 1978 (debut)". Returns "" when none is present.
func extractYear(s string) string {
	return yearRe.FindString(s)
}

// cleanText collapses whitespace runs, including the non-breaking spaces
// wiki markup loves.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
