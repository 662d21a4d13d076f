// Package dedupe finds existing entities that a newly scraped record
// duplicates, by normalized fuzzy name comparison plus per-kind identity
// rules.
package dedupe

import (
	"strings"

	"github.com/owdb/wrestlebot/internal/model"
	"github.com/owdb/wrestlebot/internal/validate"
)

// Matcher holds the similarity thresholds for one import run and memoizes
// lookups so repeated occurrences of the same name within a run resolve
// without rescanning.
type Matcher struct {
	// Threshold is the default similarity cutoff for a match.
	Threshold float64
	// YearlessGameThreshold applies when either game lacks a release
	// year; near-identical names are the only safe signal then.
	YearlessGameThreshold float64

	memo map[string]int64
}

// New builds a Matcher with the given default threshold. The yearless game
// cutoff is pinned higher regardless.
func New(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = 0.85
	}
	return &Matcher{
		Threshold:             threshold,
		YearlessGameThreshold: 0.95,
		memo:                  make(map[string]int64),
	}
}

func (m *Matcher) remembered(key string) (int64, bool) {
	id, ok := m.memo[key]
	return id, ok
}

func (m *Matcher) remember(key string, id int64) {
	m.memo[key] = id
}

// Wrestler matches on fuzzy name, including both sides' ring-name aliases.
// An alias of the incoming record matching a candidate's name counts, and
// vice versa.
func (m *Matcher) Wrestler(candidates []model.Wrestler, name string, aliases []string) (int64, bool) {
	norm := validate.NormalizeName(name)
	if norm == "" {
		return 0, false
	}
	key := "wrestler:" + norm
	if id, ok := m.remembered(key); ok {
		return id, true
	}
	incoming := append([]string{norm}, normalizeAll(aliases)...)
	for _, c := range candidates {
		existing := append([]string{validate.NormalizeName(c.Name)}, normalizeAll(c.AliasList())...)
		if anyPairMatches(incoming, existing, m.Threshold) {
			m.remember(key, c.ID)
			return c.ID, true
		}
	}
	return 0, false
}

// Promotion matches on fuzzy name or exact abbreviation.
func (m *Matcher) Promotion(candidates []model.Promotion, name, abbreviation string) (int64, bool) {
	norm := validate.NormalizeName(name)
	if norm == "" {
		return 0, false
	}
	key := "promotion:" + norm
	if id, ok := m.remembered(key); ok {
		return id, true
	}
	abbr := strings.ToUpper(strings.TrimSpace(abbreviation))
	for _, c := range candidates {
		if abbr != "" && abbr == strings.ToUpper(strings.TrimSpace(c.Abbreviation)) {
			m.remember(key, c.ID)
			return c.ID, true
		}
		if Similarity(norm, validate.NormalizeName(c.Name)) >= m.Threshold {
			m.remember(key, c.ID)
			return c.ID, true
		}
	}
	return 0, false
}

// Event matches on exact date plus fuzzy name. Different dates are always
// different events, however similar the names.
func (m *Matcher) Event(candidates []model.Event, name, date string) (int64, bool) {
	norm := validate.NormalizeName(name)
	if norm == "" || date == "" {
		return 0, false
	}
	key := "event:" + norm + ":" + date
	if id, ok := m.remembered(key); ok {
		return id, true
	}
	for _, c := range candidates {
		if c.Date != date {
			continue
		}
		if Similarity(norm, validate.NormalizeName(c.Name)) >= m.Threshold {
			m.remember(key, c.ID)
			return c.ID, true
		}
	}
	return 0, false
}

// Venue matches on fuzzy name alone.
func (m *Matcher) Venue(candidates []model.Venue, name string) (int64, bool) {
	norm := validate.NormalizeName(name)
	if norm == "" {
		return 0, false
	}
	key := "venue:" + norm
	if id, ok := m.remembered(key); ok {
		return id, true
	}
	for _, c := range candidates {
		if Similarity(norm, validate.NormalizeName(c.Name)) >= m.Threshold {
			m.remember(key, c.ID)
			return c.ID, true
		}
	}
	return 0, false
}

// Game matches on fuzzy name when release years agree; when either side
// lacks a year the name bar rises to the yearless cutoff. Annual series
// entries differ only by year, so mismatched years never match.
func (m *Matcher) Game(candidates []model.VideoGame, name string, year int) (int64, bool) {
	norm := validate.NormalizeName(name)
	if norm == "" {
		return 0, false
	}
	key := "game:" + norm
	if id, ok := m.remembered(key); ok {
		return id, true
	}
	for _, c := range candidates {
		threshold := m.Threshold
		switch {
		case year == 0 || c.ReleaseYear == 0:
			threshold = m.YearlessGameThreshold
		case year != c.ReleaseYear:
			continue
		}
		if Similarity(norm, validate.NormalizeName(c.Name)) >= threshold {
			m.remember(key, c.ID)
			return c.ID, true
		}
	}
	return 0, false
}

// Book matches on exact ISBN first, then fuzzy title plus fuzzy author.
func (m *Matcher) Book(candidates []model.Book, title, author, isbn string) (int64, bool) {
	norm := validate.NormalizeName(title)
	if norm == "" {
		return 0, false
	}
	key := "book:" + norm
	if id, ok := m.remembered(key); ok {
		return id, true
	}
	for _, c := range candidates {
		if isbn != "" && isbn == c.ISBN {
			m.remember(key, c.ID)
			return c.ID, true
		}
	}
	normAuthor := validate.NormalizeName(author)
	for _, c := range candidates {
		if Similarity(norm, validate.NormalizeName(c.Title)) < m.Threshold {
			continue
		}
		if normAuthor != "" {
			candAuthor := validate.NormalizeName(c.Author)
			if candAuthor != "" && Similarity(normAuthor, candAuthor) < m.Threshold {
				continue
			}
		}
		m.remember(key, c.ID)
		return c.ID, true
	}
	return 0, false
}

// Podcast matches on fuzzy name alone.
func (m *Matcher) Podcast(candidates []model.Podcast, name string) (int64, bool) {
	norm := validate.NormalizeName(name)
	if norm == "" {
		return 0, false
	}
	key := "podcast:" + norm
	if id, ok := m.remembered(key); ok {
		return id, true
	}
	for _, c := range candidates {
		if Similarity(norm, validate.NormalizeName(c.Name)) >= m.Threshold {
			m.remember(key, c.ID)
			return c.ID, true
		}
	}
	return 0, false
}

// Special matches on fuzzy title; when both sides carry release years they
// must agree.
func (m *Matcher) Special(candidates []model.Special, title string, year int) (int64, bool) {
	norm := validate.NormalizeName(title)
	if norm == "" {
		return 0, false
	}
	key := "special:" + norm
	if id, ok := m.remembered(key); ok {
		return id, true
	}
	for _, c := range candidates {
		if year != 0 && c.ReleaseYear != 0 && year != c.ReleaseYear {
			continue
		}
		if Similarity(norm, validate.NormalizeName(c.Title)) >= m.Threshold {
			m.remember(key, c.ID)
			return c.ID, true
		}
	}
	return 0, false
}

func normalizeAll(names []string) []string {
	var out []string
	for _, n := range names {
		if norm := validate.NormalizeName(n); norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

func anyPairMatches(a, b []string, threshold float64) bool {
	for _, x := range a {
		for _, y := range b {
			if Similarity(x, y) >= threshold {
				return true
			}
		}
	}
	return false
}
