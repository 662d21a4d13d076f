package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/owdb/wrestlebot/internal/model"
)

// Memory is an in-memory Store used for dry runs and tests. IDs are
// assigned from a single counter across all kinds.
type Memory struct {
	mu     sync.Mutex
	nextID int64

	wrestlers  map[int64]model.Wrestler
	promotions map[int64]model.Promotion
	venues     map[int64]model.Venue
	events     map[int64]model.Event
	matches    map[int64]model.Match
	titles     map[int64]model.Title
	games      map[int64]model.VideoGame
	books      map[int64]model.Book
	podcasts   map[int64]model.Podcast
	specials   map[int64]model.Special
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		wrestlers:  make(map[int64]model.Wrestler),
		promotions: make(map[int64]model.Promotion),
		venues:     make(map[int64]model.Venue),
		events:     make(map[int64]model.Event),
		matches:    make(map[int64]model.Match),
		titles:     make(map[int64]model.Title),
		games:      make(map[int64]model.VideoGame),
		books:      make(map[int64]model.Book),
		podcasts:   make(map[int64]model.Podcast),
		specials:   make(map[int64]model.Special),
	}
}

func (m *Memory) allocID() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) Wrestlers(_ context.Context) ([]model.Wrestler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Wrestler, 0, len(m.wrestlers))
	for _, w := range m.wrestlers {
		out = append(out, w)
	}
	return out, nil
}

func (m *Memory) CreateWrestler(_ context.Context, w model.Wrestler) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = m.allocID()
	m.wrestlers[w.ID] = w
	return w.ID, nil
}

func (m *Memory) UpdateWrestler(_ context.Context, w model.Wrestler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wrestlers[w.ID]; !ok {
		return fmt.Errorf("wrestler %d not found", w.ID)
	}
	m.wrestlers[w.ID] = w
	return nil
}

func (m *Memory) Promotions(_ context.Context) ([]model.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Promotion, 0, len(m.promotions))
	for _, p := range m.promotions {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) CreatePromotion(_ context.Context, p model.Promotion) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.allocID()
	m.promotions[p.ID] = p
	return p.ID, nil
}

func (m *Memory) UpdatePromotion(_ context.Context, p model.Promotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.promotions[p.ID]; !ok {
		return fmt.Errorf("promotion %d not found", p.ID)
	}
	m.promotions[p.ID] = p
	return nil
}

func (m *Memory) Venues(_ context.Context) ([]model.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Venue, 0, len(m.venues))
	for _, v := range m.venues {
		out = append(out, v)
	}
	return out, nil
}

func (m *Memory) CreateVenue(_ context.Context, v model.Venue) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.allocID()
	m.venues[v.ID] = v
	return v.ID, nil
}

func (m *Memory) Events(_ context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	return out, nil
}

func (m *Memory) CreateEvent(_ context.Context, e model.Event, matches []model.Match) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.allocID()
	m.events[e.ID] = e
	for i, match := range matches {
		match.ID = m.allocID()
		match.EventID = e.ID
		match.MatchOrder = i + 1
		m.matches[match.ID] = match
	}
	return e.ID, nil
}

func (m *Memory) UpdateEvent(_ context.Context, e model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; !ok {
		return fmt.Errorf("event %d not found", e.ID)
	}
	m.events[e.ID] = e
	return nil
}

// Matches returns the stored matches for an event, for tests.
func (m *Memory) Matches(eventID int64) []model.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Match
	for _, match := range m.matches {
		if match.EventID == eventID {
			out = append(out, match)
		}
	}
	return out
}

func (m *Memory) Titles(_ context.Context) ([]model.Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Title, 0, len(m.titles))
	for _, t := range m.titles {
		out = append(out, t)
	}
	return out, nil
}

func (m *Memory) CreateTitle(_ context.Context, t model.Title) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.allocID()
	m.titles[t.ID] = t
	return t.ID, nil
}

func (m *Memory) Games(_ context.Context) ([]model.VideoGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.VideoGame, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, g)
	}
	return out, nil
}

func (m *Memory) CreateGame(_ context.Context, g model.VideoGame) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.allocID()
	m.games[g.ID] = g
	return g.ID, nil
}

func (m *Memory) UpdateGame(_ context.Context, g model.VideoGame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; !ok {
		return fmt.Errorf("game %d not found", g.ID)
	}
	m.games[g.ID] = g
	return nil
}

func (m *Memory) Books(_ context.Context) ([]model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Book, 0, len(m.books))
	for _, b := range m.books {
		out = append(out, b)
	}
	return out, nil
}

func (m *Memory) CreateBook(_ context.Context, b model.Book) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.allocID()
	m.books[b.ID] = b
	return b.ID, nil
}

func (m *Memory) UpdateBook(_ context.Context, b model.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[b.ID]; !ok {
		return fmt.Errorf("book %d not found", b.ID)
	}
	m.books[b.ID] = b
	return nil
}

func (m *Memory) Podcasts(_ context.Context) ([]model.Podcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Podcast, 0, len(m.podcasts))
	for _, p := range m.podcasts {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) CreatePodcast(_ context.Context, p model.Podcast) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.allocID()
	m.podcasts[p.ID] = p
	return p.ID, nil
}

func (m *Memory) UpdatePodcast(_ context.Context, p model.Podcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.podcasts[p.ID]; !ok {
		return fmt.Errorf("podcast %d not found", p.ID)
	}
	m.podcasts[p.ID] = p
	return nil
}

func (m *Memory) Specials(_ context.Context) ([]model.Special, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Special, 0, len(m.specials))
	for _, s := range m.specials {
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) CreateSpecial(_ context.Context, s model.Special) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.allocID()
	m.specials[s.ID] = s
	return s.ID, nil
}

func (m *Memory) UpdateSpecial(_ context.Context, s model.Special) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.specials[s.ID]; !ok {
		return fmt.Errorf("special %d not found", s.ID)
	}
	m.specials[s.ID] = s
	return nil
}

func (m *Memory) Close() error { return nil }
