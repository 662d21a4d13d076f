package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/breaker"
	"github.com/owdb/wrestlebot/internal/config"
	"github.com/owdb/wrestlebot/internal/model"
	"github.com/owdb/wrestlebot/internal/ratelimit"
	"github.com/owdb/wrestlebot/internal/rotate"
	"github.com/owdb/wrestlebot/internal/scrape"
	"github.com/owdb/wrestlebot/internal/statestore"
	"github.com/owdb/wrestlebot/internal/store"
)

func testMatching() config.MatchingConfig {
	return config.MatchingConfig{SimilarityThreshold: 0.85, YearFloor: 1900}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return New(Params{
		Store:    mem,
		Registry: scrape.NewRegistry(),
		Matching: testMatching(),
		Logger:   zap.NewNop(),
	}), mem
}

func TestImportWrestlerCreates(t *testing.T) {
	c, mem := newTestCoordinator(t)

	id, outcome, err := c.ImportWrestler(context.Background(), model.RawWrestler{
		Name:      "Tornado Example",
		DebutYear: "2005",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.NotZero(t, id)

	all, err := mem.Wrestlers(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Tornado Example", all[0].Name)
	assert.Equal(t, 2005, all[0].DebutYear)
}

func TestImportWrestlerMergeFillsEmptyFields(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()

	first, outcome, err := c.ImportWrestler(ctx, model.RawWrestler{
		Name:      "Tornado Example",
		DebutYear: "2005",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)

	second, outcome, err := c.ImportWrestler(ctx, model.RawWrestler{
		Name:     "Tornado Example",
		Hometown: "El Paso, Texas",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, outcome)
	assert.Equal(t, first, second)

	all, err := mem.Wrestlers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "El Paso, Texas", all[0].Hometown)
	assert.Equal(t, 2005, all[0].DebutYear)
}

func TestImportWrestlerMergeKeepsExistingValues(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()

	_, _, err := c.ImportWrestler(ctx, model.RawWrestler{
		Name:     "Bret Hart",
		Hometown: "Calgary, Alberta",
	})
	require.NoError(t, err)

	_, outcome, err := c.ImportWrestler(ctx, model.RawWrestler{
		Name:     "Bret Hart",
		Hometown: "Somewhere Else",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, outcome)

	all, err := mem.Wrestlers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Calgary, Alberta", all[0].Hometown)
}

func TestImportWrestlerRejectsMissingName(t *testing.T) {
	c, _ := newTestCoordinator(t)

	id, outcome, err := c.ImportWrestler(context.Background(), model.RawWrestler{
		Hometown: "Parts Unknown",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.Zero(t, id)
}

func TestImportPromotionMatchesOnAbbreviation(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()

	_, _, err := c.ImportPromotion(ctx, model.RawPromotion{
		Name:         "World Wrestling Federation",
		Abbreviation: "WWF",
	})
	require.NoError(t, err)

	_, outcome, err := c.ImportPromotion(ctx, model.RawPromotion{
		Name:         "WWF (New York)",
		Abbreviation: "wwf",
		FoundedYear:  "1963",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, outcome)

	all, err := mem.Promotions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1963, all[0].FoundedYear)
}

func TestImportEventRejectedWithoutPromotion(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, outcome, err := c.ImportEvent(context.Background(), model.RawEvent{
		Name: "Mystery Show",
		Date: "1994-03-20",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)
}

func TestImportEventCreatesCard(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()

	id, outcome, err := c.ImportEvent(ctx, model.RawEvent{
		Name:          "WrestleMania X",
		Date:          "1994-03-20",
		VenueName:     "Madison Square Garden",
		VenueLocation: "New York, New York",
		Attendance:    "18,065",
		PromotionName: "World Wrestling Federation",
		Matches: []model.RawMatch{
			{
				MatchText:    "Bret Hart defeats Yokozuna (c)",
				Participants: []string{"Bret Hart", "Yokozuna"},
				Winner:       "Bret Hart",
				TitleName:    "WWF World Heavyweight Championship",
			},
			{
				MatchText:    "Razor Ramon defeats Shawn Michaels",
				Participants: []string{"Razor Ramon", "Shawn Michaels"},
				Winner:       "Razor Ramon",
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)

	events, err := mem.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 18065, events[0].Attendance)
	assert.NotZero(t, events[0].PromotionID)
	assert.NotZero(t, events[0].VenueID)

	wrestlers, err := mem.Wrestlers(ctx)
	require.NoError(t, err)
	assert.Len(t, wrestlers, 4)

	titles, err := mem.Titles(ctx)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, events[0].PromotionID, titles[0].PromotionID)

	matches := mem.Matches(id)
	require.Len(t, matches, 2)
	assert.Equal(t, 1, matches[0].MatchOrder)
	assert.Equal(t, titles[0].ID, matches[0].TitleID)
	assert.NotZero(t, matches[0].WinnerID)
	assert.Contains(t, matches[0].ParticipantIDs, matches[0].WinnerID)
	assert.Zero(t, matches[1].TitleID)
}

func TestImportEventWinnerMustBeParticipant(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()

	id, outcome, err := c.ImportEvent(ctx, model.RawEvent{
		Name:          "House Show",
		Date:          "1995-06-01",
		PromotionName: "WCW",
		Matches: []model.RawMatch{
			{
				Participants: []string{"Sting", "Vader"},
				Winner:       "Hollywood Hogan",
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)

	matches := mem.Matches(id)
	require.Len(t, matches, 1)
	assert.Zero(t, matches[0].WinnerID)
	assert.Len(t, matches[0].ParticipantIDs, 2)
}

func TestImportEventMergeFillsAttendance(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()

	_, _, err := c.ImportEvent(ctx, model.RawEvent{
		Name:          "SummerSlam 1992",
		Date:          "1992-08-29",
		PromotionName: "WWF",
	})
	require.NoError(t, err)

	_, outcome, err := c.ImportEvent(ctx, model.RawEvent{
		Name:          "Summerslam 1992",
		Date:          "1992-08-29",
		Attendance:    "80,355",
		PromotionName: "WWF",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, outcome)

	events, err := mem.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 80355, events[0].Attendance)
}

func TestImportBookISBNShortCircuits(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()

	_, _, err := c.ImportBook(ctx, model.RawBook{
		Title:  "Hitman",
		Author: "Bret Hart",
		ISBN:   "978-0-307-35566-9",
	})
	require.NoError(t, err)

	_, outcome, err := c.ImportBook(ctx, model.RawBook{
		Title:           "Hitman: My Real Life in the Cartoon World of Wrestling",
		Author:          "Bret Hart",
		ISBN:            "9780307355669",
		PublicationYear: "2007",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, outcome)

	books, err := mem.Books(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 2007, books[0].PublicationYear)
}

func TestImportGameDifferentYearsStaySeparate(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()

	_, _, err := c.ImportGame(ctx, model.RawGame{Name: "WWE 2K22", ReleaseYear: "2022"})
	require.NoError(t, err)
	_, outcome, err := c.ImportGame(ctx, model.RawGame{Name: "WWE 2K23", ReleaseYear: "2023"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	games, err := mem.Games(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 2)
}

// stubAdapter serves wrestlers from a canned list or a canned error.
type stubAdapter struct {
	name    string
	records []model.RawWrestler
	err     error
	calls   int
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) ScrapeWrestlers(_ context.Context, limit int) ([]model.RawWrestler, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.records) > limit {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func newRunCoordinator(t *testing.T, adapters ...*stubAdapter) (*Coordinator, *store.Memory) {
	t.Helper()
	registry := scrape.NewRegistry()
	priorities := make(map[string]int)
	for i, a := range adapters {
		registry.Add(a)
		priorities[a.name] = i + 1
	}
	rotator := rotate.New("wrestlers", priorities, statestore.NewMemory(), zap.NewNop())
	mem := store.NewMemory()
	return New(Params{
		Store:    mem,
		Registry: registry,
		Rotators: map[string]*rotate.Rotator{"wrestlers": rotator},
		Matching: testMatching(),
		Logger:   zap.NewNop(),
	}), mem
}

func TestScrapeAndImportSingleSource(t *testing.T) {
	adapter := &stubAdapter{name: "stub", records: []model.RawWrestler{
		{Name: "Tornado Example", DebutYear: "2005"},
		{Name: "Cyclone Sample"},
		{Name: ""}, // rejected by validation
	}}
	c, mem := newRunCoordinator(t, adapter)

	stats, err := c.ScrapeAndImport(context.Background(), "stub", "wrestlers", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Scraped["wrestlers"])
	assert.Equal(t, 2, stats.Imported["wrestlers"])
	assert.Zero(t, stats.Errors)

	all, err := mem.Wrestlers(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestScrapeAndImportAllKindsSkipsUnservedKinds(t *testing.T) {
	adapter := &stubAdapter{name: "solo", records: []model.RawWrestler{
		{Name: "Tornado Example"},
	}}
	c, mem := newRunCoordinator(t, adapter)

	stats, err := c.ScrapeAndImport(context.Background(), "solo", "all", 5)
	require.NoError(t, err)
	assert.Zero(t, stats.Errors)
	assert.Equal(t, 1, stats.Scraped["wrestlers"])
	assert.Equal(t, 1, stats.Imported["wrestlers"])
	assert.Zero(t, stats.Scraped["events"])
	assert.Zero(t, stats.Imported["podcasts"])

	all, err := mem.Wrestlers(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestScrapeAndImportUnknownType(t *testing.T) {
	c, _ := newRunCoordinator(t, &stubAdapter{name: "stub"})

	_, err := c.ScrapeAndImport(context.Background(), "stub", "lunchboxes", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lunchboxes")
}

func TestScrapeAndImportUnknownSourceCounted(t *testing.T) {
	c, _ := newRunCoordinator(t, &stubAdapter{name: "stub"})

	stats, err := c.ScrapeAndImport(context.Background(), "nope", "wrestlers", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Zero(t, stats.Scraped["wrestlers"])
}

func TestScrapeAndImportRotatesPastFailingSource(t *testing.T) {
	bad := &stubAdapter{name: "bad", err: errors.New("connection refused by host")}
	good := &stubAdapter{name: "good", records: []model.RawWrestler{{Name: "Tornado Example"}}}
	c, mem := newRunCoordinator(t, bad, good)

	stats, err := c.ScrapeAndImport(context.Background(), "all", "wrestlers", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scraped["wrestlers"])
	assert.Equal(t, 1, stats.Imported["wrestlers"])
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)

	all, err := mem.Wrestlers(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestScrapeAndImportAllSourcesFatalStillReturns(t *testing.T) {
	a := &stubAdapter{name: "a", err: errors.New("no such host")}
	b := &stubAdapter{name: "b", err: errors.New("certificate has expired")}
	c, _ := newRunCoordinator(t, a, b)

	stats, err := c.ScrapeAndImport(context.Background(), "all", "wrestlers", 10)
	require.NoError(t, err)
	assert.Zero(t, stats.Scraped["wrestlers"])
	assert.Positive(t, stats.Errors)
}

func TestScrapeAndImportDedupesAcrossSources(t *testing.T) {
	first := &stubAdapter{name: "first", records: []model.RawWrestler{
		{Name: "Bret Hart", Hometown: "Calgary, Alberta"},
	}}
	c, mem := newRunCoordinator(t, first)

	stats, err := c.ScrapeAndImport(context.Background(), "first", "wrestlers", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported["wrestlers"])

	// A later run with an overlapping roster merges instead of duplicating.
	first.records = []model.RawWrestler{
		{Name: "Bret Hart", RealName: "Bret Sergeant Hart"},
		{Name: "Owen Hart"},
	}
	stats, err = c.ScrapeAndImport(context.Background(), "first", "wrestlers", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Imported["wrestlers"])

	all, err := mem.Wrestlers(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, w := range all {
		if w.Name == "Bret Hart" {
			assert.Equal(t, "Bret Sergeant Hart", w.RealName)
			assert.Equal(t, "Calgary, Alberta", w.Hometown)
		}
	}
}

func TestStatsReportsGates(t *testing.T) {
	state := statestore.NewMemory()
	logger := zap.NewNop()
	gates := map[string]SourceGates{
		"wikipedia": {
			Limiter: ratelimit.New("wikipedia", 30, 500, 5000, state, logger),
			Breaker: breaker.New("wikipedia", 5, 5*time.Minute, state, logger),
		},
	}
	c := New(Params{
		Store:    store.NewMemory(),
		Registry: scrape.NewRegistry(),
		Gates:    gates,
		Matching: testMatching(),
		Logger:   logger,
	})

	status, err := c.Stats()
	require.NoError(t, err)
	require.Contains(t, status, "wikipedia")
	assert.Equal(t, "wikipedia", status["wikipedia"].Limiter.Source)
	assert.Equal(t, breaker.Healthy, status["wikipedia"].Health)
}
