// Package importer turns raw scraped records into catalog rows: validate,
// deduplicate, then create or merge.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/breaker"
	"github.com/owdb/wrestlebot/internal/config"
	"github.com/owdb/wrestlebot/internal/dedupe"
	"github.com/owdb/wrestlebot/internal/metrics"
	"github.com/owdb/wrestlebot/internal/model"
	"github.com/owdb/wrestlebot/internal/ratelimit"
	"github.com/owdb/wrestlebot/internal/rotate"
	"github.com/owdb/wrestlebot/internal/scrape"
	"github.com/owdb/wrestlebot/internal/store"
	"github.com/owdb/wrestlebot/internal/validate"
)

// Outcome says what importing one record did.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeMerged   Outcome = "merged"
	OutcomeRejected Outcome = "rejected"
)

// SourceGates bundles the per-source limiter and breaker for status
// reporting.
type SourceGates struct {
	Limiter *ratelimit.Limiter
	Breaker *breaker.Breaker
}

// Params wires a Coordinator.
type Params struct {
	Store      store.Store
	Registry   *scrape.Registry
	Rotators   map[string]*rotate.Rotator
	Gates      map[string]SourceGates
	Matching   config.MatchingConfig
	Logger     *zap.Logger
	MaxSources int
}

// Coordinator drives scrape runs and imports their records.
type Coordinator struct {
	store      store.Store
	registry   *scrape.Registry
	rotators   map[string]*rotate.Rotator
	gates      map[string]SourceGates
	matching   config.MatchingConfig
	validator  *validate.Validator
	matchers   map[string]*dedupe.Matcher
	logger     *zap.Logger
	maxSources int
}

// New builds a Coordinator.
func New(p Params) *Coordinator {
	maxSources := p.MaxSources
	if maxSources <= 0 {
		maxSources = 4
	}
	return &Coordinator{
		store:      p.Store,
		registry:   p.Registry,
		rotators:   p.Rotators,
		gates:      p.Gates,
		matching:   p.Matching,
		validator:  validate.New(p.Matching.YearFloor),
		matchers:   make(map[string]*dedupe.Matcher),
		logger:     p.Logger,
		maxSources: maxSources,
	}
}

// matcher returns the per-kind matcher for the current run.
func (c *Coordinator) matcher(kind string) *dedupe.Matcher {
	m, ok := c.matchers[kind]
	if !ok {
		m = dedupe.New(c.matching.KindThreshold(kind))
		c.matchers[kind] = m
	}
	return m
}

// resetMatchers drops the per-run memo maps.
func (c *Coordinator) resetMatchers() {
	c.matchers = make(map[string]*dedupe.Matcher)
}

// fillString copies src into dst only when dst is empty.
func fillString(dst *string, src string) bool {
	if *dst == "" && src != "" {
		*dst = src
		return true
	}
	return false
}

func fillInt(dst *int, src int) bool {
	if *dst == 0 && src != 0 {
		*dst = src
		return true
	}
	return false
}

func fillID(dst *int64, src int64) bool {
	if *dst == 0 && src != 0 {
		*dst = src
		return true
	}
	return false
}

// ImportWrestler validates, deduplicates, and stores one wrestler.
func (c *Coordinator) ImportWrestler(ctx context.Context, raw model.RawWrestler) (int64, Outcome, error) {
	clean, ok := c.validator.Wrestler(raw)
	if !ok {
		return 0, OutcomeRejected, nil
	}

	candidates, err := c.store.Wrestlers(ctx)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to load wrestlers: %w", err)
	}
	if id, found := c.matcher("wrestlers").Wrestler(candidates, clean.Name, clean.AliasList()); found {
		existing := findWrestler(candidates, id)
		changed := fillString(&existing.RealName, clean.RealName)
		changed = fillString(&existing.Aliases, clean.Aliases) || changed
		changed = fillString(&existing.Hometown, clean.Hometown) || changed
		changed = fillString(&existing.Nationality, clean.Nationality) || changed
		changed = fillString(&existing.Finishers, clean.Finishers) || changed
		changed = fillInt(&existing.DebutYear, clean.DebutYear) || changed
		changed = fillInt(&existing.RetirementYear, clean.RetirementYear) || changed
		changed = fillString(&existing.About, clean.About) || changed
		if changed {
			if err := c.store.UpdateWrestler(ctx, existing); err != nil {
				return 0, OutcomeRejected, fmt.Errorf("failed to merge wrestler: %w", err)
			}
		}
		return id, OutcomeMerged, nil
	}

	id, err := c.store.CreateWrestler(ctx, clean)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to create wrestler: %w", err)
	}
	return id, OutcomeCreated, nil
}

func findWrestler(candidates []model.Wrestler, id int64) model.Wrestler {
	for _, w := range candidates {
		if w.ID == id {
			return w
		}
	}
	return model.Wrestler{ID: id}
}

// ImportPromotion validates, deduplicates, and stores one promotion.
func (c *Coordinator) ImportPromotion(ctx context.Context, raw model.RawPromotion) (int64, Outcome, error) {
	clean, ok := c.validator.Promotion(raw)
	if !ok {
		return 0, OutcomeRejected, nil
	}

	candidates, err := c.store.Promotions(ctx)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to load promotions: %w", err)
	}
	if id, found := c.matcher("promotions").Promotion(candidates, clean.Name, clean.Abbreviation); found {
		existing := findPromotion(candidates, id)
		changed := fillString(&existing.Abbreviation, clean.Abbreviation)
		changed = fillInt(&existing.FoundedYear, clean.FoundedYear) || changed
		changed = fillInt(&existing.ClosedYear, clean.ClosedYear) || changed
		changed = fillString(&existing.Website, clean.Website) || changed
		changed = fillString(&existing.About, clean.About) || changed
		if changed {
			if err := c.store.UpdatePromotion(ctx, existing); err != nil {
				return 0, OutcomeRejected, fmt.Errorf("failed to merge promotion: %w", err)
			}
		}
		return id, OutcomeMerged, nil
	}

	id, err := c.store.CreatePromotion(ctx, clean)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to create promotion: %w", err)
	}
	return id, OutcomeCreated, nil
}

func findPromotion(candidates []model.Promotion, id int64) model.Promotion {
	for _, p := range candidates {
		if p.ID == id {
			return p
		}
	}
	return model.Promotion{ID: id}
}

// resolvePromotion finds or creates a promotion by name alone, for events
// that reference one.
func (c *Coordinator) resolvePromotion(ctx context.Context, name string) (int64, error) {
	candidates, err := c.store.Promotions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load promotions: %w", err)
	}
	if id, found := c.matcher("promotions").Promotion(candidates, name, ""); found {
		return id, nil
	}
	id, err := c.store.CreatePromotion(ctx, model.Promotion{
		Name: name,
		Slug: validate.Slugify(name),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create promotion %q: %w", name, err)
	}
	return id, nil
}

func (c *Coordinator) resolveVenue(ctx context.Context, name, location string) (int64, error) {
	if name == "" {
		return 0, nil
	}
	candidates, err := c.store.Venues(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load venues: %w", err)
	}
	if id, found := c.matcher("venues").Venue(candidates, name); found {
		return id, nil
	}
	id, err := c.store.CreateVenue(ctx, model.Venue{
		Name:     name,
		Slug:     validate.Slugify(name),
		Location: location,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create venue %q: %w", name, err)
	}
	return id, nil
}

// resolveWrestlerByName finds or creates a minimal wrestler row for a
// match participant.
func (c *Coordinator) resolveWrestlerByName(ctx context.Context, name string) (int64, error) {
	candidates, err := c.store.Wrestlers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load wrestlers: %w", err)
	}
	if id, found := c.matcher("wrestlers").Wrestler(candidates, name, nil); found {
		return id, nil
	}
	id, err := c.store.CreateWrestler(ctx, model.Wrestler{
		Name: name,
		Slug: validate.Slugify(name),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create wrestler %q: %w", name, err)
	}
	return id, nil
}

func (c *Coordinator) resolveTitle(ctx context.Context, name string, promotionID int64) (int64, error) {
	candidates, err := c.store.Titles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load titles: %w", err)
	}
	norm := validate.NormalizeName(name)
	for _, t := range candidates {
		if validate.NormalizeName(t.Name) == norm {
			return t.ID, nil
		}
	}
	id, err := c.store.CreateTitle(ctx, model.Title{
		Name:        name,
		Slug:        validate.Slugify(name),
		PromotionID: promotionID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create title %q: %w", name, err)
	}
	return id, nil
}

// ImportEvent validates an event, resolves its promotion, venue, and card,
// and stores it. Events without a promotion are rejected.
func (c *Coordinator) ImportEvent(ctx context.Context, raw model.RawEvent) (int64, Outcome, error) {
	clean, ok := c.validator.Event(raw)
	if !ok || clean.PromotionName == "" {
		return 0, OutcomeRejected, nil
	}

	promotionID, err := c.resolvePromotion(ctx, clean.PromotionName)
	if err != nil {
		return 0, OutcomeRejected, err
	}
	venueID, err := c.resolveVenue(ctx, clean.VenueName, clean.VenueLocation)
	if err != nil {
		return 0, OutcomeRejected, err
	}

	events, err := c.store.Events(ctx)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to load events: %w", err)
	}
	if id, found := c.matcher("events").Event(events, clean.Name, clean.Date); found {
		existing := findEvent(events, id)
		changed := fillID(&existing.VenueID, venueID)
		changed = fillInt(&existing.Attendance, clean.Attendance) || changed
		changed = fillString(&existing.About, clean.About) || changed
		if changed {
			if err := c.store.UpdateEvent(ctx, existing); err != nil {
				return 0, OutcomeRejected, fmt.Errorf("failed to merge event: %w", err)
			}
		}
		return id, OutcomeMerged, nil
	}

	matches, err := c.buildMatches(ctx, clean.Matches, promotionID)
	if err != nil {
		return 0, OutcomeRejected, err
	}
	id, err := c.store.CreateEvent(ctx, model.Event{
		Name:        clean.Name,
		Slug:        clean.Slug,
		Date:        clean.Date,
		PromotionID: promotionID,
		VenueID:     venueID,
		Attendance:  clean.Attendance,
		About:       clean.About,
	}, matches)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to create event: %w", err)
	}
	return id, OutcomeCreated, nil
}

func findEvent(candidates []model.Event, id int64) model.Event {
	for _, e := range candidates {
		if e.ID == id {
			return e
		}
	}
	return model.Event{ID: id}
}

// buildMatches resolves participant and title names into IDs. The winner
// ID is only set when the winner is one of the participants.
func (c *Coordinator) buildMatches(ctx context.Context, rawMatches []model.RawMatch, promotionID int64) ([]model.Match, error) {
	var out []model.Match
	for _, rm := range rawMatches {
		match := model.Match{
			MatchText: rm.MatchText,
			Result:    rm.Result,
			MatchType: rm.MatchType,
		}
		winnerNorm := validate.NormalizeName(rm.Winner)
		for _, name := range rm.Participants {
			id, err := c.resolveWrestlerByName(ctx, name)
			if err != nil {
				return nil, err
			}
			match.ParticipantIDs = append(match.ParticipantIDs, id)
			if winnerNorm != "" && validate.NormalizeName(name) == winnerNorm {
				match.WinnerID = id
			}
		}
		if rm.TitleName != "" {
			titleID, err := c.resolveTitle(ctx, rm.TitleName, promotionID)
			if err != nil {
				return nil, err
			}
			match.TitleID = titleID
		}
		out = append(out, match)
	}
	return out, nil
}

// ImportGame validates, deduplicates, and stores one video game.
func (c *Coordinator) ImportGame(ctx context.Context, raw model.RawGame) (int64, Outcome, error) {
	clean, ok := c.validator.Game(raw)
	if !ok {
		return 0, OutcomeRejected, nil
	}

	candidates, err := c.store.Games(ctx)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to load games: %w", err)
	}
	if id, found := c.matcher("videogames").Game(candidates, clean.Name, clean.ReleaseYear); found {
		existing := findGame(candidates, id)
		changed := fillInt(&existing.ReleaseYear, clean.ReleaseYear)
		changed = fillString(&existing.Systems, clean.Systems) || changed
		changed = fillString(&existing.Developer, clean.Developer) || changed
		changed = fillString(&existing.Publisher, clean.Publisher) || changed
		changed = fillString(&existing.About, clean.About) || changed
		if changed {
			if err := c.store.UpdateGame(ctx, existing); err != nil {
				return 0, OutcomeRejected, fmt.Errorf("failed to merge game: %w", err)
			}
		}
		return id, OutcomeMerged, nil
	}

	id, err := c.store.CreateGame(ctx, clean)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to create game: %w", err)
	}
	return id, OutcomeCreated, nil
}

func findGame(candidates []model.VideoGame, id int64) model.VideoGame {
	for _, g := range candidates {
		if g.ID == id {
			return g
		}
	}
	return model.VideoGame{ID: id}
}

// ImportBook validates, deduplicates, and stores one book.
func (c *Coordinator) ImportBook(ctx context.Context, raw model.RawBook) (int64, Outcome, error) {
	clean, ok := c.validator.Book(raw)
	if !ok {
		return 0, OutcomeRejected, nil
	}

	candidates, err := c.store.Books(ctx)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to load books: %w", err)
	}
	if id, found := c.matcher("books").Book(candidates, clean.Title, clean.Author, clean.ISBN); found {
		existing := findBook(candidates, id)
		changed := fillString(&existing.Author, clean.Author)
		changed = fillInt(&existing.PublicationYear, clean.PublicationYear) || changed
		changed = fillString(&existing.ISBN, clean.ISBN) || changed
		changed = fillString(&existing.Publisher, clean.Publisher) || changed
		changed = fillString(&existing.About, clean.About) || changed
		if changed {
			if err := c.store.UpdateBook(ctx, existing); err != nil {
				return 0, OutcomeRejected, fmt.Errorf("failed to merge book: %w", err)
			}
		}
		return id, OutcomeMerged, nil
	}

	id, err := c.store.CreateBook(ctx, clean)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to create book: %w", err)
	}
	return id, OutcomeCreated, nil
}

func findBook(candidates []model.Book, id int64) model.Book {
	for _, b := range candidates {
		if b.ID == id {
			return b
		}
	}
	return model.Book{ID: id}
}

// ImportPodcast validates, deduplicates, and stores one podcast.
func (c *Coordinator) ImportPodcast(ctx context.Context, raw model.RawPodcast) (int64, Outcome, error) {
	clean, ok := c.validator.Podcast(raw)
	if !ok {
		return 0, OutcomeRejected, nil
	}

	candidates, err := c.store.Podcasts(ctx)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to load podcasts: %w", err)
	}
	if id, found := c.matcher("podcasts").Podcast(candidates, clean.Name); found {
		existing := findPodcast(candidates, id)
		changed := fillString(&existing.Hosts, clean.Hosts)
		changed = fillInt(&existing.LaunchYear, clean.LaunchYear) || changed
		changed = fillInt(&existing.EndYear, clean.EndYear) || changed
		changed = fillString(&existing.URL, clean.URL) || changed
		changed = fillString(&existing.About, clean.About) || changed
		if changed {
			if err := c.store.UpdatePodcast(ctx, existing); err != nil {
				return 0, OutcomeRejected, fmt.Errorf("failed to merge podcast: %w", err)
			}
		}
		return id, OutcomeMerged, nil
	}

	id, err := c.store.CreatePodcast(ctx, clean)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to create podcast: %w", err)
	}
	return id, OutcomeCreated, nil
}

func findPodcast(candidates []model.Podcast, id int64) model.Podcast {
	for _, p := range candidates {
		if p.ID == id {
			return p
		}
	}
	return model.Podcast{ID: id}
}

// ImportSpecial validates, deduplicates, and stores one special.
func (c *Coordinator) ImportSpecial(ctx context.Context, raw model.RawSpecial) (int64, Outcome, error) {
	clean, ok := c.validator.Special(raw)
	if !ok {
		return 0, OutcomeRejected, nil
	}

	candidates, err := c.store.Specials(ctx)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to load specials: %w", err)
	}
	if id, found := c.matcher("specials").Special(candidates, clean.Title, clean.ReleaseYear); found {
		existing := findSpecial(candidates, id)
		changed := fillInt(&existing.ReleaseYear, clean.ReleaseYear)
		changed = fillString(&existing.About, clean.About) || changed
		if changed {
			if err := c.store.UpdateSpecial(ctx, existing); err != nil {
				return 0, OutcomeRejected, fmt.Errorf("failed to merge special: %w", err)
			}
		}
		return id, OutcomeMerged, nil
	}

	id, err := c.store.CreateSpecial(ctx, clean)
	if err != nil {
		return 0, OutcomeRejected, fmt.Errorf("failed to create special: %w", err)
	}
	return id, OutcomeCreated, nil
}

func findSpecial(candidates []model.Special, id int64) model.Special {
	for _, s := range candidates {
		if s.ID == id {
			return s
		}
	}
	return model.Special{ID: id}
}

// RunStats summarizes one scrape-and-import run.
type RunStats struct {
	RunID    string
	Scraped  map[string]int
	Imported map[string]int
	Errors   int
	Duration time.Duration
}

func newRunStats() RunStats {
	return RunStats{
		RunID:    uuid.NewString(),
		Scraped:  make(map[string]int),
		Imported: make(map[string]int),
	}
}

// Kinds are the entity types a run can cover, in run order.
var Kinds = []string{"wrestlers", "promotions", "events", "videogames", "books", "podcasts", "specials"}

func resolveKinds(dataType string) ([]string, error) {
	if dataType == "all" {
		return Kinds, nil
	}
	for _, k := range Kinds {
		if k == dataType {
			return []string{k}, nil
		}
	}
	return nil, fmt.Errorf("unknown data type %q", dataType)
}

// ScrapeAndImport runs one scrape for the given source ("all" rotates) and
// data type ("all" covers every kind). A failing source or kind is counted
// and logged, never fatal to the run.
func (c *Coordinator) ScrapeAndImport(ctx context.Context, source, dataType string, limit int) (RunStats, error) {
	kinds, err := resolveKinds(dataType)
	if err != nil {
		return RunStats{}, err
	}
	c.resetMatchers()
	stats := newRunStats()
	start := time.Now()
	c.logger.Info("import run starting",
		zap.String("run_id", stats.RunID),
		zap.String("source", source),
		zap.Strings("kinds", kinds),
		zap.Int("limit", limit))

	for _, kind := range kinds {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		c.runKind(ctx, kind, source, limit, &stats)
	}
	stats.Duration = time.Since(start)
	c.logger.Info("import run finished",
		zap.String("run_id", stats.RunID),
		zap.Int("errors", stats.Errors),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// kindScrape is one adapter's scrape method for a single kind.
type kindScrape[T any] func(ctx context.Context, limit int) ([]T, error)

func (c *Coordinator) runKind(ctx context.Context, kind, source string, limit int, stats *RunStats) {
	switch kind {
	case "wrestlers":
		records := collectKind(ctx, c, kind, source, limit, func(a scrape.Adapter) (kindScrape[model.RawWrestler], bool) {
			s, ok := a.(scrape.WrestlerSource)
			if !ok {
				return nil, false
			}
			return s.ScrapeWrestlers, true
		}, stats)
		importRecords(ctx, c, kind, records, stats, c.ImportWrestler)
	case "promotions":
		records := collectKind(ctx, c, kind, source, limit, func(a scrape.Adapter) (kindScrape[model.RawPromotion], bool) {
			s, ok := a.(scrape.PromotionSource)
			if !ok {
				return nil, false
			}
			return s.ScrapePromotions, true
		}, stats)
		importRecords(ctx, c, kind, records, stats, c.ImportPromotion)
	case "events":
		records := collectKind(ctx, c, kind, source, limit, func(a scrape.Adapter) (kindScrape[model.RawEvent], bool) {
			s, ok := a.(scrape.EventSource)
			if !ok {
				return nil, false
			}
			return s.ScrapeEvents, true
		}, stats)
		importRecords(ctx, c, kind, records, stats, c.ImportEvent)
	case "videogames":
		records := collectKind(ctx, c, kind, source, limit, func(a scrape.Adapter) (kindScrape[model.RawGame], bool) {
			s, ok := a.(scrape.GameSource)
			if !ok {
				return nil, false
			}
			return s.ScrapeGames, true
		}, stats)
		importRecords(ctx, c, kind, records, stats, c.ImportGame)
	case "books":
		records := collectKind(ctx, c, kind, source, limit, func(a scrape.Adapter) (kindScrape[model.RawBook], bool) {
			s, ok := a.(scrape.BookSource)
			if !ok {
				return nil, false
			}
			return s.ScrapeBooks, true
		}, stats)
		importRecords(ctx, c, kind, records, stats, c.ImportBook)
	case "podcasts":
		records := collectKind(ctx, c, kind, source, limit, func(a scrape.Adapter) (kindScrape[model.RawPodcast], bool) {
			s, ok := a.(scrape.PodcastSource)
			if !ok {
				return nil, false
			}
			return s.ScrapePodcasts, true
		}, stats)
		importRecords(ctx, c, kind, records, stats, c.ImportPodcast)
	case "specials":
		records := collectKind(ctx, c, kind, source, limit, func(a scrape.Adapter) (kindScrape[model.RawSpecial], bool) {
			s, ok := a.(scrape.SpecialSource)
			if !ok {
				return nil, false
			}
			return s.ScrapeSpecials, true
		}, stats)
		importRecords(ctx, c, kind, records, stats, c.ImportSpecial)
	}
}

// collectKind gathers raw records for one kind, either from a single named
// source or by rotation across every source serving the kind.
func collectKind[T any](ctx context.Context, c *Coordinator, kind, source string, limit int,
	pick func(scrape.Adapter) (kindScrape[T], bool), stats *RunStats) []T {

	scrapeSource := func(ctx context.Context, name string, n int) ([]T, error) {
		adapter, ok := c.registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("source %q not configured", name)
		}
		fn, ok := pick(adapter)
		if !ok {
			return nil, fmt.Errorf("source %q cannot scrape %s", name, kind)
		}
		return fn(ctx, n)
	}

	var records []T
	if source == "all" {
		rotator, ok := c.rotators[kind]
		if !ok {
			c.logger.Warn("no rotator for kind", zap.String("kind", kind))
			return nil
		}
		// The rotator absorbs per-source failures; count them here so the
		// run stats still reflect them.
		counted := func(ctx context.Context, name string, n int) ([]T, error) {
			items, err := scrapeSource(ctx, name, n)
			if err != nil {
				c.logger.Warn("scrape failed",
					zap.String("kind", kind),
					zap.String("source", name),
					zap.Error(err))
				stats.Errors++
			}
			return items, err
		}
		records, _ = rotate.Collect(ctx, rotator, limit, c.maxSources, counted)
	} else {
		adapter, ok := c.registry.Get(source)
		if !ok {
			c.logger.Warn("scrape failed",
				zap.String("kind", kind),
				zap.String("source", source),
				zap.Error(fmt.Errorf("source %q not configured", source)))
			stats.Errors++
			return nil
		}
		fn, ok := pick(adapter)
		if !ok {
			// A source that does not serve this kind is not a failure.
			c.logger.Debug("source does not serve kind",
				zap.String("kind", kind),
				zap.String("source", source))
			return nil
		}
		var err error
		records, err = fn(ctx, limit)
		if err != nil {
			c.logger.Warn("scrape failed",
				zap.String("kind", kind),
				zap.String("source", source),
				zap.Error(err))
			stats.Errors++
		}
	}
	stats.Scraped[kind] += len(records)
	if len(records) > 0 {
		metrics.AddScraped(source, kind, len(records))
	}
	return records
}

// importRecords feeds scraped records through an import function, counting
// outcomes.
func importRecords[T any](ctx context.Context, c *Coordinator, kind string, records []T,
	stats *RunStats, importFn func(context.Context, T) (int64, Outcome, error)) {

	for _, record := range records {
		if ctx.Err() != nil {
			return
		}
		_, outcome, err := importFn(ctx, record)
		if err != nil {
			c.logger.Warn("import failed", zap.String("kind", kind), zap.Error(err))
			stats.Errors++
			continue
		}
		metrics.IncImported(kind, string(outcome))
		if outcome == OutcomeCreated || outcome == OutcomeMerged {
			stats.Imported[kind]++
		}
	}
}

// SourceStatus is one source's health for status reporting.
type SourceStatus struct {
	Limiter ratelimit.Stats
	Health  breaker.Health
}

// Stats reports the limiter windows and breaker health of every gated
// source.
func (c *Coordinator) Stats() (map[string]SourceStatus, error) {
	out := make(map[string]SourceStatus, len(c.gates))
	for name, g := range c.gates {
		limiterStats, err := g.Limiter.Stats()
		if err != nil {
			return nil, fmt.Errorf("failed to read limiter stats for %s: %w", name, err)
		}
		health, err := g.Breaker.Status()
		if err != nil {
			return nil, fmt.Errorf("failed to read breaker health for %s: %w", name, err)
		}
		out[name] = SourceStatus{Limiter: limiterStats, Health: health}
	}
	return out, nil
}
