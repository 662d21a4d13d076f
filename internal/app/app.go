// Package app initializes and holds the long-lived services behind the CLI,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/breaker"
	"github.com/owdb/wrestlebot/internal/config"
	"github.com/owdb/wrestlebot/internal/errlog"
	"github.com/owdb/wrestlebot/internal/fetch"
	"github.com/owdb/wrestlebot/internal/importer"
	"github.com/owdb/wrestlebot/internal/logging"
	"github.com/owdb/wrestlebot/internal/metrics"
	"github.com/owdb/wrestlebot/internal/ratelimit"
	"github.com/owdb/wrestlebot/internal/robots"
	"github.com/owdb/wrestlebot/internal/rotate"
	"github.com/owdb/wrestlebot/internal/scrape"
	"github.com/owdb/wrestlebot/internal/statestore"
	"github.com/owdb/wrestlebot/internal/store"
)

// Options selects what the container connects to.
type Options struct {
	ConfigPath string
	// DryRun swaps the catalog database for a throwaway in-memory store.
	DryRun bool
}

// App holds the shared services: logger, state store, catalog store,
// per-source fetch clients, the adapter registry, and the coordinator.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	state       statestore.Store
	catalog     store.Store
	reporter    *errlog.Reporter
	registry    *scrape.Registry
	coordinator *importer.Coordinator
}

func (a *App) Logger() *zap.Logger                { return a.logger }
func (a *App) Config() config.Config              { return a.cfg }
func (a *App) Reporter() *errlog.Reporter         { return a.reporter }
func (a *App) Coordinator() *importer.Coordinator { return a.coordinator }

// New builds the container. It fails fast when any critical service cannot
// be initialized.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	state, err := openState(cfg.State, logger)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	catalog, err := openCatalog(ctx, cfg.DB, opts.DryRun, logger)
	if err != nil {
		state.Close()
		return nil, err
	}

	reporter := errlog.New(state, logger)
	checker := robots.NewChecker(cfg.HTTP.UserAgent, state, logger)
	registry := scrape.NewRegistry()
	gates := make(map[string]importer.SourceGates, len(cfg.Sources))

	for name, src := range cfg.Sources {
		limiter := ratelimit.New(name, src.RequestsPerMinute, src.RequestsPerHour, src.RequestsPerDay, state, logger)
		brk := breaker.New(name, cfg.Breaker.FailureThreshold,
			time.Duration(cfg.Breaker.RecoveryTimeoutSeconds)*time.Second, state, logger)
		gates[name] = importer.SourceGates{Limiter: limiter, Breaker: brk}

		client := fetch.New(fetch.Config{
			Source:             name,
			UserAgent:          cfg.HTTP.UserAgent,
			Timeout:            cfg.RequestTimeout(),
			MaxAttempts:        cfg.HTTP.MaxRetries,
			CrawlDelay:         time.Duration(src.CrawlDelaySeconds * float64(time.Second)),
			CacheTTL:           time.Duration(cfg.HTTP.CacheTTLSeconds) * time.Second,
			InsecureSkipVerify: src.InsecureSkipVerify,
		}, brk, checker, limiter, reporter, state, logger)

		adapter, err := buildAdapter(name, src, client, state, logger)
		if err != nil {
			logger.Warn("skipping source", zap.String("source", name), zap.Error(err))
			continue
		}
		registry.Add(adapter)
	}

	app := &App{
		cfg:      cfg,
		logger:   logger,
		state:    state,
		catalog:  catalog,
		reporter: reporter,
		registry: registry,
	}
	app.coordinator = importer.New(importer.Params{
		Store:    catalog,
		Registry: registry,
		Rotators: buildRotators(cfg, registry, state, logger),
		Gates:    gates,
		Matching: cfg.Matching,
		Logger:   logger,
	})
	return app, nil
}

func openState(cfg config.StateConfig, logger *zap.Logger) (statestore.Store, error) {
	if cfg.InMemory {
		return statestore.NewMemory(), nil
	}
	return statestore.NewBadger(cfg.Dir, logger)
}

func openCatalog(ctx context.Context, cfg config.DBConfig, dryRun bool, logger *zap.Logger) (store.Store, error) {
	if dryRun || cfg.DSN == "" {
		if !dryRun {
			logger.Info("no database configured, using in-memory catalog")
		}
		return store.NewMemory(), nil
	}
	pg, err := store.NewPostgres(ctx, cfg.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pg, nil
}

// buildAdapter constructs the adapter for one configured source name.
// Unknown names are rejected so config typos surface at startup.
func buildAdapter(name string, src config.SourceConfig, client *fetch.Client,
	state statestore.Store, logger *zap.Logger) (scrape.Adapter, error) {

	switch name {
	case "wikipedia":
		return scrape.NewWikipedia(src.BaseURL+"/w/api.php", client, state, logger), nil
	case "cagematch":
		return scrape.NewCagematch(src.BaseURL, client, logger), nil
	case "profightdb":
		return scrape.NewProFightDB(src.BaseURL, client, logger), nil
	case "tmdb":
		return scrape.NewTMDB(src.BaseURL, src.APIKey, client, logger), nil
	case "rawg":
		return scrape.NewRAWG(src.BaseURL, src.APIKey, client, logger), nil
	case "igdb":
		return scrape.NewIGDB(src.BaseURL, src.APIKey, src.APISecret, client, logger), nil
	case "openlibrary":
		return scrape.NewOpenLibrary(src.BaseURL, client, logger), nil
	case "googlebooks":
		return scrape.NewGoogleBooks(src.BaseURL, src.APIKey, client, logger), nil
	case "itunes":
		return scrape.NewITunes(src.BaseURL, client, logger), nil
	case "podcastindex":
		return scrape.NewPodcastIndex(src.BaseURL, src.APIKey, src.APISecret, client, logger), nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}

// buildRotators makes one rotator per entity kind, covering the registered
// sources able to serve that kind.
func buildRotators(cfg config.Config, registry *scrape.Registry,
	state statestore.Store, logger *zap.Logger) map[string]*rotate.Rotator {

	serves := func(a scrape.Adapter, kind string) bool {
		switch kind {
		case "wrestlers":
			_, ok := a.(scrape.WrestlerSource)
			return ok
		case "promotions":
			_, ok := a.(scrape.PromotionSource)
			return ok
		case "events":
			_, ok := a.(scrape.EventSource)
			return ok
		case "videogames":
			_, ok := a.(scrape.GameSource)
			return ok
		case "books":
			_, ok := a.(scrape.BookSource)
			return ok
		case "podcasts":
			_, ok := a.(scrape.PodcastSource)
			return ok
		case "specials":
			_, ok := a.(scrape.SpecialSource)
			return ok
		}
		return false
	}

	rotators := make(map[string]*rotate.Rotator, len(importer.Kinds))
	for _, kind := range importer.Kinds {
		priorities := make(map[string]int)
		for _, name := range registry.Names() {
			adapter, ok := registry.Get(name)
			if !ok || !serves(adapter, kind) {
				continue
			}
			priority := cfg.Sources[name].Priority
			if priority <= 0 {
				priority = 1
			}
			priorities[name] = priority
		}
		if len(priorities) == 0 {
			continue
		}
		rotators[kind] = rotate.New(kind, priorities, state, logger)
	}
	return rotators
}

// Close shuts the container down, flushing the logger last.
func (a *App) Close() {
	if err := a.catalog.Close(); err != nil {
		a.logger.Warn("error closing catalog store", zap.Error(err))
	}
	if err := a.state.Close(); err != nil {
		a.logger.Warn("error closing state store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
