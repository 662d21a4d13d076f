// Package store persists the catalog entities. An interface decouples the
// import pipeline from PostgreSQL so dry runs and tests can use the
// in-memory implementation.
package store

import (
	"context"

	"github.com/owdb/wrestlebot/internal/model"
)

// Store is the persistence surface the import coordinator works against.
// Create methods return the new row ID; list methods return every row of a
// kind for duplicate matching.
type Store interface {
	Wrestlers(ctx context.Context) ([]model.Wrestler, error)
	CreateWrestler(ctx context.Context, w model.Wrestler) (int64, error)
	UpdateWrestler(ctx context.Context, w model.Wrestler) error

	Promotions(ctx context.Context) ([]model.Promotion, error)
	CreatePromotion(ctx context.Context, p model.Promotion) (int64, error)
	UpdatePromotion(ctx context.Context, p model.Promotion) error

	Venues(ctx context.Context) ([]model.Venue, error)
	CreateVenue(ctx context.Context, v model.Venue) (int64, error)

	Events(ctx context.Context) ([]model.Event, error)
	// CreateEvent inserts the event and its card atomically. Matches are
	// inserted in card order with their participant links.
	CreateEvent(ctx context.Context, e model.Event, matches []model.Match) (int64, error)
	UpdateEvent(ctx context.Context, e model.Event) error

	Titles(ctx context.Context) ([]model.Title, error)
	CreateTitle(ctx context.Context, t model.Title) (int64, error)

	Games(ctx context.Context) ([]model.VideoGame, error)
	CreateGame(ctx context.Context, g model.VideoGame) (int64, error)
	UpdateGame(ctx context.Context, g model.VideoGame) error

	Books(ctx context.Context) ([]model.Book, error)
	CreateBook(ctx context.Context, b model.Book) (int64, error)
	UpdateBook(ctx context.Context, b model.Book) error

	Podcasts(ctx context.Context) ([]model.Podcast, error)
	CreatePodcast(ctx context.Context, p model.Podcast) (int64, error)
	UpdatePodcast(ctx context.Context, p model.Podcast) error

	Specials(ctx context.Context) ([]model.Special, error)
	CreateSpecial(ctx context.Context, s model.Special) (int64, error)
	UpdateSpecial(ctx context.Context, s model.Special) error

	Close() error
}
