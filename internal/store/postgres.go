package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/model"
)

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	db     DB
	logger *zap.Logger
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Postgres{db: pool, logger: logger}, nil
}

// NewPostgresWithDB wraps an existing connection, for tests.
func NewPostgresWithDB(db DB, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

func (p *Postgres) Wrestlers(ctx context.Context) ([]model.Wrestler, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, slug, real_name, aliases, hometown, nationality,
		       finishers, debut_year, retirement_year, about
		FROM wrestlers`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wrestlers: %w", err)
	}
	defer rows.Close()

	var out []model.Wrestler
	for rows.Next() {
		var w model.Wrestler
		if err := rows.Scan(&w.ID, &w.Name, &w.Slug, &w.RealName, &w.Aliases,
			&w.Hometown, &w.Nationality, &w.Finishers, &w.DebutYear,
			&w.RetirementYear, &w.About); err != nil {
			return nil, fmt.Errorf("failed to scan wrestler: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateWrestler(ctx context.Context, w model.Wrestler) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO wrestlers (name, slug, real_name, aliases, hometown,
		                       nationality, finishers, debut_year,
		                       retirement_year, about)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		w.Name, w.Slug, w.RealName, w.Aliases, w.Hometown, w.Nationality,
		w.Finishers, w.DebutYear, w.RetirementYear, w.About).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert wrestler: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateWrestler(ctx context.Context, w model.Wrestler) error {
	_, err := p.db.Exec(ctx, `
		UPDATE wrestlers
		SET real_name = $2, aliases = $3, hometown = $4, nationality = $5,
		    finishers = $6, debut_year = $7, retirement_year = $8, about = $9
		WHERE id = $1`,
		w.ID, w.RealName, w.Aliases, w.Hometown, w.Nationality, w.Finishers,
		w.DebutYear, w.RetirementYear, w.About)
	if err != nil {
		return fmt.Errorf("failed to update wrestler: %w", err)
	}
	return nil
}

func (p *Postgres) Promotions(ctx context.Context) ([]model.Promotion, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, slug, abbreviation, founded_year, closed_year,
		       website, about
		FROM promotions`)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	defer rows.Close()

	var out []model.Promotion
	for rows.Next() {
		var pr model.Promotion
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Slug, &pr.Abbreviation,
			&pr.FoundedYear, &pr.ClosedYear, &pr.Website, &pr.About); err != nil {
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *Postgres) CreatePromotion(ctx context.Context, pr model.Promotion) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO promotions (name, slug, abbreviation, founded_year,
		                        closed_year, website, about)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		pr.Name, pr.Slug, pr.Abbreviation, pr.FoundedYear, pr.ClosedYear,
		pr.Website, pr.About).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert promotion: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdatePromotion(ctx context.Context, pr model.Promotion) error {
	_, err := p.db.Exec(ctx, `
		UPDATE promotions
		SET abbreviation = $2, founded_year = $3, closed_year = $4,
		    website = $5, about = $6
		WHERE id = $1`,
		pr.ID, pr.Abbreviation, pr.FoundedYear, pr.ClosedYear, pr.Website,
		pr.About)
	if err != nil {
		return fmt.Errorf("failed to update promotion: %w", err)
	}
	return nil
}

func (p *Postgres) Venues(ctx context.Context) ([]model.Venue, error) {
	rows, err := p.db.Query(ctx, `SELECT id, name, slug, location, capacity FROM venues`)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	defer rows.Close()

	var out []model.Venue
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Slug, &v.Location, &v.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateVenue(ctx context.Context, v model.Venue) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO venues (name, slug, location, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		v.Name, v.Slug, v.Location, v.Capacity).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert venue: %w", err)
	}
	return id, nil
}

func (p *Postgres) Events(ctx context.Context) ([]model.Event, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, slug, date, promotion_id, venue_id, attendance, about
		FROM events`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Slug, &e.Date, &e.PromotionID,
			&e.VenueID, &e.Attendance, &e.About); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateEvent inserts the event and its card in one transaction so a
// mid-card failure never leaves a half-written event.
func (p *Postgres) CreateEvent(ctx context.Context, e model.Event, matches []model.Match) (int64, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			p.logger.Warn("event insert rollback failed", zap.Error(err))
		}
	}()

	var eventID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO events (name, slug, date, promotion_id, venue_id,
		                    attendance, about)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		e.Name, e.Slug, e.Date, e.PromotionID, nullableID(e.VenueID),
		e.Attendance, e.About).Scan(&eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	for i, m := range matches {
		var matchID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO matches (event_id, match_text, result, match_type,
			                     match_order, winner_id, title_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			eventID, m.MatchText, m.Result, m.MatchType, i+1,
			nullableID(m.WinnerID), nullableID(m.TitleID)).Scan(&matchID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert match %d: %w", i+1, err)
		}
		for _, wrestlerID := range m.ParticipantIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO match_participants (match_id, wrestler_id)
				VALUES ($1, $2)`, matchID, wrestlerID); err != nil {
				return 0, fmt.Errorf("failed to insert match participant: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit event: %w", err)
	}
	return eventID, nil
}

func (p *Postgres) UpdateEvent(ctx context.Context, e model.Event) error {
	_, err := p.db.Exec(ctx, `
		UPDATE events
		SET venue_id = $2, attendance = $3, about = $4
		WHERE id = $1`,
		e.ID, nullableID(e.VenueID), e.Attendance, e.About)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (p *Postgres) Titles(ctx context.Context) ([]model.Title, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, slug, promotion_id, debut_year, retirement_year
		FROM titles`)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()

	var out []model.Title
	for rows.Next() {
		var t model.Title
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.PromotionID,
			&t.DebutYear, &t.RetirementYear); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateTitle(ctx context.Context, t model.Title) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO titles (name, slug, promotion_id, debut_year, retirement_year)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		t.Name, t.Slug, nullableID(t.PromotionID), t.DebutYear,
		t.RetirementYear).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert title: %w", err)
	}
	return id, nil
}

func (p *Postgres) Games(ctx context.Context) ([]model.VideoGame, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, slug, release_year, systems, developer, publisher, about
		FROM video_games`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var out []model.VideoGame
	for rows.Next() {
		var g model.VideoGame
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.ReleaseYear,
			&g.Systems, &g.Developer, &g.Publisher, &g.About); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateGame(ctx context.Context, g model.VideoGame) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO video_games (name, slug, release_year, systems, developer,
		                         publisher, about)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		g.Name, g.Slug, g.ReleaseYear, g.Systems, g.Developer, g.Publisher,
		g.About).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert game: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateGame(ctx context.Context, g model.VideoGame) error {
	_, err := p.db.Exec(ctx, `
		UPDATE video_games
		SET release_year = $2, systems = $3, developer = $4, publisher = $5,
		    about = $6
		WHERE id = $1`,
		g.ID, g.ReleaseYear, g.Systems, g.Developer, g.Publisher, g.About)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	return nil
}

func (p *Postgres) Books(ctx context.Context) ([]model.Book, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, title, slug, author, publication_year, isbn, publisher, about
		FROM books`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Slug, &b.Author,
			&b.PublicationYear, &b.ISBN, &b.Publisher, &b.About); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateBook(ctx context.Context, b model.Book) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO books (title, slug, author, publication_year, isbn,
		                   publisher, about)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		b.Title, b.Slug, b.Author, b.PublicationYear, b.ISBN, b.Publisher,
		b.About).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert book: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateBook(ctx context.Context, b model.Book) error {
	_, err := p.db.Exec(ctx, `
		UPDATE books
		SET author = $2, publication_year = $3, isbn = $4, publisher = $5,
		    about = $6
		WHERE id = $1`,
		b.ID, b.Author, b.PublicationYear, b.ISBN, b.Publisher, b.About)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

func (p *Postgres) Podcasts(ctx context.Context) ([]model.Podcast, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, slug, hosts, launch_year, end_year, url, about
		FROM podcasts`)
	if err != nil {
		return nil, fmt.Errorf("failed to list podcasts: %w", err)
	}
	defer rows.Close()

	var out []model.Podcast
	for rows.Next() {
		var pc model.Podcast
		if err := rows.Scan(&pc.ID, &pc.Name, &pc.Slug, &pc.Hosts,
			&pc.LaunchYear, &pc.EndYear, &pc.URL, &pc.About); err != nil {
			return nil, fmt.Errorf("failed to scan podcast: %w", err)
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (p *Postgres) CreatePodcast(ctx context.Context, pc model.Podcast) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO podcasts (name, slug, hosts, launch_year, end_year, url, about)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		pc.Name, pc.Slug, pc.Hosts, pc.LaunchYear, pc.EndYear, pc.URL,
		pc.About).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert podcast: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdatePodcast(ctx context.Context, pc model.Podcast) error {
	_, err := p.db.Exec(ctx, `
		UPDATE podcasts
		SET hosts = $2, launch_year = $3, end_year = $4, url = $5, about = $6
		WHERE id = $1`,
		pc.ID, pc.Hosts, pc.LaunchYear, pc.EndYear, pc.URL, pc.About)
	if err != nil {
		return fmt.Errorf("failed to update podcast: %w", err)
	}
	return nil
}

func (p *Postgres) Specials(ctx context.Context) ([]model.Special, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, title, slug, release_year, type, about
		FROM specials`)
	if err != nil {
		return nil, fmt.Errorf("failed to list specials: %w", err)
	}
	defer rows.Close()

	var out []model.Special
	for rows.Next() {
		var s model.Special
		if err := rows.Scan(&s.ID, &s.Title, &s.Slug, &s.ReleaseYear,
			&s.Type, &s.About); err != nil {
			return nil, fmt.Errorf("failed to scan special: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateSpecial(ctx context.Context, s model.Special) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO specials (title, slug, release_year, type, about)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		s.Title, s.Slug, s.ReleaseYear, s.Type, s.About).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert special: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateSpecial(ctx context.Context, s model.Special) error {
	_, err := p.db.Exec(ctx, `
		UPDATE specials
		SET release_year = $2, type = $3, about = $4
		WHERE id = $1`,
		s.ID, s.ReleaseYear, s.Type, s.About)
	if err != nil {
		return fmt.Errorf("failed to update special: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

// nullableID maps the zero "unset" ID to SQL NULL for foreign keys.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
