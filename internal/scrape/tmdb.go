package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/fetch"
	"github.com/owdb/wrestlebot/internal/model"
)

// tmdbDocumentaryGenre is TMDB's genre ID for documentaries.
const tmdbDocumentaryGenre = 19

// TMDB scrapes wrestling movies, documentaries, and TV series from the
// themoviedb.org JSON API. Requires an API key.
type TMDB struct {
	client  *fetch.Client
	logger  *zap.Logger
	baseURL string
	apiKey  string
}

// NewTMDB builds the adapter for the given API root.
func NewTMDB(baseURL, apiKey string, client *fetch.Client, logger *zap.Logger) *TMDB {
	return &TMDB{client: client, logger: logger, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (t *TMDB) Name() string { return "tmdb" }

type tmdbSearchResponse struct {
	Results []struct {
		ID           int    `json:"id"`
		Title        string `json:"title"`
		ReleaseDate  string `json:"release_date"`
		Name         string `json:"name"`
		FirstAirDate string `json:"first_air_date"`
		Overview     string `json:"overview"`
		GenreIDs     []int  `json:"genre_ids"`
	} `json:"results"`
}

func (t *TMDB) search(ctx context.Context, media, query string) (tmdbSearchResponse, error) {
	params := url.Values{}
	params.Set("api_key", t.apiKey)
	params.Set("query", query)

	var resp tmdbSearchResponse
	endpoint := fmt.Sprintf("%s/3/search/%s?%s", t.baseURL, media, params.Encode())
	if err := t.client.GetJSON(ctx, endpoint, fetch.Options{}, &resp); err != nil {
		return tmdbSearchResponse{}, fmt.Errorf("tmdb %s search failed: %w", media, err)
	}
	return resp, nil
}

func (t *TMDB) ScrapeSpecials(ctx context.Context, limit int) ([]model.RawSpecial, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("tmdb: %w", fetch.ErrAuthRejected)
	}

	var out []model.RawSpecial

	movies, err := t.search(ctx, "movie", "professional wrestling")
	if err != nil {
		return nil, err
	}
	for _, r := range movies.Results {
		if len(out) >= limit {
			return out, nil
		}
		kind := "movie"
		for _, g := range r.GenreIDs {
			if g == tmdbDocumentaryGenre {
				kind = "documentary"
				break
			}
		}
		out = append(out, model.RawSpecial{
			Provenance: model.Provenance{
				Source:    t.Name(),
				SourceID:  "movie-" + strconv.Itoa(r.ID),
				SourceURL: "https://www.themoviedb.org/movie/" + strconv.Itoa(r.ID),
			},
			Title:       r.Title,
			ReleaseYear: yearOfDate(r.ReleaseDate),
			Type:        kind,
			About:       r.Overview,
		})
	}

	shows, err := t.search(ctx, "tv", "wrestling")
	if err != nil {
		// Movies alone are a usable result.
		t.logger.Warn("tmdb tv search failed", zap.Error(err))
		return out, nil
	}
	for _, r := range shows.Results {
		if len(out) >= limit {
			break
		}
		out = append(out, model.RawSpecial{
			Provenance: model.Provenance{
				Source:    t.Name(),
				SourceID:  "tv-" + strconv.Itoa(r.ID),
				SourceURL: "https://www.themoviedb.org/tv/" + strconv.Itoa(r.ID),
			},
			Title:       r.Name,
			ReleaseYear: yearOfDate(r.FirstAirDate),
			Type:        "series",
			About:       r.Overview,
		})
	}
	return out, nil
}

// yearOfDate extracts the year from a YYYY-MM-DD date string.
func yearOfDate(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
