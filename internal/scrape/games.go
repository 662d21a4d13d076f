package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/fetch"
	"github.com/owdb/wrestlebot/internal/model"
)

// RAWG scrapes wrestling video games from the rawg.io JSON API.
type RAWG struct {
	client  *fetch.Client
	logger  *zap.Logger
	baseURL string
	apiKey  string
}

// NewRAWG builds the adapter for the given API root.
func NewRAWG(baseURL, apiKey string, client *fetch.Client, logger *zap.Logger) *RAWG {
	return &RAWG{client: client, logger: logger, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (r *RAWG) Name() string { return "rawg" }

type rawgListResponse struct {
	Results []struct {
		ID        int    `json:"id"`
		Name      string `json:"name"`
		Released  string `json:"released"`
		Platforms []struct {
			Platform struct {
				Name string `json:"name"`
			} `json:"platform"`
		} `json:"platforms"`
	} `json:"results"`
}

type rawgDetailResponse struct {
	Description string `json:"description_raw"`
	Developers  []struct {
		Name string `json:"name"`
	} `json:"developers"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
}

func (r *RAWG) ScrapeGames(ctx context.Context, limit int) ([]model.RawGame, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("rawg: %w", fetch.ErrAuthRejected)
	}

	params := url.Values{}
	params.Set("key", r.apiKey)
	params.Set("search", "wrestling")
	params.Set("page_size", strconv.Itoa(limit))

	var list rawgListResponse
	if err := r.client.GetJSON(ctx, r.baseURL+"/api/games?"+params.Encode(), fetch.Options{}, &list); err != nil {
		return nil, fmt.Errorf("rawg search failed: %w", err)
	}

	var out []model.RawGame
	for _, g := range list.Results {
		if len(out) >= limit {
			break
		}
		var systems []string
		for _, p := range g.Platforms {
			systems = append(systems, p.Platform.Name)
		}
		game := model.RawGame{
			Provenance: model.Provenance{
				Source:    r.Name(),
				SourceID:  strconv.Itoa(g.ID),
				SourceURL: "https://rawg.io/games/" + strconv.Itoa(g.ID),
			},
			Name:        g.Name,
			ReleaseYear: yearOfDate(g.Released),
			Systems:     strings.Join(systems, ", "),
		}

		var detail rawgDetailResponse
		detailURL := fmt.Sprintf("%s/api/games/%d?key=%s", r.baseURL, g.ID, url.QueryEscape(r.apiKey))
		if err := r.client.GetJSON(ctx, detailURL, fetch.Options{}, &detail); err != nil {
			if fetchAborted(err) {
				return out, err
			}
			r.logger.Warn("skipping game detail", zap.String("name", g.Name), zap.Error(err))
		} else {
			game.Developer = joinNames(detail.Developers)
			game.Publisher = joinNames(detail.Publishers)
			game.About = detail.Description
		}
		out = append(out, game)
	}
	return out, nil
}

func joinNames(items []struct {
	Name string `json:"name"`
}) string {
	var names []string
	for _, item := range items {
		names = append(names, item.Name)
	}
	return strings.Join(names, ", ")
}

// IGDB scrapes video games from the igdb.com API, which takes APIcalypse
// query bodies over POST and Twitch OAuth client credentials.
type IGDB struct {
	client   *fetch.Client
	logger   *zap.Logger
	baseURL  string
	clientID string
	token    string
}

// NewIGDB builds the adapter. token is a Twitch OAuth app access token
// obtained out of band.
func NewIGDB(baseURL, clientID, token string, client *fetch.Client, logger *zap.Logger) *IGDB {
	return &IGDB{
		client:   client,
		logger:   logger,
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		token:    token,
	}
}

func (i *IGDB) Name() string { return "igdb" }

type igdbGame struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	FirstReleaseDate int64  `json:"first_release_date"`
	Summary          string `json:"summary"`
	Platforms        []struct {
		Name string `json:"name"`
	} `json:"platforms"`
	InvolvedCompanies []struct {
		Developer bool `json:"developer"`
		Publisher bool `json:"publisher"`
		Company   struct {
			Name string `json:"name"`
		} `json:"company"`
	} `json:"involved_companies"`
}

func (i *IGDB) ScrapeGames(ctx context.Context, limit int) ([]model.RawGame, error) {
	if i.clientID == "" || i.token == "" {
		return nil, fmt.Errorf("igdb: %w", fetch.ErrAuthRejected)
	}

	query := fmt.Sprintf(`search "wrestling"; fields name,first_release_date,summary,platforms.name,involved_companies.developer,involved_companies.publisher,involved_companies.company.name; limit %d;`, limit)
	opts := fetch.Options{Header: http.Header{
		"Client-ID":     []string{i.clientID},
		"Authorization": []string{"Bearer " + i.token},
	}}

	var games []igdbGame
	if err := i.client.PostJSON(ctx, i.baseURL+"/v4/games", query, opts, &games); err != nil {
		return nil, fmt.Errorf("igdb search failed: %w", err)
	}

	var out []model.RawGame
	for _, g := range games {
		if len(out) >= limit {
			break
		}
		var systems, developers, publishers []string
		for _, p := range g.Platforms {
			systems = append(systems, p.Name)
		}
		for _, c := range g.InvolvedCompanies {
			if c.Developer {
				developers = append(developers, c.Company.Name)
			}
			if c.Publisher {
				publishers = append(publishers, c.Company.Name)
			}
		}
		var releaseYear string
		if g.FirstReleaseDate > 0 {
			releaseYear = strconv.Itoa(time.Unix(g.FirstReleaseDate, 0).UTC().Year())
		}
		out = append(out, model.RawGame{
			Provenance: model.Provenance{
				Source:    i.Name(),
				SourceID:  strconv.Itoa(g.ID),
				SourceURL: "https://www.igdb.com/games/" + strconv.Itoa(g.ID),
			},
			Name:        g.Name,
			ReleaseYear: releaseYear,
			Systems:     strings.Join(systems, ", "),
			Developer:   strings.Join(developers, ", "),
			Publisher:   strings.Join(publishers, ", "),
			About:       g.Summary,
		})
	}
	return out, nil
}
