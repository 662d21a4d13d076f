package scrape

import (
	"context"
	"crypto/sha1" // #nosec G505 -- podcastindex auth scheme requires SHA-1
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/fetch"
	"github.com/owdb/wrestlebot/internal/model"
)

// enrichFromRSS fills the gaps a search API leaves by reading the show's
// own RSS feed. Feed failures are logged and ignored; the search result
// alone is still usable.
func enrichFromRSS(ctx context.Context, client *fetch.Client, logger *zap.Logger, raw *model.RawPodcast, feedURL string) {
	if feedURL == "" {
		return
	}
	resp, err := client.Get(ctx, feedURL, fetch.Options{})
	if err != nil {
		logger.Warn("skipping podcast feed", zap.String("feed", feedURL), zap.Error(err))
		return
	}
	feed, err := gofeed.NewParser().ParseString(string(resp.Body))
	if err != nil {
		logger.Warn("unparseable podcast feed", zap.String("feed", feedURL), zap.Error(err))
		return
	}

	if raw.About == "" {
		raw.About = cleanText(feed.Description)
	}
	if raw.URL == "" {
		raw.URL = feed.Link
	}
	if raw.Hosts == "" && feed.ITunesExt != nil {
		raw.Hosts = feed.ITunesExt.Author
	}
	if raw.LaunchYear == "" && len(feed.Items) > 0 {
		oldest := feed.Items[len(feed.Items)-1]
		if oldest.PublishedParsed != nil {
			raw.LaunchYear = strconv.Itoa(oldest.PublishedParsed.Year())
		}
	}
}

// ITunes scrapes wrestling podcasts from the iTunes search API, with RSS
// detail per show.
type ITunes struct {
	client  *fetch.Client
	logger  *zap.Logger
	baseURL string
}

// NewITunes builds the adapter for the given API root.
func NewITunes(baseURL string, client *fetch.Client, logger *zap.Logger) *ITunes {
	return &ITunes{client: client, logger: logger, baseURL: strings.TrimRight(baseURL, "/")}
}

func (i *ITunes) Name() string { return "itunes" }

type itunesResponse struct {
	Results []struct {
		CollectionID   int    `json:"collectionId"`
		CollectionName string `json:"collectionName"`
		ArtistName     string `json:"artistName"`
		FeedURL        string `json:"feedUrl"`
		ViewURL        string `json:"collectionViewUrl"`
		ReleaseDate    string `json:"releaseDate"`
	} `json:"results"`
}

func (i *ITunes) ScrapePodcasts(ctx context.Context, limit int) ([]model.RawPodcast, error) {
	params := url.Values{}
	params.Set("term", "wrestling")
	params.Set("media", "podcast")
	params.Set("limit", strconv.Itoa(limit))

	var resp itunesResponse
	if err := i.client.GetJSON(ctx, i.baseURL+"/search?"+params.Encode(), fetch.Options{}, &resp); err != nil {
		return nil, fmt.Errorf("itunes search failed: %w", err)
	}

	var out []model.RawPodcast
	for _, r := range resp.Results {
		if len(out) >= limit {
			break
		}
		raw := model.RawPodcast{
			Provenance: model.Provenance{
				Source:    i.Name(),
				SourceID:  strconv.Itoa(r.CollectionID),
				SourceURL: r.ViewURL,
			},
			Name:  r.CollectionName,
			Hosts: r.ArtistName,
			URL:   r.ViewURL,
		}
		enrichFromRSS(ctx, i.client, i.logger, &raw, r.FeedURL)
		out = append(out, raw)
	}
	return out, nil
}

// PodcastIndex scrapes podcasts from the podcastindex.org API, which signs
// each request with SHA-1 over key, secret, and timestamp.
type PodcastIndex struct {
	client    *fetch.Client
	logger    *zap.Logger
	baseURL   string
	apiKey    string
	apiSecret string
	now       func() int64
}

// NewPodcastIndex builds the adapter with API credentials.
func NewPodcastIndex(baseURL, apiKey, apiSecret string, client *fetch.Client, logger *zap.Logger) *PodcastIndex {
	return &PodcastIndex{
		client:    client,
		logger:    logger,
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		now:       func() int64 { return time.Now().Unix() },
	}
}

func (p *PodcastIndex) Name() string { return "podcastindex" }

func (p *PodcastIndex) authHeader() http.Header {
	ts := strconv.FormatInt(p.now(), 10)
	sum := sha1.Sum([]byte(p.apiKey + p.apiSecret + ts)) // #nosec G401
	return http.Header{
		"X-Auth-Key":    []string{p.apiKey},
		"X-Auth-Date":   []string{ts},
		"Authorization": []string{hex.EncodeToString(sum[:])},
	}
}

type podcastIndexResponse struct {
	Feeds []struct {
		ID          int    `json:"id"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		Link        string `json:"link"`
		Description string `json:"description"`
		Author      string `json:"author"`
	} `json:"feeds"`
}

func (p *PodcastIndex) ScrapePodcasts(ctx context.Context, limit int) ([]model.RawPodcast, error) {
	if p.apiKey == "" || p.apiSecret == "" {
		return nil, fmt.Errorf("podcastindex: %w", fetch.ErrAuthRejected)
	}

	params := url.Values{}
	params.Set("q", "wrestling")
	params.Set("max", strconv.Itoa(limit))

	var resp podcastIndexResponse
	endpoint := p.baseURL + "/api/1.0/search/byterm?" + params.Encode()
	if err := p.client.GetJSON(ctx, endpoint, fetch.Options{Header: p.authHeader()}, &resp); err != nil {
		return nil, fmt.Errorf("podcastindex search failed: %w", err)
	}

	var out []model.RawPodcast
	for _, f := range resp.Feeds {
		if len(out) >= limit {
			break
		}
		raw := model.RawPodcast{
			Provenance: model.Provenance{
				Source:    p.Name(),
				SourceID:  strconv.Itoa(f.ID),
				SourceURL: f.Link,
			},
			Name:  f.Title,
			Hosts: f.Author,
			URL:   f.Link,
			About: cleanText(f.Description),
		}
		enrichFromRSS(ctx, p.client, p.logger, &raw, f.URL)
		out = append(out, raw)
	}
	return out, nil
}
