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

// OpenLibrary scrapes wrestling books from the openlibrary.org search API.
// No key required.
type OpenLibrary struct {
	client  *fetch.Client
	logger  *zap.Logger
	baseURL string
}

// NewOpenLibrary builds the adapter for the given API root.
func NewOpenLibrary(baseURL string, client *fetch.Client, logger *zap.Logger) *OpenLibrary {
	return &OpenLibrary{client: client, logger: logger, baseURL: strings.TrimRight(baseURL, "/")}
}

func (o *OpenLibrary) Name() string { return "openlibrary" }

type openLibraryResponse struct {
	Docs []struct {
		Key              string   `json:"key"`
		Title            string   `json:"title"`
		AuthorName       []string `json:"author_name"`
		FirstPublishYear int      `json:"first_publish_year"`
		ISBN             []string `json:"isbn"`
		Publisher        []string `json:"publisher"`
	} `json:"docs"`
}

func (o *OpenLibrary) ScrapeBooks(ctx context.Context, limit int) ([]model.RawBook, error) {
	params := url.Values{}
	params.Set("q", "professional wrestling")
	params.Set("limit", strconv.Itoa(limit))

	var resp openLibraryResponse
	if err := o.client.GetJSON(ctx, o.baseURL+"/search.json?"+params.Encode(), fetch.Options{}, &resp); err != nil {
		return nil, fmt.Errorf("openlibrary search failed: %w", err)
	}

	var out []model.RawBook
	for _, doc := range resp.Docs {
		if len(out) >= limit {
			break
		}
		var year string
		if doc.FirstPublishYear > 0 {
			year = strconv.Itoa(doc.FirstPublishYear)
		}
		out = append(out, model.RawBook{
			Provenance: model.Provenance{
				Source:    o.Name(),
				SourceID:  doc.Key,
				SourceURL: o.baseURL + doc.Key,
			},
			Title:           doc.Title,
			Author:          strings.Join(doc.AuthorName, ", "),
			PublicationYear: year,
			ISBN:            firstNonEmpty(doc.ISBN),
			Publisher:       firstNonEmpty(doc.Publisher),
		})
	}
	return out, nil
}

func firstNonEmpty(vals []string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// GoogleBooks scrapes wrestling books from the Google Books volumes API.
type GoogleBooks struct {
	client  *fetch.Client
	logger  *zap.Logger
	baseURL string
	apiKey  string
}

// NewGoogleBooks builds the adapter. The API key is optional for search.
func NewGoogleBooks(baseURL, apiKey string, client *fetch.Client, logger *zap.Logger) *GoogleBooks {
	return &GoogleBooks{client: client, logger: logger, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (g *GoogleBooks) Name() string { return "googlebooks" }

type googleBooksResponse struct {
	Items []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title               string   `json:"title"`
			Authors             []string `json:"authors"`
			Publisher           string   `json:"publisher"`
			PublishedDate       string   `json:"publishedDate"`
			Description         string   `json:"description"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			InfoLink string `json:"infoLink"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (g *GoogleBooks) ScrapeBooks(ctx context.Context, limit int) ([]model.RawBook, error) {
	params := url.Values{}
	params.Set("q", "subject:professional wrestling")
	params.Set("maxResults", strconv.Itoa(min(limit, 40)))
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	var resp googleBooksResponse
	if err := g.client.GetJSON(ctx, g.baseURL+"/books/v1/volumes?"+params.Encode(), fetch.Options{}, &resp); err != nil {
		return nil, fmt.Errorf("googlebooks search failed: %w", err)
	}

	var out []model.RawBook
	for _, item := range resp.Items {
		if len(out) >= limit {
			break
		}
		info := item.VolumeInfo
		var isbn string
		for _, id := range info.IndustryIdentifiers {
			if id.Type == "ISBN_13" {
				isbn = id.Identifier
				break
			}
			if id.Type == "ISBN_10" && isbn == "" {
				isbn = id.Identifier
			}
		}
		out = append(out, model.RawBook{
			Provenance: model.Provenance{
				Source:    g.Name(),
				SourceID:  item.ID,
				SourceURL: info.InfoLink,
			},
			Title:           info.Title,
			Author:          strings.Join(info.Authors, ", "),
			PublicationYear: yearOfDate(info.PublishedDate),
			ISBN:            isbn,
			Publisher:       info.Publisher,
			About:           info.Description,
		})
	}
	return out, nil
}
