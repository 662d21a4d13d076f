package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/fetch"
	"github.com/owdb/wrestlebot/internal/model"
	"github.com/owdb/wrestlebot/internal/statestore"
)

// Per-kind category pools. Each run works one category and the index
// rotates through the pool so successive runs cover different ground.
var (
	wikiWrestlerCategories = []string{
		"American male professional wrestlers",
		"American female professional wrestlers",
		"Canadian male professional wrestlers",
		"Japanese male professional wrestlers",
		"Mexican male professional wrestlers",
		"British male professional wrestlers",
		"Professional wrestling managers and valets",
	}
	wikiPromotionCategories = []string{
		"American professional wrestling promotions",
		"Japanese professional wrestling promotions",
		"Mexican professional wrestling promotions",
		"Defunct professional wrestling promotions",
	}
	wikiEventCategories = []string{
		"WWE pay-per-view and livestreaming events",
		"All Elite Wrestling pay-per-view events",
		"New Japan Pro-Wrestling shows",
		"World Championship Wrestling pay-per-view events",
		"Extreme Championship Wrestling pay-per-view events",
	}
)

const (
	// maxlag asks MediaWiki to refuse the request when replication lag is
	// high instead of piling on.
	wikiMaxLag           = "5"
	wikiCategoryStateTTL = 30 * 24 * time.Hour
)

// Wikipedia scrapes wrestlers, promotions, and events through the MediaWiki
// Action API. It never fetches article pages directly; listing and HTML
// both come from the API, which is whitelisted in robots handling.
type Wikipedia struct {
	client  *fetch.Client
	store   statestore.Store
	logger  *zap.Logger
	apiURL  string
	siteURL string
}

// NewWikipedia builds the adapter. apiURL points at the Action API
// endpoint, e.g. https://en.wikipedia.org/w/api.php.
func NewWikipedia(apiURL string, client *fetch.Client, store statestore.Store, logger *zap.Logger) *Wikipedia {
	return &Wikipedia{
		client:  client,
		store:   store,
		logger:  logger,
		apiURL:  apiURL,
		siteURL: strings.TrimSuffix(apiURL, "/w/api.php"),
	}
}

func (w *Wikipedia) Name() string { return "wikipedia" }

// nextCategory rotates through the pool, persisting the cursor so separate
// processes continue the rotation instead of restarting it.
func (w *Wikipedia) nextCategory(kind string, pool []string) string {
	n, err := w.store.IncrBy("rotator:wikipedia:category:"+kind, 1, wikiCategoryStateTTL)
	if err != nil {
		w.logger.Warn("category rotation state unavailable, using first category",
			zap.String("kind", kind), zap.Error(err))
		return pool[0]
	}
	return pool[int((n-1)%int64(len(pool)))]
}

type wikiCategoryResponse struct {
	Query struct {
		CategoryMembers []struct {
			PageID int    `json:"pageid"`
			NS     int    `json:"ns"`
			Title  string `json:"title"`
		} `json:"categorymembers"`
	} `json:"query"`
}

type wikiParseResponse struct {
	Parse struct {
		Title  string `json:"title"`
		PageID int    `json:"pageid"`
		Text   struct {
			HTML string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
}

func (w *Wikipedia) apiGet(ctx context.Context, params url.Values, v any) error {
	params.Set("format", "json")
	params.Set("maxlag", wikiMaxLag)
	return w.client.GetJSON(ctx, w.apiURL+"?"+params.Encode(), fetch.Options{}, v)
}

func (w *Wikipedia) categoryMembers(ctx context.Context, category string, limit int) (wikiCategoryResponse, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "categorymembers")
	params.Set("cmtitle", "Category:"+category)
	params.Set("cmlimit", strconv.Itoa(limit))
	params.Set("cmtype", "page")

	var resp wikiCategoryResponse
	if err := w.apiGet(ctx, params, &resp); err != nil {
		return wikiCategoryResponse{}, fmt.Errorf("failed to list category %q: %w", category, err)
	}
	return resp, nil
}

func (w *Wikipedia) pageHTML(ctx context.Context, title string) (*goquery.Document, error) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("page", title)
	params.Set("prop", "text")

	var resp wikiParseResponse
	if err := w.apiGet(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse page %q: %w", title, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Parse.Text.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to build document for %q: %w", title, err)
	}
	return doc, nil
}

func (w *Wikipedia) pageURL(title string) string {
	return w.siteURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// skippableTitle filters list articles and other non-subject pages out of
// category listings.
func skippableTitle(title string) bool {
	return strings.HasPrefix(title, "List of") ||
		strings.HasPrefix(title, "Category:") ||
		strings.HasPrefix(title, "Template:")
}

// infobox extracts the label -> value pairs from a page's infobox table.
func infobox(doc *goquery.Document) map[string]string {
	out := make(map[string]string)
	doc.Find("table.infobox tr").Each(func(_ int, row *goquery.Selection) {
		label := cleanText(row.Find("th").First().Text())
		value := cleanText(row.Find("td").First().Text())
		if label != "" && value != "" {
			out[label] = value
		}
	})
	return out
}

// leadParagraph returns the first real paragraph of the article body.
func leadParagraph(doc *goquery.Document) string {
	var lead string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := cleanText(p.Text())
		if len(text) > 40 {
			lead = text
			return false
		}
		return true
	})
	return lead
}

func (w *Wikipedia) ScrapeWrestlers(ctx context.Context, limit int) ([]model.RawWrestler, error) {
	category := w.nextCategory("wrestlers", wikiWrestlerCategories)
	resp, err := w.categoryMembers(ctx, category, limit)
	if err != nil {
		return nil, err
	}

	var out []model.RawWrestler
	for _, member := range resp.Query.CategoryMembers {
		if len(out) >= limit {
			break
		}
		if member.NS != 0 || skippableTitle(member.Title) {
			continue
		}
		doc, err := w.pageHTML(ctx, member.Title)
		if err != nil {
			if fetchAborted(err) {
				return out, err
			}
			w.logger.Warn("skipping wrestler page",
				zap.String("title", member.Title), zap.Error(err))
			continue
		}
		box := infobox(doc)
		out = append(out, model.RawWrestler{
			Provenance: model.Provenance{
				Source:    w.Name(),
				SourceID:  strconv.Itoa(member.PageID),
				SourceURL: w.pageURL(member.Title),
			},
			Name:           member.Title,
			RealName:       firstOf(box, "Birth name", "Born"),
			Aliases:        firstOf(box, "Ring name(s)", "Ring names"),
			Hometown:       firstOf(box, "Billed from", "Billed From"),
			Finishers:      box["Signature moves"],
			DebutYear:      extractYear(box["Debut"]),
			RetirementYear: extractYear(box["Retired"]),
			About:          leadParagraph(doc),
		})
	}
	return out, nil
}

func (w *Wikipedia) ScrapePromotions(ctx context.Context, limit int) ([]model.RawPromotion, error) {
	category := w.nextCategory("promotions", wikiPromotionCategories)
	resp, err := w.categoryMembers(ctx, category, limit)
	if err != nil {
		return nil, err
	}

	var out []model.RawPromotion
	for _, member := range resp.Query.CategoryMembers {
		if len(out) >= limit {
			break
		}
		if member.NS != 0 || skippableTitle(member.Title) {
			continue
		}
		doc, err := w.pageHTML(ctx, member.Title)
		if err != nil {
			if fetchAborted(err) {
				return out, err
			}
			w.logger.Warn("skipping promotion page",
				zap.String("title", member.Title), zap.Error(err))
			continue
		}
		box := infobox(doc)
		out = append(out, model.RawPromotion{
			Provenance: model.Provenance{
				Source:    w.Name(),
				SourceID:  strconv.Itoa(member.PageID),
				SourceURL: w.pageURL(member.Title),
			},
			Name:         member.Title,
			Abbreviation: firstOf(box, "Acronym", "Abbreviation"),
			FoundedYear:  extractYear(firstOf(box, "Founded", "Formerly")),
			ClosedYear:   extractYear(box["Defunct"]),
			Website:      box["Website"],
			About:        leadParagraph(doc),
		})
	}
	return out, nil
}

func (w *Wikipedia) ScrapeEvents(ctx context.Context, limit int) ([]model.RawEvent, error) {
	category := w.nextCategory("events", wikiEventCategories)
	resp, err := w.categoryMembers(ctx, category, limit)
	if err != nil {
		return nil, err
	}

	var out []model.RawEvent
	for _, member := range resp.Query.CategoryMembers {
		if len(out) >= limit {
			break
		}
		if member.NS != 0 || skippableTitle(member.Title) {
			continue
		}
		doc, err := w.pageHTML(ctx, member.Title)
		if err != nil {
			if fetchAborted(err) {
				return out, err
			}
			w.logger.Warn("skipping event page",
				zap.String("title", member.Title), zap.Error(err))
			continue
		}
		box := infobox(doc)
		out = append(out, model.RawEvent{
			Provenance: model.Provenance{
				Source:    w.Name(),
				SourceID:  strconv.Itoa(member.PageID),
				SourceURL: w.pageURL(member.Title),
			},
			Name:          member.Title,
			Date:          normalizeWikiDate(box["Date"]),
			VenueName:     box["Venue"],
			VenueLocation: box["City"],
			Attendance:    box["Attendance"],
			PromotionName: firstOf(box, "Promotion", "Promotion(s)"),
			About:         leadParagraph(doc),
		})
	}
	return out, nil
}

// firstOf returns the first non-empty value among the given infobox keys.
func firstOf(box map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := box[k]; v != "" {
			return v
		}
	}
	return ""
}

var wikiDateLayouts = []string{"January 2, 2006", "2 January 2006", "2006-01-02"}

// normalizeWikiDate converts the common infobox date spellings to
// YYYY-MM-DD. Unparseable values pass through for the validator to reject.
func normalizeWikiDate(raw string) string {
	raw = cleanText(raw)
	// Strip footnote markers like "[1]".
	if i := strings.IndexByte(raw, '['); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	for _, layout := range wikiDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

// fetchAborted reports errors that should stop the whole scrape rather
// than skip one page.
func fetchAborted(err error) bool {
	return errors.Is(err, fetch.ErrCircuitOpen) ||
		errors.Is(err, fetch.ErrRateLimited) ||
		errors.Is(err, fetch.ErrSourceUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
