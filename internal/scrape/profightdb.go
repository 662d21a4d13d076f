package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/fetch"
	"github.com/owdb/wrestlebot/internal/model"
)

// ProFightDB scrapes historical event cards from profightdb.com. The site
// serves an expired certificate chain, so its fetch client is configured
// to skip TLS verification.
type ProFightDB struct {
	client  *fetch.Client
	logger  *zap.Logger
	baseURL string
}

// NewProFightDB builds the adapter for the given site root.
func NewProFightDB(baseURL string, client *fetch.Client, logger *zap.Logger) *ProFightDB {
	return &ProFightDB{client: client, logger: logger, baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *ProFightDB) Name() string { return "profightdb" }

var ordinalRe = regexp.MustCompile(`(\d)(st|nd|rd|th)`)

// normalizeProFightDate parses dates like "8th Apr 1994".
func normalizeProFightDate(raw string) string {
	raw = ordinalRe.ReplaceAllString(cleanText(raw), "$1")
	for _, layout := range []string{"2 Jan 2006", "2 January 2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

func (p *ProFightDB) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := p.client.Get(ctx, pageURL, fetch.Options{})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}
	return doc, nil
}

type profightEntry struct {
	date      string
	name      string
	promotion string
	location  string
	href      string
}

func (p *ProFightDB) cardListing(ctx context.Context, limit int) ([]profightEntry, error) {
	doc, err := p.document(ctx, p.baseURL+"/cards.html")
	if err != nil {
		return nil, err
	}

	var out []profightEntry
	doc.Find("table.new-table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return true
		}
		link := cells.Eq(1).Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		out = append(out, profightEntry{
			date:      cleanText(cells.Eq(0).Text()),
			name:      cleanText(link.Text()),
			promotion: cleanText(cells.Eq(2).Text()),
			location:  cleanText(cells.Eq(3).Text()),
			href:      p.absoluteURL(href),
		})
		return len(out) < limit
	})
	return out, nil
}

func (p *ProFightDB) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return p.baseURL + "/" + strings.TrimPrefix(href, "/")
}

func (p *ProFightDB) ScrapeEvents(ctx context.Context, limit int) ([]model.RawEvent, error) {
	entries, err := p.cardListing(ctx, limit)
	if err != nil {
		return nil, err
	}

	var out []model.RawEvent
	for _, entry := range entries {
		event := model.RawEvent{
			Provenance: model.Provenance{
				Source:    p.Name(),
				SourceID:  sourceIDFromURL(entry.href),
				SourceURL: entry.href,
			},
			Name:          entry.name,
			Date:          normalizeProFightDate(entry.date),
			VenueLocation: entry.location,
			PromotionName: entry.promotion,
		}

		doc, err := p.document(ctx, entry.href)
		if err != nil {
			if fetchAborted(err) {
				return out, err
			}
			// The listing row alone is still a usable event.
			p.logger.Warn("skipping event card detail",
				zap.String("name", entry.name), zap.Error(err))
			out = append(out, event)
			continue
		}

		doc.Find("table.new-table tr").Each(func(_ int, row *goquery.Selection) {
			match := p.parseCardRow(row)
			if match != nil {
				event.Matches = append(event.Matches, *match)
			}
		})
		if venue := cleanText(doc.Find("div.right-content h2 span").First().Text()); venue != "" {
			event.VenueName = venue
		}
		out = append(out, event)
	}
	return out, nil
}

// parseCardRow turns a "winner def. loser" card row into a raw match. Rows
// carrying a title column become title matches, which is how belt lineages
// enter the catalog.
func (p *ProFightDB) parseCardRow(row *goquery.Selection) *model.RawMatch {
	cells := row.Find("td")
	if cells.Length() < 3 {
		return nil
	}
	winner := cleanText(cells.Eq(0).Text())
	verdict := cleanText(cells.Eq(1).Text())
	loser := cleanText(cells.Eq(2).Text())
	if winner == "" || loser == "" {
		return nil
	}

	match := &model.RawMatch{
		MatchText: strings.TrimSpace(winner + " " + verdict + " " + loser),
		Result:    verdict,
	}
	if strings.HasPrefix(verdict, "def") {
		match.Winner = winner
		match.Participants = append(splitOpponents(winner), splitOpponents(loser)...)
	} else {
		match.Participants = append(splitOpponents(winner), splitOpponents(loser)...)
	}
	if cells.Length() >= 5 {
		if title := cleanText(cells.Eq(4).Text()); looksLikeTitle(title) {
			match.TitleName = title
		}
	}
	if cells.Length() >= 4 {
		match.MatchType = cleanText(cells.Eq(3).Text())
	}
	return match
}

// sourceIDFromURL keeps the final path segment as a stable identifier.
func sourceIDFromURL(u string) string {
	u = strings.TrimSuffix(u, ".html")
	if i := strings.LastIndexByte(u, '/'); i >= 0 {
		return u[i+1:]
	}
	return u
}
