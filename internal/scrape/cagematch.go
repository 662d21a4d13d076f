package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/fetch"
	"github.com/owdb/wrestlebot/internal/model"
)

// Cagematch scrapes the cagematch.net database pages. Everything is plain
// HTML; listings link to detail pages carrying an information box of
// label/value rows.
type Cagematch struct {
	client  *fetch.Client
	logger  *zap.Logger
	baseURL string
}

// NewCagematch builds the adapter for the given site root.
func NewCagematch(baseURL string, client *fetch.Client, logger *zap.Logger) *Cagematch {
	return &Cagematch{client: client, logger: logger, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Cagematch) Name() string { return "cagematch" }

func (c *Cagematch) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.client.Get(ctx, pageURL, fetch.Options{})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}
	return doc, nil
}

// listing collects (id, name, detailURL) triples for entries of one
// database section.
func (c *Cagematch) listing(ctx context.Context, section string, limit int) ([][3]string, error) {
	doc, err := c.document(ctx, fmt.Sprintf("%s/?id=%s&view=%s", c.baseURL, section, sectionView(section)))
	if err != nil {
		return nil, err
	}

	var out [][3]string
	doc.Find("table.TBase tr a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(href, "id="+section) || !strings.Contains(href, "nr=") {
			return true
		}
		name := cleanText(a.Text())
		if name == "" {
			return true
		}
		nr := queryParam(href, "nr")
		if nr == "" {
			return true
		}
		out = append(out, [3]string{nr, name, c.baseURL + "/" + strings.TrimPrefix(href, "/")})
		return len(out) < limit
	})
	return out, nil
}

func sectionView(section string) string {
	switch section {
	case "1":
		return "events"
	case "8":
		return "promotions"
	default:
		return "workers"
	}
}

func queryParam(href, key string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get(key)
}

// informationBox reads the label/value rows of a detail page.
func informationBox(doc *goquery.Document) map[string]string {
	out := make(map[string]string)
	doc.Find("div.InformationBoxRow").Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSuffix(cleanText(row.Find("div.InformationBoxTitle").Text()), ":")
		value := cleanText(row.Find("div.InformationBoxContents").Text())
		if label != "" && value != "" {
			out[label] = value
		}
	})
	return out
}

var cagematchDateLayouts = []string{"02.01.2006", "January 2, 2006"}

func normalizeCagematchDate(raw string) string {
	raw = cleanText(raw)
	for _, layout := range cagematchDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

func (c *Cagematch) ScrapeWrestlers(ctx context.Context, limit int) ([]model.RawWrestler, error) {
	entries, err := c.listing(ctx, "2", limit)
	if err != nil {
		return nil, err
	}

	var out []model.RawWrestler
	for _, entry := range entries {
		doc, err := c.document(ctx, entry[2])
		if err != nil {
			if fetchAborted(err) {
				return out, err
			}
			c.logger.Warn("skipping worker page", zap.String("name", entry[1]), zap.Error(err))
			continue
		}
		box := informationBox(doc)
		out = append(out, model.RawWrestler{
			Provenance: model.Provenance{
				Source:    c.Name(),
				SourceID:  entry[0],
				SourceURL: entry[2],
			},
			Name:           entry[1],
			RealName:       box["Birth name"],
			Aliases:        box["Alter egos"],
			Hometown:       firstOf(box, "Birthplace", "Billed from"),
			Nationality:    box["Nationality"],
			Finishers:      box["Signature moves"],
			DebutYear:      extractYear(box["Beginning of in-ring career"]),
			RetirementYear: extractYear(box["End of in-ring career"]),
		})
	}
	return out, nil
}

func (c *Cagematch) ScrapePromotions(ctx context.Context, limit int) ([]model.RawPromotion, error) {
	entries, err := c.listing(ctx, "8", limit)
	if err != nil {
		return nil, err
	}

	var out []model.RawPromotion
	for _, entry := range entries {
		doc, err := c.document(ctx, entry[2])
		if err != nil {
			if fetchAborted(err) {
				return out, err
			}
			c.logger.Warn("skipping promotion page", zap.String("name", entry[1]), zap.Error(err))
			continue
		}
		box := informationBox(doc)
		out = append(out, model.RawPromotion{
			Provenance: model.Provenance{
				Source:    c.Name(),
				SourceID:  entry[0],
				SourceURL: entry[2],
			},
			Name:         firstOf(box, "Current name", "Complete name"),
			Abbreviation: box["Abbreviation"],
			FoundedYear:  extractYear(box["Founded"]),
			ClosedYear:   extractYear(box["Closed"]),
			Website:      box["WWW"],
		})
		if out[len(out)-1].Name == "" {
			out[len(out)-1].Name = entry[1]
		}
	}
	return out, nil
}

func (c *Cagematch) ScrapeEvents(ctx context.Context, limit int) ([]model.RawEvent, error) {
	entries, err := c.listing(ctx, "1", limit)
	if err != nil {
		return nil, err
	}

	var out []model.RawEvent
	for _, entry := range entries {
		doc, err := c.document(ctx, entry[2])
		if err != nil {
			if fetchAborted(err) {
				return out, err
			}
			c.logger.Warn("skipping event page", zap.String("name", entry[1]), zap.Error(err))
			continue
		}
		box := informationBox(doc)
		event := model.RawEvent{
			Provenance: model.Provenance{
				Source:    c.Name(),
				SourceID:  entry[0],
				SourceURL: entry[2],
			},
			Name:          entry[1],
			Date:          normalizeCagematchDate(box["Date"]),
			VenueName:     box["Arena"],
			VenueLocation: box["Location"],
			Attendance:    box["Attendance"],
			PromotionName: box["Promotion"],
		}
		doc.Find("div.Matches div.Match").Each(func(_ int, m *goquery.Selection) {
			text := cleanText(m.Find("div.MatchResults").Text())
			if text == "" {
				text = cleanText(m.Text())
			}
			if text != "" {
				event.Matches = append(event.Matches, parseMatchText(text))
			}
		})
		out = append(out, event)
	}
	return out, nil
}

// parseMatchText pulls winner, participants, and a title name out of a
// result line like "WWF World Heavyweight Title: Bret Hart defeats Diesel".
func parseMatchText(text string) model.RawMatch {
	m := model.RawMatch{MatchText: text, Result: text}

	body := text
	if i := strings.Index(body, ": "); i >= 0 && looksLikeTitle(body[:i]) {
		m.TitleName = strings.TrimSpace(body[:i])
		body = body[i+2:]
	}

	switch {
	case strings.Contains(body, " defeats "):
		parts := strings.SplitN(body, " defeats ", 2)
		m.Winner = strings.TrimSpace(parts[0])
		m.Participants = append([]string{m.Winner}, splitOpponents(parts[1])...)
	case strings.Contains(body, " defeat "):
		parts := strings.SplitN(body, " defeat ", 2)
		m.Winner = strings.TrimSpace(parts[0])
		m.Participants = append(splitOpponents(parts[0]), splitOpponents(parts[1])...)
	case strings.Contains(body, " vs. "):
		m.MatchType = "draw"
		m.Participants = splitOpponents(body)
	}
	return m
}

func looksLikeTitle(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "title") || strings.Contains(s, "championship")
}

// splitOpponents breaks "A, B & C" or "A vs. B" into individual names.
func splitOpponents(s string) []string {
	s = strings.NewReplacer(" vs. ", "\x00", " & ", "\x00", " and ", "\x00", ", ", "\x00").Replace(s)
	var out []string
	for _, part := range strings.Split(s, "\x00") {
		part = strings.TrimSpace(part)
		// Strip trailing annotations like "(c)" or "(12:34)".
		if i := strings.IndexByte(part, '('); i > 0 {
			part = strings.TrimSpace(part[:i])
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
