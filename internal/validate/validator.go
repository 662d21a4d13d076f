// Package validate normalizes and bounds-checks raw scraped records before
// anything touches storage.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/owdb/wrestlebot/internal/model"
)

// Storage column limits. A field over its limit is truncated, never
// rejected.
const (
	maxNameLen  = 255
	maxShortLen = 50
	maxURLLen   = 500
	maxListLen  = 1000
	maxTextLen  = 1000
)

var (
	slugStripRe   = regexp.MustCompile(`[^a-z0-9]+`)
	nonDigitXRe   = regexp.MustCompile(`[^0-9X]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`[^\w\s]`)
)

// CleanEvent carries a validated event plus the venue/promotion names that
// the importer resolves into rows.
type CleanEvent struct {
	Name          string
	Slug          string
	Date          string
	VenueName     string
	VenueLocation string
	PromotionName string
	Attendance    int
	About         string
	Matches       []model.RawMatch
}

// Validator applies uniform cleaning rules. Year bounds are policy knobs;
// the ceiling is always next year per the wall clock.
type Validator struct {
	YearFloor int
	Now       func() time.Time
}

// New builds a Validator with the given year floor.
func New(yearFloor int) *Validator {
	if yearFloor <= 0 {
		yearFloor = 1900
	}
	return &Validator{YearFloor: yearFloor, Now: time.Now}
}

// Slugify derives the deterministic identity key from a name.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStripRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	return s
}

// NormalizeName casefolds, strips punctuation, and collapses whitespace
// for comparison purposes.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = punctuationRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}

// Year parses a year value and bounds-checks it. Returns 0 when absent or
// out of bounds; out-of-bounds years are dropped, not grounds for
// rejecting the record.
func (v *Validator) Year(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	if year < v.YearFloor || year > v.Now().Year()+1 {
		return 0
	}
	return year
}

// Date validates a strict YYYY-MM-DD date within the year bounds. Returns
// "" when unparseable.
func (v *Validator) Date(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return ""
	}
	if t.Year() < v.YearFloor || t.Year() > v.Now().Year()+1 {
		return ""
	}
	return t.Format("2006-01-02")
}

// URL keeps only http(s) URLs, clipped to the storage limit.
func (v *Validator) URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return ""
	}
	return clip(raw, maxURLLen)
}

// ISBN normalizes an ISBN to bare digits (plus a trailing X) and accepts
// only 10 or 13 character forms.
func (v *Validator) ISBN(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	if nonDigitXRe.MatchString(s) {
		return ""
	}
	if len(s) != 10 && len(s) != 13 {
		return ""
	}
	// X is only valid as an ISBN-10 check digit.
	if i := strings.IndexByte(s, 'X'); i >= 0 && (len(s) != 10 || i != 9) {
		return ""
	}
	return s
}

func (v *Validator) attendance(raw string) int {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Wrestler validates and cleans a raw wrestler. Name is the only required
// field.
func (v *Validator) Wrestler(raw model.RawWrestler) (model.Wrestler, bool) {
	if strings.TrimSpace(raw.Name) == "" {
		return model.Wrestler{}, false
	}
	name := clip(raw.Name, maxNameLen)
	return model.Wrestler{
		Name:           name,
		Slug:           Slugify(name),
		RealName:       clip(raw.RealName, maxNameLen),
		Aliases:        clip(raw.Aliases, maxListLen),
		Hometown:       clip(raw.Hometown, maxNameLen),
		Nationality:    clip(raw.Nationality, maxNameLen),
		Finishers:      clip(raw.Finishers, maxListLen),
		DebutYear:      v.Year(raw.DebutYear),
		RetirementYear: v.Year(raw.RetirementYear),
		About:          clip(raw.About, maxTextLen),
	}, true
}

// Promotion validates and cleans a raw promotion.
func (v *Validator) Promotion(raw model.RawPromotion) (model.Promotion, bool) {
	if strings.TrimSpace(raw.Name) == "" {
		return model.Promotion{}, false
	}
	name := clip(raw.Name, maxNameLen)
	return model.Promotion{
		Name:         name,
		Slug:         Slugify(name),
		Abbreviation: clip(raw.Abbreviation, maxShortLen),
		FoundedYear:  v.Year(raw.FoundedYear),
		ClosedYear:   v.Year(raw.ClosedYear),
		Website:      v.URL(raw.Website),
		About:        clip(raw.About, maxTextLen),
	}, true
}

// Event validates a raw event. Events without a parseable date are
// invalid, not merely incomplete.
func (v *Validator) Event(raw model.RawEvent) (CleanEvent, bool) {
	if strings.TrimSpace(raw.Name) == "" {
		return CleanEvent{}, false
	}
	date := v.Date(raw.Date)
	if date == "" {
		return CleanEvent{}, false
	}
	name := clip(raw.Name, maxNameLen)
	return CleanEvent{
		Name:          name,
		Slug:          Slugify(name + "-" + date[:4]),
		Date:          date,
		VenueName:     clip(raw.VenueName, maxNameLen),
		VenueLocation: clip(raw.VenueLocation, maxNameLen),
		PromotionName: clip(raw.PromotionName, maxNameLen),
		Attendance:    v.attendance(raw.Attendance),
		About:         clip(raw.About, maxTextLen),
		Matches:       raw.Matches,
	}, true
}

// Game validates and cleans a raw video game.
func (v *Validator) Game(raw model.RawGame) (model.VideoGame, bool) {
	if strings.TrimSpace(raw.Name) == "" {
		return model.VideoGame{}, false
	}
	name := clip(raw.Name, maxNameLen)
	return model.VideoGame{
		Name:        name,
		Slug:        Slugify(name),
		ReleaseYear: v.Year(raw.ReleaseYear),
		Systems:     clip(raw.Systems, maxNameLen),
		Developer:   clip(raw.Developer, maxNameLen),
		Publisher:   clip(raw.Publisher, maxNameLen),
		About:       clip(raw.About, maxTextLen),
	}, true
}

// Book validates and cleans a raw book.
func (v *Validator) Book(raw model.RawBook) (model.Book, bool) {
	if strings.TrimSpace(raw.Title) == "" {
		return model.Book{}, false
	}
	title := clip(raw.Title, maxNameLen)
	return model.Book{
		Title:           title,
		Slug:            Slugify(title),
		Author:          clip(raw.Author, maxNameLen),
		PublicationYear: v.Year(raw.PublicationYear),
		ISBN:            v.ISBN(raw.ISBN),
		Publisher:       clip(raw.Publisher, maxNameLen),
		About:           clip(raw.About, maxTextLen),
	}, true
}

// Podcast validates and cleans a raw podcast.
func (v *Validator) Podcast(raw model.RawPodcast) (model.Podcast, bool) {
	if strings.TrimSpace(raw.Name) == "" {
		return model.Podcast{}, false
	}
	name := clip(raw.Name, maxNameLen)
	return model.Podcast{
		Name:       name,
		Slug:       Slugify(name),
		Hosts:      clip(raw.Hosts, maxURLLen),
		LaunchYear: v.Year(raw.LaunchYear),
		EndYear:    v.Year(raw.EndYear),
		URL:        v.URL(raw.URL),
		About:      clip(raw.About, maxTextLen),
	}, true
}

// Special validates and cleans a raw special, normalizing unknown type
// values to "other".
func (v *Validator) Special(raw model.RawSpecial) (model.Special, bool) {
	if strings.TrimSpace(raw.Title) == "" {
		return model.Special{}, false
	}
	title := clip(raw.Title, maxNameLen)
	kind := strings.TrimSpace(raw.Type)
	valid := false
	for _, t := range model.SpecialTypes {
		if kind == t {
			valid = true
			break
		}
	}
	if !valid {
		kind = "other"
	}
	return model.Special{
		Title:       title,
		Slug:        Slugify(title),
		ReleaseYear: v.Year(raw.ReleaseYear),
		Type:        kind,
		About:       clip(raw.About, maxTextLen),
	}, true
}
