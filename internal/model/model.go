// Package model defines the stored entity shapes and the transient raw
// records produced by source adapters.
package model

import "strings"

// Stored entities. Zero-valued optional fields mean "unknown"; years use 0
// and foreign keys use 0 when absent.

// Wrestler is the primary person entity; Name is the human-readable key.
type Wrestler struct {
	ID             int64
	Name           string
	Slug           string
	RealName       string
	Aliases        string // comma-joined ring names
	Hometown       string
	Nationality    string
	Finishers      string // comma-joined finishing moves
	DebutYear      int
	RetirementYear int
	About          string
}

// AliasList splits the comma-joined alias field.
func (w Wrestler) AliasList() []string {
	return splitCommaList(w.Aliases)
}

// Promotion is a wrestling company.
type Promotion struct {
	ID           int64
	Name         string
	Slug         string
	Abbreviation string
	FoundedYear  int
	ClosedYear   int
	Website      string
	About        string
}

// Venue is created lazily when an event references an unknown venue name.
type Venue struct {
	ID       int64
	Name     string
	Slug     string
	Location string
	Capacity int
}

// Event requires a date and an owning promotion; (normalized name, date) is
// its practical identity.
type Event struct {
	ID          int64
	Name        string
	Slug        string
	Date        string // YYYY-MM-DD
	PromotionID int64
	VenueID     int64
	Attendance  int
	About       string
}

// Title is a championship belt.
type Title struct {
	ID             int64
	Name           string
	Slug           string
	PromotionID    int64
	DebutYear      int
	RetirementYear int
}

// Match belongs to exactly one event. WinnerID, when set, must be one of
// ParticipantIDs.
type Match struct {
	ID             int64
	EventID        int64
	MatchText      string
	Result         string
	MatchType      string
	MatchOrder     int
	WinnerID       int64
	TitleID        int64
	ParticipantIDs []int64
}

// VideoGame is a wrestling video game.
type VideoGame struct {
	ID          int64
	Name        string
	Slug        string
	ReleaseYear int
	Systems     string
	Developer   string
	Publisher   string
	About       string
}

// Book is a wrestling book; ISBN, when known, is its definitive identity.
type Book struct {
	ID              int64
	Title           string
	Slug            string
	Author          string
	PublicationYear int
	ISBN            string
	Publisher       string
	About           string
}

// Podcast is a wrestling podcast.
type Podcast struct {
	ID         int64
	Name       string
	Slug       string
	Hosts      string
	LaunchYear int
	EndYear    int
	URL        string
	About      string
}

// Special is a movie, TV special, or documentary.
type Special struct {
	ID          int64
	Title       string
	Slug        string
	ReleaseYear int
	Type        string // documentary, movie, tv_special, series, other
	About       string
}

// SpecialTypes are the accepted Special.Type values; anything else is
// normalized to "other".
var SpecialTypes = []string{"documentary", "movie", "tv_special", "series", "other"}

// Provenance tags every raw record with where it came from. The fields are
// threaded through validation untouched.
type Provenance struct {
	Source    string
	SourceID  string
	SourceURL string
}

// Raw records are what adapters produce: loosely-typed field bags scraped
// from pages or API payloads. Numeric-ish fields stay strings until the
// validator parses them, since sources emit anything from "1978" to
// "c. 1978 (debut)".

type RawWrestler struct {
	Provenance
	Name           string
	RealName       string
	Aliases        string
	Hometown       string
	Nationality    string
	Finishers      string
	DebutYear      string
	RetirementYear string
	About          string
}

type RawPromotion struct {
	Provenance
	Name         string
	Abbreviation string
	FoundedYear  string
	ClosedYear   string
	Website      string
	About        string
}

type RawEvent struct {
	Provenance
	Name          string
	Date          string
	VenueName     string
	VenueLocation string
	Attendance    string
	PromotionName string
	About         string
	Matches       []RawMatch
}

type RawMatch struct {
	MatchText    string
	Result       string
	MatchType    string
	Participants []string
	Winner       string
	TitleName    string
}

type RawGame struct {
	Provenance
	Name        string
	ReleaseYear string
	Systems     string
	Developer   string
	Publisher   string
	About       string
}

type RawBook struct {
	Provenance
	Title           string
	Author          string
	PublicationYear string
	ISBN            string
	Publisher       string
	About           string
}

type RawPodcast struct {
	Provenance
	Name       string
	Hosts      string
	LaunchYear string
	EndYear    string
	URL        string
	About      string
}

type RawSpecial struct {
	Provenance
	Title       string
	ReleaseYear string
	Type        string
	About       string
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
