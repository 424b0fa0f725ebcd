package domain

import (
	"regexp"
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusPublished Status = "Published"
	StatusCancelled Status = "Cancelled"
)

// Event is a directory record as held by the content store.
type Event struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Date        string   `json:"date"`
	EndDate     string   `json:"endDate,omitempty"`
	Location    string   `json:"location"`
	City        string   `json:"city"`
	Address     string   `json:"address,omitempty"`
	Categories  []string `json:"categories"`
	Type        string   `json:"type"`
	Organizer   string   `json:"organizer"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	PriceAmount *float64 `json:"priceAmount,omitempty"`
	Language    string   `json:"language"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Status      Status   `json:"status"`
	Featured    bool     `json:"featured"`
}

// EventDraft is what a public submission turns into before the store assigns an id.
type EventDraft struct {
	Name        string
	Date        string
	EndDate     string
	Location    string
	City        string
	Address     string
	Categories  []string
	Type        string
	Organizer   string
	URL         string
	Description string
	Price       string
	PriceAmount *float64
	Language    string
	Fingerprint string
}

// Submission is the body of POST /api/events. Website and FormLoadedAt are
// anti-bot scratch fields and never reach the content store.
type Submission struct {
	Name        string   `json:"name"`
	Date        string   `json:"date"`
	EndDate     string   `json:"endDate,omitempty"`
	Location    string   `json:"location,omitempty"`
	City        string   `json:"city"`
	Address     string   `json:"address,omitempty"`
	Categories  []string `json:"categories"`
	Type        string   `json:"type"`
	Organizer   string   `json:"organizer"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	PriceAmount *float64 `json:"priceAmount,omitempty"`
	Language    string   `json:"language"`

	Website      string `json:"website,omitempty"`
	FormLoadedAt *int64 `json:"_formLoadedAt,omitempty"` // epoch milliseconds
}

// Draft strips the anti-bot fields.
func (s *Submission) Draft() EventDraft {
	cats := make([]string, len(s.Categories))
	copy(cats, s.Categories)
	return EventDraft{
		Name:        s.Name,
		Date:        s.Date,
		EndDate:     s.EndDate,
		Location:    s.Location,
		City:        s.City,
		Address:     s.Address,
		Categories:  cats,
		Type:        s.Type,
		Organizer:   s.Organizer,
		URL:         s.URL,
		Description: s.Description,
		Price:       s.Price,
		PriceAmount: s.PriceAmount,
		Language:    s.Language,
	}
}

// Filter narrows a listing. Empty fields mean "no filter".
type Filter struct {
	City     string
	Category string
	Type     string
	Price    string
	Language string
	Search   string
	DateFrom string
	DateTo   string
}

// Key is a stable representation used for caching.
func (f Filter) Key() string {
	return strings.Join([]string{f.City, f.Category, f.Type, f.Price, f.Language,
		strings.ToLower(f.Search), f.DateFrom, f.DateTo}, "|")
}

// DateLayout is the day precision used for "upcoming" comparisons.
const DateLayout = "2006-01-02"

func Today(now time.Time) string { return now.UTC().Format(DateLayout) }

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug builds "<kebab-name>-<last 12 id chars>".
func Slug(name, id string) string {
	base := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > slugIDLen {
		compact = compact[len(compact)-slugIDLen:]
	}
	return base + "-" + compact
}

const slugIDLen = 12

var hexID = regexp.MustCompile(`^[0-9a-f]+$`)

// SlugID returns the id suffix of a slug, or "" if it cannot be one
// (shorter than 12 chars or not lowercase hex).
func SlugID(slug string) string {
	i := strings.LastIndex(slug, "-")
	part := slug[i+1:]
	if len(part) < slugIDLen || !hexID.MatchString(part) {
		return ""
	}
	return part
}

var blockedDomains = []string{
	"allconferencealert.com",
	"allconferencealerts.com",
	"conferencealert.com",
	"conferenceindex.org",
	"10times.com",
	"eventbrite.com",
	"eventbrite.se",
	"eventbrite.ie",
	"eventbrite.co.uk",
}

// Hidden reports whether an event links to an aggregator and must not be listed.
func Hidden(ev *Event) bool {
	if ev.URL == "" {
		return false
	}
	u := strings.ToLower(ev.URL)
	for _, d := range blockedDomains {
		if strings.Contains(u, d) {
			return true
		}
	}
	return false
}

// Matches applies the free-text search used by listings.
func (f Filter) Matches(ev *Event) bool {
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(ev.Name), q) ||
		strings.Contains(strings.ToLower(ev.Description), q) ||
		strings.Contains(strings.ToLower(ev.Organizer), q)
}
