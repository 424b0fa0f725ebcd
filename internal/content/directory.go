package content

import (
	"context"
	"fmt"
	"time"

	"example.com/aievents/internal/domain"
)

// Directory is the public read side: published events, minus aggregator
// listings, optionally cached.
type Directory struct {
	store Store
	cache Cache
	ttl   time.Duration
	now   func() time.Time
}

type DirectoryOption func(*Directory)

func WithCache(c Cache, ttl time.Duration) DirectoryOption {
	return func(d *Directory) {
		if c != nil && ttl > 0 {
			d.cache, d.ttl = c, ttl
		}
	}
}

func WithNow(now func() time.Time) DirectoryOption {
	return func(d *Directory) { d.now = now }
}

func NewDirectory(store Store, opts ...DirectoryOption) *Directory {
	d := &Directory{store: store, cache: noCache{}, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FeaturedLimit caps the featured strip.
const FeaturedLimit = 5

// Upcoming lists events dated today or later, soonest first.
func (d *Directory) Upcoming(ctx context.Context, f domain.Filter) ([]domain.Event, error) {
	today := domain.Today(d.now())
	return d.list(ctx, "upcoming|"+today+"|"+f.Key(), Query{Filter: f, OnOrAfter: today}, f)
}

// Past lists events dated before today, most recent first.
func (d *Directory) Past(ctx context.Context, f domain.Filter) ([]domain.Event, error) {
	today := domain.Today(d.now())
	return d.list(ctx, "past|"+today+"|"+f.Key(), Query{Filter: f, Before: today, Descending: true}, f)
}

// Featured lists up to FeaturedLimit upcoming featured events. The cap is
// applied before aggregator hiding, so fewer may come back.
func (d *Directory) Featured(ctx context.Context) ([]domain.Event, error) {
	today := domain.Today(d.now())
	q := Query{OnOrAfter: today, FeaturedOnly: true, Limit: FeaturedLimit}
	return d.list(ctx, "featured|"+today, q, domain.Filter{})
}

func (d *Directory) list(ctx context.Context, key string, q Query, f domain.Filter) ([]domain.Event, error) {
	if evs, ok := d.cache.Get(key); ok {
		return evs, nil
	}

	found, err := d.store.QueryEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	out := make([]domain.Event, 0, len(found))
	for i := range found {
		if domain.Hidden(&found[i]) || !f.Matches(&found[i]) {
			continue
		}
		out = append(out, found[i])
	}

	d.cache.Set(key, out, d.ttl)
	return out, nil
}

// BySlug resolves a slug through its id suffix. Hidden events are not found.
func (d *Directory) BySlug(ctx context.Context, slug string) (domain.Event, error) {
	suffix := domain.SlugID(slug)
	if suffix == "" {
		return domain.Event{}, ErrNotFound
	}
	ev, err := d.store.EventByIDSuffix(ctx, suffix)
	if err != nil {
		return domain.Event{}, err
	}
	if domain.Hidden(&ev) {
		return domain.Event{}, ErrNotFound
	}
	return ev, nil
}
