package content

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"example.com/aievents/internal/domain"
)

// MemoryStore keeps events in process. Used when no database is configured.
type MemoryStore struct {
	mu            sync.RWMutex
	events        map[string]domain.Event
	byFingerprint map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:        make(map[string]domain.Event),
		byFingerprint: make(map[string]string),
	}
}

func (s *MemoryStore) CreateEvent(_ context.Context, d domain.EventDraft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.Fingerprint != "" {
		if id, ok := s.byFingerprint[d.Fingerprint]; ok {
			return id, nil
		}
	}

	id := uuid.New().String()
	s.events[id] = domain.Event{
		ID:          id,
		Slug:        domain.Slug(d.Name, id),
		Name:        d.Name,
		Date:        d.Date,
		EndDate:     d.EndDate,
		Location:    d.Location,
		City:        d.City,
		Address:     d.Address,
		Categories:  d.Categories,
		Type:        d.Type,
		Organizer:   d.Organizer,
		URL:         d.URL,
		Description: d.Description,
		Price:       d.Price,
		PriceAmount: d.PriceAmount,
		Language:    d.Language,
		Status:      domain.StatusDraft,
	}
	if d.Fingerprint != "" {
		s.byFingerprint[d.Fingerprint] = id
	}
	return id, nil
}

// Put inserts or replaces a fully formed event.
func (s *MemoryStore) Put(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Slug == "" {
		ev.Slug = domain.Slug(ev.Name, ev.ID)
	}
	s.events[ev.ID] = ev
}

// Get returns an event regardless of status.
func (s *MemoryStore) Get(id string) (domain.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	return ev, ok
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *MemoryStore) QueryEvents(_ context.Context, q Query) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, 0)
	for _, ev := range s.events {
		if matchesQuery(&ev, q) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if q.Descending {
			a, b = b, a
		}
		if a.Date == b.Date {
			return a.ID < b.ID
		}
		return a.Date < b.Date
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matchesQuery(ev *domain.Event, q Query) bool {
	d := day(ev.Date)
	switch {
	case ev.Status != domain.StatusPublished:
		return false
	case q.OnOrAfter != "" && d < q.OnOrAfter:
		return false
	case q.Before != "" && d >= q.Before:
		return false
	case q.FeaturedOnly && !ev.Featured:
		return false
	case q.DateFrom != "" && d < q.DateFrom:
		return false
	case q.DateTo != "" && d > q.DateTo:
		return false
	case q.City != "" && ev.City != q.City:
		return false
	case q.Type != "" && ev.Type != q.Type:
		return false
	case q.Price != "" && ev.Price != q.Price:
		return false
	case q.Language != "" && ev.Language != q.Language:
		return false
	case q.Category != "" && !contains(ev.Categories, q.Category):
		return false
	}
	return true
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func (s *MemoryStore) EventByIDSuffix(_ context.Context, suffix string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, ev := range s.events {
		if ev.Status != domain.StatusPublished {
			continue
		}
		if strings.HasSuffix(strings.ReplaceAll(id, "-", ""), suffix) {
			return ev, nil
		}
	}
	return domain.Event{}, ErrNotFound
}
