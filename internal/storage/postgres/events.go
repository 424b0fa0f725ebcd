package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"example.com/aievents/internal/content"
	"example.com/aievents/internal/domain"
)

type EventStore struct {
	db *DB
}

var _ content.Store = (*EventStore)(nil)

func NewEventStore(db *DB) *EventStore { return &EventStore{db: db} }

const eventColumns = `id::text, name, date, COALESCE(end_date, ''), location, city,
COALESCE(address, ''), categories, type, organizer, url, description, price,
price_amount, language, COALESCE(image_url, ''), status, featured`

// CreateEvent inserts a Draft. A repeated fingerprint returns the stored id
// instead of inserting again.
func (s *EventStore) CreateEvent(ctx context.Context, d domain.EventDraft) (string, error) {
	sql := `
INSERT INTO events (fingerprint, name, date, end_date, location, city, address,
  categories, type, organizer, url, description, price, price_amount, language,
  status, featured)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,false)
ON CONFLICT (fingerprint) DO UPDATE SET fingerprint = EXCLUDED.fingerprint
RETURNING id::text`

	args := []any{
		nullIfEmpty(d.Fingerprint),
		d.Name,
		d.Date,
		nullIfEmpty(d.EndDate),
		d.Location,
		d.City,
		nullIfEmpty(d.Address),
		d.Categories,
		d.Type,
		d.Organizer,
		d.URL,
		d.Description,
		d.Price,
		d.PriceAmount,
		d.Language,
		string(domain.StatusDraft),
	}

	var id string
	if err := s.db.Pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func (s *EventStore) QueryEvents(ctx context.Context, q content.Query) ([]domain.Event, error) {
	sql, args := buildEventsQuery(q)

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// eventBySuffixSQL compares the suffix literally; it is never a pattern.
const eventBySuffixSQL = "SELECT " + eventColumns + ` FROM events
WHERE status = $1 AND right(replace(id::text, '-', ''), char_length($2)) = $2
LIMIT 1`

func (s *EventStore) EventByIDSuffix(ctx context.Context, suffix string) (domain.Event, error) {
	ev, err := scanEvent(s.db.Pool.QueryRow(ctx, eventBySuffixSQL, string(domain.StatusPublished), suffix))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, content.ErrNotFound
	}
	return ev, err
}

// buildEventsQuery translates a listing query into SQL; optional filters add
// numbered placeholders in a fixed order.
func buildEventsQuery(q content.Query) (string, []any) {
	conds := []string{"status = $1"}
	args := []any{string(domain.StatusPublished)}

	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if q.OnOrAfter != "" {
		add("left(date, 10) >= $%d", q.OnOrAfter)
	}
	if q.Before != "" {
		add("left(date, 10) < $%d", q.Before)
	}
	if q.FeaturedOnly {
		conds = append(conds, "featured")
	}
	if q.DateFrom != "" {
		add("left(date, 10) >= $%d", q.DateFrom)
	}
	if q.DateTo != "" {
		add("left(date, 10) <= $%d", q.DateTo)
	}
	if q.City != "" {
		add("city = $%d", q.City)
	}
	if q.Category != "" {
		add("$%d = ANY(categories)", q.Category)
	}
	if q.Type != "" {
		add("type = $%d", q.Type)
	}
	if q.Price != "" {
		add("price = $%d", q.Price)
	}
	if q.Language != "" {
		add("language = $%d", q.Language)
	}

	order := " ORDER BY date ASC, id ASC"
	if q.Descending {
		order = " ORDER BY date DESC, id DESC"
	}
	sql := "SELECT " + eventColumns + " FROM events WHERE " + strings.Join(conds, " AND ") + order
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return sql, args
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		ev     domain.Event
		status string
	)
	err := row.Scan(&ev.ID, &ev.Name, &ev.Date, &ev.EndDate, &ev.Location, &ev.City,
		&ev.Address, &ev.Categories, &ev.Type, &ev.Organizer, &ev.URL, &ev.Description,
		&ev.Price, &ev.PriceAmount, &ev.Language, &ev.ImageURL, &status, &ev.Featured)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ev, err
		}
		return ev, fmt.Errorf("scan event: %w", err)
	}
	ev.Status = domain.Status(status)
	ev.Slug = domain.Slug(ev.Name, ev.ID)
	return ev, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
