// Package content defines the event content store contract and the read-side
// directory built on top of it.
package content

import (
	"context"
	"errors"

	"example.com/aievents/internal/domain"
)

var ErrNotFound = errors.New("event not found")

type (
	// Query is what a store can filter natively. Search and aggregator
	// hiding are applied by Directory.
	Query struct {
		domain.Filter
		// OnOrAfter is an inclusive YYYY-MM-DD lower bound on the start date.
		OnOrAfter string
		// Before is an exclusive YYYY-MM-DD upper bound on the start date.
		Before       string
		FeaturedOnly bool
		// Descending orders newest first.
		Descending bool
		// Limit caps the result; zero means no cap.
		Limit int
	}

	Creator interface {
		// CreateEvent stores a Draft event and returns its id. A draft whose
		// fingerprint is already stored returns the existing id.
		CreateEvent(ctx context.Context, d domain.EventDraft) (string, error)
	}

	Store interface {
		Creator
		// QueryEvents returns Published events matching q, ordered by date
		// (ascending unless q.Descending) then id.
		QueryEvents(ctx context.Context, q Query) ([]domain.Event, error)
		// EventByIDSuffix returns the Published event whose compact id ends with suffix.
		EventByIDSuffix(ctx context.Context, suffix string) (domain.Event, error)
	}
)

// day cuts a stored date or datetime down to YYYY-MM-DD.
func day(date string) string {
	if len(date) > len(domain.DateLayout) {
		return date[:len(domain.DateLayout)]
	}
	return date
}
