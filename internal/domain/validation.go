package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

var ErrInvalidURL = errors.New("invalid event url")

// ValidateRequired reports every missing business field, in form order.
func ValidateRequired(s *Submission) []FieldError {
	var errs []FieldError

	required := []struct {
		field string
		value string
	}{
		{"name", s.Name},
		{"date", s.Date},
		{"city", s.City},
		{"type", s.Type},
		{"organizer", s.Organizer},
		{"url", s.URL},
		{"description", s.Description},
		{"price", s.Price},
		{"language", s.Language},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{r.field, "required"})
		}
	}

	if len(s.Categories) == 0 {
		errs = append(errs, FieldError{"categories", "at least one category required"})
	}

	return errs
}

// ParseEventURL accepts only absolute http(s) URLs with a host.
func ParseEventURL(raw string) (*url.URL, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// FieldNames flattens errors for messages and logs.
func FieldNames(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fe.Field)
	}
	return out
}
