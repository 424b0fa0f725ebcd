package submission

import (
	"errors"
	"strings"

	"example.com/aievents/internal/ratelimit"
)

type Kind uint8

const (
	Accepted Kind = iota
	RateLimited
	SoftRejected
	Invalid
	Failed
)

var kindStr = []string{"accepted", "rate_limited", "soft_rejected", "invalid", "failed"}

func (k Kind) String() string {
	if int(k) < len(kindStr) {
		return kindStr[k]
	}
	return "unknown"
}

// ErrNotJSON is the DecodeErr for bodies not sent as application/json.
var ErrNotJSON = errors.New("content type is not application/json")

const (
	ReasonNotJSON       = "not-json"
	ReasonMalformedBody = "malformed-body"
	ReasonMissingFields = "missing-fields"
	ReasonInvalidURL    = "invalid-url"
)

// Outcome is the internal decision for one submission. SoftRejected and
// Accepted stay distinct here; only the HTTP adapter makes them look alike.
type Outcome struct {
	Kind    Kind
	EventID string
	Reason  string
	Fields  []string
	// Quota is nil when the limiter could not be consulted.
	Quota *ratelimit.Result
	Err   error
}

// Message is the caller-facing text for Invalid outcomes.
func (o Outcome) Message() string {
	switch o.Reason {
	case ReasonMissingFields:
		return "Missing required fields: " + strings.Join(o.Fields, ", ")
	case ReasonInvalidURL:
		return "Invalid event URL"
	case ReasonMalformedBody:
		return "Invalid request body"
	case ReasonNotJSON:
		return "Expected application/json"
	}
	return "Invalid submission"
}
