package domain

import "time"

// AuditRecord is the server-side trace of a submission that was not accepted.
// It is the only place where disguised rejections are observable.
type AuditRecord struct {
	At          time.Time
	Outcome     string
	Reason      string
	ClientIP    string
	Fingerprint string
	EventName   string
	EventURL    string
}
