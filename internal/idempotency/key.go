package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"example.com/aievents/internal/domain"
)

// Fingerprint identifies "the same event submitted twice": name and URL are
// compared case- and whitespace-insensitively, the date by its day.
// It is a hex-encoded SHA-256 so it fits a fixed-width unique column.
func Fingerprint(d *domain.EventDraft) string {
	day := strings.TrimSpace(d.Date)
	if len(day) > len(domain.DateLayout) {
		day = day[:len(domain.DateLayout)]
	}
	composite := strings.Join([]string{
		normalize(d.Name),
		day,
		strings.TrimRight(normalize(d.URL), "/"),
	}, "|")
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
