// Package botscreen holds cheap heuristics that flag automated submissions.
// Callers are expected to drop flagged submissions silently.
package botscreen

import (
	"regexp"
	"strings"
	"time"

	"example.com/aievents/internal/domain"
)

type Reason string

const (
	ReasonHoneypot   Reason = "honeypot"
	ReasonTooFast    Reason = "too-fast"
	ReasonContent    Reason = "suspicious-content"
	ReasonBlockedTLD Reason = "blocked-tld"
)

const (
	// MinFillTime is the shortest plausible time between rendering the form and posting it.
	MinFillTime = 3 * time.Second
	// MaxRepeatRun is the longest run of one character tolerated in free text.
	MaxRepeatRun = 10
)

var (
	markupLink  = regexp.MustCompile(`(?i)\[(url|link)[=\]]`)
	anchorTag   = regexp.MustCompile(`(?i)<a\s+[^>]*href`)
	spamKeyword = regexp.MustCompile(`(?i)\b(viagra|cialis|casino|porn|crypto giveaway|payday loan|free money|click here)\b`)

	blockedTLDs = []string{".tk", ".ml", ".ga", ".cf", ".gq"}
)

// Screen runs the honeypot, timing and content checks in that order and
// returns the first reason that matches.
func Screen(s *domain.Submission, now time.Time) (Reason, bool) {
	if s.Website != "" {
		return ReasonHoneypot, true
	}

	if s.FormLoadedAt != nil {
		elapsed := now.Sub(time.UnixMilli(*s.FormLoadedAt))
		if elapsed < MinFillTime {
			return ReasonTooFast, true
		}
	}

	if SuspiciousText(s.Name + " " + s.Description + " " + s.Organizer) {
		return ReasonContent, true
	}

	return "", false
}

// SuspiciousText reports link markup, anchors, spam keywords or long character runs.
func SuspiciousText(text string) bool {
	return markupLink.MatchString(text) ||
		anchorTag.MatchString(text) ||
		spamKeyword.MatchString(text) ||
		longestRun(text) > MaxRepeatRun
}

// longestRun counts identical consecutive runes. RE2 has no backreferences,
// so this cannot be a regexp.
func longestRun(text string) int {
	var (
		best, run int
		prev      rune = -1
	)
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// CheckTLD flags hosts under low-trust top-level domains.
func CheckTLD(host string) (Reason, bool) {
	h := strings.TrimSuffix(strings.ToLower(host), ".")
	for _, tld := range blockedTLDs {
		if strings.HasSuffix(h, tld) {
			return ReasonBlockedTLD, true
		}
	}
	return "", false
}
