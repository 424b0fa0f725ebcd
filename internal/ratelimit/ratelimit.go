// Package ratelimit implements a fixed-window request counter keyed by an
// identifier (typically action + client IP).
//
// A window opens on the first request for an identifier and lasts Policy.Window.
// Inside the window at most Policy.MaxRequests checks are admitted; rejected
// checks do not count. Once the window has elapsed the next check opens a new one.
package ratelimit

import (
	"context"
	"time"
)

type (
	Policy struct {
		MaxRequests int
		Window      time.Duration
	}

	Result struct {
		Allowed   bool
		Remaining int
		ResetIn   time.Duration
	}

	// Store owns the identifier -> entry registry.
	Store interface {
		Hit(ctx context.Context, identifier string, p Policy) (Result, error)
	}
)

// RetryAfterSeconds rounds ResetIn up to whole seconds, never below one.
func (r Result) RetryAfterSeconds() int {
	s := int((r.ResetIn + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// decide is the fixed-window step shared by the in-memory store and its tests.
// It returns the updated entry and whether it must be written back.
func decide(e entry, exists bool, now time.Time, p Policy) (entry, Result, bool) {
	if !exists || now.Sub(e.windowStart) > p.Window {
		return entry{count: 1, windowStart: now}, Result{
			Allowed:   true,
			Remaining: p.MaxRequests - 1,
			ResetIn:   p.Window,
		}, true
	}

	resetIn := p.Window - now.Sub(e.windowStart)
	if e.count >= p.MaxRequests {
		return e, Result{Allowed: false, Remaining: 0, ResetIn: resetIn}, false
	}

	e.count++
	return e, Result{
		Allowed:   true,
		Remaining: p.MaxRequests - e.count,
		ResetIn:   resetIn,
	}, true
}
