package ratelimit

import (
	"context"
	"fmt"
)

// Limiter applies one Policy to one namespace ("event-submit", ...).
type Limiter struct {
	store     Store
	namespace string
	policy    Policy
}

func NewLimiter(store Store, namespace string, p Policy) *Limiter {
	return &Limiter{store: store, namespace: namespace, policy: p}
}

func (l *Limiter) Policy() Policy { return l.policy }

// Identifier composes the registry key for a client.
func (l *Limiter) Identifier(client string) string {
	return l.namespace + ":" + client
}

func (l *Limiter) Check(ctx context.Context, client string) (Result, error) {
	id := l.Identifier(client)
	res, err := l.store.Hit(ctx, id, l.policy)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check %q: %w", id, err)
	}
	return res, nil
}
