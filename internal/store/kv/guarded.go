package kv

import (
	"context"
	"errors"

	"coachdesk/internal/pkg/circuit"
)

// Guarded routes every call through a circuit breaker. ErrNotFound does not
// count as a failure.
type Guarded struct {
	inner Store
	cb    *circuit.CircuitBreaker
}

func NewGuarded(inner Store, cb *circuit.CircuitBreaker) *Guarded {
	return &Guarded{inner: inner, cb: cb}
}

func countable(err error) bool {
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
}

func (g *Guarded) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := g.cb.Do(func() error {
		v, err := g.inner.Get(ctx, key)
		out = v
		return err
	}, countable)
	return out, err
}

func (g *Guarded) Set(ctx context.Context, key string, value []byte) error {
	return g.cb.Do(func() error { return g.inner.Set(ctx, key, value) }, countable)
}

func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.cb.Do(func() error { return g.inner.Delete(ctx, key) }, countable)
}

// Breaker exposes the breaker for health reporting.
func (g *Guarded) Breaker() *circuit.CircuitBreaker { return g.cb }
