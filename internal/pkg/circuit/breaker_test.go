package circuit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("kv", 2, time.Second)
	cb.SetClock(func() time.Time { return now })

	fail := func() error { return errBoom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Do(fail, nil), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Do(fail, nil), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Do(ok, nil), ErrOpen)

	now = now.Add(2 * time.Second)
	assert.NoError(t, cb.Do(ok, nil))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("kv", 1, time.Second)
	cb.SetClock(func() time.Time { return now })

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	now = now.Add(1500 * time.Millisecond)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerIgnoresUncountedErrors(t *testing.T) {
	notFound := errors.New("not found")
	cb := NewCircuitBreaker("kv", 1, time.Minute)
	err := cb.Do(func() error { return notFound }, func(err error) bool { return !errors.Is(err, notFound) })
	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "HALF-OPEN", StateHalfOpen.String())
}
