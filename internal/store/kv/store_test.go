package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"coachdesk/internal/pkg/circuit"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "alerts:u1", []byte(`{"version":2}`)))
	got, err := s.Get(ctx, "alerts:u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2}`, string(got))

	require.NoError(t, s.Set(ctx, "alerts:u1", []byte(`{"version":3}`)))
	got, err = s.Get(ctx, "alerts:u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":3}`, string(got))

	require.NoError(t, s.Delete(ctx, "alerts:u1"))
	_, err = s.Get(ctx, "alerts:u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)

	buf := []byte("abc")
	require.NoError(t, m.Set(context.Background(), "k", buf))
	buf[0] = 'z'
	got, _ := m.Get(context.Background(), "k")
	assert.Equal(t, "abc", string(got), "stored value must not alias caller buffer")
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "state", "kv.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteRequiresPath(t *testing.T) {
	_, err := NewSQLite("  ")
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	client, rmock := redismock.NewClientMock()
	s := NewRedisFromClient(client, "coachdesk:", time.Hour)
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		rmock.ExpectGet("coachdesk:alerts:u1").SetVal(`{"version":2}`)
		got, err := s.Get(ctx, "alerts:u1")
		require.NoError(t, err)
		assert.Equal(t, `{"version":2}`, string(got))
	})

	t.Run("miss", func(t *testing.T) {
		rmock.ExpectGet("coachdesk:alerts:u2").RedisNil()
		_, err := s.Get(ctx, "alerts:u2")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("error", func(t *testing.T) {
		rmock.ExpectGet("coachdesk:alerts:u3").SetErr(redis.TxFailedErr)
		_, err := s.Get(ctx, "alerts:u3")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("set and delete", func(t *testing.T) {
		payload := []byte(`{"version":2,"records":{}}`)
		rmock.ExpectSet("coachdesk:alerts:u1", payload, time.Hour).SetVal("OK")
		require.NoError(t, s.Set(ctx, "alerts:u1", payload))
		rmock.ExpectDel("coachdesk:alerts:u1").SetVal(1)
		require.NoError(t, s.Delete(ctx, "alerts:u1"))
	})

	assert.NoError(t, rmock.ExpectationsWereMet())
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	v, _ := args.Get(0).([]byte)
	return v, args.Error(1)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func TestGuardedOpensOnRepeatedFailures(t *testing.T) {
	inner := &mockStore{}
	boom := errors.New("disk full")
	inner.On("Set", mock.Anything, "k", mock.Anything).Return(boom).Times(2)
	inner.On("Get", mock.Anything, "missing").Return(nil, ErrNotFound)

	g := NewGuarded(inner, circuit.NewCircuitBreaker("kv-test", 2, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, circuit.StateClosed, g.Breaker().State())

	assert.ErrorIs(t, g.Set(ctx, "k", []byte("v")), boom)
	assert.ErrorIs(t, g.Set(ctx, "k", []byte("v")), boom)
	assert.ErrorIs(t, g.Set(ctx, "k", []byte("v")), circuit.ErrOpen)
	inner.AssertNumberOfCalls(t, "Set", 2)
}
