package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/quiz-ledger/internal/model"
)

// newRedisStore connects to QUIZLEDGER_TEST_REDIS_ADDR or skips the test.
func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("QUIZLEDGER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QUIZLEDGER_TEST_REDIS_ADDR not set")
	}

	s, err := NewRedisStore(model.RedisConfig{Addr: addr, Prefix: "quizledger-test:" + t.Name() + ":"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, ActivitiesKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Update(ctx, ActivitiesKey, func(old string, ok bool) (string, error) {
		assert.False(t, ok)
		return "[]", nil
	}))

	value, ok, err := s.Get(ctx, ActivitiesKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", value)

	require.NoError(t, s.Delete(ctx, ActivitiesKey))
	assert.ErrorIs(t, s.Delete(ctx, ActivitiesKey), ErrNotFound)
}
