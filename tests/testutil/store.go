package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/quiz-ledger/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestLogger returns a logger that writes through t.Log.
func NewTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
}

// Seed stores v under key. Strings are stored verbatim; anything else is
// encoded as JSON first.
func Seed(t *testing.T, s store.Store, key string, v any) {
	t.Helper()

	value, ok := v.(string)
	if !ok {
		out, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("encoding seed for %s: %v", key, err)
		}
		value = string(out)
	}

	if err := s.Set(context.Background(), key, value); err != nil {
		t.Fatalf("seeding %s: %v", key, err)
	}
}

// Raw returns the stored value of key, failing the test when it is absent.
func Raw(t *testing.T, s store.Store, key string) string {
	t.Helper()

	value, ok, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("reading %s: %v", key, err)
	}
	if !ok {
		t.Fatalf("key %s not found", key)
	}
	return value
}
