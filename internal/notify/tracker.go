package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/store"
)

// ReadSet is the set of notification read keys a user has acknowledged.
type ReadSet map[string]struct{}

// Has reports whether key has been acknowledged.
func (s ReadSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Tracker persists per-user read state in the shared store.
type Tracker struct {
	store  store.Store
	logger *zap.Logger
}

// NewTracker creates a Tracker over s.
func NewTracker(s store.Store, logger *zap.Logger) *Tracker {
	return &Tracker{store: s, logger: logger}
}

// MarkAllRead replaces the user's read set with keys.
func (t *Tracker) MarkAllRead(ctx context.Context, email string, keys []string) error {
	if email == "" {
		return errors.New("marking notifications read: empty email")
	}
	if keys == nil {
		keys = []string{}
	}

	value, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encoding read set: %w", err)
	}
	if err := t.store.Set(ctx, store.ReadStateKey(email), string(value)); err != nil {
		return fmt.Errorf("saving read set: %w", err)
	}
	return nil
}

// ReadSet returns the user's acknowledged keys. Absent or malformed state
// reads as empty.
func (t *Tracker) ReadSet(ctx context.Context, email string) ReadSet {
	set := ReadSet{}
	key := store.ReadStateKey(email)

	value, ok, err := t.store.Get(ctx, key)
	if err != nil {
		t.logger.Warn("read state unavailable, treating as empty",
			zap.String("key", key), zap.Error(&store.ReadError{Key: key, Err: err}))
		return set
	}
	if !ok || strings.TrimSpace(value) == "" {
		return set
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(value), &elems); err != nil {
		t.logger.Warn("read state unreadable, treating as empty",
			zap.String("key", key), zap.Error(&store.ReadError{Key: key, Err: err}))
		return set
	}
	for _, elem := range elems {
		var v any
		if json.Unmarshal(elem, &v) != nil {
			continue
		}
		switch v := v.(type) {
		case string:
			set[v] = struct{}{}
		case float64:
			// Older clients stored numeric ids.
			set[strconv.FormatFloat(v, 'f', -1, 64)] = struct{}{}
		}
	}
	return set
}

// IsUnread reports whether key is missing from the user's read set.
func (t *Tracker) IsUnread(ctx context.Context, email, key string) bool {
	return !t.ReadSet(ctx, email).Has(key)
}

// Reset forgets everything the user has acknowledged.
func (t *Tracker) Reset(ctx context.Context, email string) error {
	err := t.store.Delete(ctx, store.ReadStateKey(email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("resetting read set: %w", err)
	}
	return nil
}

// ReadKeys returns the read key of every notification.
func ReadKeys(ns []model.Notification) []string {
	keys := make([]string, len(ns))
	for i, n := range ns {
		keys[i] = n.ReadKey()
	}
	return keys
}

// UnreadCount counts released records whose release has not been
// acknowledged.
func UnreadCount(records []model.ActivityRecord, read ReadSet) int {
	count := 0
	for _, r := range records {
		if r.ScoreReleased && !read.Has(model.ReadKey(r.ID, true)) {
			count++
		}
	}
	return count
}
