package store

import (
	"context"
	"errors"
	"fmt"
)

// Keys shared with every producer and consumer of the ledger.
const (
	// ActivitiesKey holds the JSON array of quiz submission records.
	ActivitiesKey = "quizActivities"

	// UsersKey holds the JSON array of directory users.
	UsersKey = "quizAppUsers"

	readStatePrefix    = "notifications_read_"
	profileImagePrefix = "profileImage_"
)

// ReadStateKey returns the key of the acknowledged-notification set for email.
func ReadStateKey(email string) string {
	return readStatePrefix + email
}

// ProfileImageKey returns the key of a user's profile image. The ledger never
// reads it; it is listed so key namespaces stay disjoint.
func ProfileImageKey(email string) string {
	return profileImagePrefix + email
}

// ErrNotFound is returned by Delete when the key does not exist.
var ErrNotFound = errors.New("key not found")

// ReadError reports a stored value that is absent or cannot be decoded.
// Read paths recover it as an empty collection.
type ReadError struct {
	Key string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Key, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsReadError reports whether err (or any error in its chain) is a ReadError.
func IsReadError(err error) bool {
	var readErr *ReadError
	return errors.As(err, &readErr)
}

// UpdateFunc receives the current value of a key and returns its replacement.
// Returning an error aborts the update and leaves the key untouched.
type UpdateFunc func(old string, ok bool) (string, error)

// Store is a keyed, string-valued durable store shared by every principal.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Update atomically replaces the value of key with fn's result.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Close releases the underlying connection.
	Close() error
}
