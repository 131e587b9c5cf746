// Package session keeps the signed-in user in the system keyring.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"

	"github.com/nhle/quiz-ledger/internal/model"
)

// userKey is the keyring entry holding the current user.
const userKey = "quizAppUser"

// ErrMissingIdentity is returned when no user is signed in. Surfaces turn it
// into a redirect to the login view.
var ErrMissingIdentity = errors.New("no signed-in user")

// IsMissingIdentity reports whether err (or any error in its chain) is
// ErrMissingIdentity.
func IsMissingIdentity(err error) bool {
	return errors.Is(err, ErrMissingIdentity)
}

// Open returns the keyring configured by cfg.
func Open(cfg model.SessionConfig) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: cfg.Service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(cfg.Service + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Session reads and writes the current user.
type Session struct {
	ring keyring.Keyring
}

// New creates a Session over ring.
func New(ring keyring.Keyring) *Session {
	return &Session{ring: ring}
}

// Current returns the signed-in user or ErrMissingIdentity.
func (s *Session) Current() (model.User, error) {
	item, err := s.ring.Get(userKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return model.User{}, ErrMissingIdentity
	}
	if err != nil {
		return model.User{}, fmt.Errorf("getting %s: %w", userKey, err)
	}

	var u model.User
	if err := json.Unmarshal(item.Data, &u); err != nil || u.Email == "" {
		return model.User{}, ErrMissingIdentity
	}
	return u, nil
}

// SignIn stores u as the current user.
func (s *Session) SignIn(u model.User) error {
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" {
		return fmt.Errorf("signing in: %w", ErrMissingIdentity)
	}
	if u.Role == "" {
		u.Role = model.RoleStudent
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	err = s.ring.Set(keyring.Item{
		Key:   userKey,
		Data:  data,
		Label: "Quiz ledger user",
	})
	if err != nil {
		return fmt.Errorf("setting %s: %w", userKey, err)
	}
	return nil
}

// SignOut forgets the current user. Signing out twice is not an error.
func (s *Session) SignOut() error {
	err := s.ring.Remove(userKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting %s: %w", userKey, err)
	}
	return nil
}
