package session

import (
	"fmt"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/quiz-ledger/internal/model"
)

func newTestSession() (*Session, keyring.Keyring) {
	ring := keyring.NewArrayKeyring(nil)
	return New(ring), ring
}

func TestCurrent_NoUser(t *testing.T) {
	s, _ := newTestSession()

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrMissingIdentity)
	assert.True(t, IsMissingIdentity(err))
}

func TestSignIn_RoundTrip(t *testing.T) {
	s, _ := newTestSession()

	require.NoError(t, s.SignIn(model.User{Name: "Ana", Email: " ana@x "}))

	u, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, model.User{Name: "Ana", Email: "ana@x", Role: model.RoleStudent}, u)
}

func TestSignIn_RequiresEmail(t *testing.T) {
	s, _ := newTestSession()

	err := s.SignIn(model.User{Name: "Nobody"})
	assert.True(t, IsMissingIdentity(err))
}

func TestSignOut(t *testing.T) {
	s, _ := newTestSession()

	require.NoError(t, s.SignIn(model.User{Email: "ana@x"}))
	require.NoError(t, s.SignOut())

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrMissingIdentity)

	require.NoError(t, s.SignOut())
}

func TestCurrent_CorruptEntryIsMissingIdentity(t *testing.T) {
	s, ring := newTestSession()
	require.NoError(t, ring.Set(keyring.Item{Key: userKey, Data: []byte("{")}))

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestIsMissingIdentity_Wrapped(t *testing.T) {
	assert.True(t, IsMissingIdentity(fmt.Errorf("loading feed: %w", ErrMissingIdentity)))
	assert.False(t, IsMissingIdentity(fmt.Errorf("other")))
}
