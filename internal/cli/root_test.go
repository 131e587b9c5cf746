package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/quiz-ledger/internal/api"
	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/session"
	"github.com/nhle/quiz-ledger/internal/store"
	"github.com/nhle/quiz-ledger/tests/testutil"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) (*Env, store.Store, *session.Session) {
	t.Helper()

	s := testutil.NewTestStore(t)
	cfg := &model.AppConfig{
		Display: model.DisplayConfig{Locale: "en-US"},
		Server:  model.ServerConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
		Digest:  model.DigestConfig{From: "notifications@quizmaster.com"},
	}
	sess := session.New(keyring.NewArrayKeyring(nil))
	env := NewEnv(cfg, s, testutil.NewTestLogger(t), sess,
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithHashCost(bcrypt.MinCost))
	return env, s, sess
}

// seedCourse stores two records for ana, one for ben and a one-instructor
// directory.
func seedCourse(t *testing.T, s store.Store) {
	t.Helper()

	testutil.Seed(t, s, store.UsersKey, []map[string]any{
		{"name": "Dr. Ada", "email": "ada@example.com", "role": "instructor"},
	})
	testutil.Seed(t, s, store.ActivitiesKey, []map[string]any{
		{"id": "r1", "studentEmail": "ana@example.com", "quizTitle": "Algebra",
			"date": "2026-10-15T10:00:00Z", "scoreReleased": true, "score": 8, "total": 10,
			"gradedBy": "ada@example.com"},
		{"id": "b1", "studentEmail": "ben@example.com", "quizTitle": "Chemistry",
			"date": "2026-10-15T11:00:00Z"},
		{"id": "r2", "studentEmail": "ana@example.com", "quizTitle": "Biology",
			"date": "2026-10-15T11:30:00Z", "autoSubmitted": true, "submitReason": "time-limit"},
	})
}

func run(t *testing.T, env *Env, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand(func(string) (*Env, error) { return env, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "quizledger", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"tui", "serve", "token", "notifications", "unread", "results",
		"submit", "release", "register", "digest", "login", "logout"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("user"))
}

func TestInvalidFormat(t *testing.T) {
	env, _, _ := newTestEnv(t)

	_, err := run(t, env, "--format", "xml", "unread", "--user", "ana@example.com")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNotifications_Golden(t *testing.T) {
	env, s, _ := newTestEnv(t)
	seedCourse(t, s)

	out, err := run(t, env, "notifications", "--user", "ana@example.com")
	require.NoError(t, err)
	golden(t).Assert(t, "notifications", []byte(out))
}

func TestNotifications_OpenMarksRead(t *testing.T) {
	env, s, _ := newTestEnv(t)
	seedCourse(t, s)

	out, err := run(t, env, "unread", "--user", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = run(t, env, "notifications", "--open", "--user", "ana@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "1 pending review, 0 unread")

	out, err = run(t, env, "unread", "--user", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestNotifications_JSON(t *testing.T) {
	env, s, _ := newTestEnv(t)
	seedCourse(t, s)

	out, err := run(t, env, "--format", "json", "notifications", "--user", "ana@example.com")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   feedOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Notifications, 2)
	assert.Equal(t, "r2", resp.Data.Notifications[0].ID)
	assert.False(t, resp.Data.Notifications[0].Unread)
	assert.Equal(t, "r1", resp.Data.Notifications[1].ID)
	assert.True(t, resp.Data.Notifications[1].Unread)
	assert.Equal(t, model.Summary{Total: 2, Released: 1, Pending: 1}, resp.Data.Summary)
}

func TestNotifications_RequiresIdentity(t *testing.T) {
	env, _, _ := newTestEnv(t)

	_, err := run(t, env, "notifications")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not signed in")
}

func TestNotifications_JSONError(t *testing.T) {
	env, _, _ := newTestEnv(t)

	out, err := run(t, env, "--format", "json", "notifications")
	require.Error(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "not signed in")
}

func TestResults_Golden(t *testing.T) {
	env, s, _ := newTestEnv(t)
	seedCourse(t, s)

	out, err := run(t, env, "results", "--user", "ana@example.com")
	require.NoError(t, err)
	golden(t).Assert(t, "results", []byte(out))
}

func TestSubmitAndRelease(t *testing.T) {
	env, _, sess := newTestEnv(t)
	require.NoError(t, sess.SignIn(model.User{Name: "Ana", Email: "ana@example.com", Role: model.RoleStudent}))

	out, err := run(t, env, "--format", "json", "submit", "Geometry", "--violations", "3", "--reason", "tab-switch")
	require.NoError(t, err)

	var resp struct {
		Data model.ActivityRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	rec := resp.Data
	assert.True(t, rec.AutoSubmitted)
	require.NotEmpty(t, rec.ID)

	out, err = run(t, env, "release", rec.ID, "--score", "7", "--total", "9", "--graded-by", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Released "+rec.ID+": 7/9 (78%)\n", out)

	out, err = run(t, env, "notifications")
	require.NoError(t, err)
	assert.Contains(t, out, "* Score Released: Geometry (Just now)")
}

func TestSubmit_InvalidReason(t *testing.T) {
	env, _, _ := newTestEnv(t)

	_, err := run(t, env, "submit", "Geometry", "--user", "ana@example.com", "--reason", "boredom")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRelease_UnknownRecord(t *testing.T) {
	env, _, _ := newTestEnv(t)

	_, err := run(t, env, "release", "missing", "--score", "1", "--total", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

func TestRegisterLoginLogout(t *testing.T) {
	env, _, sess := newTestEnv(t)

	out, err := run(t, env, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Registered Ana <ana@example.com> as student\n", out)

	_, err = run(t, env, "login", "--email", "ana@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)

	out, err = run(t, env, "login", "--email", "ana@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as Ana <ana@example.com>\n", out)

	u, err := sess.Current()
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	out, err = run(t, env, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)

	_, err = sess.Current()
	assert.True(t, session.IsMissingIdentity(err))
}

func TestRegister_Invalid(t *testing.T) {
	env, _, _ := newTestEnv(t)

	_, err := run(t, env, "register", "--name", "Ana", "--email", "not-an-email", "--password", "secret1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestToken(t *testing.T) {
	env, _, _ := newTestEnv(t)

	out, err := run(t, env, "token", "--user", "ana@example.com")
	require.NoError(t, err)

	claims, err := api.ParseToken(testSecret, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestDigest(t *testing.T) {
	env, s, _ := newTestEnv(t)
	seedCourse(t, s)

	out, err := run(t, env, "digest", "--user", "ana@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: 1 unread notification")
	assert.Contains(t, out, "[new] Score Released: Algebra")

	// A digest is not a visit.
	out, err = run(t, env, "unread", "--user", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}
