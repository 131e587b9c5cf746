package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/notify"
	"github.com/nhle/quiz-ledger/internal/reltime"
	"github.com/nhle/quiz-ledger/tests/testutil"
)

const testSecret = "test-secret"

var (
	now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	ana = model.User{Name: "Ana", Email: "ana@example.com", Role: model.RoleStudent}
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestServer(t *testing.T) (*Server, *ledger.Ledger) {
	t.Helper()

	s := testutil.NewTestStore(t)
	logger := testutil.NewTestLogger(t)
	l := ledger.New(s, logger,
		ledger.WithClock(func() time.Time { return now }),
		ledger.WithHashCost(bcrypt.MinCost))
	svc := notify.NewService(l, notify.NewTracker(s, logger), reltime.New("en-US"), logger)

	srv, err := NewServer(model.ServerConfig{Addr: ":0", JWTSecret: testSecret, TokenTTL: time.Hour}, l, svc, logger)
	require.NoError(t, err)
	return srv, l
}

func do(t *testing.T, srv *Server, method, path string, u *model.User, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		token, err := GenerateToken(testSecret, *u, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestNewServer_RequiresSecret(t *testing.T) {
	_, err := NewServer(model.ServerConfig{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := do(t, srv, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_MissingOrInvalidTokenRedirectsToLogin(t *testing.T) {
	srv, _ := setupTestServer(t)

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		body := decode[map[string]string](t, w)
		assert.Equal(t, LoginPath, body["redirect"])
	}
}

func TestAuth_TokenSignedWithOtherSecret(t *testing.T) {
	srv, _ := setupTestServer(t)

	token, err := GenerateToken("other-secret", ana, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin(t *testing.T) {
	srv, l := setupTestServer(t)
	_, err := l.RegisterUser(context.Background(), ledger.NewUser{
		Name: "Ana", Email: ana.Email, Role: model.RoleStudent, Password: "secret1",
	})
	require.NoError(t, err)

	w := do(t, srv, http.MethodPost, "/api/v1/login", nil, gin.H{"email": ana.Email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[loginResponse](t, w)
	assert.Equal(t, ana, resp.User)

	claims, err := ParseToken(testSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, ana, claims.User())

	w = do(t, srv, http.MethodPost, "/api/v1/login", nil, gin.H{"email": ana.Email, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/login", nil, gin.H{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotifications_FeedAndOpen(t *testing.T) {
	srv, l := setupTestServer(t)
	ctx := context.Background()

	released, err := l.Submit(ctx, ledger.Submission{StudentEmail: ana.Email, QuizTitle: "Algebra"})
	require.NoError(t, err)
	_, err = l.Submit(ctx, ledger.Submission{StudentEmail: ana.Email, QuizTitle: "Biology"})
	require.NoError(t, err)
	_, err = l.Submit(ctx, ledger.Submission{StudentEmail: "ben@example.com", QuizTitle: "Chemistry"})
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, ledger.Release{ID: released.ID, Score: 8, Total: 10}))

	w := do(t, srv, http.MethodGet, "/api/v1/notifications", &ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := decode[feedResponse](t, w)
	assert.Len(t, feed.Notifications, 2)
	assert.Equal(t, model.Summary{Total: 2, Released: 1, Pending: 1}, feed.Summary)
	assert.Equal(t, 1, feed.Unread)
	assert.Equal(t, "1", feed.Badge)

	w = do(t, srv, http.MethodGet, "/api/v1/notifications/unread-count", &ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread":1,"badge":"1"}`, w.Body.String())

	w = do(t, srv, http.MethodPost, "/api/v1/notifications/open", &ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed = decode[feedResponse](t, w)
	assert.Zero(t, feed.Unread)
	for _, n := range feed.Notifications {
		assert.False(t, n.Unread)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/notifications/unread-count", &ana, nil)
	assert.JSONEq(t, `{"unread":0,"badge":""}`, w.Body.String())
}

func TestNotifications_MarkAllRead(t *testing.T) {
	srv, l := setupTestServer(t)
	ctx := context.Background()

	rec, err := l.Submit(ctx, ledger.Submission{StudentEmail: ana.Email, QuizTitle: "Algebra"})
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, ledger.Release{ID: rec.ID, Score: 1, Total: 2}))

	w := do(t, srv, http.MethodPut, "/api/v1/notifications/read-all", &ana, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/notifications/unread-count", &ana, nil)
	assert.JSONEq(t, `{"unread":0,"badge":""}`, w.Body.String())
}

func TestNotifications_Target(t *testing.T) {
	srv, l := setupTestServer(t)
	ctx := context.Background()

	released, err := l.Submit(ctx, ledger.Submission{StudentEmail: ana.Email, QuizTitle: "Algebra"})
	require.NoError(t, err)
	pending, err := l.Submit(ctx, ledger.Submission{StudentEmail: ana.Email, QuizTitle: "Biology"})
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, ledger.Release{ID: released.ID, Score: 1, Total: 1}))

	w := do(t, srv, http.MethodGet, "/api/v1/notifications/"+released.ID+"/target", &ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, notify.Target{Path: notify.ResultsPath, ID: released.ID}, decode[notify.Target](t, w))

	w = do(t, srv, http.MethodGet, "/api/v1/notifications/"+pending.ID+"/target", &ana, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	ben := model.User{Email: "ben@example.com", Role: model.RoleStudent}
	w = do(t, srv, http.MethodGet, "/api/v1/notifications/"+released.ID+"/target", &ben, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResults(t *testing.T) {
	srv, l := setupTestServer(t)
	ctx := context.Background()

	rec, err := l.Submit(ctx, ledger.Submission{
		StudentEmail: ana.Email, QuizTitle: "Algebra",
		AutoSubmitted: true, SubmitReason: model.SubmitReasonTabSwitch, TabSwitchViolations: 3,
	})
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, ledger.Release{ID: rec.ID, Score: 6, Total: 8}))

	w := do(t, srv, http.MethodGet, "/api/v1/results", &ana, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		Rows []struct {
			Status string `json:"status"`
			Score  string `json:"score"`
		} `json:"rows"`
		Summary model.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "Auto-Submitted", report.Rows[0].Status)
	assert.Equal(t, "6/8 (75%)", report.Rows[0].Score)
	assert.Equal(t, model.Summary{Total: 1, Released: 1}, report.Summary)
}

func TestEmptyFeed(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/notifications", &ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := decode[feedResponse](t, w)
	assert.Empty(t, feed.Notifications)
	assert.Equal(t, model.Summary{}, feed.Summary)
}
