package ledger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/store"
)

var (
	// ErrInvalidSubmission is returned when a producer omits required fields.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrRecordNotFound is returned when no stored record matches an id.
	ErrRecordNotFound = errors.New("activity record not found")

	// ErrAlreadyReleased is returned when a released score is released again.
	ErrAlreadyReleased = errors.New("score already released")

	// ErrInvalidScore is returned for malformed releases such as negative
	// scores or totals.
	ErrInvalidScore = errors.New("invalid score")

	// ErrInvalidUser is returned when a registration omits required fields.
	ErrInvalidUser = errors.New("invalid user")

	// ErrInvalidCredentials is returned when a login does not match any
	// directory entry.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserExists is returned when an email is registered twice for a role.
	ErrUserExists = errors.New("user already registered for this role")
)

// Snapshot is the full content of the shared store at one instant.
type Snapshot struct {
	Activities []RawActivity
	Directory  []model.DirectoryUser
	Now        time.Time
}

// For returns the normalized records owned by studentEmail.
func (s Snapshot) For(studentEmail string) []model.ActivityRecord {
	return Normalize(s.Activities, studentEmail, s.Now)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the wall clock used for defaults and snapshots.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(l *Ledger) {
		l.hashCost = cost
	}
}

// Ledger reads and appends to the shared activity log.
type Ledger struct {
	store    store.Store
	logger   *zap.Logger
	now      func() time.Time
	hashCost int
}

// New creates a Ledger over s.
func New(s store.Store, logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:    s,
		logger:   logger,
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Load reads the activity log and the user directory afresh. It never
// fails: unreadable values are logged and read as empty.
func (l *Ledger) Load(ctx context.Context) Snapshot {
	snap := Snapshot{Now: l.now()}

	if value, ok := l.read(ctx, store.ActivitiesKey); ok {
		records, skipped, err := Decode(value)
		if err != nil {
			l.logger.Warn("activity log unreadable, treating as empty",
				zap.String("key", store.ActivitiesKey), zap.Error(err))
		}
		if skipped > 0 {
			l.logger.Warn("skipped malformed activity records",
				zap.String("key", store.ActivitiesKey), zap.Int("skipped", skipped))
		}
		snap.Activities = records
	}

	if value, ok := l.read(ctx, store.UsersKey); ok {
		users, _, err := DecodeUsers(value)
		if err != nil {
			l.logger.Warn("user directory unreadable, treating as empty",
				zap.String("key", store.UsersKey), zap.Error(err))
		}
		snap.Directory = users
	}

	return snap
}

// read fetches key, reporting false for absent keys and store failures.
func (l *Ledger) read(ctx context.Context, key string) (string, bool) {
	value, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("store read failed, treating as empty",
			zap.String("key", key), zap.Error(&store.ReadError{Key: key, Err: err}))
		return "", false
	}
	return value, ok
}

// Submission is what the quiz-taking flow reports when an attempt ends.
type Submission struct {
	StudentEmail        string             `json:"studentEmail" validate:"notblank"`
	QuizTitle           string             `json:"quizTitle" validate:"notblank"`
	TabSwitchViolations int                `json:"tabSwitchViolations" validate:"min=0"`
	AutoSubmitted       bool               `json:"autoSubmitted"`
	SubmitReason        model.SubmitReason `json:"submitReason" validate:"omitempty,oneof=tab-switch time-limit"`

	// SubmittedAt defaults to the ledger clock.
	SubmittedAt time.Time `json:"-"`
}

// Submit appends a submission to the log with a fresh stable id.
func (l *Ledger) Submit(ctx context.Context, sub Submission) (model.ActivityRecord, error) {
	if err := check(sub, ErrInvalidSubmission); err != nil {
		return model.ActivityRecord{}, err
	}

	at := sub.SubmittedAt
	if at.IsZero() {
		at = l.now()
	}
	violations := sub.TabSwitchViolations

	rec := model.ActivityRecord{
		ID:                  uuid.New().String(),
		StudentEmail:        sub.StudentEmail,
		QuizTitle:           sub.QuizTitle,
		Date:                at.UTC().Truncate(time.Millisecond),
		TabSwitchViolations: &violations,
		AutoSubmitted:       sub.AutoSubmitted,
		SubmitReason:        sub.SubmitReason,
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return model.ActivityRecord{}, fmt.Errorf("encoding activity %s: %w", rec.ID, err)
	}

	err = l.store.Update(ctx, store.ActivitiesKey, func(old string, ok bool) (string, error) {
		elems, err := existingElements(store.ActivitiesKey, old, ok)
		if err != nil {
			return "", err
		}
		return encodeElements(append(elems, encoded))
	})
	if err != nil {
		return model.ActivityRecord{}, fmt.Errorf("appending activity: %w", err)
	}

	rec.RawDate = rec.Date.Format(time.RFC3339Nano)
	l.logger.Info("activity submitted",
		zap.String("id", rec.ID),
		zap.String("student", rec.StudentEmail),
		zap.Bool("auto_submitted", rec.AutoSubmitted))

	return rec, nil
}

// Release is the instructor's decision on one submission.
type Release struct {
	// ID is the record id. A positional notif_<n> id also matches when
	// StudentEmail is set; the record is then stamped with that id.
	ID           string `json:"id" validate:"notblank"`
	StudentEmail string `json:"studentEmail"`
	Score        int    `json:"score" validate:"min=0"`
	Total        int    `json:"total" validate:"min=0"`
	GradedBy     string `json:"gradedBy"`
}

// Release flips scoreReleased from false to true and sets score, total and
// grader in the same write.
func (l *Ledger) Release(ctx context.Context, rel Release) error {
	if err := check(rel, ErrInvalidScore); err != nil {
		return err
	}

	err := l.store.Update(ctx, store.ActivitiesKey, func(old string, ok bool) (string, error) {
		elems, err := existingElements(store.ActivitiesKey, old, ok)
		if err != nil {
			return "", err
		}

		idx, fields := findRecord(elems, rel.ID, rel.StudentEmail)
		if idx < 0 {
			return "", fmt.Errorf("%w: %s", ErrRecordNotFound, rel.ID)
		}
		if rawTrue(fields["scoreReleased"]) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyReleased, rel.ID)
		}

		fields["id"] = mustMarshal(rel.ID)
		fields["scoreReleased"] = json.RawMessage("true")
		fields["score"] = mustMarshal(rel.Score)
		fields["total"] = mustMarshal(rel.Total)
		if rel.GradedBy != "" {
			fields["gradedBy"] = mustMarshal(rel.GradedBy)
		}

		updated, err := json.Marshal(fields)
		if err != nil {
			return "", fmt.Errorf("encoding activity %s: %w", rel.ID, err)
		}
		elems[idx] = updated
		return encodeElements(elems)
	})
	if err != nil {
		return fmt.Errorf("releasing score: %w", err)
	}

	l.logger.Info("score released",
		zap.String("id", rel.ID),
		zap.Int("score", rel.Score),
		zap.Int("total", rel.Total),
		zap.String("graded_by", rel.GradedBy))

	return nil
}

// NewUser is a directory registration.
type NewUser struct {
	Name     string     `json:"name" validate:"notblank"`
	Email    string     `json:"email" validate:"required,email"`
	Role     model.Role `json:"role" validate:"oneof=student instructor"`
	Password string     `json:"password" validate:"required,min=6"`
}

// RegisterUser adds an entry to the shared user directory. Only a bcrypt
// hash of the password is stored.
func (l *Ledger) RegisterUser(ctx context.Context, nu NewUser) (model.DirectoryUser, error) {
	if err := check(nu, ErrInvalidUser); err != nil {
		return model.DirectoryUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), l.hashCost)
	if err != nil {
		return model.DirectoryUser{}, fmt.Errorf("hashing password: %w", err)
	}

	u := model.DirectoryUser{Name: strings.TrimSpace(nu.Name), Email: nu.Email, Role: nu.Role}
	encoded, err := json.Marshal(storedUser{DirectoryUser: u, PasswordHash: string(hash)})
	if err != nil {
		return model.DirectoryUser{}, fmt.Errorf("encoding user %s: %w", u.Email, err)
	}

	err = l.store.Update(ctx, store.UsersKey, func(old string, ok bool) (string, error) {
		elems, err := existingElements(store.UsersKey, old, ok)
		if err != nil {
			return "", err
		}
		if _, found := findUser(elems, u.Email, u.Role); found {
			return "", fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return encodeElements(append(elems, encoded))
	})
	if err != nil {
		return model.DirectoryUser{}, fmt.Errorf("registering user: %w", err)
	}

	l.logger.Info("user registered", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	return u, nil
}

// Authenticate checks a password against the directory entry for email in
// role. Entries written by older clients carry the password in clear text.
func (l *Ledger) Authenticate(ctx context.Context, email, password string, role model.Role) (model.User, error) {
	value, ok := l.read(ctx, store.UsersKey)
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}
	elems, err := decodeArray(store.UsersKey, value)
	if err != nil {
		l.logger.Warn("user directory unreadable", zap.String("key", store.UsersKey), zap.Error(err))
		return model.User{}, ErrInvalidCredentials
	}

	fields, found := findUser(elems, email, role)
	if !found {
		return model.User{}, ErrInvalidCredentials
	}

	if hash := rawString(fields["passwordHash"]); hash != "" {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			return model.User{}, ErrInvalidCredentials
		}
	} else {
		legacy := rawString(fields["password"])
		if legacy == "" || subtle.ConstantTimeCompare([]byte(legacy), []byte(password)) != 1 {
			return model.User{}, ErrInvalidCredentials
		}
	}

	return model.User{Name: rawString(fields["name"]), Email: email, Role: role}, nil
}

// storedUser is the directory entry as written to the store.
type storedUser struct {
	model.DirectoryUser
	PasswordHash string `json:"passwordHash"`
}

func findUser(elems []json.RawMessage, email string, role model.Role) (map[string]json.RawMessage, bool) {
	for _, elem := range elems {
		var fields map[string]json.RawMessage
		if json.Unmarshal(elem, &fields) != nil || fields == nil {
			continue
		}
		if rawString(fields["email"]) == email && model.Role(rawString(fields["role"])) == role {
			return fields, true
		}
	}
	return nil, false
}

// existingElements returns the current array elements of key. Writers
// refuse to replace an unreadable value rather than discard it.
func existingElements(key, old string, ok bool) ([]json.RawMessage, error) {
	if !ok {
		return nil, nil
	}
	return decodeArray(key, old)
}

func encodeElements(elems []json.RawMessage) (string, error) {
	if elems == nil {
		elems = []json.RawMessage{}
	}
	out, err := json.Marshal(elems)
	if err != nil {
		return "", fmt.Errorf("encoding array: %w", err)
	}
	return string(out), nil
}

// findRecord locates a record by explicit id, or by positional fallback id
// among studentEmail's records.
func findRecord(elems []json.RawMessage, id, studentEmail string) (int, map[string]json.RawMessage) {
	position := 0
	for i, elem := range elems {
		var fields map[string]json.RawMessage
		if json.Unmarshal(elem, &fields) != nil || fields == nil {
			continue
		}

		recordID := rawString(fields["id"])
		if recordID != "" && recordID == id {
			return i, fields
		}

		if studentEmail == "" || rawString(fields["studentEmail"]) != studentEmail {
			continue
		}
		if recordID == "" && fallbackID(position) == id {
			return i, fields
		}
		position++
	}
	return -1, nil
}

func mustMarshal(v any) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return out
}
