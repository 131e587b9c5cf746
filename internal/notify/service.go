package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/model"
)

// Feed is a student's derived notification list with its counts.
type Feed struct {
	Notifications []model.Notification `json:"notifications"`
	Summary       model.Summary        `json:"summary"`
	Unread        int                  `json:"unread"`

	// Read is the read set the feed was derived against.
	Read ReadSet `json:"-"`
}

// IsUnread reports whether n counts towards the feed's unread badge.
func (f Feed) IsUnread(n model.Notification) bool {
	return n.IsReleased && !f.Read.Has(n.ReadKey())
}

// Service answers notification queries for one student at a time. Every
// call re-reads the ledger.
type Service struct {
	ledger    *ledger.Ledger
	tracker   *Tracker
	formatter TimeFormatter
	logger    *zap.Logger
}

// NewService wires a Service.
func NewService(l *ledger.Ledger, t *Tracker, f TimeFormatter, logger *zap.Logger) *Service {
	return &Service{ledger: l, tracker: t, formatter: f, logger: logger}
}

// Notifications derives the feed without touching read state.
func (s *Service) Notifications(ctx context.Context, email string) Feed {
	snap := s.ledger.Load(ctx)
	records := snap.For(email)
	ns := Derive(records, snap.Directory, snap.Now, s.formatter)
	read := s.tracker.ReadSet(ctx, email)

	return Feed{
		Notifications: ns,
		Summary:       Summarize(ns),
		Unread:        UnreadCount(records, read),
		Read:          read,
	}
}

// Open is a visit to the notifications page: every current notification is
// marked read before the feed is derived, so the returned feed has no
// unread entries.
func (s *Service) Open(ctx context.Context, email string) (Feed, error) {
	snap := s.ledger.Load(ctx)
	records := snap.For(email)

	if err := s.markRead(ctx, email, records); err != nil {
		return Feed{}, fmt.Errorf("opening notifications: %w", err)
	}

	ns := Derive(records, snap.Directory, snap.Now, s.formatter)
	s.logger.Debug("notifications opened",
		zap.String("student", email),
		zap.Int("count", len(ns)))

	read := s.tracker.ReadSet(ctx, email)
	return Feed{
		Notifications: ns,
		Summary:       Summarize(ns),
		Unread:        UnreadCount(records, read),
		Read:          read,
	}, nil
}

// MarkAllRead acknowledges every current notification without deriving the
// feed.
func (s *Service) MarkAllRead(ctx context.Context, email string) error {
	return s.markRead(ctx, email, s.ledger.Load(ctx).For(email))
}

func (s *Service) markRead(ctx context.Context, email string, records []model.ActivityRecord) error {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = model.ReadKey(r.ID, r.ScoreReleased)
	}
	return s.tracker.MarkAllRead(ctx, email, keys)
}

// UnreadCount is the badge value for email.
func (s *Service) UnreadCount(ctx context.Context, email string) (int, error) {
	records := s.ledger.Load(ctx).For(email)
	return UnreadCount(records, s.tracker.ReadSet(ctx, email)), nil
}

// Records returns the normalized records of email.
func (s *Service) Records(ctx context.Context, email string) []model.ActivityRecord {
	return s.ledger.Load(ctx).For(email)
}

// Notification finds one notification of email by record id.
func (s *Service) Notification(ctx context.Context, email, id string) (model.Notification, bool) {
	for _, n := range s.Notifications(ctx, email).Notifications {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}
