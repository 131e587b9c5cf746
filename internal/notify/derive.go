// Package notify derives the notification feed and unread state of a student
// from their activity records.
package notify

import (
	"fmt"
	"sort"
	"time"

	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/model"
)

// PlaceholderInstructor is attributed when the directory holds no instructor.
var PlaceholderInstructor = model.Instructor{
	Name:  "Quiz Administrator",
	Email: "admin@quizmaster.com",
}

// Icon tones.
const (
	ToneGreen  = "green"
	ToneRed    = "red"
	ToneYellow = "yellow"
)

var (
	iconReleased = model.Icon{Name: "check-circle", Tone: ToneGreen}
	iconAuto     = model.Icon{Name: "alert-circle", Tone: ToneRed}
	iconPending  = model.Icon{Name: "clock", Tone: ToneYellow}
)

// TimeFormatter renders a timestamp relative to now.
type TimeFormatter interface {
	Format(t, now time.Time) string
}

// Derive maps records to notifications, newest first. Records with equal
// timestamps keep their storage order. Derive is pure.
func Derive(records []model.ActivityRecord, directory []model.DirectoryUser, now time.Time, f TimeFormatter) []model.Notification {
	fallback := firstInstructor(directory)

	ns := make([]model.Notification, 0, len(records))
	for _, r := range records {
		n := model.Notification{
			ID:            r.ID,
			Type:          model.NotificationSubmissionConfirmed,
			QuizTitle:     r.QuizTitle,
			Score:         r.Score,
			Total:         r.Total,
			Violations:    ledger.Violations(r),
			AutoSubmitted: r.AutoSubmitted,
			Timestamp:     r.Date,
			RelativeTime:  f.Format(r.Date, now),
			Instructor:    attribute(r, directory, fallback),
			IsReleased:    r.ScoreReleased,
		}
		if n.IsReleased {
			n.Type = model.NotificationScoreReleased
		}
		n.Title, n.Message, n.Icon = describe(n)
		ns = append(ns, n)
	}

	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].Timestamp.After(ns[j].Timestamp)
	})
	return ns
}

// attribute picks the grader named on the record, then the directory's
// first instructor.
func attribute(r model.ActivityRecord, directory []model.DirectoryUser, fallback model.Instructor) model.Instructor {
	if r.GradedBy != "" {
		for _, u := range directory {
			if u.Role == model.RoleInstructor && u.Email == r.GradedBy {
				return model.Instructor{Name: u.Name, Email: u.Email}
			}
		}
	}
	return fallback
}

func firstInstructor(directory []model.DirectoryUser) model.Instructor {
	for _, u := range directory {
		if u.Role == model.RoleInstructor {
			return model.Instructor{Name: u.Name, Email: u.Email}
		}
	}
	return PlaceholderInstructor
}

func describe(n model.Notification) (title, message string, icon model.Icon) {
	switch {
	case n.IsReleased:
		return "Score Released: " + n.QuizTitle,
			fmt.Sprintf("Your score for %s has been released by %s. You scored %d/%d (%d%%).",
				n.QuizTitle, n.Instructor.Name, n.Score, n.Total, model.Percentage(n.Score, n.Total)),
			iconReleased
	case n.AutoSubmitted:
		reason := "time limit"
		if n.Violations >= 3 {
			reason = "multiple tab switches"
		}
		return "Quiz Auto-Submitted: " + n.QuizTitle,
			fmt.Sprintf("Your quiz was automatically submitted due to %s. The instructor will review your submission.", reason),
			iconAuto
	default:
		return "Quiz Submitted: " + n.QuizTitle,
			fmt.Sprintf("You have successfully submitted %s. Your instructor will review and release your score soon.", n.QuizTitle),
			iconPending
	}
}

// Target is where activating a notification leads.
type Target struct {
	Path string `json:"path"`
	ID   string `json:"id"`
}

// ResultsPath is the view that lists a student's released scores.
const ResultsPath = "/results"

// Click returns the navigation target of n. Pending notifications have none.
func Click(n model.Notification) (Target, bool) {
	if !n.IsReleased {
		return Target{}, false
	}
	return Target{Path: ResultsPath, ID: n.ID}, true
}

// Summarize counts notifications by release state.
func Summarize(ns []model.Notification) model.Summary {
	s := model.Summary{Total: len(ns)}
	for _, n := range ns {
		if n.IsReleased {
			s.Released++
		}
	}
	s.Pending = s.Total - s.Released
	return s
}

// BadgeLabel is the text of the unread badge; empty hides it.
func BadgeLabel(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > 9:
		return "9+"
	default:
		return fmt.Sprintf("%d", count)
	}
}
