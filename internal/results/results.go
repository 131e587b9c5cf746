// Package results builds the student's results view from activity records.
package results

import (
	"fmt"

	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/model"
)

// Status badges.
const (
	StatusAutoSubmitted = "Auto-Submitted"
	StatusCompleted     = "Completed"
)

const pendingReview = "Pending Review"

// Row is one submission as the results view shows it.
type Row struct {
	ID            string `json:"id"`
	QuizTitle     string `json:"quizTitle"`
	Status        string `json:"status"`
	Released      bool   `json:"released"`
	Score         string `json:"score"`
	Percentage    int    `json:"percentage"`
	Violations    int    `json:"violations"`
	ViolationText string `json:"violationText"`
	SubmittedAt   string `json:"submittedAt"`
	Note          string `json:"note,omitempty"`
	PendingNote   string `json:"pendingNote,omitempty"`
}

// Report is the results view of one student.
type Report struct {
	Rows    []Row         `json:"rows"`
	Summary model.Summary `json:"summary"`
}

// Build turns records into rows in the order given.
func Build(records []model.ActivityRecord) Report {
	report := Report{
		Rows:    make([]Row, 0, len(records)),
		Summary: model.Summary{Total: len(records)},
	}

	for _, r := range records {
		violations := ledger.Violations(r)
		row := Row{
			ID:            r.ID,
			QuizTitle:     r.QuizTitle,
			Status:        StatusCompleted,
			Released:      r.ScoreReleased,
			Score:         pendingReview,
			Violations:    violations,
			ViolationText: ViolationLabel(violations),
			SubmittedAt:   submittedAt(r),
		}
		if r.AutoSubmitted {
			row.Status = StatusAutoSubmitted
			row.Note = autoSubmitNote(r.SubmitReason)
		}
		if r.ScoreReleased {
			row.Percentage = model.Percentage(r.Score, r.Total)
			row.Score = fmt.Sprintf("%d/%d (%d%%)", r.Score, r.Total, row.Percentage)
			report.Summary.Released++
		} else {
			row.PendingNote = "Your instructor has not released this score yet."
		}
		report.Rows = append(report.Rows, row)
	}

	report.Summary.Pending = report.Summary.Total - report.Summary.Released
	return report
}

// ViolationLabel renders a violation count, singular only at one.
func ViolationLabel(n int) string {
	if n == 1 {
		return "1 tab switch"
	}
	return fmt.Sprintf("%d tab switches", n)
}

func autoSubmitNote(reason model.SubmitReason) string {
	if reason == model.SubmitReasonTabSwitch {
		return "You switched tabs or left the page 3 times during the quiz"
	}
	return "Time limit was reached"
}

// submittedAt prefers the date text as stored so the view shows what the
// producer recorded.
func submittedAt(r model.ActivityRecord) string {
	if r.RawDate != "" {
		return r.RawDate
	}
	return r.Date.Format("1/2/2006, 3:04:05 PM")
}
