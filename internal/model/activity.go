package model

import (
	"math"
	"time"
)

// SubmitReason explains why a submission was forced.
type SubmitReason string

const (
	// SubmitReasonTabSwitch marks a submission forced by repeated tab switches.
	SubmitReasonTabSwitch SubmitReason = "tab-switch"

	// SubmitReasonTimeLimit marks a submission forced by the quiz timer.
	SubmitReasonTimeLimit SubmitReason = "time-limit"
)

// ActivityRecord is the canonical form of one quiz submission.
type ActivityRecord struct {
	// ID is the stable identifier of the submission. Legacy records without
	// one receive a positional fallback during normalization.
	ID string `json:"id"`

	// StudentEmail is the owning principal and the tenant key for every query.
	StudentEmail string `json:"studentEmail"`

	// QuizTitle is the display name of the quiz.
	QuizTitle string `json:"quizTitle"`

	// Score and Total are meaningful only once ScoreReleased is true.
	Score int `json:"score"`
	Total int `json:"total"`

	// Date is when the submission happened.
	Date time.Time `json:"date"`

	// RawDate is the date text exactly as the producer stored it.
	RawDate string `json:"-"`

	// TabSwitchViolations is the authoritative violation count when present.
	TabSwitchViolations *int `json:"tabSwitchViolations,omitempty"`

	// AutoSubmitted is true when the submission was forced.
	AutoSubmitted bool `json:"autoSubmitted"`

	// SubmitReason is the legacy signal used when TabSwitchViolations is absent.
	SubmitReason SubmitReason `json:"submitReason,omitempty"`

	// ScoreReleased is set by the instructor review workflow only.
	ScoreReleased bool `json:"scoreReleased"`

	// GradedBy is the email of the instructor who released the score.
	GradedBy string `json:"gradedBy,omitempty"`
}

// Percentage returns round(100*score/total), or 0 when total is not positive.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(score)*100/float64(total) + 0.5))
}

// Summary counts records or notifications by release state.
type Summary struct {
	Total    int `json:"total"`
	Released int `json:"released"`
	Pending  int `json:"pending"`
}
