package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/quiz-ledger/internal/model"
)

func intPtr(n int) *int { return &n }

func TestBuild_Empty(t *testing.T) {
	report := Build(nil)
	assert.NotNil(t, report.Rows)
	assert.Empty(t, report.Rows)
	assert.Equal(t, model.Summary{}, report.Summary)
}

func TestBuild_MixedReleaseStates(t *testing.T) {
	records := []model.ActivityRecord{
		{
			ID: "a", QuizTitle: "Algebra", ScoreReleased: true, Score: 8, Total: 10,
			RawDate: "10/14/2026, 9:15:00 AM", TabSwitchViolations: intPtr(1),
		},
		{
			ID: "b", QuizTitle: "Biology", AutoSubmitted: true, SubmitReason: model.SubmitReasonTabSwitch,
			Date: time.Date(2026, 10, 13, 14, 5, 0, 0, time.UTC),
		},
		{
			ID: "c", QuizTitle: "Chemistry", AutoSubmitted: true, SubmitReason: model.SubmitReasonTimeLimit,
			ScoreReleased: true, Score: 0, Total: 0,
		},
	}

	report := Build(records)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, model.Summary{Total: 3, Released: 2, Pending: 1}, report.Summary)

	a := report.Rows[0]
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, "8/10 (80%)", a.Score)
	assert.Equal(t, 80, a.Percentage)
	assert.Equal(t, "1 tab switch", a.ViolationText)
	assert.Equal(t, "10/14/2026, 9:15:00 AM", a.SubmittedAt)
	assert.Empty(t, a.Note)
	assert.Empty(t, a.PendingNote)

	b := report.Rows[1]
	assert.Equal(t, StatusAutoSubmitted, b.Status)
	assert.Equal(t, "Pending Review", b.Score)
	assert.Equal(t, 3, b.Violations)
	assert.Equal(t, "3 tab switches", b.ViolationText)
	assert.Equal(t, "You switched tabs or left the page 3 times during the quiz", b.Note)
	assert.Equal(t, "10/13/2026, 2:05:00 PM", b.SubmittedAt)
	assert.NotEmpty(t, b.PendingNote)

	c := report.Rows[2]
	assert.Equal(t, "0/0 (0%)", c.Score)
	assert.Equal(t, "Time limit was reached", c.Note)
	assert.Equal(t, "0 tab switches", c.ViolationText)
}

func TestViolationLabel(t *testing.T) {
	assert.Equal(t, "0 tab switches", ViolationLabel(0))
	assert.Equal(t, "1 tab switch", ViolationLabel(1))
	assert.Equal(t, "2 tab switches", ViolationLabel(2))
}
