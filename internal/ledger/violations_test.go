package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/quiz-ledger/internal/model"
)

func intPtr(n int) *int { return &n }

func TestViolations(t *testing.T) {
	tests := []struct {
		name   string
		record model.ActivityRecord
		want   int
	}{
		{
			name:   "explicit count wins over legacy reason",
			record: model.ActivityRecord{TabSwitchViolations: intPtr(1), AutoSubmitted: true, SubmitReason: model.SubmitReasonTabSwitch},
			want:   1,
		},
		{
			name:   "explicit zero",
			record: model.ActivityRecord{TabSwitchViolations: intPtr(0), AutoSubmitted: true, SubmitReason: model.SubmitReasonTabSwitch},
			want:   0,
		},
		{
			name:   "negative count clamps to zero",
			record: model.ActivityRecord{TabSwitchViolations: intPtr(-2)},
			want:   0,
		},
		{
			name:   "manual submission",
			record: model.ActivityRecord{SubmitReason: model.SubmitReasonTabSwitch},
			want:   0,
		},
		{
			name:   "legacy tab switch auto-submission",
			record: model.ActivityRecord{AutoSubmitted: true, SubmitReason: model.SubmitReasonTabSwitch},
			want:   3,
		},
		{
			name:   "time limit auto-submission",
			record: model.ActivityRecord{AutoSubmitted: true, SubmitReason: model.SubmitReasonTimeLimit},
			want:   0,
		},
		{
			name:   "auto-submission without reason",
			record: model.ActivityRecord{AutoSubmitted: true},
			want:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Violations(tt.record))
		})
	}
}

func TestViolations_IndependentOfCallOrder(t *testing.T) {
	records := []model.ActivityRecord{
		{AutoSubmitted: true, SubmitReason: model.SubmitReasonTabSwitch},
		{TabSwitchViolations: intPtr(2)},
		{AutoSubmitted: true},
	}

	first := make([]int, len(records))
	for i, r := range records {
		first[i] = Violations(r)
	}
	for i := len(records) - 1; i >= 0; i-- {
		assert.Equal(t, first[i], Violations(records[i]))
	}
}
