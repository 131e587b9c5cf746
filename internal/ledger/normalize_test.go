package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/quiz-ledger/internal/store"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestDecode_MalformedLogIsReadError(t *testing.T) {
	for _, value := range []string{"", "   ", "{not json", `{"id":"x"}`, "42"} {
		records, skipped, err := Decode(value)
		assert.Empty(t, records, value)
		assert.Zero(t, skipped, value)
		assert.True(t, store.IsReadError(err), value)
	}
}

func TestDecode_SkipsMalformedElements(t *testing.T) {
	records, skipped, err := Decode(`[
		{"id":"a","studentEmail":"s@x"},
		"garbage",
		null,
		{"id":"b","studentEmail":"s@x"}
	]`)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
}

func TestDecode_LenientScalars(t *testing.T) {
	records, _, err := Decode(`[{
		"id": 1697371200000,
		"studentEmail": "s@x",
		"score": "8",
		"total": 10.0,
		"tabSwitchViolations": 2,
		"autoSubmitted": "true",
		"scoreReleased": true,
		"date": 1697371200000
	}]`)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "1697371200000", r.ID)
	assert.Equal(t, 8, r.Score)
	assert.Equal(t, 10, r.Total)
	require.NotNil(t, r.TabSwitchViolations)
	assert.Equal(t, 2, *r.TabSwitchViolations)
	assert.False(t, r.AutoSubmitted, "only the literal true counts")
	assert.True(t, r.ScoreReleased)
	assert.Equal(t, "1697371200000", r.Date)
}

func TestDecode_OutOfRangeNumbersReadAsAbsent(t *testing.T) {
	records, _, err := Decode(`[{
		"studentEmail": "s@x",
		"score": 1e30,
		"total": "-1e12",
		"tabSwitchViolations": 1e300
	}]`)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Zero(t, r.Score)
	assert.Zero(t, r.Total)
	assert.Nil(t, r.TabSwitchViolations)
}

func TestDecode_AbsentViolationsStayNil(t *testing.T) {
	records, _, err := Decode(`[{"studentEmail":"s@x","tabSwitchViolations":null},{"studentEmail":"s@x"}]`)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Nil(t, records[0].TabSwitchViolations)
	assert.Nil(t, records[1].TabSwitchViolations)
}

func TestNormalize_FiltersByStudentInStorageOrder(t *testing.T) {
	raw := []RawActivity{
		{ID: "1", StudentEmail: "ana@x", QuizTitle: "A"},
		{ID: "2", StudentEmail: "ben@x", QuizTitle: "B"},
		{ID: "3", StudentEmail: "ana@x", QuizTitle: "C"},
	}

	got := Normalize(raw, "ana@x", fixedNow)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].QuizTitle)
	assert.Equal(t, "C", got[1].QuizTitle)
	for _, r := range got {
		assert.Equal(t, "ana@x", r.StudentEmail)
	}
}

func TestNormalize_PositionalFallbackWithinFilteredSequence(t *testing.T) {
	raw := []RawActivity{
		{StudentEmail: "ben@x"},
		{StudentEmail: "ana@x"},
		{ID: "kept", StudentEmail: "ana@x"},
		{StudentEmail: "ana@x"},
	}

	got := Normalize(raw, "ana@x", fixedNow)
	require.Len(t, got, 3)
	assert.Equal(t, "notif_0", got[0].ID)
	assert.Equal(t, "kept", got[1].ID)
	assert.Equal(t, "notif_2", got[2].ID)
}

func TestNormalize_DateFallbackAndRawText(t *testing.T) {
	raw := []RawActivity{
		{ID: "a", StudentEmail: "ana@x", Date: "2026-10-14T12:00:00.000Z"},
		{ID: "b", StudentEmail: "ana@x", Date: "yesterday-ish"},
		{ID: "c", StudentEmail: "ana@x"},
	}

	got := Normalize(raw, "ana@x", fixedNow)
	require.Len(t, got, 3)
	assert.True(t, got[0].Date.Equal(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-10-14T12:00:00.000Z", got[0].RawDate)
	assert.True(t, got[1].Date.Equal(fixedNow))
	assert.True(t, got[2].Date.Equal(fixedNow))
}

func TestNormalize_DoesNotAliasInput(t *testing.T) {
	n := 2
	raw := []RawActivity{{ID: "a", StudentEmail: "ana@x", TabSwitchViolations: &n}}

	got := Normalize(raw, "ana@x", fixedNow)
	*got[0].TabSwitchViolations = 9
	assert.Equal(t, 2, *raw[0].TabSwitchViolations)
}

func TestNormalize_EmptyEmailOwnsNothing(t *testing.T) {
	raw := []RawActivity{{ID: "a"}}
	assert.Empty(t, Normalize(raw, "", fixedNow))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"iso utc", "2026-10-14T08:30:00Z", time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)},
		{"iso millis", "2026-10-14T08:30:00.123Z", time.Date(2026, 10, 14, 8, 30, 0, 123e6, time.UTC)},
		{"epoch millis", "1760430600000", time.UnixMilli(1760430600000)},
		{"locale string", "10/14/2026, 8:30:00 AM", time.Date(2026, 10, 14, 8, 30, 0, 0, time.Local)},
		{"locale string icu", "1/15/2024, 10:30:00\u202fAM", time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)},
		{"locale string nbsp", "1/15/2024, 10:30:00\u00a0PM", time.Date(2024, 1, 15, 22, 30, 0, 0, time.Local)},
		{"sql datetime", "2026-10-14 08:30:00", time.Date(2026, 10, 14, 8, 30, 0, 0, time.Local)},
		{"date only", "2026-10-14", time.Date(2026, 10, 14, 0, 0, 0, 0, time.Local)},
		{"empty", "", fixedNow},
		{"garbage", "not a date", fixedNow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.text, fixedNow)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}
