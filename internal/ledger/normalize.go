package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/quiz-ledger/internal/model"
)

// dateLayouts are the serializations producers have used for "date".
// Layouts without a zone are read in local time.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006, 15:04:05",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
	"1/2/2006",
}

// localeSpaces are the no-break spaces ICU puts in toLocaleString output,
// notably before the AM/PM marker.
var localeSpaces = strings.NewReplacer("\u202f", " ", "\u00a0", " ")

// ParseDate reads a stored date, falling back to now when text is empty or
// unparsable. All-digit text is epoch milliseconds.
func ParseDate(text string, now time.Time) time.Time {
	text = strings.TrimSpace(localeSpaces.Replace(text))
	if text == "" {
		return now
	}

	// Date.prototype.toString appends the zone name in parentheses.
	if i := strings.Index(text, " ("); i > 0 && strings.HasSuffix(text, ")") {
		text = text[:i]
	}

	if ms, err := strconv.ParseInt(text, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t
		}
	}
	return now
}

// fallbackID is the positional id of a record stored without one.
func fallbackID(index int) string {
	return fmt.Sprintf("notif_%d", index)
}

// Normalize returns the records owned by studentEmail in storage order.
// Missing ids become notif_<index within the returned slice>; missing or
// unparsable dates become now. The input is not modified.
func Normalize(raw []RawActivity, studentEmail string, now time.Time) []model.ActivityRecord {
	records := make([]model.ActivityRecord, 0)
	if studentEmail == "" {
		return records
	}

	for _, r := range raw {
		if r.StudentEmail != studentEmail {
			continue
		}

		rec := model.ActivityRecord{
			ID:            r.ID,
			StudentEmail:  r.StudentEmail,
			QuizTitle:     r.QuizTitle,
			Score:         r.Score,
			Total:         r.Total,
			Date:          ParseDate(r.Date, now),
			RawDate:       r.Date,
			AutoSubmitted: r.AutoSubmitted,
			SubmitReason:  r.SubmitReason,
			ScoreReleased: r.ScoreReleased,
			GradedBy:      r.GradedBy,
		}
		if r.TabSwitchViolations != nil {
			n := *r.TabSwitchViolations
			rec.TabSwitchViolations = &n
		}
		if rec.ID == "" {
			rec.ID = fallbackID(len(records))
		}

		records = append(records, rec)
	}

	return records
}
