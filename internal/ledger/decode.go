package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/store"
)

// RawActivity is one stored submission before normalization. Optional
// fields keep their absence visible: ID and Date are empty when missing and
// TabSwitchViolations is nil.
type RawActivity struct {
	ID                  string
	StudentEmail        string
	QuizTitle           string
	Score               int
	Total               int
	Date                string
	TabSwitchViolations *int
	AutoSubmitted       bool
	SubmitReason        model.SubmitReason
	ScoreReleased       bool
	GradedBy            string
}

// UnmarshalJSON decodes an activity object written by any producer
// generation. Scalars are read leniently; only a non-object is an error.
func (r *RawActivity) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("activity is not an object")
	}

	*r = RawActivity{
		ID:            rawString(fields["id"]),
		StudentEmail:  rawString(fields["studentEmail"]),
		QuizTitle:     rawString(fields["quizTitle"]),
		Date:          rawString(fields["date"]),
		AutoSubmitted: rawTrue(fields["autoSubmitted"]),
		SubmitReason:  model.SubmitReason(rawString(fields["submitReason"])),
		ScoreReleased: rawTrue(fields["scoreReleased"]),
		GradedBy:      rawString(fields["gradedBy"]),
	}
	r.Score, _ = rawInt(fields["score"])
	r.Total, _ = rawInt(fields["total"])
	if n, ok := rawInt(fields["tabSwitchViolations"]); ok {
		r.TabSwitchViolations = &n
	}
	return nil
}

// rawString returns a JSON string's value or a number's literal text.
// Anything else reads as empty.
func rawString(m json.RawMessage) string {
	m = bytes.TrimSpace(m)
	if len(m) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(m, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawInt reads a JSON number or numeric string, rounding fractions.
// Values beyond the int32 range read as absent.
func rawInt(m json.RawMessage) (int, bool) {
	m = bytes.TrimSpace(m)
	if len(m) == 0 || string(m) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(m, &f); err == nil {
		return roundInt(f)
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return roundInt(f)
		}
	}
	return 0, false
}

func roundInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// rawTrue reports whether m is the JSON literal true.
func rawTrue(m json.RawMessage) bool {
	return string(bytes.TrimSpace(m)) == "true"
}

// decodeArray splits a stored JSON array into its elements.
func decodeArray(key, value string) ([]json.RawMessage, error) {
	if strings.TrimSpace(value) == "" {
		return nil, &store.ReadError{Key: key, Err: errors.New("empty value")}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(value), &elems); err != nil {
		return nil, &store.ReadError{Key: key, Err: err}
	}
	return elems, nil
}

// Decode parses the stored activity log. A malformed log yields a
// *store.ReadError and no records; malformed elements are skipped and
// counted while the rest survive.
func Decode(value string) (records []RawActivity, skipped int, err error) {
	elems, err := decodeArray(store.ActivitiesKey, value)
	if err != nil {
		return nil, 0, err
	}

	records = make([]RawActivity, 0, len(elems))
	for _, elem := range elems {
		var r RawActivity
		if err := json.Unmarshal(elem, &r); err != nil {
			skipped++
			continue
		}
		records = append(records, r)
	}
	return records, skipped, nil
}

// DecodeUsers parses the stored user directory with the same leniency as
// Decode.
func DecodeUsers(value string) (users []model.DirectoryUser, skipped int, err error) {
	elems, err := decodeArray(store.UsersKey, value)
	if err != nil {
		return nil, 0, err
	}

	users = make([]model.DirectoryUser, 0, len(elems))
	for _, elem := range elems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
			skipped++
			continue
		}
		users = append(users, model.DirectoryUser{
			Name:  rawString(fields["name"]),
			Email: rawString(fields["email"]),
			Role:  model.Role(rawString(fields["role"])),
		})
	}
	return users, skipped, nil
}
