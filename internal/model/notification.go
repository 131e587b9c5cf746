package model

import "time"

// NotificationType classifies a derived notification.
type NotificationType string

const (
	NotificationSubmissionConfirmed NotificationType = "submission_confirmed"
	NotificationScoreReleased       NotificationType = "score_released"
)

// Instructor is the reviewer identity attributed to a notification.
type Instructor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Icon names the glyph and colour tone a view should use for a notification.
type Icon struct {
	Name string `json:"name"`
	Tone string `json:"tone"`
}

// Notification is a view object derived from an ActivityRecord on every
// read. It is never persisted.
type Notification struct {
	// ID is the identifier of the underlying activity record.
	ID string `json:"id"`

	// Type is score_released once the score is out, else submission_confirmed.
	Type NotificationType `json:"type"`

	QuizTitle     string `json:"quizTitle"`
	Score         int    `json:"score"`
	Total         int    `json:"total"`
	Violations    int    `json:"violations"`
	AutoSubmitted bool   `json:"autoSubmitted"`

	// Timestamp is the submission time used for ordering.
	Timestamp time.Time `json:"timestamp"`

	// RelativeTime is Timestamp formatted against the derivation clock.
	RelativeTime string `json:"relativeTime"`

	Instructor Instructor `json:"instructor"`
	IsReleased bool       `json:"isReleased"`

	Title   string `json:"title"`
	Message string `json:"message"`
	Icon    Icon   `json:"icon"`
}

// ReadKey identifies the state of the notification a user has acknowledged.
// A pending submission and its later release have different keys.
func (n Notification) ReadKey() string {
	return ReadKey(n.ID, n.IsReleased)
}

// ReadKey builds the read-state key for a record id in the given release state.
func ReadKey(id string, released bool) string {
	if released {
		return id + "#released"
	}
	return id
}
