// Package digest renders a student's notification feed as an email message.
package digest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/notify"
)

// Message is the input of one digest.
type Message struct {
	From string
	To   model.User
	Feed notify.Feed
	Date time.Time
}

// Subject summarizes the unread count.
func Subject(unread int) string {
	if unread == 1 {
		return "1 unread notification"
	}
	return fmt.Sprintf("%d unread notifications", unread)
}

// Write encodes m as a single-part text/plain RFC 5322 message.
func Write(w io.Writer, m Message) error {
	var h mail.Header
	h.SetDate(m.Date)
	h.SetSubject(Subject(m.Feed.Unread))
	h.SetAddressList("From", []*mail.Address{{Name: "Quiz Notifications", Address: m.From}})
	h.SetAddressList("To", []*mail.Address{{Name: m.To.Name, Address: m.To.Email}})
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating digest writer: %w", err)
	}
	if _, err := io.WriteString(body, Body(m.Feed)); err != nil {
		body.Close()
		return fmt.Errorf("writing digest body: %w", err)
	}
	if err := body.Close(); err != nil {
		return fmt.Errorf("closing digest: %w", err)
	}
	return nil
}

// Body is the plain-text listing of the feed, newest first.
func Body(feed notify.Feed) string {
	if len(feed.Notifications) == 0 {
		return "You have no notifications.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d submitted, %d released, %d pending review.\n\n",
		feed.Summary.Total, feed.Summary.Released, feed.Summary.Pending)

	for _, n := range feed.Notifications {
		marker := ""
		if feed.IsUnread(n) {
			marker = "[new] "
		}
		fmt.Fprintf(&b, "%s%s\n  %s\n  %s\n\n", marker, n.Title, n.Message, n.RelativeTime)
	}
	return b.String()
}
