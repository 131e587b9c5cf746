package notifications

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/theme"
)

// glyphs maps icon names to terminal glyphs.
var glyphs = map[string]string{
	"check-circle": "✓",
	"alert-circle": "!",
	"clock":        "◷",
}

// Item wraps a notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
	Unread       bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Notification.QuizTitle }

// Title returns the notification title for the list.
func (i Item) Title() string { return i.Notification.Title }

// Description returns the notification message.
func (i Item) Description() string { return i.Notification.Message }

// ItemDelegate renders a notification over two lines: the title row and
// the message.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 1 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	_, _ = fmt.Fprint(w, renderItem(it, index == m.Index(), m.Width()))
}

func renderItem(it Item, selected bool, width int) string {
	n := it.Notification

	dot := " "
	if it.Unread {
		dot = theme.UnreadDotStyle.Render("●")
	}

	glyph, ok := glyphs[n.Icon.Name]
	if !ok {
		glyph = "•"
	}
	icon := theme.ToneStyle(n.Icon.Tone).Render(glyph)

	title := n.Title
	when := theme.DimmedStyle.Render(n.RelativeTime)
	titleLine := fmt.Sprintf("%s %s %s", dot, icon, title)
	if gap := width - lipgloss.Width(titleLine) - lipgloss.Width(when) - 2; gap > 0 {
		titleLine += strings.Repeat(" ", gap) + when
	} else {
		titleLine += "  " + when
	}

	message := "    " + theme.DimmedStyle.Render(n.Message)

	if selected {
		return theme.SelectedItemStyle.Render(titleLine + "\n" + message)
	}
	return " " + titleLine + "\n" + message
}
