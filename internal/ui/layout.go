package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/quiz-ledger/internal/notify"
	"github.com/nhle/quiz-ledger/internal/theme"
)

// AppTitle is the brand shown at the left of the header.
const AppTitle = "QuizMaster"

const bell = "🔔"

// Header is what the top bar shows for the current page.
type Header struct {
	Page   string
	User   string // empty while signed out
	Unread int
}

// Title is the brand followed by the page name.
func (h Header) Title() string {
	if h.Page == "" {
		return AppTitle
	}
	return AppTitle + " · " + h.Page
}

// Badge is the plain text of the user and unread counter, as the sidebar
// bell shows it: nothing at zero, "9+" above nine.
func (h Header) Badge() string {
	if h.User == "" {
		return ""
	}
	label := notify.BadgeLabel(h.Unread)
	if label == "" {
		return h.User
	}
	return fmt.Sprintf("%s  %s %s", h.User, bell, label)
}

// Layout holds the terminal dimensions and the fixed chrome heights.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with a one-line header and status bar.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left for the page between the bars.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the title on the left and the signed-in user on the
// right, with the unread count in a red bell badge.
func (l Layout) RenderHeader(h Header) string {
	left := theme.HeaderStyle.Render(h.Title())

	var right string
	if h.User != "" {
		right = theme.HeaderStyle.Render(h.User)
		if label := notify.BadgeLabel(h.Unread); label != "" {
			right = lipgloss.JoinHorizontal(lipgloss.Top, right, theme.BadgeStyle.Render(bell+" "+label))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, left, fill(theme.HeaderStyle, l.Width-lipgloss.Width(left)-lipgloss.Width(right)), right)
}

// RenderStatusBar renders key hints, or message in the error tone when set.
func (l Layout) RenderStatusBar(hints, message string) string {
	rendered := theme.StatusBarStyle.Render(hints)
	if message != "" {
		rendered = theme.ErrorStyle.Background(theme.StatusBarStyle.GetBackground()).Padding(0, 1).Render(message)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, fill(theme.StatusBarStyle, l.Width-lipgloss.Width(rendered)))
}

// RenderWithFrame stacks the header, the page and the status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	content = lipgloss.NewStyle().Height(l.ContentHeight()).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// fill pads a bar to the terminal width in the bar's background.
func fill(bar lipgloss.Style, width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Width(width).Background(bar.GetBackground()).Render("")
}
