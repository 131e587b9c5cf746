// Package notifications is the notification page of the terminal UI.
package notifications

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/quiz-ledger/internal/keys"
	"github.com/nhle/quiz-ledger/internal/notify"
	"github.com/nhle/quiz-ledger/internal/theme"
)

// FeedLoadedMsg carries a freshly derived feed to the page.
type FeedLoadedMsg struct {
	Feed notify.Feed
	Err  error
}

// OpenTargetMsg is sent when a released notification is selected.
type OpenTargetMsg struct {
	Target notify.Target
}

// Model is the notification list view component.
type Model struct {
	list    list.Model
	keys    *keys.KeyMap
	feed    notify.Feed
	loading bool
	err     error
	width   int
	height  int
}

// New creates a new notification page model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.SetStatusBarItemName("notification", "notifications")

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetLoading shows the loading placeholder until the next feed arrives.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetFeed replaces the list contents with feed.
func (m *Model) SetFeed(feed notify.Feed) tea.Cmd {
	m.feed = feed
	m.loading = false
	m.err = nil

	items := make([]list.Item, len(feed.Notifications))
	for i, n := range feed.Notifications {
		items[i] = Item{Notification: n, Unread: feed.IsUnread(n)}
	}
	return m.list.SetItems(items)
}

// Feed returns the feed currently shown.
func (m Model) Feed() notify.Feed {
	return m.feed
}

// Update handles messages for the notification page.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FeedLoadedMsg:
		if msg.Err != nil {
			m.loading = false
			m.err = msg.Err
		}
		cmd := m.SetFeed(msg.Feed)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Select) {
			return m, m.selectCurrent()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// selectCurrent resolves the focused notification. Pending notifications
// have no target and selecting them does nothing.
func (m Model) selectCurrent() tea.Cmd {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return nil
	}
	target, ok := notify.Click(it.Notification)
	if !ok {
		return nil
	}
	return func() tea.Msg { return OpenTargetMsg{Target: target} }
}

// View renders the notification page.
func (m Model) View() string {
	switch {
	case m.loading:
		return theme.DimmedStyle.Padding(1, 2).Render("Loading notifications...")
	case len(m.feed.Notifications) == 0:
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.HeaderStyle.Render("Notifications"),
			theme.DimmedStyle.Padding(1, 2).Render("No notifications yet. Submit a quiz to see updates here."),
			m.errorLine(),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		m.summaryLine(),
		m.errorLine(),
	)
}

func (m Model) summaryLine() string {
	s := m.feed.Summary
	return theme.HelpStyle.Render(fmt.Sprintf(
		"%d total · %d released · %d pending review", s.Total, s.Released, s.Pending))
}

func (m Model) errorLine() string {
	if m.err == nil {
		return ""
	}
	return theme.ErrorStyle.Render(m.err.Error())
}

// SetSize updates the page dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
