package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/quiz-ledger/internal/keys"
	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/notify"
	"github.com/nhle/quiz-ledger/internal/results"
	"github.com/nhle/quiz-ledger/internal/session"
	appsync "github.com/nhle/quiz-ledger/internal/sync"
	"github.com/nhle/quiz-ledger/internal/ui"
	helpview "github.com/nhle/quiz-ledger/internal/ui/help"
	loginview "github.com/nhle/quiz-ledger/internal/ui/login"
	notificationsview "github.com/nhle/quiz-ledger/internal/ui/notifications"
	resultsview "github.com/nhle/quiz-ledger/internal/ui/results"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewNotifications
	ViewResults
	ViewHelp
)

// Deps are the services the terminal UI drives.
type Deps struct {
	Ledger   *ledger.Ledger
	Service  *notify.Service
	Session  *session.Session
	Interval time.Duration
	Logger   *zap.Logger
}

// signedInMsg reports the outcome of a sign-in attempt.
type signedInMsg struct {
	user model.User
	err  error
}

// reportLoadedMsg carries the results report and the row to focus.
type reportLoadedMsg struct {
	report    results.Report
	highlight string
}

// Model is the root Bubble Tea model that manages view routing, the
// signed-in user and the unread badge.
type Model struct {
	deps          Deps
	currentView   ViewState
	previousView  ViewState // page to return to from help
	layout        ui.Layout
	keys          *keys.KeyMap
	login         loginview.Model
	notifications notificationsview.Model
	results       resultsview.Model
	helpView      helpview.Model
	poller        *appsync.Poller
	user          model.User
	signedIn      bool
	unreadCount   int
	statusMessage string
	ready         bool
}

// New creates a new root application model.
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	k := keys.DefaultKeyMap()

	return Model{
		deps:          deps,
		currentView:   ViewLogin,
		keys:          k,
		login:         loginview.New(80, 24),
		notifications: notificationsview.New(k, 80, 24),
		results:       resultsview.New(k, 80, 24),
		helpView:      helpview.New(k, 80, 24),
	}
}

// Init restores the stored identity. Without one the login form is shown.
func (m Model) Init() tea.Cmd {
	sess := m.deps.Session
	return func() tea.Msg {
		u, err := sess.Current()
		if err != nil {
			return signedInMsg{err: err}
		}
		return signedInMsg{user: u}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.login.SetSize(contentWidth, contentHeight)
		m.notifications.SetSize(contentWidth, contentHeight)
		m.results.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case signedInMsg:
		if msg.err != nil {
			cmd := m.showLogin(loginPrompt(msg.err))
			return m, cmd
		}
		cmd := m.enterSession(msg.user)
		return m, cmd

	case loginview.SubmitMsg:
		return m, m.authenticate(msg)

	case loginview.CancelMsg:
		return m, tea.Quit

	case appsync.CountMsg:
		// Counts from a poller of a previous session are dropped, even for
		// the same user, so only the current poller's waiter stays armed.
		if !m.signedIn || !m.poller.Owns(msg) {
			return m, nil
		}
		m.unreadCount = msg.Count
		return m, m.poller.WaitForNextCount()

	case notificationsview.FeedLoadedMsg:
		m.unreadCount = msg.Feed.Unread
		var cmd tea.Cmd
		m.notifications, cmd = m.notifications.Update(msg)
		return m, cmd

	case notificationsview.OpenTargetMsg:
		m.currentView = ViewResults
		return m, m.loadReport(msg.Target.ID)

	case reportLoadedMsg:
		m.results.SetReport(msg.report, msg.highlight)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.stopPoller()
			return m, tea.Quit
		}
		// The login form owns every other key.
		if m.currentView == ViewLogin {
			break
		}

		switch msg.String() {
		case "q":
			m.stopPoller()
			return m, tea.Quit

		case "?":
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case "esc":
			switch m.currentView {
			case ViewHelp:
				m.currentView = m.previousView
				return m, nil
			case ViewResults:
				cmd := m.openNotifications()
				return m, cmd
			}

		case "n":
			cmd := m.openNotifications()
			return m, cmd

		case "s":
			m.currentView = ViewResults
			return m, m.loadReport("")

		case "r":
			if m.poller != nil {
				return m, m.poller.Refresh()
			}
			return m, nil

		case "m":
			return m, m.markAllRead()

		case "L":
			cmd := m.signOut()
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	case ViewNotifications:
		m.notifications, cmd = m.notifications.Update(msg)
	case ViewResults:
		m.results, cmd = m.results.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.header())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.statusMessage)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.login.View()
	case ViewNotifications:
		return m.notifications.View()
	case ViewResults:
		return m.results.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// header describes the top bar for the current page.
func (m Model) header() ui.Header {
	h := ui.Header{Page: pageNames[m.currentView]}
	if m.signedIn {
		h.User = m.user.Name
		h.Unread = m.unreadCount
	}
	return h
}

var pageNames = map[ViewState]string{
	ViewLogin:         "Sign in",
	ViewNotifications: "Notifications",
	ViewResults:       "My Results",
	ViewHelp:          "Help",
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter submit | esc cancel"
	case ViewHelp:
		return "? close help | esc back"
	case ViewResults:
		return "esc back | n notifications | j/k move | q quit"
	default:
		return "q quit | ? help | enter view result | m mark all read | s results | r refresh"
	}
}

func loginPrompt(err error) string {
	switch {
	case session.IsMissingIdentity(err):
		return "Please sign in to continue."
	case errors.Is(err, ledger.ErrInvalidCredentials):
		return "Invalid email or password."
	default:
		return err.Error()
	}
}

// showLogin switches to the sign-in form.
func (m *Model) showLogin(message string) tea.Cmd {
	m.currentView = ViewLogin
	return m.login.Start(message)
}

// authenticate checks credentials against the directory and stores the
// identity on success.
func (m Model) authenticate(req loginview.SubmitMsg) tea.Cmd {
	l, sess := m.deps.Ledger, m.deps.Session
	return func() tea.Msg {
		u, err := l.Authenticate(context.Background(), req.Email, req.Password, req.Role)
		if err != nil {
			return signedInMsg{err: err}
		}
		if err := sess.SignIn(u); err != nil {
			return signedInMsg{err: err}
		}
		return signedInMsg{user: u}
	}
}

// enterSession starts the unread poller for u and lands on the
// notification page.
func (m *Model) enterSession(u model.User) tea.Cmd {
	m.stopPoller()
	m.user = u
	m.signedIn = true
	m.unreadCount = 0
	m.statusMessage = ""
	m.helpView.SetUser(fmt.Sprintf("%s <%s>", u.Name, u.Email))

	m.poller = appsync.New(m.deps.Service, u.Email, m.deps.Interval, m.deps.Logger)
	return tea.Batch(
		m.poller.Start(context.Background()),
		m.openNotifications(),
	)
}

// openNotifications shows the notification page. Everything shown is marked
// read before the feed is derived, so the badge clears on entry.
func (m *Model) openNotifications() tea.Cmd {
	m.currentView = ViewNotifications
	m.notifications.SetLoading(true)

	svc, email := m.deps.Service, m.user.Email
	return func() tea.Msg {
		feed, err := svc.Open(context.Background(), email)
		return notificationsview.FeedLoadedMsg{Feed: feed, Err: err}
	}
}

// markAllRead acknowledges the current feed and refreshes the badge.
func (m Model) markAllRead() tea.Cmd {
	svc, email := m.deps.Service, m.user.Email
	return func() tea.Msg {
		err := svc.MarkAllRead(context.Background(), email)
		return notificationsview.FeedLoadedMsg{Feed: svc.Notifications(context.Background(), email), Err: err}
	}
}

// loadReport builds the results view, focusing highlightID when set.
func (m Model) loadReport(highlightID string) tea.Cmd {
	svc, email := m.deps.Service, m.user.Email
	return func() tea.Msg {
		return reportLoadedMsg{
			report:    results.Build(svc.Records(context.Background(), email)),
			highlight: highlightID,
		}
	}
}

// signOut forgets the identity and stops polling.
func (m *Model) signOut() tea.Cmd {
	m.stopPoller()
	m.signedIn = false
	m.user = model.User{}
	m.unreadCount = 0
	m.helpView.SetUser("")

	if err := m.deps.Session.SignOut(); err != nil {
		m.deps.Logger.Warn("sign out failed", zap.Error(err))
		m.statusMessage = "Sign out failed: " + err.Error()
	}
	return m.showLogin("Signed out.")
}

func (m *Model) stopPoller() {
	if m.poller != nil {
		m.poller.Stop()
		m.poller = nil
	}
}
