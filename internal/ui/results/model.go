// Package results is the results page of the terminal UI.
package results

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/quiz-ledger/internal/keys"
	"github.com/nhle/quiz-ledger/internal/results"
	"github.com/nhle/quiz-ledger/internal/theme"
)

// ReportLoadedMsg carries a freshly built report to the page.
type ReportLoadedMsg struct {
	Report results.Report
}

// Model is the results table view component.
type Model struct {
	table  table.Model
	keys   *keys.KeyMap
	report results.Report
	width  int
	height int
}

// New creates a new results page model.
func New(k *keys.KeyMap, width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(tableHeight(height)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(theme.ColorBlue)
	styles.Selected = styles.Selected.Foreground(theme.ColorWhite).Background(theme.ColorSubtle)
	t.SetStyles(styles)

	return Model{table: t, keys: k, width: width, height: height}
}

func columns(width int) []table.Column {
	quiz := width - 16 - 20 - 18 - 24
	if quiz < 16 {
		quiz = 16
	}
	return []table.Column{
		{Title: "Quiz", Width: quiz},
		{Title: "Status", Width: 16},
		{Title: "Score", Width: 20},
		{Title: "Violations", Width: 18},
		{Title: "Submitted", Width: 24},
	}
}

func tableHeight(height int) int {
	if h := height - 8; h > 3 {
		return h
	}
	return 3
}

// SetReport replaces the table rows. When highlightID names a row it is
// focused, so a notification click lands on its submission.
func (m *Model) SetReport(report results.Report, highlightID string) {
	m.report = report

	rows := make([]table.Row, len(report.Rows))
	cursor := 0
	for i, r := range report.Rows {
		rows[i] = table.Row{r.QuizTitle, r.Status, r.Score, r.ViolationText, r.SubmittedAt}
		if highlightID != "" && r.ID == highlightID {
			cursor = i
		}
	}
	m.table.SetRows(rows)
	m.table.SetCursor(cursor)
}

// Selected returns the focused row.
func (m Model) Selected() (results.Row, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.report.Rows) {
		return results.Row{}, false
	}
	return m.report.Rows[i], true
}

// Update handles messages for the results page.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(ReportLoadedMsg); ok {
		m.SetReport(msg.Report, "")
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the results page.
func (m Model) View() string {
	title := theme.HeaderStyle.Render("My Results")
	if len(m.report.Rows) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title,
			theme.DimmedStyle.Padding(1, 2).Render("No quiz submissions yet."))
	}

	s := m.report.Summary
	summary := theme.HelpStyle.Render(fmt.Sprintf(
		"%d quizzes · %d released · %d pending review", s.Total, s.Released, s.Pending))

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		summary,
		m.table.View(),
		m.detail(),
	)
}

// detail renders the notes of the focused row.
func (m Model) detail() string {
	r, ok := m.Selected()
	if !ok {
		return ""
	}

	var lines []string
	lines = append(lines, theme.StatusStyle(r.Status == results.StatusAutoSubmitted).Render(r.Status))
	if r.Note != "" {
		lines = append(lines, theme.ErrorStyle.Render(r.Note))
	}
	if r.PendingNote != "" {
		lines = append(lines, theme.DimmedStyle.Render(r.PendingNote))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// SetSize updates the page dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetHeight(tableHeight(height))
}
