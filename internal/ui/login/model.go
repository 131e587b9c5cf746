// Package login is the sign-in form shown when no identity is stored.
package login

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-playground/validator/v10"

	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/theme"
)

// SubmitMsg carries the entered credentials.
type SubmitMsg struct {
	Email    string
	Password string
	Role     model.Role
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email    string
	password string
	role     model.Role
}

// Model is the Bubble Tea model for the sign-in form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	err    string
	width  int
	height int
}

// New creates a new sign-in form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{role: model.RoleStudent},
		width:  width,
		height: height,
	}
}

// Start resets the form, keeping the last email, and shows message above it.
func (m *Model) Start(message string) tea.Cmd {
	m.err = message
	m.fb.password = ""
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&m.fb.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),
			huh.NewSelect[model.Role]().
				Title("Role").
				Options(
					huh.NewOption("Student", model.RoleStudent),
					huh.NewOption("Instructor", model.RoleInstructor),
				).
				Value(&m.fb.role),
		),
	).WithShowHelp(true)
}

var validate = validator.New()

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	if validate.Var(s, "email") != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

// Update handles messages for the sign-in form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		submit := SubmitMsg{
			Email:    strings.TrimSpace(m.fb.email),
			Password: m.fb.password,
			Role:     m.fb.role,
		}
		m.form = nil
		return m, func() tea.Msg { return submit }
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the sign-in form.
func (m Model) View() string {
	if m.form == nil {
		return theme.DimmedStyle.Padding(1, 2).Render("Signing in...")
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Sign in to QuizMaster")
	if m.err != "" {
		content += "\n" + theme.ErrorStyle.Render(m.err)
	}
	content += "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
