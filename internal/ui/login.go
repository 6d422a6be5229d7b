package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const minPasswordLen = 8

type loginMode int

const (
	modeSignIn loginMode = iota
	modeSignUp
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

// loginModel is the sign-in / sign-up form. The name field only participates
// in sign-up mode.
type loginModel struct {
	mode   loginMode
	inputs []textinput.Model
	focus  int
	errMsg string
	busy   bool
}

func newLoginModel() loginModel {
	name := textinput.New()
	name.Placeholder = "Name"
	name.CharLimit = 100

	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 200

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 200

	m := loginModel{
		mode:   modeSignIn,
		inputs: []textinput.Model{name, email, password},
		focus:  fieldEmail,
	}
	m.inputs[m.focus].Focus()
	return m
}

// fields returns the indexes that are active in the current mode, in focus
// order.
func (m *loginModel) fields() []int {
	if m.mode == modeSignUp {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (m *loginModel) toggleMode() {
	if m.mode == modeSignIn {
		m.mode = modeSignUp
	} else {
		m.mode = modeSignIn
	}
	m.errMsg = ""
	m.setFocus(m.fields()[0])
}

func (m *loginModel) setFocus(idx int) {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = idx
	m.inputs[idx].Focus()
}

func (m *loginModel) cycleFocus(delta int) {
	fields := m.fields()
	pos := 0
	for i, f := range fields {
		if f == m.focus {
			pos = i
			break
		}
	}
	pos = (pos + delta + len(fields)) % len(fields)
	m.setFocus(fields[pos])
}

func (m *loginModel) values() (name, email, password string) {
	return strings.TrimSpace(m.inputs[fieldName].Value()),
		strings.TrimSpace(m.inputs[fieldEmail].Value()),
		m.inputs[fieldPassword].Value()
}

// validate checks the form client-side and returns a message for the inline
// error line, or "" when the form is submittable.
func (m *loginModel) validate() string {
	name, email, password := m.values()
	if m.mode == modeSignUp && name == "" {
		return "Name is required"
	}
	if email == "" {
		return "Email is required"
	}
	if password == "" {
		return "Password is required"
	}
	if m.mode == modeSignUp && len(password) < minPasswordLen {
		return fmt.Sprintf("Password must be at least %d characters", minPasswordLen)
	}
	return ""
}

// reset returns the form to a clean signed-out state.
func (m *loginModel) reset() {
	for i := range m.inputs {
		m.inputs[i].Reset()
		m.inputs[i].Blur()
	}
	m.mode = modeSignIn
	m.errMsg = ""
	m.busy = false
	m.setFocus(fieldEmail)
}

func (m *loginModel) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

func (m *loginModel) view(helpView string) string {
	var b strings.Builder

	switch m.mode {
	case modeSignUp:
		b.WriteString(styles.title.Render("Create an account"))
	default:
		b.WriteString(styles.title.Render("Sign in"))
	}
	b.WriteString("\n\n")

	for _, f := range m.fields() {
		b.WriteString(m.inputs[f].View())
		b.WriteString("\n")
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.formErr.Render(m.errMsg))
		b.WriteString("\n")
	}
	if m.busy {
		b.WriteString("\n")
		b.WriteString(styles.meta.Render("Contacting auth service..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpView)
	return b.String()
}
