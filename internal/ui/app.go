package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"taskchat/internal/chat"
	"taskchat/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	ChatView
)

// Model is the application shell. It owns the session client, switches
// between the login form and the chat view, and creates the chat client once
// a session is established.
type Model struct {
	ctx     context.Context
	view    ViewState
	session *session.Client
	apiBase string
	logger  *log.Logger

	login loginModel
	chat  chatModel

	width  int
	height int
	keys   keyMap
	help   help.Model
}

type sessionCheckedMsg struct {
	session *session.Session
	err     error
}

type authDoneMsg struct {
	session *session.Session
	err     error
}

type sendDoneMsg struct {
	reply *chat.Message
}

type sendSkippedMsg struct {
	err error
}

type signedOutMsg struct {
	err error
}

// NewModel creates the application shell. apiBase is the task backend the
// chat client talks to once a session exists.
func NewModel(ctx context.Context, sessionClient *session.Client, apiBase string, logger *log.Logger) *Model {
	return &Model{
		ctx:     ctx,
		view:    LoginView,
		session: sessionClient,
		apiBase: apiBase,
		logger:  logger,
		login:   newLoginModel(),
		keys:    newKeyMap(),
		help:    help.New(),
	}
}

// Init probes for an existing session so a restart with live cookies lands
// straight in the chat.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.checkSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ChatView {
			m.chat.setSize(msg.Width, msg.Height)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case ChatView:
			return m.handleChatKeys(msg)
		}

	case spinner.TickMsg:
		if m.view == ChatView && m.chat.sending {
			var cmd tea.Cmd
			m.chat.spin, cmd = m.chat.spin.Update(msg)
			// Re-render on every tick so the optimistic user message shows
			// while the reply is still on the wire.
			m.chat.refresh()
			return m, cmd
		}
		return m, nil

	case sessionCheckedMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, session.ErrNoSession) {
				m.logger.Warn("session probe failed", "err", msg.err)
			}
			return m, nil
		}
		m.enterChat(msg.session)
		return m, nil

	case authDoneMsg:
		m.login.busy = false
		if msg.err != nil {
			m.login.errMsg = msg.err.Error()
			m.logger.Info("auth failed", "err", msg.err)
			return m, nil
		}
		m.enterChat(msg.session)
		return m, nil

	case sendDoneMsg:
		m.chat.sending = false
		m.chat.refresh()
		m.chat.input.Focus()
		if msg.reply != nil && msg.reply.Err {
			m.logger.Info("assistant turn failed", "text", msg.reply.Content)
		}
		return m, textinput.Blink

	case sendSkippedMsg:
		m.chat.sending = false
		m.chat.refresh()
		m.chat.input.Focus()
		return m, nil

	case signedOutMsg:
		if msg.err != nil {
			m.logger.Warn("sign-out failed upstream", "err", msg.err)
		}
		m.login.reset()
		m.view = LoginView
		return m, textinput.Blink
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ChatView:
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.newChat, m.keys.logout, m.keys.quit})
		return m.chat.view(helpView)
	default:
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.toggle, m.keys.submit, m.keys.quit})
		return m.login.view(helpView)
	}
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.toggle):
		m.login.toggleMode()
		return m, nil

	case key.Matches(msg, m.keys.nextField):
		m.login.cycleFocus(1)
		return m, nil

	case key.Matches(msg, m.keys.prevField):
		m.login.cycleFocus(-1)
		return m, nil

	case key.Matches(msg, m.keys.submit):
		if m.login.busy {
			return m, nil
		}
		if errMsg := m.login.validate(); errMsg != "" {
			m.login.errMsg = errMsg
			return m, nil
		}
		m.login.errMsg = ""
		m.login.busy = true
		return m, m.submitLogin()
	}

	return m, m.login.updateInputs(msg)
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.newChat):
		if m.chat.sending {
			return m, nil
		}
		m.chat.client.NewChat()
		m.chat.refresh()
		return m, nil

	case key.Matches(msg, m.keys.logout):
		if m.chat.sending {
			return m, nil
		}
		return m, m.signOut()

	case key.Matches(msg, m.keys.submit):
		if m.chat.sending {
			return m, nil
		}
		text := m.chat.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.chat.input.Reset()
		m.chat.sending = true
		return m, tea.Batch(m.chat.spin.Tick, m.sendMessage(text))
	}

	var cmd tea.Cmd
	m.chat.input, cmd = m.chat.input.Update(msg)
	return m, cmd
}

// enterChat builds the chat client for the signed-in user and switches views.
func (m *Model) enterChat(s *session.Session) {
	client := chat.NewClient(m.apiBase, s.User.ID, m.session)
	m.chat = newChatModel(client, s.User)
	if m.width > 0 {
		m.chat.setSize(m.width, m.height)
	}
	m.view = ChatView
	m.logger.Info("session established", "user_id", s.User.ID)
}

func (m *Model) checkSession() tea.Cmd {
	return func() tea.Msg {
		s, err := m.session.CurrentSession(m.ctx)
		return sessionCheckedMsg{session: s, err: err}
	}
}

func (m *Model) submitLogin() tea.Cmd {
	name, email, password := m.login.values()
	signUp := m.login.mode == modeSignUp
	return func() tea.Msg {
		var s *session.Session
		var err error
		if signUp {
			s, err = m.session.SignUp(m.ctx, name, email, password)
		} else {
			s, err = m.session.SignIn(m.ctx, email, password)
		}
		return authDoneMsg{session: s, err: err}
	}
}

func (m *Model) sendMessage(text string) tea.Cmd {
	client := m.chat.client
	return func() tea.Msg {
		reply, err := client.Send(m.ctx, text)
		if err != nil {
			return sendSkippedMsg{err: err}
		}
		return sendDoneMsg{reply: reply}
	}
}

func (m *Model) signOut() tea.Cmd {
	return func() tea.Msg {
		err := m.session.SignOut(m.ctx)
		return signedOutMsg{err: err}
	}
}
