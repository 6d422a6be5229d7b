package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"taskchat/internal/chat"
	"taskchat/internal/session"
)

const defaultWrapWidth = 80

// chatModel is the conversation view: a viewport over the message log, an
// input line, and a spinner while a turn is on the wire.
type chatModel struct {
	client   *chat.Client
	user     session.User
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	sending bool
	width   int
	height  int
	ready   bool
}

func newChatModel(client *chat.Client, user session.User) chatModel {
	input := textinput.New()
	input.Placeholder = "Ask your assistant..."
	input.Prompt = styles.prompt.Render("> ")
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.spin))

	return chatModel{
		client: client,
		user:   user,
		input:  input,
		spin:   spin,
	}
}

func (m *chatModel) setSize(width, height int) {
	m.width = width
	m.height = height

	// Header, input line, and help line frame the viewport.
	vpHeight := height - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 4

	wrap := width - 4
	if wrap < 20 {
		wrap = defaultWrapWidth
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.refresh()
}

// refresh re-renders the transcript from the client's message log.
func (m *chatModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *chatModel) transcript() string {
	messages := m.client.Messages()
	if len(messages) == 0 {
		return styles.meta.Render("No messages yet. Ask your assistant to add, list, or complete tasks.")
	}

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case chat.RoleUser:
			line := styles.user.Render("You: ") + msg.Content
			b.WriteString(lipgloss.NewStyle().Width(m.width).Align(lipgloss.Right).Render(line))
			b.WriteString("\n")
		default:
			b.WriteString(m.renderAssistant(msg))
		}
	}
	return b.String()
}

func (m *chatModel) renderAssistant(msg chat.Message) string {
	var b strings.Builder

	if msg.Err {
		b.WriteString(styles.errMsg.Render("Assistant: " + msg.Content))
		b.WriteString("\n")
	} else {
		b.WriteString(styles.assistant.Render("Assistant:"))
		b.WriteString("\n")
		b.WriteString(m.markdown(msg.Content))
	}

	for _, tc := range msg.ToolCalls {
		detail := fmt.Sprintf("  ⚙ %s(%s)", tc.Name, compactJSON(tc.Arguments))
		if len(tc.Result) > 0 {
			detail += " → " + compactJSON(tc.Result)
		}
		b.WriteString(styles.toolCall.Render(detail))
		b.WriteString("\n")
	}

	meta := fmt.Sprintf("  %.2fs", msg.Latency.Seconds())
	if n := len(msg.ToolCalls); n == 1 {
		meta += " · 1 tool call"
	} else if n > 1 {
		meta += fmt.Sprintf(" · %d tool calls", n)
	}
	b.WriteString(styles.meta.Render(meta))
	b.WriteString("\n")
	return b.String()
}

// markdown renders assistant text via glamour, falling back to the raw text
// when no renderer is available.
func (m *chatModel) markdown(content string) string {
	if m.renderer == nil {
		return content + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return strings.TrimLeft(out, "\n")
}

// compactJSON flattens a raw JSON value into a short single-line form for the
// tool-call detail line. Truncation lands on a rune boundary.
func compactJSON(raw []byte) string {
	s := strings.Join(strings.Fields(string(raw)), " ")
	const maxLen = 120
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func (m *chatModel) view(helpView string) string {
	header := styles.title.Render(fmt.Sprintf("taskchat — %s", m.user.Email))

	inputLine := m.input.View()
	if m.sending {
		inputLine = m.spin.View() + " " + styles.meta.Render("waiting for the assistant...")
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", header, m.viewport.View(), inputLine, helpView)
}
