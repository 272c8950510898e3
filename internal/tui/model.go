// Package tui is the terminal chat front end.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/usecases"
)

// ChatPort is the TUI-facing subset of the chat use case.
type ChatPort interface {
	Ask(ctx context.Context, sess entities.Session, question string) (*usecases.Stream, error)
}

type streamOpenedMsg struct{ stream *usecases.Stream }

type askFailedMsg struct{ err error }

type fragmentMsg string

type streamEndMsg struct{}

// Model is the Bubble Tea model for the chat screen. Fragments are pulled
// one Cmd at a time, so the stream is only ever touched by one goroutine.
type Model struct {
	chat     ChatPort
	sess     entities.Session
	input    textinput.Model
	viewport viewport.Model
	status   string
	ready    bool

	question string
	partial  strings.Builder
	stream   *usecases.Stream
	cancel   context.CancelFunc
	quitting bool
}

// New creates a chat screen for sess.
func New(chat ChatPort, sess entities.Session) *Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	status := "Plain chat. Esc stops an answer, Ctrl+C quits."
	if sess.HasDocument() {
		status = fmt.Sprintf("%s loaded (%d paragraphs). Esc stops an answer, Ctrl+C quits.",
			sess.Document.Name, len(sess.Document.Paragraphs))
	}
	return &Model{
		chat:     chat,
		sess:     sess,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   status,
	}
}

// Session returns the conversation as it stands.
func (m *Model) Session() entities.Session {
	return m.sess
}

// Init initializes the model (text input cursor blink).
func (m *Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and stream events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-fh)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.cancel == nil {
				return m, tea.Quit
			}
			m.quitting = true
			m.cancel()
			return m, nil
		case tea.KeyEsc:
			if m.cancel != nil {
				m.status = "Stopping..."
				m.cancel()
			}
			return m, nil
		case tea.KeyEnter:
			return m, m.ask()
		}

	case streamOpenedMsg:
		m.stream = msg.stream
		return m, nextFragment(m.stream)

	case askFailedMsg:
		m.status = "Error: " + msg.err.Error()
		m.finish()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case fragmentMsg:
		m.partial.WriteString(string(msg))
		m.refresh()
		return m, nextFragment(m.stream)

	case streamEndMsg:
		m.sess = m.stream.Close()
		switch m.stream.Status() {
		case usecases.StreamFailed:
			m.status = "Error: " + m.stream.Err().Error()
		case usecases.StreamStopped:
			m.status = "Answer stopped."
		default:
			m.status = "Ready."
		}
		m.finish()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask opens a stream for the typed question. Questions typed while an
// answer is streaming are ignored.
func (m *Model) ask() tea.Cmd {
	q := strings.TrimSpace(m.input.Value())
	if q == "" || m.cancel != nil {
		return nil
	}
	m.input.Reset()
	m.question = q
	m.partial.Reset()
	m.status = "Thinking..."

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.refresh()

	chat, sess := m.chat, m.sess
	return func() tea.Msg {
		stream, err := chat.Ask(ctx, sess, q)
		if err != nil {
			return askFailedMsg{err: err}
		}
		return streamOpenedMsg{stream: stream}
	}
}

func nextFragment(s *usecases.Stream) tea.Cmd {
	return func() tea.Msg {
		if s.Next() {
			return fragmentMsg(s.Text())
		}
		return streamEndMsg{}
	}
}

func (m *Model) finish() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.stream = nil
	m.question = ""
	m.partial.Reset()
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the TUI layout.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docchat")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) renderTranscript() string {
	width := max(20, m.viewport.Width-4)
	wrap := lipgloss.NewStyle().Width(width)

	var sb strings.Builder
	for _, msg := range m.sess.Messages {
		sb.WriteString(renderTurn(wrap, msg.Role, msg.Content))
	}
	if m.question != "" {
		sb.WriteString(renderTurn(wrap, entities.RoleUser, m.question))
		sb.WriteString(renderTurn(wrap, entities.RoleAssistant, m.partial.String()+"▊"))
	}
	if sb.Len() == 0 {
		return "No messages yet."
	}
	return sb.String()
}

func renderTurn(wrap lipgloss.Style, role entities.Role, content string) string {
	label := assistantStyle.Render("Assistant")
	if role == entities.RoleUser {
		label = userStyle.Render("You")
	}
	return label + "\n" + wrap.Render(content) + "\n\n"
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
