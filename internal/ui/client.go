package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Transport is the connection the client TUI sends messages over.
// *client.Conn satisfies it.
type Transport interface {
	Send(text string) error
	Receive(timeout time.Duration) (string, error)
}

// rows taken by the header, input line and help line
const clientChromeHeight = 5

type (
	replyMsg   string
	connErrMsg struct{ err error }
)

type clientKeyMap struct {
	Send key.Binding
	Quit key.Binding
}

func (k clientKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Quit}
}

func (k clientKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var clientKeys = clientKeyMap{
	Send: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Quit: key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

// ClientModel is an interactive WebSocket echo client.
type ClientModel struct {
	transport Transport
	url       string

	input    textinput.Model
	viewport viewport.Model
	help     help.Model

	transcript []string
	width      int
	err        error
	quitting   bool
}

// NewClientModel creates the TUI model for a connected transport.
func NewClientModel(t Transport, url string) ClientModel {
	ti := textinput.New()
	ti.Placeholder = "type a message"
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	return ClientModel{
		transport: t,
		url:       url,
		input:     ti,
		viewport:  viewport.New(MinTerminalWidth, 20),
		help:      help.New(),
		width:     MinTerminalWidth,
	}
}

// Transcript returns the plain transcript lines shown so far.
func (m ClientModel) Transcript() []string {
	out := make([]string, len(m.transcript))
	copy(out, m.transcript)
	return out
}

// Err returns the connection error that stopped the session, if any.
func (m ClientModel) Err() error {
	return m.err
}

func (m ClientModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, receiveCmd(m.transport))
}

func (m ClientModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-clientChromeHeight, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, clientKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, clientKeys.Send):
			text := m.input.Value()
			if text == "" || m.err != nil {
				return m, nil
			}
			m.input.Reset()
			m.appendLine(SentMarker + " " + text)
			return m, sendCmd(m.transport, text)
		}

	case replyMsg:
		m.appendLine(RecvMarker + " " + string(msg))
		return m, receiveCmd(m.transport)

	case connErrMsg:
		if m.err == nil {
			m.err = msg.err
			m.appendLine(FailureMarker + " " + msg.err.Error())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ClientModel) View() string {
	if m.quitting {
		return ""
	}

	status := SuccessTitleStyle.Render(SuccessMarker + " connected")
	if m.err != nil {
		status = ErrorTitleStyle.Render(FailureMarker + " disconnected")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		TitleStyle.Render("wiretap client"),
		SubtitleStyle.Render(m.url),
		"  ",
		status,
	)

	return strings.Join([]string{
		header,
		Divider(m.width),
		m.viewport.View(),
		m.input.View(),
		m.help.View(clientKeys),
	}, "\n")
}

func (m *ClientModel) appendLine(line string) {
	m.transcript = append(m.transcript, line)
	m.refresh()
}

func (m *ClientModel) refresh() {
	lines := make([]string, len(m.transcript))
	for i, line := range m.transcript {
		switch {
		case strings.HasPrefix(line, SentMarker):
			lines[i] = SentStyle.Render(line)
		case strings.HasPrefix(line, RecvMarker):
			lines[i] = ReceivedStyle.Render(line)
		default:
			lines[i] = ErrorMessageStyle.Render(line)
		}
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func sendCmd(t Transport, text string) tea.Cmd {
	return func() tea.Msg {
		if err := t.Send(text); err != nil {
			return connErrMsg{err: err}
		}
		return nil
	}
}

// receiveCmd waits for the next reply. It is re-issued after every reply.
func receiveCmd(t Transport) tea.Cmd {
	return func() tea.Msg {
		reply, err := t.Receive(0)
		if err != nil {
			return connErrMsg{err: err}
		}
		return replyMsg(reply)
	}
}

// RunClient runs the interactive client until the user quits.
func RunClient(t Transport, url string) error {
	p := tea.NewProgram(NewClientModel(t, url), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("client UI failed: %w", err)
	}
	if m, ok := final.(ClientModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
