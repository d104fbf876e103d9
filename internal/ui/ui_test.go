package ui

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/develotters/wiretap/internal/discovery"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
	replies chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{replies: make(chan string, 8)}
}

func (f *fakeTransport) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) Receive(time.Duration) (string, error) {
	reply, ok := <-f.replies
	if !ok {
		return "", errors.New("connection closed")
	}
	return reply, nil
}

func update(t *testing.T, m ClientModel, msg tea.Msg) (ClientModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	cm, ok := next.(ClientModel)
	if !ok {
		t.Fatalf("Update returned %T, want ClientModel", next)
	}
	return cm, cmd
}

func TestClientModelSendsOnEnter(t *testing.T) {
	ft := newFakeTransport()
	m := NewClientModel(ft, "ws://localhost:8080/ws")
	m.input.SetValue("hi")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should return a send command")
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("send command returned %v, want nil", msg)
	}

	if len(ft.sent) != 1 || ft.sent[0] != "hi" {
		t.Errorf("sent = %v, want [hi]", ft.sent)
	}
	if m.input.Value() != "" {
		t.Errorf("input = %q, want cleared", m.input.Value())
	}
	if got := m.Transcript(); len(got) != 1 || got[0] != SentMarker+" hi" {
		t.Errorf("transcript = %v", got)
	}
}

func TestClientModelIgnoresEmptyInput(t *testing.T) {
	ft := newFakeTransport()
	m := NewClientModel(ft, "ws://localhost:8080/ws")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("enter on empty input should not send")
	}
	if len(m.Transcript()) != 0 {
		t.Errorf("transcript = %v, want empty", m.Transcript())
	}
}

func TestClientModelShowsReplies(t *testing.T) {
	ft := newFakeTransport()
	ft.replies <- "echo: again"
	m := NewClientModel(ft, "ws://localhost:8080/ws")

	m, cmd := update(t, m, replyMsg("echo: hi"))
	if cmd == nil {
		t.Fatal("a reply should re-arm the receive command")
	}
	if got := cmd(); got != replyMsg("echo: again") {
		t.Errorf("receive command returned %v", got)
	}
	if got := m.Transcript(); len(got) != 1 || got[0] != RecvMarker+" echo: hi" {
		t.Errorf("transcript = %v", got)
	}
}

func TestClientModelConnectionError(t *testing.T) {
	ft := newFakeTransport()
	ft.sendErr = errors.New("broken pipe")
	m := NewClientModel(ft, "ws://localhost:8080/ws")
	m.input.SetValue("hi")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())

	if m.Err() == nil || !strings.Contains(m.Err().Error(), "broken pipe") {
		t.Fatalf("Err() = %v, want broken pipe", m.Err())
	}
	if !strings.Contains(m.View(), "disconnected") {
		t.Error("view should show the disconnected status")
	}

	m.input.SetValue("more")
	if _, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("should not send after the connection failed")
	}
}

func TestClientModelQuit(t *testing.T) {
	for _, k := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		m := NewClientModel(newFakeTransport(), "ws://localhost:8080/ws")
		m, cmd := update(t, m, k)
		if cmd == nil {
			t.Fatalf("%s should quit", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s did not return tea.Quit", k)
		}
		if m.View() != "" {
			t.Errorf("view after quit = %q, want empty", m.View())
		}
	}
}

func TestClientModelResize(t *testing.T) {
	m := NewClientModel(newFakeTransport(), "ws://localhost:8080/ws")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 90, Height: 30})

	if m.viewport.Width != 90 || m.viewport.Height != 30-clientChromeHeight {
		t.Errorf("viewport = %dx%d", m.viewport.Width, m.viewport.Height)
	}
}

func TestPrintServices(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	p.PrintServices([]*discovery.Service{
		{Instance: "wiretap-a", IP: "192.168.1.10", Port: 8080, Mode: "http", Version: "1.0.0"},
		{Instance: "wiretap-b", IP: "192.168.1.11", Port: 9000, Mode: "tcp", Version: "1.0.0"},
	})

	out := buf.String()
	for _, want := range []string{"INSTANCE", "wiretap-a", "ws://192.168.1.10:8080/ws", "192.168.1.11:9000", "tcp"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintServicesEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintServices(nil)

	if !strings.Contains(buf.String(), "No wiretap listeners found") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).SetWidth(70).PrintError("Discovery failed", errors.New("no multicast"), []string{"check the firewall"})

	out := buf.String()
	for _, want := range []string{"Discovery failed", "no multicast", "check the firewall"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
