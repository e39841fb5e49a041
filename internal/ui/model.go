// Package ui is the terminal front-end for the logport server: host/port
// and message inputs, server and receive toggles, and a scrolling pane of
// received log records. It consumes controller notifications and never
// touches the connection directly.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fjall/logport"
)

// Input focus order.
const (
	focusHost = iota
	focusPort
	focusMessage
	focusCount
)

type keyMap struct {
	Tab      key.Binding
	Server   key.Binding
	Receive  key.Binding
	FileMode key.Binding
	Send     key.Binding
	Clear    key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Server, k.Send, k.FileMode, k.Receive, k.Clear, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Server, k.Send},
		{k.FileMode, k.Receive, k.Clear, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Server: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "start/stop server"),
		),
		Receive: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "pause/resume receiving"),
		),
		FileMode: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "string/file mode"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear log"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// logLine is one rendered entry of the log pane.
type logLine struct {
	level  logport.Level
	source string
	text   string
}

// noteMsg wraps a controller notification for the bubbletea loop.
type noteMsg logport.Notification

// Model is the bubbletea model for the logport front-end.
type Model struct {
	ctrl *logport.Controller

	host    textinput.Model
	port    textinput.Model
	message textinput.Model
	focus   int

	fileMode  bool
	receiving bool
	peerAddr  string
	lastErr   string

	lines []logLine

	width  int
	height int

	keys keyMap
	help help.Model
}

// New builds the front-end model with prefilled host and port inputs.
func New(ctrl *logport.Controller, host string, port int) Model {
	hostInput := textinput.New()
	hostInput.SetValue(host)
	hostInput.CharLimit = 253
	hostInput.Width = 20
	hostInput.Focus()

	portInput := textinput.New()
	portInput.SetValue(strconv.Itoa(port))
	portInput.CharLimit = 5
	portInput.Width = 8

	messageInput := textinput.New()
	messageInput.Placeholder = "type a string to send"
	messageInput.Width = 50

	return Model{
		ctrl:    ctrl,
		host:    hostInput,
		port:    portInput,
		message: messageInput,
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listen(m.ctrl))
}

// listen waits for the next controller notification.
func listen(ctrl *logport.Controller) tea.Cmd {
	return func() tea.Msg {
		return noteMsg(<-ctrl.Notifications())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case noteMsg:
		return m.handleNote(logport.Notification(msg))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleNote(note logport.Notification) (tea.Model, tea.Cmd) {
	switch note.Kind {
	case logport.NotePeerConnected:
		m.peerAddr = note.Addr
		m.receiving = true
		m.lines = append(m.lines, logLine{
			level:  logport.LevelInfo,
			source: "server",
			text:   "connection established: " + note.Addr,
		})
	case logport.NotePeerLost:
		m.peerAddr = ""
		m.receiving = false
		m.lines = append(m.lines, logLine{
			level:  logport.LevelInfo,
			source: "server",
			text:   "peer lost, listening for connections",
		})
	case logport.NoteLogRecord:
		m.lines = append(m.lines, logLine{
			level:  note.Level,
			source: note.Source,
			text:   note.Text,
		})
	}
	return m, listen(m.ctrl)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctrl.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab):
		m.focus = (m.focus + 1) % focusCount
		m.host.Blur()
		m.port.Blur()
		m.message.Blur()
		switch m.focus {
		case focusHost:
			m.host.Focus()
		case focusPort:
			m.port.Focus()
		case focusMessage:
			m.message.Focus()
		}
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Server):
		return m.toggleServer()

	case key.Matches(msg, m.keys.Receive):
		return m.toggleReceiving()

	case key.Matches(msg, m.keys.FileMode):
		m.fileMode = !m.fileMode
		if m.fileMode {
			m.message.Placeholder = "path to a JSON file to send"
		} else {
			m.message.Placeholder = "type a string to send"
		}
		return m, nil

	case key.Matches(msg, m.keys.Send):
		if m.focus != focusMessage {
			return m, nil
		}
		return m.send()

	case key.Matches(msg, m.keys.Clear):
		m.lines = nil
		m.lastErr = ""
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) toggleServer() (tea.Model, tea.Cmd) {
	if m.ctrl.State() != logport.StateStopped {
		m.ctrl.Stop()
		m.peerAddr = ""
		m.receiving = false
		m.lastErr = ""
		return m, nil
	}

	port, err := strconv.Atoi(strings.TrimSpace(m.port.Value()))
	if err != nil {
		m.lastErr = "port must be an integer"
		return m, nil
	}
	if err = m.ctrl.Start(strings.TrimSpace(m.host.Value()), port); err != nil {
		m.lastErr = err.Error()
		return m, nil
	}
	m.lastErr = ""
	return m, nil
}

func (m Model) toggleReceiving() (tea.Model, tea.Cmd) {
	if m.receiving {
		m.ctrl.StopReceiving()
		m.receiving = false
		return m, nil
	}
	if err := m.ctrl.StartReceiving(); err != nil {
		m.lastErr = err.Error()
		return m, nil
	}
	m.receiving = true
	return m, nil
}

func (m Model) send() (tea.Model, tea.Cmd) {
	value := m.message.Value()

	var err error
	if m.fileMode {
		err = m.ctrl.SendFile(value)
	} else {
		err = m.ctrl.Send(value)
	}
	if err != nil {
		m.lastErr = err.Error()
		return m, nil
	}
	m.lastErr = ""
	return m, nil
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusHost:
		m.host, cmd = m.host.Update(msg)
	case focusPort:
		m.port, cmd = m.port.Update(msg)
	case focusMessage:
		m.message, cmd = m.message.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("logport"))
	b.WriteString("\n\n")

	settings := fmt.Sprintf("%s %s  %s %s  %s",
		labelStyle.Render("host"), m.host.View(),
		labelStyle.Render("port"), m.port.View(),
		m.statusView(),
	)
	b.WriteString(boxStyle.Render(settings))
	b.WriteString("\n")

	mode := "string"
	if m.fileMode {
		mode = "JSON file"
	}
	send := fmt.Sprintf("%s %s\n%s", labelStyle.Render("send ("+mode+")"), m.message.View(), m.errView())
	b.WriteString(boxStyle.Render(send))
	b.WriteString("\n")

	b.WriteString(boxStyle.Render(m.logView()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) statusView() string {
	switch m.ctrl.State() {
	case logport.StateConnected:
		status := "connected: " + m.peerAddr
		if !m.receiving {
			status += " (receiving paused)"
		}
		return statusConnectedStyle.Render(status)
	case logport.StateListening:
		return statusListeningStyle.Render("listening")
	default:
		return statusStoppedStyle.Render("stopped")
	}
}

func (m Model) errView() string {
	if m.lastErr == "" {
		return ""
	}
	return errLineStyle.Render("error: " + m.lastErr)
}

// logView renders the newest log lines that fit the pane.
func (m Model) logView() string {
	visible := m.height - 12
	if visible < 5 {
		visible = 5
	}

	lines := m.lines
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	if len(lines) == 0 {
		return labelStyle.Render("create a server and connect a client to receive messages")
	}

	rendered := make([]string, 0, len(lines))
	for _, line := range lines {
		rendered = append(rendered, fmt.Sprintf("%s %s %s",
			levelStyle(line.level).Render(strings.ToUpper(line.level.String())),
			sourceStyle.Render(line.source),
			line.text,
		))
	}
	return strings.Join(rendered, "\n")
}
