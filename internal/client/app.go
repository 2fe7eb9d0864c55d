package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/plazalabs/plaza/internal/config"
	"github.com/plazalabs/plaza/internal/protocol"
)

type envelopeMsg protocol.Envelope

type connectedMsg struct{ conn *Conn }

type connClosedMsg struct{ err error }

type errMsg struct{ err error }

// App is the bubbletea model for the terminal client.
type App struct {
	cfg    config.ClientConfig
	styles styleSet

	viewport viewport.Model
	input    textinput.Model

	conn     *Conn
	identity string
	nickname string
	room     string

	history   []string
	userCount int
	logLine   string

	width  int
	height int
	ready  bool
}

// NewApp constructs the client model.
func NewApp(cfg config.ClientConfig) *App {
	input := textinput.New()
	input.Placeholder = "type a message, or /help"
	input.Prompt = "> "
	input.Focus()

	return &App{
		cfg:    cfg,
		styles: buildStyles(),
		input:  input,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if a.conn != nil {
				_ = a.conn.Close()
			}
			return a, tea.Quit
		case tea.KeyEnter:
			return a, a.submit()
		}

	case connectedMsg:
		a.conn = msg.conn
		a.log("connected to " + a.cfg.ServerURL)
		return a, a.waitForEvent()

	case envelopeMsg:
		a.handleEvent(protocol.Envelope(msg))
		return a, a.waitForEvent()

	case connClosedMsg:
		a.conn = nil
		a.room = ""
		a.log(fmt.Sprintf("connection closed: %v", msg.err))
		return a, nil

	case errMsg:
		a.log(msg.err.Error())
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) submit() tea.Cmd {
	value := strings.TrimSpace(a.input.Value())
	a.input.SetValue("")
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, a.cfg.CommandPrefix) {
		return a.runCommand(strings.TrimPrefix(value, a.cfg.CommandPrefix))
	}
	return a.sendChat(value)
}

func (a *App) sendChat(content string) tea.Cmd {
	if a.conn == nil {
		a.log("not connected; use /connect first")
		return nil
	}
	if a.room == "" {
		a.log("join a room first: /join <nickname> <room>")
		return nil
	}
	if err := a.conn.Emit(protocol.EventMessage, protocol.MessagePayload{Room: a.room, Content: content}); err != nil {
		a.log(err.Error())
	}
	return nil
}

func (a *App) waitForEvent() tea.Cmd {
	conn := a.conn
	return func() tea.Msg {
		env, ok := <-conn.incoming
		if !ok {
			return connClosedMsg{err: <-conn.closed}
		}
		return envelopeMsg(env)
	}
}

func (a *App) handleEvent(env protocol.Envelope) {
	switch env.Event {
	case protocol.EventUserJoin, protocol.EventUserExit:
		var notice string
		if err := json.Unmarshal(env.Data, &notice); err == nil {
			a.appendLine(a.styles.notice.Render(notice))
		}
	case protocol.EventUserList:
		var payload protocol.UserListPayload
		if err := json.Unmarshal(env.Data, &payload); err == nil {
			a.appendLine(a.styles.notice.Render("users: " + strings.Join(payload.UserList, ", ")))
		}
	case protocol.EventUserCount:
		var payload protocol.UserCountPayload
		if err := json.Unmarshal(env.Data, &payload); err == nil {
			a.userCount = payload.UserCount
		}
	case protocol.EventMessage:
		var record protocol.ChatMessage
		if err := json.Unmarshal(env.Data, &record); err == nil {
			line := fmt.Sprintf("[%s] %s: %s", record.CreatedAt.Format("15:04"), record.SenderName, record.Content)
			a.appendLine(line)
		}
	case protocol.EventDM:
		var record protocol.DirectMessage
		if err := json.Unmarshal(env.Data, &record); err == nil {
			a.appendLine(a.styles.dm.Render(fmt.Sprintf("(dm) %s -> %s: %s", record.SenderID, record.ReceiverID, record.Content)))
		}
	}
}

func (a *App) appendLine(line string) {
	a.history = append(a.history, line)
	a.refreshViewport()
}

func (a *App) log(line string) {
	a.logLine = line
}
