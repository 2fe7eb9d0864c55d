package client

import (
	"encoding/json"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/plazalabs/plaza/internal/protocol"
)

func (a *App) runCommand(line string) tea.Cmd {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "connect":
		return a.connectCmd()
	case "login":
		return a.loginCmd(args)
	case "join":
		return a.joinCmd(args)
	case "exit":
		return a.exitCmd()
	case "users":
		return a.usersCmd()
	case "dm":
		return a.dmCmd(args)
	case "help":
		a.showHelp()
		return nil
	case "quit":
		if a.conn != nil {
			_ = a.conn.Close()
		}
		return tea.Quit
	default:
		a.log("unknown command: " + command)
		return nil
	}
}

func (a *App) connectCmd() tea.Cmd {
	if a.conn != nil {
		a.log("already connected")
		return nil
	}
	url := a.cfg.ServerURL
	return func() tea.Msg {
		conn, err := Dial(url)
		if err != nil {
			return errMsg{err: err}
		}
		return connectedMsg{conn: conn}
	}
}

func (a *App) loginCmd(args []string) tea.Cmd {
	if a.conn == nil {
		a.log("not connected; use /connect first")
		return nil
	}
	if len(args) < 1 {
		a.log("usage: /login <id> [token]")
		return nil
	}
	payload := protocol.UserLoginPayload{ID: args[0]}
	if len(args) > 1 {
		payload.Token = args[1]
	}
	if err := a.conn.Emit(protocol.EventUserLogin, payload); err != nil {
		a.log(err.Error())
		return nil
	}
	a.identity = args[0]
	a.log("logged in as " + a.identity)
	return nil
}

func (a *App) joinCmd(args []string) tea.Cmd {
	if a.conn == nil {
		a.log("not connected; use /connect first")
		return nil
	}
	if len(args) < 2 {
		a.log("usage: /join <nickname> <room>")
		return nil
	}
	nickname, room := args[0], args[1]
	if err := a.conn.Emit(protocol.EventRoomJoin, protocol.RoomJoinPayload{Nickname: nickname, Room: room}); err != nil {
		a.log(err.Error())
		return nil
	}
	a.nickname = nickname
	a.room = room
	a.log("joined " + room)
	return nil
}

func (a *App) exitCmd() tea.Cmd {
	if a.conn == nil || a.room == "" {
		a.log("not in a room")
		return nil
	}
	if err := a.conn.Emit(protocol.EventRoomExit, nil); err != nil {
		a.log(err.Error())
		return nil
	}
	a.log("left " + a.room)
	a.room = ""
	a.userCount = 0
	return nil
}

func (a *App) usersCmd() tea.Cmd {
	if a.conn == nil || a.room == "" {
		a.log("not in a room")
		return nil
	}
	data, err := json.Marshal(a.room)
	if err != nil {
		a.log(err.Error())
		return nil
	}
	if err := a.conn.EmitRaw(protocol.EventGetRoomUserList, data); err != nil {
		a.log(err.Error())
	}
	return nil
}

func (a *App) dmCmd(args []string) tea.Cmd {
	if a.conn == nil {
		a.log("not connected; use /connect first")
		return nil
	}
	if len(args) < 2 {
		a.log("usage: /dm <receiver-id> <message>")
		return nil
	}
	payload := protocol.DMPayload{
		ReceiverID: args[0],
		Content:    strings.Join(args[1:], " "),
	}
	if err := a.conn.Emit(protocol.EventDM, payload); err != nil {
		a.log(err.Error())
	}
	return nil
}

func (a *App) showHelp() {
	for _, line := range []string{
		"/connect                 connect to the gateway",
		"/login <id> [token]      register this connection for DMs",
		"/join <nickname> <room>  join a room",
		"/exit                    leave the current room",
		"/users                   resync the room roster",
		"/dm <id> <message>       send a direct message",
		"/quit                    close and exit",
	} {
		a.appendLine(a.styles.notice.Render(line))
	}
}
