package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
)

type styleSet struct {
	title  lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	notice lipgloss.Style
	dm     lipgloss.Style
	logged lipgloss.Style
}

func buildStyles() styleSet {
	base := lipgloss.NewStyle()
	return styleSet{
		title:  base.Foreground(lipgloss.Color("13")).Bold(true),
		label:  base.Foreground(lipgloss.Color("8")),
		value:  base.Foreground(lipgloss.Color("15")),
		notice: base.Foreground(lipgloss.Color("11")),
		dm:     base.Foreground(lipgloss.Color("14")),
		logged: base.Foreground(lipgloss.Color("7")),
	}
}

var homeContent = buildHomeContent()

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	b.WriteString(a.input.View())
	b.WriteString("\n")
	b.WriteString(a.styles.logged.Render(a.logLine))
	b.WriteString("\n")
	b.WriteString(a.statusLine())
	return b.String()
}

func (a *App) statusLine() string {
	status := "OFFLINE"
	if a.conn != nil {
		status = "ONLINE"
	}
	room := a.room
	if room == "" {
		room = "-"
	}
	identity := a.identity
	if identity == "" {
		identity = "-"
	}

	parts := []string{
		a.styles.title.Render("Plaza"),
		a.styles.value.Render(status),
		a.styles.label.Render("User") + ": " + a.styles.value.Render(identity),
		a.styles.label.Render("Room") + ": " + a.styles.value.Render(room),
		a.styles.label.Render("Online") + ": " + a.styles.value.Render(fmt.Sprintf("%d", a.userCount)),
	}
	return strings.Join(parts, " | ")
}

func (a *App) layout() {
	const fixed = 3
	height := a.height - fixed
	if height < 3 {
		height = 3
	}
	if !a.ready {
		a.viewport = viewport.New(a.width, height)
		a.ready = true
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = height
	}
	a.input.Width = a.width - lipgloss.Width(a.input.Prompt) - 1
	a.refreshViewport()
}

func (a *App) refreshViewport() {
	if !a.ready {
		return
	}
	if len(a.history) == 0 {
		a.viewport.SetContent(homeContent)
		return
	}
	a.viewport.SetContent(strings.Join(a.history, "\n"))
	a.viewport.GotoBottom()
}

func buildHomeContent() string {
	fig := figure.NewColorFigure("PLAZA", "3-d", "green", true)
	art := strings.TrimRight(fig.String(), "\n")
	info := []string{
		"Use /connect to reach the gateway.",
		"Use /login <id> to register this connection.",
		"Use /join <nickname> <room> to enter a room.",
		"Use /dm <id> <message> for direct messages.",
		"Use /help to browse all commands.",
	}

	var b strings.Builder
	b.WriteString(art)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(info, "\n"))
	return b.String()
}
