package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fjall/logport"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	statusStoppedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true)

	statusListeningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Bold(true)

	statusConnectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	errLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// levelStyles colors log lines by wire severity, mirroring the severity
// colors of the log stream.
var levelStyles = map[logport.Level]lipgloss.Style{
	logport.LevelDebug:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	logport.LevelInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	logport.LevelWarn:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	logport.LevelError:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	logport.LevelCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Bold(true),
}

func levelStyle(level logport.Level) lipgloss.Style {
	if style, ok := levelStyles[level]; ok {
		return style
	}
	return levelStyles[logport.LevelInfo]
}
