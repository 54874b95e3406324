package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// TitleStyle styles the line above the table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))

	statusStyles = map[string]lipgloss.Style{
		"rendered": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"complete": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		"probing":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"rendering": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		"skipped":   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"fallback":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"cut short": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		"error": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		"pending": lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
