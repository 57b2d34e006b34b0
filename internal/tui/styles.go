package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy   = lipgloss.Color("#1B2A4A")
	ColorBlue   = lipgloss.Color("#5FAFFF")
	ColorGray   = lipgloss.Color("#808080")
	ColorWhite  = lipgloss.Color("#EEEEEE")
	ColorGreen  = lipgloss.Color("#5FD75F")
	ColorYellow = lipgloss.Color("#FFD75F")
	ColorOrange = lipgloss.Color("#FFAF00")
	ColorRed    = lipgloss.Color("#FF5F5F")
)

const drawerWidth = 28

var (
	headerStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite).
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite)

	mutedStyle  = lipgloss.NewStyle().Foreground(ColorGray)
	activeStyle = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(ColorRed)
)

// stateColor picks a status bar color for a navigator state name.
func stateColor(state string) lipgloss.Color {
	switch state {
	case "idle":
		return ColorGreen
	case "requesting", "swapping":
		return ColorYellow
	case "retry":
		return ColorOrange
	case "failed":
		return ColorRed
	}
	return ColorWhite
}
