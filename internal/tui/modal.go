package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// renderModal draws a centered, scrollable box over the whole screen.
func renderModal(vp *viewport.Model, title, content, hint string, width, height int) string {
	modalWidth := width - 8   // 4 chars margin on each side
	modalHeight := height - 4 // 2 lines margin top and bottom
	if modalWidth < 20 || modalHeight < 6 {
		return content
	}

	contentWidth := modalWidth - 4
	contentHeight := modalHeight - 4

	vp.Width = contentWidth
	vp.Height = contentHeight
	vp.SetContent(lipgloss.NewStyle().Width(contentWidth).Render(content))

	pane := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Render(vp.View())

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorBlue).
		Bold(true).
		Render(title)

	modal := lipgloss.JoinVertical(lipgloss.Left, header, pane, mutedStyle.Render(hint))

	framed := lipgloss.NewStyle().
		Width(modalWidth).
		Height(modalHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Render(modal)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, framed)
}

func helpContent(k KeyMap) string {
	var b strings.Builder
	for i, g := range k.Groups() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(activeStyle.Render(g.Title))
		b.WriteString("\n")
		for _, binding := range g.Bindings {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-12s %s\n", h.Key, h.Desc)
		}
	}
	return b.String()
}
