package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/edetail/internal/menu"
	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

type drawerRow struct {
	node  *sitemap.Node
	depth int
}

// drawerRows lists the visible menu entries. Hidden pages never appear and
// children are listed only while their parent is open.
func drawerRows(pages []*sitemap.Node, m *menu.Menu) []drawerRow {
	var rows []drawerRow
	sitemap.Walk(pages, func(n, _ *sitemap.Node, depth int) bool {
		if n.Kind == model.KindHidden || n.Kind == model.KindButton {
			return false
		}
		rows = append(rows, drawerRow{node: n, depth: depth})
		return n.HasChildren() && m.Item(n.ID).Open
	})
	return rows
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

func renderDrawer(rows []drawerRow, m *menu.Menu, cursor, height int) string {
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, lipgloss.NewStyle().Bold(true).Render("Menu"), "")

	for i, row := range rows {
		st := m.Item(row.node.ID)
		marker := "  "
		switch {
		case row.node.HasChildren() && st.Open:
			marker = "▾ "
		case row.node.HasChildren():
			marker = "▸ "
		}
		title := row.node.Title
		if title == "" {
			title = row.node.ID
		}
		label := strings.Repeat("  ", row.depth) + marker + title

		maxWidth := drawerWidth - 4
		if lipgloss.Width(label) > maxWidth && maxWidth > 3 {
			label = string([]rune(label)[:maxWidth-1]) + "~"
		}

		switch {
		case i == cursor:
			label = activeStyle.Render(label)
		case st.Active:
			label = lipgloss.NewStyle().Foreground(ColorGreen).Render(label)
		}
		lines = append(lines, label)
	}

	return lipgloss.NewStyle().
		Width(drawerWidth-2).
		Height(height).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorBlue).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderButtonBar(buttons []*sitemap.Node, active string) string {
	if len(buttons) == 0 {
		return ""
	}
	parts := make([]string, 0, len(buttons))
	for _, b := range buttons {
		label := "[" + b.Title + "]"
		if b.Title == "" {
			label = "[" + b.ID + "]"
		}
		if b.Key() == active {
			label = activeStyle.Render(label)
		} else {
			label = mutedStyle.Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " ")
}
