package tui

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/charmbracelet/lipgloss"
)

// fragmentRenderer turns HTML fragments into wrapped terminal text. The
// last conversion is cached because the same surface is redrawn on every
// frame.
type fragmentRenderer struct {
	conv *converter.Converter

	lastHTML  string
	lastWidth int
	lastOut   string
}

func newFragmentRenderer() *fragmentRenderer {
	return &fragmentRenderer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Render converts html and wraps it to width. Markup that fails to convert
// is shown as-is.
func (r *fragmentRenderer) Render(html string, width int) string {
	if html == r.lastHTML && width == r.lastWidth && r.lastOut != "" {
		return r.lastOut
	}
	text := html
	if md, err := r.conv.ConvertString(html); err == nil {
		text = strings.TrimSpace(md)
	}
	if width > 0 {
		text = lipgloss.NewStyle().Width(width).Render(text)
	}
	r.lastHTML, r.lastWidth, r.lastOut = html, width, text
	return text
}
