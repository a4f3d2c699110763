package report

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const minWrapWidth = 24

// RenderTerminal converts markdown into ANSI-styled terminal text.
// The raw markdown is returned when rendering fails.
func RenderTerminal(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width, minWrapWidth)),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}
