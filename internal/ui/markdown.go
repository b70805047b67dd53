package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders md for the terminal, falling back to the raw text
// when no renderer is available.
func RenderMarkdown(w io.Writer, md string) {
	if noColor {
		fmt.Fprint(w, md)
		return
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}

	out, err := renderer.Render(md)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}

	fmt.Fprint(w, out)
}
