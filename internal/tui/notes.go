package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minNotesWrap is the narrowest wrap the notes overlay will render at.
const minNotesWrap = 24

// notesRenderer styles a project's markdown notes for the info overlay.
// Glamour binds a renderer to one wrap width, so the renderer is cached and
// rebuilt only when the overlay is resized.
type notesRenderer struct {
	wrap int
	tr   *glamour.TermRenderer
}

func (n *notesRenderer) render(notes string, width int) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ""
	}
	if width < minNotesWrap {
		width = minNotesWrap
	}
	tr, err := n.rendererFor(width)
	if err != nil {
		return notes
	}
	styled, err := tr.Render(notes)
	if err != nil {
		return notes
	}
	return strings.TrimRight(styled, "\n")
}

func (n *notesRenderer) rendererFor(width int) (*glamour.TermRenderer, error) {
	if n.tr != nil && n.wrap == width {
		return n.tr, nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	n.tr = tr
	n.wrap = width
	return tr, nil
}
