package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF5555", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	errMsg    lipgloss.Style
	meta      lipgloss.Style
	toolCall  lipgloss.Style
	prompt    lipgloss.Style
	formErr   lipgloss.Style
	help      lipgloss.Style
	spin      lipgloss.Style
}

func NewPalette(accent, ok, e, w, muted string) *Palette {
	return &Palette{
		title:     NewBold(accent).MarginBottom(1),
		user:      NewBold(accent),
		assistant: NewStyle(ok),
		errMsg:    NewBold(e),
		meta:      NewEm(muted),
		toolCall:  NewStyle(w),
		prompt:    NewBold(accent),
		formErr:   NewStyle(e),
		help:      NewEm(muted),
		spin:      NewStyle(accent),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
