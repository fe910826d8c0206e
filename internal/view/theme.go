package view

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/user/devinctl/pkg/devin"
)

type theme struct {
	heading   lipgloss.Style
	title     lipgloss.Style
	highlight lipgloss.Style
	faint     lipgloss.Style
	statuses  map[devin.Status]lipgloss.Style
	unknown   lipgloss.Style
}

var glyphs = map[devin.Status]string{
	devin.StatusWorking:  "~",
	devin.StatusBlocked:  "=",
	devin.StatusFinished: "+",
	devin.StatusExpired:  "x",
}

func newTheme(r *lipgloss.Renderer) theme {
	return theme{
		heading:   r.NewStyle().Bold(true).Underline(true),
		title:     r.NewStyle().Bold(true),
		highlight: r.NewStyle().Foreground(lipgloss.Color("10")),
		faint:     r.NewStyle().Faint(true),
		statuses: map[devin.Status]lipgloss.Style{
			devin.StatusWorking:  r.NewStyle().Foreground(lipgloss.Color("12")),
			devin.StatusBlocked:  r.NewStyle().Foreground(lipgloss.Color("11")),
			devin.StatusFinished: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
			devin.StatusExpired:  r.NewStyle().Foreground(lipgloss.Color("9")),
		},
		unknown: r.NewStyle().Faint(true),
	}
}

func (t theme) style(s devin.Status) lipgloss.Style {
	if st, ok := t.statuses[s]; ok {
		return st
	}
	return t.unknown
}

func (t theme) status(s devin.Status) string {
	text := string(s)
	if text == "" {
		text = "unknown"
	}
	return t.style(s).Render(text)
}

func (t theme) glyph(s devin.Status) string {
	g, ok := glyphs[s]
	if !ok {
		g = "?"
	}
	return t.style(s).Render("[" + g + "]")
}
