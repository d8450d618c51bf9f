package theme

import (
	"image/color"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme centralizes Lip Gloss styles for the preset panel.
type Theme struct {
	Header HeaderTheme
	Rows   RowTheme
	Footer FooterTheme
	Modal  ModalTheme

	// Gradient endpoints for the index column, first row to last.
	From colorful.Color
	To   colorful.Color
}

// HeaderTheme styles the two lines above the rows.
type HeaderTheme struct {
	Title  lipgloss.Style
	Status lipgloss.Style
	Linked lipgloss.Style
}

// RowTheme styles preset rows.
type RowTheme struct {
	Normal  lipgloss.Style
	Active  lipgloss.Style
	Empty   lipgloss.Style
	Dragged lipgloss.Style
	Target  lipgloss.Style
}

// FooterTheme groups styles used by the bottom help and message line.
type FooterTheme struct {
	Help  lipgloss.Style
	Info  lipgloss.Style
	Error lipgloss.Style
}

// ModalTheme styles the rename prompt.
type ModalTheme struct {
	Frame lipgloss.Style
	Title lipgloss.Style
}

// Default returns the built-in theme.
func Default() Theme {
	from, _ := colorful.Hex("#5fafff")
	to, _ := colorful.Hex("#ff5fd7")

	active := lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")).
		Bold(true)

	return Theme{
		Header: HeaderTheme{
			Title:  lipgloss.NewStyle().Bold(true).Underline(true),
			Status: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			Linked: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		},
		Rows: RowTheme{
			Normal:  lipgloss.NewStyle(),
			Active:  active,
			Empty:   lipgloss.NewStyle().Faint(true).Italic(true),
			Dragged: lipgloss.NewStyle().Reverse(true),
			Target:  lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("214")),
		},
		Footer: FooterTheme{
			Help:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			Info:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			Error: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		},
		Modal: ModalTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1),
			Title: lipgloss.NewStyle().Bold(true),
		},
		From: from,
		To:   to,
	}
}

// IndexColor returns the colour of the index column at row pos of total,
// blended in Lab space between From and To.
func (t Theme) IndexColor(pos, total int) color.Color {
	if total <= 1 {
		return t.From
	}
	return t.From.BlendLab(t.To, float64(pos)/float64(total-1)).Clamped()
}
