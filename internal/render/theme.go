// Package render turns parsed assistant replies into terminal output: part
// cards for structured replies and styled prose for everything else.
package render

import "github.com/charmbracelet/lipgloss"

// Theme holds the color scheme shared by cards, prose and the chat UI.
type Theme struct {
	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Border  lipgloss.Color
	Price   lipgloss.Color
}

// DefaultTheme provides default colors.
var DefaultTheme = Theme{
	Accent:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Warning: lipgloss.Color("#FFAF00"), // amber
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Border:  lipgloss.Color("#3A3A3A"), // dark gray
	Price:   lipgloss.Color("#D7D787"), // pale yellow
}

// TitleStyle styles headings, card titles and speaker labels.
func (t Theme) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

// HintStyle styles secondary text such as URLs and help lines.
func (t Theme) HintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// ErrorStyle styles the error banner.
func (t Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

// SuccessStyle styles the assistant label.
func (t Theme) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) priceStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Price).Bold(true)
}

func (t Theme) cardStyle(width int) lipgloss.Style {
	s := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	if width > 0 {
		s = s.Width(width)
	}
	return s
}

func (t Theme) toneStyle(tone Tone) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch tone {
	case ToneSuccess:
		return s.Foreground(t.Success)
	case ToneWarning:
		return s.Foreground(t.Warning)
	default:
		return s.Foreground(t.Hint)
	}
}
