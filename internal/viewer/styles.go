package viewer

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Line      lipgloss.Style
	Selected  lipgloss.Style
	Message   lipgloss.Style
	Divider   lipgloss.Style
	Branch    lipgloss.Style
	Unmatched lipgloss.Style
	Empty     lipgloss.Style
	Status    lipgloss.Style
}

func NewStyles() Styles {
	return Styles{
		Line:      lipgloss.NewStyle(),
		Selected:  lipgloss.NewStyle().Reverse(true),
		Message:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Divider:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Branch:    lipgloss.NewStyle().Bold(true),
		Unmatched: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Empty:     lipgloss.NewStyle().Faint(true).Italic(true),
		Status:    lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Background(lipgloss.Color("236")),
	}
}
