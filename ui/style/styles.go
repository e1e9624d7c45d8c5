package style

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all the lipgloss styles for the TUI.
type Styles struct {
	// Transport bar
	Transport      lipgloss.Style
	TransportBeat  lipgloss.Style
	TransportTempo lipgloss.Style

	// Scrollback
	Echo  lipgloss.Style
	Error lipgloss.Style

	// Input
	InputPrompt lipgloss.Style

	// Misc
	Muted lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Transport: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")),
		TransportBeat: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // Magenta
			Bold(true),
		TransportTempo: lipgloss.NewStyle().
			Foreground(lipgloss.Color("71")), // Muted green

		Echo: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		InputPrompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}
