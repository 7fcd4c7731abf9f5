package report

import "github.com/charmbracelet/lipgloss"

// Palette used by the CLI reports.
var (
	Cyan   = lipgloss.Color("#00E5FF")
	Green  = lipgloss.Color("#2AFFAA")
	Red    = lipgloss.Color("#FF5555")
	Yellow = lipgloss.Color("#FFB500")
	Muted  = lipgloss.Color("#6C7280")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true).
			MarginTop(1)

	positiveStyle = lipgloss.NewStyle().Foreground(Green).Bold(true)
	negativeStyle = lipgloss.NewStyle().Foreground(Red).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(Yellow)
	mutedStyle    = lipgloss.NewStyle().Foreground(Muted)
)

// Title renders a section heading.
func Title(s string) string {
	return titleStyle.Render(s)
}

// signed colors a value by whether it is a gain or a loss.
func signed(s string, loss bool) string {
	if loss {
		return negativeStyle.Render(s)
	}
	return positiveStyle.Render(s)
}
