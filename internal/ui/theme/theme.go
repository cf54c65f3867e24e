package theme

import "github.com/charmbracelet/lipgloss"

var (
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Red      = lipgloss.Color("#f38ba8")
	Peach    = lipgloss.Color("#fab387")

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Foreground(Text).
		Padding(0, 1)

	PaneFailed = Pane.BorderForeground(Red)

	Title  = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Header = lipgloss.NewStyle().Foreground(Lavender).Bold(true).Padding(0, 1)
	Cell   = lipgloss.NewStyle().Padding(0, 1)
	Muted  = lipgloss.NewStyle().Foreground(Subtext0)
	Hot    = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	Pass   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Fail   = lipgloss.NewStyle().Foreground(Red).Bold(true)
)

// Status colours a transfer log status.
func Status(status string) string {
	if status == "FAILED" {
		return Fail.Render(status)
	}
	return Pass.Render(status)
}
