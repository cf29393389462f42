package lipgloss

import "github.com/charmbracelet/lipgloss"

var (
	Red     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	Green   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD787"))
	Yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F"))
	BlueSky = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("#87AFFF")).Bold(true)
	Gray    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))

	// BoxStyle frames token and coverage summaries.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5FAFFF")).
			Padding(0, 1)
)

// ScoreStyle picks a colour for a health score; negative scores are unscored.
func ScoreStyle(score int) lipgloss.Style {
	switch {
	case score < 0:
		return Gray
	case score >= 80:
		return Green
	case score >= 50:
		return Yellow
	default:
		return Red
	}
}
