package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Palette
	accent    = lipgloss.Color("#00FFFF")
	accentAlt = lipgloss.Color("#FF00FF")
	good      = lipgloss.Color("#39FF14")
	caution   = lipgloss.Color("#FF6700")
	bad       = lipgloss.Color("#FF0000")
	highlight = lipgloss.Color("#FFFF00")
	bg        = lipgloss.Color("#0A0E27")
	bgPanel   = lipgloss.Color("#1A1E37")
	dim       = lipgloss.Color("#B0B0B0")

	baseStyle = lipgloss.NewStyle().
			Background(bg).
			Foreground(dim)

	headerNameStyle = lipgloss.NewStyle().
			Background(accent).
			Foreground(bg).
			Bold(true)

	headerTagStyle = lipgloss.NewStyle().
			Foreground(accent)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentAlt).
			Background(bgPanel).
			Padding(1, 2)

	panelTitleStyle = lipgloss.NewStyle().
			Background(accentAlt).
			Foreground(bg).
			Bold(true).
			Padding(0, 1)

	galleryTitleStyle = lipgloss.NewStyle().
				Foreground(highlight).
				Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(highlight)

	dimStyle = lipgloss.NewStyle().
			Foreground(dim)

	errorStyle = lipgloss.NewStyle().
			Foreground(bad).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(caution).
			Bold(true)

	activePageStyle = lipgloss.NewStyle().
			Foreground(good).
			Bold(true)

	failedPageStyle = lipgloss.NewStyle().
			Foreground(bad)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(accent)

	gaugeEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333"))

	logTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 2)
)

// budgetGaugeStyle colors the request budget gauge by how close to the
// ceiling the session is.
func budgetGaugeStyle(usage float64) lipgloss.Style {
	switch {
	case usage >= 90:
		return lipgloss.NewStyle().Foreground(bad)
	case usage >= 70:
		return lipgloss.NewStyle().Foreground(caution)
	default:
		return lipgloss.NewStyle().Foreground(good)
	}
}

// logLevelStyle colors an activity log level tag.
func logLevelStyle(level string) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch level {
	case "ERROR":
		return s.Foreground(bad)
	case "WARN":
		return s.Foreground(caution)
	case "SUCCESS":
		return s.Foreground(good)
	case "INFO":
		return s.Foreground(accent)
	default:
		return s.Foreground(dim)
	}
}
