package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the session: a full-width gallery summary on top, then the
// in-flight pages next to the request budget and activity log.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderGalleryPanel(m.width - 2),
	}

	colWidth := (m.width - 4) / 2
	left := m.renderPagesPanel(colWidth)
	right := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderBudgetPanel(colWidth),
		m.renderLogPanel(colWidth),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q quit · p pause · ? help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m Model) renderHeader() string {
	name := headerNameStyle.Render(" EHGRAB ")
	tag := headerTagStyle.Render(" gallery archiver ")
	return lipgloss.NewStyle().Padding(1, 0, 0, 1).Render(name + tag)
}

// renderGalleryPanel shows the gallery title, the overall page bar, and the
// session throughput numbers.
func (m Model) renderGalleryPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := m.galleryTitle
	if title == "" {
		title = "waiting for gallery metadata " + m.spinner.View()
	}

	done := m.resumedPages + m.donePages
	counts := fmt.Sprintf("%d/%d pages", done, m.totalPages)
	if m.resumedPages > 0 {
		counts += fmt.Sprintf(" (%d resumed)", m.resumedPages)
	}
	if m.failedPages > 0 {
		counts += " · " + errorStyle.Render(fmt.Sprintf("%d failed", m.failedPages))
	}
	if m.isPaused {
		counts += " · " + warnStyle.Render("PAUSED")
	}

	pagesPerMin, eta := m.rateLocked()
	line := fmt.Sprintf("%s   %s   %s %s   %s %s   %s %s",
		valueStyle.Render(counts),
		dimStyle.Render(FormatBytes(m.totalBytes)),
		labelStyle.Render("rate"), valueStyle.Render(fmt.Sprintf("%.1f pages/min", pagesPerMin)),
		labelStyle.Render("eta"), valueStyle.Render(formatDuration(eta)),
		labelStyle.Render("elapsed"), valueStyle.Render(formatDuration(time.Since(m.sessionStart))),
	)

	bar := m.galleryBar
	bar.Width = width - 6
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(
		lipgloss.Left,
		panelTitleStyle.Render(" GALLERY "),
		galleryTitleStyle.Render(title),
		bar.ViewAs(m.progressLocked()),
		line,
	))
}

// renderPagesPanel lists the pages currently in flight and the tail of the
// failures.
func (m Model) renderPagesPanel(width int) string {
	fetching := m.FetchingPages()
	failed := m.FailedPages()

	var lines []string
	if len(fetching) == 0 {
		lines = append(lines, dimStyle.Render("no pages in flight"))
	}
	for _, p := range fetching {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			m.spinner.View(),
			activePageStyle.Render(p.Filename),
			dimStyle.Render(formatDuration(time.Since(p.Started))),
		))
	}

	if n := len(failed); n > 0 {
		lines = append(lines, "", errorStyle.Render(fmt.Sprintf("%d failed:", n)))
		start := n - 3
		if start < 0 {
			start = 0
		}
		for _, p := range failed[start:] {
			reason := ""
			if p.Err != nil {
				reason = p.Err.Error()
			}
			lines = append(lines, failedPageStyle.Render(fmt.Sprintf("  page %d  %s", p.Page, truncate(reason, width-14))))
		}
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(
		lipgloss.Left,
		panelTitleStyle.Render(" PAGES IN FLIGHT "),
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	))
}

// renderBudgetPanel shows API request budget usage as a gauge.
func (m Model) renderBudgetPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usage := 0.0
	if m.budgetMax > 0 {
		usage = float64(m.budgetUsed) / float64(m.budgetMax) * 100
	}

	barWidth := width - 8
	if barWidth < 4 {
		barWidth = 4
	}
	filled := int(usage * float64(barWidth) / 100)
	if filled > barWidth {
		filled = barWidth
	}
	gaugeStyle := budgetGaugeStyle(usage)
	gauge := gaugeStyle.Render(strings.Repeat("█", filled)) +
		gaugeEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	resetIn := time.Until(m.budgetResetAt)
	if resetIn < 0 {
		resetIn = 0
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(
		lipgloss.Left,
		panelTitleStyle.Render(" REQUEST BUDGET "),
		fmt.Sprintf("%s %s",
			labelStyle.Render("used:"),
			gaugeStyle.Render(fmt.Sprintf("%d/%d (%.0f%%)", m.budgetUsed, m.budgetMax, usage))),
		gauge,
		fmt.Sprintf("%s %s", labelStyle.Render("reset in:"), valueStyle.Render(formatDuration(resetIn))),
	))
}

// renderLogPanel shows the tail of the activity log.
func (m Model) renderLogPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, msg := range m.logMessages[start:] {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			logTimeStyle.Render(msg.Time.Format("15:04:05")),
			logLevelStyle(msg.Level).Render(fmt.Sprintf("[%-7s]", msg.Level)),
			truncate(msg.Message, width-22),
		))
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("nothing yet"))
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(
		lipgloss.Left,
		panelTitleStyle.Render(" LOG "),
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	))
}

func (m Model) renderHelp() string {
	help := strings.Join([]string{
		"",
		"  q / Q      quit",
		"  p / P      pause or resume downloads",
		"  ctrl+l     clear the log",
		"  ?          toggle this help",
		"",
	}, "\n")
	return panelStyle.Width(m.width - 2).Render(help)
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	h := int(d.Hours())
	min := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, min, s)
	}
	return fmt.Sprintf("%02d:%02d", min, s)
}
