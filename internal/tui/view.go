package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing dashboard..."
	}
	if m.width < 60 || m.height < 12 {
		return "Terminal too small. Resize to at least 60x12."
	}

	var body string
	switch m.view {
	case viewHelp:
		body = m.renderHelp()
	case viewDebug:
		body = m.renderDebug()
	case viewNode:
		body = m.renderNode()
	default:
		body = m.renderSummary()
	}

	statusLine := m.renderStatusLine()
	return lipgloss.JoinVertical(lipgloss.Left, body, statusLine)
}

// renderStatusLine builds the single bottom line: scale, stat mode, sort,
// node count and any transient message.
func (m *DashboardModel) renderStatusLine() string {
	parts := []string{
		fmt.Sprintf("%d nodes", len(m.coord.Monitors)),
		m.activeScale().Name,
	}
	if m.view == viewSummary {
		parts = append(parts, fmt.Sprintf("sort: %s", m.sort))
	}
	if m.view == viewNode {
		parts = append(parts, fmt.Sprintf("stats: %s", m.statMode))
	}
	if len(m.coord.Failed) > 0 {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("%d failed", len(m.coord.Failed))))
	}
	parts = append(parts, "?: help")

	line := strings.Join(parts, "  |  ")
	if m.statusMessage != "" {
		line += "  |  " + statusMessageStyle.Render(m.statusMessage)
	}
	return statusLineStyle.Width(m.width).Render(truncate(line, m.width))
}

func (m *DashboardModel) renderHelp() string {
	k := m.keys
	rows := [][2]string{
		{k.Quit.Help().Key, k.Quit.Help().Desc},
		{k.Help.Help().Key, k.Help.Help().Desc},
		{k.Escape.Help().Key, k.Escape.Help().Desc},
		{k.NextNode.Help().Key, k.NextNode.Help().Desc},
		{k.PrevNode.Help().Key, k.PrevNode.Help().Desc},
		{k.Digits.Help().Key, k.Digits.Help().Desc},
		{k.Summary.Help().Key, k.Summary.Help().Desc},
		{k.NodeView.Help().Key, k.NodeView.Help().Desc},
		{k.Sort.Help().Key, k.Sort.Help().Desc},
		{k.ToggleLogfile.Help().Key, k.ToggleLogfile.Help().Desc},
		{k.ZoomIn.Help().Key, k.ZoomIn.Help().Desc},
		{k.ZoomOut.Help().Key, k.ZoomOut.Help().Desc},
		{k.StatsMode.Help().Key, k.StatsMode.Help().Desc},
		{k.NextTimeline.Help().Key, k.NextTimeline.Help().Desc},
		{k.PrevTimeline.Help().Key, k.PrevTimeline.Help().Desc},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Key bindings"))
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %-14s %s\n", headerStyle.Render(row[0]), row[1]))
	}
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Left, lipgloss.Top, b.String())
}

// renderDebug shows the most recent parser diagnostics, newest last.
func (m *DashboardModel) renderDebug() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Parser debug"))
	b.WriteString("\n\n")

	avail := m.contentHeight() - 2
	log := m.debugLog
	if len(log) > avail && avail > 0 {
		log = log[len(log)-avail:]
	}
	if len(log) == 0 {
		b.WriteString(dimStyle.Render("no parser output yet"))
	}
	for _, line := range log {
		b.WriteString(truncate(line, m.width))
		b.WriteString("\n")
	}
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Left, lipgloss.Top, b.String())
}

// contentHeight is the space left for the active view above the status
// line.
func (m *DashboardModel) contentHeight() int {
	h := m.height - 1
	if h < 1 {
		h = 1
	}
	return h
}

// truncate cuts s down to width terminal cells, keeping escape sequences
// and multi-cell runes intact.
func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
