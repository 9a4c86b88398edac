package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nodedash/nodedash/internal/monitor"
)

// summaryColumns is the header row of the summary table.
var summaryColumns = []string{"Node", "Status", "Earnings", "PUTS", "GETS", "Errors", "Peers", "Space", "RAM"}

var summaryWidths = []int{20, 16, 14, 8, 8, 8, 7, 12, 8}

// sortedMonitors returns the monitors in the active summary order. Ties
// and the default order fall back to the display index.
func (m *DashboardModel) sortedMonitors() []*monitor.Monitor {
	mons := m.coord.ByIndex()
	if m.sort == sortByIndex {
		return mons
	}

	metric := func(mon *monitor.Monitor) uint64 {
		reg := mon.Metrics
		switch m.sort {
		case sortByEarnings:
			return reg.StoragePayments.Total
		case sortByPuts:
			return reg.ActivityPuts.SampleCount
		case sortByGets:
			return reg.ActivityGets.SampleCount
		case sortByErrors:
			return reg.ActivityErrors.SampleCount
		}
		return 0
	}
	sort.SliceStable(mons, func(i, j int) bool {
		return metric(mons[i]) > metric(mons[j])
	})
	return mons
}

func (m *DashboardModel) renderSummary() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("nodedash"))
	b.WriteString("\n\n")

	cells := make([]string, len(summaryColumns))
	for i, col := range summaryColumns {
		cells[i] = pad(col, summaryWidths[i])
	}
	b.WriteString(headerStyle.Render(strings.Join(cells, " ")))
	b.WriteString("\n")

	mons := m.sortedMonitors()
	if len(mons) == 0 {
		b.WriteString(dimStyle.Render("waiting for logfiles..."))
	}

	avail := m.contentHeight() - 4
	for i, mon := range mons {
		if avail > 0 && i >= avail {
			b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more", len(mons)-i)))
			break
		}
		b.WriteString(m.renderSummaryRow(mon))
		b.WriteString("\n")
	}

	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Left, lipgloss.Top, b.String())
}

func (m *DashboardModel) renderSummaryRow(mon *monitor.Monitor) string {
	reg := mon.Metrics
	status := reg.StatusText(m.now)

	fields := []string{
		pad(fmt.Sprintf("%2d %s", mon.Index, mon.Name()), summaryWidths[0]),
		pad(status, summaryWidths[1]),
		pad(fmt.Sprintf("%d", reg.StoragePayments.Total), summaryWidths[2]),
		pad(fmt.Sprintf("%d", reg.ActivityPuts.SampleCount), summaryWidths[3]),
		pad(fmt.Sprintf("%d", reg.ActivityGets.SampleCount), summaryWidths[4]),
		pad(fmt.Sprintf("%d", reg.ActivityErrors.SampleCount), summaryWidths[5]),
		pad(fmt.Sprintf("%d", reg.PeersConnected.MostRecent), summaryWidths[6]),
		pad(spaceText(reg.UsedSpace, reg.MaxCapacity), summaryWidths[7]),
		pad(fmt.Sprintf("%d MB", reg.MemoryUsedMB.MostRecent), summaryWidths[8]),
	}
	row := truncate(strings.Join(fields, " "), m.width)

	switch {
	case mon.Path == m.focus:
		return focusedRowStyle.Render(row)
	case reg.NodeInactive:
		return inactiveStyle.Render(row)
	}
	return row
}

// spaceText renders used/capacity in MB, omitting an unknown capacity.
func spaceText(used, capacity uint64) string {
	if capacity == 0 {
		return fmt.Sprintf("%d MB", used/1_000_000)
	}
	return fmt.Sprintf("%d/%d MB", used/1_000_000, capacity/1_000_000)
}

func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-w)
}
