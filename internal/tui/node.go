package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"

	"github.com/nodedash/nodedash/internal/monitor"
	"github.com/nodedash/nodedash/internal/timeline"
)

const sparklineHeight = 3

// renderNode draws the focused node: header scalars, the top timeline as
// a large sparkline with the rest beneath it, and optionally the tail of
// the raw logfile.
func (m *DashboardModel) renderNode() string {
	mon := m.focusedMonitor()
	if mon == nil {
		return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center,
			dimStyle.Render("no node in focus"))
	}

	sections := []string{m.renderNodeHeader(mon)}

	chartHeight := m.contentHeight() - lipgloss.Height(sections[0])
	logHeight := 0
	if m.logfileVisible {
		logHeight = chartHeight / 3
		chartHeight -= logHeight
	}

	sections = append(sections, m.renderTimelines(mon, chartHeight))
	if m.logfileVisible && logHeight > 0 {
		sections = append(sections, m.renderLogTail(mon, logHeight))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Left, lipgloss.Top, body)
}

func (m *DashboardModel) renderNodeHeader(mon *monitor.Monitor) string {
	reg := mon.Metrics

	title := fmt.Sprintf("%2d %s", mon.Index, mon.Name())
	status := reg.StatusText(m.now)
	if reg.NodeInactive {
		status = inactiveStyle.Render(status)
	}

	line1 := fmt.Sprintf("%s  %s  %s", titleStyle.Render(title), status, dimStyle.Render(reg.RunningMessage))
	line2 := fmt.Sprintf("PID %d  PeerId %s  Space %s",
		reg.NodeProcessID, reg.NodePeerID, spaceText(reg.UsedSpace, reg.MaxCapacity))
	line3 := fmt.Sprintf("Earnings %d nanos  PUTS %d  GETS %d  Errors %d  Peers %d",
		reg.StoragePayments.Total,
		reg.ActivityPuts.SampleCount,
		reg.ActivityGets.SampleCount,
		reg.ActivityErrors.SampleCount,
		reg.PeersConnected.MostRecent)

	return strings.Join([]string{
		truncate(line1, m.width),
		truncate(line2, m.width),
		truncate(line3, m.width),
		"",
	}, "\n")
}

// renderTimelines shows the selected top timeline large, then one compact
// sparkline per remaining timeline, all at the active granularity.
func (m *DashboardModel) renderTimelines(mon *monitor.Monitor, height int) string {
	set := mon.Metrics.Timelines
	scale := m.activeScale()

	var sections []string
	used := 0

	if top := set.ByIndex(m.topTimeline); top != nil {
		topHeight := height / 3
		if topHeight < sparklineHeight {
			topHeight = sparklineHeight
		}
		sections = append(sections, m.renderTimelinePanel(top, scale, topHeight))
		used += topHeight + 1
	}

	for i := 0; i < set.Len(); i++ {
		if i == m.topTimeline {
			continue
		}
		if used+sparklineHeight+1 > height {
			break
		}
		tl := set.ByIndex(i)
		if tl == nil {
			continue
		}
		sections = append(sections, m.renderTimelinePanel(tl, scale, sparklineHeight))
		used += sparklineHeight + 1
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTimelinePanel draws one timeline as a labelled sparkline.
func (m *DashboardModel) renderTimelinePanel(tl *timeline.Timeline, scale timeline.Scale, height int) string {
	bucket := tl.BucketSet(scale.Name)
	if bucket == nil {
		return ""
	}

	width := m.width - 2
	values := bucket.Values(m.statMode)
	if len(values) > width {
		values = values[len(values)-width:]
	}
	data := make([]float64, len(values))
	var latest uint64
	for i, v := range values {
		data[i] = float64(v)
	}
	if len(values) > 0 {
		latest = values[len(values)-1]
	}

	sl := sparkline.New(width, height-1, sparkline.WithStyle(timelineStyle(tl.Color)))
	sl.PushAll(data)
	sl.Draw()

	label := fmt.Sprintf("%s %d%s", tl.Name, latest, tl.Units)
	if tl.Stats {
		label += fmt.Sprintf(" (%s, covering %s)", m.statMode, timeline.DurationText(bucket.DurationCovered()))
	} else {
		label += fmt.Sprintf(" (covering %s)", timeline.DurationText(bucket.DurationCovered()))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		timelineStyle(tl.Color).Bold(true).Render(truncate(label, m.width)),
		sl.View(),
	)
}

// renderLogTail shows the newest raw lines from the logfile ring.
func (m *DashboardModel) renderLogTail(mon *monitor.Monitor, height int) string {
	lines := mon.Content
	avail := height - 1
	if len(lines) > avail && avail > 0 {
		lines = lines[len(lines)-avail:]
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(mon.Path))
	b.WriteString("\n")
	for _, line := range lines {
		b.WriteString(dimStyle.Render(truncate(line, m.width)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
