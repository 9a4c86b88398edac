package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nodedash/nodedash/internal/tailsource"
	"github.com/nodedash/nodedash/internal/timeline"
)

type lineMsg tailsource.Envelope

type tickMsg time.Time

// waitForLine blocks on the merged tail stream and delivers exactly one
// envelope per command, keeping all state changes inside Update.
func (m *DashboardModel) waitForLine() tea.Cmd {
	return func() tea.Msg {
		env, ok := <-m.lines
		if !ok {
			return nil
		}
		return lineMsg(env)
	}
}

func (m *DashboardModel) tick() tea.Cmd {
	return tea.Tick(m.tickRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case lineMsg:
		return m.handleLine(tailsource.Envelope(msg))

	case tickMsg:
		m.handleTick(time.Time(msg))
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleLine applies one tailed line. Tail subsystem failures end the
// session; checkpoint write failures only surface on the status line.
func (m *DashboardModel) handleLine(env tailsource.Envelope) (tea.Model, tea.Cmd) {
	if env.Err != nil {
		m.fatalErr = env.Err
		return m, tea.Quit
	}

	status, err := m.coord.HandleEnvelope(env)
	if err != nil {
		m.setStatus(fmt.Sprintf("checkpoint failed: %v", err))
	} else if status != "" {
		m.setStatus(status)
	}

	if mon, ok := m.coord.Monitors[env.Path]; ok {
		m.debugf(fmt.Sprintf("%s %s", mon.Name(), mon.Metrics.ParserOutput))
	}

	if m.focus == "" {
		if ordered := m.coord.ByIndex(); len(ordered) > 0 {
			m.focus = ordered[0].Path
		}
	}

	return m, m.waitForLine()
}

// handleTick marches timelines, refreshes inactivity markers, expires the
// status message and rescans glob patterns when due.
func (m *DashboardModel) handleTick(t time.Time) {
	m.now = t.UTC()
	m.coord.UpdateTimelines(m.now)

	for _, mon := range m.coord.Monitors {
		mon.Metrics.StatusText(m.now)
	}

	if m.statusMessage != "" && m.now.After(m.statusExpiry) {
		m.statusMessage = ""
	}

	if m.globScanGap > 0 && len(m.coord.GlobPatterns) > 0 && !m.now.Before(m.nextGlobScan) {
		if added := m.coord.ScanAll(); added > 0 {
			m.setStatus(fmt.Sprintf("monitoring %d new logfile(s)", added))
		}
		m.nextGlobScan = m.now.Add(m.globScanGap)
	}

	if m.focus == "" {
		if ordered := m.coord.ByIndex(); len(ordered) > 0 {
			m.focus = ordered[0].Path
		}
	}
}

func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.view == viewHelp {
			m.view = m.prevView
		} else {
			m.prevView = m.view
			m.view = viewHelp
		}

	case key.Matches(msg, m.keys.Escape):
		if m.view == viewHelp {
			m.view = m.prevView
		} else {
			m.view = viewSummary
		}

	case key.Matches(msg, m.keys.NextNode):
		m.cycleFocus(1)

	case key.Matches(msg, m.keys.PrevNode):
		m.cycleFocus(-1)

	case key.Matches(msg, m.keys.Summary):
		if m.view == viewSummary {
			m.sort = (m.sort + 1) % sortModeCount
		} else {
			m.view = viewSummary
		}

	case key.Matches(msg, m.keys.Sort):
		m.sort = (m.sort + 1) % sortModeCount

	case key.Matches(msg, m.keys.NodeView):
		if m.focusedMonitor() != nil {
			m.view = viewNode
		}

	case key.Matches(msg, m.keys.Digits):
		if n, err := strconv.Atoi(msg.String()); err == nil {
			m.focusDigit(n)
		}

	case key.Matches(msg, m.keys.ToggleLogfile):
		m.logfileVisible = !m.logfileVisible

	case key.Matches(msg, m.keys.ZoomIn):
		if m.scaleIdx > 0 {
			m.scaleIdx--
		}

	case key.Matches(msg, m.keys.ZoomOut):
		if m.scaleIdx < len(timeline.Scales)-1 {
			m.scaleIdx++
		}

	case key.Matches(msg, m.keys.StatsMode):
		m.statMode = m.statMode.Next()

	case key.Matches(msg, m.keys.NextTimeline):
		m.topTimeline = (m.topTimeline + 1) % len(timeline.Specs)

	case key.Matches(msg, m.keys.PrevTimeline):
		m.topTimeline = (m.topTimeline - 1 + len(timeline.Specs)) % len(timeline.Specs)
	}

	return m, nil
}
