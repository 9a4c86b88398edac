// Package tui renders the node dashboard with bubbletea. The model owns
// the coordinator and is the only writer of its state: every logfile
// line, timer tick and keystroke arrives as a message and is applied in
// Update, one event per call.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nodedash/nodedash/internal/monitor"
	"github.com/nodedash/nodedash/internal/tailsource"
	"github.com/nodedash/nodedash/internal/timeline"
)

type viewID int

const (
	viewSummary viewID = iota
	viewNode
	viewHelp
	viewDebug
)

type sortMode int

const (
	sortByIndex sortMode = iota
	sortByEarnings
	sortByPuts
	sortByGets
	sortByErrors
	sortModeCount
)

func (s sortMode) String() string {
	switch s {
	case sortByIndex:
		return "index"
	case sortByEarnings:
		return "earnings"
	case sortByPuts:
		return "puts"
	case sortByGets:
		return "gets"
	case sortByErrors:
		return "errors"
	}
	return "unknown"
}

const (
	// debugFocus is the synthetic focus slot for the parser debug view,
	// reachable by cycling past the last node when --debug-window is on.
	debugFocus = "\x00debug"

	debugLogMax = 100

	statusMessageTTL = 5 * time.Second
)

// Config carries the runtime options the dashboard model needs.
type Config struct {
	TickRate         time.Duration
	GlobScanInterval time.Duration
	DebugWindow      bool
}

// DashboardModel is the bubbletea model for the whole dashboard.
type DashboardModel struct {
	keys  KeyMap
	coord *monitor.Coordinator
	lines <-chan tailsource.Envelope

	view     viewID
	prevView viewID

	// focus is the path of the monitor shown in the node view, or
	// debugFocus for the synthetic debug slot.
	focus string

	scaleIdx       int
	statMode       timeline.StatMode
	topTimeline    int
	logfileVisible bool
	sort           sortMode

	debugEnabled bool
	debugLog     []string

	statusMessage string
	statusExpiry  time.Time

	tickRate     time.Duration
	globScanGap  time.Duration
	nextGlobScan time.Time

	width  int
	height int
	now    time.Time

	fatalErr error
}

// New creates the dashboard model around an already-populated coordinator
// and the merged line stream it is fed from.
func New(coord *monitor.Coordinator, lines <-chan tailsource.Envelope, cfg Config) *DashboardModel {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 200 * time.Millisecond
	}
	m := &DashboardModel{
		keys:           DefaultKeyMap(),
		coord:          coord,
		lines:          lines,
		view:           viewSummary,
		scaleIdx:       1, // 1 minute columns
		logfileVisible: true,
		debugEnabled:   cfg.DebugWindow,
		tickRate:       cfg.TickRate,
		globScanGap:    cfg.GlobScanInterval,
		now:            time.Now().UTC(),
	}
	if ordered := coord.ByIndex(); len(ordered) > 0 {
		m.focus = ordered[0].Path
	}
	return m
}

// Init starts the line pump and the periodic tick.
func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.waitForLine(), m.tick())
}

// Err reports the hard failure that ended the session, if any.
func (m *DashboardModel) Err() error {
	return m.fatalErr
}

// activeScale returns the currently selected timeline granularity.
func (m *DashboardModel) activeScale() timeline.Scale {
	return timeline.Scales[m.scaleIdx]
}

// focusedMonitor returns the monitor in focus, or nil for the debug slot
// or an empty dashboard.
func (m *DashboardModel) focusedMonitor() *monitor.Monitor {
	if m.focus == "" || m.focus == debugFocus {
		return nil
	}
	return m.coord.Monitors[m.focus]
}

// focusSlots is the cycle order for tab: monitors by index, then the
// synthetic debug slot when enabled.
func (m *DashboardModel) focusSlots() []string {
	ordered := m.coord.ByIndex()
	slots := make([]string, 0, len(ordered)+1)
	for _, mon := range ordered {
		slots = append(slots, mon.Path)
	}
	if m.debugEnabled {
		slots = append(slots, debugFocus)
	}
	return slots
}

// cycleFocus moves focus by dir (+1 or -1), wrapping at both ends, and
// switches the view to match the new slot.
func (m *DashboardModel) cycleFocus(dir int) {
	slots := m.focusSlots()
	if len(slots) == 0 {
		return
	}
	at := 0
	for i, s := range slots {
		if s == m.focus {
			at = i
			break
		}
	}
	at = (at + dir + len(slots)) % len(slots)
	m.focus = slots[at]
	if m.focus == debugFocus {
		m.view = viewDebug
	} else if m.view == viewDebug {
		m.view = viewNode
	}
}

// focusDigit jumps straight to the node with display index n.
func (m *DashboardModel) focusDigit(n int) {
	for _, mon := range m.coord.ByIndex() {
		if mon.Index == n {
			m.focus = mon.Path
			m.view = viewNode
			return
		}
	}
}

// setStatus shows a transient message on the status line.
func (m *DashboardModel) setStatus(msg string) {
	m.statusMessage = msg
	m.statusExpiry = m.now.Add(statusMessageTTL)
}

// debugf appends a line to the parser debug ring.
func (m *DashboardModel) debugf(line string) {
	if !m.debugEnabled || line == "" {
		return
	}
	m.debugLog = append(m.debugLog, line)
	if len(m.debugLog) > debugLogMax {
		copy(m.debugLog, m.debugLog[1:])
		m.debugLog = m.debugLog[:len(m.debugLog)-1]
	}
}
