package tui

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/nodedash/nodedash/internal/tailsource"
)

func TestViewBeforeFirstWindowSize(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, 1, Config{})
	m.width, m.height = 0, 0
	if got := m.View(); !strings.Contains(got, "Initializing") {
		t.Errorf("View() = %q, want initializing placeholder", got)
	}

	m.width, m.height = 40, 8
	if got := m.View(); !strings.Contains(got, "too small") {
		t.Errorf("View() = %q, want resize hint", got)
	}
}

func TestSummaryViewListsNodes(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, 2, Config{})
	out := m.View()
	for _, want := range []string{"node1.log", "node2.log", "Earnings", "2 nodes"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary view missing %q", want)
		}
	}
}

func TestSummarySortsByEarnings(t *testing.T) {
	t.Parallel()

	m, coord := newTestModel(t, 2, Config{})
	feed := func(path, line string) {
		t.Helper()
		if _, err := coord.Monitors[path].HandleLine(line, 0); err != nil {
			t.Fatal(err)
		}
	}
	feed("/logs/node2.log", logLine(baseTime,
		"payment of NanoTokens(500), 500 nanos accepted for record xyz"))

	m.sort = sortByEarnings
	mons := m.sortedMonitors()
	if mons[0].Path != "/logs/node2.log" {
		t.Fatalf("top earner = %s, want node2", mons[0].Path)
	}

	m.sort = sortByIndex
	mons = m.sortedMonitors()
	if mons[0].Path != "/logs/node1.log" {
		t.Fatalf("index order starts with %s, want node1", mons[0].Path)
	}
}

func TestNodeViewShowsTimelinesAndLogTail(t *testing.T) {
	t.Parallel()

	m, coord := newTestModel(t, 1, Config{})
	mon := coord.Monitors["/logs/node1.log"]
	for i := 0; i < 3; i++ {
		line := logLine(baseTime.Add(time.Duration(i)*time.Second), "Retrieved record from disk")
		if _, err := mon.HandleLine(line, 0); err != nil {
			t.Fatal(err)
		}
	}

	m.view = viewNode
	out := m.View()
	for _, want := range []string{"node1.log", "GETS", "Earnings", "/logs/node1.log"} {
		if !strings.Contains(out, want) {
			t.Errorf("node view missing %q", want)
		}
	}

	m.logfileVisible = false
	out = m.View()
	if strings.Contains(out, "Retrieved record from disk") {
		t.Error("log tail still rendered after toggling it off")
	}
}

func TestHelpViewListsBindings(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, 1, Config{})
	m.view = viewHelp
	out := m.View()
	for _, want := range []string{"Key bindings", "quit", "toggle logfile pane"} {
		if !strings.Contains(out, want) {
			t.Errorf("help view missing %q", want)
		}
	}
}

func TestDebugViewShowsParserOutput(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, 1, Config{DebugWindow: true})
	m.Update(lineMsg(tailsource.Envelope{
		Path: "/logs/node1.log",
		Line: logLine(baseTime, "Retrieved record from disk"),
	}))

	m.view = viewDebug
	out := m.View()
	if !strings.Contains(out, "Parser debug") {
		t.Error("debug view missing title")
	}
	if !strings.Contains(out, "node1.log") {
		t.Error("debug view missing parser diagnostic line")
	}
}

func TestTruncateAndPadKeepCellWidths(t *testing.T) {
	t.Parallel()

	styled := statusLineStyle.Render(strings.Repeat("x", 40))
	if w := lipgloss.Width(truncate(styled, 10)); w > 10 {
		t.Errorf("truncated styled width = %d, want <= 10", w)
	}

	name := "nodé-日本.log"
	if w := lipgloss.Width(pad(name, 20)); w != 20 {
		t.Errorf("padded width = %d, want 20", w)
	}

	cut := pad(name, 5)
	if w := lipgloss.Width(cut); w > 5 {
		t.Errorf("cut width = %d, want <= 5", w)
	}
	if !utf8.ValidString(cut) {
		t.Error("cutting a cell must not split a rune")
	}
}

func TestStatusLineShowsFailedPaths(t *testing.T) {
	t.Parallel()

	m, coord := newTestModel(t, 1, Config{})
	coord.Failed = append(coord.Failed, "/logs/broken.log")
	if out := m.View(); !strings.Contains(out, "1 failed") {
		t.Error("status line missing failed-path count")
	}
}
