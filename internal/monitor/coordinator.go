package monitor

import (
	"fmt"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nodedash/nodedash/internal/checkpoint"
	"github.com/nodedash/nodedash/internal/tailsource"
)

// Tailer is the subset of the tail multiplexer the coordinator drives.
// Tests substitute a recording fake.
type Tailer interface {
	AddFile(path string, fromStart bool) error
}

// Coordinator owns the set of monitors, discovers new logfiles from glob
// patterns and routes tailed lines to the right monitor. It is driven
// from a single goroutine; nothing here locks.
type Coordinator struct {
	Monitors map[string]*Monitor

	// Added preserves the order paths were first monitored in; Failed
	// records paths that could not be tailed.
	Added  []string
	Failed []string

	GlobPatterns       []string
	IgnoreExisting     bool
	LinesMax           int
	TimelineSteps      int
	CheckpointInterval time.Duration

	tailer    Tailer
	nextIndex int
}

// NewCoordinator creates a coordinator driving the given tailer.
func NewCoordinator(tailer Tailer, linesMax, timelineSteps int, checkpointInterval time.Duration) *Coordinator {
	return &Coordinator{
		Monitors:           make(map[string]*Monitor),
		LinesMax:           linesMax,
		TimelineSteps:      timelineSteps,
		CheckpointInterval: checkpointInterval,
		tailer:             tailer,
		nextIndex:          1,
	}
}

// MonitorPath begins monitoring a logfile. Paths already monitored are a
// no-op; a path whose sidecar checkpoint loads cleanly is restored from
// it, otherwise monitoring starts fresh. Tail failures are recorded in
// Failed and are not fatal; a later call (a glob rescan, typically)
// retries the path and clears it from Failed on success.
func (c *Coordinator) MonitorPath(path string) {
	if _, ok := c.Monitors[path]; ok {
		return
	}

	var m *Monitor
	if rec, err := checkpoint.Load(path); err == nil {
		m = restore(path, rec, c.LinesMax)
	} else {
		m = NewMonitor(path, 0, c.LinesMax, c.TimelineSteps)
	}

	// A restored monitor replays the file from the start as well: its
	// duplicate filter drops everything at or before the checkpointed
	// entry time, leaving exactly the segment logged since then.
	fromStart := !c.IgnoreExisting
	if err := c.tailer.AddFile(path, fromStart); err != nil {
		c.markFailed(path)
		return
	}
	c.clearFailed(path)

	// Only now that the tail is live may index canonicalisation touch
	// other monitors.
	c.canonicaliseIndex(m)

	c.Monitors[path] = m
	c.Added = append(c.Added, path)
}

func (c *Coordinator) markFailed(path string) {
	for _, p := range c.Failed {
		if p == path {
			return
		}
	}
	c.Failed = append(c.Failed, path)
}

func (c *Coordinator) clearFailed(path string) {
	for i, p := range c.Failed {
		if p == path {
			c.Failed = append(c.Failed[:i], c.Failed[i+1:]...)
			return
		}
	}
}

// canonicaliseIndex gives m a display index that is unique among live
// monitors. On a collision the monitor whose node started earlier keeps
// the lower index; with no start times known, first come keeps it.
func (c *Coordinator) canonicaliseIndex(m *Monitor) {
	if m.Index <= 0 {
		m.Index = c.nextFreeIndex()
		return
	}
	other := c.byIndex(m.Index)
	if other == nil {
		return
	}
	if startedEarlier(m, other) {
		other.Index = c.nextFreeIndex()
		return
	}
	m.Index = c.nextFreeIndex()
}

func startedEarlier(a, b *Monitor) bool {
	at, bt := a.Metrics.NodeStarted, b.Metrics.NodeStarted
	if at.IsZero() {
		return false
	}
	return bt.IsZero() || at.Before(bt)
}

func (c *Coordinator) byIndex(index int) *Monitor {
	for _, m := range c.Monitors {
		if m.Index == index {
			return m
		}
	}
	return nil
}

func (c *Coordinator) nextFreeIndex() int {
	for c.byIndex(c.nextIndex) != nil {
		c.nextIndex++
	}
	idx := c.nextIndex
	c.nextIndex++
	return idx
}

// ScanGlobPath expands one glob pattern and monitors every match.
func (c *Coordinator) ScanGlobPath(pattern string) error {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return fmt.Errorf("monitor: glob %q: %w", pattern, err)
	}
	sort.Strings(matches)
	for _, path := range matches {
		c.MonitorPath(path)
	}
	return nil
}

// ScanAll re-expands every configured glob pattern, picking up logfiles
// created since the last scan. It returns the number of new monitors.
func (c *Coordinator) ScanAll() int {
	before := len(c.Monitors)
	for _, pattern := range c.GlobPatterns {
		// A bad pattern was already reported at startup; keep scanning
		// the rest.
		_ = c.ScanGlobPath(pattern)
	}
	return len(c.Monitors) - before
}

// UpdateTimelines marches every monitor's timeline buckets up to now so
// quiet nodes still scroll.
func (c *Coordinator) UpdateTimelines(now time.Time) {
	for _, m := range c.Monitors {
		m.Metrics.UpdateTimelines(now)
	}
}

// HandleEnvelope routes one tailed line to its monitor. Envelopes with a
// hard error are returned to the caller to act on; lines for unknown
// paths are dropped.
func (c *Coordinator) HandleEnvelope(env tailsource.Envelope) (string, error) {
	if env.Err != nil {
		return "", env.Err
	}
	m, ok := c.Monitors[env.Path]
	if !ok {
		return "", nil
	}
	return m.HandleLine(env.Line, c.CheckpointInterval)
}

// ByIndex returns monitors ordered by display index for the summary view.
func (c *Coordinator) ByIndex() []*Monitor {
	out := make([]*Monitor, 0, len(c.Monitors))
	for _, m := range c.Monitors {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
