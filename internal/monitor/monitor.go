// Package monitor tracks the state of individual node logfiles and
// coordinates discovery, restore and line routing across all of them.
package monitor

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/nodedash/nodedash/internal/checkpoint"
	"github.com/nodedash/nodedash/internal/logmeta"
	"github.com/nodedash/nodedash/internal/metrics"
)

// DefaultLinesMax is the number of recent lines kept per logfile.
const DefaultLinesMax = 100

// Monitor holds everything known about one followed logfile: its display
// index, the ring of recent raw lines, and the metrics extracted so far.
type Monitor struct {
	Index int
	Path  string

	Content  []string
	LinesMax int

	Metrics *metrics.Registry

	// LatestCheckpointTime is the embedded entry time of the last
	// checkpoint written for this file. Zero until the first save.
	LatestCheckpointTime time.Time

	HasFocus bool

	// restoredFrom filters out the tail of lines already accounted for by
	// a restored checkpoint; lines at or before it are dropped until a
	// newer entry is seen.
	restoredFrom    *time.Time
	haveSeenCurrent bool
}

// NewMonitor creates a fresh monitor starting from empty metrics.
func NewMonitor(path string, index, linesMax, timelineSteps int) *Monitor {
	if linesMax <= 0 {
		linesMax = DefaultLinesMax
	}
	return &Monitor{
		Index:    index,
		Path:     path,
		LinesMax: linesMax,
		Metrics:  metrics.NewRegistry(timelineSteps),
	}
}

// restore resurrects a monitor from a checkpoint record.
func restore(path string, rec *checkpoint.Record, linesMax int) *Monitor {
	m := &Monitor{
		Index:    rec.MonitorIndex,
		Path:     path,
		LinesMax: linesMax,
		Metrics:  rec.Metrics,
	}
	if linesMax <= 0 {
		m.LinesMax = DefaultLinesMax
	}
	if rec.LatestEntryTime != nil {
		m.LatestCheckpointTime = *rec.LatestEntryTime
		t := *rec.LatestEntryTime
		m.restoredFrom = &t
	}
	return m
}

// Name returns the logfile's base name, used as the display label.
func (m *Monitor) Name() string {
	return filepath.Base(m.Path)
}

// AppendContent adds a raw line to the content ring, discarding the
// oldest once LinesMax is reached.
func (m *Monitor) AppendContent(line string) {
	m.Content = append(m.Content, line)
	if len(m.Content) > m.LinesMax {
		copy(m.Content, m.Content[1:])
		m.Content = m.Content[:len(m.Content)-1]
	}
}

// HandleLine processes one tailed line: duplicate filtering after a
// restore, content capture, metric extraction and checkpointing. The
// returned status is a short human message when a checkpoint was written,
// otherwise empty.
func (m *Monitor) HandleLine(line string, checkpointInterval time.Duration) (string, error) {
	meta := logmeta.Decode(line)

	if meta != nil && m.restoredFrom != nil && !m.haveSeenCurrent {
		if !meta.MessageTime.After(*m.restoredFrom) {
			return "", nil
		}
		m.haveSeenCurrent = true
	}

	m.AppendContent(line)
	if meta == nil {
		return "", nil
	}

	m.Metrics.ApplyLine(meta, line)
	return m.maybeCheckpoint(meta.MessageTime, checkpointInterval)
}

// maybeCheckpoint writes a checkpoint when the embedded entry time has
// moved at least checkpointInterval past the last one. A zero or negative
// interval disables checkpointing entirely.
func (m *Monitor) maybeCheckpoint(entryTime time.Time, interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", nil
	}
	if !m.LatestCheckpointTime.IsZero() && !m.LatestCheckpointTime.Add(interval).Before(entryTime) {
		return "", nil
	}

	rec := &checkpoint.Record{
		Version:         checkpoint.Version,
		LatestEntryTime: &entryTime,
		MonitorIndex:    m.Index,
		Metrics:         m.Metrics,
	}
	if err := checkpoint.Save(m.Path, rec); err != nil {
		return "", err
	}
	m.LatestCheckpointTime = entryTime
	return fmt.Sprintf("checkpoint updated for %s", m.Name()), nil
}
