package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nodedash/nodedash/internal/checkpoint"
	"github.com/nodedash/nodedash/internal/metrics"
	"github.com/nodedash/nodedash/internal/tailsource"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeTailer records AddFile calls and optionally fails chosen paths.
type fakeTailer struct {
	added     []string
	fromStart map[string]bool
	failPaths map[string]bool
}

func newFakeTailer() *fakeTailer {
	return &fakeTailer{
		fromStart: make(map[string]bool),
		failPaths: make(map[string]bool),
	}
}

func (f *fakeTailer) AddFile(path string, fromStart bool) error {
	if f.failPaths[path] {
		return fmt.Errorf("cannot tail %s", path)
	}
	f.added = append(f.added, path)
	f.fromStart[path] = fromStart
	return nil
}

func logLine(at time.Time, msg string) string {
	return fmt.Sprintf("INFO %s [node] %s", at.Format(time.RFC3339Nano), msg)
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("INFO line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMonitorPathIdempotent(t *testing.T) {
	t.Parallel()

	tailer := newFakeTailer()
	c := NewCoordinator(tailer, 100, 10, 0)

	c.MonitorPath("/logs/node1.log")
	c.MonitorPath("/logs/node1.log")

	if len(c.Monitors) != 1 {
		t.Fatalf("got %d monitors, want 1", len(c.Monitors))
	}
	if len(tailer.added) != 1 {
		t.Fatalf("tailer got %d AddFile calls, want 1", len(tailer.added))
	}
	if got := c.Monitors["/logs/node1.log"].Index; got != 1 {
		t.Errorf("index = %d, want 1", got)
	}
}

func TestMonitorPathAssignsSequentialIndexes(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(newFakeTailer(), 100, 10, 0)
	c.MonitorPath("/logs/a.log")
	c.MonitorPath("/logs/b.log")
	c.MonitorPath("/logs/c.log")

	ordered := c.ByIndex()
	want := []string{"/logs/a.log", "/logs/b.log", "/logs/c.log"}
	for i, m := range ordered {
		if m.Path != want[i] || m.Index != i+1 {
			t.Errorf("slot %d: got %s index %d, want %s index %d",
				i, m.Path, m.Index, want[i], i+1)
		}
	}
}

func TestFailedPathRecoversOnRetry(t *testing.T) {
	t.Parallel()

	tailer := newFakeTailer()
	tailer.failPaths["/logs/bad.log"] = true
	c := NewCoordinator(tailer, 100, 10, 0)

	c.MonitorPath("/logs/bad.log")
	c.MonitorPath("/logs/bad.log")
	c.MonitorPath("/logs/good.log")

	if len(c.Failed) != 1 || c.Failed[0] != "/logs/bad.log" {
		t.Fatalf("Failed = %v, want [/logs/bad.log]", c.Failed)
	}
	if _, ok := c.Monitors["/logs/bad.log"]; ok {
		t.Fatal("failed path must not become a monitor")
	}
	if got := c.Monitors["/logs/good.log"].Index; got != 1 {
		t.Errorf("good path index = %d, want 1", got)
	}

	// The tail can succeed later, e.g. once the directory exists. A
	// rescan must then pick the path up and clear the failure.
	tailer.failPaths["/logs/bad.log"] = false
	c.MonitorPath("/logs/bad.log")

	if _, ok := c.Monitors["/logs/bad.log"]; !ok {
		t.Fatal("recovered path must become a monitor on retry")
	}
	if len(c.Failed) != 0 {
		t.Errorf("Failed = %v, want empty after recovery", c.Failed)
	}
}

func TestGlobRescanPicksUpNewFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "node1.log"))

	c := NewCoordinator(newFakeTailer(), 100, 10, 0)
	c.GlobPatterns = []string{filepath.Join(dir, "*.log")}

	if added := c.ScanAll(); added != 1 {
		t.Fatalf("first scan added %d, want 1", added)
	}

	writeFile(t, filepath.Join(dir, "node2.log"))
	if added := c.ScanAll(); added != 1 {
		t.Fatalf("rescan added %d, want 1", added)
	}
	if added := c.ScanAll(); added != 0 {
		t.Fatalf("idle rescan added %d, want 0", added)
	}
	if len(c.Monitors) != 2 {
		t.Fatalf("got %d monitors, want 2", len(c.Monitors))
	}
}

func TestRestoreFromCheckpoint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "node1.log")
	writeFile(t, path)

	reg := metrics.NewRegistry(10)
	reg.ActivityPuts.AddSample(1)
	entry := baseTime.Add(time.Hour)
	rec := &checkpoint.Record{
		Version:         checkpoint.Version,
		LatestEntryTime: &entry,
		MonitorIndex:    3,
		Metrics:         reg,
	}
	if err := checkpoint.Save(path, rec); err != nil {
		t.Fatal(err)
	}

	tailer := newFakeTailer()
	c := NewCoordinator(tailer, 100, 10, 0)
	c.MonitorPath(path)

	m := c.Monitors[path]
	if m == nil {
		t.Fatal("monitor missing after restore")
	}
	if m.Index != 3 {
		t.Errorf("index = %d, want 3 from checkpoint", m.Index)
	}
	if m.Metrics.ActivityPuts.SampleCount != 1 {
		t.Errorf("restored puts count = %d, want 1", m.Metrics.ActivityPuts.SampleCount)
	}
	if !m.LatestCheckpointTime.Equal(entry) {
		t.Errorf("LatestCheckpointTime = %v, want %v", m.LatestCheckpointTime, entry)
	}
	if !tailer.fromStart[path] {
		t.Error("restored monitor must replay the file from the start")
	}
}

func TestRestoredMonitorCountsPostCheckpointSegment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "node1.log")
	writeFile(t, path)

	entry := baseTime.Add(time.Hour)
	err := checkpoint.Save(path, &checkpoint.Record{
		Version:         checkpoint.Version,
		LatestEntryTime: &entry,
		MonitorIndex:    1,
		Metrics:         metrics.NewRegistry(10),
	})
	if err != nil {
		t.Fatal(err)
	}

	tailer := newFakeTailer()
	c := NewCoordinator(tailer, 100, 10, 0)
	c.MonitorPath(path)
	if !tailer.fromStart[path] {
		t.Fatal("restored monitor must replay the file from the start")
	}

	// Replay the whole file: the prefix up to the checkpointed entry time
	// is dropped, the segment logged after it is counted.
	stale := logLine(entry.Add(-time.Minute), "Retrieved record from disk")
	at := logLine(entry, "Retrieved record from disk")
	fresh := []string{
		logLine(entry.Add(time.Second), "Retrieved record from disk"),
		logLine(entry.Add(2*time.Second), "Retrieved record from disk"),
		logLine(entry.Add(3*time.Second), "Retrieved record from disk"),
	}
	for _, line := range append([]string{stale, at}, fresh...) {
		if _, err := c.HandleEnvelope(tailsource.Envelope{Path: path, Line: line}); err != nil {
			t.Fatal(err)
		}
	}

	m := c.Monitors[path]
	if got := m.Metrics.ActivityGets.SampleCount; got != 3 {
		t.Errorf("gets = %d, want the 3 lines logged after the checkpoint", got)
	}
	if len(m.Content) != 3 {
		t.Errorf("content = %d lines, want 3", len(m.Content))
	}
}

func TestFailedAddLeavesLiveIndexesUntouched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	live := filepath.Join(dir, "live.log")
	contender := filepath.Join(dir, "contender.log")
	writeFile(t, live)
	writeFile(t, contender)

	// The contender's checkpoint would win index 1 from the live monitor
	// on the earlier-start rule.
	reg := metrics.NewRegistry(10)
	reg.NodeStarted = baseTime
	entry := baseTime.Add(time.Minute)
	err := checkpoint.Save(contender, &checkpoint.Record{
		Version:         checkpoint.Version,
		LatestEntryTime: &entry,
		MonitorIndex:    1,
		Metrics:         reg,
	})
	if err != nil {
		t.Fatal(err)
	}

	tailer := newFakeTailer()
	tailer.failPaths[contender] = true
	c := NewCoordinator(tailer, 100, 10, 0)
	c.MonitorPath(live)
	c.MonitorPath(contender)

	if got := c.Monitors[live].Index; got != 1 {
		t.Errorf("live monitor index = %d, want 1 kept when the contender's tail fails", got)
	}
	if _, ok := c.Monitors[contender]; ok {
		t.Error("contender must not be registered after a failed tail")
	}
}

func TestFreshMonitorReplaysExistingContent(t *testing.T) {
	t.Parallel()

	tailer := newFakeTailer()
	c := NewCoordinator(tailer, 100, 10, 0)
	c.MonitorPath("/logs/fresh.log")
	if !tailer.fromStart["/logs/fresh.log"] {
		t.Error("fresh monitor must replay the file from the start")
	}

	tailer2 := newFakeTailer()
	c2 := NewCoordinator(tailer2, 100, 10, 0)
	c2.IgnoreExisting = true
	c2.MonitorPath("/logs/fresh.log")
	if tailer2.fromStart["/logs/fresh.log"] {
		t.Error("with IgnoreExisting set, monitor must tail from the end")
	}
}

func TestIndexCollisionEarlierStartWinsLowerIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	early := filepath.Join(dir, "early.log")
	late := filepath.Join(dir, "late.log")
	writeFile(t, early)
	writeFile(t, late)

	save := func(path string, index int, started time.Time) {
		reg := metrics.NewRegistry(10)
		reg.NodeStarted = started
		entry := started.Add(time.Minute)
		err := checkpoint.Save(path, &checkpoint.Record{
			Version:         checkpoint.Version,
			LatestEntryTime: &entry,
			MonitorIndex:    index,
			Metrics:         reg,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	save(late, 1, baseTime.Add(time.Hour))
	save(early, 1, baseTime)

	c := NewCoordinator(newFakeTailer(), 100, 10, 0)
	c.MonitorPath(late)
	c.MonitorPath(early)

	if got := c.Monitors[early].Index; got != 1 {
		t.Errorf("earlier-started node index = %d, want 1", got)
	}
	if got := c.Monitors[late].Index; got == 1 {
		t.Error("later-started node must be bumped off index 1")
	}
}

func TestIndexCollisionWithoutStartTimesKeepsFirstComer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")
	writeFile(t, first)
	writeFile(t, second)

	entry := baseTime
	for _, path := range []string{first, second} {
		err := checkpoint.Save(path, &checkpoint.Record{
			Version:         checkpoint.Version,
			LatestEntryTime: &entry,
			MonitorIndex:    1,
			Metrics:         metrics.NewRegistry(10),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	c := NewCoordinator(newFakeTailer(), 100, 10, 0)
	c.MonitorPath(first)
	c.MonitorPath(second)

	if got := c.Monitors[first].Index; got != 1 {
		t.Errorf("first comer index = %d, want 1", got)
	}
	if got := c.Monitors[second].Index; got != 2 {
		t.Errorf("latecomer index = %d, want 2", got)
	}
}

func TestHandleLineFiltersRestoredDuplicates(t *testing.T) {
	t.Parallel()

	entry := baseTime.Add(time.Hour)
	m := restore("/logs/node1.log", &checkpoint.Record{
		Version:         checkpoint.Version,
		LatestEntryTime: &entry,
		MonitorIndex:    1,
		Metrics:         metrics.NewRegistry(10),
	}, 100)

	// At or before the checkpoint: dropped entirely.
	if _, err := m.HandleLine(logLine(entry.Add(-time.Second), "Retrieved record from disk"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.HandleLine(logLine(entry, "Retrieved record from disk"), 0); err != nil {
		t.Fatal(err)
	}
	if len(m.Content) != 0 || m.Metrics.ActivityGets.SampleCount != 0 {
		t.Fatalf("stale lines leaked: content=%d gets=%d", len(m.Content), m.Metrics.ActivityGets.SampleCount)
	}

	// First newer entry ends filtering for good.
	if _, err := m.HandleLine(logLine(entry.Add(time.Second), "Retrieved record from disk"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.HandleLine(logLine(entry.Add(-time.Minute), "Retrieved record from disk"), 0); err != nil {
		t.Fatal(err)
	}
	if len(m.Content) != 2 || m.Metrics.ActivityGets.SampleCount != 2 {
		t.Fatalf("after catch-up: content=%d gets=%d, want 2 and 2", len(m.Content), m.Metrics.ActivityGets.SampleCount)
	}
}

func TestHandleLineKeepsUndecodableLines(t *testing.T) {
	t.Parallel()

	m := NewMonitor("/logs/node1.log", 1, 100, 10)
	if _, err := m.HandleLine("  stack trace continuation", 0); err != nil {
		t.Fatal(err)
	}
	if len(m.Content) != 1 {
		t.Fatalf("content = %d lines, want 1", len(m.Content))
	}
	if m.Metrics.Entry != nil {
		t.Error("undecodable line must not update the latest entry")
	}
}

func TestContentRingDropsOldest(t *testing.T) {
	t.Parallel()

	m := NewMonitor("/logs/node1.log", 1, 3, 10)
	for i := 0; i < 5; i++ {
		m.AppendContent(fmt.Sprintf("line %d", i))
	}
	if len(m.Content) != 3 {
		t.Fatalf("content = %d lines, want 3", len(m.Content))
	}
	if m.Content[0] != "line 2" || m.Content[2] != "line 4" {
		t.Errorf("content = %v, want lines 2..4", m.Content)
	}
}

func TestCheckpointGatedOnEntryTime(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "node1.log")
	m := NewMonitor(path, 1, 100, 10)
	interval := time.Minute

	status, err := m.HandleLine(logLine(baseTime, "Retrieved record from disk"), interval)
	if err != nil {
		t.Fatal(err)
	}
	if status == "" {
		t.Fatal("first decoded line must write a checkpoint")
	}
	if !m.LatestCheckpointTime.Equal(baseTime) {
		t.Errorf("LatestCheckpointTime = %v, want %v", m.LatestCheckpointTime, baseTime)
	}

	// Within the interval: no save, even across many lines.
	status, err = m.HandleLine(logLine(baseTime.Add(interval), "Retrieved record from disk"), interval)
	if err != nil {
		t.Fatal(err)
	}
	if status != "" {
		t.Error("entry exactly one interval later must not checkpoint yet")
	}

	status, err = m.HandleLine(logLine(baseTime.Add(interval+time.Second), "Retrieved record from disk"), interval)
	if err != nil {
		t.Fatal(err)
	}
	if status == "" {
		t.Fatal("entry past the interval must checkpoint")
	}

	rec, err := checkpoint.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Metrics.ActivityGets.SampleCount != 3 {
		t.Errorf("checkpointed gets = %d, want 3", rec.Metrics.ActivityGets.SampleCount)
	}
}

func TestZeroIntervalDisablesCheckpoints(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "node1.log")
	m := NewMonitor(path, 1, 100, 10)

	status, err := m.HandleLine(logLine(baseTime, "Retrieved record from disk"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if status != "" {
		t.Error("zero interval must never checkpoint")
	}
	if _, err := checkpoint.Load(path); err == nil {
		t.Error("no sidecar expected with checkpointing disabled")
	}
}

func TestHandleEnvelopeRouting(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(newFakeTailer(), 100, 10, 0)
	c.MonitorPath("/logs/a.log")

	if _, err := c.HandleEnvelope(tailsource.Envelope{
		Path: "/logs/a.log",
		Line: logLine(baseTime, "Retrieved record from disk"),
	}); err != nil {
		t.Fatal(err)
	}
	if got := c.Monitors["/logs/a.log"].Metrics.ActivityGets.SampleCount; got != 1 {
		t.Errorf("gets = %d, want 1", got)
	}

	// Unknown path: dropped without error.
	if _, err := c.HandleEnvelope(tailsource.Envelope{Path: "/logs/ghost.log", Line: "x"}); err != nil {
		t.Fatal(err)
	}

	wantErr := fmt.Errorf("boom")
	if _, err := c.HandleEnvelope(tailsource.Envelope{Path: "/logs/a.log", Err: wantErr}); err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
