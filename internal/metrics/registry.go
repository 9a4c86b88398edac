package metrics

import (
	"fmt"
	"time"

	"github.com/nodedash/nodedash/internal/logmeta"
	"github.com/nodedash/nodedash/internal/timeline"
)

// NodeStatus is the last observed lifecycle state of a monitored node.
type NodeStatus int

const (
	StatusStopped NodeStatus = iota
	StatusStarted
	StatusConnecting
	StatusConnected
)

// String returns the display name of the status.
func (s NodeStatus) String() string {
	switch s {
	case StatusStarted:
		return "Started"
	case StatusConnecting:
		return "Connecting"
	case StatusConnected:
		return "Connected"
	default:
		return "Stopped"
	}
}

// NodeInactivityTimeout is how long a node may stay silent before the
// dashboard reports it inactive.
const NodeInactivityTimeout = 20 * time.Second

// Registry is the full metrics state for one monitored logfile: node
// scalars, running stats, and the application timelines. It is what a
// checkpoint persists, so every field must round-trip through JSON.
type Registry struct {
	NodeStatus     NodeStatus `json:"node_status"`
	NodeStarted    time.Time  `json:"node_started,omitzero"`
	RunningMessage string     `json:"running_message,omitempty"`
	RunningVersion string     `json:"running_version,omitempty"`
	NodeProcessID  uint64     `json:"node_process_id,omitempty"`
	NodePeerID     string     `json:"node_peer_id,omitempty"`

	ActivityGets    MmmStat `json:"activity_gets"`
	ActivityPuts    MmmStat `json:"activity_puts"`
	ActivityErrors  MmmStat `json:"activity_errors"`
	StoragePayments MmmStat `json:"storage_payments"`
	StorageCost     MmmStat `json:"storage_cost"`
	PeersConnected  MmmStat `json:"peers_connected"`
	MemoryUsedMB    MmmStat `json:"memory_used_mb"`

	UsedSpace   uint64 `json:"used_space"`
	MaxCapacity uint64 `json:"max_capacity"`

	SystemCPU           float64 `json:"system_cpu"`
	SystemMemoryMB      float64 `json:"system_memory_mb"`
	SystemMemoryUsedMB  float64 `json:"system_memory_used_mb"`
	SystemMemoryPercent float64 `json:"system_memory_percent"`

	InterfaceName      string  `json:"interface_name,omitempty"`
	BytesReceived      uint64  `json:"bytes_received"`
	BytesTransmitted   uint64  `json:"bytes_transmitted"`
	TotalMBReceived    float64 `json:"total_mb_received"`
	TotalMBTransmitted float64 `json:"total_mb_transmitted"`

	CPUUsagePercent    float64 `json:"cpu_usage_percent"`
	CPUUsagePercentMax float64 `json:"cpu_usage_percent_max"`
	BytesRead          uint64  `json:"bytes_read"`
	BytesWritten       uint64  `json:"bytes_written"`
	TotalMBRead        float64 `json:"total_mb_read"`
	TotalMBWritten     float64 `json:"total_mb_written"`

	Timelines *timeline.Set `json:"timelines"`

	// Entry is the metadata of the most recent decoded line.
	Entry *logmeta.Metadata `json:"entry_metadata,omitempty"`

	// NodeInactive is derived on each status refresh, not from log content.
	NodeInactive bool `json:"node_inactive,omitempty"`

	// ParserOutput records the outcome of the most recent detector run,
	// including sub-parse failures. Shown in the debug view.
	ParserOutput string `json:"parser_output,omitempty"`
}

// NewRegistry creates an empty Registry with timelines of steps slots per
// granularity. Timelines stay unanchored until the first line or tick so
// that replaying an existing logfile anchors them at its first entry time.
func NewRegistry(steps int) *Registry {
	return &Registry{
		Timelines:    timeline.NewSet(steps),
		ParserOutput: "-",
	}
}

// UpdateTimelines advances all timelines to now.
func (r *Registry) UpdateTimelines(now time.Time) {
	r.Timelines.UpdateCurrentTime(now)
}

// ApplyLine updates the Registry from one decoded logfile line: advances the
// timelines to the line's embedded time, counts error-category lines, then
// runs the detector cascade until one detector claims the line.
func (r *Registry) ApplyLine(meta *logmeta.Metadata, line string) {
	r.Entry = meta
	r.UpdateTimelines(meta.MessageTime)
	r.ParserOutput = fmt.Sprintf("c: %s, t: %s, s: %s", meta.Category, meta.MessageTime.Format(time.RFC3339Nano), meta.Source)

	// Error-category lines count towards the error metric no matter which
	// detector later claims them.
	if meta.Category == logmeta.CategoryError {
		r.countError(meta.MessageTime)
	}

	for _, detect := range cascade {
		if detect(r, meta, line) {
			return
		}
	}
}

// StatusText returns the status for display, substituting an inactivity
// marker when the node has been silent longer than NodeInactivityTimeout. It
// also refreshes the NodeInactive flag.
func (r *Registry) StatusText(now time.Time) string {
	if r.Entry != nil {
		idle := now.Sub(r.Entry.SystemTime)
		if idle > NodeInactivityTimeout {
			r.NodeInactive = true
			return fmt.Sprintf("INACTIVE (%s)", timeline.DurationText(idle))
		}
	}
	r.NodeInactive = false
	return r.NodeStatus.String()
}

// resetCounters clears the per-run statistics when a node restart banner is
// seen. Storage payments survive restarts; earnings are lifetime values.
func (r *Registry) resetCounters() {
	r.NodeStatus = StatusStarted
	r.ActivityGets = MmmStat{}
	r.ActivityPuts = MmmStat{}
	r.ActivityErrors = MmmStat{}
	r.StorageCost = MmmStat{}
	r.PeersConnected = MmmStat{}
	r.MemoryUsedMB = MmmStat{}
}

func (r *Registry) countGet(at time.Time) {
	r.ActivityGets.AddSample(1)
	r.Timelines.AddSample(timeline.GetsKey, at, 1)
}

func (r *Registry) countPut(at time.Time) {
	r.ActivityPuts.AddSample(1)
	r.Timelines.AddSample(timeline.PutsKey, at, 1)
}

func (r *Registry) countError(at time.Time) {
	r.ActivityErrors.AddSample(1)
	r.Timelines.AddSample(timeline.ErrorsKey, at, 1)
}

func (r *Registry) countStoragePayment(at time.Time, nanos uint64) {
	r.StoragePayments.AddSample(nanos)
	r.Timelines.AddSample(timeline.EarningsKey, at, nanos)
}

func (r *Registry) countStorageCost(at time.Time, nanos uint64) {
	r.StorageCost.AddSample(nanos)
	r.Timelines.AddSample(timeline.StorageCostKey, at, nanos)
}

func (r *Registry) countPeersConnected(at time.Time, peers uint64) {
	r.PeersConnected.AddSample(peers)
	r.Timelines.AddSample(timeline.ConnectionsKey, at, peers)
}

func (r *Registry) countMemoryUsedMB(at time.Time, mb uint64) {
	r.MemoryUsedMB.AddSample(mb)
	r.Timelines.AddSample(timeline.MemoryKey, at, mb)
}
