package metrics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nodedash/nodedash/internal/logmeta"
)

// A detector inspects one decoded line and either claims it, applying its
// effect to the Registry, or declines so the next detector runs.
type detector func(r *Registry, meta *logmeta.Metadata, line string) bool

// cascade is the fixed detector order. First match wins and claims the line:
// a line matching several detector substrings is attributed only to the
// first listed. Reordering silently changes behavior, so the order is pinned
// by TestCascadeOrder.
var cascade = []detector{
	detectGet,
	detectPut,
	detectStorageCost,
	detectPayment,
	detectConnections,
	detectStatusChange,
	detectMetricsBlock,
	detectCapacity,
	detectStartup,
}

const (
	runningPrefix   = "Running node "
	processIDPrefix = "Node (PID: "
	metricsMarker   = "node_metrics"
)

func detectGet(r *Registry, meta *logmeta.Metadata, line string) bool {
	if !strings.Contains(line, "Retrieved record from disk") {
		return false
	}
	r.countGet(meta.MessageTime)
	r.NodeStatus = StatusConnected
	return true
}

func detectPut(r *Registry, meta *logmeta.Metadata, line string) bool {
	switch {
	case strings.Contains(line, "Wrote record"),
		strings.Contains(line, "ValidSpendRecordPutFromNetwork"),
		strings.Contains(line, "Editing Register success"):
		r.countPut(meta.MessageTime)
		r.NodeStatus = StatusConnected
		return true
	}
	return false
}

func detectStorageCost(r *Registry, meta *logmeta.Metadata, line string) bool {
	if !strings.Contains(line, "Cost is now") {
		return false
	}
	if cost, ok := r.parseUint("Cost is now ", line); ok {
		r.countStorageCost(meta.MessageTime, cost)
		r.ParserOutput = fmt.Sprintf("Storage cost: %d", cost)
	}
	return true
}

func detectPayment(r *Registry, meta *logmeta.Metadata, line string) bool {
	if !strings.Contains(line, "nanos accepted for record") {
		return false
	}
	if nanos, ok := r.parseUint("payment of NanoTokens(", line); ok {
		r.countStoragePayment(meta.MessageTime, nanos)
		r.ParserOutput = fmt.Sprintf("Payment received: %d", nanos)
		return true
	}
	return false
}

func detectConnections(r *Registry, meta *logmeta.Metadata, line string) bool {
	if !strings.Contains(line, "PeersInRoutingTable") {
		return false
	}
	out := "connected peers:"
	if peers, ok := r.parseUint("PeersInRoutingTable(", line); ok {
		r.countPeersConnected(meta.MessageTime, peers)
		out = fmt.Sprintf("%s %d", out, peers)
	}
	r.ParserOutput = out
	return true
}

func detectStatusChange(r *Registry, _ *logmeta.Metadata, line string) bool {
	switch {
	case strings.Contains(line, "Getting closest peers"):
		r.NodeStatus = StatusConnecting
		r.ParserOutput = "Node status: Connecting"
		return true
	case strings.Contains(line, "Connected to the Network"):
		r.NodeStatus = StatusConnected
		r.ParserOutput = "Node status: Connected"
		return true
	case strings.Contains(line, "Node events channel closed"):
		r.NodeStatus = StatusStopped
		r.ParserOutput = "Node status: Disconnected"
		return true
	case strings.Contains(line, "Skipping "):
		out := "Connected (lag)"
		if skipped, ok := r.parseUint("Skipping ", line); ok {
			out = fmt.Sprintf("%s (%d)", out, skipped)
		}
		r.ParserOutput = out
		return true
	}
	return false
}

// detectMetricsBlock handles the structured resource block the node logs
// periodically. Each field is optional; a failed sub-parse skips only that
// field.
func detectMetricsBlock(r *Registry, meta *logmeta.Metadata, line string) bool {
	if !strings.Contains(line, metricsMarker) {
		return false
	}

	out := "node metrics:"

	// System-wide gauges.
	if v, ok := r.parseFloat(`system_cpu_usage_percent":`, line); ok {
		r.SystemCPU = v
		out = fmt.Sprintf("%s sys_cpu: %v", out, v)
	}
	if v, ok := r.parseFloat(`system_total_memory_mb":`, line); ok {
		r.SystemMemoryMB = v
	}
	if v, ok := r.parseFloat(`system_memory_used_mb":`, line); ok {
		r.SystemMemoryUsedMB = v
	}
	if v, ok := r.parseFloat(`system_memory_usage_percent":`, line); ok {
		r.SystemMemoryPercent = v
	}

	// Network interface counters.
	if name, ok := r.parseWord(`interface_name":`, line); ok {
		r.InterfaceName = name
	}
	if v, ok := r.parseUint(`bytes_received":`, line); ok {
		r.BytesReceived = v
	}
	if v, ok := r.parseUint(`bytes_transmitted":`, line); ok {
		r.BytesTransmitted = v
	}
	if v, ok := r.parseFloat(`total_mb_received":`, line); ok {
		r.TotalMBReceived = v
	}
	if v, ok := r.parseFloat(`total_mb_transmitted":`, line); ok {
		r.TotalMBTransmitted = v
	}

	// Per-process resources.
	if v, ok := r.parseFloat(`"cpu_usage_percent":`, line); ok {
		r.CPUUsagePercent = v
		if v > r.CPUUsagePercentMax {
			r.CPUUsagePercentMax = v
		}
		out = fmt.Sprintf("%s cpu: %v max: %v", out, v, r.CPUUsagePercentMax)
	}
	if v, ok := r.parseFloat(`"memory_used_mb":`, line); ok {
		r.countMemoryUsedMB(meta.MessageTime, uint64(v))
		out = fmt.Sprintf("%s mem: %v", out, v)
	}
	if v, ok := r.parseUint(`bytes_read":`, line); ok {
		r.BytesRead = v
	}
	if v, ok := r.parseUint(`bytes_written":`, line); ok {
		r.BytesWritten = v
	}
	if v, ok := r.parseFloat(`total_mb_read":`, line); ok {
		r.TotalMBRead = v
	}
	if v, ok := r.parseFloat(`total_mb_written":`, line); ok {
		r.TotalMBWritten = v
	}

	r.ParserOutput = out
	return true
}

func detectCapacity(r *Registry, _ *logmeta.Metadata, line string) bool {
	if used, ok := r.parseUint("Used space:", line); ok {
		r.UsedSpace = used
		r.ParserOutput = fmt.Sprintf("Used space: %d", used)
		return true
	}
	if capacity, ok := r.parseUint("Max capacity:", line); ok {
		r.MaxCapacity = capacity
		r.ParserOutput = fmt.Sprintf("Max capacity: %d", capacity)
		return true
	}
	return false
}

// detectStartup handles the node startup banner and the identifier line.
// A restart resets the per-run counters so the dashboard shows the current
// run, not the whole logfile history.
func detectStartup(r *Registry, meta *logmeta.Metadata, line string) bool {
	if idx := strings.Index(line, runningPrefix); idx >= 0 {
		version := strings.TrimSpace(line[idx+len(runningPrefix):])
		r.NodeStarted = meta.MessageTime
		r.RunningMessage = strings.TrimSpace(line[idx:])
		r.RunningVersion = version
		r.resetCounters()
		r.ParserOutput = fmt.Sprintf("START node %s at %s", version, meta.MessageTime)
		return true
	}

	if strings.Contains(line, processIDPrefix) {
		if pid, ok := r.parseUint(processIDPrefix, line); ok {
			r.NodeProcessID = pid
		}
		if peerID, ok := r.parseQuotable("PeerId: ", line); ok {
			r.NodePeerID = peerID
			r.ParserOutput = fmt.Sprintf("Node pid: %d peer_id: %s", r.NodeProcessID, peerID)
		}
		return true
	}

	return false
}

// token returns the first delimiter-free token of s. Trailing garbage after
// the delimiter set is tolerated by design.
func token(s string, delims string) string {
	if i := strings.IndexAny(s, delims); i >= 0 {
		return s[:i]
	}
	return s
}

// parseUint finds prefix in content and parses the following token as an
// unsigned integer. A failed parse is recorded to ParserOutput and only that
// extraction is skipped.
func (r *Registry) parseUint(prefix, content string) (uint64, bool) {
	pos := strings.Index(content, prefix)
	if pos < 0 {
		return 0, false
	}
	word := token(strings.TrimSpace(content[pos+len(prefix):]), " ,})")
	v, err := strconv.ParseUint(word, 10, 64)
	if err != nil {
		r.ParserOutput = fmt.Sprintf("failed to parse %q as uint in: %q", word, content)
		return 0, false
	}
	return v, true
}

func (r *Registry) parseFloat(prefix, content string) (float64, bool) {
	pos := strings.Index(content, prefix)
	if pos < 0 {
		return 0, false
	}
	word := token(strings.TrimSpace(content[pos+len(prefix):]), " ,}")
	v, err := strconv.ParseFloat(word, 64)
	if err != nil {
		r.ParserOutput = fmt.Sprintf("failed to parse %q as float in: %q", word, content)
		return 0, false
	}
	return v, true
}

func (r *Registry) parseWord(prefix, content string) (string, bool) {
	pos := strings.Index(content, prefix)
	if pos < 0 {
		return "", false
	}
	word := token(strings.TrimSpace(content[pos+len(prefix):]), " ,}")
	if word == "" {
		r.ParserOutput = fmt.Sprintf("failed to parse word after %q in: %q", prefix, content)
		return "", false
	}
	return word, true
}

// parseQuotable reads everything after prefix up to a closing double quote,
// or to end of line when unquoted.
func (r *Registry) parseQuotable(prefix, content string) (string, bool) {
	pos := strings.Index(content, prefix)
	if pos < 0 {
		return "", false
	}
	rest := content[pos+len(prefix):]
	if end := strings.Index(rest, `"`); end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		r.ParserOutput = fmt.Sprintf("failed to parse string after %q in: %q", prefix, content)
		return "", false
	}
	return rest, true
}
