// Package checkpoint persists a Metrics Registry snapshot to a sidecar file
// beside the monitored logfile so monitoring can resume after a restart
// without replaying the whole file.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nodedash/nodedash/internal/metrics"
)

const (
	// Ext is appended to the logfile base name for the live sidecar.
	Ext = ".nodedash"
	// tmpExt marks the temp file the snapshot is staged to before rename,
	// so a crash mid-write never corrupts the live sidecar.
	tmpExt = ".nodedash-tmp"

	// Version gates decoding: any serialized-layout change bumps it and
	// older sidecars are discarded rather than misread.
	Version = 1
)

// Record is one persisted snapshot of a Monitor.
type Record struct {
	Version         int               `json:"version"`
	LatestEntryTime *time.Time        `json:"latest_entry_time,omitempty"`
	MonitorIndex    int               `json:"monitor_index"`
	Metrics         *metrics.Registry `json:"metrics"`
}

// SidecarPath returns the checkpoint path for a logfile: same base name,
// checkpoint extension.
func SidecarPath(logPath string) string {
	return strings.TrimSuffix(logPath, filepath.Ext(logPath)) + Ext
}

func tmpPath(logPath string) string {
	return strings.TrimSuffix(logPath, filepath.Ext(logPath)) + tmpExt
}

// Save writes the record next to logPath via a temp file and an atomic
// rename, so readers never observe a partially written sidecar.
func Save(logPath string, rec *Record) error {
	rec.Version = Version
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}

	tmp := tmpPath(logPath)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write: %w", err)
	}
	if err := os.Rename(tmp, SidecarPath(logPath)); err != nil {
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

// Load reads the sidecar for logPath. Any read or decode failure is an
// error the caller treats as "no checkpoint"; it is never fatal.
func Load(logPath string) (*Record, error) {
	data, err := os.ReadFile(SidecarPath(logPath))
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("checkpoint: decode: %w", err)
	}
	if rec.Version != Version {
		return nil, fmt.Errorf("checkpoint: unsupported version %d", rec.Version)
	}
	if rec.Metrics == nil {
		return nil, fmt.Errorf("checkpoint: missing metrics snapshot")
	}
	if rec.Metrics.Timelines == nil {
		return nil, fmt.Errorf("checkpoint: missing timelines")
	}
	if err := rec.Metrics.Timelines.Validate(); err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	return &rec, nil
}
