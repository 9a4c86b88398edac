package timeline

import (
	"fmt"
	"time"
)

// Scale names one supported bucket granularity.
type Scale struct {
	Name         string
	SlotDuration time.Duration
}

// Scales is the fixed ordered set of granularities every Timeline carries,
// finest first.
var Scales = []Scale{
	{"1 second columns", time.Second},
	{"1 minute columns", time.Minute},
	{"1 hour columns", time.Hour},
	{"1 day columns", 24 * time.Hour},
	{"1 week columns", 7 * 24 * time.Hour},
	{"1 year columns", 365 * 24 * time.Hour},
}

// Timeline is the full multi-granularity history of one metric: one Bucket
// per Scale, all advanced together.
type Timeline struct {
	Name       string             `json:"name"`
	Units      string             `json:"units,omitempty"`
	Stats      bool               `json:"stats,omitempty"`
	Cumulative bool               `json:"cumulative,omitempty"`
	Color      string             `json:"color,omitempty"`
	Buckets    map[string]*Bucket `json:"buckets"`
}

// New creates a Timeline with one Bucket of steps slots per Scale.
func New(name, units string, stats, cumulative bool, color string, steps int) *Timeline {
	buckets := make(map[string]*Bucket, len(Scales))
	for _, sc := range Scales {
		buckets[sc.Name] = NewBucket(sc.SlotDuration, steps, stats, cumulative)
	}
	return &Timeline{
		Name:       name,
		Units:      units,
		Stats:      stats,
		Cumulative: cumulative,
		Color:      color,
		Buckets:    buckets,
	}
}

// UpdateCurrentTime advances every granularity to now. Call it much more
// often than the smallest slot duration.
func (t *Timeline) UpdateCurrentTime(now time.Time) {
	for _, b := range t.Buckets {
		b.Advance(now)
	}
}

// AddSample routes one sample into every granularity.
func (t *Timeline) AddSample(at time.Time, value uint64) {
	for _, b := range t.Buckets {
		b.AddSample(at, value)
	}
}

// BucketSet returns the Bucket for the named Scale, or nil.
func (t *Timeline) BucketSet(scaleName string) *Bucket {
	return t.Buckets[scaleName]
}

// DurationText renders a duration the way the dashboard displays idle and
// covered times: largest two units, e.g. "3d 4h", "5m 2s".
func DurationText(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	mins := d / time.Minute
	secs := (d - mins*time.Minute) / time.Second

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
