package timeline

import (
	"fmt"
	"time"
)

// Keys used to address the application timelines.
const (
	EarningsKey    = "earnings"
	StorageCostKey = "storage"
	PutsKey        = "puts"
	GetsKey        = "gets"
	ErrorsKey      = "errors"
	ConnectionsKey = "connections"
	MemoryKey      = "ram"
)

// Units labels for display next to timeline values.
const (
	EarningsUnits    = " nanos"
	StorageCostUnits = " nanos/MB"
	MemoryUnits      = " MB"
)

// Spec describes one application timeline: key, display name, units label,
// statistical or cumulative aggregation, and display color.
type Spec struct {
	Key        string
	Name       string
	Units      string
	Stats      bool
	Cumulative bool
	Color      string
}

// Specs defines the timelines every Metrics Registry carries, in display
// order.
var Specs = []Spec{
	{EarningsKey, "Earnings", EarningsUnits, false, true, "14"},      // light cyan
	{StorageCostKey, "Storage Cost", StorageCostUnits, true, false, "12"}, // light blue
	{PutsKey, "PUTS", "", false, true, "11"},                         // yellow
	{GetsKey, "GETS", "", false, true, "10"},                         // green
	{ErrorsKey, "ERRORS", "", false, true, "9"},                      // red
	{ConnectionsKey, "Connections", "", true, false, "13"},           // magenta
	{MemoryKey, "Memory", MemoryUnits, true, false, "39"},            // blue
}

// Set holds the application timelines for one monitored node.
type Set struct {
	Timelines map[string]*Timeline `json:"timelines"`
}

// NewSet builds all application timelines with steps slots per granularity.
func NewSet(steps int) *Set {
	s := &Set{Timelines: make(map[string]*Timeline, len(Specs))}
	for _, spec := range Specs {
		s.Timelines[spec.Key] = New(spec.Name, spec.Units, spec.Stats, spec.Cumulative, spec.Color, steps)
	}
	return s
}

// UpdateCurrentTime advances every timeline to now.
func (s *Set) UpdateCurrentTime(now time.Time) {
	for _, t := range s.Timelines {
		t.UpdateCurrentTime(now)
	}
}

// AddSample routes a sample into the keyed timeline. Unknown keys are a
// no-op. Callers advance the timelines to the entry time before sampling.
func (s *Set) AddSample(key string, at time.Time, value uint64) {
	t := s.Timelines[key]
	if t == nil {
		return
	}
	t.AddSample(at, value)
}

// ByKey returns the named timeline, or nil.
func (s *Set) ByKey(key string) *Timeline {
	return s.Timelines[key]
}

// ByIndex returns the index'th timeline in display order, or nil.
func (s *Set) ByIndex(i int) *Timeline {
	if i < 0 || i >= len(Specs) {
		return nil
	}
	return s.Timelines[Specs[i].Key]
}

// Len reports how many application timelines the set holds.
func (s *Set) Len() int { return len(Specs) }

// Validate checks ring geometry on a set restored from disk: every bucket
// needs a positive slot duration and capacity, or advancing it could
// never terminate.
func (s *Set) Validate() error {
	for key, t := range s.Timelines {
		for name, b := range t.Buckets {
			if b == nil || b.SlotDuration <= 0 || b.MaxSlots <= 0 {
				return fmt.Errorf("timeline %s: bucket %q has invalid geometry", key, name)
			}
		}
	}
	return nil
}
