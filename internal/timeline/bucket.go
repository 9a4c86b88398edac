// Package timeline maintains marching-bucket histories for node metrics.
//
// A Bucket is a fixed-duration, fixed-count sliding window. It begins with a
// single slot holding the initial value and grows one slot per elapsed slot
// duration until it covers its full window, after which the oldest slot is
// evicted whenever a new one is added. A Timeline groups one Bucket per
// configured granularity so a metric can be recorded at several resolutions
// at once (60 x 1s slots cover a minute, 60 x 1m slots cover an hour, ...).
package timeline

import "time"

// StatMode selects which aggregate of a statistical bucket is read.
type StatMode int

const (
	StatMin StatMode = iota
	StatMean
	StatMax
)

// String returns the display label for the mode.
func (m StatMode) String() string {
	switch m {
	case StatMin:
		return "Min"
	case StatMax:
		return "Max"
	default:
		return "Mean"
	}
}

// Next cycles Min -> Mean -> Max -> Min.
func (m StatMode) Next() StatMode {
	switch m {
	case StatMin:
		return StatMean
	case StatMean:
		return StatMax
	default:
		return StatMin
	}
}

// Slot is one aggregation cell of a Bucket. Plain and cumulative buckets use
// Value only. Statistical buckets use Count/Sum/Min/Mean/Max; Count == 0
// marks a slot that has not been touched since it was rolled in, so the
// first sample after a roll re-initializes the min/max bounds.
type Slot struct {
	Value uint64 `json:"value,omitempty"`
	Count uint64 `json:"count,omitempty"`
	Sum   uint64 `json:"sum,omitempty"`
	Min   uint64 `json:"min,omitempty"`
	Mean  uint64 `json:"mean,omitempty"`
	Max   uint64 `json:"max,omitempty"`
}

// Bucket is one granularity's sliding window. Fields are exported so a
// Bucket round-trips through the checkpoint store unchanged.
type Bucket struct {
	// AnchorTime is the start of the newest slot. Zero until the bucket is
	// first advanced.
	AnchorTime   time.Time     `json:"anchor_time"`
	SlotDuration time.Duration `json:"slot_duration"`
	MaxSlots     int           `json:"max_slots"`
	Slots        []Slot        `json:"slots"`

	// Total is the running total of a cumulative bucket. Evicting a slot
	// subtracts its value so Total always equals the sum of the ring.
	Total uint64 `json:"total,omitempty"`

	Stats      bool `json:"stats,omitempty"`
	Cumulative bool `json:"cumulative,omitempty"`
}

// NewBucket creates a window of maxSlots slots of slotDuration each,
// starting with a single empty slot and no anchor.
func NewBucket(slotDuration time.Duration, maxSlots int, stats, cumulative bool) *Bucket {
	return &Bucket{
		SlotDuration: slotDuration,
		MaxSlots:     maxSlots,
		Slots:        make([]Slot, 1, maxSlots),
		Stats:        stats,
		Cumulative:   cumulative,
	}
}

// Advance marches the window forward to now. The first call anchors the
// bucket; later calls roll in one empty slot per whole slot duration
// elapsed, evicting the oldest slot once the window is full. Calling it
// repeatedly with a non-decreasing now never skips or double-counts a
// boundary.
func (b *Bucket) Advance(now time.Time) {
	// A non-positive slot duration cannot march; refusing it here keeps a
	// corrupt restored ring from looping forever.
	if b.SlotDuration <= 0 {
		return
	}
	if b.AnchorTime.IsZero() {
		b.AnchorTime = now
		return
	}

	for b.AnchorTime.Add(b.SlotDuration).Before(now) {
		b.AnchorTime = b.AnchorTime.Add(b.SlotDuration)
		b.Slots = append(b.Slots, Slot{})
		if len(b.Slots) > b.MaxSlots {
			evicted := b.Slots[0]
			copy(b.Slots, b.Slots[1:])
			b.Slots = b.Slots[:len(b.Slots)-1]
			if b.Cumulative {
				b.Total -= evicted.Value
			}
		}
	}
}

// AddSample routes one sample into the window. The sample carries its own
// timestamp, which may lag the anchor during backlog replay: a sample
// floor((anchor-at)/slotDuration) slots behind lands in the matching older
// slot, and one at least ring-length slots behind is discarded for this
// granularity only.
func (b *Bucket) AddSample(at time.Time, value uint64) {
	if len(b.Slots) == 0 {
		return
	}

	idx := len(b.Slots) - 1
	if !b.AnchorTime.IsZero() && at.Before(b.AnchorTime) {
		behind := int(b.AnchorTime.Sub(at) / b.SlotDuration)
		if behind >= len(b.Slots) {
			return
		}
		idx = len(b.Slots) - 1 - behind
	}

	s := &b.Slots[idx]
	switch {
	case b.Stats:
		if s.Count == 0 || value < s.Min {
			s.Min = value
		}
		if s.Count == 0 || value > s.Max {
			s.Max = value
		}
		s.Count++
		s.Sum += value
		s.Mean = s.Sum / s.Count
	case b.Cumulative:
		s.Value += value
		b.Total += value
	default:
		// Instant mode: the newest sample wins.
		s.Value = value
	}
}

// Values returns the ring as plain numbers, oldest first. Statistical
// buckets are read through the caller's display mode; plain and cumulative
// buckets ignore it.
func (b *Bucket) Values(mode StatMode) []uint64 {
	out := make([]uint64, len(b.Slots))
	for i, s := range b.Slots {
		if !b.Stats {
			out[i] = s.Value
			continue
		}
		switch mode {
		case StatMin:
			out[i] = s.Min
		case StatMax:
			out[i] = s.Max
		default:
			out[i] = s.Mean
		}
	}
	return out
}

// DurationCovered reports the span the ring actually covers, which is less
// than SlotDuration * MaxSlots until the bucket has existed that long.
func (b *Bucket) DurationCovered() time.Duration {
	return b.SlotDuration * time.Duration(len(b.Slots))
}
