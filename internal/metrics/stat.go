// Package metrics holds the per-logfile Metrics Registry: running counters,
// node state scalars, and the detector cascade that extracts them from
// free-text log lines.
package metrics

// MmmStat is a running min/mean/max statistic over all samples ever added.
type MmmStat struct {
	SampleCount uint64 `json:"sample_count"`
	MostRecent  uint64 `json:"most_recent"`
	Total       uint64 `json:"total"`
	Min         uint64 `json:"min"`
	Mean        uint64 `json:"mean"`
	Max         uint64 `json:"max"`
}

// AddSample folds one value into the running statistic.
func (s *MmmStat) AddSample(value uint64) {
	s.MostRecent = value
	s.SampleCount++
	s.Total += value
	s.Mean = s.Total / s.SampleCount

	if s.SampleCount == 1 || value < s.Min {
		s.Min = value
	}
	if value > s.Max {
		s.Max = value
	}
}
