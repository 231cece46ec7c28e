package thermal

import "math"

// Sample is one grid point of a measured or modeled series.
type Sample struct {
	OffsetSec int     `json:"offset_sec"`
	TempC     float64 `json:"temp_c"`
	Missing   bool    `json:"missing,omitempty"`
}

// Series is a temperature series on a fixed grid starting at offset 0.
// Missing samples keep their slot so indices stay aligned to wall-clock time.
type Series struct {
	IntervalSec int      `json:"interval_sec"`
	Samples     []Sample `json:"samples"`
}

// NewSeries lays values on a grid of intervalSec; nil entries are missing.
func NewSeries(intervalSec int, values []*float64) Series {
	s := Series{IntervalSec: intervalSec, Samples: make([]Sample, len(values))}
	for i, v := range values {
		s.Samples[i].OffsetSec = i * intervalSec
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			s.Samples[i].Missing = true
			continue
		}
		s.Samples[i].TempC = *v
	}
	return s
}

// FromValues builds a series with no gaps.
func FromValues(intervalSec int, values ...float64) Series {
	ptrs := make([]*float64, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	return NewSeries(intervalSec, ptrs)
}

// Len returns the number of grid points, missing ones included.
func (s Series) Len() int { return len(s.Samples) }

// Usable returns times and temperatures of the non-missing samples with index
// in [from, to].
func (s Series) Usable(from, to int) (times, temps []float64) {
	if from < 0 {
		from = 0
	}
	if to >= len(s.Samples) {
		to = len(s.Samples) - 1
	}
	for i := from; i <= to; i++ {
		if s.Samples[i].Missing {
			continue
		}
		times = append(times, float64(s.Samples[i].OffsetSec))
		temps = append(temps, s.Samples[i].TempC)
	}
	return times, temps
}

// Peak returns the index of the first maximum over the non-missing samples.
func (s Series) Peak() (int, bool) {
	peak, found := -1, false
	for i, smp := range s.Samples {
		if smp.Missing {
			continue
		}
		if !found || smp.TempC > s.Samples[peak].TempC {
			peak, found = i, true
		}
	}
	return peak, found
}

// FirstPresent returns the index of the first non-missing sample.
func (s Series) FirstPresent() (int, bool) {
	for i, smp := range s.Samples {
		if !smp.Missing {
			return i, true
		}
	}
	return -1, false
}

// firstDecreaseAfter scans forward from the sample after idx for the first
// sample strictly lower than the previous present sample.
func (s Series) firstDecreaseAfter(idx int) (int, bool) {
	prev := idx
	for j := idx + 1; j < len(s.Samples); j++ {
		if s.Samples[j].Missing {
			continue
		}
		if s.Samples[j].TempC < s.Samples[prev].TempC {
			return j, true
		}
		prev = j
	}
	return -1, false
}
