package bench

import (
	"slices"
	"sync"
	"time"
)

// LatencyRecorder collects latency samples for percentile calculation.
type LatencyRecorder struct {
	mu      sync.Mutex
	samples []time.Duration
	sum     time.Duration
	min     time.Duration
	max     time.Duration
}

// NewLatencyRecorder creates a new latency recorder.
func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{
		samples: make([]time.Duration, 0, 10000),
		min:     time.Hour,
	}
}

// Record adds a latency sample.
func (r *LatencyRecorder) Record(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = append(r.samples, d)
	r.sum += d
	r.min = min(r.min, d)
	r.max = max(r.max, d)
}

// Count returns the number of recorded samples.
func (r *LatencyRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Reset clears all recorded samples.
func (r *LatencyRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = r.samples[:0]
	r.sum = 0
	r.min = time.Hour
	r.max = 0
}

// Percentiles calculates and returns latency percentiles.
func (r *LatencyRecorder) Percentiles() Percentiles {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.samples)
	if n == 0 {
		return Percentiles{}
	}

	sorted := slices.Clone(r.samples)
	slices.Sort(sorted)

	return Percentiles{
		Avg:  r.sum / time.Duration(n),
		Min:  r.min,
		Max:  r.max,
		P50:  sorted[percentileIndex(n, 50)],
		P90:  sorted[percentileIndex(n, 90)],
		P99:  sorted[percentileIndex(n, 99)],
		P999: sorted[percentileIndex(n, 99.9)],
	}
}

func percentileIndex(n int, percentile float64) int {
	idx := int(float64(n) * percentile / 100)
	return max(0, min(idx, n-1))
}
