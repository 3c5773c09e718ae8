package metric

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is a point-in-time copy of a Collector.
type Snapshot struct {
	TotalBlocks  uint64  `json:"total_blocks" yaml:"total_blocks"`
	WriteTimeMs  float64 `json:"write_time_ms" yaml:"write_time_ms"`
	AvgLatencyUs float64 `json:"avg_latency_us" yaml:"avg_latency_us"`
}

// Collector accumulates append latencies for one open journal.
//
// It is safe for concurrent use so a scraper can read it while the
// journal appends.
type Collector struct {
	mu    sync.Mutex
	count uint64
	total time.Duration

	blocksDesc  *prometheus.Desc
	writeDesc   *prometheus.Desc
	latencyDesc *prometheus.Desc
}

// NewCollector creates an empty collector. constLabels are attached to the
// exported gauges, e.g. the journal path.
func NewCollector(constLabels prometheus.Labels) *Collector {
	return &Collector{
		blocksDesc: prometheus.NewDesc(
			"rjournal_session_blocks",
			"Blocks appended since the journal was opened",
			nil, constLabels,
		),
		writeDesc: prometheus.NewDesc(
			"rjournal_session_write_time_milliseconds",
			"Cumulative time spent in append calls since open",
			nil, constLabels,
		),
		latencyDesc: prometheus.NewDesc(
			"rjournal_session_avg_latency_microseconds",
			"Mean append latency since open",
			nil, constLabels,
		),
	}
}

// Observe folds one successful append into the totals.
func (c *Collector) Observe(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	c.total += d
}

// Snapshot returns the current totals.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		TotalBlocks: c.count,
		WriteTimeMs: float64(c.total) / float64(time.Millisecond),
	}
	if c.count > 0 {
		s.AvgLatencyUs = float64(c.total) / float64(c.count) / float64(time.Microsecond)
	}
	return s
}

// Reset clears the totals.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.total = 0
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.blocksDesc
	ch <- c.writeDesc
	ch <- c.latencyDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.blocksDesc, prometheus.GaugeValue, float64(s.TotalBlocks))
	ch <- prometheus.MustNewConstMetric(c.writeDesc, prometheus.GaugeValue, s.WriteTimeMs)
	ch <- prometheus.MustNewConstMetric(c.latencyDesc, prometheus.GaugeValue, s.AvgLatencyUs)
}
