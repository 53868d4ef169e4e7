// Package metrics provides prefetch operation metrics collection and
// publishing.
package metrics

import (
	"sync"
	"time"

	"github.com/darrell-green/prewarm/internal/types"
)

// latencyWindowSize bounds the latency history: only the most recent timed
// operations feed the average, keeping it representative of recent behavior
// rather than all-time behavior. An unbounded history is deliberately
// rejected.
const latencyWindowSize = 100

// opsWindow is the trailing window for the ops-per-minute figure.
const opsWindow = time.Minute

// Collector is the rolling aggregator behind PerfMetrics. It is mutated
// only by the scheduler and read by anyone.
type Collector struct {
	mu sync.Mutex

	total      int64
	success    int64
	failed     int64
	hits       int64
	savedBytes int64

	// opTimes holds the timestamps of recent operations. OpsPerMinute is
	// recomputed by filtering this list to the trailing window on every
	// update; a decaying counter would drift.
	opTimes []time.Time

	latencyBuffer [latencyWindowSize]time.Duration
	latencyIndex  int
	latencyCount  int

	entryCount  int
	memoryUsage int64

	lastReset time.Time
	nowFn     func() time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	c := &Collector{nowFn: time.Now}
	c.lastReset = c.nowFn()
	return c
}

// SetNowFunc overrides the collector's clock. Tests only.
func (c *Collector) SetNowFunc(fn func() time.Time) {
	c.mu.Lock()
	c.nowFn = fn
	c.mu.Unlock()
}

// Record adds one operation sample.
func (c *Collector) Record(sample types.OperationSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFn()

	c.total++
	if sample.Success {
		c.success++
	} else {
		c.failed++
	}
	if sample.CacheHit {
		c.hits++
	}
	if sample.SavedBytes > 0 {
		c.savedBytes += sample.SavedBytes
	}

	c.opTimes = append(c.opTimes, now)
	c.pruneLocked(now)

	if sample.Timed {
		c.latencyBuffer[c.latencyIndex] = sample.Duration
		c.latencyIndex = (c.latencyIndex + 1) % latencyWindowSize
		if c.latencyCount < latencyWindowSize {
			c.latencyCount++
		}
	}
}

// ObserveCache records the current cache footprint.
func (c *Collector) ObserveCache(entries int, bytes int64) {
	c.mu.Lock()
	c.entryCount = entries
	c.memoryUsage = bytes
	c.mu.Unlock()
}

// OpsPerMinute returns the count of operations in the trailing window.
func (c *Collector) OpsPerMinute() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.nowFn())
	return len(c.opTimes)
}

// Snapshot returns a defensive copy of the current aggregate.
func (c *Collector) Snapshot() types.PerfMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFn()
	c.pruneLocked(now)

	m := types.PerfMetrics{
		TotalOperations:      c.total,
		SuccessfulOperations: c.success,
		FailedOperations:     c.failed,
		CacheHits:            c.hits,
		MemoryUsage:          c.memoryUsage,
		EntryCount:           c.entryCount,
		OpsPerMinute:         len(c.opTimes),
		NetworkSavedBytes:    c.savedBytes,
		LastReset:            c.lastReset,
	}

	if c.total > 0 {
		m.CacheHitRate = float64(c.hits) / float64(c.total)
	}

	if c.latencyCount > 0 {
		var sum time.Duration
		for i := 0; i < c.latencyCount; i++ {
			sum += c.latencyBuffer[i]
		}
		m.AvgPrefetchTime = float64(sum.Milliseconds()) / float64(c.latencyCount)
	}

	return m
}

// Reset clears all aggregates.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total = 0
	c.success = 0
	c.failed = 0
	c.hits = 0
	c.savedBytes = 0
	c.opTimes = nil
	c.latencyIndex = 0
	c.latencyCount = 0
	c.entryCount = 0
	c.memoryUsage = 0
	c.lastReset = c.nowFn()
}

// pruneLocked drops operation timestamps older than the trailing window.
// Callers must hold mu.
func (c *Collector) pruneLocked(now time.Time) {
	cutoff := now.Add(-opsWindow)
	i := 0
	for i < len(c.opTimes) && !c.opTimes[i].After(cutoff) {
		i++
	}
	if i > 0 {
		c.opTimes = append(c.opTimes[:0], c.opTimes[i:]...)
	}
}

var _ types.MetricsRecorder = (*Collector)(nil)
