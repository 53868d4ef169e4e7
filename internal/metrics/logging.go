package metrics

import (
	"log/slog"
	"time"

	"github.com/darrell-green/prewarm/internal/types"
)

// LoggingPublisher logs metrics using slog. Useful in development when no
// StatsD agent is around.
type LoggingPublisher struct {
	logger   *slog.Logger
	baseTags []string
}

// NewLoggingPublisher creates a new logging publisher.
func NewLoggingPublisher(logger *slog.Logger, baseTags ...string) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{
		logger:   logger.With("component", "metrics"),
		baseTags: baseTags,
	}
}

func (p *LoggingPublisher) Gauge(name string, value float64, tags ...string) {
	p.logger.Debug("gauge", "name", name, "value", value, "tags", p.mergeTags(tags))
}

func (p *LoggingPublisher) Incr(name string, tags ...string) {
	p.logger.Debug("incr", "name", name, "tags", p.mergeTags(tags))
}

func (p *LoggingPublisher) Count(name string, value int64, tags ...string) {
	p.logger.Debug("count", "name", name, "value", value, "tags", p.mergeTags(tags))
}

func (p *LoggingPublisher) Timing(name string, duration time.Duration, tags ...string) {
	p.logger.Debug("timing", "name", name, "duration_ms", duration.Milliseconds(), "tags", p.mergeTags(tags))
}

// PublishPerfMetrics logs a batch of performance metrics.
func (p *LoggingPublisher) PublishPerfMetrics(m *types.PerfMetrics) {
	if m == nil {
		return
	}

	p.logger.Info("perf_metrics",
		"total_operations", m.TotalOperations,
		"successful", m.SuccessfulOperations,
		"failed", m.FailedOperations,
		"cache_hit_rate", m.CacheHitRate,
		"avg_prefetch_ms", m.AvgPrefetchTime,
		"memory_bytes", m.MemoryUsage,
		"entries", m.EntryCount,
		"ops_per_minute", m.OpsPerMinute,
	)
}

// Close does nothing for logging publisher.
func (p *LoggingPublisher) Close() error {
	return nil
}

func (p *LoggingPublisher) mergeTags(tags []string) []string {
	if len(tags) == 0 {
		return p.baseTags
	}
	if len(p.baseTags) == 0 {
		return tags
	}
	return append(p.baseTags, tags...)
}

var _ Publisher = (*LoggingPublisher)(nil)
