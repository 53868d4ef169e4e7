package metrics

import (
	"time"

	"github.com/darrell-green/prewarm/internal/types"
)

// NoOpRecorder is a no-operation metrics recorder for testing or when
// metrics are disabled.
type NoOpRecorder struct{}

func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}

func (r *NoOpRecorder) Record(sample types.OperationSample)   {}
func (r *NoOpRecorder) ObserveCache(entries int, bytes int64) {}
func (r *NoOpRecorder) Snapshot() types.PerfMetrics           { return types.PerfMetrics{} }
func (r *NoOpRecorder) Reset()                                {}

// NoOpPublisher is a no-operation publisher for testing or when disabled.
type NoOpPublisher struct{}

func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (p *NoOpPublisher) Gauge(name string, value float64, tags ...string)    {}
func (p *NoOpPublisher) Incr(name string, tags ...string)                    {}
func (p *NoOpPublisher) Count(name string, value int64, tags ...string)      {}
func (p *NoOpPublisher) Timing(name string, d time.Duration, tags ...string) {}
func (p *NoOpPublisher) PublishPerfMetrics(m *types.PerfMetrics)             {}
func (p *NoOpPublisher) Close() error                                        { return nil }

var _ types.MetricsRecorder = (*NoOpRecorder)(nil)
var _ Publisher = (*NoOpPublisher)(nil)
