package metrics

import (
	"time"

	"github.com/darrell-green/prewarm/internal/types"
)

// Publisher ships aggregated metrics to an external system.
type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	PublishPerfMetrics(m *types.PerfMetrics)
	Close() error
}

// Tag creates a formatted tag string in "key:value" format.
func Tag(key, value string) string {
	return key + ":" + value
}

// StatusTag creates a result status tag (success/cached/error).
func StatusTag(status string) string {
	return Tag("status", status)
}

// TriggerTag creates an originating-trigger tag.
func TriggerTag(trigger string) string {
	return Tag("trigger", trigger)
}
