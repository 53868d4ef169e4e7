package types

import (
	"context"
	"time"
)

// Fetcher is the underlying navigate/prefetch primitive consumed from the
// host. It warms the target without navigating; any error is surfaced by
// the scheduler as an error result, never as a panic or thrown error.
type Fetcher interface {
	Fetch(ctx context.Context, url string, hint FetchHint) (FetchInfo, error)
}

// NetworkProbe abstracts the host platform's network-information
// capability. The second return value is false when the capability is
// absent; callers must treat absence as "assume fast", not as an error.
type NetworkProbe interface {
	Snapshot() (NetworkSnapshot, bool)
}

// IdleScheduler abstracts the host platform's idle-callback mechanism.
// Schedule runs fn when the host is idle, or after timeout at the latest.
// The returned cancel func is a no-op once fn has run.
type IdleScheduler interface {
	Schedule(fn func(), timeout time.Duration) (cancel func())
}

// MetricsRecorder aggregates scheduler operation outcomes.
type MetricsRecorder interface {
	Record(sample OperationSample)
	ObserveCache(entries int, bytes int64)
	Snapshot() PerfMetrics
	Reset()
}

// RemoteStore is an optional shared warm-entry layer. Implementations must
// degrade gracefully: an unavailable remote is reported through
// IsAvailable, not through panics or blocking. Reconnect re-probes an
// unavailable remote and reports whether it came back.
type RemoteStore interface {
	Name() string
	IsAvailable() bool
	Reconnect(ctx context.Context) bool
	Get(ctx context.Context, url string) (*CacheEntry, []byte, error)
	Put(ctx context.Context, entry *CacheEntry, body []byte) error
	Delete(ctx context.Context, url string) error
	Clear(ctx context.Context) error
	Close() error
}

// Serializer converts cache entries to and from bytes for the remote layer.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, dest interface{}) error
}

// DebugSink receives per-operation events for live inspection. It is
// injected at construction; production builds simply omit it.
type DebugSink interface {
	Emit(event DebugEvent)
}
