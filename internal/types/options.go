package types

import (
	"log/slog"
	"time"
)

// PrefetchOptions contains per-operation options for a prefetch call.
type PrefetchOptions struct {
	// Force skips the fresh-cache fast path and refetches.
	Force bool
	// HighPriority asks the fetcher for an elevated priority hint.
	HighPriority bool
	// TTL overrides the route's entry TTL when positive.
	TTL time.Duration
	// Priority overrides the route priority when set.
	Priority Priority
	// Trigger names the originating trigger for metadata and debug events.
	Trigger string
}

// Option is a functional option for configuring a prefetch call.
type Option func(*PrefetchOptions)

// ApplyOptions applies functional options to create PrefetchOptions.
func ApplyOptions(opts ...Option) *PrefetchOptions {
	options := &PrefetchOptions{Trigger: "manual"}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// EngineOptions holds construction-time dependencies for the prefetcher.
type EngineOptions struct {
	// Logger is the structured logger to use.
	Logger *slog.Logger

	// Metrics overrides the built-in metrics collector.
	Metrics MetricsRecorder

	// Fetcher overrides the default HTTP fetcher.
	Fetcher Fetcher

	// NetworkProbe supplies network-condition snapshots. Nil means the
	// capability is absent and the network is assumed fast.
	NetworkProbe NetworkProbe

	// IdleScheduler supplies the idle-callback mechanism for the idle
	// strategy. Nil falls back to a plain timer.
	IdleScheduler IdleScheduler

	// DebugSink receives per-operation debug events. Nil disables them.
	DebugSink DebugSink

	// Serializer overrides the JSON serializer used by the remote layer.
	Serializer Serializer

	// RemoteAddress overrides the remote cache address from config.
	RemoteAddress string

	// RemotePassword overrides the remote cache password from config.
	// Uses SecretString to prevent accidental logging of sensitive values.
	RemotePassword SecretString

	// DisableRemote disables the remote warm-share layer entirely.
	DisableRemote bool
}
