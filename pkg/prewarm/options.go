package prewarm

import (
	"log/slog"
	"time"

	"github.com/darrell-green/prewarm/internal/types"
)

// EngineOption configures a Prefetcher at construction time.
type EngineOption func(*types.EngineOptions)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *types.EngineOptions) {
		o.Logger = logger
	}
}

// WithFetcher replaces the default HTTP fetcher. Hosts embedding the
// library supply their own navigate/prefetch primitive here.
func WithFetcher(fetcher Fetcher) EngineOption {
	return func(o *types.EngineOptions) {
		o.Fetcher = fetcher
	}
}

// WithNetworkProbe supplies the host's network-information capability.
// Without one, the network is assumed fast.
func WithNetworkProbe(probe NetworkProbe) EngineOption {
	return func(o *types.EngineOptions) {
		o.NetworkProbe = probe
	}
}

// WithIdleScheduler supplies the host's idle-callback mechanism for the
// idle strategy. Without one, a plain timer stands in.
func WithIdleScheduler(idle IdleScheduler) EngineOption {
	return func(o *types.EngineOptions) {
		o.IdleScheduler = idle
	}
}

// WithDebugSink receives a per-operation event stream for debug panels.
func WithDebugSink(sink DebugSink) EngineOption {
	return func(o *types.EngineOptions) {
		o.DebugSink = sink
	}
}

// WithMetricsRecorder replaces the built-in metrics collector.
func WithMetricsRecorder(recorder types.MetricsRecorder) EngineOption {
	return func(o *types.EngineOptions) {
		o.Metrics = recorder
	}
}

// WithRemoteAddress overrides the warm-share layer address from config.
func WithRemoteAddress(addr string) EngineOption {
	return func(o *types.EngineOptions) {
		o.RemoteAddress = addr
	}
}

// WithRemotePassword overrides the warm-share layer password from config.
func WithRemotePassword(password string) EngineOption {
	return func(o *types.EngineOptions) {
		o.RemotePassword = types.NewSecretString(password)
	}
}

// WithoutRemote disables the warm-share layer regardless of config.
func WithoutRemote() EngineOption {
	return func(o *types.EngineOptions) {
		o.DisableRemote = true
	}
}

// Option configures a single prefetch call.
type Option = types.Option

// WithForce refetches even when a fresh cache entry exists.
func WithForce() Option {
	return func(o *types.PrefetchOptions) {
		o.Force = true
	}
}

// WithHighPriority asks the fetcher for an elevated priority hint.
func WithHighPriority() Option {
	return func(o *types.PrefetchOptions) {
		o.HighPriority = true
	}
}

// WithTTL overrides the entry TTL for this call.
func WithTTL(ttl time.Duration) Option {
	return func(o *types.PrefetchOptions) {
		o.TTL = ttl
	}
}

// WithPriority overrides the route priority for this call.
func WithPriority(priority Priority) Option {
	return func(o *types.PrefetchOptions) {
		o.Priority = priority
	}
}

// WithTrigger names the originating trigger for metadata and debugging.
func WithTrigger(trigger string) Option {
	return func(o *types.PrefetchOptions) {
		o.Trigger = trigger
	}
}
