package prewarm

import (
	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/netinfo"
	"github.com/darrell-green/prewarm/internal/types"
)

// Re-exported types. The internal packages own the definitions; aliases
// keep the public surface in one import.
type (
	Strategy        = types.Strategy
	Priority        = types.Priority
	CacheEntry      = types.CacheEntry
	EntryMetadata   = types.EntryMetadata
	RouteConfig     = types.RouteConfig
	PrefetchResult  = types.PrefetchResult
	ResultStatus    = types.ResultStatus
	PerfMetrics     = types.PerfMetrics
	NetworkSnapshot = types.NetworkSnapshot
	EffectiveType   = types.EffectiveType
	DebugInfo       = types.DebugInfo
	DebugEvent      = types.DebugEvent
	ConstraintInfo  = types.ConstraintInfo
	FetchHint       = types.FetchHint
	FetchInfo       = types.FetchInfo

	Fetcher       = types.Fetcher
	NetworkProbe  = types.NetworkProbe
	IdleScheduler = types.IdleScheduler
	DebugSink     = types.DebugSink

	Config            = config.Config
	SchedulerConfig   = config.SchedulerConfig
	ConstraintsConfig = config.ConstraintsConfig
	CacheConfig       = config.CacheConfig
	RemoteConfig      = config.RemoteConfig
	NetworkConfig     = config.NetworkConfig
	StrategyConfig    = config.StrategyConfig
	FetchConfig       = config.FetchConfig
	MetricsConfig     = config.MetricsConfig
	RouteRule         = config.RouteRule
	SecretString      = config.SecretString
)

// Trigger strategies.
const (
	StrategyImmediate = types.StrategyImmediate
	StrategyHover     = types.StrategyHover
	StrategyViewport  = types.StrategyViewport
	StrategyIdle      = types.StrategyIdle
	StrategyManual    = types.StrategyManual
	StrategyTouch     = types.StrategyTouch
	StrategyPrefocus  = types.StrategyPrefocus
)

// Request priorities.
const (
	PriorityLow      = types.PriorityLow
	PriorityMedium   = types.PriorityMedium
	PriorityHigh     = types.PriorityHigh
	PriorityCritical = types.PriorityCritical
)

// Operation outcomes.
const (
	StatusSuccess = types.StatusSuccess
	StatusCached  = types.StatusCached
	StatusError   = types.StatusError
)

// Connection classes.
const (
	EffectiveSlow2G = types.EffectiveSlow2G
	Effective2G     = types.Effective2G
	Effective3G     = types.Effective3G
	Effective4G     = types.Effective4G
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// ConfigForTesting returns a minimal configuration for unit tests.
func ConfigForTesting() *Config {
	return config.ForTesting()
}

// NewSecretString wraps a sensitive value so it is redacted when marshaled.
func NewSecretString(value string) SecretString {
	return config.NewSecretString(value)
}

// NewStaticProbe returns a network probe reporting a fixed snapshot.
// Useful for hosts that only sample conditions at startup, and for tests.
func NewStaticProbe(snap NetworkSnapshot) *netinfo.StaticProbe {
	return netinfo.NewStaticProbe(snap)
}

// IsFastConnection classifies a network snapshot against a downlink
// threshold in Mbps.
func IsFastConnection(snap NetworkSnapshot, minDownlinkMbps float64) bool {
	return netinfo.IsFastConnection(snap, minDownlinkMbps)
}
