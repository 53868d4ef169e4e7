// Package config provides configuration management for prewarm.
package config

import (
	"time"

	"github.com/darrell-green/prewarm/internal/types"
)

// SecretString is a string type that redacts its value when marshaled to JSON.
type SecretString = types.SecretString

// NewSecretString creates a new SecretString with the provided value.
func NewSecretString(value string) SecretString {
	return types.NewSecretString(value)
}

// Config contains all configuration for the prewarm prefetcher.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Scheduler   SchedulerConfig   `json:"scheduler"`
	Constraints ConstraintsConfig `json:"constraints"`
	Cache       CacheConfig       `json:"cache"`
	Remote      RemoteConfig      `json:"remote"`
	Network     NetworkConfig     `json:"network"`
	Strategy    StrategyConfig    `json:"strategy"`
	Fetch       FetchConfig       `json:"fetch"`
	Metrics     MetricsConfig     `json:"metrics"`
	Routes      []RouteRule       `json:"routes"`
}

// SchedulerConfig contains configuration for the prefetch scheduler.
type SchedulerConfig struct {
	// Origin is the single origin this prefetcher accelerates. Targets on
	// any other origin are rejected.
	Origin       string        `json:"origin"`
	DefaultTTL   time.Duration `json:"defaultTTL"`
	MaxRetries   int           `json:"maxRetries"`
	RetryBackoff time.Duration `json:"retryBackoff"`
	Enabled      bool          `json:"enabled"`
}

// ConstraintsConfig contains the admission-control ceilings consulted
// before every prefetch attempt.
type ConstraintsConfig struct {
	MaxConcurrent  int   `json:"maxConcurrent"`
	MaxPerMinute   int   `json:"maxPerMinute"`
	MaxMemoryBytes int64 `json:"maxMemoryBytes"`
}

// CacheConfig contains configuration for the prefetch cache store.
type CacheConfig struct {
	SweepInterval time.Duration `json:"sweepInterval"`
	Payloads      PayloadConfig `json:"payloads"`
}

// PayloadConfig contains configuration for the BigCache-backed payload
// store holding captured response bodies.
type PayloadConfig struct {
	LifeWindow   time.Duration `json:"lifeWindow"`
	MaxSizeMB    int           `json:"maxSizeMB"`
	Shards       int           `json:"shards"`
	MaxEntrySize int           `json:"maxEntrySize"`
	Enabled      bool          `json:"enabled"`
}

// RemoteConfig contains configuration for the optional Redis-backed
// warm-share layer.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type RemoteConfig struct {
	DefaultTTL    time.Duration `json:"defaultTTL"`
	DialTimeout   time.Duration `json:"dialTimeout"`
	ReadTimeout   time.Duration `json:"readTimeout"`
	WriteTimeout  time.Duration `json:"writeTimeout"`
	Password      SecretString  `json:"password"`
	Address       string        `json:"address"`
	KeyPrefix     string        `json:"keyPrefix"`
	DB            int           `json:"db"`
	PoolSize      int           `json:"poolSize"`
	Enabled       bool          `json:"enabled"`
	EnableTLS     bool          `json:"enableTLS"`
	TLSSkipVerify bool          `json:"tlsSkipVerify"`
}

// NetworkConfig contains configuration for network-speed gating.
type NetworkConfig struct {
	// MinDownlinkMbps is the downlink threshold below which a connection
	// is not considered fast.
	MinDownlinkMbps float64 `json:"minDownlinkMbps"`
}

// StrategyConfig contains the trigger timing defaults.
type StrategyConfig struct {
	HoverDebounce     time.Duration `json:"hoverDebounce"`
	ViewportDelay     time.Duration `json:"viewportDelay"`
	ViewportThreshold float64       `json:"viewportThreshold"`
	TouchThrottle     time.Duration `json:"touchThrottle"`
	IdleTimeout       time.Duration `json:"idleTimeout"`
}

// FetchConfig contains configuration for the default HTTP fetcher.
//
//nolint:govet // Small config struct - minimal alignment benefit
type FetchConfig struct {
	Timeout time.Duration `json:"timeout"`
	// RequestsPerSecond paces outbound warming traffic toward the origin.
	// Zero disables pacing.
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`
	UserAgent         string  `json:"userAgent"`
	CaptureBody       bool    `json:"captureBody"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}

// RouteRule declares the trigger policy for a URL pattern. Patterns support
// a single "*" wildcard (prefix, suffix, or middle); exact matches win over
// wildcard matches.
type RouteRule struct {
	Pattern            string        `json:"pattern"`
	Strategy           string        `json:"strategy"`
	Priority           string        `json:"priority"`
	Delay              time.Duration `json:"delay"`
	TTL                time.Duration `json:"ttl"`
	HighPriority       bool          `json:"highPriority"`
	FastConnectionOnly bool          `json:"fastConnectionOnly"`
}

// ToRouteConfig converts the declarative rule to a resolved route config.
func (r RouteRule) ToRouteConfig() types.RouteConfig {
	return types.RouteConfig{
		Strategy:           types.ParseStrategy(r.Strategy),
		Priority:           types.ParsePriority(r.Priority),
		Delay:              r.Delay,
		TTL:                r.TTL,
		HighPriority:       r.HighPriority,
		FastConnectionOnly: r.FastConnectionOnly,
	}
}
