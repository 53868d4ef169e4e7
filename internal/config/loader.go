package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PREWARM_ENABLED"); v != "" {
		cfg.Scheduler.Enabled = parseBool(v)
	}
	if v := os.Getenv("PREWARM_ORIGIN"); v != "" {
		cfg.Scheduler.Origin = v
	}
	if v := os.Getenv("PREWARM_DEFAULT_TTL"); v != "" {
		cfg.Scheduler.DefaultTTL = parseDuration(v, cfg.Scheduler.DefaultTTL)
	}
	if v := os.Getenv("PREWARM_MAX_RETRIES"); v != "" {
		cfg.Scheduler.MaxRetries = parseInt(v, cfg.Scheduler.MaxRetries)
	}

	if v := os.Getenv("PREWARM_MAX_CONCURRENT"); v != "" {
		cfg.Constraints.MaxConcurrent = parseInt(v, cfg.Constraints.MaxConcurrent)
	}
	if v := os.Getenv("PREWARM_MAX_PER_MINUTE"); v != "" {
		cfg.Constraints.MaxPerMinute = parseInt(v, cfg.Constraints.MaxPerMinute)
	}
	if v := os.Getenv("PREWARM_MAX_MEMORY_BYTES"); v != "" {
		cfg.Constraints.MaxMemoryBytes = int64(parseInt(v, int(cfg.Constraints.MaxMemoryBytes)))
	}

	if v := os.Getenv("PREWARM_PAYLOADS_ENABLED"); v != "" {
		cfg.Cache.Payloads.Enabled = parseBool(v)
	}
	if v := os.Getenv("PREWARM_PAYLOADS_MAX_SIZE_MB"); v != "" {
		cfg.Cache.Payloads.MaxSizeMB = parseInt(v, cfg.Cache.Payloads.MaxSizeMB)
	}
	if v := os.Getenv("PREWARM_SWEEP_INTERVAL"); v != "" {
		cfg.Cache.SweepInterval = parseDuration(v, cfg.Cache.SweepInterval)
	}

	if v := os.Getenv("PREWARM_REMOTE_ENABLED"); v != "" {
		cfg.Remote.Enabled = parseBool(v)
	}
	if v := os.Getenv("PREWARM_REMOTE_ADDRESS"); v != "" {
		cfg.Remote.Address = v
	}
	if v := os.Getenv("PREWARM_REMOTE_PASSWORD"); v != "" {
		cfg.Remote.Password = NewSecretString(v)
	}
	if v := os.Getenv("PREWARM_REMOTE_DB"); v != "" {
		cfg.Remote.DB = parseInt(v, cfg.Remote.DB)
	}
	if v := os.Getenv("PREWARM_REMOTE_KEY_PREFIX"); v != "" {
		cfg.Remote.KeyPrefix = v
	}
	if v := os.Getenv("PREWARM_REMOTE_ENABLE_TLS"); v != "" {
		cfg.Remote.EnableTLS = parseBool(v)
	}

	if v := os.Getenv("PREWARM_MIN_DOWNLINK_MBPS"); v != "" {
		cfg.Network.MinDownlinkMbps = parseFloat(v, cfg.Network.MinDownlinkMbps)
	}

	if v := os.Getenv("PREWARM_HOVER_DEBOUNCE"); v != "" {
		cfg.Strategy.HoverDebounce = parseDuration(v, cfg.Strategy.HoverDebounce)
	}
	if v := os.Getenv("PREWARM_VIEWPORT_DELAY"); v != "" {
		cfg.Strategy.ViewportDelay = parseDuration(v, cfg.Strategy.ViewportDelay)
	}
	if v := os.Getenv("PREWARM_TOUCH_THROTTLE"); v != "" {
		cfg.Strategy.TouchThrottle = parseDuration(v, cfg.Strategy.TouchThrottle)
	}
	if v := os.Getenv("PREWARM_IDLE_TIMEOUT"); v != "" {
		cfg.Strategy.IdleTimeout = parseDuration(v, cfg.Strategy.IdleTimeout)
	}

	if v := os.Getenv("PREWARM_FETCH_TIMEOUT"); v != "" {
		cfg.Fetch.Timeout = parseDuration(v, cfg.Fetch.Timeout)
	}
	if v := os.Getenv("PREWARM_FETCH_RPS"); v != "" {
		cfg.Fetch.RequestsPerSecond = parseFloat(v, cfg.Fetch.RequestsPerSecond)
	}

	if v := os.Getenv("PREWARM_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}

	if v := os.Getenv("PREWARM_DATADOG_ENABLED"); v != "" {
		if os.Getenv("DD_AGENT_HOST") == "" {
			cfg.Metrics.DataDog.Enabled = parseBool(v)
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Scheduler.Origin == "" {
		return fmt.Errorf("scheduler.origin is required")
	}
	if c.Scheduler.DefaultTTL <= 0 {
		return fmt.Errorf("scheduler.defaultTTL must be positive")
	}
	if c.Scheduler.MaxRetries < 0 {
		return fmt.Errorf("scheduler.maxRetries must not be negative")
	}

	if c.Constraints.MaxConcurrent <= 0 {
		return fmt.Errorf("constraints.maxConcurrent must be positive")
	}
	if c.Constraints.MaxPerMinute <= 0 {
		return fmt.Errorf("constraints.maxPerMinute must be positive")
	}
	if c.Constraints.MaxMemoryBytes <= 0 {
		return fmt.Errorf("constraints.maxMemoryBytes must be positive")
	}

	if c.Cache.Payloads.Enabled {
		if c.Cache.Payloads.MaxSizeMB <= 0 {
			return fmt.Errorf("cache.payloads.maxSizeMB must be positive")
		}
		if c.Cache.Payloads.Shards <= 0 || (c.Cache.Payloads.Shards&(c.Cache.Payloads.Shards-1)) != 0 {
			return fmt.Errorf("cache.payloads.shards must be a positive power of 2")
		}
	}

	if c.Remote.Enabled {
		if c.Remote.Address == "" {
			return fmt.Errorf("remote.address is required when remote is enabled")
		}
		if c.Remote.PoolSize <= 0 {
			return fmt.Errorf("remote.poolSize must be positive")
		}
	}

	if c.Network.MinDownlinkMbps < 0 {
		return fmt.Errorf("network.minDownlinkMbps must not be negative")
	}

	if c.Strategy.ViewportThreshold < 0 || c.Strategy.ViewportThreshold > 1 {
		return fmt.Errorf("strategy.viewportThreshold must be in [0, 1]")
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseFloat(s string, defaultVal float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
