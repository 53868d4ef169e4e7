package config

import "time"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Enabled:      true,
			Origin:       "http://localhost",
			DefaultTTL:   5 * time.Minute,
			MaxRetries:   2,
			RetryBackoff: 500 * time.Millisecond,
		},
		Constraints: ConstraintsConfig{
			MaxConcurrent:  4,
			MaxPerMinute:   30,
			MaxMemoryBytes: 2 * 1024 * 1024,
		},
		Cache: CacheConfig{
			SweepInterval: 30 * time.Second,
			Payloads: PayloadConfig{
				Enabled:      true,
				MaxSizeMB:    64,
				Shards:       256,
				MaxEntrySize: 1024 * 1024, // 1MB
				LifeWindow:   10 * time.Minute,
			},
		},
		Remote: RemoteConfig{
			Enabled:      false,
			Address:      "localhost:6379",
			Password:     SecretString{},
			DB:           0,
			KeyPrefix:    "prewarm:",
			DefaultTTL:   15 * time.Minute,
			PoolSize:     20,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Network: NetworkConfig{
			MinDownlinkMbps: 1.5,
		},
		Strategy: StrategyConfig{
			HoverDebounce:     100 * time.Millisecond,
			ViewportDelay:     100 * time.Millisecond,
			ViewportThreshold: 0.25,
			TouchThrottle:     200 * time.Millisecond,
			IdleTimeout:       2 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
			UserAgent:         "prewarm/1.0",
			CaptureBody:       true,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 10 * time.Second,
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "prewarm",
				Tags:      []string{},
			},
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests.
func ForTesting() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Enabled:      true,
			Origin:       "https://example.com",
			DefaultTTL:   1 * time.Minute,
			MaxRetries:   0,
			RetryBackoff: 10 * time.Millisecond,
		},
		Constraints: ConstraintsConfig{
			MaxConcurrent:  10,
			MaxPerMinute:   1000,
			MaxMemoryBytes: 1024 * 1024,
		},
		Cache: CacheConfig{
			SweepInterval: 0, // No background sweeper in unit tests
			Payloads: PayloadConfig{
				Enabled:      false,
				MaxSizeMB:    16,
				Shards:       64,
				MaxEntrySize: 64 * 1024,
				LifeWindow:   1 * time.Minute,
			},
		},
		Remote: RemoteConfig{
			Enabled:      false,
			Address:      "localhost:6379",
			KeyPrefix:    "test:",
			DefaultTTL:   1 * time.Minute,
			PoolSize:     5,
			DialTimeout:  1 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
		},
		Network: NetworkConfig{
			MinDownlinkMbps: 1.5,
		},
		Strategy: StrategyConfig{
			HoverDebounce:     10 * time.Millisecond,
			ViewportDelay:     10 * time.Millisecond,
			ViewportThreshold: 0.25,
			TouchThrottle:     20 * time.Millisecond,
			IdleTimeout:       20 * time.Millisecond,
		},
		Fetch: FetchConfig{
			Timeout:     1 * time.Second,
			UserAgent:   "prewarm-test",
			CaptureBody: false,
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: 1 * time.Second,
		},
	}
}

// ForTestingWithRemote returns a test config with the remote layer enabled.
func ForTestingWithRemote(addr string) *Config {
	cfg := ForTesting()
	cfg.Remote.Enabled = true
	cfg.Remote.Address = addr
	return cfg
}
