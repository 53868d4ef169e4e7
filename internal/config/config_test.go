package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/darrell-green/prewarm/internal/types"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate: %v", err)
	}
	if err := ForTesting().Validate(); err != nil {
		t.Fatalf("ForTesting should validate: %v", err)
	}
}

func TestForTestingWithRemoteValidates(t *testing.T) {
	cfg := ForTestingWithRemote("redis.internal:6379")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ForTestingWithRemote should validate: %v", err)
	}
	if !cfg.Remote.Enabled {
		t.Error("remote layer should be enabled")
	}
	if cfg.Remote.Address != "redis.internal:6379" {
		t.Errorf("Address = %q", cfg.Remote.Address)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing origin", func(c *Config) { c.Scheduler.Origin = "" }, "origin"},
		{"zero ttl", func(c *Config) { c.Scheduler.DefaultTTL = 0 }, "defaultTTL"},
		{"negative retries", func(c *Config) { c.Scheduler.MaxRetries = -1 }, "maxRetries"},
		{"zero concurrent", func(c *Config) { c.Constraints.MaxConcurrent = 0 }, "maxConcurrent"},
		{"zero per minute", func(c *Config) { c.Constraints.MaxPerMinute = 0 }, "maxPerMinute"},
		{"zero memory", func(c *Config) { c.Constraints.MaxMemoryBytes = 0 }, "maxMemoryBytes"},
		{"bad shards", func(c *Config) { c.Cache.Payloads.Shards = 100 }, "shards"},
		{"remote without address", func(c *Config) {
			c.Remote.Enabled = true
			c.Remote.Address = ""
		}, "remote.address"},
		{"threshold above one", func(c *Config) { c.Strategy.ViewportThreshold = 1.5 }, "viewportThreshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Constraints.MaxConcurrent != DefaultConfig().Constraints.MaxConcurrent {
		t.Error("missing file should fall back to defaults")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{
		"scheduler": {"origin": "https://app.example.com", "defaultTTL": 120000000000, "enabled": true},
		"constraints": {"maxConcurrent": 8, "maxPerMinute": 60, "maxMemoryBytes": 4194304},
		"routes": [{"pattern": "/pricing", "strategy": "hover", "priority": "high"}]
	}`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.Origin != "https://app.example.com" {
		t.Errorf("Origin = %q", cfg.Scheduler.Origin)
	}
	if cfg.Constraints.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", cfg.Constraints.MaxConcurrent)
	}
	// Unset sections keep their defaults.
	if cfg.Strategy.HoverDebounce != DefaultConfig().Strategy.HoverDebounce {
		t.Error("unset strategy section should keep defaults")
	}
	if len(cfg.Routes) != 1 || cfg.Routes[0].Pattern != "/pricing" {
		t.Errorf("Routes = %+v", cfg.Routes)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PREWARM_ORIGIN", "https://env.example.com")
	t.Setenv("PREWARM_MAX_CONCURRENT", "2")
	t.Setenv("PREWARM_HOVER_DEBOUNCE", "250ms")
	t.Setenv("PREWARM_MIN_DOWNLINK_MBPS", "3.0")
	t.Setenv("PREWARM_ENABLED", "false")

	cfg, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg.Scheduler.Origin != "https://env.example.com" {
		t.Errorf("Origin = %q", cfg.Scheduler.Origin)
	}
	if cfg.Constraints.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", cfg.Constraints.MaxConcurrent)
	}
	if cfg.Strategy.HoverDebounce != 250*time.Millisecond {
		t.Errorf("HoverDebounce = %v", cfg.Strategy.HoverDebounce)
	}
	if cfg.Network.MinDownlinkMbps != 3.0 {
		t.Errorf("MinDownlinkMbps = %v", cfg.Network.MinDownlinkMbps)
	}
	if cfg.Scheduler.Enabled {
		t.Error("PREWARM_ENABLED=false should disable")
	}
}

func TestDataDogEnvOverrides(t *testing.T) {
	t.Setenv("DD_AGENT_HOST", "dd.internal")
	t.Setenv("DD_DOGSTATSD_PORT", "9125")
	t.Setenv("DD_ENV", "staging")

	cfg, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if !cfg.Metrics.DataDog.Enabled {
		t.Error("DD_AGENT_HOST should enable DataDog")
	}
	if cfg.Metrics.DataDog.AgentHost != "dd.internal" {
		t.Errorf("AgentHost = %q", cfg.Metrics.DataDog.AgentHost)
	}
	if cfg.Metrics.DataDog.Port != 9125 {
		t.Errorf("Port = %d", cfg.Metrics.DataDog.Port)
	}
	found := false
	for _, tag := range cfg.Metrics.DataDog.Tags {
		if tag == "env:staging" {
			found = true
		}
	}
	if !found {
		t.Errorf("Tags = %v, want env:staging", cfg.Metrics.DataDog.Tags)
	}
}

func TestParseDuration(t *testing.T) {
	if got := parseDuration("1500ms", 0); got != 1500*time.Millisecond {
		t.Errorf("parseDuration(1500ms) = %v", got)
	}
	// Bare integers are seconds.
	if got := parseDuration("30", 0); got != 30*time.Second {
		t.Errorf("parseDuration(30) = %v", got)
	}
	if got := parseDuration("garbage", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(garbage) = %v, want fallback", got)
	}
}

func TestRouteRuleToRouteConfig(t *testing.T) {
	rule := RouteRule{
		Pattern:            "/dashboard",
		Strategy:           "immediate",
		Priority:           "critical",
		TTL:                2 * time.Minute,
		HighPriority:       true,
		FastConnectionOnly: true,
	}
	got := rule.ToRouteConfig()
	if got.Strategy != types.StrategyImmediate {
		t.Errorf("Strategy = %v", got.Strategy)
	}
	if got.Priority != types.PriorityCritical {
		t.Errorf("Priority = %v", got.Priority)
	}
	if !got.HighPriority || !got.FastConnectionOnly || got.TTL != 2*time.Minute {
		t.Errorf("flags/ttl = %+v", got)
	}
}

func TestSecretStringRedaction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.Password = NewSecretString("hunter2")

	data, err := json.Marshal(cfg.Remote)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Error("password leaked into marshaled config")
	}
}
