package types

import (
	"testing"
	"time"
)

func TestCacheEntryFreshAt(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := &CacheEntry{URL: "/a", Timestamp: t0, TTL: time.Second}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"at creation", t0, true},
		{"just inside ttl", t0.Add(999 * time.Millisecond), true},
		{"exactly at ttl", t0.Add(time.Second), false},
		{"past ttl", t0.Add(2 * time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.FreshAt(tt.at); got != tt.want {
				t.Errorf("FreshAt(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestPriorityScore(t *testing.T) {
	if PriorityCritical.Score() <= PriorityHigh.Score() {
		t.Error("critical should outrank high")
	}
	if PriorityHigh.Score() <= PriorityMedium.Score() {
		t.Error("high should outrank medium")
	}
	if PriorityMedium.Score() <= PriorityLow.Score() {
		t.Error("medium should outrank low")
	}
}

func TestQueueItemPriorityScore(t *testing.T) {
	now := time.Now()

	t.Run("age bonus", func(t *testing.T) {
		item := &QueueItem{
			URL:       "/a",
			Config:    RouteConfig{Priority: PriorityMedium},
			QueueTime: now.Add(-5 * time.Second),
		}
		got := item.PriorityScore(now)
		if got != 55 {
			t.Errorf("PriorityScore = %v, want 55 (base 50 + 5s age)", got)
		}
	})

	t.Run("age bonus capped", func(t *testing.T) {
		item := &QueueItem{
			URL:       "/a",
			Config:    RouteConfig{Priority: PriorityLow},
			QueueTime: now.Add(-10 * time.Minute),
		}
		got := item.PriorityScore(now)
		if got != 55 {
			t.Errorf("PriorityScore = %v, want 55 (base 25 + capped 30)", got)
		}
	})

	t.Run("stale low never outranks fresh critical", func(t *testing.T) {
		stale := &QueueItem{Config: RouteConfig{Priority: PriorityLow}, QueueTime: now.Add(-time.Hour)}
		fresh := &QueueItem{Config: RouteConfig{Priority: PriorityCritical}, QueueTime: now}
		if stale.PriorityScore(now) >= fresh.PriorityScore(now) {
			t.Error("stale low-priority item outranked fresh critical item")
		}
	})

	t.Run("retry penalty", func(t *testing.T) {
		item := &QueueItem{
			Config:     RouteConfig{Priority: PriorityHigh},
			QueueTime:  now,
			RetryCount: 2,
		}
		got := item.PriorityScore(now)
		if got != 55 {
			t.Errorf("PriorityScore = %v, want 55 (base 75 - 2*10)", got)
		}
	})
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{
		StrategyImmediate, StrategyHover, StrategyViewport,
		StrategyIdle, StrategyManual, StrategyTouch, StrategyPrefocus,
	} {
		if got := ParseStrategy(s.String()); got != s {
			t.Errorf("ParseStrategy(%q) = %v, want %v", s.String(), got, s)
		}
	}
	if got := ParseStrategy("bogus"); got != StrategyHover {
		t.Errorf("ParseStrategy(bogus) = %v, want hover default", got)
	}
}
