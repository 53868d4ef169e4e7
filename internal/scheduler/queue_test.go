package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/types"
)

func TestSortQueueByPriority(t *testing.T) {
	now := time.Now()
	items := []*types.QueueItem{
		{URL: "/low", Config: types.RouteConfig{Priority: types.PriorityLow}, QueueTime: now},
		{URL: "/critical", Config: types.RouteConfig{Priority: types.PriorityCritical}, QueueTime: now},
		{URL: "/medium", Config: types.RouteConfig{Priority: types.PriorityMedium}, QueueTime: now},
		{URL: "/high", Config: types.RouteConfig{Priority: types.PriorityHigh}, QueueTime: now},
	}

	SortQueue(items, now)

	got := []string{items[0].URL, items[1].URL, items[2].URL, items[3].URL}
	assert.Equal(t, []string{"/critical", "/high", "/medium", "/low"}, got)
}

func TestSortQueueAgeBreaksTies(t *testing.T) {
	now := time.Now()
	items := []*types.QueueItem{
		{URL: "/fresh", Config: types.RouteConfig{Priority: types.PriorityMedium}, QueueTime: now},
		{URL: "/waiting", Config: types.RouteConfig{Priority: types.PriorityMedium}, QueueTime: now.Add(-10 * time.Second)},
	}

	SortQueue(items, now)
	assert.Equal(t, "/waiting", items[0].URL, "older item of equal priority drains first")
}

func TestSortQueueRetriesSinkBelowFreshWork(t *testing.T) {
	now := time.Now()
	items := []*types.QueueItem{
		{URL: "/retried", Config: types.RouteConfig{Priority: types.PriorityHigh}, QueueTime: now, RetryCount: 3},
		{URL: "/fresh", Config: types.RouteConfig{Priority: types.PriorityMedium}, QueueTime: now},
	}

	SortQueue(items, now)
	assert.Equal(t, "/fresh", items[0].URL, "retry penalty should outweigh one priority tier")
}

func TestQueueDrains(t *testing.T) {
	rig := newTestRig(t, nil)
	q := NewQueue(rig.sched, 0, 10*time.Millisecond, nil)
	t.Cleanup(func() { _ = q.Close() })

	q.Enqueue(&types.QueueItem{
		URL:     "/pricing",
		Config:  types.DefaultRouteConfig(),
		Trigger: "manual",
	})

	require.Eventually(t, func() bool {
		return rig.sched.IsCached("/pricing")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, q.Len())
}

func TestQueueDropsValidationFailures(t *testing.T) {
	rig := newTestRig(t, nil)
	q := NewQueue(rig.sched, 3, time.Millisecond, nil)
	t.Cleanup(func() { _ = q.Close() })

	q.Enqueue(&types.QueueItem{
		URL:     "https://elsewhere.example.org/x",
		Config:  types.DefaultRouteConfig(),
		Trigger: "manual",
	})

	require.Eventually(t, func() bool {
		return q.Len() == 0
	}, time.Second, 5*time.Millisecond)

	// Give any wrongly-scheduled retry a chance to show up.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, rig.fetcher.count(), "external targets are never fetched or retried")
}

func TestQueueRetriesTransientFailures(t *testing.T) {
	rig := newTestRig(t, func(cfg *config.Config) {
		cfg.Scheduler.MaxRetries = 2
	})
	rig.fetcher.err = assert.AnError

	q := NewQueue(rig.sched, 2, time.Millisecond, nil)
	t.Cleanup(func() { _ = q.Close() })

	q.Enqueue(&types.QueueItem{
		URL:     "/flaky",
		Config:  types.DefaultRouteConfig(),
		Trigger: "manual",
	})

	// Initial attempt plus two retries.
	require.Eventually(t, func() bool {
		return rig.fetcher.count() == 3
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, rig.fetcher.count(), "retries must stop at the ceiling")
}

func TestQueueRemove(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.fetcher.block = make(chan struct{})
	defer close(rig.fetcher.block)

	q := NewQueue(rig.sched, 0, time.Millisecond, nil)
	t.Cleanup(func() { _ = q.Close() })

	// Occupy the worker, then stack pending items behind it.
	q.Enqueue(&types.QueueItem{URL: "/busy", Config: types.DefaultRouteConfig(), Trigger: "manual"})
	require.Eventually(t, func() bool {
		return rig.sched.InFlight() == 1
	}, time.Second, time.Millisecond)

	q.Enqueue(&types.QueueItem{URL: "/a", Config: types.DefaultRouteConfig(), Trigger: "manual"})
	q.Enqueue(&types.QueueItem{URL: "/a", Config: types.DefaultRouteConfig(), Trigger: "manual"})
	q.Enqueue(&types.QueueItem{URL: "/b", Config: types.DefaultRouteConfig(), Trigger: "manual"})
	require.Equal(t, 3, q.Len())

	q.Remove("/a")
	assert.Equal(t, 1, q.Len())
}
