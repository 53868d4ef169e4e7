package strategy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/routes"
	"github.com/darrell-green/prewarm/internal/types"
)

// fakeDispatcher records dispatched URLs.
type fakeDispatcher struct {
	mu       sync.Mutex
	urls     []string
	triggers []string
}

func (d *fakeDispatcher) Prefetch(ctx context.Context, url string, opts *types.PrefetchOptions) types.PrefetchResult {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	d.triggers = append(d.triggers, opts.Trigger)
	d.mu.Unlock()
	return types.PrefetchResult{URL: url, Status: types.StatusSuccess}
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDispatcher) lastTrigger() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.triggers) == 0 {
		return ""
	}
	return d.triggers[len(d.triggers)-1]
}

func newTestEngine(t *testing.T, rules []config.RouteRule) (*Engine, *fakeDispatcher) {
	t.Helper()

	d := &fakeDispatcher{}
	e := NewEngine(config.ForTesting().Strategy, d, routes.NewResolver(rules, nil), nil, nil)
	t.Cleanup(func() { _ = e.Close() })
	return e, d
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond, msg)
}

func TestHoverDispatchesAfterDebounce(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/pricing", Strategy: "hover", Priority: "high"},
	})

	unregister := e.Register("/pricing")
	defer unregister()

	e.PointerEnter("/pricing")
	eventually(t, func() bool { return d.count() == 1 }, "hover should dispatch after debounce")
	assert.Equal(t, "hover", d.lastTrigger())

	// Once per armed cycle: further hovers are ignored until rearm.
	e.PointerEnter("/pricing")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.count())

	e.Rearm("/pricing")
	e.PointerEnter("/pricing")
	eventually(t, func() bool { return d.count() == 2 }, "rearmed target should dispatch again")
}

func TestHoverLeaveCancelsPendingDispatch(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/pricing", Strategy: "hover"},
	})

	e.Register("/pricing")

	// A quick pass-through: enter then leave inside the debounce.
	e.PointerEnter("/pricing")
	e.PointerLeave("/pricing")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, d.count(), "leave inside the debounce must cancel")

	// Re-enter starts a fresh debounce.
	e.PointerEnter("/pricing")
	eventually(t, func() bool { return d.count() == 1 }, "re-enter should dispatch")
}

func TestImmediateDispatchesOnRegister(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/dashboard", Strategy: "immediate", Priority: "critical"},
	})

	e.Register("/dashboard")
	eventually(t, func() bool { return d.count() == 1 }, "immediate should dispatch on register")
	assert.Equal(t, "immediate", d.lastTrigger())
}

func TestViewportThresholdAndSettle(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/docs", Strategy: "viewport"},
	})

	e.Register("/docs")

	// Below threshold: nothing arms.
	e.VisibilityChange("/docs", 0.1)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, d.count())

	// Crosses threshold but hides before the settle delay: cancelled.
	e.VisibilityChange("/docs", 0.5)
	e.VisibilityChange("/docs", 0.0)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, d.count(), "hide inside the settle delay must cancel")

	// Crosses threshold and stays visible.
	e.VisibilityChange("/docs", 0.5)
	eventually(t, func() bool { return d.count() == 1 }, "settled visibility should dispatch")
}

func TestTouchThrottle(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/checkout", Strategy: "touch"},
	})

	e.Register("/checkout")

	e.TouchStart("/checkout")
	eventually(t, func() bool { return d.count() == 1 }, "first touch should dispatch")

	// Repeats inside the throttle window and after the attempted flag are
	// dropped either way.
	e.TouchStart("/checkout")
	e.TouchStart("/checkout")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.count())
}

func TestIdleDispatches(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/reports", Strategy: "idle"},
	})

	e.Register("/reports")
	eventually(t, func() bool { return d.count() == 1 }, "idle should dispatch after the idle timeout")
}

func TestPrefocusDispatchesOnFocus(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/settings", Strategy: "prefocus"},
	})

	e.Register("/settings")
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 0, d.count(), "prefocus waits for a focus event")

	e.Focus("/settings")
	eventually(t, func() bool { return d.count() == 1 }, "focus should dispatch")
}

func TestManualTrigger(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/export", Strategy: "manual", Priority: "critical"},
	})

	e.Register("/export")

	// Other events do nothing for a manual target.
	e.PointerEnter("/export")
	e.TouchStart("/export")
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 0, d.count())

	e.TriggerManual("/export")
	eventually(t, func() bool { return d.count() == 1 }, "manual trigger should dispatch")
	assert.Equal(t, "manual", d.lastTrigger())
}

func TestManualTriggerUnregisteredTarget(t *testing.T) {
	e, d := newTestEngine(t, nil)

	// Manual means the caller knows best; no registration required.
	e.TriggerManual("/adhoc")
	eventually(t, func() bool { return d.count() == 1 }, "manual should work unregistered")
}

func TestUnregisterCancelsPending(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/pricing", Strategy: "hover"},
	})

	unregister := e.Register("/pricing")
	e.PointerEnter("/pricing")
	unregister()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, d.count(), "unregister inside the debounce must cancel")
	assert.Equal(t, 0, e.Registered())
}

func TestEventsForUnknownTargetsAreIgnored(t *testing.T) {
	e, d := newTestEngine(t, nil)

	e.PointerEnter("/ghost")
	e.PointerLeave("/ghost")
	e.VisibilityChange("/ghost", 1.0)
	e.TouchStart("/ghost")
	e.Focus("/ghost")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, d.count())
}

func TestCloseStopsDispatching(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/pricing", Strategy: "hover"},
	})

	e.Register("/pricing")
	e.PointerEnter("/pricing")
	require.NoError(t, e.Close())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, d.count(), "close inside the debounce must cancel")

	if unregister := e.Register("/late"); unregister != nil {
		unregister()
	}
	assert.Equal(t, 0, e.Registered(), "closed engine accepts no registrations")
}

func TestManualAfterCloseIsIgnored(t *testing.T) {
	e, d := newTestEngine(t, nil)
	require.NoError(t, e.Close())

	// Manual works unregistered, so it must carry its own closed check.
	e.TriggerManual("/adhoc")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, d.count())
}

func TestEventsRacingCloseAreSafe(t *testing.T) {
	e, d := newTestEngine(t, []config.RouteRule{
		{Pattern: "/checkout", Strategy: "touch"},
	})
	e.Register("/checkout")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e.TriggerManual("/adhoc")
				e.TouchStart("/checkout")
				e.Focus("/checkout")
			}
		}()
	}

	require.NoError(t, e.Close())
	wg.Wait()

	// Close waited for every dispatch it admitted; nothing starts after it.
	settled := d.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, d.count())
}
