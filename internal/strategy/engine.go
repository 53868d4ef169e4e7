// Package strategy turns host interaction events into prefetch dispatches
// according to each target's declared trigger strategy.
package strategy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/routes"
	"github.com/darrell-green/prewarm/internal/types"
)

// Dispatcher is the slice of the scheduler the engine needs. Satisfied by
// *scheduler.Scheduler.
type Dispatcher interface {
	Prefetch(ctx context.Context, url string, opts *types.PrefetchOptions) types.PrefetchResult
}

// registration tracks one armed target. A target dispatches at most once
// per armed cycle; Rearm or re-registration starts a new cycle.
type registration struct {
	url   string
	route types.RouteConfig

	timer      *time.Timer
	idleCancel func()
	attempted  bool
	lastTouch  time.Time
}

// Engine owns target registrations and reacts to interaction events.
// All event entry points are cheap and non-blocking; the prefetch itself
// always runs on a tracked background goroutine.
type Engine struct {
	cfg        config.StrategyConfig
	dispatcher Dispatcher
	resolver   *routes.Resolver
	idle       types.IdleScheduler
	logger     *slog.Logger

	mu     sync.Mutex
	regs   map[string]*registration
	closed bool

	wg sync.WaitGroup
}

// NewEngine creates a strategy engine. idle may be nil, in which case the
// timer fallback is used.
func NewEngine(
	cfg config.StrategyConfig,
	dispatcher Dispatcher,
	resolver *routes.Resolver,
	idle types.IdleScheduler,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if idle == nil {
		idle = NewTimerIdleScheduler()
	}
	return &Engine{
		cfg:        cfg,
		dispatcher: dispatcher,
		resolver:   resolver,
		idle:       idle,
		logger:     logger.With("component", "strategy-engine"),
		regs:       make(map[string]*registration),
	}
}

// Register arms a target under its resolved route and returns an
// unregister func. Immediate-class strategies (immediate, idle, prefocus
// with no focus source) may dispatch right away.
func (e *Engine) Register(url string) (unregister func()) {
	return e.RegisterRoute(url, e.resolver.Resolve(url))
}

// RegisterRoute arms a target under an explicit route, bypassing the
// resolver. Re-registering a URL replaces the previous registration and
// starts a fresh cycle.
func (e *Engine) RegisterRoute(url string, route types.RouteConfig) (unregister func()) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return func() {}
	}

	if prev, ok := e.regs[url]; ok {
		e.disarmLocked(prev)
	}
	reg := &registration{url: url, route: route}
	e.regs[url] = reg

	switch route.Strategy {
	case types.StrategyImmediate:
		e.armTimerLocked(reg, route.Delay)
	case types.StrategyIdle:
		e.armIdleLocked(reg)
	default:
		// Event-driven strategies wait for their trigger.
	}
	e.mu.Unlock()

	return func() { e.Unregister(url) }
}

// Unregister disarms a target and cancels any pending (not in-flight)
// dispatch.
func (e *Engine) Unregister(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reg, ok := e.regs[url]; ok {
		e.disarmLocked(reg)
		delete(e.regs, url)
	}
}

// Rearm resets a target's once-per-cycle flag so it can dispatch again.
func (e *Engine) Rearm(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reg, ok := e.regs[url]; ok {
		reg.attempted = false
	}
}

// Registered returns the number of armed targets.
func (e *Engine) Registered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.regs)
}

// PointerEnter handles a pointer entering a hover-strategy target. The
// dispatch is debounced: a quick pointer pass-through never fetches.
func (e *Engine) PointerEnter(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reg, ok := e.regs[url]
	if !ok || reg.route.Strategy != types.StrategyHover || reg.attempted {
		return
	}
	e.armTimerLocked(reg, e.debounce(reg.route))
}

// PointerLeave cancels a pending hover dispatch. A dispatch already
// started is not affected.
func (e *Engine) PointerLeave(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reg, ok := e.regs[url]
	if !ok || reg.route.Strategy != types.StrategyHover {
		return
	}
	e.stopTimerLocked(reg)
}

// VisibilityChange handles a viewport-strategy target's visible ratio
// crossing. At or above the threshold a settle timer starts; below it any
// pending dispatch is cancelled.
func (e *Engine) VisibilityChange(url string, ratio float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reg, ok := e.regs[url]
	if !ok || reg.route.Strategy != types.StrategyViewport {
		return
	}

	if ratio >= e.cfg.ViewportThreshold {
		if reg.attempted || reg.timer != nil {
			return
		}
		e.armTimerLocked(reg, e.settleDelay(reg.route))
		return
	}
	e.stopTimerLocked(reg)
}

// TouchStart handles a touch on a touch-strategy target. Touches are
// throttled rather than debounced: the first touch dispatches, repeats
// inside the throttle window are dropped, and there is no cancel path.
func (e *Engine) TouchStart(url string) {
	e.mu.Lock()

	reg, ok := e.regs[url]
	if !ok || reg.route.Strategy != types.StrategyTouch || reg.attempted {
		e.mu.Unlock()
		return
	}

	now := time.Now()
	if !reg.lastTouch.IsZero() && now.Sub(reg.lastTouch) < e.cfg.TouchThrottle {
		e.mu.Unlock()
		return
	}
	reg.lastTouch = now
	reg.attempted = true
	route := reg.route
	e.mu.Unlock()

	e.dispatch(url, route)
}

// Focus handles a prefocus-strategy target receiving input focus.
func (e *Engine) Focus(url string) {
	e.mu.Lock()

	reg, ok := e.regs[url]
	if !ok || reg.route.Strategy != types.StrategyPrefocus || reg.attempted {
		e.mu.Unlock()
		return
	}
	reg.attempted = true
	route := reg.route
	e.mu.Unlock()

	e.dispatch(url, route)
}

// TriggerManual dispatches a manual-strategy target on demand. Unknown
// targets dispatch under the default route; manual means the caller knows
// best.
func (e *Engine) TriggerManual(url string) {
	e.mu.Lock()

	route := types.DefaultRouteConfig()
	if reg, ok := e.regs[url]; ok {
		reg.attempted = true
		route = reg.route
	}
	e.mu.Unlock()

	e.dispatchAs(url, route, "manual")
}

// Close disarms every target and waits for background dispatches.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for _, reg := range e.regs {
		e.disarmLocked(reg)
	}
	e.regs = make(map[string]*registration)
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

// armTimerLocked starts (or restarts) the registration's dispatch timer.
// Callers must hold mu.
func (e *Engine) armTimerLocked(reg *registration, delay time.Duration) {
	e.stopTimerLocked(reg)
	if delay <= 0 {
		delay = time.Millisecond
	}

	url, route := reg.url, reg.route
	reg.timer = time.AfterFunc(delay, func() {
		e.fire(url, route)
	})
}

// armIdleLocked schedules the registration on the idle scheduler.
// Callers must hold mu.
func (e *Engine) armIdleLocked(reg *registration) {
	url, route := reg.url, reg.route
	reg.idleCancel = e.idle.Schedule(func() {
		e.fire(url, route)
	}, e.cfg.IdleTimeout)
}

// fire is the timer and idle callback: it claims the once-per-cycle flag
// and dispatches.
func (e *Engine) fire(url string, route types.RouteConfig) {
	e.mu.Lock()
	reg, ok := e.regs[url]
	if !ok || reg.attempted || e.closed {
		e.mu.Unlock()
		return
	}
	reg.attempted = true
	reg.timer = nil
	reg.idleCancel = nil
	e.mu.Unlock()

	e.dispatch(url, route)
}

// dispatch hands the target to the scheduler on a tracked goroutine.
func (e *Engine) dispatch(url string, route types.RouteConfig) {
	e.dispatchAs(url, route, route.Strategy.String())
}

func (e *Engine) dispatchAs(url string, route types.RouteConfig, trigger string) {
	// The Add must happen under mu with a closed re-check: the event entry
	// points release mu before dispatching, so an event racing Close could
	// otherwise Add concurrently with the final Wait.
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()

		opts := &types.PrefetchOptions{
			HighPriority: route.HighPriority,
			TTL:          route.TTL,
			Priority:     route.Priority,
			Trigger:      trigger,
		}
		result := e.dispatcher.Prefetch(context.Background(), url, opts)
		if result.Status == types.StatusError {
			e.logger.Debug("Strategy dispatch rejected",
				"url", url,
				"strategy", route.Strategy.String(),
				"reason", result.Reason,
			)
		}
	}()
}

func (e *Engine) disarmLocked(reg *registration) {
	e.stopTimerLocked(reg)
	if reg.idleCancel != nil {
		reg.idleCancel()
		reg.idleCancel = nil
	}
}

func (e *Engine) stopTimerLocked(reg *registration) {
	if reg.timer != nil {
		reg.timer.Stop()
		reg.timer = nil
	}
}

// debounce returns the hover debounce for a route, preferring the route's
// own delay.
func (e *Engine) debounce(route types.RouteConfig) time.Duration {
	if route.Delay > 0 {
		return route.Delay
	}
	return e.cfg.HoverDebounce
}

// settleDelay returns the viewport settle delay for a route.
func (e *Engine) settleDelay(route types.RouteConfig) time.Duration {
	if route.Delay > 0 {
		return route.Delay
	}
	return e.cfg.ViewportDelay
}
