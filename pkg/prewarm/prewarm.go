package prewarm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/darrell-green/prewarm/internal/cache"
	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/constraint"
	"github.com/darrell-green/prewarm/internal/metrics"
	"github.com/darrell-green/prewarm/internal/metrics/datadog"
	"github.com/darrell-green/prewarm/internal/netinfo"
	"github.com/darrell-green/prewarm/internal/routes"
	"github.com/darrell-green/prewarm/internal/scheduler"
	"github.com/darrell-green/prewarm/internal/strategy"
	"github.com/darrell-green/prewarm/internal/types"
)

// Prefetcher is the top-level entry point: one instance per accelerated
// origin. It owns the cache store, the admission gate, the scheduler, the
// retry queue, and the strategy engine, and tears them down together.
type Prefetcher struct {
	cfg    *config.Config
	logger *slog.Logger

	store     *cache.Store
	recorder  types.MetricsRecorder
	monitor   *netinfo.Monitor
	enforcer  *constraint.Enforcer
	resolver  *routes.Resolver
	scheduler *scheduler.Scheduler
	queue     *scheduler.Queue
	engine    *strategy.Engine

	publisher   metrics.Publisher
	bgPublisher *metrics.BackgroundPublisher

	mu     sync.Mutex
	closed bool
}

// New creates a prefetcher with default configuration.
func New(opts ...EngineOption) (*Prefetcher, error) {
	return NewFromConfig(config.DefaultConfig(), opts...)
}

// NewFromFile creates a prefetcher from a JSON config file with
// environment overrides applied.
func NewFromFile(path string, opts ...EngineOption) (*Prefetcher, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewMemoryOnly creates a prefetcher for origin with the payload store,
// warm-share layer, and metrics publishing all disabled. The smallest
// useful setup.
func NewMemoryOnly(origin string, opts ...EngineOption) (*Prefetcher, error) {
	cfg := config.DefaultConfig()
	cfg.Scheduler.Origin = origin
	cfg.Cache.Payloads.Enabled = false
	cfg.Remote.Enabled = false
	cfg.Metrics.Enabled = false
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig creates a prefetcher from an explicit configuration.
func NewFromConfig(cfg *config.Config, opts ...EngineOption) (*Prefetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &types.EngineOptions{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "prewarm")

	normalizer, err := types.NewURLNormalizer(cfg.Scheduler.Origin)
	if err != nil {
		return nil, err
	}

	var payloads *cache.PayloadStore
	if cfg.Cache.Payloads.Enabled {
		payloads, err = cache.NewPayloadStore(cfg.Cache.Payloads, logger)
		if err != nil {
			return nil, err
		}
	}

	var remote types.RemoteStore
	if cfg.Remote.Enabled && !o.DisableRemote {
		remoteCfg := cfg.Remote
		if o.RemoteAddress != "" {
			remoteCfg.Address = o.RemoteAddress
		}
		if o.RemotePassword.Value() != "" {
			remoteCfg.Password = o.RemotePassword
		}
		remote = cache.NewRedisStore(&remoteCfg, o.Serializer, logger)
	}

	store := cache.NewStore(cfg.Cache, payloads, remote, logger)

	recorder := o.Metrics
	if recorder == nil {
		recorder = metrics.NewCollector()
	}

	monitor := netinfo.NewMonitor(o.NetworkProbe, logger)
	enforcer := constraint.NewEnforcer(cfg.Constraints, cfg.Network.MinDownlinkMbps, store, monitor, logger)
	resolver := routes.NewResolver(cfg.Routes, logger)

	fetcher := o.Fetcher
	if fetcher == nil {
		fetcher = scheduler.NewHTTPFetcher(cfg.Fetch, logger)
	}

	// With metrics enabled, per-operation outcomes flow through the debug
	// sink path as tagged counters alongside the periodic aggregate.
	var publisher metrics.Publisher = metrics.NewNoOpPublisher()
	debugSink := o.DebugSink
	if cfg.Metrics.Enabled {
		pub, pubErr := datadog.NewPublisher(&cfg.Metrics.DataDog, logger)
		if pubErr != nil {
			return nil, pubErr
		}
		if !cfg.Metrics.DataDog.Enabled {
			pub = metrics.NewLoggingPublisher(logger)
		}
		publisher = pub
		debugSink = metrics.NewEventPublisher(pub, o.DebugSink)
	}

	sched := scheduler.NewScheduler(
		cfg.Scheduler, store, recorder, enforcer, resolver,
		fetcher, normalizer, debugSink, logger,
	)
	queue := scheduler.NewQueue(sched, cfg.Scheduler.MaxRetries, cfg.Scheduler.RetryBackoff, logger)
	engine := strategy.NewEngine(cfg.Strategy, sched, resolver, o.IdleScheduler, logger)

	p := &Prefetcher{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		recorder:  recorder,
		monitor:   monitor,
		enforcer:  enforcer,
		resolver:  resolver,
		scheduler: sched,
		queue:     queue,
		engine:    engine,
		publisher: publisher,
	}

	if cfg.Metrics.Enabled {
		p.bgPublisher = metrics.NewBackgroundPublisher(publisher, cfg.Metrics.PublishInterval, p.Metrics, logger)
		p.bgPublisher.Start(context.Background())
	}

	logger.Info("Prefetcher initialized",
		"origin", cfg.Scheduler.Origin,
		"max_concurrent", cfg.Constraints.MaxConcurrent,
		"remote_enabled", cfg.Remote.Enabled && !o.DisableRemote,
	)
	return p, nil
}

// Prefetch warms a target now, blocking until the outcome is known.
func (p *Prefetcher) Prefetch(ctx context.Context, url string, opts ...Option) PrefetchResult {
	return p.scheduler.Prefetch(ctx, url, types.ApplyOptions(opts...))
}

// Schedule enqueues a target for background prefetching under its resolved
// route. Higher-priority items drain first.
func (p *Prefetcher) Schedule(url string, opts ...Option) {
	o := types.ApplyOptions(opts...)
	route := p.resolver.Resolve(url)
	if o.Priority != 0 {
		route.Priority = o.Priority
	}
	if o.TTL > 0 {
		route.TTL = o.TTL
	}
	if o.HighPriority {
		route.HighPriority = true
	}

	p.queue.Enqueue(&types.QueueItem{
		URL:       url,
		Config:    route,
		QueueTime: time.Now(),
		Trigger:   o.Trigger,
	})
}

// Register arms a target under its resolved trigger strategy and returns
// an unregister func.
func (p *Prefetcher) Register(url string) (unregister func()) {
	return p.engine.Register(url)
}

// RegisterRoute arms a target under an explicit route.
func (p *Prefetcher) RegisterRoute(url string, route RouteConfig) (unregister func()) {
	return p.engine.RegisterRoute(url, route)
}

// Unregister disarms a target.
func (p *Prefetcher) Unregister(url string) {
	p.engine.Unregister(url)
}

// Rearm allows an already-dispatched target to dispatch again.
func (p *Prefetcher) Rearm(url string) {
	p.engine.Rearm(url)
}

// PointerEnter reports a pointer entering a target. Hover strategy.
func (p *Prefetcher) PointerEnter(url string) {
	p.engine.PointerEnter(url)
}

// PointerLeave reports a pointer leaving a target. Hover strategy.
func (p *Prefetcher) PointerLeave(url string) {
	p.engine.PointerLeave(url)
}

// VisibilityChange reports a target's visible ratio. Viewport strategy.
func (p *Prefetcher) VisibilityChange(url string, ratio float64) {
	p.engine.VisibilityChange(url, ratio)
}

// TouchStart reports a touch on a target. Touch strategy.
func (p *Prefetcher) TouchStart(url string) {
	p.engine.TouchStart(url)
}

// Focus reports a target receiving input focus. Prefocus strategy.
func (p *Prefetcher) Focus(url string) {
	p.engine.Focus(url)
}

// TriggerManual dispatches a target on demand.
func (p *Prefetcher) TriggerManual(url string) {
	p.engine.TriggerManual(url)
}

// Cancel aborts the in-flight operation for a target and drops its
// pending queue items.
func (p *Prefetcher) Cancel(url string) bool {
	p.queue.Remove(url)
	return p.scheduler.Cancel(url)
}

// CancelAll aborts every in-flight operation.
func (p *Prefetcher) CancelAll() {
	p.scheduler.CancelAll()
}

// IsCached reports whether a fresh entry exists for a target.
func (p *Prefetcher) IsCached(url string) bool {
	return p.scheduler.IsCached(url)
}

// Payload returns the captured response body for a target, when bodies
// are being captured.
func (p *Prefetcher) Payload(url string) ([]byte, bool) {
	return p.store.Payload(url)
}

// Invalidate drops the cache entry for a target.
func (p *Prefetcher) Invalidate(ctx context.Context, url string) {
	p.scheduler.Invalidate(ctx, url)
}

// ClearCache drops all cache entries.
func (p *Prefetcher) ClearCache(ctx context.Context) {
	p.scheduler.ClearCache(ctx)
}

// Entries returns copies of all cache entries.
func (p *Prefetcher) Entries() []*CacheEntry {
	return p.scheduler.Entries()
}

// Metrics returns the current performance aggregate.
func (p *Prefetcher) Metrics() PerfMetrics {
	return p.scheduler.Metrics()
}

// ResetMetrics clears the performance aggregate.
func (p *Prefetcher) ResetMetrics() {
	p.recorder.Reset()
}

// SetEnabled flips the global prefetch kill switch. Disabling rejects new
// operations without touching in-flight ones or the cache.
func (p *Prefetcher) SetEnabled(enabled bool) {
	p.scheduler.SetEnabled(enabled)
}

// Enabled reports the kill switch state.
func (p *Prefetcher) Enabled() bool {
	return p.scheduler.Enabled()
}

// NotifyNetworkChange tells the prefetcher the host's network conditions
// changed; subscribers re-snapshot.
func (p *Prefetcher) NotifyNetworkChange() {
	p.monitor.NotifyChange()
}

// Network returns the current network snapshot, ok=false when the
// capability is absent.
func (p *Prefetcher) Network() (NetworkSnapshot, bool) {
	return p.monitor.Snapshot()
}

// Debug returns a point-in-time introspection snapshot.
func (p *Prefetcher) Debug() DebugInfo {
	info := DebugInfo{
		Timestamp:       time.Now(),
		Enabled:         p.scheduler.Enabled(),
		Ready:           !p.isClosed(),
		InFlight:        p.scheduler.InFlight(),
		InFlightURLs:    p.scheduler.InFlightURLs(),
		QueueLength:     p.queue.Len(),
		PayloadBytes:    p.store.PayloadBytes(),
		Constraints:     p.enforcer.Constraints(),
		Metrics:         p.Metrics(),
		RemoteAvailable: p.store.RemoteAvailable(),
	}
	if snap, ok := p.monitor.Snapshot(); ok {
		info.Network = &snap
	}
	return info
}

// Close shuts everything down: strategy engine first so no new dispatches
// start, then the queue, the scheduler, the metrics publisher, and finally
// the cache store.
func (p *Prefetcher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if err := p.engine.Close(); err != nil {
		p.logger.Debug("Strategy engine close failed", "error", err)
	}
	if err := p.queue.Close(); err != nil {
		p.logger.Debug("Queue close failed", "error", err)
	}
	if err := p.scheduler.Close(); err != nil {
		p.logger.Debug("Scheduler close failed", "error", err)
	}

	if p.bgPublisher != nil {
		p.bgPublisher.Stop()
	}
	if err := p.publisher.Close(); err != nil {
		p.logger.Debug("Metrics publisher close failed", "error", err)
	}

	err := p.store.Close()
	p.logger.Info("Prefetcher closed")
	return err
}

// CloseWithTimeout closes with an upper bound on the wait.
func (p *Prefetcher) CloseWithTimeout(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- p.Close() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return types.ErrShutdownTimeout
	}
}

func (p *Prefetcher) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
