// Package scheduler executes prefetch operations: validation, the cache
// fast path, admission control, the fetch itself, and metrics. All failure
// modes come back as structured results; Prefetch never returns an error.
package scheduler

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/darrell-green/prewarm/internal/cache"
	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/constraint"
	"github.com/darrell-green/prewarm/internal/metrics"
	"github.com/darrell-green/prewarm/internal/routes"
	"github.com/darrell-green/prewarm/internal/types"
)

// Scheduler coordinates one origin's prefetch traffic.
type Scheduler struct {
	cfg        config.SchedulerConfig
	store      *cache.Store
	recorder   types.MetricsRecorder
	enforcer   *constraint.Enforcer
	resolver   *routes.Resolver
	fetcher    types.Fetcher
	normalizer *types.URLNormalizer
	debug      types.DebugSink
	logger     *slog.Logger

	// group collapses concurrent prefetches of the same URL into one
	// in-flight operation; every caller receives the single result.
	group singleflight.Group

	mu       sync.Mutex
	inFlight map[string]context.CancelFunc
	closed   bool

	nowFn func() time.Time
}

// NewScheduler wires a scheduler over its collaborators. fetcher must be
// non-nil; debug may be nil.
func NewScheduler(
	cfg config.SchedulerConfig,
	store *cache.Store,
	recorder types.MetricsRecorder,
	enforcer *constraint.Enforcer,
	resolver *routes.Resolver,
	fetcher types.Fetcher,
	normalizer *types.URLNormalizer,
	debug types.DebugSink,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoOpRecorder()
	}

	s := &Scheduler{
		cfg:        cfg,
		store:      store,
		recorder:   recorder,
		enforcer:   enforcer,
		resolver:   resolver,
		fetcher:    fetcher,
		normalizer: normalizer,
		debug:      debug,
		logger:     logger.With("component", "scheduler"),
		inFlight:   make(map[string]context.CancelFunc),
		nowFn:      time.Now,
	}
	s.enforcer.SetEnabled(cfg.Enabled)
	return s
}

// SetNowFunc overrides the clock. Tests only.
func (s *Scheduler) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

// Prefetch warms one target. The result carries the outcome; rejections
// and fetch failures are error results with a caller-facing reason.
func (s *Scheduler) Prefetch(ctx context.Context, rawURL string, opts *types.PrefetchOptions) types.PrefetchResult {
	result, _ := s.do(ctx, rawURL, opts)
	return result
}

// do is Prefetch plus the underlying error, which the retry queue uses to
// classify failures.
func (s *Scheduler) do(ctx context.Context, rawURL string, opts *types.PrefetchOptions) (types.PrefetchResult, error) {
	if opts == nil {
		opts = types.ApplyOptions()
	}
	start := s.now()

	target, err := s.normalizer.Normalize(rawURL)
	if err != nil {
		s.recorder.Record(types.OperationSample{})
		return s.errorResult(rawURL, opts.Trigger, start, err), err
	}

	if s.isClosed() {
		return s.errorResult(target, opts.Trigger, start, types.ErrClosed), types.ErrClosed
	}

	if !opts.Force {
		if entry, ok := s.store.Touch(ctx, target); ok && entry.FreshAt(s.now()) {
			s.recorder.Record(types.OperationSample{
				Success:    true,
				CacheHit:   true,
				SavedBytes: entry.Size,
			})
			result := types.PrefetchResult{
				URL:       target,
				Status:    types.StatusCached,
				FromCache: true,
				Size:      entry.Size,
				Timestamp: s.now(),
			}
			s.emit(result, opts.Trigger)
			return result, nil
		}
	}

	route := s.effectiveRoute(target, opts)

	v, err, _ := s.group.Do(target, func() (interface{}, error) {
		res, execErr := s.execute(ctx, target, route, opts)
		if execErr != nil {
			return nil, execErr
		}
		return res, nil
	})
	if err != nil {
		return s.errorResult(target, opts.Trigger, start, err), err
	}

	result := v.(types.PrefetchResult)
	s.emit(result, opts.Trigger)
	return result, nil
}

// execute runs the admitted path for exactly one in-flight URL. Callers
// collapsed by singleflight share its result.
func (s *Scheduler) execute(ctx context.Context, target string, route types.RouteConfig, opts *types.PrefetchOptions) (types.PrefetchResult, error) {
	start := s.now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.PrefetchResult{}, types.ErrClosed
	}
	if err := s.enforcer.Check(route, len(s.inFlight)); err != nil {
		s.mu.Unlock()
		s.recorder.Record(types.OperationSample{})
		return types.PrefetchResult{}, err
	}
	opCtx, cancel := context.WithCancel(ctx)
	s.inFlight[target] = cancel
	s.mu.Unlock()

	// The slot must be released on every exit path, fetch panics included;
	// a leaked slot would shrink the concurrency budget forever.
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.inFlight, target)
		s.mu.Unlock()
	}()

	hint := types.FetchHint{Priority: route.Priority, HighPriority: route.HighPriority || opts.HighPriority}
	info, err := s.fetcher.Fetch(opCtx, target, hint)
	duration := s.now().Sub(start)
	if err != nil {
		s.recorder.Record(types.OperationSample{Timed: true, Duration: duration})
		s.logger.Debug("Prefetch failed", "url", target, "error", err, "duration", duration)
		return types.PrefetchResult{}, err
	}

	ttl := route.TTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	now := s.now()
	entry := &types.CacheEntry{
		URL:        target,
		Timestamp:  now,
		TTL:        ttl,
		LastAccess: now,
		Size:       info.Size,
		Metadata: types.EntryMetadata{
			Strategy: route.Strategy,
			Priority: route.Priority,
			Trigger:  opts.Trigger,
		},
	}
	s.store.Put(entry, info.Body)

	s.recorder.Record(types.OperationSample{Success: true, Timed: true, Duration: duration})
	s.observeCache()

	s.logger.Debug("Prefetch complete",
		"url", target,
		"size", info.Size,
		"ttl", ttl,
		"duration", duration,
	)

	return types.PrefetchResult{
		URL:       target,
		Status:    types.StatusSuccess,
		Duration:  duration,
		Size:      info.Size,
		Timestamp: now,
	}, nil
}

// effectiveRoute resolves the declared route for target and folds in the
// per-call overrides.
func (s *Scheduler) effectiveRoute(target string, opts *types.PrefetchOptions) types.RouteConfig {
	route := s.resolver.Resolve(pathOf(target))
	if opts.Priority != 0 {
		route.Priority = opts.Priority
	}
	if opts.TTL > 0 {
		route.TTL = opts.TTL
	}
	if opts.HighPriority {
		route.HighPriority = true
	}
	return route
}

// Cancel aborts the in-flight operation for a target, if any. Returns
// whether one was found.
func (s *Scheduler) Cancel(rawURL string) bool {
	target, err := s.normalizer.Normalize(rawURL)
	if err != nil {
		return false
	}

	s.mu.Lock()
	cancel, ok := s.inFlight[target]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelAll aborts every in-flight operation.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.inFlight))
	for _, c := range s.inFlight {
		cancels = append(cancels, c)
	}
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

// IsCached reports whether a fresh entry exists for the target.
func (s *Scheduler) IsCached(rawURL string) bool {
	target, err := s.normalizer.Normalize(rawURL)
	if err != nil {
		return false
	}
	return s.store.IsFresh(target)
}

// Invalidate drops the entry for a target.
func (s *Scheduler) Invalidate(ctx context.Context, rawURL string) {
	target, err := s.normalizer.Normalize(rawURL)
	if err != nil {
		return
	}
	s.store.Delete(ctx, target)
	s.observeCache()
}

// ClearCache drops all entries.
func (s *Scheduler) ClearCache(ctx context.Context) {
	s.store.Clear(ctx)
	s.observeCache()
}

// Entries returns copies of all cache entries.
func (s *Scheduler) Entries() []*types.CacheEntry {
	return s.store.Entries()
}

// Metrics returns the current aggregate.
func (s *Scheduler) Metrics() types.PerfMetrics {
	s.observeCache()
	return s.recorder.Snapshot()
}

// SetEnabled flips the admission kill switch.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.enforcer.SetEnabled(enabled)
}

// Enabled reports the admission kill switch.
func (s *Scheduler) Enabled() bool {
	return s.enforcer.Enabled()
}

// InFlight returns the number of operations currently executing.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// InFlightURLs returns the targets currently executing.
func (s *Scheduler) InFlightURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0, len(s.inFlight))
	for u := range s.inFlight {
		urls = append(urls, u)
	}
	return urls
}

// Close cancels in-flight operations and rejects new ones. The cache store
// is owned by the caller and closed separately.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.CancelAll()
	s.logger.Info("Scheduler closed")
	return nil
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scheduler) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowFn()
}

func (s *Scheduler) observeCache() {
	s.recorder.ObserveCache(s.store.Len(), s.store.EstimatedBytes())
}

func (s *Scheduler) errorResult(target, trigger string, start time.Time, err error) types.PrefetchResult {
	result := types.PrefetchResult{
		URL:       target,
		Status:    types.StatusError,
		Reason:    err.Error(),
		Duration:  s.now().Sub(start),
		Timestamp: s.now(),
	}
	s.emit(result, trigger)
	return result
}

func (s *Scheduler) emit(result types.PrefetchResult, trigger string) {
	if s.debug == nil {
		return
	}
	s.debug.Emit(types.DebugEvent{
		Time:     result.Timestamp,
		URL:      result.URL,
		Status:   result.Status,
		Reason:   result.Reason,
		Trigger:  trigger,
		Duration: result.Duration,
	})
}

// pathOf extracts the path component used for route resolution.
func pathOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	return u.Path
}
