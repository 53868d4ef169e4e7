// Package constraint implements admission control for prefetch operations.
// Every operation passes through the enforcer before any network work
// starts; rejections are ordinary outcomes, not failures.
package constraint

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/netinfo"
	"github.com/darrell-green/prewarm/internal/types"
)

// Evictor is the slice of the cache store the enforcer needs for the
// memory check. Satisfied by *cache.Store.
type Evictor interface {
	EstimatedBytes() int64
	EvictToFit(maxBytes int64) int
}

// Enforcer applies the admission checks in a fixed order: enabled flag,
// concurrency ceiling, rate ceiling, memory ceiling, network gate. The
// first failing check decides the rejection reason; later checks are not
// consulted.
type Enforcer struct {
	cfg     config.ConstraintsConfig
	minMbps float64
	evictor Evictor
	monitor *netinfo.Monitor
	logger  *slog.Logger

	enabled atomic.Bool

	// Start stamps of admitted operations in the trailing minute. The rate
	// ceiling is a true sliding window over these, not a token bucket:
	// the limit must release exactly as stamps age out.
	mu       sync.Mutex
	opStamps []time.Time
	nowFn    func() time.Time
}

// NewEnforcer creates an admission enforcer. evictor and monitor must be
// non-nil; the enforcer starts enabled.
func NewEnforcer(
	cfg config.ConstraintsConfig,
	minDownlinkMbps float64,
	evictor Evictor,
	monitor *netinfo.Monitor,
	logger *slog.Logger,
) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enforcer{
		cfg:     cfg,
		minMbps: minDownlinkMbps,
		evictor: evictor,
		monitor: monitor,
		logger:  logger.With("component", "constraint-enforcer"),
		nowFn:   time.Now,
	}
	e.enabled.Store(true)
	return e
}

// SetNowFunc overrides the clock. Testing hook.
func (e *Enforcer) SetNowFunc(fn func() time.Time) {
	e.mu.Lock()
	e.nowFn = fn
	e.mu.Unlock()
}

// SetEnabled flips the global kill switch. Disabling rejects every new
// operation but does not touch operations already in flight.
func (e *Enforcer) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
	e.logger.Info("Prefetch admission toggled", "enabled", enabled)
}

// Enabled reports the current state of the kill switch.
func (e *Enforcer) Enabled() bool {
	return e.enabled.Load()
}

// Check runs the admission checks for one prospective operation. inFlight
// is the scheduler's current concurrent-operation count, sampled before
// the new operation registers. A nil return admits the operation and
// counts it against the rate window.
func (e *Enforcer) Check(route types.RouteConfig, inFlight int) error {
	if !e.enabled.Load() {
		return types.ErrDisabled
	}

	if e.cfg.MaxConcurrent > 0 && inFlight >= e.cfg.MaxConcurrent {
		return types.ErrMaxConcurrent
	}

	e.mu.Lock()
	now := e.nowFn()
	e.pruneLocked(now)
	if e.cfg.MaxPerMinute > 0 && len(e.opStamps) >= e.cfg.MaxPerMinute {
		e.mu.Unlock()
		return types.ErrRateLimited
	}
	e.mu.Unlock()

	if err := e.checkMemory(); err != nil {
		return err
	}

	if route.FastConnectionOnly && !e.monitor.IsFast(e.minMbps) {
		return types.ErrConnectionSlow
	}

	e.mu.Lock()
	e.opStamps = append(e.opStamps, now)
	e.mu.Unlock()
	return nil
}

// checkMemory enforces the memory ceiling. The ceiling is soft: when
// estimated usage is over the limit the enforcer first asks the store to
// evict down to it, and rejects only if eviction freed nothing.
func (e *Enforcer) checkMemory() error {
	if e.cfg.MaxMemoryBytes <= 0 {
		return nil
	}

	before := e.evictor.EstimatedBytes()
	if before < e.cfg.MaxMemoryBytes {
		return nil
	}

	e.evictor.EvictToFit(e.cfg.MaxMemoryBytes)
	after := e.evictor.EstimatedBytes()
	if after >= e.cfg.MaxMemoryBytes && after >= before {
		e.logger.Warn("Memory ceiling reached and nothing evictable",
			"estimated_bytes", after,
			"max_bytes", e.cfg.MaxMemoryBytes,
		)
		return types.ErrMemoryLimit
	}

	return nil
}

// OpsInWindow returns the count of admitted operations in the trailing
// minute.
func (e *Enforcer) OpsInWindow() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneLocked(e.nowFn())
	return len(e.opStamps)
}

// Constraints returns the configured ceilings for debug reporting.
func (e *Enforcer) Constraints() types.ConstraintInfo {
	return types.ConstraintInfo{
		MaxConcurrent:   e.cfg.MaxConcurrent,
		MaxPerMinute:    e.cfg.MaxPerMinute,
		MaxMemoryBytes:  e.cfg.MaxMemoryBytes,
		MinDownlinkMbps: e.minMbps,
	}
}

func (e *Enforcer) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	keep := e.opStamps[:0]
	for _, ts := range e.opStamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	e.opStamps = keep
}
