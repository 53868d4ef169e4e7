// Package cache implements the prefetch cache store: a keyed index of
// prefetch outcomes with per-entry TTL, access bookkeeping, and LRU-based
// eviction under a memory ceiling.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/types"
)

// entryOverheadBytes is the fixed per-entry accounting overhead added to
// every size estimate.
const entryOverheadBytes = 512

// remoteOpTimeout bounds background remote-layer operations.
const remoteOpTimeout = 3 * time.Second

// EstimateEntryBytes returns the estimated memory footprint of an entry.
// This is a deterministic heuristic over URL length and serialized metadata
// length plus a fixed overhead. It is an estimate, not a measured byte
// count, and the memory ceiling built on top of it inherits that.
func EstimateEntryBytes(e *types.CacheEntry) int64 {
	meta, _ := json.Marshal(e.Metadata)
	return int64(2*len(e.URL)+2*len(meta)) + entryOverheadBytes
}

// Store owns all cache entries. Other components only ever see copies.
// Captured payload bytes live in a separate BigCache-backed store and an
// optional remote warm-share layer; both are kept in step with the index.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*types.CacheEntry

	payloads *PayloadStore
	remote   types.RemoteStore
	logger   *slog.Logger

	nowFn func() time.Time

	sweepStop chan struct{}
	bgWg      sync.WaitGroup
	bgMu      sync.Mutex
	closed    bool
}

// NewStore creates a cache store. payloads may be nil when payload capture
// is disabled; remote may be nil, in which case the disabled remote is used.
func NewStore(cfg config.CacheConfig, payloads *PayloadStore, remote types.RemoteStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if remote == nil {
		remote = NewDisabledRemoteStore()
	}

	s := &Store{
		entries:  make(map[string]*types.CacheEntry),
		payloads: payloads,
		remote:   remote,
		logger:   logger.With("component", "cache-store"),
		nowFn:    time.Now,
	}

	if cfg.SweepInterval > 0 {
		s.sweepStop = make(chan struct{})
		s.bgWg.Add(1)
		go s.sweepLoop(cfg.SweepInterval)
	}

	return s
}

// SetNowFunc overrides the store's clock. Tests only.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

// Get returns a copy of the entry for url, fresh or stale, with no side
// effects. Absent lookups return ok=false, never an error.
func (s *Store) Get(url string) (*types.CacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[url]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Touch performs hit bookkeeping: on a local hit it increments AccessCount
// and stamps LastAccess. On a local miss it consults the remote warm-share
// layer and adopts a still-fresh remote entry. The returned entry is a copy.
func (s *Store) Touch(ctx context.Context, url string) (*types.CacheEntry, bool) {
	s.mu.Lock()
	if e, ok := s.entries[url]; ok {
		e.AccessCount++
		e.LastAccess = s.nowFn()
		clone := e.Clone()
		s.mu.Unlock()
		return clone, true
	}
	now := s.nowFn()
	s.mu.Unlock()

	if !s.remote.IsAvailable() {
		return nil, false
	}

	entry, body, err := s.remote.Get(ctx, url)
	if err != nil {
		if !types.IsRemoteMiss(err) && !types.IsRemoteUnavailable(err) {
			s.logger.Debug("Remote lookup failed", "url", url, "error", err)
		}
		return nil, false
	}
	if !entry.FreshAt(now) {
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccess = now
	s.adopt(entry, body)
	return entry.Clone(), true
}

// adopt installs a remote entry locally without writing it back out.
func (s *Store) adopt(entry *types.CacheEntry, body []byte) {
	s.mu.Lock()
	s.entries[entry.URL] = entry.Clone()
	s.mu.Unlock()

	if s.payloads != nil && len(body) > 0 {
		if err := s.payloads.Set(entry.URL, body); err != nil {
			s.logger.Debug("Failed to adopt remote payload", "url", entry.URL, "error", err)
		}
	}
}

// Put unconditionally upserts the entry and its payload, and write-throughs
// to the remote layer in the background (fire-and-forget).
func (s *Store) Put(entry *types.CacheEntry, body []byte) {
	clone := entry.Clone()

	s.mu.Lock()
	s.entries[clone.URL] = clone
	s.mu.Unlock()

	if s.payloads != nil && len(body) > 0 {
		if err := s.payloads.Set(clone.URL, body); err != nil {
			s.logger.Debug("Failed to store payload", "url", clone.URL, "error", err)
		}
	}

	if s.remote.IsAvailable() {
		remoteCopy := clone.Clone()
		s.runBackground(func(ctx context.Context) {
			if err := s.remote.Put(ctx, remoteCopy, body); err != nil {
				s.logger.Debug("Remote write-through failed", "url", remoteCopy.URL, "error", err)
			}
		})
	}
}

// IsFresh reports whether an entry exists and is fresh at this instant.
func (s *Store) IsFresh(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[url]
	if !ok {
		return false
	}
	return e.FreshAt(s.nowFn())
}

// Delete removes the entry and its payload. Unknown keys are a no-op.
func (s *Store) Delete(ctx context.Context, url string) {
	s.mu.Lock()
	_, ok := s.entries[url]
	delete(s.entries, url)
	s.mu.Unlock()

	if !ok {
		return
	}
	if s.payloads != nil {
		s.payloads.Delete(url)
	}
	if s.remote.IsAvailable() {
		s.runBackground(func(ctx context.Context) {
			if err := s.remote.Delete(ctx, url); err != nil {
				s.logger.Debug("Remote delete failed", "url", url, "error", err)
			}
		})
	}
}

// SweepExpired removes all entries expired at the given instant and returns
// how many were removed. The map is rebuilt rather than mutated during
// iteration, so concurrent readers see either the old or the new map.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	retained := make(map[string]*types.CacheEntry, len(s.entries))
	var removed []string
	for url, e := range s.entries {
		if e.FreshAt(now) {
			retained[url] = e
		} else {
			removed = append(removed, url)
		}
	}
	s.entries = retained
	s.mu.Unlock()

	if s.payloads != nil {
		for _, url := range removed {
			s.payloads.Delete(url)
		}
	}

	if len(removed) > 0 {
		s.logger.Debug("Swept expired entries", "removed", len(removed))
	}
	return len(removed)
}

// EvictToFit removes least-recently-accessed entries until the estimated
// total footprint is at or below maxBytes. It always keeps at least one
// entry, even when that entry alone exceeds the budget: a single oversized
// entry must not wipe the whole cache. Returns the number of remaining
// entries.
func (s *Store) EvictToFit(maxBytes int64) int {
	s.mu.Lock()

	if len(s.entries) == 0 {
		s.mu.Unlock()
		return 0
	}

	ordered := make([]*types.CacheEntry, 0, len(s.entries))
	var total int64
	for _, e := range s.entries {
		ordered = append(ordered, e)
		total += EstimateEntryBytes(e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].LastAccess.Before(ordered[j].LastAccess)
	})

	var evicted []string
	for _, e := range ordered {
		if total <= maxBytes || len(s.entries)-len(evicted) <= 1 {
			break
		}
		total -= EstimateEntryBytes(e)
		evicted = append(evicted, e.URL)
		delete(s.entries, e.URL)
	}
	remaining := len(s.entries)
	s.mu.Unlock()

	if s.payloads != nil {
		for _, url := range evicted {
			s.payloads.Delete(url)
		}
	}

	if len(evicted) > 0 {
		s.logger.Debug("Evicted entries to fit memory budget",
			"evicted", len(evicted),
			"remaining", remaining,
			"maxBytes", maxBytes,
		)
	}
	return remaining
}

// Clear removes every entry, payload, and remote key.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.entries = make(map[string]*types.CacheEntry)
	s.mu.Unlock()

	if s.payloads != nil {
		s.payloads.Reset()
	}
	if s.remote.IsAvailable() {
		if err := s.remote.Clear(ctx); err != nil {
			s.logger.Debug("Remote clear failed", "error", err)
		}
	}
}

// Entries returns copies of all entries, in no particular order.
func (s *Store) Entries() []*types.CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Clone())
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// EstimatedBytes returns the estimated aggregate footprint of the index.
func (s *Store) EstimatedBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, e := range s.entries {
		total += EstimateEntryBytes(e)
	}
	return total
}

// Payload returns the captured body for url, when one was retained.
func (s *Store) Payload(url string) ([]byte, bool) {
	if s.payloads == nil {
		return nil, false
	}
	return s.payloads.Get(url)
}

// PayloadBytes returns the bytes allocated by the payload store, zero when
// payload capture is disabled.
func (s *Store) PayloadBytes() int {
	if s.payloads == nil {
		return 0
	}
	return s.payloads.Capacity()
}

// RemoteAvailable reports whether the warm-share layer is reachable.
func (s *Store) RemoteAvailable() bool {
	return s.remote.IsAvailable()
}

// Close stops the sweeper, waits for background remote writes, and releases
// the payload and remote layers.
func (s *Store) Close() error {
	s.bgMu.Lock()
	if s.closed {
		s.bgMu.Unlock()
		return nil
	}
	s.closed = true
	s.bgMu.Unlock()

	if s.sweepStop != nil {
		close(s.sweepStop)
	}
	s.bgWg.Wait()

	if s.payloads != nil {
		if err := s.payloads.Close(); err != nil {
			s.logger.Debug("Payload store close failed", "error", err)
		}
	}
	return s.remote.Close()
}

func (s *Store) sweepLoop(interval time.Duration) {
	defer s.bgWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.sweepStop:
			return
		case <-ticker.C:
			s.SweepExpired(s.now())
			s.reviveRemote()
		}
	}
}

// reviveRemote re-probes an unavailable remote layer on the sweep tick.
// The disabled remote answers false forever, which keeps this a no-op for
// local-only stores.
func (s *Store) reviveRemote() {
	if s.remote.IsAvailable() {
		return
	}
	s.runBackground(func(ctx context.Context) {
		if s.remote.Reconnect(ctx) {
			s.logger.Info("Remote warm-share layer reconnected")
		}
	})
}

func (s *Store) now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn()
}

// runBackground executes fn in a tracked goroutine with a bounded context.
// Nothing is started once the store is closed.
func (s *Store) runBackground(fn func(ctx context.Context)) {
	s.bgMu.Lock()
	if s.closed {
		s.bgMu.Unlock()
		return
	}
	s.bgWg.Add(1)
	s.bgMu.Unlock()

	go func() {
		defer s.bgWg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), remoteOpTimeout)
		defer cancel()
		fn(ctx)
	}()
}
