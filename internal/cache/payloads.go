package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/allegro/bigcache/v3"

	"github.com/darrell-green/prewarm/internal/config"
)

// PayloadStore holds captured response bodies, keyed by normalized URL.
// BigCache enforces its own hard memory ceiling on the bodies; the entry
// index's heuristic budget covers only bookkeeping, not payload bytes.
type PayloadStore struct {
	cache  *bigcache.BigCache
	logger *slog.Logger
}

// NewPayloadStore creates a payload store with the given configuration.
func NewPayloadStore(cfg config.PayloadConfig, logger *slog.Logger) (*PayloadStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ps := &PayloadStore{
		logger: logger.With("component", "payload-store"),
	}

	bcConfig := bigcache.Config{
		Shards:             cfg.Shards,
		LifeWindow:         cfg.LifeWindow,
		CleanWindow:        cfg.LifeWindow / 2,
		MaxEntriesInWindow: 1000,
		MaxEntrySize:       cfg.MaxEntrySize,
		HardMaxCacheSize:   cfg.MaxSizeMB,
		Verbose:            false,
		Logger:             &bigcacheLogger{logger: ps.logger},
	}

	bc, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, err
	}

	ps.cache = bc
	return ps, nil
}

// Set stores a body for url.
func (p *PayloadStore) Set(url string, body []byte) error {
	return p.cache.Set(url, body)
}

// Get returns the body for url, if present.
func (p *PayloadStore) Get(url string) ([]byte, bool) {
	data, err := p.cache.Get(url)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			p.logger.Debug("Payload lookup failed", "url", url, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Delete removes the body for url. Unknown keys are a no-op.
func (p *PayloadStore) Delete(url string) {
	if err := p.cache.Delete(url); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		p.logger.Debug("Payload delete failed", "url", url, "error", err)
	}
}

// Reset removes all bodies.
func (p *PayloadStore) Reset() {
	if err := p.cache.Reset(); err != nil {
		p.logger.Debug("Payload reset failed", "error", err)
	}
}

// Len returns the number of stored bodies.
func (p *PayloadStore) Len() int {
	return p.cache.Len()
}

// Capacity returns the bytes allocated for stored bodies.
func (p *PayloadStore) Capacity() int {
	return p.cache.Capacity()
}

// Close releases the underlying cache.
func (p *PayloadStore) Close() error {
	return p.cache.Close()
}

type bigcacheLogger struct {
	logger *slog.Logger
}

func (l *bigcacheLogger) Printf(format string, args ...any) {
	l.logger.Debug("bigcache: "+format, args...)
}
