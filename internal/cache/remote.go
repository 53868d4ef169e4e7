package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/types"
)

const bodyKeySuffix = ":body"

// RedisStore is the optional warm-share layer: cooperating processes
// publish their prefetch outcomes so each other's caches start warm. It is
// strictly best-effort; an unreachable server degrades to local-only
// operation rather than failing prefetches.
type RedisStore struct {
	client     *redis.Client
	config     *config.RemoteConfig
	serializer types.Serializer
	logger     *slog.Logger

	connected  atomic.Bool
	errorCount atomic.Int64
}

const disconnectErrorThreshold = 5

// NewRedisStore creates a remote store. A failed initial connection is not
// an error: the store starts unavailable and callers degrade gracefully.
func NewRedisStore(cfg *config.RemoteConfig, serializer types.Serializer, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	if serializer == nil {
		serializer = NewJSONSerializer()
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		}
		if cfg.TLSSkipVerify {
			logger.Warn("TLS certificate verification is disabled - this is insecure for production use")
		}
	}

	rs := &RedisStore{
		client:     redis.NewClient(opts),
		config:     cfg,
		serializer: serializer,
		logger:     logger.With("component", "remote-store"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := rs.client.Ping(ctx).Err(); err != nil {
		rs.logger.Warn("Remote initial connection failed", "error", err)
	} else {
		rs.connected.Store(true)
		rs.logger.Info("Remote warm-share layer connected", "address", cfg.Address)
	}

	return rs
}

func (s *RedisStore) Name() string {
	return "redis"
}

func (s *RedisStore) IsAvailable() bool {
	return s.connected.Load()
}

func (s *RedisStore) entryKey(url string) string {
	return s.config.KeyPrefix + url
}

// Get returns the remote entry and its body, if both exist. Missing bodies
// are fine; missing entries are a remote miss.
func (s *RedisStore) Get(ctx context.Context, url string) (*types.CacheEntry, []byte, error) {
	if !s.connected.Load() {
		return nil, nil, types.ErrRemoteUnavailable
	}

	key := s.entryKey(url)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, types.ErrRemoteMiss
		}
		s.handleError(err)
		return nil, nil, types.NewPrefetchError("RemoteGet", url, err)
	}

	var entry types.CacheEntry
	if err := s.serializer.Unmarshal(data, &entry); err != nil {
		return nil, nil, types.NewPrefetchError("RemoteGet", url, err)
	}

	body, err := s.client.Get(ctx, key+bodyKeySuffix).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.handleError(err)
		body = nil
	}

	s.clearError()
	return &entry, body, nil
}

// Put publishes the entry and body under the entry's remaining TTL.
func (s *RedisStore) Put(ctx context.Context, entry *types.CacheEntry, body []byte) error {
	if !s.connected.Load() {
		return types.ErrRemoteUnavailable
	}

	ttl := entry.TTL
	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	data, err := s.serializer.Marshal(entry)
	if err != nil {
		return types.NewPrefetchError("RemotePut", entry.URL, err)
	}

	key := s.entryKey(entry.URL)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	if len(body) > 0 {
		pipe.Set(ctx, key+bodyKeySuffix, body, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.handleError(err)
		return types.NewPrefetchError("RemotePut", entry.URL, err)
	}

	s.clearError()
	return nil
}

// Delete removes the remote entry and body. Unknown keys are a no-op.
func (s *RedisStore) Delete(ctx context.Context, url string) error {
	if !s.connected.Load() {
		return types.ErrRemoteUnavailable
	}

	key := s.entryKey(url)
	if err := s.client.Del(ctx, key, key+bodyKeySuffix).Err(); err != nil {
		s.handleError(err)
		return types.NewPrefetchError("RemoteDelete", url, err)
	}

	s.clearError()
	return nil
}

// Clear removes all keys under this store's prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	if !s.connected.Load() {
		return types.ErrRemoteUnavailable
	}

	iter := s.client.Scan(ctx, 0, s.config.KeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				s.handleError(err)
				return types.NewPrefetchError("RemoteClear", "", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		s.handleError(err)
		return types.NewPrefetchError("RemoteClear", "", err)
	}
	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			s.handleError(err)
			return types.NewPrefetchError("RemoteClear", "", err)
		}
	}

	s.clearError()
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	s.connected.Store(false)
	return s.client.Close()
}

// Reconnect re-probes the server. Useful after transient outages.
func (s *RedisStore) Reconnect(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.config.DialTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return false
	}
	s.connected.Store(true)
	s.errorCount.Store(0)
	return true
}

func (s *RedisStore) handleError(err error) {
	count := s.errorCount.Add(1)
	if count >= disconnectErrorThreshold && s.connected.Swap(false) {
		s.logger.Warn("Remote marked unavailable after repeated errors",
			"errors", count,
			"lastError", err,
		)
	}
}

func (s *RedisStore) clearError() {
	s.errorCount.Store(0)
	if !s.connected.Swap(true) {
		s.logger.Info("Remote warm-share layer recovered")
	}
}

var _ types.RemoteStore = (*RedisStore)(nil)
