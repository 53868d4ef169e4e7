package cache

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/types"
)

// fakeRemote is an in-memory stand-in for the warm-share layer.
type fakeRemote struct {
	mu         sync.Mutex
	available  bool
	entries    map[string]*types.CacheEntry
	bodies     map[string][]byte
	gets       int
	puts       int
	reconnects int
}

func newFakeRemote(available bool) *fakeRemote {
	return &fakeRemote{
		available: available,
		entries:   make(map[string]*types.CacheEntry),
		bodies:    make(map[string][]byte),
	}
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) IsAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeRemote) Reconnect(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	f.available = true
	return true
}

func (f *fakeRemote) Get(ctx context.Context, url string) (*types.CacheEntry, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	e, ok := f.entries[url]
	if !ok {
		return nil, nil, types.ErrRemoteMiss
	}
	return e.Clone(), f.bodies[url], nil
}

func (f *fakeRemote) Put(ctx context.Context, entry *types.CacheEntry, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.entries[entry.URL] = entry.Clone()
	f.bodies[entry.URL] = body
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, url)
	delete(f.bodies, url)
	return nil
}

func (f *fakeRemote) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string]*types.CacheEntry)
	f.bodies = make(map[string][]byte)
	return nil
}

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *fakeRemote) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *fakeRemote) reconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

func newRemoteTestStore(t *testing.T, remote types.RemoteStore) *Store {
	t.Helper()
	cfg := config.ForTesting().Cache
	cfg.SweepInterval = 0
	s := NewStore(cfg, nil, remote, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTouchAdoptsFreshRemoteEntry(t *testing.T) {
	remote := newFakeRemote(true)
	s := newRemoteTestStore(t, remote)

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetNowFunc(func() time.Time { return t0 })

	shared := entryAt("https://example.com/warm", t0.Add(-time.Second), time.Minute)
	shared.AccessCount = 4
	remote.entries[shared.URL] = shared

	got, ok := s.Touch(context.Background(), shared.URL)
	if !ok {
		t.Fatal("expected the fresh remote entry to be adopted")
	}
	if got.AccessCount != 5 {
		t.Errorf("AccessCount = %d, want 5 (adoption bumps bookkeeping)", got.AccessCount)
	}
	if !got.LastAccess.Equal(t0) {
		t.Errorf("LastAccess = %v, want %v", got.LastAccess, t0)
	}

	// The adopted entry is now local; the next touch must not hit the remote.
	gets := remote.getCount()
	if _, ok := s.Touch(context.Background(), shared.URL); !ok {
		t.Fatal("adopted entry should be a local hit")
	}
	if remote.getCount() != gets {
		t.Error("local hit went back to the remote")
	}
}

func TestTouchSkipsStaleRemoteEntry(t *testing.T) {
	remote := newFakeRemote(true)
	s := newRemoteTestStore(t, remote)

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetNowFunc(func() time.Time { return t0 })

	stale := entryAt("https://example.com/stale", t0.Add(-2*time.Minute), time.Minute)
	remote.entries[stale.URL] = stale

	if _, ok := s.Touch(context.Background(), stale.URL); ok {
		t.Error("a stale remote entry must not be adopted")
	}
	if s.Len() != 0 {
		t.Error("stale remote entry leaked into the local index")
	}
}

func TestTouchDegradesWhenRemoteUnavailable(t *testing.T) {
	remote := newFakeRemote(false)
	s := newRemoteTestStore(t, remote)

	if _, ok := s.Touch(context.Background(), "https://example.com/a"); ok {
		t.Error("expected a plain miss")
	}
	if remote.getCount() != 0 {
		t.Error("an unavailable remote must not be queried")
	}
}

func TestPutWritesThroughToRemote(t *testing.T) {
	remote := newFakeRemote(true)
	s := newRemoteTestStore(t, remote)

	s.Put(entryAt("https://example.com/a", time.Now(), time.Minute), []byte("body"))

	// The write-through runs in the background; poll for it.
	deadline := time.Now().Add(time.Second)
	for remote.putCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("remote write-through never happened")
		}
		time.Sleep(time.Millisecond)
	}
	remote.mu.Lock()
	body := string(remote.bodies["https://example.com/a"])
	remote.mu.Unlock()
	if body != "body" {
		t.Error("body was not written through")
	}
}

func TestReviveRemoteReconnects(t *testing.T) {
	remote := newFakeRemote(false)
	cfg := config.ForTesting().Cache
	cfg.SweepInterval = 0
	s := NewStore(cfg, nil, remote, nil)

	s.reviveRemote()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if remote.reconnectCount() != 1 {
		t.Errorf("reconnects = %d, want 1", remote.reconnectCount())
	}
	if !remote.IsAvailable() {
		t.Error("remote should be available after a successful reconnect")
	}
}

func TestRemoteErrorThresholdDisconnects(t *testing.T) {
	rs := &RedisStore{
		config: &config.RemoteConfig{},
		logger: slog.Default(),
	}
	rs.connected.Store(true)

	errTimeout := context.DeadlineExceeded
	for i := 0; i < disconnectErrorThreshold-1; i++ {
		rs.handleError(errTimeout)
		if !rs.IsAvailable() {
			t.Fatalf("disconnected after %d errors, threshold is %d", i+1, disconnectErrorThreshold)
		}
	}
	rs.handleError(errTimeout)
	if rs.IsAvailable() {
		t.Fatal("expected disconnect at the error threshold")
	}

	// One successful operation recovers the layer and resets the count.
	rs.clearError()
	if !rs.IsAvailable() {
		t.Fatal("expected recovery after a successful operation")
	}
	rs.handleError(errTimeout)
	if !rs.IsAvailable() {
		t.Error("recovery must reset the error count")
	}
}
