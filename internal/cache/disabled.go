package cache

import (
	"context"

	"github.com/darrell-green/prewarm/internal/types"
)

// DisabledRemoteStore is used when no remote warm-share layer is
// configured. All operations report unavailability.
type DisabledRemoteStore struct{}

func NewDisabledRemoteStore() *DisabledRemoteStore {
	return &DisabledRemoteStore{}
}

func (s *DisabledRemoteStore) Name() string {
	return "disabled"
}

func (s *DisabledRemoteStore) IsAvailable() bool {
	return false
}

func (s *DisabledRemoteStore) Reconnect(ctx context.Context) bool {
	return false
}

func (s *DisabledRemoteStore) Get(ctx context.Context, url string) (*types.CacheEntry, []byte, error) {
	return nil, nil, types.ErrRemoteUnavailable
}

func (s *DisabledRemoteStore) Put(ctx context.Context, entry *types.CacheEntry, body []byte) error {
	return types.ErrRemoteUnavailable
}

func (s *DisabledRemoteStore) Delete(ctx context.Context, url string) error {
	return types.ErrRemoteUnavailable
}

func (s *DisabledRemoteStore) Clear(ctx context.Context) error {
	return types.ErrRemoteUnavailable
}

func (s *DisabledRemoteStore) Close() error {
	return nil
}

var _ types.RemoteStore = (*DisabledRemoteStore)(nil)
