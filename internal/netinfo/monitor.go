// Package netinfo samples network conditions from a host-supplied probe and
// distributes change notifications.
package netinfo

import (
	"log/slog"
	"sync"

	"github.com/darrell-green/prewarm/internal/types"
)

// Monitor wraps a host network probe. The probe may be nil: most platforms
// expose no network-information capability, and absence is treated as
// "assume fast" rather than as an error.
type Monitor struct {
	probe  types.NetworkProbe
	logger *slog.Logger

	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// NewMonitor creates a monitor over the given probe. probe may be nil.
func NewMonitor(probe types.NetworkProbe, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		probe:  probe,
		logger: logger.With("component", "network-monitor"),
		subs:   make(map[int]chan struct{}),
	}
}

// Snapshot returns the current network conditions. ok is false when the
// capability is absent; callers must then assume an unconstrained network.
func (m *Monitor) Snapshot() (types.NetworkSnapshot, bool) {
	if m.probe == nil {
		return types.NetworkSnapshot{}, false
	}
	return m.probe.Snapshot()
}

// Subscribe returns a channel that receives a tick on every network-change
// notification, plus a cancel func releasing the subscription. Consumers
// re-snapshot on tick; the snapshot itself is never sent over the channel,
// which would hand out stale data.
func (m *Monitor) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
	return ch, cancel
}

// NotifyChange is called by the host when the platform reports a
// network-condition change. Slow subscribers coalesce ticks.
func (m *Monitor) NotifyChange() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// IsFast reports whether the current connection is fast enough for
// bandwidth-sensitive targets. Capability absence is optimistic.
func (m *Monitor) IsFast(minDownlinkMbps float64) bool {
	snap, ok := m.Snapshot()
	if !ok {
		return true
	}
	return IsFastConnection(snap, minDownlinkMbps)
}

// IsFastConnection classifies a snapshot. The save-data flag wins over
// every other signal: the user explicitly asked for data conservation.
func IsFastConnection(snap types.NetworkSnapshot, minDownlinkMbps float64) bool {
	if snap.SaveData {
		return false
	}
	if snap.EffectiveType == types.EffectiveSlow2G || snap.EffectiveType == types.Effective2G {
		return false
	}
	return snap.DownlinkMbps >= minDownlinkMbps
}

// StaticProbe is a fixed-snapshot probe, useful for tests and for hosts
// that only know their conditions at startup.
type StaticProbe struct {
	mu   sync.Mutex
	snap types.NetworkSnapshot
	ok   bool
}

// NewStaticProbe creates a probe that always reports snap.
func NewStaticProbe(snap types.NetworkSnapshot) *StaticProbe {
	return &StaticProbe{snap: snap, ok: true}
}

// Snapshot implements types.NetworkProbe.
func (p *StaticProbe) Snapshot() (types.NetworkSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap, p.ok
}

// Set replaces the reported snapshot wholesale.
func (p *StaticProbe) Set(snap types.NetworkSnapshot) {
	p.mu.Lock()
	p.snap = snap
	p.ok = true
	p.mu.Unlock()
}

var _ types.NetworkProbe = (*StaticProbe)(nil)
