// Package prewarm is a resource prefetch scheduler and cache for a single
// origin. Targets are registered under trigger strategies (hover,
// viewport, idle, touch, prefocus, immediate, manual); interaction events
// from the host turn registrations into prefetch operations, which pass
// through admission control (concurrency, rate, memory, and network
// ceilings) before a fetch warms the target into a TTL+LRU cache.
//
// Basic usage:
//
//	p, err := prewarm.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	unregister := p.Register("/pricing")
//	defer unregister()
//
//	p.PointerEnter("/pricing") // debounced hover prefetch
//
// A prefetch never fails loudly: every outcome, rejection included, comes
// back as a PrefetchResult.
package prewarm
