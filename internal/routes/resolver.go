// Package routes resolves target URLs to their declared trigger policy.
package routes

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/types"
)

// Resolver maps normalized target paths to route configs. Exact patterns
// always win over wildcard patterns regardless of declaration order;
// among wildcard patterns the first declared match wins.
type Resolver struct {
	mu        sync.RWMutex
	exact     map[string]types.RouteConfig
	wildcards []wildcardRule
	logger    *slog.Logger
}

type wildcardRule struct {
	pattern string
	config  types.RouteConfig
}

// NewResolver builds a resolver from declarative rules.
func NewResolver(rules []config.RouteRule, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		exact:  make(map[string]types.RouteConfig),
		logger: logger.With("component", "route-resolver"),
	}
	for _, rule := range rules {
		r.Register(rule.Pattern, rule.ToRouteConfig())
	}
	return r
}

// Register adds or replaces the route config for a pattern. Patterns
// containing "*" become wildcard rules; re-registering a wildcard pattern
// replaces it in place, keeping its declaration position.
func (r *Resolver) Register(pattern string, cfg types.RouteConfig) {
	if pattern == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !strings.Contains(pattern, "*") {
		r.exact[pattern] = cfg
		return
	}
	for i, w := range r.wildcards {
		if w.pattern == pattern {
			r.wildcards[i].config = cfg
			return
		}
	}
	r.wildcards = append(r.wildcards, wildcardRule{pattern: pattern, config: cfg})
}

// Unregister removes the route config for a pattern.
func (r *Resolver) Unregister(pattern string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.exact, pattern)
	for i, w := range r.wildcards {
		if w.pattern == pattern {
			r.wildcards = append(r.wildcards[:i], r.wildcards[i+1:]...)
			return
		}
	}
}

// Resolve returns the route config for a normalized path. Targets with no
// matching rule get the default hover/medium policy.
func (r *Resolver) Resolve(path string) types.RouteConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.exact[path]; ok {
		return cfg
	}
	for _, w := range r.wildcards {
		if matchPattern(w.pattern, path) {
			return w.config
		}
	}
	return types.DefaultRouteConfig()
}

// Len returns the number of registered rules.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exact) + len(r.wildcards)
}

// matchPattern matches a path against a pattern with at most one "*"
// wildcard. The wildcard spans any run of characters, including "/".
func matchPattern(pattern, path string) bool {
	if pattern == "*" {
		return true
	}

	idx := strings.Index(pattern, "*")
	if idx < 0 {
		return pattern == path
	}

	prefix := pattern[:idx]
	suffix := pattern[idx+1:]
	if len(path) < len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
}
