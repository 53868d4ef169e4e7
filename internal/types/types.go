// Package types provides shared types for the prewarm prefetch library.
// This package breaks import cycles between pkg/prewarm and the internal
// scheduler, cache, and strategy packages.
package types

import "time"

// Strategy is the trigger policy that decides when a registered target
// is handed to the scheduler.
type Strategy int

const (
	StrategyImmediate Strategy = iota + 1
	StrategyHover
	StrategyViewport
	StrategyIdle
	StrategyManual
	StrategyTouch
	StrategyPrefocus
)

func (s Strategy) String() string {
	switch s {
	case StrategyImmediate:
		return "immediate"
	case StrategyHover:
		return "hover"
	case StrategyViewport:
		return "viewport"
	case StrategyIdle:
		return "idle"
	case StrategyManual:
		return "manual"
	case StrategyTouch:
		return "touch"
	case StrategyPrefocus:
		return "prefocus"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a strategy name to its Strategy value.
// Unknown names map to StrategyHover, the default trigger.
func ParseStrategy(s string) Strategy {
	switch s {
	case "immediate":
		return StrategyImmediate
	case "hover":
		return StrategyHover
	case "viewport":
		return StrategyViewport
	case "idle":
		return StrategyIdle
	case "manual":
		return StrategyManual
	case "touch":
		return StrategyTouch
	case "prefocus":
		return StrategyPrefocus
	default:
		return StrategyHover
	}
}

// Priority ranks queued prefetch requests.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Score returns the base numeric weight used when ordering the queue.
func (p Priority) Score() float64 {
	switch p {
	case PriorityCritical:
		return 100
	case PriorityHigh:
		return 75
	case PriorityMedium:
		return 50
	case PriorityLow:
		return 25
	default:
		return 0
	}
}

func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "medium":
		return PriorityMedium
	case "high":
		return PriorityHigh
	case "critical":
		return PriorityCritical
	default:
		return PriorityMedium
	}
}

// EntryMetadata records how a cache entry came to exist.
type EntryMetadata struct {
	Strategy Strategy `json:"strategy"`
	Priority Priority `json:"priority"`
	Trigger  string   `json:"trigger"`
}

// CacheEntry is one completed prefetch outcome for a normalized target URL.
// Entries are owned exclusively by the cache store; everyone else works on
// copies.
type CacheEntry struct {
	URL         string        `json:"url"`
	Timestamp   time.Time     `json:"timestamp"`
	TTL         time.Duration `json:"ttl"`
	LastAccess  time.Time     `json:"lastAccess"`
	AccessCount int64         `json:"accessCount"`
	Size        int64         `json:"size"`
	Metadata    EntryMetadata `json:"metadata"`
}

// FreshAt reports whether the entry is fresh at the given instant.
// The freshness interval is half-open: fresh iff now < timestamp + ttl.
func (e *CacheEntry) FreshAt(now time.Time) bool {
	return now.Before(e.Timestamp.Add(e.TTL))
}

// Clone returns a copy safe to hand outside the store.
func (e *CacheEntry) Clone() *CacheEntry {
	c := *e
	return &c
}

// EffectiveType is the coarse connection class reported by the host
// platform's network-information capability.
type EffectiveType string

const (
	EffectiveSlow2G EffectiveType = "slow-2g"
	Effective2G     EffectiveType = "2g"
	Effective3G     EffectiveType = "3g"
	Effective4G     EffectiveType = "4g"
)

// NetworkSnapshot is a point-in-time view of network conditions. Snapshots
// are replaced wholesale on change, never partially mutated.
type NetworkSnapshot struct {
	EffectiveType EffectiveType `json:"effectiveType"`
	DownlinkMbps  float64       `json:"downlinkMbps"`
	RTT           time.Duration `json:"rtt"`
	SaveData      bool          `json:"saveData"`
	Taken         time.Time     `json:"taken"`
}

// ResultStatus tags the outcome of a prefetch operation.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusCached  ResultStatus = "cached"
	StatusError   ResultStatus = "error"
)

// PrefetchResult is the structured outcome of a single prefetch call.
// All failure modes are represented here; the scheduler never returns an
// error across its public boundary.
type PrefetchResult struct {
	URL       string        `json:"url"`
	Status    ResultStatus  `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	FromCache bool          `json:"fromCache"`
	Duration  time.Duration `json:"duration"`
	Size      int64         `json:"size"`
	Timestamp time.Time     `json:"timestamp"`
}

// RouteConfig is the declared trigger policy for a target.
type RouteConfig struct {
	Strategy           Strategy      `json:"strategy"`
	Priority           Priority      `json:"priority"`
	Delay              time.Duration `json:"delay"`
	TTL                time.Duration `json:"ttl"`
	HighPriority       bool          `json:"highPriority"`
	FastConnectionOnly bool          `json:"fastConnectionOnly"`
}

// DefaultRouteConfig is the fallback for targets with no declared route.
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		Strategy: StrategyHover,
		Priority: PriorityMedium,
	}
}

// QueueItem is a pending prefetch request awaiting execution.
type QueueItem struct {
	URL        string
	Config     RouteConfig
	QueueTime  time.Time
	RetryCount int
	Trigger    string
}

// Age-bonus parameters for queue ordering. The bonus grows one point per
// second waited, capped so a stale low-priority item cannot outrank a fresh
// critical one.
const (
	maxAgeBonus  = 30.0
	retryPenalty = 10.0
)

// PriorityScore computes the ordering weight for the item at the given
// instant. It must be recomputed before every sort: the age-bonus term
// depends on now, so a cached score goes stale immediately.
func (q *QueueItem) PriorityScore(now time.Time) float64 {
	bonus := now.Sub(q.QueueTime).Seconds()
	if bonus < 0 {
		bonus = 0
	}
	if bonus > maxAgeBonus {
		bonus = maxAgeBonus
	}
	return q.Config.Priority.Score() + bonus - retryPenalty*float64(q.RetryCount)
}

// PerfMetrics is the session-lifetime aggregate exposed to callers.
// AvgPrefetchTime covers only the most recent timed operations and
// OpsPerMinute only the trailing 60 seconds.
type PerfMetrics struct {
	TotalOperations      int64     `json:"totalOperations"`
	SuccessfulOperations int64     `json:"successfulOperations"`
	FailedOperations     int64     `json:"failedOperations"`
	CacheHits            int64     `json:"cacheHits"`
	CacheHitRate         float64   `json:"cacheHitRate"`
	AvgPrefetchTime      float64   `json:"avgPrefetchTime"`
	MemoryUsage          int64     `json:"memoryUsage"`
	EntryCount           int       `json:"entryCount"`
	OpsPerMinute         int       `json:"opsPerMinute"`
	NetworkSavedBytes    int64     `json:"networkSavedBytes"`
	LastReset            time.Time `json:"lastReset"`
}

// OperationSample is one recorded scheduler operation.
type OperationSample struct {
	Success    bool
	CacheHit   bool
	Timed      bool
	Duration   time.Duration
	SavedBytes int64
}

// FetchHint carries the priority signal down to the underlying fetcher.
type FetchHint struct {
	Priority     Priority
	HighPriority bool
}

// FetchInfo is what the underlying fetch reports back on success.
type FetchInfo struct {
	// Size is a best-effort byte estimate of the fetched resource.
	Size int64
	// Body is the captured payload, when the fetcher retains one.
	Body []byte
}

// DebugEvent is emitted to an injected debug sink after each scheduler
// operation. Production builds simply omit the sink.
type DebugEvent struct {
	Time     time.Time     `json:"time"`
	URL      string        `json:"url"`
	Status   ResultStatus  `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Trigger  string        `json:"trigger,omitempty"`
	Duration time.Duration `json:"duration"`
}
