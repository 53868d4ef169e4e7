package types

import "time"

// ConstraintInfo is the read-only view of the admission gate configuration.
type ConstraintInfo struct {
	MaxConcurrent   int     `json:"maxConcurrent"`
	MaxPerMinute    int     `json:"maxPerMinute"`
	MaxMemoryBytes  int64   `json:"maxMemoryBytes"`
	MinDownlinkMbps float64 `json:"minDownlinkMbps"`
}

// DebugInfo is the read-only introspection snapshot exposed to UI debug
// panels: current status, readiness, live network snapshot, and the
// constraint configuration.
type DebugInfo struct {
	Timestamp       time.Time        `json:"timestamp"`
	Enabled         bool             `json:"enabled"`
	Ready           bool             `json:"ready"`
	InFlight        int              `json:"inFlight"`
	InFlightURLs    []string         `json:"inFlightUrls,omitempty"`
	QueueLength     int              `json:"queueLength"`
	PayloadBytes    int              `json:"payloadBytes"`
	Network         *NetworkSnapshot `json:"network,omitempty"`
	Constraints     ConstraintInfo   `json:"constraints"`
	Metrics         PerfMetrics      `json:"metrics"`
	RemoteAvailable bool             `json:"remoteAvailable"`
}
