package cache

import (
	"encoding/json"
	"time"
)

// Entry is one cached analysis result. The durable tier persists it as-is;
// the memory tier may clamp TTLExpiresAt to a shorter horizon but never
// extends it.
type Entry struct {
	Fingerprint     string          `json:"fingerprint"`
	Payload         json.RawMessage `json:"payload"`
	ComputedAt      time.Time       `json:"computed_at"`
	TTLExpiresAt    time.Time       `json:"ttl_expires_at"`
	PipelineVersion int             `json:"pipeline_version"`
}

// Expired reports whether the entry's TTL has lapsed at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.TTLExpiresAt)
}

func (e *Entry) clone() *Entry {
	clone := *e
	return &clone
}

// Result is what GetOrCompute hands back: the payload plus provenance.
// Stale marks a degraded value served because recomputation failed; callers
// must be able to surface that distinction.
type Result struct {
	Payload    json.RawMessage
	ComputedAt time.Time
	CacheHit   bool
	Stale      bool
}
