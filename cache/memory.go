package cache

import (
	"sync"
	"time"
)

// MemoryTier is the in-process cache in front of the durable tier. Entries
// are clamped to a short horizon so a process never serves values long past
// an invalidation it missed; the durable tier remains authoritative.
type MemoryTier struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	index      map[string]map[string]struct{}
	maxHorizon time.Duration
}

// NewMemoryTier builds an empty tier. maxHorizon caps how long an entry may
// live in memory regardless of its logical TTL; zero or negative disables
// the clamp.
func NewMemoryTier(maxHorizon time.Duration) *MemoryTier {
	return &MemoryTier{
		entries:    make(map[string]*Entry),
		index:      make(map[string]map[string]struct{}),
		maxHorizon: maxHorizon,
	}
}

// Get returns the entry for the fingerprint, or nil on miss. Expired entries
// are evicted lazily on access.
func (m *MemoryTier) Get(fingerprint string, now time.Time) *Entry {
	m.mu.RLock()
	entry, ok := m.entries[fingerprint]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if entry.Expired(now) {
		m.Delete(fingerprint)
		return nil
	}
	return entry.clone()
}

// Set stores the entry, clamping its expiry to the tier horizon, and records
// it under each dimension tag for invalidation lookups.
func (m *MemoryTier) Set(entry *Entry, tags []string, now time.Time) {
	stored := entry.clone()
	if m.maxHorizon > 0 {
		horizon := now.Add(m.maxHorizon)
		if stored.TTLExpiresAt.After(horizon) {
			stored.TTLExpiresAt = horizon
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[stored.Fingerprint] = stored
	for _, tag := range tags {
		set, ok := m.index[tag]
		if !ok {
			set = make(map[string]struct{})
			m.index[tag] = set
		}
		set[stored.Fingerprint] = struct{}{}
	}
}

// Delete removes the entry and its index references.
func (m *MemoryTier) Delete(fingerprint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, fingerprint)
	for tag, set := range m.index {
		delete(set, fingerprint)
		if len(set) == 0 {
			delete(m.index, tag)
		}
	}
}

// FingerprintsBy returns the fingerprints indexed under every one of the
// given tags (set intersection). An empty tag list matches nothing.
func (m *MemoryTier) FingerprintsBy(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	first, ok := m.index[tags[0]]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(first))
	for fp := range first {
		member := true
		for _, tag := range tags[1:] {
			if _, found := m.index[tag][fp]; !found {
				member = false
				break
			}
		}
		if member {
			out = append(out, fp)
		}
	}
	return out
}

// Len returns the number of resident entries.
func (m *MemoryTier) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Flush drops every entry and index set.
func (m *MemoryTier) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry)
	m.index = make(map[string]map[string]struct{})
}
