package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memEntry(fp string, expiresAt time.Time) *Entry {
	return &Entry{
		Fingerprint:     fp,
		Payload:         json.RawMessage(`{"ok":true}`),
		ComputedAt:      expiresAt.Add(-time.Hour),
		TTLExpiresAt:    expiresAt,
		PipelineVersion: PipelineVersion,
	}
}

func TestMemoryTierRoundTrip(t *testing.T) {
	now := time.Now()
	tier := NewMemoryTier(0)
	tier.Set(memEntry("fp-1", now.Add(time.Hour)), []string{"journey_id=j-1"}, now)

	got := tier.Get("fp-1", now)
	require.NotNil(t, got)
	assert.Equal(t, "fp-1", got.Fingerprint)
	assert.Equal(t, 1, tier.Len())

	assert.Nil(t, tier.Get("fp-missing", now))
}

func TestMemoryTierLazyExpiry(t *testing.T) {
	now := time.Now()
	tier := NewMemoryTier(0)
	tier.Set(memEntry("fp-1", now.Add(time.Minute)), nil, now)

	assert.NotNil(t, tier.Get("fp-1", now))
	assert.Nil(t, tier.Get("fp-1", now.Add(2*time.Minute)))
	assert.Equal(t, 0, tier.Len())
}

func TestMemoryTierClampsHorizon(t *testing.T) {
	now := time.Now()
	tier := NewMemoryTier(5 * time.Minute)
	tier.Set(memEntry("fp-1", now.Add(24*time.Hour)), nil, now)

	assert.NotNil(t, tier.Get("fp-1", now.Add(4*time.Minute)))
	assert.Nil(t, tier.Get("fp-1", now.Add(6*time.Minute)))
}

func TestMemoryTierIndexIntersection(t *testing.T) {
	now := time.Now()
	exp := now.Add(time.Hour)
	tier := NewMemoryTier(0)
	tier.Set(memEntry("fp-1", exp), []string{"journey_id=j-1", "user_id=u-1"}, now)
	tier.Set(memEntry("fp-2", exp), []string{"journey_id=j-1", "user_id=u-2"}, now)
	tier.Set(memEntry("fp-3", exp), []string{"journey_id=j-2", "user_id=u-1"}, now)

	assert.ElementsMatch(t, []string{"fp-1", "fp-2"}, tier.FingerprintsBy([]string{"journey_id=j-1"}))
	assert.ElementsMatch(t, []string{"fp-1"}, tier.FingerprintsBy([]string{"journey_id=j-1", "user_id=u-1"}))
	assert.Empty(t, tier.FingerprintsBy([]string{"journey_id=j-9"}))
	assert.Empty(t, tier.FingerprintsBy(nil))
}

func TestMemoryTierDeleteDropsIndex(t *testing.T) {
	now := time.Now()
	tier := NewMemoryTier(0)
	tier.Set(memEntry("fp-1", now.Add(time.Hour)), []string{"journey_id=j-1"}, now)
	tier.Delete("fp-1")

	assert.Nil(t, tier.Get("fp-1", now))
	assert.Empty(t, tier.FingerprintsBy([]string{"journey_id=j-1"}))
}

func TestMemoryTierGetReturnsCopy(t *testing.T) {
	now := time.Now()
	tier := NewMemoryTier(0)
	tier.Set(memEntry("fp-1", now.Add(time.Hour)), nil, now)

	got := tier.Get("fp-1", now)
	require.NotNil(t, got)
	got.Fingerprint = "mutated"

	again := tier.Get("fp-1", now)
	require.NotNil(t, again)
	assert.Equal(t, "fp-1", again.Fingerprint)
}

func TestMemoryTierFlush(t *testing.T) {
	now := time.Now()
	tier := NewMemoryTier(0)
	tier.Set(memEntry("fp-1", now.Add(time.Hour)), []string{"journey_id=j-1"}, now)
	tier.Flush()

	assert.Equal(t, 0, tier.Len())
	assert.Empty(t, tier.FingerprintsBy([]string{"journey_id=j-1"}))
}
