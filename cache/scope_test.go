package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIgnoresInputOrder(t *testing.T) {
	a := NewScopeKey(map[string]string{
		DimJourney:      "j-1",
		DimJourneyWeek:  "w-3",
		DimUser:         "u-9",
		DimTopN:         "50",
		DimAnalysisType: "range_word_frequency",
	})
	b := NewScopeKey(map[string]string{
		DimAnalysisType: "range_word_frequency",
		DimTopN:         "50",
		DimUser:         "u-9",
		DimJourneyWeek:  "w-3",
		DimJourney:      "j-1",
	})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintUnsetEqualsAbsent(t *testing.T) {
	explicit := NewScopeKey(map[string]string{
		DimJourney: "j-1",
		DimUser:    UnsetValue,
	})
	absent := NewScopeKey(map[string]string{
		DimJourney: "j-1",
	})
	blank := NewScopeKey(map[string]string{
		DimJourney: "j-1",
		DimUser:    "  ",
	})

	assert.Equal(t, explicit.Fingerprint(), absent.Fingerprint())
	assert.Equal(t, explicit.Fingerprint(), blank.Fingerprint())
}

func TestFingerprintDistinguishesDimensions(t *testing.T) {
	base := NewScopeKey(map[string]string{DimJourney: "j-1", DimTopN: "50"})

	variants := []ScopeKey{
		NewScopeKey(map[string]string{DimJourney: "j-2", DimTopN: "50"}),
		NewScopeKey(map[string]string{DimJourney: "j-1", DimTopN: "100"}),
		NewScopeKey(map[string]string{DimJourney: "j-1", DimTopN: "50", DimMinCount: "2"}),
		NewScopeKey(map[string]string{DimJourneyWeek: "j-1", DimTopN: "50"}),
	}

	for _, v := range variants {
		assert.NotEqual(t, base.Fingerprint(), v.Fingerprint())
	}
}

func TestFingerprintVersioned(t *testing.T) {
	key := NewScopeKey(map[string]string{DimJourney: "j-1"})
	pinned := key.WithVersion(PipelineVersion + 1)

	assert.NotEqual(t, key.Fingerprint(), pinned.Fingerprint())
	assert.Equal(t, PipelineVersion, key.Version())
	assert.Equal(t, PipelineVersion+1, pinned.Version())
}

func TestFingerprintIsStableAcrossCalls(t *testing.T) {
	key := NewScopeKey(map[string]string{DimMission: "m-7", DimUser: "u-1"})
	first := key.Fingerprint()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, key.Fingerprint())
	}
	assert.True(t, strings.HasPrefix(first, fingerprintPrefix))
}

func TestDimensionTagsSkipUnset(t *testing.T) {
	key := NewScopeKey(map[string]string{
		DimJourney: "j-1",
		DimUser:    "u-9",
	})

	tags := key.DimensionTags()
	require.Len(t, tags, 2)
	assert.Contains(t, tags, "journey_id=j-1")
	assert.Contains(t, tags, "user_id=u-9")
}

func TestDimensionsReturnsCopy(t *testing.T) {
	key := NewScopeKey(map[string]string{DimJourney: "j-1"})
	dims := key.Dimensions()
	dims[DimJourney] = "mutated"

	assert.Equal(t, "j-1", key.Dimensions()[DimJourney])
}
