package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/hashid/pkg/hashid"
)

// PipelineVersion is bumped whenever the analysis algorithm or its reference
// data (stop words, dictionaries) changes. It folds into every fingerprint,
// so a bump retires all cached results without an explicit sweep.
const PipelineVersion = 4

// Recognized scope dimensions. Absent recognized dimensions are normalized
// to UnsetValue so partial inputs fingerprint identically to explicit ones.
const (
	DimJourney      = "journey_id"
	DimJourneyWeek  = "journey_week_id"
	DimMission      = "mission_instance_id"
	DimUser         = "user_id"
	DimTopN         = "top_n"
	DimMinCount     = "min_count"
	DimAnalysisType = "analysis_type"
)

// UnsetValue is the explicit sentinel for a recognized dimension that was
// not provided.
const UnsetValue = "unset"

const fingerprintPrefix = "sqz:analysis"

var recognizedDimensions = []string{
	DimJourney,
	DimJourneyWeek,
	DimMission,
	DimUser,
	DimTopN,
	DimMinCount,
	DimAnalysisType,
}

// ScopeKey canonicalizes heterogeneous query parameters into a deterministic
// fingerprint. Immutable once built.
type ScopeKey struct {
	dims    map[string]string
	version int
}

// NewScopeKey normalizes the given dimensions: recognized names default to
// UnsetValue, empty values become UnsetValue, unrecognized names are kept
// verbatim. No semantic pruning happens here; the key reflects exact inputs.
func NewScopeKey(dims map[string]string) ScopeKey {
	normalized := make(map[string]string, len(recognizedDimensions)+len(dims))
	for _, name := range recognizedDimensions {
		normalized[name] = UnsetValue
	}
	for name, value := range dims {
		value = strings.TrimSpace(value)
		if value == "" {
			value = UnsetValue
		}
		normalized[name] = value
	}
	return ScopeKey{dims: normalized, version: PipelineVersion}
}

// WithVersion returns a copy pinned to a specific pipeline version.
func (k ScopeKey) WithVersion(version int) ScopeKey {
	clone := ScopeKey{dims: make(map[string]string, len(k.dims)), version: version}
	for name, value := range k.dims {
		clone.dims[name] = value
	}
	return clone
}

// Version returns the pipeline version baked into the key.
func (k ScopeKey) Version() int {
	return k.version
}

// Dimensions returns a copy of the normalized dimension mapping.
func (k ScopeKey) Dimensions() map[string]string {
	out := make(map[string]string, len(k.dims))
	for name, value := range k.dims {
		out[name] = value
	}
	return out
}

// DimensionTags returns "name=value" tags for every concretely set
// dimension. The tiers index entries under these tags so invalidation can
// derive affected fingerprints without scanning.
func (k ScopeKey) DimensionTags() []string {
	tags := make([]string, 0, len(k.dims))
	for name, value := range k.dims {
		if value == UnsetValue {
			continue
		}
		tags = append(tags, DimensionTag(name, value))
	}
	sort.Strings(tags)
	return tags
}

// Fingerprint produces the deterministic cache key: dimension names sorted
// lexicographically, "name=value" pairs joined with a stable delimiter, the
// pipeline version appended, then digested into a stable id.
func (k ScopeKey) Fingerprint() string {
	names := make([]string, 0, len(k.dims))
	for name := range k.dims {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(k.dims[name])
		b.WriteByte('|')
	}
	fmt.Fprintf(&b, "pipeline_version=%d", k.version)

	canonical := b.String()
	if id, err := hashid.NewUUID(canonical); err == nil {
		return fmt.Sprintf("%s:v%d:%s", fingerprintPrefix, k.version, id)
	}
	// hashid only fails on internal encoding errors; the canonical string is
	// itself deterministic, so it remains a valid (if long) key.
	return fmt.Sprintf("%s:v%d:%s", fingerprintPrefix, k.version, canonical)
}

// DimensionTag builds the index tag for one dimension value.
func DimensionTag(name, value string) string {
	return name + "=" + value
}
