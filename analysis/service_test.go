package analysis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rungchan2/squeeze-backend/cache"
)

// memTier is a minimal in-memory DurableTier for service tests.
type memTier struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
	index   map[string]map[string]struct{}
}

func newMemTier() *memTier {
	return &memTier{
		entries: make(map[string]*cache.Entry),
		index:   make(map[string]map[string]struct{}),
	}
}

func (m *memTier) Get(_ context.Context, fp string) (*cache.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[fp]
	if !ok {
		return nil, nil
	}
	clone := *entry
	return &clone, nil
}

func (m *memTier) Set(_ context.Context, entry *cache.Entry, _ time.Duration, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *entry
	m.entries[entry.Fingerprint] = &clone
	for _, tag := range tags {
		if m.index[tag] == nil {
			m.index[tag] = make(map[string]struct{})
		}
		m.index[tag][entry.Fingerprint] = struct{}{}
	}
	return nil
}

func (m *memTier) Delete(_ context.Context, fps ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fp := range fps {
		delete(m.entries, fp)
	}
	return nil
}

func (m *memTier) FingerprintsBy(_ context.Context, tags []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(tags) == 0 {
		return nil, nil
	}
	var out []string
	for fp := range m.index[tags[0]] {
		member := true
		for _, tag := range tags[1:] {
			if _, ok := m.index[tag][fp]; !ok {
				member = false
				break
			}
		}
		if member {
			out = append(out, fp)
		}
	}
	return out, nil
}

func (m *memTier) Ping(context.Context) error { return nil }

type fakeSource struct {
	contents   []string
	calls      atomic.Int64
	lastFilter ContentFilter
}

func (f *fakeSource) ListContents(_ context.Context, filter ContentFilter) ([]string, error) {
	f.calls.Add(1)
	f.lastFilter = filter
	return f.contents, nil
}

func newTestService(source ContentSource) *Service {
	return NewService(source, cache.New(newMemTier()))
}

func TestAnalyzeRangeCountsWords(t *testing.T) {
	source := &fakeSource{contents: []string{
		"learning go every day",
		"learning concurrency in go",
		"every day counts",
	}}
	svc := newTestService(source)

	res, err := svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-1"})
	require.NoError(t, err)

	assert.Equal(t, ScopeJourneyWeek, res.Scope)
	assert.Equal(t, AnalysisRangeWordFrequency, res.AnalysisType)
	assert.Equal(t, 3, res.TotalPosts)
	assert.False(t, res.CacheHit)
	assert.False(t, res.Stale)

	counts := map[string]int{}
	for _, wc := range res.WordFrequency {
		counts[wc.Word] = wc.Count
	}
	assert.Equal(t, 2, counts["learning"])
	assert.Equal(t, 2, counts["go"])
	assert.Equal(t, 2, counts["every"])
	assert.Equal(t, 2, counts["day"])
	assert.Equal(t, 1, counts["concurrency"])
}

func TestAnalyzeRangeSortedAndCapped(t *testing.T) {
	source := &fakeSource{contents: []string{
		"alpha alpha alpha beta beta gamma delta",
	}}
	svc := newTestService(source)

	res, err := svc.AnalyzeRange(context.Background(), RangeQuery{JourneyID: "j-1", TopN: 2})
	require.NoError(t, err)

	require.Len(t, res.WordFrequency, 2)
	assert.Equal(t, WordCount{Word: "alpha", Count: 3}, res.WordFrequency[0])
	assert.Equal(t, WordCount{Word: "beta", Count: 2}, res.WordFrequency[1])
}

func TestAnalyzeRangeMinCountFilter(t *testing.T) {
	source := &fakeSource{contents: []string{
		"alpha alpha beta",
	}}
	svc := newTestService(source)

	res, err := svc.AnalyzeRange(context.Background(), RangeQuery{JourneyID: "j-1", MinCount: 2})
	require.NoError(t, err)

	require.Len(t, res.WordFrequency, 1)
	assert.Equal(t, "alpha", res.WordFrequency[0].Word)
}

func TestAnalyzeRangeValidation(t *testing.T) {
	svc := newTestService(&fakeSource{})

	tests := []struct {
		name  string
		query RangeQuery
	}{
		{"no scope dimension", RangeQuery{}},
		{"top_n above limit", RangeQuery{JourneyID: "j-1", TopN: MaxTopN + 1}},
		{"negative top_n", RangeQuery{JourneyID: "j-1", TopN: -1}},
		{"negative min_count", RangeQuery{JourneyID: "j-1", MinCount: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AnalyzeRange(context.Background(), tt.query)
			require.Error(t, err)

			var richErr *goerrors.Error
			require.ErrorAs(t, err, &richErr)
			assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
		})
	}
}

func TestAnalyzeRangeCachesByScope(t *testing.T) {
	source := &fakeSource{contents: []string{"alpha beta"}}
	svc := newTestService(source)

	first, err := svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-1"})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-1"})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, int64(1), source.calls.Load())

	// A different scope computes independently.
	_, err = svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), source.calls.Load())

	// Tuning parameters are part of the scope.
	_, err = svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-1", TopN: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), source.calls.Load())
}

func TestAnalyzeRangeForceRefresh(t *testing.T) {
	source := &fakeSource{contents: []string{"alpha"}}
	svc := newTestService(source)

	_, err := svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-1"})
	require.NoError(t, err)

	res, err := svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-1", ForceRefresh: true})
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, int64(2), source.calls.Load())
}

func TestAnalyzeRangePassesFilter(t *testing.T) {
	source := &fakeSource{}
	svc := newTestService(source)

	_, err := svc.AnalyzeRange(context.Background(), RangeQuery{
		JourneyID:     "j-1",
		JourneyWeekID: "w-1",
		UserID:        "u-1",
	})
	require.NoError(t, err)

	assert.Equal(t, ContentFilter{
		JourneyID:     "j-1",
		JourneyWeekID: "w-1",
		UserID:        "u-1",
	}, source.lastFilter)
}

func TestAnalyzeTextCountsWords(t *testing.T) {
	svc := newTestService(&fakeSource{})

	res, err := svc.AnalyzeText(context.Background(), TextQuery{
		Text: "learning go means writing go and reading go",
	})
	require.NoError(t, err)

	assert.Equal(t, AnalysisWordFrequency, res.AnalysisType)
	assert.Equal(t, 8, res.TotalWords)
	assert.Equal(t, 6, res.UniqueWords)
	assert.False(t, res.CacheHit)

	require.NotEmpty(t, res.WordFrequency)
	assert.Equal(t, WordCount{Word: "go", Count: 3}, res.WordFrequency[0])
}

func TestAnalyzeTextCachesByTextAndOptions(t *testing.T) {
	svc := newTestService(&fakeSource{})

	first, err := svc.AnalyzeText(context.Background(), TextQuery{Text: "alpha beta alpha"})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.AnalyzeText(context.Background(), TextQuery{Text: "alpha beta alpha"})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.WordFrequency, second.WordFrequency)

	// A different text computes independently.
	third, err := svc.AnalyzeText(context.Background(), TextQuery{Text: "gamma delta"})
	require.NoError(t, err)
	assert.False(t, third.CacheHit)

	// Tuning parameters are part of the scope.
	fourth, err := svc.AnalyzeText(context.Background(), TextQuery{Text: "alpha beta alpha", TopN: 1})
	require.NoError(t, err)
	assert.False(t, fourth.CacheHit)
	require.Len(t, fourth.WordFrequency, 1)
}

func TestAnalyzeTextValidation(t *testing.T) {
	svc := newTestService(&fakeSource{})

	tests := []struct {
		name  string
		query TextQuery
	}{
		{"empty text", TextQuery{}},
		{"top_n above limit", TextQuery{Text: "alpha", TopN: MaxTopN + 1}},
		{"negative min_count", TextQuery{Text: "alpha", MinCount: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AnalyzeText(context.Background(), tt.query)
			require.Error(t, err)

			var richErr *goerrors.Error
			require.ErrorAs(t, err, &richErr)
			assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
		})
	}
}

func TestScopeClassification(t *testing.T) {
	tests := []struct {
		name  string
		query RangeQuery
		want  string
	}{
		{"mission wins over everything", RangeQuery{MissionInstanceID: "m", JourneyWeekID: "w", JourneyID: "j", UserID: "u"}, ScopeMission},
		{"week wins over journey", RangeQuery{JourneyWeekID: "w", JourneyID: "j", UserID: "u"}, ScopeJourneyWeek},
		{"journey wins over user", RangeQuery{JourneyID: "j", UserID: "u"}, ScopeJourney},
		{"user only", RangeQuery{UserID: "u"}, ScopeUser},
		{"empty", RangeQuery{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Scope())
		})
	}
}

func TestInvalidateJourneyWeek(t *testing.T) {
	source := &fakeSource{contents: []string{"alpha"}}
	svc := newTestService(source)

	_, err := svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-1"})
	require.NoError(t, err)
	_, err = svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-1", UserID: "u-1"})
	require.NoError(t, err)
	_, err = svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-2"})
	require.NoError(t, err)

	count, err := svc.InvalidateJourneyWeek(context.Background(), "w-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Invalidated scope recomputes.
	res, err := svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-1"})
	require.NoError(t, err)
	assert.False(t, res.CacheHit)

	// Untouched scope still hits.
	res, err = svc.AnalyzeRange(context.Background(), RangeQuery{JourneyWeekID: "w-2"})
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
}

func TestInvalidateJourneyWeekRequiresID(t *testing.T) {
	svc := newTestService(&fakeSource{})
	_, err := svc.InvalidateJourneyWeek(context.Background(), "")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, ErrBadScopeParameter.TextCode, richErr.TextCode)
}
