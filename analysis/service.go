package analysis

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"

	"github.com/rungchan2/squeeze-backend/cache"
)

// Analysis type identifiers, folded into each cache scope.
const (
	AnalysisWordFrequency      = "word_frequency"
	AnalysisRangeWordFrequency = "range_word_frequency"
)

// Scope classification, most specific dimension wins.
const (
	ScopeMission     = "mission"
	ScopeJourneyWeek = "journey_week"
	ScopeJourney     = "journey"
	ScopeUser        = "user"
)

const (
	DefaultTopN     = 50
	MaxTopN         = 200
	DefaultMinCount = 1
)

// Cache TTLs per analysis type. Unlisted types fall through to the
// orchestrator default.
var defaultTTLs = map[string]time.Duration{
	AnalysisWordFrequency:      time.Hour,
	AnalysisRangeWordFrequency: 30 * time.Minute,
}

// dimTextDigest scopes single-text analyses by a digest of the input text.
// It is not a recognized dimension, so range fingerprints never carry it.
const dimTextDigest = "text_digest"

// Logger is the minimal logging surface the service needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RangeQuery describes one word-frequency analysis request. Zero TopN and
// MinCount take the defaults during normalization.
type RangeQuery struct {
	JourneyID         string `json:"journey_id" query:"journey_id"`
	JourneyWeekID     string `json:"journey_week_id" query:"journey_week_id"`
	MissionInstanceID string `json:"mission_instance_id" query:"mission_instance_id"`
	UserID            string `json:"user_id" query:"user_id"`
	TopN              int    `json:"top_n" query:"top_n"`
	MinCount          int    `json:"min_count" query:"min_count"`
	ForceRefresh      bool   `json:"force_refresh" query:"force_refresh"`
}

// Validate runs validation rules against the normalized query.
func (q RangeQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(
			&q.TopN,
			validation.Min(1),
			validation.Max(MaxTopN),
		),
		validation.Field(
			&q.MinCount,
			validation.Min(1),
		),
	)
}

// Scope classifies the query by its most specific dimension.
func (q RangeQuery) Scope() string {
	switch {
	case q.MissionInstanceID != "":
		return ScopeMission
	case q.JourneyWeekID != "":
		return ScopeJourneyWeek
	case q.JourneyID != "":
		return ScopeJourney
	case q.UserID != "":
		return ScopeUser
	default:
		return ""
	}
}

func (q RangeQuery) filter() ContentFilter {
	return ContentFilter{
		JourneyID:         q.JourneyID,
		JourneyWeekID:     q.JourneyWeekID,
		MissionInstanceID: q.MissionInstanceID,
		UserID:            q.UserID,
	}
}

func (q RangeQuery) dimensions() map[string]string {
	dims := map[string]string{
		cache.DimTopN:         strconv.Itoa(q.TopN),
		cache.DimMinCount:     strconv.Itoa(q.MinCount),
		cache.DimAnalysisType: AnalysisRangeWordFrequency,
	}
	if q.JourneyID != "" {
		dims[cache.DimJourney] = q.JourneyID
	}
	if q.JourneyWeekID != "" {
		dims[cache.DimJourneyWeek] = q.JourneyWeekID
	}
	if q.MissionInstanceID != "" {
		dims[cache.DimMission] = q.MissionInstanceID
	}
	if q.UserID != "" {
		dims[cache.DimUser] = q.UserID
	}
	return dims
}

// WordCount is one term and its occurrence count.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// RangeAnalysis is the analysis response, cached payload plus cache
// provenance for the caller.
type RangeAnalysis struct {
	Scope         string      `json:"scope"`
	AnalysisType  string      `json:"analysis_type"`
	WordFrequency []WordCount `json:"word_frequency"`
	TotalPosts    int         `json:"total_posts"`
	AnalyzedAt    time.Time   `json:"analyzed_at"`
	CacheHit      bool        `json:"cache_hit"`
	Stale         bool        `json:"stale"`
}

// rangePayload is what actually lives in the cache tiers; provenance fields
// are stamped per request from the orchestrator result.
type rangePayload struct {
	Scope         string      `json:"scope"`
	WordFrequency []WordCount `json:"word_frequency"`
	TotalPosts    int         `json:"total_posts"`
}

// TextQuery describes a single-text word-frequency request. Zero TopN and
// MinCount take the defaults during normalization.
type TextQuery struct {
	Text         string `json:"text"`
	TopN         int    `json:"top_n"`
	MinCount     int    `json:"min_count"`
	ForceRefresh bool   `json:"force_refresh"`
}

// Validate runs validation rules against the normalized query.
func (q TextQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Text, validation.Required),
		validation.Field(
			&q.TopN,
			validation.Min(1),
			validation.Max(MaxTopN),
		),
		validation.Field(
			&q.MinCount,
			validation.Min(1),
		),
	)
}

// TextAnalysis is the single-text analysis response.
type TextAnalysis struct {
	AnalysisType  string      `json:"analysis_type"`
	WordFrequency []WordCount `json:"word_frequency"`
	TotalWords    int         `json:"total_words"`
	UniqueWords   int         `json:"unique_words"`
	AnalyzedAt    time.Time   `json:"analyzed_at"`
	CacheHit      bool        `json:"cache_hit"`
	Stale         bool        `json:"stale"`
}

type textPayload struct {
	WordFrequency []WordCount `json:"word_frequency"`
	TotalWords    int         `json:"total_words"`
	UniqueWords   int         `json:"unique_words"`
}

// Service runs scoped analyses with cached results.
type Service struct {
	source    ContentSource
	cache     *cache.Orchestrator
	tokenizer Tokenizer
	logger    Logger
	ttls      map[string]time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTokenizer swaps the term tokenizer.
func WithTokenizer(t Tokenizer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tokenizer = t
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTTL overrides the cache TTL for one analysis type.
func WithTTL(analysisType string, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttls[analysisType] = ttl
		}
	}
}

// NewService builds the analysis service.
func NewService(source ContentSource, orchestrator *cache.Orchestrator, opts ...ServiceOption) *Service {
	ttls := make(map[string]time.Duration, len(defaultTTLs))
	for k, v := range defaultTTLs {
		ttls[k] = v
	}

	s := &Service{
		source:    source,
		cache:     orchestrator,
		tokenizer: SimpleTokenizer{},
		logger:    noopLogger{},
		ttls:      ttls,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeRange returns the word frequency for every post in the query scope,
// computing at most once per scope across concurrent callers.
func (s *Service) AnalyzeRange(ctx context.Context, query RangeQuery) (*RangeAnalysis, error) {
	query = normalizeQuery(query)
	if query.Scope() == "" {
		return nil, errors.New("at least one scope dimension is required", errors.CategoryValidation).
			WithTextCode(ErrBadScopeParameter.TextCode)
	}
	if err := query.Validate(); err != nil {
		return nil, badScope(err, map[string]any{
			"top_n":     query.TopN,
			"min_count": query.MinCount,
		})
	}

	key := cache.NewScopeKey(query.dimensions())
	res, err := s.cache.GetOrCompute(ctx, key, cache.Options{
		TTL:          s.ttls[AnalysisRangeWordFrequency],
		ForceRefresh: query.ForceRefresh,
	}, func(ctx context.Context) (json.RawMessage, error) {
		return s.computeRange(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	var payload rangePayload
	if err := json.Unmarshal(res.Payload, &payload); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "decode cached analysis payload")
	}

	return &RangeAnalysis{
		Scope:         payload.Scope,
		AnalysisType:  AnalysisRangeWordFrequency,
		WordFrequency: payload.WordFrequency,
		TotalPosts:    payload.TotalPosts,
		AnalyzedAt:    res.ComputedAt,
		CacheHit:      res.CacheHit,
		Stale:         res.Stale,
	}, nil
}

func (s *Service) computeRange(ctx context.Context, query RangeQuery) (json.RawMessage, error) {
	contents, err := s.source.ListContents(ctx, query.filter())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "list posts for analysis")
	}

	counts := make(map[string]int)
	for _, content := range contents {
		tokens, err := s.tokenizer.Tokenize(ctx, content)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "tokenize post content")
		}
		for _, token := range tokens {
			counts[token]++
		}
	}

	frequency := rankTerms(counts, query.MinCount, query.TopN)

	s.logger.Debug("computed range word frequency",
		"scope", query.Scope(),
		"posts", len(contents),
		"distinct_terms", len(counts),
		"returned_terms", len(frequency))

	return json.Marshal(rangePayload{
		Scope:         query.Scope(),
		WordFrequency: frequency,
		TotalPosts:    len(contents),
	})
}

// AnalyzeText returns the word frequency for a single text, cached under a
// digest of the text plus the analysis options.
func (s *Service) AnalyzeText(ctx context.Context, query TextQuery) (*TextAnalysis, error) {
	query = normalizeTextQuery(query)
	if err := query.Validate(); err != nil {
		return nil, badScope(err, map[string]any{
			"top_n":     query.TopN,
			"min_count": query.MinCount,
		})
	}

	digest, err := hashid.NewUUID(query.Text)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "digest analysis text")
	}

	key := cache.NewScopeKey(map[string]string{
		cache.DimAnalysisType: AnalysisWordFrequency,
		cache.DimTopN:         strconv.Itoa(query.TopN),
		cache.DimMinCount:     strconv.Itoa(query.MinCount),
		dimTextDigest:         digest.String(),
	})
	res, err := s.cache.GetOrCompute(ctx, key, cache.Options{
		TTL:          s.ttls[AnalysisWordFrequency],
		ForceRefresh: query.ForceRefresh,
	}, func(ctx context.Context) (json.RawMessage, error) {
		return s.computeText(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	var payload textPayload
	if err := json.Unmarshal(res.Payload, &payload); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "decode cached analysis payload")
	}

	return &TextAnalysis{
		AnalysisType:  AnalysisWordFrequency,
		WordFrequency: payload.WordFrequency,
		TotalWords:    payload.TotalWords,
		UniqueWords:   payload.UniqueWords,
		AnalyzedAt:    res.ComputedAt,
		CacheHit:      res.CacheHit,
		Stale:         res.Stale,
	}, nil
}

func (s *Service) computeText(ctx context.Context, query TextQuery) (json.RawMessage, error) {
	tokens, err := s.tokenizer.Tokenize(ctx, query.Text)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "tokenize analysis text")
	}

	counts := make(map[string]int)
	for _, token := range tokens {
		counts[token]++
	}

	frequency := rankTerms(counts, query.MinCount, query.TopN)

	s.logger.Debug("computed text word frequency",
		"total_words", len(tokens),
		"distinct_terms", len(counts),
		"returned_terms", len(frequency))

	return json.Marshal(textPayload{
		WordFrequency: frequency,
		TotalWords:    len(tokens),
		UniqueWords:   len(counts),
	})
}

// rankTerms filters counts by minCount and orders them by descending count,
// ties broken alphabetically, capped at topN.
func rankTerms(counts map[string]int, minCount, topN int) []WordCount {
	frequency := make([]WordCount, 0, len(counts))
	for word, count := range counts {
		if count < minCount {
			continue
		}
		frequency = append(frequency, WordCount{Word: word, Count: count})
	}
	sort.Slice(frequency, func(i, j int) bool {
		if frequency[i].Count != frequency[j].Count {
			return frequency[i].Count > frequency[j].Count
		}
		return frequency[i].Word < frequency[j].Word
	})
	if len(frequency) > topN {
		frequency = frequency[:topN]
	}
	return frequency
}

// InvalidateJourneyWeek drops every cached analysis scoped to the journey
// week, across both cache tiers. Returns how many entries were invalidated.
func (s *Service) InvalidateJourneyWeek(ctx context.Context, journeyWeekID string) (int, error) {
	if journeyWeekID == "" {
		return 0, errors.New("journey week id is required", errors.CategoryValidation).
			WithTextCode(ErrBadScopeParameter.TextCode)
	}
	return s.cache.InvalidateByDimensions(ctx, map[string]string{
		cache.DimJourneyWeek: journeyWeekID,
	})
}

// CacheStats snapshots the underlying orchestrator counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func normalizeQuery(q RangeQuery) RangeQuery {
	if q.TopN == 0 {
		q.TopN = DefaultTopN
	}
	if q.MinCount == 0 {
		q.MinCount = DefaultMinCount
	}
	return q
}

func normalizeTextQuery(q TextQuery) TextQuery {
	if q.TopN == 0 {
		q.TopN = DefaultTopN
	}
	if q.MinCount == 0 {
		q.MinCount = DefaultMinCount
	}
	return q
}
