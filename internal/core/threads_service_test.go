package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubExtractor struct {
	terms map[string]RelevantTerm
	err   error
	calls int
}

func (s *stubExtractor) Extract(_ context.Context, _ string) (map[string]RelevantTerm, error) {
	s.calls++
	return s.terms, s.err
}

type stubExpander struct{ calls int }

func (s *stubExpander) Expand(_ context.Context, groups []TermGroup) []TermGroup {
	s.calls++
	return groups
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}

type stubSearchStore struct {
	emails    []*Email
	err       error
	lastQuery EmailQuery
}

func (s *stubSearchStore) Search(_ context.Context, q EmailQuery) ([]*Email, error) {
	s.lastQuery = q
	return s.emails, s.err
}
func (s *stubSearchStore) Upsert(_ context.Context, _ *Email) error { return nil }
func (s *stubSearchStore) Update(_ context.Context, _ map[string]any, _ map[string]any) (int64, error) {
	return 0, nil
}
func (s *stubSearchStore) FindByIndex(_ context.Context, _ string) (*Email, error) {
	return nil, nil
}
func (s *stubSearchStore) FindByMailbox(_ context.Context, _ string, _ int) ([]*Email, error) {
	return nil, nil
}
func (s *stubSearchStore) FindBySubjectPrefix(_ context.Context, _, _, _ string) (*Email, error) {
	return nil, nil
}
func (s *stubSearchStore) CountThreadSiblings(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

type stubWeightsStore struct {
	weights *FilterWeights
	err     error
}

func (s *stubWeightsStore) Get(_ context.Context, _ string) (*FilterWeights, error) {
	return s.weights, s.err
}
func (s *stubWeightsStore) Put(_ context.Context, _ *FilterWeights) error { return nil }

type stubFilter struct{ out []ScoredEmail }

func (f *stubFilter) Apply(_ []float32, _ []TermGroup, _ []*Email) []ScoredEmail {
	return f.out
}

type stubBuilder struct{ out []Thread }

func (b *stubBuilder) Build(_ []ScoredEmail) []Thread { return b.out }

// stubScorer scores one feature per email index, the rest zero.
type stubScorer struct{ byIndex map[string]map[string]float64 }

func (s *stubScorer) Features(_ string, _ []string, email *Email, _ int) map[string]float64 {
	features := make(map[string]float64, len(FeatureNames))
	for _, name := range FeatureNames {
		features[name] = s.byIndex[email.Index][name]
	}
	return features
}

type stubCache struct {
	entries map[string]*AnalysisResult
	sets    int
	gets    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]*AnalysisResult)}
}

func (c *stubCache) Get(_ context.Context, key string, out any) (bool, error) {
	c.gets++
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*out.(*AnalysisResult) = *v
	return true, nil
}

func (c *stubCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.sets++
	c.entries[key] = value.(*AnalysisResult)
	return nil
}

func (c *stubCache) Clear(_ context.Context, key string) error {
	if key == "" {
		c.entries = make(map[string]*AnalysisResult)
		return nil
	}
	delete(c.entries, key)
	return nil
}

type serviceFixture struct {
	extractor *stubExtractor
	expander  *stubExpander
	embedder  *stubEmbedder
	store     *stubSearchStore
	weights   *stubWeightsStore
	filter    *stubFilter
	builder   *stubBuilder
	scorer    *stubScorer
	cache     *stubCache
}

func newFixture() *serviceFixture {
	return &serviceFixture{
		extractor: &stubExtractor{terms: map[string]RelevantTerm{"factura": {Type: "keyword"}}},
		expander:  &stubExpander{},
		embedder:  &stubEmbedder{vec: []float32{1, 0}},
		store:     &stubSearchStore{},
		weights:   &stubWeightsStore{},
		filter:    &stubFilter{},
		builder:   &stubBuilder{},
		scorer:    &stubScorer{byIndex: map[string]map[string]float64{}},
		cache:     newStubCache(),
	}
}

func (f *serviceFixture) service(cacheEnabled bool) *ThreadsService {
	return NewThreadsService(
		f.embedder, f.store, f.weights,
		f.extractor, f.expander, f.filter, f.builder, f.scorer,
		f.cache, cacheEnabled, time.Minute, 500,
		zap.NewNop(),
	)
}

func defaultUser() User {
	return User{ID: "u1", Mailboxes: []string{"inbox@corp.com"}}
}

func scoredFixtureEmail(index string) ScoredEmail {
	return ScoredEmail{
		Email:       &Email{Index: index, Subject: index},
		Similarity:  0.9,
		Concordance: 1.0,
	}
}

func threadOf(id string, memberIndexes ...string) Thread {
	t := Thread{ID: id, Label: id}
	for _, idx := range memberIndexes {
		t.Members = append(t.Members, ThreadMember{Index: idx})
	}
	return t
}

func TestAnalyzeRequiresMailboxes(t *testing.T) {
	f := newFixture()

	result, err := f.service(false).Analyze(context.Background(), "factura", User{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, ReasonNoMailboxes, result.Reason)
	assert.Zero(t, f.extractor.calls, "the pipeline must not run without mailboxes")
}

func TestAnalyzeNoExtractedTerms(t *testing.T) {
	f := newFixture()
	f.extractor.terms = nil

	result, err := f.service(false).Analyze(context.Background(), "???", defaultUser())
	require.NoError(t, err)
	assert.Equal(t, ReasonNoCandidates, result.Reason)
}

func TestAnalyzeExtractionFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.extractor.terms = nil
	f.extractor.err = errors.New("llm down")

	result, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Equal(t, ReasonNoCandidates, result.Reason)
}

func TestAnalyzeEmbeddingFailure(t *testing.T) {
	f := newFixture()
	f.embedder.err = errors.New("provider down")

	result, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Equal(t, ReasonNoEmbedding, result.Reason)
}

func TestAnalyzeStoreFailure(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("mongo down")

	result, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Equal(t, ReasonStoreError, result.Reason)
}

func TestAnalyzeNoCandidatesFromStore(t *testing.T) {
	f := newFixture()

	result, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Equal(t, ReasonNoCandidates, result.Reason)
}

func TestAnalyzeAllCandidatesFiltered(t *testing.T) {
	f := newFixture()
	f.store.emails = []*Email{{Index: "a"}}
	f.filter.out = nil

	result, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Equal(t, ReasonNoMatch, result.Reason)
}

func TestAnalyzeNameOnlyQueryRuns(t *testing.T) {
	f := newFixture()
	f.extractor.terms = map[string]RelevantTerm{"marta": {Type: "name"}}
	f.store.emails = []*Email{{Index: "a"}}
	f.filter.out = []ScoredEmail{scoredFixtureEmail("a")}
	f.builder.out = []Thread{threadOf("t1", "a")}

	result, err := f.service(false).Analyze(context.Background(), "marta", defaultUser())
	require.NoError(t, err)
	assert.Empty(t, result.Reason)
	require.Len(t, result.Threads, 1)
	assert.Empty(t, f.store.lastQuery.TermGroups)
	assert.Equal(t, []string{"marta"}, f.store.lastQuery.Names)
}

func TestAnalyzeQueryScopedToUserMailboxes(t *testing.T) {
	f := newFixture()
	f.store.emails = []*Email{{Index: "a"}}
	f.filter.out = []ScoredEmail{scoredFixtureEmail("a")}
	f.builder.out = []Thread{threadOf("t1", "a")}

	_, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Equal(t, []string{"inbox@corp.com"}, f.store.lastQuery.Mailboxes)
	assert.Equal(t, 500, f.store.lastQuery.Limit)
	assert.Equal(t, 1, f.expander.calls)
}

func TestAnalyzeReturnsThreads(t *testing.T) {
	f := newFixture()
	f.store.emails = []*Email{{Index: "a"}}
	f.filter.out = []ScoredEmail{scoredFixtureEmail("a")}
	f.builder.out = []Thread{threadOf("t1", "a")}

	result, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Empty(t, result.Reason)
	require.Len(t, result.Threads, 1)
	assert.Equal(t, "t1", result.Threads[0].ID)
}

func TestAnalyzeCachesResult(t *testing.T) {
	f := newFixture()
	f.store.emails = []*Email{{Index: "a"}}
	f.filter.out = []ScoredEmail{scoredFixtureEmail("a")}
	f.builder.out = []Thread{threadOf("t1", "a")}
	service := f.service(true)

	first, err := service.Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.sets)

	second, err := service.Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Equal(t, first.Threads, second.Threads)
	assert.Equal(t, 1, f.extractor.calls, "a cache hit must short-circuit the pipeline")
}

func TestAnalyzeCacheDisabled(t *testing.T) {
	f := newFixture()
	f.store.emails = []*Email{{Index: "a"}}
	f.filter.out = []ScoredEmail{scoredFixtureEmail("a")}
	f.builder.out = []Thread{threadOf("t1", "a")}
	service := f.service(false)

	_, err := service.Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	assert.Zero(t, f.cache.gets)
	assert.Zero(t, f.cache.sets)
}

func TestAnalyzeRanksThreadsByWeightedFeatures(t *testing.T) {
	f := newFixture()
	f.store.emails = []*Email{{Index: "a"}, {Index: "b"}}
	f.filter.out = []ScoredEmail{scoredFixtureEmail("a"), scoredFixtureEmail("b")}
	f.builder.out = []Thread{threadOf("low", "a"), threadOf("high", "b")}
	f.scorer.byIndex = map[string]map[string]float64{
		"a": {FeatureTextualSimilarity: 0.2},
		"b": {FeatureTextualSimilarity: 0.9},
	}

	result, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	require.Len(t, result.Threads, 2)
	assert.Equal(t, "high", result.Threads[0].ID)
	assert.Equal(t, "low", result.Threads[1].ID)
}

func TestAnalyzeRankingFollowsLearnedWeights(t *testing.T) {
	f := newFixture()
	f.store.emails = []*Email{{Index: "a"}, {Index: "b"}}
	f.filter.out = []ScoredEmail{scoredFixtureEmail("a"), scoredFixtureEmail("b")}
	f.builder.out = []Thread{threadOf("text", "a"), threadOf("name", "b")}
	f.scorer.byIndex = map[string]map[string]float64{
		"a": {FeatureTextualSimilarity: 1.0},
		"b": {FeatureNameMatch: 1.0},
	}
	// All weight on name match flips the order equal weights would give.
	f.weights.weights = &FilterWeights{
		UserID:  "u1",
		Weights: map[string]float64{FeatureNameMatch: 1.0},
	}

	result, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	require.Len(t, result.Threads, 2)
	assert.Equal(t, "name", result.Threads[0].ID)
}

func TestAnalyzeWeightsLookupFailureUsesDefaults(t *testing.T) {
	f := newFixture()
	f.store.emails = []*Email{{Index: "a"}}
	f.filter.out = []ScoredEmail{scoredFixtureEmail("a")}
	f.builder.out = []Thread{threadOf("t1", "a")}
	f.weights.err = errors.New("weights store down")

	result, err := f.service(false).Analyze(context.Background(), "factura", defaultUser())
	require.NoError(t, err)
	require.Len(t, result.Threads, 1)
}

func TestAnalysisCacheKeyNormalizesQuery(t *testing.T) {
	a := analysisCacheKey("  Facturas  de JUNIO ", "u1")
	b := analysisCacheKey("facturas de junio", "u1")
	assert.Equal(t, a, b)

	accented := analysisCacheKey("facturás de junió", "u1")
	assert.Equal(t, a, accented)

	otherUser := analysisCacheKey("facturas de junio", "u2")
	assert.NotEqual(t, a, otherUser, "cache entries are per user")
}
